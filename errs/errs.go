// Package errs is the closed error taxonomy shared by every component.
// Transport and driver errors are wrapped at the component boundary so
// callers can switch on Kind instead of on discordgo or sqlite types.
package errs

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/mattn/go-sqlite3"
)

// Kind classifies an error.
type Kind uint8

const (
	Internal Kind = iota
	NotFound
	Permission
	Transient
	Decode
	Precondition
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Permission:
		return "permission"
	case Transient:
		return "transient"
	case Decode:
		return "decode"
	case Precondition:
		return "precondition"
	default:
		return "internal"
	}
}

// Error is a classified error with the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err. A nil err yields nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost classified error in the chain,
// or Internal when none is present.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

var (
	ErrBotMessage = &Error{Kind: Precondition, Op: "message", Err: errors.New("message authored by a bot")}
	ErrNotRegular = &Error{Kind: Precondition, Op: "message", Err: errors.New("not a regular message")}
	ErrNoServer   = &Error{Kind: Precondition, Op: "message", Err: errors.New("message has no server")}
)

// FromDiscord classifies an error returned by a discordgo REST call.
func FromDiscord(op string, err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		switch rest.Response.StatusCode {
		case http.StatusNotFound:
			return E(NotFound, op, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return E(Permission, op, err)
		}
	}
	return E(Transient, op, err)
}

// FromStore classifies an error returned by the sqlite driver.
func FromStore(op string, err error) error {
	if err == nil {
		return nil
	}
	var sqe sqlite3.Error
	if errors.As(err, &sqe) {
		switch sqe.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrIoErr:
			return E(Transient, op, err)
		}
	}
	return E(Internal, op, err)
}
