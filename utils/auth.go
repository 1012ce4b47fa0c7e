package utils

import (
	"slices"

	"repost-bot/models"

	"github.com/bwmarrin/discordgo"
)

// Permission levels, from most to least privileged.
const (
	LevelDeveloper = "developer"
	LevelAdmin     = "admin"
	LevelGuest     = "guest"
)

// Auth answers permission checks for commands.
type Auth struct {
	config models.AuthConfig
}

// NewAuth creates a new Auth instance from the loaded configuration.
func NewAuth(cfg models.CommandsConfig) *Auth {
	return &Auth{config: cfg.Auth}
}

// IsDeveloper checks if a user is a developer.
func (a *Auth) IsDeveloper(userID string) bool {
	return slices.Contains(a.config.Developers, userID)
}

// IsAdmin checks if a member holds one of the admin roles.
func (a *Auth) IsAdmin(member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	for _, role := range member.Roles {
		if slices.Contains(a.config.AdminsRoles, role) {
			return true
		}
	}
	return false
}

// IsGuest checks if a user is a guest. An empty list, or the entry "0",
// opens guest commands to everyone.
func (a *Auth) IsGuest(userID string) bool {
	if len(a.config.Guest) == 0 {
		return true
	}
	return slices.Contains(a.config.Guest, "0") || slices.Contains(a.config.Guest, userID)
}

// Allowed checks if a user has the required permission level. member may be
// nil outside of a server.
func (a *Auth) Allowed(userID string, member *discordgo.Member, requiredLevel string) bool {
	switch requiredLevel {
	case LevelDeveloper:
		return a.IsDeveloper(userID)
	case LevelAdmin:
		return a.IsDeveloper(userID) || a.IsAdmin(member)
	case LevelGuest:
		return a.IsDeveloper(userID) || a.IsAdmin(member) || a.IsGuest(userID)
	default:
		return false
	}
}

// CheckPermission checks the user behind an interaction.
func (a *Auth) CheckPermission(i *discordgo.InteractionCreate, requiredLevel string) bool {
	if i.Member != nil && i.Member.User != nil {
		return a.Allowed(i.Member.User.ID, i.Member, requiredLevel)
	}
	if i.User != nil {
		return a.Allowed(i.User.ID, nil, requiredLevel)
	}
	return false
}
