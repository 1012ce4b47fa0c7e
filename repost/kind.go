package repost

// Kind is the way a message matched earlier content.
type Kind uint8

const (
	Link Kind = iota + 1
	Image
)

// Long is the label used in report headers.
func (k Kind) Long() string {
	switch k {
	case Link:
		return "LINK"
	case Image:
		return "IMAGE"
	default:
		return "UNKNOWN"
	}
}

// Short is the glyph used to prefix report lines.
func (k Kind) Short() string {
	switch k {
	case Link:
		return "🔗"
	case Image:
		return "🖼️"
	default:
		return "?"
	}
}

func (k Kind) String() string { return k.Long() }
