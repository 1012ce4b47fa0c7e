package command

import (
	"repost-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// Command is an interface for application commands.
type Command interface {
	Definition() *discordgo.ApplicationCommand
}

// AllCommands holds all the command instances.
var AllCommands = []Command{
	&PingCommand{},
	&RepostsCommand{},
	&RepostersCommand{},
	&PinsCommand{},
	&WordleCommand{},
	&ReconcileCommand{},
}

// Permissions maps each command to the level required to run it.
var Permissions = map[string]string{
	"ping":      utils.LevelGuest,
	"reposts":   utils.LevelGuest,
	"reposters": utils.LevelGuest,
	"pins":      utils.LevelGuest,
	"wordle":    utils.LevelGuest,
	"reconcile": utils.LevelAdmin,
}

// GetCommandDefinitions returns a slice of all command definitions.
func GetCommandDefinitions() []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, len(AllCommands))
	for i, cmd := range AllCommands {
		defs[i] = cmd.Definition()
	}
	return defs
}
