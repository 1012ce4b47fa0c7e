package command

import "github.com/bwmarrin/discordgo"

// PingCommand defines the structure for the /ping command.
type PingCommand struct{}

// Definition returns the application command definition.
func (c *PingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "ping",
		Description: "Responds with Pong!",
	}
}

// RepostsCommand lists the most reposted links of the server.
type RepostsCommand struct{}

func (c *RepostsCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "reposts",
		Description: "Show the most reposted links in this server",
	}
}

// RepostersCommand ranks users by how often they reposted a link.
type RepostersCommand struct{}

func (c *RepostersCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "reposters",
		Description: "Show who reposts the most in this server",
	}
}

// PinsCommand counts pinned messages per author.
type PinsCommand struct{}

func (c *PinsCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "pins",
		Description: "Count pinned messages per author across readable channels",
	}
}

// WordleCommand shows recorded Wordle results.
type WordleCommand struct{}

func (c *WordleCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "wordle",
		Description: "Wordle statistics",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "server",
				Description: "Score distribution for this server",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
		},
	}
}

// ReconcileCommand wakes the history reconciliation loop of the server.
type ReconcileCommand struct{}

func (c *ReconcileCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "reconcile",
		Description: "Check message history for missed messages now",
	}
}
