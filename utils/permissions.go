package utils

import "github.com/bwmarrin/discordgo"

// ReadHistory is what the bot needs on a channel to index it.
const ReadHistory = discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory

// PermissionSource is satisfied by *discordgo.State.
type PermissionSource interface {
	UserChannelPermissions(userID, channelID string) (int64, error)
}

// CanReadHistory reports whether userID can both see channelID and read its
// history. Lookup failures count as not visible.
func CanReadHistory(src PermissionSource, userID, channelID string) bool {
	perms, err := src.UserChannelPermissions(userID, channelID)
	if err != nil {
		return false
	}
	return perms&ReadHistory == ReadHistory
}
