package handlers

import "github.com/bwmarrin/discordgo"

var (
	adminPerm      int64 = discordgo.PermissionAdministrator
	manageChanPerm int64 = discordgo.PermissionManageChannels
)

// Commands returns the slash commands registered at startup.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:                     "setup",
			Description:              "Setup the ticket system in this channel",
			DefaultMemberPermissions: &adminPerm,
		},
		{
			Name:        "close",
			Description: "Close the current ticket",
		},
		{
			Name:                     "add",
			Description:              "Add a user to the current ticket",
			DefaultMemberPermissions: &manageChanPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "The user to add to the ticket", Required: true},
			},
		},
		{
			Name:                     "remove",
			Description:              "Remove a user from the current ticket",
			DefaultMemberPermissions: &manageChanPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "The user to remove from the ticket", Required: true},
			},
		},
		{
			Name:                     "rename",
			Description:              "Rename the current ticket channel",
			DefaultMemberPermissions: &manageChanPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "New name for the ticket channel", Required: true, MaxLength: 100},
			},
		},
		{
			Name:                     "transfer",
			Description:              "Transfer ticket to a different category",
			DefaultMemberPermissions: &manageChanPerm,
		},
		{
			Name:                     "transferadmin",
			Description:              "Notify a specific admin about this ticket",
			DefaultMemberPermissions: &manageChanPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "admin", Description: "The admin to notify about this ticket", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason for the admin notification", MaxLength: 500},
			},
		},
	}
}
