package handlers

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"ticket-bot/lang"
	"ticket-bot/ticket"
)

func (h *Handler) handleSetup(s *discordgo.Session, i *discordgo.InteractionCreate) {
	deferEphemeral(s, i)
	if err := h.PostPanel(s, i.GuildID, i.ChannelID); err != nil {
		h.log.Errorw("post panel", "guild", i.GuildID, "error", err)
		editReply(s, i, lang.T("setup_failed"))
		return
	}
	editReply(s, i, lang.T("setup_done"))
}

// PostPanel posts the category-selection panel into a channel, replacing
// the previously recorded panel message. One panel row per guild.
func (h *Handler) PostPanel(s *discordgo.Session, guildID, channelID string) error {
	opts := make([]discordgo.SelectMenuOption, 0, len(ticket.Categories()))
	for _, cat := range ticket.Categories() {
		opts = append(opts, discordgo.SelectMenuOption{
			Label:       cat.Label,
			Value:       string(cat.ID),
			Description: cat.Description,
			Emoji:       &discordgo.ComponentEmoji{Name: cat.Emoji},
		})
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Support Tickets",
		Description: "Select the option that best fits your problem. A support ticket will be created for you automatically.",
		Color:       0x5865F2,
		Timestamp:   time.Now().Format(time.RFC3339),
	}

	msg, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.SelectMenu{
						MenuType:    discordgo.StringSelectMenu,
						CustomID:    "ticket_category",
						Placeholder: "Select the option that best fits your problem...",
						Options:     opts,
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send panel: %w", err)
	}

	if old, err := h.store.GetPanel(guildID); err == nil && old != nil {
		_ = s.ChannelMessageDelete(old.ChannelID, old.MessageID)
	}

	if err := h.store.SavePanel(ticket.Panel{GuildID: guildID, ChannelID: channelID, MessageID: msg.ID}); err != nil {
		return fmt.Errorf("save panel: %w", err)
	}
	return nil
}

// transferMenu is the category picker shown by /transfer.
func transferMenu() []discordgo.MessageComponent {
	opts := make([]discordgo.SelectMenuOption, 0, len(ticket.Categories()))
	for _, cat := range ticket.Categories() {
		opts = append(opts, discordgo.SelectMenuOption{
			Label:       cat.Label,
			Value:       string(cat.ID),
			Description: cat.Description,
			Emoji:       &discordgo.ComponentEmoji{Name: cat.Emoji},
		})
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    "transfer_category",
					Placeholder: "Choose new category for this ticket",
					Options:     opts,
				},
			},
		},
	}
}
