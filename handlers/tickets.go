package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"ticket-bot/lang"
	"ticket-bot/ticket"
)

func (h *Handler) handleCategorySelect(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.MessageComponentData()
	if len(data.Values) == 0 {
		return
	}
	cat := ticket.Category(data.Values[0])
	user := actor(i)

	deferEphemeral(s, i)

	t, err := h.mgr.Open(user, cat)
	if err != nil {
		if !errors.Is(err, ticket.ErrDuplicateTicket) && !errors.Is(err, ticket.ErrInvalidCategory) {
			h.log.Errorw("open ticket", "user", user.ID, "category", cat, "error", err)
			editReply(s, i, lang.T("ticket_create_failed"))
			return
		}
		editReply(s, i, errorReply(err))
		return
	}

	h.sendWelcome(s, t, user)
	editReply(s, i, lang.T("ticket_created", "channel", t.ChannelID))
}

// sendWelcome posts the initial notification message with the claim and
// close controls into a fresh ticket channel.
func (h *Handler) sendWelcome(s *discordgo.Session, t *ticket.Ticket, user ticket.User) {
	info := t.Category.Info()

	ticketEmbed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🎫 New Ticket - %s", info.Label),
		Description: fmt.Sprintf(
			"Hello <@%s>!\n\nThank you for creating a ticket. Please describe your issue in detail and our support team will assist you shortly.\n\n**Category:** %s\n**Created:** <t:%d:F>",
			user.ID, info.Label, time.Now().Unix()),
		Color:     0x00FF00,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	controlsEmbed := &discordgo.MessageEmbed{
		Title: "🎛️ Ticket Controls",
		Description: "**For Support Staff:**\n" +
			"🔷 Click **Claim Ticket** to assign yourself to this ticket\n" +
			"🔷 Click **Close Ticket** to close and archive this ticket\n\n" +
			"**For Ticket Creator:**\n" +
			"🔷 You can also close your own ticket using the **Close Ticket** button",
		Color: 0x0099FF,
	}

	content := fmt.Sprintf("<@%s>", user.ID)
	if h.cfg.Tickets.StaffRole != "" {
		content += fmt.Sprintf(" <@&%s>", h.cfg.Tickets.StaffRole)
	}

	_, err := s.ChannelMessageSendComplex(t.ChannelID, &discordgo.MessageSend{
		Content: content,
		Embeds:  []*discordgo.MessageEmbed{ticketEmbed, controlsEmbed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label: "Claim Ticket", Style: discordgo.PrimaryButton,
						CustomID: "claim_ticket",
						Emoji:    &discordgo.ComponentEmoji{Name: "👋"},
					},
					discordgo.Button{
						Label: "Close Ticket", Style: discordgo.DangerButton,
						CustomID: "close_ticket",
						Emoji:    &discordgo.ComponentEmoji{Name: "🔒"},
					},
				},
			},
		},
	})
	if err != nil {
		h.log.Warnw("send welcome message", "ticket", t.ID, "error", err)
	}
}

func (h *Handler) handleClaimButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := actor(i)
	_, err := h.mgr.Claim(i.ChannelID, user, h.isStaff(i))
	switch {
	case errors.Is(err, ticket.ErrUnauthorized):
		respond(s, i, lang.T("no_permission_claim"), true)
	case errors.Is(err, ticket.ErrAlreadyClaimed):
		claimer := "another admin"
		if cur, lerr := h.store.GetOpenByChannel(i.ChannelID); lerr == nil && cur != nil && cur.ClaimedBy != "" {
			claimer = cur.ClaimedBy
		}
		respond(s, i, lang.T("already_claimed", "user", claimer), true)
	case errors.Is(err, ticket.ErrNotFound):
		respond(s, i, lang.T("not_ticket_channel"), true)
	case err != nil:
		h.log.Errorw("claim ticket", "channel", i.ChannelID, "error", err)
		respond(s, i, lang.T("generic_error"), true)
	default:
		respond(s, i, lang.T("claimed", "user", user.ID), false)
	}
}

func (h *Handler) handleCloseButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.closeTicket(s, i)
}

func (h *Handler) handleCloseCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.closeTicket(s, i)
}

func (h *Handler) closeTicket(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := actor(i)

	// Validate before acknowledging so validation failures stay
	// ephemeral; the close pipeline itself runs after the reply.
	t, err := h.mgr.TicketByChannel(i.ChannelID)
	if err != nil {
		respond(s, i, errorReply(err), true)
		return
	}
	staff := h.isStaff(i)
	if !staff && user.ID != t.UserID {
		respond(s, i, lang.T("no_permission_close"), true)
		return
	}

	respond(s, i, lang.T("closing"), false)

	res, err := h.mgr.Close(i.ChannelID, user, staff)
	if err != nil {
		h.log.Errorw("close ticket", "channel", i.ChannelID, "error", err)
		followup(s, i, lang.T("close_failed"))
		return
	}

	h.auditClose(s, &res.Ticket, user, res.Transcript)
	h.notifyRequester(s, &res.Ticket)
}

// auditClose posts the close record and transcript to the log channel.
func (h *Handler) auditClose(s *discordgo.Session, t *ticket.Ticket, closedBy ticket.User, transcript string) {
	logCh := h.cfg.Tickets.LogChannel
	if logCh == "" {
		return
	}

	claimed := "Unclaimed"
	if t.ClaimedBy != "" {
		claimed = fmt.Sprintf("<@%s>", t.ClaimedBy)
	}
	embed := &discordgo.MessageEmbed{
		Title: "Ticket Closed",
		Color: 0xED4245,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Ticket ID", Value: t.ID, Inline: true},
			{Name: "Created by", Value: fmt.Sprintf("<@%s>", t.UserID), Inline: true},
			{Name: "Claimed by", Value: claimed, Inline: true},
			{Name: "Closed by", Value: fmt.Sprintf("<@%s>", closedBy.ID), Inline: true},
			{Name: "Category", Value: t.Category.Info().Label, Inline: true},
			{Name: "Opened", Value: t.CreatedAt.Format(time.RFC3339), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	_, err := s.ChannelMessageSendComplex(logCh, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Files: []*discordgo.File{
			{
				Name:        t.ID + "-transcript.txt",
				ContentType: "text/plain",
				Reader:      strings.NewReader(transcript),
			},
		},
	})
	if err != nil {
		h.log.Warnw("send audit message", "ticket", t.ID, "error", err)
	}
}

// notifyRequester DMs the requester that their ticket closed, with a
// feedback button. Best effort: failure is logged and surfaced as a soft
// warning in the log channel, never fails the close.
func (h *Handler) notifyRequester(s *discordgo.Session, t *ticket.Ticket) {
	dm, err := s.UserChannelCreate(t.UserID)
	if err == nil {
		_, err = s.ChannelMessageSendComplex(dm.ID, &discordgo.MessageSend{
			Content: fmt.Sprintf("🔒 Your ticket **%s** has been closed. We'd love to hear how we did!", t.ID),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label: "Leave Feedback", Style: discordgo.PrimaryButton,
							CustomID: "ticket_feedback:" + t.ID,
							Emoji:    &discordgo.ComponentEmoji{Name: "⭐"},
						},
					},
				},
			},
		})
	}
	if err != nil {
		h.log.Warnw("dm requester", "ticket", t.ID, "user", t.UserID, "error", err)
		if h.cfg.Tickets.LogChannel != "" {
			_, _ = s.ChannelMessageSend(h.cfg.Tickets.LogChannel,
				fmt.Sprintf("⚠️ Could not DM the requester of ticket `%s`.", t.ID))
		}
	}
}

func (h *Handler) handleTransferCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if _, err := h.mgr.TicketByChannel(i.ChannelID); err != nil {
		respond(s, i, errorReply(err), true)
		return
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    lang.T("transfer_prompt"),
			Flags:      discordgo.MessageFlagsEphemeral,
			Components: transferMenu(),
		},
	})
}

func (h *Handler) handleTransferSelect(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.MessageComponentData()
	if len(data.Values) == 0 {
		return
	}
	cat := ticket.Category(data.Values[0])
	user := actor(i)

	t, err := h.mgr.Transfer(i.ChannelID, user, cat)
	if err != nil {
		respond(s, i, errorReply(err), true)
		return
	}

	// Swap out the ephemeral menu for a confirmation.
	done := lang.T("transferred", "category", t.Category.Info().Label, "user", user.ID)
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    done,
			Components: []discordgo.MessageComponent{},
		},
	})
	_, _ = s.ChannelMessageSend(i.ChannelID, done)
}

func (h *Handler) handleAddUser(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	target := opts["user"].UserValue(s)

	if err := h.mgr.AddMember(i.ChannelID, target.ID); err != nil {
		respond(s, i, errorReply(err), true)
		return
	}
	respond(s, i, lang.T("user_added", "user", target.ID), true)
	_, _ = s.ChannelMessageSend(i.ChannelID,
		fmt.Sprintf("📨 <@%s> has been added to this ticket by <@%s>.", target.ID, interactionUser(i).ID))
}

func (h *Handler) handleRemoveUser(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	target := opts["user"].UserValue(s)

	if err := h.mgr.RemoveMember(i.ChannelID, target.ID); err != nil {
		respond(s, i, errorReply(err), true)
		return
	}
	respond(s, i, lang.T("user_removed", "user", target.ID), true)
	_, _ = s.ChannelMessageSend(i.ChannelID,
		fmt.Sprintf("📤 <@%s> has been removed from this ticket by <@%s>.", target.ID, interactionUser(i).ID))
}

func (h *Handler) handleRename(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	newName := opts["name"].StringValue()

	ch, err := s.Channel(i.ChannelID)
	oldName := i.ChannelID
	if err == nil {
		oldName = ch.Name
	}

	clean, err := h.mgr.Rename(i.ChannelID, newName)
	if err != nil {
		respond(s, i, errorReply(err), true)
		return
	}
	respond(s, i, lang.T("renamed", "old", oldName, "new", clean), true)
	_, _ = s.ChannelMessageSend(i.ChannelID,
		fmt.Sprintf("📝 This ticket has been renamed to **%s** by <@%s>.", clean, interactionUser(i).ID))
}

func (h *Handler) handleTransferAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	admin := opts["admin"].UserValue(s)
	reason := "No reason provided"
	if r, ok := opts["reason"]; ok {
		reason = r.StringValue()
	}

	if err := h.mgr.AddMember(i.ChannelID, admin.ID); err != nil {
		respond(s, i, errorReply(err), true)
		return
	}

	respond(s, i, lang.T("admin_notified", "user", admin.ID), true)
	_, _ = s.ChannelMessageSend(i.ChannelID, fmt.Sprintf(
		"🔔 **Admin Notification**\n\n<@%s>, you have been requested to assist with this ticket by <@%s>.\n\n**Reason:** %s",
		admin.ID, interactionUser(i).ID, reason))

	// Best-effort DM; failure is only logged.
	if dm, err := s.UserChannelCreate(admin.ID); err == nil {
		_, err = s.ChannelMessageSend(dm.ID, fmt.Sprintf(
			"🎫 **Ticket Notification**\n\nYou have been requested to assist with a ticket.\n\n**Ticket:** <#%s>\n**Requested by:** %s\n**Reason:** %s",
			i.ChannelID, interactionUser(i).String(), reason))
		if err != nil {
			h.log.Warnw("dm admin", "admin", admin.ID, "error", err)
		}
	} else {
		h.log.Warnw("dm admin", "admin", admin.ID, "error", err)
	}
}
