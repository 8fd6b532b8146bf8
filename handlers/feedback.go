package handlers

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"ticket-bot/lang"
	"ticket-bot/ticket"
)

func (h *Handler) handleFeedbackButton(s *discordgo.Session, i *discordgo.InteractionCreate, ticketID string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: "ticket_feedback_modal:" + ticketID,
			Title:    "Ticket Feedback",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    "rating",
							Label:       "Rating (1-5)",
							Style:       discordgo.TextInputShort,
							Placeholder: "5",
							Required:    true,
							MaxLength:   1,
						},
					},
				},
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    "comment",
							Label:       "Comments",
							Style:       discordgo.TextInputParagraph,
							Placeholder: "Tell us how we did (optional)",
							Required:    false,
							MaxLength:   1000,
						},
					},
				},
			},
		},
	})
	if err != nil {
		h.log.Warnw("open feedback modal", "ticket", ticketID, "error", err)
	}
}

func (h *Handler) handleFeedbackSubmit(s *discordgo.Session, i *discordgo.InteractionCreate, ticketID string) {
	data := i.ModalSubmitData()

	var rating, comment string
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range ar.Components {
			ti, ok := c.(*discordgo.TextInput)
			if !ok {
				continue
			}
			switch ti.CustomID {
			case "rating":
				rating = strings.TrimSpace(ti.Value)
			case "comment":
				comment = strings.TrimSpace(ti.Value)
			}
		}
	}

	n, err := strconv.Atoi(rating)
	if err != nil || n < 1 || n > 5 {
		respond(s, i, lang.T("feedback_invalid"), true)
		return
	}

	fb := ticket.Feedback{
		TicketID: ticketID,
		UserID:   interactionUser(i).ID,
		Rating:   n,
		Comment:  comment,
	}
	if err := h.mgr.SaveFeedback(fb); err != nil {
		h.log.Errorw("save feedback", "ticket", ticketID, "error", err)
		respond(s, i, lang.T("generic_error"), true)
		return
	}
	respond(s, i, lang.T("feedback_thanks"), true)
}
