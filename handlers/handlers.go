package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"ticket-bot/config"
	"ticket-bot/lang"
	"ticket-bot/ticket"
)

type interactionFunc func(*discordgo.Session, *discordgo.InteractionCreate)

// Handler owns the discord-facing glue: slash commands, component and
// modal interactions, and the keyword auto-responder. Dispatch runs over
// lookup tables built once at construction; interaction custom IDs form
// a closed set.
type Handler struct {
	cfg   *config.Config
	log   *zap.SugaredLogger
	mgr   *ticket.Manager
	store ticket.Store

	commands   map[string]interactionFunc
	components map[string]interactionFunc

	// dedup bounds keyword auto-replies: one reply per
	// channel/user/keyword within the TTL.
	dedup *expirable.LRU[string, struct{}]
}

func New(cfg *config.Config, log *zap.SugaredLogger, mgr *ticket.Manager, store ticket.Store) *Handler {
	h := &Handler{
		cfg:   cfg,
		log:   log,
		mgr:   mgr,
		store: store,
		dedup: expirable.NewLRU[string, struct{}](1024, nil, 10*time.Minute),
	}
	h.commands = map[string]interactionFunc{
		"setup":         h.handleSetup,
		"close":         h.handleCloseCommand,
		"add":           h.handleAddUser,
		"remove":        h.handleRemoveUser,
		"rename":        h.handleRename,
		"transfer":      h.handleTransferCommand,
		"transferadmin": h.handleTransferAdmin,
	}
	h.components = map[string]interactionFunc{
		"ticket_category":   h.handleCategorySelect,
		"transfer_category": h.handleTransferSelect,
		"claim_ticket":      h.handleClaimButton,
		"close_ticket":      h.handleCloseButton,
	}
	return h
}

func (h *Handler) Register(s *discordgo.Session) {
	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			h.handleCommand(s, i)
		case discordgo.InteractionMessageComponent:
			h.handleComponent(s, i)
		case discordgo.InteractionModalSubmit:
			h.handleModal(s, i)
		}
	})
	s.AddHandler(h.handleMessage)
}

func (h *Handler) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		return
	}
	name := i.ApplicationCommandData().Name
	fn, ok := h.commands[name]
	if !ok {
		h.log.Warnw("unknown command", "name", name)
		return
	}
	fn(s, i)
}

func (h *Handler) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID

	// Feedback buttons arrive from direct messages and carry the ticket
	// id in the custom id.
	if ticketID, ok := strings.CutPrefix(customID, "ticket_feedback:"); ok {
		h.handleFeedbackButton(s, i, ticketID)
		return
	}

	fn, ok := h.components[customID]
	if !ok {
		h.log.Warnw("unknown component", "custom_id", customID)
		return
	}
	fn(s, i)
}

func (h *Handler) handleModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.ModalSubmitData().CustomID
	if ticketID, ok := strings.CutPrefix(customID, "ticket_feedback_modal:"); ok {
		h.handleFeedbackSubmit(s, i, ticketID)
		return
	}
	h.log.Warnw("unknown modal", "custom_id", customID)
}

// isStaff reports whether the invoking member holds the configured staff
// role (or carries the administrator permission).
func (h *Handler) isStaff(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	if i.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	for _, r := range i.Member.Roles {
		if r == h.cfg.Tickets.StaffRole {
			return true
		}
	}
	return false
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func actor(i *discordgo.InteractionCreate) ticket.User {
	u := interactionUser(i)
	return ticket.User{ID: u.ID, Username: u.Username, Tag: u.String()}
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func deferEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func editReply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, _ = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
}

func followup(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, _ = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, opt := range i.ApplicationCommandData().Options {
		m[opt.Name] = opt
	}
	return m
}

// errorReply maps lifecycle sentinel errors to their user-facing reply.
func errorReply(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ticket.ErrNotFound):
		return lang.T("not_ticket_channel")
	case errors.Is(err, ticket.ErrDuplicateTicket):
		return lang.T("duplicate_ticket")
	case errors.Is(err, ticket.ErrInvalidCategory):
		return lang.T("invalid_category")
	case errors.Is(err, ticket.ErrInvalidName):
		return lang.T("invalid_name")
	default:
		return lang.T("generic_error")
	}
}
