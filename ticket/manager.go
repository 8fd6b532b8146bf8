package ticket

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"ticket-bot/events"
)

// User identifies an actor (requester or staff member) independently of
// the chat platform SDK.
type User struct {
	ID       string
	Username string
	Tag      string
}

type Options struct {
	Prefix          string
	StaffRole       string
	TranscriptLimit int
	DeleteDelay     time.Duration
}

// Manager owns the ticket state transitions and keeps the channel/row
// pair in step for each operation. It reasons about one ticket at a time;
// whole-collection repair is the Reconciler's job.
type Manager struct {
	store    Store
	provider Provider
	pub      events.Publisher
	log      *zap.SugaredLogger
	opts     Options

	rec *Reconciler
}

func NewManager(store Store, provider Provider, pub events.Publisher, log *zap.SugaredLogger, opts Options) *Manager {
	if opts.TranscriptLimit <= 0 {
		opts.TranscriptLimit = 100
	}
	if opts.DeleteDelay <= 0 {
		opts.DeleteDelay = 5 * time.Second
	}
	return &Manager{store: store, provider: provider, pub: pub, log: log, opts: opts}
}

// SetReconciler wires the lazy self-healing fallback used when a lookup
// by channel misses.
func (m *Manager) SetReconciler(r *Reconciler) { m.rec = r }

// TicketByChannel resolves the open ticket backing a channel. On a miss
// it runs one reconciliation sweep and retries before giving up, so a
// drifted row gets repaired before the actor sees an error.
func (m *Manager) TicketByChannel(channelID string) (*Ticket, error) {
	t, err := m.store.GetOpenByChannel(channelID)
	if err != nil {
		return nil, err
	}
	if t == nil && m.rec != nil {
		if _, ran := m.rec.HealIfStale(); ran {
			t, err = m.store.GetOpenByChannel(channelID)
			if err != nil {
				return nil, err
			}
		}
	}
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

// Open creates a ticket for the requester: allocates the id, creates the
// backing channel with per-principal permissions, and persists the row.
// Channel creation and row insertion form a saga: if the insert fails the
// orphan channel is deleted before the error is returned.
func (m *Manager) Open(requester User, cat Category) (*Ticket, error) {
	if !cat.Valid() {
		return nil, ErrInvalidCategory
	}

	existing, err := m.store.GetOpenByUser(requester.ID)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateTicket
	}

	id := NewID(m.opts.Prefix, requester.Username, cat)
	topic := ChannelTopic(requester.Tag, requester.ID, cat)

	overwrites := []Overwrite{
		{Principal: requester.ID, Allow: RequesterAccess},
	}
	if m.opts.StaffRole != "" {
		// Post is denied outright so a guild-wide send grant on the
		// staff role cannot leak through; staff must claim first.
		overwrites = append(overwrites, Overwrite{
			Principal: m.opts.StaffRole,
			Role:      true,
			Allow:     StaffWatchAccess,
			Deny:      AccessPost,
		})
	}

	channelID, err := m.provider.CreateChannel(id, topic, overwrites)
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}

	t := Ticket{
		ID:        id,
		ChannelID: channelID,
		UserID:    requester.ID,
		Category:  cat,
		Status:    StatusOpen,
		Version:   1,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.Insert(t); err != nil {
		if derr := m.provider.DeleteChannel(channelID); derr != nil {
			m.log.Errorw("orphan channel left behind after failed insert",
				"ticket", id, "channel", channelID, "error", derr)
		}
		return nil, fmt.Errorf("insert ticket: %w", err)
	}

	m.log.Infow("ticket opened", "ticket", id, "channel", channelID, "user", requester.ID, "category", cat)
	m.emit(events.KindOpened, &t, requester.ID)
	return &t, nil
}

// Claim assigns the ticket to a staff member and grants them post
// permission on the channel. A ticket is claimed at most once per open
// lifetime.
func (m *Manager) Claim(channelID string, actor User, actorIsStaff bool) (*Ticket, error) {
	if !actorIsStaff {
		return nil, ErrUnauthorized
	}
	t, err := m.TicketByChannel(channelID)
	if err != nil {
		return nil, err
	}
	if t.ClaimedBy != "" {
		return nil, ErrAlreadyClaimed
	}

	ok, err := m.store.SetClaimedBy(channelID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}
	if !ok {
		// Lost the race against another claimer or a concurrent close.
		return nil, ErrAlreadyClaimed
	}
	t.ClaimedBy = actor.ID

	if err := m.provider.EditPermission(channelID, actor.ID, MemberAccess); err != nil {
		m.log.Warnw("claim recorded but post permission grant failed",
			"ticket", t.ID, "claimer", actor.ID, "error", err)
	}

	m.log.Infow("ticket claimed", "ticket", t.ID, "claimer", actor.ID)
	m.emit(events.KindClaimed, t, actor.ID)
	return t, nil
}

// Transfer moves an open ticket to a different category: updates the
// row, renames the channel to encode the new category, and rewrites the
// channel topic.
func (m *Manager) Transfer(channelID string, actor User, cat Category) (*Ticket, error) {
	if !cat.Valid() {
		return nil, ErrInvalidCategory
	}
	t, err := m.TicketByChannel(channelID)
	if err != nil {
		return nil, err
	}

	ok, err := m.store.SetCategory(channelID, cat)
	if err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	t.Category = cat

	ch, err := m.provider.Channel(channelID)
	if err != nil || ch == nil {
		m.log.Warnw("category updated but channel fetch failed", "ticket", t.ID, "error", err)
		return t, nil
	}
	newName := TransferName(m.opts.Prefix, ch.Name, cat)
	if err := m.provider.RenameChannel(channelID, newName); err != nil {
		m.log.Warnw("category updated but rename failed", "ticket", t.ID, "error", err)
	}

	tag, userID, _, parsed := ParseTopic(ch.Topic)
	if !parsed {
		userID = t.UserID
	}
	if tag == "" {
		tag = userID
	}
	if err := m.provider.SetTopic(channelID, ChannelTopic(tag, userID, cat)); err != nil {
		m.log.Warnw("category updated but topic rewrite failed", "ticket", t.ID, "error", err)
	}

	m.log.Infow("ticket transferred", "ticket", t.ID, "category", cat, "actor", actor.ID)
	m.emit(events.KindTransferred, t, actor.ID)
	return t, nil
}

type CloseResult struct {
	Ticket     Ticket
	Transcript string
}

// Close archives and closes a ticket. Only the staff role or the
// original requester may close. The message history fetch must succeed
// before anything is persisted; channel deletion is deferred by the
// grace delay so notification sends can finish first.
func (m *Manager) Close(channelID string, actor User, actorIsStaff bool) (*CloseResult, error) {
	t, err := m.TicketByChannel(channelID)
	if err != nil {
		return nil, err
	}
	if !actorIsStaff && actor.ID != t.UserID {
		return nil, ErrUnauthorized
	}

	msgs, err := m.provider.RecentMessages(channelID, m.opts.TranscriptLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	transcript := RenderTranscript(t, msgs)

	if err := m.store.SaveTranscript(t.ID, transcript); err != nil {
		return nil, fmt.Errorf("save transcript: %w", err)
	}

	ok, err := m.store.CloseTicket(channelID)
	if err != nil {
		return nil, fmt.Errorf("close: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	t.Status = StatusClosed
	t.ClosedAt = time.Now().UTC()

	m.log.Infow("ticket closed", "ticket", t.ID, "actor", actor.ID)
	m.emit(events.KindClosed, t, actor.ID)

	time.AfterFunc(m.opts.DeleteDelay, func() {
		if err := m.provider.DeleteChannel(channelID); err != nil {
			m.log.Errorw("delete ticket channel", "ticket", t.ID, "channel", channelID, "error", err)
		}
	})

	return &CloseResult{Ticket: *t, Transcript: transcript}, nil
}

// Rename renames a ticket channel. The new name is sanitized to the
// channel-name alphabet and forced to keep the ticket prefix so the
// reconciler still recognizes the channel as a ticket.
func (m *Manager) Rename(channelID, newName string) (string, error) {
	if _, err := m.TicketByChannel(channelID); err != nil {
		return "", err
	}
	clean := SanitizeChannelName(newName)
	if clean == "" {
		return "", ErrInvalidName
	}
	if !IsTicketChannel(m.opts.Prefix, clean) {
		clean = m.opts.Prefix + "-" + clean
	}
	if err := m.provider.RenameChannel(channelID, clean); err != nil {
		return "", fmt.Errorf("rename: %w", err)
	}
	return clean, nil
}

// AddMember grants a user access to the ticket channel.
func (m *Manager) AddMember(channelID, userID string) error {
	if _, err := m.TicketByChannel(channelID); err != nil {
		return err
	}
	return m.provider.EditPermission(channelID, userID, MemberAccess)
}

// RemoveMember revokes a user's access to the ticket channel.
func (m *Manager) RemoveMember(channelID, userID string) error {
	if _, err := m.TicketByChannel(channelID); err != nil {
		return err
	}
	return m.provider.RemovePermission(channelID, userID)
}

// SaveFeedback records a requester's post-close rating.
func (m *Manager) SaveFeedback(f Feedback) error {
	return m.store.SaveFeedback(f)
}

func (m *Manager) emit(kind string, t *Ticket, actor string) {
	if m.pub == nil {
		return
	}
	err := m.pub.Publish(kind, map[string]any{
		"ticket_id":  t.ID,
		"channel_id": t.ChannelID,
		"user_id":    t.UserID,
		"category":   t.Category,
		"claimed_by": t.ClaimedBy,
		"status":     t.Status,
		"actor":      actor,
		"at":         time.Now().UTC(),
	})
	if err != nil {
		m.log.Warnw("publish event", "kind", kind, "ticket", t.ID, "error", err)
	}
}
