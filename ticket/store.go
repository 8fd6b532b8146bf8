package ticket

// Store is the persistence contract for tickets, panels, transcripts and
// feedback. Implementations live in package store (SQLite and MongoDB).
//
// The mutating ticket operations are conditional: they only apply when
// the row is in the expected prior state (claim requires open and
// unclaimed, close requires open, reopen requires closed) and report
// whether a row actually changed. Every applied update bumps the row's
// version counter, so concurrent writers lose cleanly instead of
// overwriting each other.
type Store interface {
	Insert(t Ticket) error
	GetOpenByChannel(channelID string) (*Ticket, error)
	GetAnyByChannel(channelID string) (*Ticket, error)
	GetByID(id string) (*Ticket, error)
	GetOpenByUser(userID string) (*Ticket, error)
	ListOpen() ([]Ticket, error)

	SetClaimedBy(channelID, userID string) (bool, error)
	SetCategory(channelID string, cat Category) (bool, error)
	CloseTicket(channelID string) (bool, error)

	// CloseTicketByID closes one specific open row. Reconciliation needs
	// this when several open rows point at the same channel and only the
	// surplus ones may be closed.
	CloseTicketByID(id string) (bool, error)

	ReopenTicket(channelID string) (bool, error)
	RepointChannel(id, newChannelID string) (bool, error)

	SavePanel(p Panel) error
	GetPanel(guildID string) (*Panel, error)

	SaveTranscript(ticketID, content string) error
	SaveFeedback(f Feedback) error
}
