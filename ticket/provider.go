package ticket

import "time"

// Access is the set of rights granted to a principal on a ticket channel.
type Access uint8

const (
	AccessView Access = 1 << iota
	AccessPost
	AccessHistory
	AccessManage
)

// RequesterAccess is what the ticket opener gets on their channel.
const RequesterAccess = AccessView | AccessPost | AccessHistory

// StaffWatchAccess is what the staff role gets before a claim: they can
// see and read but must claim before posting.
const StaffWatchAccess = AccessView | AccessHistory

// MemberAccess is granted to users added to a ticket and to a staff
// member on claim.
const MemberAccess = AccessView | AccessPost | AccessHistory

// Overwrite is a per-principal permission grant applied at channel
// creation. Deny must explicitly carry any right the principal could
// otherwise inherit from guild-level grants; an absent Allow bit alone
// does not block it.
type Overwrite struct {
	Principal string
	Role      bool
	Allow     Access
	Deny      Access
}

// Channel is the provider's view of a live channel.
type Channel struct {
	ID    string
	Name  string
	Topic string
}

// Message is one archived channel message. Attachments hold URLs only.
type Message struct {
	ID          string
	AuthorID    string
	Author      string
	Content     string
	Timestamp   time.Time
	Attachments []string
}

// Provider creates and manipulates the externally-hosted channels that
// back tickets. Implemented against the chat platform SDK in package bot;
// faked in tests.
type Provider interface {
	CreateChannel(name, topic string, overwrites []Overwrite) (string, error)
	RenameChannel(ref, name string) error
	SetTopic(ref, topic string) error
	DeleteChannel(ref string) error
	EditPermission(ref, principal string, allow Access) error
	RemovePermission(ref, principal string) error

	// RecentMessages returns up to limit of the channel's most recent
	// messages, ordered oldest first.
	RecentMessages(ref string, limit int) ([]Message, error)
	SendMessage(ref, content string) error

	// Channel fetches one channel; returns nil when it does not exist.
	Channel(ref string) (*Channel, error)

	// ListChannels enumerates the guild's live text channels.
	ListChannels() ([]Channel, error)
}
