package ticket

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Category is one of the fixed set of issue categories a requester can
// pick from. The values are the wire values used in select menus and in
// the database; they never change once tickets reference them.
type Category string

const (
	CategoryGeneral    Category = "general_query"
	CategoryAccount    Category = "account_issues"
	CategoryBusiness   Category = "business_ticket"
	CategoryMembership Category = "membership_ticket"
	CategoryStaffApp   Category = "staff_application"
	CategoryReport     Category = "report"
	CategoryBilling    Category = "billing"
)

type CategoryInfo struct {
	ID          Category
	Label       string
	Description string
	Emoji       string

	// Short is the lowercase [a-z0-9] token encoded into ticket channel
	// names.
	Short string
}

var categories = []CategoryInfo{
	{CategoryGeneral, "General Support", "General questions and support", "🔧", "general"},
	{CategoryAccount, "Account Issues", "Problems with your account", "📧", "account"},
	{CategoryBusiness, "Business Ticket", "Business-related inquiries", "💼", "business"},
	{CategoryMembership, "Membership Ticket", "Membership support and questions", "👑", "membership"},
	{CategoryStaffApp, "Staff Application", "Apply to join our staff team", "📝", "staffapp"},
	{CategoryReport, "Report", "Report users or issues", "⚠️", "report"},
	{CategoryBilling, "Billing Support", "Payment and billing issues", "💳", "billing"},
}

// Categories returns the full category set in panel display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categories))
	copy(out, categories)
	return out
}

func (c Category) Valid() bool {
	for _, info := range categories {
		if info.ID == c {
			return true
		}
	}
	return false
}

func (c Category) Info() CategoryInfo {
	for _, info := range categories {
		if info.ID == c {
			return info
		}
	}
	return CategoryInfo{ID: c, Label: string(c), Short: sanitizeName(string(c))}
}

// CategoryByLabel resolves a category from its display label, as written
// into channel topics. Used by reconciliation when re-adopting a channel.
func CategoryByLabel(label string) (Category, bool) {
	for _, info := range categories {
		if strings.EqualFold(info.Label, label) {
			return info.ID, true
		}
	}
	return "", false
}

// Ticket is one support request, bound 1:1 to a live channel while open.
type Ticket struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Category  Category  `json:"category"`
	ClaimedBy string    `json:"claimed_by,omitempty"`
	Status    Status    `json:"status"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	ClosedAt  time.Time `json:"closed_at,omitempty"`
}

func (t *Ticket) Open() bool { return t.Status == StatusOpen }

// Panel records which message hosts the category-selection control for a
// guild. Replaced wholesale on re-setup.
type Panel struct {
	GuildID   string
	ChannelID string
	MessageID string
}

// Feedback is a requester's post-close rating. Write-once.
type Feedback struct {
	TicketID string
	UserID   string
	Rating   int // 1..5, 0 when not given
	Comment  string
}

var nonChannelChars = regexp.MustCompile(`[^a-z0-9-]+`)
var dashRuns = regexp.MustCompile(`-+`)

// sanitizeName lowers s into the [a-z0-9-] channel-name alphabet,
// collapsing runs of dashes and trimming them from the ends.
func sanitizeName(s string) string {
	s = strings.ToLower(s)
	s = nonChannelChars.ReplaceAllString(s, "-")
	s = dashRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SanitizeChannelName is sanitizeName for callers outside the package
// (the /rename command).
func SanitizeChannelName(s string) string { return sanitizeName(s) }

// NewID allocates a ticket identifier, which doubles as the initial
// channel name: <prefix>-<requester>-<categoryShort>-<disambiguator>.
// The uuid fragment keeps IDs unique across all time even for the same
// requester and category.
func NewID(prefix, username string, cat Category) string {
	user := sanitizeName(username)
	if user == "" {
		user = "user"
	}
	return fmt.Sprintf("%s-%s-%s-%s", prefix, user, cat.Info().Short, uuid.NewString()[:8])
}

// IsTicketChannel reports whether a channel name matches the ticket
// naming convention for the given prefix. Reconciliation depends on this
// literal check.
func IsTicketChannel(prefix, name string) bool {
	return strings.HasPrefix(name, prefix+"-")
}

// ChannelTopic renders the descriptive topic for a ticket channel. The
// requester id and category must be recoverable from it by ParseTopic.
func ChannelTopic(userTag, userID string, cat Category) string {
	return fmt.Sprintf("Ticket for %s (%s) - Category: %s", userTag, userID, cat.Info().Label)
}

var topicRe = regexp.MustCompile(`^Ticket for (.+) \((\d+)\) - Category: (.+)$`)
var topicIDRe = regexp.MustCompile(`\((\d+)\) - Category: (.+)$`)

// ParseTopic extracts the requester tag, requester id and category from a
// channel topic written by ChannelTopic. A topic that lost the leading
// "Ticket for" part still yields the id with an empty tag. Returns
// ok=false when the requester id cannot be recovered; an unknown category
// label falls back to general support.
func ParseTopic(topic string) (tag, userID string, cat Category, ok bool) {
	var label string
	if m := topicRe.FindStringSubmatch(topic); m != nil {
		tag, userID, label = m[1], m[2], m[3]
	} else if m := topicIDRe.FindStringSubmatch(topic); m != nil {
		userID, label = m[1], m[2]
	} else {
		return "", "", "", false
	}
	cat, found := CategoryByLabel(strings.TrimSpace(label))
	if !found {
		cat = CategoryGeneral
	}
	return tag, userID, cat, true
}

// TransferName derives the channel name after a category transfer: the
// requester and disambiguator segments of the old name are kept, the
// category token is swapped. Falls back to appending the token when the
// name does not carry the expected shape.
func TransferName(prefix, oldName string, cat Category) string {
	short := cat.Info().Short
	rest := strings.TrimPrefix(oldName, prefix+"-")
	parts := strings.Split(rest, "-")
	if len(parts) >= 3 {
		parts[len(parts)-2] = short
		return prefix + "-" + strings.Join(parts, "-")
	}
	return sanitizeName(oldName + "-" + short)
}
