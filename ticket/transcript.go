package ticket

import (
	"fmt"
	"strings"
)

// RenderTranscript renders a ticket's message log to the plain-text form
// stored in the transcripts table and attached to the audit message.
// Messages must be ordered oldest first.
func RenderTranscript(t *Ticket, msgs []Message) string {
	var sb strings.Builder
	sb.WriteString("=== TICKET TRANSCRIPT ===\n")
	sb.WriteString(fmt.Sprintf("Ticket: %s\n", t.ID))
	sb.WriteString(fmt.Sprintf("Requester: %s\n", t.UserID))
	sb.WriteString(fmt.Sprintf("Category: %s\n\n", t.Category.Info().Label))

	for _, m := range msgs {
		ts := m.Timestamp.UTC().Format("2006-01-02 15:04:05")
		sb.WriteString(fmt.Sprintf("[%s] %s: %s\n", ts, m.Author, m.Content))
		for _, a := range m.Attachments {
			sb.WriteString(fmt.Sprintf("  attachment: %s\n", a))
		}
	}
	return sb.String()
}
