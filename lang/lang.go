// Package lang holds the user-facing reply strings. Built-in English
// defaults can be overridden per-key from a YAML file.
package lang

import (
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var defaults = map[string]string{
	"not_ticket_channel":   "❌ This command can only be used in ticket channels.",
	"duplicate_ticket":     "❌ You already have an open ticket! Please close your existing ticket before creating a new one.",
	"ticket_created":       "✅ Your ticket has been created! Please check <#{channel}>",
	"ticket_create_failed": "❌ Failed to create ticket. Please try again or contact an administrator.",
	"invalid_category":     "❌ Unknown ticket category.",
	"no_permission_claim":  "❌ You do not have permission to claim tickets.",
	"already_claimed":      "❌ This ticket is already claimed by <@{user}>.",
	"claimed":              "✅ <@{user}> has claimed this ticket!",
	"no_permission_close":  "❌ You do not have permission to close this ticket.",
	"closing":              "🔒 Closing ticket and saving transcript...",
	"close_failed":         "❌ An error occurred while closing the ticket.",
	"transferred":          "🔄 This ticket has been moved to **{category}** by <@{user}>.",
	"transfer_prompt":      "🔄 **Transfer Ticket**\n\nSelect the new category for this ticket:",
	"user_added":           "✅ <@{user}> has been added to this ticket.",
	"user_removed":         "✅ <@{user}> has been removed from this ticket.",
	"renamed":              "✅ Ticket channel renamed from `{old}` to `{new}`.",
	"invalid_name":         "❌ Please provide a valid name for the channel.",
	"admin_notified":       "✅ <@{user}> has been notified about this ticket.",
	"setup_done":           "✅ Ticket system has been successfully set up in this channel!",
	"setup_failed":         "❌ Failed to set up ticket system. Please try again.",
	"feedback_thanks":      "✅ Thank you for your feedback!",
	"feedback_invalid":     "❌ Rating must be a number from 1 to 5.",
	"interaction_error":    "There was an error while executing this interaction!",
	"generic_error":        "❌ Something went wrong. Please try again.",
}

var (
	mu       sync.RWMutex
	messages = defaults
)

// Load overlays the defaults with translations from a YAML file. Missing
// file or keys are fine; defaults stay in place.
func Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}

	m := make(map[string]string, len(defaults)+len(raw))
	for k, v := range defaults {
		m[k] = v
	}
	for k, v := range raw {
		m[k] = v
	}

	mu.Lock()
	messages = m
	mu.Unlock()
	return nil
}

// T resolves a message key, substituting {name} placeholders from pairs.
func T(key string, pairs ...string) string {
	mu.RLock()
	s, ok := messages[key]
	mu.RUnlock()

	if !ok {
		return "{" + key + "}"
	}
	for j := 0; j+1 < len(pairs); j += 2 {
		s = strings.ReplaceAll(s, "{"+pairs[j]+"}", pairs[j+1])
	}
	return s
}
