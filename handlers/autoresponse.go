package handlers

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// handleMessage replies to configured keywords inside open ticket
// channels. A small expiring cache keeps one keyword from firing over
// and over for the same author in the same channel.
func (h *Handler) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if len(h.cfg.Tickets.AutoResponses) == 0 {
		return
	}

	t, err := h.store.GetOpenByChannel(m.ChannelID)
	if err != nil || t == nil {
		return
	}

	content := strings.ToLower(m.Content)
	for _, ar := range h.cfg.Tickets.AutoResponses {
		kw := strings.ToLower(ar.Keyword)
		if kw == "" || !strings.Contains(content, kw) {
			continue
		}
		key := m.ChannelID + "|" + m.Author.ID + "|" + kw
		if _, seen := h.dedup.Get(key); seen {
			continue
		}
		h.dedup.Add(key, struct{}{})
		if _, err := s.ChannelMessageSendReply(m.ChannelID, ar.Reply, m.Reference()); err != nil {
			h.log.Warnw("send auto response", "channel", m.ChannelID, "keyword", kw, "error", err)
		}
	}
}
