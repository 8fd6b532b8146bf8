package bot

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"ticket-bot/ticket"
)

// ChannelProvider implements ticket.Provider against a discordgo session
// for one guild. Ticket channels are created under ParentID when set.
type ChannelProvider struct {
	Session  *discordgo.Session
	GuildID  string
	ParentID string
}

var _ ticket.Provider = (*ChannelProvider)(nil)

func accessPerms(a ticket.Access) int64 {
	var p int64
	if a&ticket.AccessView != 0 {
		p |= discordgo.PermissionViewChannel
	}
	if a&ticket.AccessPost != 0 {
		p |= discordgo.PermissionSendMessages | discordgo.PermissionAttachFiles
	}
	if a&ticket.AccessHistory != 0 {
		p |= discordgo.PermissionReadMessageHistory
	}
	if a&ticket.AccessManage != 0 {
		p |= discordgo.PermissionManageMessages
	}
	return p
}

func (p *ChannelProvider) CreateChannel(name, topic string, overwrites []ticket.Overwrite) (string, error) {
	perms := []*discordgo.PermissionOverwrite{
		{ID: p.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
	}
	for _, ow := range overwrites {
		kind := discordgo.PermissionOverwriteTypeMember
		if ow.Role {
			kind = discordgo.PermissionOverwriteTypeRole
		}
		perms = append(perms, &discordgo.PermissionOverwrite{
			ID:    ow.Principal,
			Type:  kind,
			Allow: accessPerms(ow.Allow),
			Deny:  accessPerms(ow.Deny),
		})
	}

	ch, err := p.Session.GuildChannelCreateComplex(p.GuildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                topic,
		ParentID:             p.ParentID,
		PermissionOverwrites: perms,
	})
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (p *ChannelProvider) RenameChannel(ref, name string) error {
	_, err := p.Session.ChannelEdit(ref, &discordgo.ChannelEdit{Name: name})
	return err
}

func (p *ChannelProvider) SetTopic(ref, topic string) error {
	_, err := p.Session.ChannelEdit(ref, &discordgo.ChannelEdit{Topic: topic})
	return err
}

func (p *ChannelProvider) DeleteChannel(ref string) error {
	_, err := p.Session.ChannelDelete(ref)
	return err
}

func (p *ChannelProvider) EditPermission(ref, principal string, allow ticket.Access) error {
	return p.Session.ChannelPermissionSet(ref, principal,
		discordgo.PermissionOverwriteTypeMember, accessPerms(allow), 0)
}

func (p *ChannelProvider) RemovePermission(ref, principal string) error {
	return p.Session.ChannelPermissionDelete(ref, principal)
}

func (p *ChannelProvider) RecentMessages(ref string, limit int) ([]ticket.Message, error) {
	msgs, err := p.Session.ChannelMessages(ref, limit, "", "", "")
	if err != nil {
		return nil, err
	}
	// discord returns newest first; the transcript wants oldest first.
	out := make([]ticket.Message, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		tm := ticket.Message{
			ID:        m.ID,
			AuthorID:  m.Author.ID,
			Author:    m.Author.Username,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
		for _, a := range m.Attachments {
			tm.Attachments = append(tm.Attachments, a.URL)
		}
		out = append(out, tm)
	}
	return out, nil
}

func (p *ChannelProvider) SendMessage(ref, content string) error {
	_, err := p.Session.ChannelMessageSend(ref, content)
	return err
}

func (p *ChannelProvider) Channel(ref string) (*ticket.Channel, error) {
	ch, err := p.Session.Channel(ref)
	if err != nil {
		if restErr, ok := err.(*discordgo.RESTError); ok && restErr.Response != nil && restErr.Response.StatusCode == 404 {
			return nil, nil
		}
		return nil, err
	}
	return &ticket.Channel{ID: ch.ID, Name: ch.Name, Topic: ch.Topic}, nil
}

func (p *ChannelProvider) ListChannels() ([]ticket.Channel, error) {
	chans, err := p.Session.GuildChannels(p.GuildID)
	if err != nil {
		return nil, err
	}
	out := make([]ticket.Channel, 0, len(chans))
	for _, ch := range chans {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		out = append(out, ticket.Channel{ID: ch.ID, Name: strings.ToLower(ch.Name), Topic: ch.Topic})
	}
	return out, nil
}
