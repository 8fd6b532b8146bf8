package ticket

import (
	"errors"
	"fmt"
	"sync"
)

// memStore is an in-memory Store with the same conditional-update
// semantics as the real drivers.
type memStore struct {
	mu      sync.Mutex
	tickets map[string]*Ticket // keyed by id
	panels  map[string]Panel
	scripts map[string]string
	ratings []Feedback

	failInsert bool
}

func newMemStore() *memStore {
	return &memStore{
		tickets: make(map[string]*Ticket),
		panels:  make(map[string]Panel),
		scripts: make(map[string]string),
	}
}

func (s *memStore) Insert(t Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert {
		return errors.New("insert refused")
	}
	if _, ok := s.tickets[t.ID]; ok {
		return fmt.Errorf("duplicate id %s", t.ID)
	}
	if t.Version == 0 {
		t.Version = 1
	}
	s.tickets[t.ID] = &t
	return nil
}

func (s *memStore) GetOpenByChannel(channelID string) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.ChannelID == channelID && t.Status == StatusOpen {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetAnyByChannel(channelID string) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *Ticket
	for _, t := range s.tickets {
		if t.ChannelID != channelID {
			continue
		}
		if found == nil || t.Status == StatusOpen {
			cp := *t
			found = &cp
		}
	}
	return found, nil
}

func (s *memStore) GetByID(id string) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickets[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) GetOpenByUser(userID string) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.UserID == userID && t.Status == StatusOpen {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListOpen() ([]Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Ticket
	for _, t := range s.tickets {
		if t.Status == StatusOpen {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *memStore) SetClaimedBy(channelID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.ChannelID == channelID && t.Status == StatusOpen && t.ClaimedBy == "" {
			t.ClaimedBy = userID
			t.Version++
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) SetCategory(channelID string, cat Category) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.ChannelID == channelID && t.Status == StatusOpen {
			t.Category = cat
			t.Version++
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CloseTicket(channelID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.ChannelID == channelID && t.Status == StatusOpen {
			t.Status = StatusClosed
			t.Version++
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CloseTicketByID(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickets[id]; ok && t.Status == StatusOpen {
		t.Status = StatusClosed
		t.Version++
		return true, nil
	}
	return false, nil
}

func (s *memStore) ReopenTicket(channelID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.ChannelID == channelID && t.Status == StatusClosed {
			t.Status = StatusOpen
			t.ClaimedBy = ""
			t.Version++
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) RepointChannel(id, newChannelID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickets[id]; ok {
		t.ChannelID = newChannelID
		t.Version++
		return true, nil
	}
	return false, nil
}

func (s *memStore) SavePanel(p Panel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panels[p.GuildID] = p
	return nil
}

func (s *memStore) GetPanel(guildID string) (*Panel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.panels[guildID]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *memStore) SaveTranscript(ticketID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[ticketID] = content
	return nil
}

func (s *memStore) SaveFeedback(f Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings = append(s.ratings, f)
	return nil
}

func (s *memStore) ticket(id string) *Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickets[id]; ok {
		cp := *t
		return &cp
	}
	return nil
}

// memProvider fakes the channel host. Channel ids are "ch<N>".
type memProvider struct {
	mu       sync.Mutex
	nextID   int
	channels map[string]*Channel
	perms    map[string]map[string]Access // channel -> principal -> allow
	denies   map[string]map[string]Access // channel -> principal -> deny
	messages map[string][]Message
	deleted  []string

	failCreate   bool
	failMessages bool
}

func newMemProvider() *memProvider {
	return &memProvider{
		channels: make(map[string]*Channel),
		perms:    make(map[string]map[string]Access),
		denies:   make(map[string]map[string]Access),
		messages: make(map[string][]Message),
	}
}

func (p *memProvider) addChannel(id, name, topic string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels[id] = &Channel{ID: id, Name: name, Topic: topic}
}

func (p *memProvider) CreateChannel(name, topic string, overwrites []Overwrite) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failCreate {
		return "", errors.New("create refused")
	}
	p.nextID++
	id := fmt.Sprintf("ch%d", p.nextID)
	p.channels[id] = &Channel{ID: id, Name: name, Topic: topic}
	grants := make(map[string]Access, len(overwrites))
	blocks := make(map[string]Access, len(overwrites))
	for _, ow := range overwrites {
		grants[ow.Principal] = ow.Allow
		blocks[ow.Principal] = ow.Deny
	}
	p.perms[id] = grants
	p.denies[id] = blocks
	return id, nil
}

func (p *memProvider) RenameChannel(ref, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.channels[ref]
	if !ok {
		return errors.New("no such channel")
	}
	ch.Name = name
	return nil
}

func (p *memProvider) SetTopic(ref, topic string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.channels[ref]
	if !ok {
		return errors.New("no such channel")
	}
	ch.Topic = topic
	return nil
}

func (p *memProvider) DeleteChannel(ref string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.channels[ref]; !ok {
		return errors.New("no such channel")
	}
	delete(p.channels, ref)
	p.deleted = append(p.deleted, ref)
	return nil
}

func (p *memProvider) EditPermission(ref, principal string, allow Access) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.channels[ref]; !ok {
		return errors.New("no such channel")
	}
	if p.perms[ref] == nil {
		p.perms[ref] = make(map[string]Access)
	}
	p.perms[ref][principal] = allow
	return nil
}

func (p *memProvider) RemovePermission(ref, principal string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.perms[ref], principal)
	return nil
}

func (p *memProvider) RecentMessages(ref string, limit int) ([]Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failMessages {
		return nil, errors.New("history unavailable")
	}
	msgs := p.messages[ref]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (p *memProvider) SendMessage(ref, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[ref] = append(p.messages[ref], Message{Content: content})
	return nil
}

func (p *memProvider) Channel(ref string) (*Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ch, ok := p.channels[ref]; ok {
		cp := *ch
		return &cp, nil
	}
	return nil, nil
}

func (p *memProvider) ListChannels() ([]Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Channel, 0, len(p.channels))
	for _, ch := range p.channels {
		out = append(out, *ch)
	}
	return out, nil
}

func (p *memProvider) allow(ref, principal string) Access {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.perms[ref][principal]
}

func (p *memProvider) deny(ref, principal string) Access {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.denies[ref][principal]
}

func (p *memProvider) wasDeleted(ref string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range p.deleted {
		if d == ref {
			return true
		}
	}
	return false
}
