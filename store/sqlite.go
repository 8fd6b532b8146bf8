package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"ticket-bot/ticket"
)

type SQLiteStore struct {
	Path string
	db   *sql.DB
}

func (s *SQLiteStore) Init() error {
	_ = os.MkdirAll(filepath.Dir(s.Path), 0755)

	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return fmt.Errorf("sqlite open: %w", err)
	}
	s.db = db

	schema := `
	CREATE TABLE IF NOT EXISTS tickets (
		id          TEXT PRIMARY KEY,
		channel_id  TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		category    TEXT NOT NULL,
		claimed_by  TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'open',
		version     INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		closed_at   TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_channel ON tickets(channel_id);
	CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);

	CREATE TABLE IF NOT EXISTS ticket_panels (
		guild_id    TEXT PRIMARY KEY,
		channel_id  TEXT NOT NULL,
		message_id  TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transcripts (
		ticket_id   TEXT PRIMARY KEY,
		content     TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS feedback (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		ticket_id   TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		rating      INTEGER,
		comment     TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const ticketCols = "id, channel_id, user_id, category, claimed_by, status, version, created_at, closed_at"

func (s *SQLiteStore) Insert(t ticket.Ticket) error {
	_, err := s.db.Exec(
		"INSERT INTO tickets ("+ticketCols+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		t.ID, t.ChannelID, t.UserID, string(t.Category), t.ClaimedBy, string(t.Status),
		t.Version, t.CreatedAt.UTC().Format(time.RFC3339), nullTime(t.ClosedAt),
	)
	return err
}

func (s *SQLiteStore) GetOpenByChannel(channelID string) (*ticket.Ticket, error) {
	return s.getOne("SELECT "+ticketCols+" FROM tickets WHERE channel_id = ? AND status = 'open'", channelID)
}

func (s *SQLiteStore) GetAnyByChannel(channelID string) (*ticket.Ticket, error) {
	return s.getOne("SELECT "+ticketCols+" FROM tickets WHERE channel_id = ? ORDER BY created_at DESC LIMIT 1", channelID)
}

func (s *SQLiteStore) GetByID(id string) (*ticket.Ticket, error) {
	return s.getOne("SELECT "+ticketCols+" FROM tickets WHERE id = ?", id)
}

func (s *SQLiteStore) GetOpenByUser(userID string) (*ticket.Ticket, error) {
	return s.getOne("SELECT "+ticketCols+" FROM tickets WHERE user_id = ? AND status = 'open' LIMIT 1", userID)
}

func (s *SQLiteStore) ListOpen() ([]ticket.Ticket, error) {
	rows, err := s.db.Query("SELECT " + ticketCols + " FROM tickets WHERE status = 'open' ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ticket.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SetClaimedBy(channelID, userID string) (bool, error) {
	return s.cond(
		"UPDATE tickets SET claimed_by = ?, version = version + 1 WHERE channel_id = ? AND status = 'open' AND claimed_by = ''",
		userID, channelID,
	)
}

func (s *SQLiteStore) SetCategory(channelID string, cat ticket.Category) (bool, error) {
	return s.cond(
		"UPDATE tickets SET category = ?, version = version + 1 WHERE channel_id = ? AND status = 'open'",
		string(cat), channelID,
	)
}

func (s *SQLiteStore) CloseTicket(channelID string) (bool, error) {
	return s.cond(
		"UPDATE tickets SET status = 'closed', closed_at = ?, version = version + 1 WHERE channel_id = ? AND status = 'open'",
		time.Now().UTC().Format(time.RFC3339), channelID,
	)
}

func (s *SQLiteStore) CloseTicketByID(id string) (bool, error) {
	return s.cond(
		"UPDATE tickets SET status = 'closed', closed_at = ?, version = version + 1 WHERE id = ? AND status = 'open'",
		time.Now().UTC().Format(time.RFC3339), id,
	)
}

func (s *SQLiteStore) ReopenTicket(channelID string) (bool, error) {
	return s.cond(
		"UPDATE tickets SET status = 'open', claimed_by = '', closed_at = NULL, version = version + 1 WHERE channel_id = ? AND status = 'closed'",
		channelID,
	)
}

func (s *SQLiteStore) RepointChannel(id, newChannelID string) (bool, error) {
	return s.cond(
		"UPDATE tickets SET channel_id = ?, version = version + 1 WHERE id = ?",
		newChannelID, id,
	)
}

func (s *SQLiteStore) SavePanel(p ticket.Panel) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO ticket_panels (guild_id, channel_id, message_id, created_at) VALUES (?, ?, ?, ?)",
		p.GuildID, p.ChannelID, p.MessageID, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *SQLiteStore) GetPanel(guildID string) (*ticket.Panel, error) {
	var p ticket.Panel
	err := s.db.QueryRow(
		"SELECT guild_id, channel_id, message_id FROM ticket_panels WHERE guild_id = ?", guildID,
	).Scan(&p.GuildID, &p.ChannelID, &p.MessageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) SaveTranscript(ticketID, content string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO transcripts (ticket_id, content, created_at) VALUES (?, ?, ?)",
		ticketID, content, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *SQLiteStore) SaveFeedback(f ticket.Feedback) error {
	var rating any
	if f.Rating > 0 {
		rating = f.Rating
	}
	_, err := s.db.Exec(
		"INSERT INTO feedback (ticket_id, user_id, rating, comment, created_at) VALUES (?, ?, ?, ?, ?)",
		f.TicketID, f.UserID, rating, f.Comment, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *SQLiteStore) cond(query string, args ...any) (bool, error) {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) getOne(query string, args ...any) (*ticket.Ticket, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanTicket(rows)
}

func scanTicket(rows *sql.Rows) (*ticket.Ticket, error) {
	var t ticket.Ticket
	var category, status, createdAt string
	var closedAt sql.NullString
	if err := rows.Scan(&t.ID, &t.ChannelID, &t.UserID, &category, &t.ClaimedBy,
		&status, &t.Version, &createdAt, &closedAt); err != nil {
		return nil, err
	}
	t.Category = ticket.Category(category)
	t.Status = ticket.Status(status)
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		t.CreatedAt = ts
	}
	if closedAt.Valid {
		if ts, err := time.Parse(time.RFC3339, closedAt.String); err == nil {
			t.ClosedAt = ts
		}
	}
	return &t, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
