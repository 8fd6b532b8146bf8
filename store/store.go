// Package store persists tickets, panels, transcripts and feedback.
// Two drivers are available, selected by config: SQLite for single-host
// deployments and MongoDB for shared ones.
package store

import (
	"fmt"

	"ticket-bot/config"
	"ticket-bot/ticket"
)

// Store extends the core persistence contract with lifecycle management
// of the backing connection.
type Store interface {
	ticket.Store
	Init() error
	Close() error
}

func Open(cfg *config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		s := &SQLiteStore{Path: cfg.SQLite.Path}
		if err := s.Init(); err != nil {
			return nil, err
		}
		return s, nil

	case "mongodb":
		s := &MongoStore{URI: cfg.MongoDB.URI, DBName: cfg.MongoDB.Database}
		if err := s.Init(); err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %s (use \"sqlite\" or \"mongodb\")", cfg.Driver)
	}
}
