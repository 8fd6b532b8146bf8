package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type Config struct {
	Discord  DiscordConfig  `json:"discord"`
	Database DatabaseConfig `json:"database"`
	Tickets  TicketsConfig  `json:"tickets"`
	Events   EventsConfig   `json:"events"`
	Log      LogConfig      `json:"log"`
}

type DiscordConfig struct {
	GuildID string `json:"guild_id"`
}

type DatabaseConfig struct {
	Driver  string        `json:"driver"`
	SQLite  SQLiteConfig  `json:"sqlite"`
	MongoDB MongoDBConfig `json:"mongodb"`
}

type SQLiteConfig struct {
	Path string `json:"path"`
}

type MongoDBConfig struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
}

type TicketsConfig struct {
	PanelChannel    string `json:"panel_channel"`
	LogChannel      string `json:"log_channel"`
	StaffRole       string `json:"staff_role"`
	DiscordCategory string `json:"discord_category"`
	ChannelPrefix   string `json:"channel_prefix"`

	// TranscriptLimit bounds how many of the most recent messages are
	// archived at close time. Older history is not paginated.
	TranscriptLimit int `json:"transcript_limit"`

	DeleteDelaySeconds    int `json:"delete_delay_seconds"`
	ReconcileEverySeconds int `json:"reconcile_every_seconds"`

	AutoResponses []AutoResponse `json:"auto_responses,omitempty"`
}

type AutoResponse struct {
	Keyword string `json:"keyword"`
	Reply   string `json:"reply"`
}

type EventsConfig struct {
	Enabled  bool   `json:"enabled"`
	AMQPURL  string `json:"amqp_url"`
	Exchange string `json:"exchange"`
}

type LogConfig struct {
	Level string `json:"level"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "data/tickets.db"
	}
	if cfg.Database.MongoDB.Database == "" {
		cfg.Database.MongoDB.Database = "tickets"
	}
	if cfg.Tickets.ChannelPrefix == "" {
		cfg.Tickets.ChannelPrefix = "pcrp"
	}
	if cfg.Tickets.TranscriptLimit <= 0 {
		cfg.Tickets.TranscriptLimit = 100
	}
	if cfg.Tickets.DeleteDelaySeconds <= 0 {
		cfg.Tickets.DeleteDelaySeconds = 5
	}
	if cfg.Tickets.ReconcileEverySeconds <= 0 {
		cfg.Tickets.ReconcileEverySeconds = 300
	}
	if cfg.Events.Exchange == "" {
		cfg.Events.Exchange = "tickets"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return &cfg, nil
}

func (c *TicketsConfig) DeleteDelay() time.Duration {
	return time.Duration(c.DeleteDelaySeconds) * time.Second
}

func (c *TicketsConfig) ReconcileEvery() time.Duration {
	return time.Duration(c.ReconcileEverySeconds) * time.Second
}
