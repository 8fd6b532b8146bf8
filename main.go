package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ticket-bot/bot"
	"ticket-bot/config"
	"ticket-bot/events"
	"ticket-bot/handlers"
	"ticket-bot/lang"
	"ticket-bot/store"
	"ticket-bot/ticket"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	langPath := flag.String("lang", "lang.yaml", "path to the language file")
	cleanup := flag.Bool("cleanup", false, "remove registered slash commands and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, relying on environment variables")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Println("Failed to load config:", err)
		os.Exit(1)
	}

	logger := buildLogger(cfg.Log.Level)
	defer logger.Sync()
	log := logger.Sugar()

	if err := lang.Load(*langPath); err != nil {
		log.Warnw("language file not loaded, using defaults", "path", *langPath, "error", err)
	}

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		log.Fatal("DISCORD_TOKEN is not set")
	}

	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalw("open store", "driver", cfg.Database.Driver, "error", err)
	}
	defer db.Close()

	var pub events.Publisher = events.Nop{}
	if cfg.Events.Enabled {
		amqp, err := events.NewAMQP(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			log.Fatalw("connect event broker", "error", err)
		}
		defer amqp.Close()
		pub = amqp
	}

	b, err := bot.New(token, cfg, log)
	if err != nil {
		log.Fatalw("create session", "error", err)
	}

	provider := &bot.ChannelProvider{
		Session:  b.Session,
		GuildID:  cfg.Discord.GuildID,
		ParentID: cfg.Tickets.DiscordCategory,
	}

	mgr := ticket.NewManager(db, provider, pub, log, ticket.Options{
		Prefix:          cfg.Tickets.ChannelPrefix,
		StaffRole:       cfg.Tickets.StaffRole,
		TranscriptLimit: cfg.Tickets.TranscriptLimit,
		DeleteDelay:     cfg.Tickets.DeleteDelay(),
	})
	rec := ticket.NewReconciler(db, provider, pub, log, cfg.Tickets.ChannelPrefix)
	mgr.SetReconciler(rec)

	h := handlers.New(cfg, log, mgr, db)
	h.Register(b.Session)

	if err := b.Start(); err != nil {
		log.Fatalw("open gateway connection", "error", err)
	}
	defer b.Stop()
	b.WaitReady()

	if *cleanup {
		b.CleanupCommands()
		return
	}

	b.RegisterCommands(handlers.Commands())

	if res, err := rec.Run(); err != nil {
		log.Errorw("startup reconcile", "error", err)
	} else {
		log.Infow("startup reconcile done",
			"reconnected", res.Reconnected, "closed", res.Closed,
			"reopened", res.Reopened, "created", res.Created)
	}
	stopRec := rec.Start(cfg.Tickets.ReconcileEvery())
	defer stopRec()

	if cfg.Tickets.PanelChannel != "" {
		if err := h.PostPanel(b.Session, cfg.Discord.GuildID, cfg.Tickets.PanelChannel); err != nil {
			log.Errorw("post ticket panel", "channel", cfg.Tickets.PanelChannel, "error", err)
		}
	}

	log.Info("Bot is running. Press Ctrl+C to exit.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc
	log.Info("Shutting down")
}

func buildLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if level != "" {
		if parsed, err := zapcore.ParseLevel(level); err == nil {
			lvl = parsed
		}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		fmt.Println("Failed to build logger:", err)
		os.Exit(1)
	}
	return logger
}
