package bot

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"ticket-bot/config"
)

type Bot struct {
	Session *discordgo.Session
	Config  *config.Config
	log     *zap.SugaredLogger
	ready   chan struct{}
}

func New(token string, cfg *config.Config, log *zap.SugaredLogger) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent
	return &Bot{
		Session: s,
		Config:  cfg,
		log:     log,
		ready:   make(chan struct{}),
	}, nil
}

func (b *Bot) Start() error {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.Infow("bot online", "user", r.User.Username)
		select {
		case <-b.ready:
		default:
			close(b.ready)
		}
	})
	return b.Session.Open()
}

func (b *Bot) Stop() {
	_ = b.Session.Close()
}

// WaitReady blocks until the gateway session reported ready.
func (b *Bot) WaitReady() { <-b.ready }

func (b *Bot) RegisterCommands(cmds []*discordgo.ApplicationCommand) []*discordgo.ApplicationCommand {
	<-b.ready

	appID := b.Session.State.User.ID
	guildID := b.Config.Discord.GuildID

	registered, err := b.Session.ApplicationCommandBulkOverwrite(appID, guildID, cmds)
	if err != nil {
		b.log.Errorw("bulk-overwrite commands", "error", err)
		return nil
	}
	b.log.Infow("registered slash commands", "count", len(registered))
	return registered
}

func (b *Bot) CleanupCommands() {
	<-b.ready
	appID := b.Session.State.User.ID
	guildID := b.Config.Discord.GuildID
	if _, err := b.Session.ApplicationCommandBulkOverwrite(appID, guildID, []*discordgo.ApplicationCommand{}); err != nil {
		b.log.Errorw("clean up commands", "error", err)
		return
	}
	b.log.Info("cleaned up all slash commands")
}
