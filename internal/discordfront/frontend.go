// Package discordfront provides the optional Discord chat front end. It
// owns the discordgo.Session lifecycle and maps each Discord author to
// one scheduling conversation, so a user can book, query, and cancel
// appointments by messaging the bot.
package discordfront

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/tailortalk/tailortalk/internal/httpapi"
)

// turnTimeout bounds a single Discord-driven turn.
const turnTimeout = 30 * time.Second

// sessionPrefix namespaces Discord-derived session IDs so they cannot
// collide with HTTP session IDs in a shared store.
const sessionPrefix = "discord-"

// Config holds the Discord front end configuration.
type Config struct {
	// Token is the Discord bot token.
	Token string

	// ChannelID restricts the bot to one channel. Empty means the bot
	// answers in any channel it can read.
	ChannelID string
}

// Frontend owns the Discord gateway connection and forwards user
// messages to the chat surface.
type Frontend struct {
	chat      httpapi.Chat
	channelID string
	log       *slog.Logger

	session   *discordgo.Session
	closeOnce sync.Once
}

// Option configures a [Frontend].
type Option func(*Frontend)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(f *Frontend) { f.log = log }
}

// New creates a Frontend, connects to Discord, and registers the
// message handler. Close the returned Frontend to disconnect.
func New(cfg Config, chat httpapi.Chat, opts ...Option) (*Frontend, error) {
	f := &Frontend{
		chat:      chat,
		channelID: cfg.ChannelID,
	}
	for _, o := range opts {
		o(f)
	}
	if f.log == nil {
		f.log = slog.Default()
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discordfront: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		reply, ok := f.respond(context.Background(), m.Author.ID, m.Author.Bot, m.ChannelID, m.Content)
		if !ok {
			return
		}
		if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
			f.log.Warn("discord send failed", "channel_id", m.ChannelID, "err", err)
		}
	})

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discordfront: open session: %w", err)
	}
	f.session = session

	f.log.Info("discord front end connected", "channel_id", cfg.ChannelID)
	return f, nil
}

// respond runs one turn for a Discord message and returns the reply
// text. ok is false when the message should be ignored (bot authors,
// foreign channels, empty content).
func (f *Frontend) respond(ctx context.Context, authorID string, authorIsBot bool, channelID, content string) (reply string, ok bool) {
	if authorIsBot {
		return "", false
	}
	if f.channelID != "" && channelID != f.channelID {
		return "", false
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", false
	}

	sessionID := sessionPrefix + authorID

	if strings.EqualFold(content, "!reset") {
		if err := f.chat.EndSession(ctx, sessionID); err != nil {
			f.log.Warn("discord session reset failed", "session_id", sessionID, "err", err)
			return "Sorry, I couldn't reset our conversation. Please try again.", true
		}
		return "Okay, starting fresh. What can I book for you?", true
	}

	ctx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	r, err := f.chat.Turn(ctx, sessionID, content)
	if err != nil {
		f.log.Error("discord turn failed", "session_id", sessionID, "err", err)
		return "Sorry, something went wrong on my end. Please try again.", true
	}
	return r.Text, true
}

// Close disconnects from Discord. Safe to call more than once.
func (f *Frontend) Close() error {
	var err error
	f.closeOnce.Do(func() {
		if f.session != nil {
			err = f.session.Close()
		}
	})
	if err != nil {
		return fmt.Errorf("discordfront: close session: %w", err)
	}
	return nil
}
