// Package discord connects the dispatcher to Discord direct messages.
package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"ledgerbot/internal/bot"
	"ledgerbot/internal/log"
)

// MaxMessageLength is Discord's limit on one message's content.
const MaxMessageLength = 2000

// Handler answers one chat message.
type Handler interface {
	Handle(ctx context.Context, m bot.Message) (string, bool)
}

type Bot struct {
	session        *discordgo.Session
	handler        Handler
	logger         *log.Logger
	handlerTimeout time.Duration
	baseCtx        context.Context
}

func New(token string, handler Handler, logger *log.Logger) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("missing DISCORD_BOT_TOKEN")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	if logger == nil {
		logger = log.Discard()
	}

	b := &Bot{
		session:        s,
		handler:        handler,
		logger:         logger.WithComponent(log.ComponentDiscord),
		handlerTimeout: 30 * time.Second,
		baseCtx:        context.Background(),
	}
	s.AddHandler(b.onReady)
	s.AddHandler(b.onMessageCreate)
	return b, nil
}

// Run connects to the gateway and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.baseCtx = ctx
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	b.logger.InfoContext(ctx, "Discord bot connected")

	<-ctx.Done()

	b.logger.Info("Closing Discord session", log.FieldOperation, log.OpShutdown)
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("Logged in", "user", r.User.Username, "user_id", r.User.ID)
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	selfID := ""
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	ctx, cancel := context.WithTimeout(b.baseCtx, b.handlerTimeout)
	defer cancel()

	b.process(ctx, selfID, m.Message, func(channelID, text string) error {
		_, err := s.ChannelMessageSend(channelID, text)
		return err
	})
}

// process handles one gateway message. Only direct messages from other
// users are answered.
func (b *Bot) process(ctx context.Context, selfID string, m *discordgo.Message, send func(channelID, text string) error) {
	if m == nil || m.Author == nil || m.Author.ID == selfID || m.Author.Bot {
		return
	}
	if m.GuildID != "" {
		return
	}

	reply, ok := b.handler.Handle(ctx, bot.Message{
		ID:        m.ID,
		AuthorID:  m.Author.ID,
		ChannelID: m.ChannelID,
		Text:      m.Content,
	})
	if !ok {
		return
	}
	for _, chunk := range splitMessage(reply, MaxMessageLength) {
		if err := send(m.ChannelID, chunk); err != nil {
			b.logger.ErrorContext(ctx, "Failed to send reply",
				log.FieldChannelID, m.ChannelID,
				log.FieldMessageID, m.ID,
				log.FieldError, err)
			return
		}
	}
}

// splitMessage cuts text into pieces of at most limit runes, preferring to
// break after a newline.
func splitMessage(text string, limit int) []string {
	var out []string
	for utf8.RuneCountInString(text) > limit {
		cut := byteOffset(text, limit)
		if i := strings.LastIndexByte(text[:cut], '\n'); i > 0 {
			cut = i + 1
		}
		out = append(out, strings.TrimRight(text[:cut], "\n"))
		text = text[cut:]
	}
	if text != "" || len(out) == 0 {
		out = append(out, text)
	}
	return out
}

func byteOffset(s string, runes int) int {
	n := 0
	for i := range s {
		if n == runes {
			return i
		}
		n++
	}
	return len(s)
}
