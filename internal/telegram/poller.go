package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/staffing-bot/internal/engine"
)

const (
	pollTimeout   = 30 * time.Second
	retryInterval = 5 * time.Second

	callbackNone          = "none"
	callbackVacancyPrefix = "vac_"
)

func callbackVacancy(id int64) string {
	return fmt.Sprintf("%s%d", callbackVacancyPrefix, id)
}

// Poller long-polls getUpdates and feeds the engine. Each update is handled
// on its own goroutine: users race each other only inside the store.
type Poller struct {
	client *Client
	engine *engine.Engine
	logger *zap.Logger
}

func NewPoller(client *Client, eng *engine.Engine, logger *zap.Logger) *Poller {
	return &Poller{client: client, engine: eng, logger: logger}
}

// Run polls until the context is cancelled. Poll failures are logged and
// retried after a context-aware wait.
func (p *Poller) Run(ctx context.Context) error {
	var offset int64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		updates, err := p.client.GetUpdates(offset, pollTimeout)
		if err != nil {
			p.logger.Warn("getting updates", zap.Error(err))
			if err := waitFor(ctx, retryInterval); err != nil {
				return err
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}

			go p.handle(ctx, update)
		}
	}
}

func (p *Poller) handle(ctx context.Context, update Update) {
	var err error

	switch {
	case update.CallbackQuery != nil:
		err = p.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		err = p.handleMessage(ctx, update.Message)
	}

	if err != nil {
		p.logger.Error("handling update",
			zap.Int64("update_id", update.UpdateID),
			zap.Error(err),
		)
	}
}

func (p *Poller) handleCallback(ctx context.Context, cb *CallbackQuery) error {
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}

	if cb.Data == callbackNone {
		// The all-taken placeholder button. Just ack.
		return p.client.AnswerCallbackQuery(cb.ID, "", false)
	}

	raw, ok := strings.CutPrefix(cb.Data, callbackVacancyPrefix)
	if !ok {
		return nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}

	return p.engine.HandleSelect(ctx, engine.SelectVacancy{
		UserID:     cb.From.ID,
		ChatID:     cb.Message.Chat.ID,
		MessageID:  cb.Message.MessageID,
		CallbackID: cb.ID,
		VacancyID:  id,
	})
}

func (p *Poller) handleMessage(ctx context.Context, msg *Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}

	userID := msg.From.ID
	chatID := msg.Chat.ID

	switch {
	case msg.Voice != nil:
		return p.engine.HandleVoice(ctx, engine.VoiceUploaded{
			UserID: userID, ChatID: chatID, FileID: msg.Voice.FileID,
		})
	case msg.Audio != nil:
		return p.engine.HandleFile(ctx, engine.FileUploaded{
			UserID: userID, ChatID: chatID,
			FileID: msg.Audio.FileID, Filename: msg.Audio.FileName,
		})
	case msg.Document != nil:
		return p.engine.HandleFile(ctx, engine.FileUploaded{
			UserID: userID, ChatID: chatID,
			FileID: msg.Document.FileID, Filename: msg.Document.FileName,
		})
	case strings.HasPrefix(msg.Text, "/"):
		return p.handleCommand(ctx, userID, chatID, msg.Text)
	}

	return nil
}

func (p *Poller) handleCommand(ctx context.Context, userID, chatID int64, text string) error {
	fields := strings.Fields(text)
	name := strings.TrimPrefix(fields[0], "/")

	// Commands may arrive as /start@botname in groups.
	name, _, _ = strings.Cut(name, "@")

	switch name {
	case "start":
		return p.engine.HandleStart(ctx, engine.Start{UserID: userID, ChatID: chatID})
	case "setvoice", "reset":
		return p.engine.HandleAdminCommand(ctx, engine.AdminCommand{
			UserID: userID, ChatID: chatID,
			Name: name, Args: fields[1:],
		})
	}

	return nil
}

// waitFor sleeps for d unless the context finishes first.
func waitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
