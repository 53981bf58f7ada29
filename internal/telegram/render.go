package telegram

import (
	"context"

	"github.com/spigell/staffing-bot/internal/engine"
	"github.com/spigell/staffing-bot/internal/store"
)

// Renderer maps engine render calls onto Bot API methods.
type Renderer struct {
	client *Client
}

func NewRenderer(client *Client) *Renderer {
	return &Renderer{client: client}
}

func (r *Renderer) Menu(_ context.Context, chatID int64, entries []engine.MenuEntry, emptyLabel string) error {
	return r.client.SendMessage(chatID, engine.MsgMenuPrompt, buildKeyboard(entries, emptyLabel))
}

func (r *Renderer) RefreshMenu(_ context.Context, chatID, messageID int64, entries []engine.MenuEntry, emptyLabel string) error {
	return r.client.EditMessageReplyMarkup(chatID, messageID, buildKeyboard(entries, emptyLabel))
}

func (r *Renderer) Text(_ context.Context, chatID int64, text string) error {
	return r.client.SendMessage(chatID, text, nil)
}

func (r *Renderer) Voice(_ context.Context, chatID int64, ref store.VoiceRef) error {
	if ref.Kind == store.VoiceRemote {
		return r.client.SendVoiceByFileID(chatID, ref.Value)
	}

	return r.client.SendVoiceFromFile(chatID, ref.Value)
}

func (r *Renderer) Notice(_ context.Context, callbackID, text string, alert bool) error {
	return r.client.AnswerCallbackQuery(callbackID, text, alert)
}

// Download implements engine.Downloader.
func (r *Renderer) Download(_ context.Context, fileID, dest string) error {
	return r.client.DownloadFile(fileID, dest)
}

// buildKeyboard arranges vacancy buttons in rows of two. When everything is
// taken a single inert button carries the fallback label.
func buildKeyboard(entries []engine.MenuEntry, emptyLabel string) *InlineKeyboardMarkup {
	if len(entries) == 0 {
		return &InlineKeyboardMarkup{
			InlineKeyboard: [][]InlineKeyboardButton{
				{{Text: emptyLabel, CallbackData: callbackNone}},
			},
		}
	}

	buttons := make([]InlineKeyboardButton, 0, len(entries))
	for _, entry := range entries {
		buttons = append(buttons, InlineKeyboardButton{
			Text:         entry.Title,
			CallbackData: callbackVacancy(entry.ID),
		})
	}

	var rows [][]InlineKeyboardButton
	for len(buttons) > 0 {
		row := buttons
		if len(row) > 2 {
			row = row[:2]
		}
		rows = append(rows, row)
		buttons = buttons[len(row):]
	}

	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}
