package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/staffing-bot/internal/engine"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(context.Background(), zap.NewNop(), "TEST_TOKEN")
	client.APIURL = server.URL

	return client
}

func TestGetUpdatesDecoding(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTEST_TOKEN/getUpdates" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("offset"); got != "7" {
			t.Errorf("unexpected offset: %s", got)
		}

		fmt.Fprint(w, `{
			"ok": true,
			"result": [
				{
					"update_id": 7,
					"message": {
						"message_id": 1,
						"from": {"id": 100, "first_name": "U"},
						"chat": {"id": 100},
						"text": "/start"
					}
				},
				{
					"update_id": 8,
					"callback_query": {
						"id": "cb1",
						"from": {"id": 200},
						"data": "vac_2",
						"message": {"message_id": 5, "chat": {"id": 200}}
					}
				}
			]
		}`)
	})

	updates, err := client.GetUpdates(7, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}

	msg := updates[0].Message
	if msg == nil || msg.From.ID != 100 || msg.Text != "/start" {
		t.Fatalf("unexpected message update: %+v", updates[0])
	}

	cb := updates[1].CallbackQuery
	if cb == nil || cb.Data != "vac_2" || cb.Message.MessageID != 5 {
		t.Fatalf("unexpected callback update: %+v", updates[1])
	}
}

func TestAPIErrorIsSurfaced(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"ok": false, "description": "Unauthorized"}`)
	})

	_, err := client.GetMe()
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := err.Error(); !strings.Contains(got, "Unauthorized") {
		t.Fatalf("expected the api description in the error, got %q", got)
	}
}

func TestSendMessageWithKeyboard(t *testing.T) {
	var markup string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		markup = r.URL.Query().Get("reply_markup")
		fmt.Fprint(w, `{"ok": true, "result": {}}`)
	})

	keyboard := buildKeyboard(nil, "nothing left")
	if err := client.SendMessage(42, "menu", keyboard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded InlineKeyboardMarkup
	if err := json.Unmarshal([]byte(markup), &decoded); err != nil {
		t.Fatalf("reply_markup is not valid json: %v", err)
	}
	if len(decoded.InlineKeyboard) != 1 || decoded.InlineKeyboard[0][0].Text != "nothing left" {
		t.Fatalf("unexpected keyboard: %+v", decoded)
	}
	if decoded.InlineKeyboard[0][0].CallbackData != callbackNone {
		t.Fatalf("placeholder button must be inert: %+v", decoded)
	}
}

func TestDownloadFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTEST_TOKEN/getFile":
			fmt.Fprint(w, `{"ok": true, "result": {"file_id": "f1", "file_path": "voice/file_1.oga"}}`)
		case "/file/botTEST_TOKEN/voice/file_1.oga":
			fmt.Fprint(w, "OggS payload")
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	dest := filepath.Join(t.TempDir(), "voices", "voice1.ogg")
	if err := client.DownloadFile("f1", dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("downloaded file missing: %v", err)
	}
	if string(data) != "OggS payload" {
		t.Fatalf("unexpected contents: %q", data)
	}
}

func TestBuildKeyboardRowsOfTwo(t *testing.T) {
	entries := []engine.MenuEntry{
		{ID: 1, Title: "Вакансия 1"},
		{ID: 2, Title: "Вакансия 2"},
		{ID: 3, Title: "Вакансия 3"},
	}

	keyboard := buildKeyboard(entries, "")

	if len(keyboard.InlineKeyboard) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(keyboard.InlineKeyboard))
	}
	if len(keyboard.InlineKeyboard[0]) != 2 || len(keyboard.InlineKeyboard[1]) != 1 {
		t.Fatalf("unexpected row layout: %+v", keyboard.InlineKeyboard)
	}
	if got := keyboard.InlineKeyboard[1][0].CallbackData; got != "vac_3" {
		t.Fatalf("unexpected callback data: %s", got)
	}
}
