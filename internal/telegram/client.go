package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/staffing-bot/internal/logger"
)

const apiURL = "https://api.telegram.org"

// Client is a minimal Telegram Bot API client covering the methods the bot
// needs. No SDK, just the API over a plain http.Client.
type Client struct {
	// ctx used only for http requests right now
	ctx        context.Context
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func New(ctx context.Context, logger *zap.Logger, token string) *Client {
	return &Client{
		ctx:    ctx,
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			// getUpdates long-polls, so leave headroom above the poll timeout.
			Timeout: pollTimeout + 10*time.Second,
		},
		logger: logger,
	}
}

// envelope is the Bot API response wrapper.
type envelope struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      any    `json:"result"`
}

// call makes a request to a Bot API method and decodes result into target.
func (c *Client) call(method string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, c.methodURL(method), nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.parseEnvelope(method, resp, target)
}

// postMultipart sends a method call as multipart form data with one attached
// file field. Used for uploads such as sendVoice with a local clip.
func (c *Client) postMultipart(method string, fields map[string]string, fileField, filePath string, target any) error {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	for key, val := range fields {
		if err := w.WriteField(key, val); err != nil {
			return err
		}
	}

	file, err := os.Open(filePath)
	if err != nil {
		return errors.Wrapf(err, "open upload %s", filePath)
	}
	defer file.Close()

	part, err := w.CreateFormFile(fileField, filepath.Base(filePath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	w.Close()

	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, c.methodURL(method), &b)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.parseEnvelope(method, resp, target)
}

func (c *Client) parseEnvelope(method string, resp *http.Response, target any) error {
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return errors.Wrapf(err, "decode %s response", method)
	}

	if !env.OK {
		return errors.Newf("%s: telegram api error: %s (status %s)", method, env.Description, resp.Status)
	}

	if target == nil {
		return nil
	}

	cfg := &mapstructure.DecoderConfig{
		Result:  target,
		TagName: "mapstructure",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	if err := decoder.Decode(env.Result); err != nil {
		return errors.Wrapf(err, "decode %s result", method)
	}

	return nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", logger.TruncateForLog(req.URL.Path, 80)))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.APIURL, c.token, method)
}

// GetMe identifies the bot; used as a startup connectivity check.
func (c *Client) GetMe() (*User, error) {
	var me User
	if err := c.call("getMe", url.Values{}, &me); err != nil {
		return nil, err
	}

	return &me, nil
}

// GetUpdates long-polls for updates starting at offset.
func (c *Client) GetUpdates(offset int64, timeout time.Duration) ([]Update, error) {
	q := url.Values{}
	q.Set("offset", strconv.FormatInt(offset, 10))
	q.Set("timeout", strconv.Itoa(int(timeout.Seconds())))

	var updates []Update
	if err := c.call("getUpdates", q, &updates); err != nil {
		return nil, err
	}

	return updates, nil
}

// SendMessage sends text to a chat, with an optional inline keyboard.
func (c *Client) SendMessage(chatID int64, text string, markup *InlineKeyboardMarkup) error {
	q := url.Values{}
	q.Set("chat_id", strconv.FormatInt(chatID, 10))
	q.Set("text", text)

	if markup != nil {
		encoded, err := json.Marshal(markup)
		if err != nil {
			return err
		}
		q.Set("reply_markup", string(encoded))
	}

	return c.call("sendMessage", q, nil)
}

// EditMessageReplyMarkup replaces the keyboard of an already sent message.
func (c *Client) EditMessageReplyMarkup(chatID, messageID int64, markup *InlineKeyboardMarkup) error {
	encoded, err := json.Marshal(markup)
	if err != nil {
		return err
	}

	q := url.Values{}
	q.Set("chat_id", strconv.FormatInt(chatID, 10))
	q.Set("message_id", strconv.FormatInt(messageID, 10))
	q.Set("reply_markup", string(encoded))

	return c.call("editMessageReplyMarkup", q, nil)
}

// AnswerCallbackQuery acks a button press. Empty text is a silent ack.
func (c *Client) AnswerCallbackQuery(callbackID, text string, alert bool) error {
	q := url.Values{}
	q.Set("callback_query_id", callbackID)
	if text != "" {
		q.Set("text", text)
	}
	if alert {
		q.Set("show_alert", "true")
	}

	return c.call("answerCallbackQuery", q, nil)
}

// SendVoiceByFileID resends a clip the API already holds.
func (c *Client) SendVoiceByFileID(chatID int64, fileID string) error {
	q := url.Values{}
	q.Set("chat_id", strconv.FormatInt(chatID, 10))
	q.Set("voice", fileID)

	return c.call("sendVoice", q, nil)
}

// SendVoiceFromFile uploads a local clip.
func (c *Client) SendVoiceFromFile(chatID int64, path string) error {
	fields := map[string]string{
		"chat_id": strconv.FormatInt(chatID, 10),
	}

	return c.postMultipart("sendVoice", fields, "voice", path, nil)
}

// DownloadFile fetches a file the user sent to the bot into dest.
func (c *Client) DownloadFile(fileID, dest string) error {
	q := url.Values{}
	q.Set("file_id", fileID)

	var file File
	if err := c.call("getFile", q, &file); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet,
		fmt.Sprintf("%s/file/bot%s/%s", c.APIURL, c.token, file.FilePath), nil)
	if err != nil {
		return err
	}

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf("download %s: bad status: %s", file.FilePath, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return errors.Wrapf(err, "write %s", dest)
	}

	return nil
}
