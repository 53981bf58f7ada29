// Package engine holds the reservation workflow: it interprets transport
// events against the vacancy store, advances per-user sessions and drives a
// Renderer with the results. It is transport-agnostic; the Telegram side
// only translates updates in and render calls out.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/spigell/staffing-bot/internal/session"
	"github.com/spigell/staffing-bot/internal/store"
)

// User-facing strings, kept exactly as the bot always spoke them.
const (
	MsgMenuPrompt    = "Вы сотрудник кадрового агентства, выбирете вакансию"
	MsgAllTaken      = "Все вакансии заняты"
	MsgGreeting      = "Добрый день! В агентство поступил запрос от компании-работодателя"
	MsgResumePrompt  = "Вы можете загрузить резюме"
	MsgAccepted      = "Ответ работодателя: Спасибо большое! Вы отличная команда! Ваш кандидат принят на работу!"
	MsgUnavailable   = "К сожалению, вакансия уже недоступна"
	MsgUnauthorized  = "Эта команда доступна только администраторам"
	MsgSetVoiceUsage = "Укажите номер вакансии, например: /setvoice 2"
	MsgVoicePrompt   = "Отправьте голосовое сообщение или аудиофайл для вакансии %d"
	MsgVoiceRetry    = "Пришлите голосовое сообщение или аудиофайл (.ogg, .oga, .mp3)"
	MsgVoiceSaved    = "Голосовое сообщение для вакансии %d обновлено"
	MsgResetDone     = "Все вакансии снова доступны"
	MsgVoiceMissing  = "(Отсутствует голосовое сообщение для %s — файл %s не найден)"
)

// MenuEntry is one selectable vacancy in the rendered menu.
type MenuEntry struct {
	ID    int64
	Title string
}

// Renderer is the transport-side output surface.
type Renderer interface {
	// Menu sends a fresh availability menu to the chat.
	Menu(ctx context.Context, chatID int64, entries []MenuEntry, emptyLabel string) error
	// RefreshMenu replaces the keyboard of an already sent menu message, so
	// taken vacancies disappear for everyone looking at it.
	RefreshMenu(ctx context.Context, chatID, messageID int64, entries []MenuEntry, emptyLabel string) error
	// Text sends a plain message.
	Text(ctx context.Context, chatID int64, text string) error
	// Voice sends a voice clip from a local path or a transport file handle.
	Voice(ctx context.Context, chatID int64, ref store.VoiceRef) error
	// Notice answers a callback with a transient notice, optionally as an alert.
	Notice(ctx context.Context, callbackID, text string, alert bool) error
}

// Downloader fetches a transport-side file to a local path. Used when an
// admin replaces a voice clip with an uploaded audio file.
type Downloader interface {
	Download(ctx context.Context, fileID, dest string) error
}

// Config carries the engine settings injected from the configuration file.
type Config struct {
	// Admins is the allow-list of user ids permitted to run privileged
	// commands.
	Admins []int64
	// VoicesDir is where replacement clips are persisted.
	VoicesDir string
}

// Deps aggregates the collaborators of the engine.
type Deps struct {
	Store    *store.Store
	Sessions *session.Manager
	Renderer Renderer
	Files    Downloader
	Logger   *zap.Logger
}

// Engine coordinates the store, the sessions and the admin workflow.
// Events of one user are handled one at a time: every session-touching
// handler runs under that user's lock, so a burst of same-user uploads
// cannot observe the same state twice. Distinct users only race inside
// the store, where Reserve is atomic.
type Engine struct {
	store     *store.Store
	sessions  *session.Manager
	render    Renderer
	files     Downloader
	logger    *zap.Logger
	admins    map[int64]struct{}
	voicesDir string
	users     *userLocks
}

// userLocks serializes event handling per user id. Locks are created on
// first use and never removed, like the sessions themselves.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*sync.Mutex)}
}

func (l *userLocks) forUser(id int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[id] = lock
	}

	return lock
}

// New builds an engine. The admin allow-list is fixed at construction.
func New(cfg *Config, deps *Deps) *Engine {
	admins := make(map[int64]struct{}, len(cfg.Admins))
	for _, id := range cfg.Admins {
		admins[id] = struct{}{}
	}

	return &Engine{
		store:     deps.Store,
		sessions:  deps.Sessions,
		render:    deps.Renderer,
		files:     deps.Files,
		logger:    deps.Logger,
		admins:    admins,
		voicesDir: cfg.VoicesDir,
		users:     newUserLocks(),
	}
}

// IsAdmin reports allow-list membership.
func (e *Engine) IsAdmin(userID int64) bool {
	_, ok := e.admins[userID]
	return ok
}

// HandleStart renders the availability menu.
func (e *Engine) HandleStart(ctx context.Context, ev Start) error {
	entries, err := e.availability(ctx)
	if err != nil {
		return err
	}

	// The menu message itself carries MsgMenuPrompt, transport-side.
	return e.render.Menu(ctx, ev.ChatID, entries, MsgAllTaken)
}

// HandleSelect runs a reservation attempt. Exactly one concurrent caller
// wins a given vacancy; everyone else gets a transient alert and a menu
// refresh. The menu a loser pressed may have been stale, that is fine.
func (e *Engine) HandleSelect(ctx context.Context, ev SelectVacancy) error {
	lock := e.users.forUser(ev.UserID)
	lock.Lock()
	defer lock.Unlock()

	vacancy, err := e.store.Reserve(ctx, ev.VacancyID)

	switch {
	case errors.Is(err, store.ErrAlreadyTaken) || errors.Is(err, store.ErrNotFound):
		e.logger.Info("reservation lost",
			zap.Int64("user_id", ev.UserID),
			zap.Int64("vacancy_id", ev.VacancyID),
			zap.Bool("not_found", errors.Is(err, store.ErrNotFound)),
		)

		if err := e.render.Notice(ctx, ev.CallbackID, MsgUnavailable, true); err != nil {
			return err
		}

		return e.refreshMenu(ctx, ev.ChatID, ev.MessageID)
	case err != nil:
		return err
	}

	// The vacancy is committed as taken, so the winner owes a resume from
	// this point on, whatever happens to the renders below.
	e.sessions.SetAwaitingResume(ev.UserID, vacancy.ID)

	// Ack the button press, then make the button disappear for everyone.
	if err := e.render.Notice(ctx, ev.CallbackID, "", false); err != nil {
		return err
	}

	if err := e.refreshMenu(ctx, ev.ChatID, ev.MessageID); err != nil {
		return err
	}

	if err := e.render.Text(ctx, ev.ChatID, MsgGreeting); err != nil {
		return err
	}

	e.renderVoice(ctx, ev.ChatID, vacancy)

	if err := e.render.Text(ctx, ev.ChatID, MsgResumePrompt); err != nil {
		return err
	}

	e.logger.Info("reservation won",
		zap.Int64("user_id", ev.UserID),
		zap.Int64("vacancy_id", vacancy.ID),
	)

	return nil
}

// HandleDocument completes the résumé step. Any document counts as a résumé;
// documents outside AwaitingResume are ignored unless they qualify as an
// armed voice replacement.
func (e *Engine) HandleDocument(ctx context.Context, ev DocumentUploaded) error {
	lock := e.users.forUser(ev.UserID)
	lock.Lock()
	defer lock.Unlock()

	return e.handleDocument(ctx, ev)
}

func (e *Engine) handleDocument(ctx context.Context, ev DocumentUploaded) error {
	s := e.sessions.Get(ev.UserID)
	if s.State != session.AwaitingResume {
		return nil
	}

	if err := e.render.Text(ctx, ev.ChatID, MsgAccepted); err != nil {
		return err
	}

	e.sessions.Clear(ev.UserID)

	e.logger.Info("resume received",
		zap.Int64("user_id", ev.UserID),
		zap.Int64("vacancy_id", s.VacancyID),
	)

	return nil
}

// HandleAdminCommand dispatches /setvoice and /reset, both gated on the
// allow-list. Unauthorized callers get a notice and the store stays as is.
func (e *Engine) HandleAdminCommand(ctx context.Context, ev AdminCommand) error {
	lock := e.users.forUser(ev.UserID)
	lock.Lock()
	defer lock.Unlock()

	if !e.IsAdmin(ev.UserID) {
		e.logger.Warn("unauthorized admin command",
			zap.Int64("user_id", ev.UserID),
			zap.String("command", ev.Name),
		)
		return e.render.Text(ctx, ev.ChatID, MsgUnauthorized)
	}

	switch ev.Name {
	case "setvoice":
		return e.setVoiceTarget(ctx, ev)
	case "reset":
		return e.reset(ctx, ev)
	default:
		return errors.Wrapf(store.ErrInvalidArgument, "unknown admin command %q", ev.Name)
	}
}

// HandleVoice consumes a voice message as the armed replacement payload.
// The Telegram file_id is stored directly; no download is needed since the
// transport can resend it by handle.
func (e *Engine) HandleVoice(ctx context.Context, ev VoiceUploaded) error {
	lock := e.users.forUser(ev.UserID)
	lock.Lock()
	defer lock.Unlock()

	s := e.sessions.Get(ev.UserID)
	if s.State != session.AwaitingVoiceReplacement {
		return nil
	}

	if err := e.store.UpdateVoiceRef(ctx, s.VacancyID, store.RemoteVoice(ev.FileID)); err != nil {
		return err
	}

	e.sessions.Clear(ev.UserID)

	return e.render.Text(ctx, ev.ChatID, fmt.Sprintf(MsgVoiceSaved, s.VacancyID))
}

// HandleFile consumes an audio file upload as the armed replacement payload.
// The blob is persisted under the deterministic per-vacancy path, replacing
// whatever clip was there. Non-audio files keep the state and ask again.
func (e *Engine) HandleFile(ctx context.Context, ev FileUploaded) error {
	lock := e.users.forUser(ev.UserID)
	lock.Lock()
	defer lock.Unlock()

	s := e.sessions.Get(ev.UserID)
	if s.State != session.AwaitingVoiceReplacement {
		// Outside a replacement the file is just a document.
		return e.handleDocument(ctx, DocumentUploaded{UserID: ev.UserID, ChatID: ev.ChatID, FileID: ev.FileID})
	}

	if !qualifiesAsVoice(ev.Filename) {
		return e.render.Text(ctx, ev.ChatID, MsgVoiceRetry)
	}

	dest := store.DefaultVoicePath(e.voicesDir, s.VacancyID)
	if err := e.files.Download(ctx, ev.FileID, dest); err != nil {
		return errors.Wrapf(err, "download replacement clip for vacancy %d", s.VacancyID)
	}

	if err := e.store.UpdateVoiceRef(ctx, s.VacancyID, store.LocalVoice(dest)); err != nil {
		return err
	}

	e.sessions.Clear(ev.UserID)

	return e.render.Text(ctx, ev.ChatID, fmt.Sprintf(MsgVoiceSaved, s.VacancyID))
}

func (e *Engine) setVoiceTarget(ctx context.Context, ev AdminCommand) error {
	if len(ev.Args) != 1 {
		return e.render.Text(ctx, ev.ChatID, MsgSetVoiceUsage)
	}

	id, err := strconv.ParseInt(ev.Args[0], 10, 64)
	if err != nil || id <= 0 {
		return e.render.Text(ctx, ev.ChatID, MsgSetVoiceUsage)
	}

	// Validate against the store so the valid range is always the seeded one.
	if _, err := e.store.Get(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return e.render.Text(ctx, ev.ChatID, MsgSetVoiceUsage)
		}
		return err
	}

	e.sessions.SetAwaitingVoice(ev.UserID, id)

	e.logger.Info("voice replacement armed",
		zap.Int64("user_id", ev.UserID),
		zap.Int64("vacancy_id", id),
	)

	return e.render.Text(ctx, ev.ChatID, fmt.Sprintf(MsgVoicePrompt, id))
}

func (e *Engine) reset(ctx context.Context, ev AdminCommand) error {
	if err := e.store.ResetAll(ctx); err != nil {
		return err
	}

	e.sessions.Clear(ev.UserID)

	if err := e.render.Text(ctx, ev.ChatID, MsgResetDone); err != nil {
		return err
	}

	entries, err := e.availability(ctx)
	if err != nil {
		return err
	}

	return e.render.Menu(ctx, ev.ChatID, entries, MsgAllTaken)
}

// renderVoice plays the vacancy clip, degrading to a textual notice when the
// content is missing. A broken clip must never fail the winning flow.
func (e *Engine) renderVoice(ctx context.Context, chatID int64, vacancy store.Vacancy) {
	err := e.voiceError(vacancy.Voice)
	if err == nil {
		err = e.render.Voice(ctx, chatID, vacancy.Voice)
	}

	if err == nil {
		return
	}

	e.logger.Warn("voice rendering failed",
		zap.Int64("vacancy_id", vacancy.ID),
		zap.String("voice", vacancy.Voice.String()),
		zap.Error(err),
	)

	fallback := fmt.Sprintf(MsgVoiceMissing, vacancy.Title, vacancy.Voice.Value)
	if err := e.render.Text(ctx, chatID, fallback); err != nil {
		e.logger.Warn("voice fallback rendering failed", zap.Error(err))
	}
}

func (e *Engine) voiceError(ref store.VoiceRef) error {
	if ref.Kind != store.VoiceLocal {
		return nil
	}

	if _, err := os.Stat(ref.Value); err != nil {
		return errors.Wrapf(store.ErrVoiceUnavailable, "clip %s", ref.Value)
	}

	return nil
}

func (e *Engine) availability(ctx context.Context) ([]MenuEntry, error) {
	vacancies, err := e.store.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]MenuEntry, 0, len(vacancies))
	for _, v := range vacancies {
		entries = append(entries, MenuEntry{ID: v.ID, Title: v.Title})
	}

	return entries, nil
}

// refreshMenu recomputes availability and edits the originating menu message
// so the rendered list converges after every attempt, win or lose.
func (e *Engine) refreshMenu(ctx context.Context, chatID, messageID int64) error {
	entries, err := e.availability(ctx)
	if err != nil {
		return err
	}

	return e.render.RefreshMenu(ctx, chatID, messageID, entries, MsgAllTaken)
}

func qualifiesAsVoice(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ogg", ".oga", ".mp3":
		return true
	default:
		return false
	}
}
