// Package session tracks the conversational state of each Telegram user.
// State is keyed by user id and owned exclusively per user; the vacancy
// table stays the single source of shared truth.
package session

import "sync"

// State is the position of a user in the conversation.
type State int

const (
	// Idle is the initial and terminal-reentrant state.
	Idle State = iota
	// AwaitingResume means the user won a vacancy and owes a document.
	AwaitingResume
	// AwaitingVoiceReplacement means an admin armed a voice replacement.
	AwaitingVoiceReplacement
)

func (s State) String() string {
	switch s {
	case AwaitingResume:
		return "awaiting_resume"
	case AwaitingVoiceReplacement:
		return "awaiting_voice_replacement"
	default:
		return "idle"
	}
}

// Session carries the state and its context. VacancyID is meaningful only
// outside Idle.
type Session struct {
	State     State
	VacancyID int64
}

// Manager is a concurrency-safe map from user id to session. Sessions are
// created on first interaction and cleared back to Idle, never deleted.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

// NewManager returns an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]Session)}
}

// Get returns the session of a user. Unknown users are Idle.
func (m *Manager) Get(userID int64) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sessions[userID]
}

// SetAwaitingResume records that the user won the given vacancy and the bot
// waits for a document from them.
func (m *Manager) SetAwaitingResume(userID, vacancyID int64) {
	m.set(userID, Session{State: AwaitingResume, VacancyID: vacancyID})
}

// SetAwaitingVoice records that the next voice or audio upload from the user
// replaces the clip of the given vacancy.
func (m *Manager) SetAwaitingVoice(userID, vacancyID int64) {
	m.set(userID, Session{State: AwaitingVoiceReplacement, VacancyID: vacancyID})
}

// Clear returns the user to Idle.
func (m *Manager) Clear(userID int64) {
	m.set(userID, Session{})
}

func (m *Manager) set(userID int64, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[userID] = s
}
