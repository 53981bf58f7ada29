package engine

// Events delivered by the transport. Every event carries the caller identity
// (Telegram user id) and the chat to render responses into.

// Start is the /start command: show the availability menu.
type Start struct {
	UserID int64
	ChatID int64
}

// SelectVacancy is a press on a vacancy button. CallbackID and MessageID
// identify the originating callback so the menu can be acked and refreshed
// in place.
type SelectVacancy struct {
	UserID     int64
	ChatID     int64
	MessageID  int64
	CallbackID string
	VacancyID  int64
}

// DocumentUploaded is any document-type message; treated as a résumé when
// the user is awaiting one.
type DocumentUploaded struct {
	UserID int64
	ChatID int64
	FileID string
}

// VoiceUploaded is a voice-type message, consumed by an armed voice
// replacement.
type VoiceUploaded struct {
	UserID int64
	ChatID int64
	FileID string
}

// FileUploaded is an audio file sent as a document, with its filename.
type FileUploaded struct {
	UserID   int64
	ChatID   int64
	FileID   string
	Filename string
}

// AdminCommand is a privileged command such as /setvoice or /reset.
type AdminCommand struct {
	UserID int64
	ChatID int64
	Name   string
	Args   []string
}
