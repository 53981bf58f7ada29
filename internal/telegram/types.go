package telegram

// Wire types for the slice of the Bot API this bot uses. Updates arrive as
// loosely-typed JSON and are decoded with mapstructure, field names follow
// the API.

type User struct {
	ID        int64  `mapstructure:"id"`
	Username  string `mapstructure:"username"`
	FirstName string `mapstructure:"first_name"`
}

type Chat struct {
	ID int64 `mapstructure:"id"`
}

type Document struct {
	FileID   string `mapstructure:"file_id"`
	FileName string `mapstructure:"file_name"`
}

type Voice struct {
	FileID string `mapstructure:"file_id"`
}

type Audio struct {
	FileID   string `mapstructure:"file_id"`
	FileName string `mapstructure:"file_name"`
}

type Message struct {
	MessageID int64     `mapstructure:"message_id"`
	From      *User     `mapstructure:"from"`
	Chat      *Chat     `mapstructure:"chat"`
	Text      string    `mapstructure:"text"`
	Document  *Document `mapstructure:"document"`
	Voice     *Voice    `mapstructure:"voice"`
	Audio     *Audio    `mapstructure:"audio"`
}

type CallbackQuery struct {
	ID      string   `mapstructure:"id"`
	From    *User    `mapstructure:"from"`
	Data    string   `mapstructure:"data"`
	Message *Message `mapstructure:"message"`
}

type Update struct {
	UpdateID      int64          `mapstructure:"update_id"`
	Message       *Message       `mapstructure:"message"`
	CallbackQuery *CallbackQuery `mapstructure:"callback_query"`
}

// InlineKeyboardButton and InlineKeyboardMarkup are sent as the
// reply_markup parameter, json-encoded.

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

type File struct {
	FileID   string `mapstructure:"file_id"`
	FilePath string `mapstructure:"file_path"`
}
