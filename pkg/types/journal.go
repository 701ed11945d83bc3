package types

type JournalStatus string

const (
	JOURNAL_STATUS_ACTIVE   JournalStatus = "active"
	JOURNAL_STATUS_ARCHIVED JournalStatus = "archived"
)

// Journal is a volume of entries. A user has at most one active journal.
type Journal struct {
	ID        string        `json:"id" db:"id"`
	UserID    string        `json:"user_id" db:"user_id"`
	Title     string        `json:"title" db:"title"`
	Status    JournalStatus `json:"status" db:"status"`
	CreatedAt int64         `json:"created_at" db:"created_at"`
	EndedAt   int64         `json:"ended_at" db:"ended_at"`
}

type JournalEntry struct {
	ID        string `json:"id" db:"id"`
	UserID    string `json:"user_id" db:"user_id"`
	JournalID string `json:"journal_id" db:"journal_id"`
	Content   string `json:"content" db:"content"`
	Title     string `json:"title" db:"title"`
	OtoReply  string `json:"oto_reply" db:"oto_reply"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
	UpdatedAt int64  `json:"updated_at" db:"updated_at"`
}

const UNTITLED_ENTRY = "Untitled Entry"

// DisplayTitle falls back to a placeholder for entries without an AI title.
func (e JournalEntry) DisplayTitle() string {
	if e.Title == "" {
		return UNTITLED_ENTRY
	}
	return e.Title
}

// HISTORY_SIZE is how many recent entries are fed back as prompt context.
const HISTORY_SIZE = 3
