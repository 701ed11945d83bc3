package store

import (
	"context"

	"github.com/breeew/otterly-api/pkg/types"
)

// Stores return sql.ErrNoRows when a single row lookup finds nothing.

type UserStore interface {
	Create(ctx context.Context, data types.User) error
	GetUser(ctx context.Context, appid, id string) (*types.User, error)
	GetByEmail(ctx context.Context, appid, email string) (*types.User, error)
	// CompleteOnboarding writes the profile and flags onboarding as done.
	CompleteOnboarding(ctx context.Context, appid, id string, profile types.UserProfile) error
}

type AspirationStore interface {
	BatchCreate(ctx context.Context, list []types.Aspiration) error
	ListUserAspirations(ctx context.Context, userID string) ([]types.Aspiration, error)
}

type JournalStore interface {
	Create(ctx context.Context, data types.Journal) error
	Get(ctx context.Context, userID, id string) (*types.Journal, error)
	GetActive(ctx context.Context, userID string) (*types.Journal, error)
	List(ctx context.Context, userID string, page, pageSize uint64) ([]types.Journal, error)
	// Archive flips an active journal to archived and reports whether a row changed.
	Archive(ctx context.Context, userID, id string, endedAt int64) (bool, error)
}

type JournalEntryStore interface {
	Create(ctx context.Context, data types.JournalEntry) error
	Get(ctx context.Context, userID, id string) (*types.JournalEntry, error)
	// ListByJournal lists entries newest first. An empty journalID selects entries written outside any journal.
	ListByJournal(ctx context.Context, userID, journalID string, page, pageSize uint64) ([]types.JournalEntry, error)
	UpdateReply(ctx context.Context, userID, id, title, reply string) error
}

type Stores interface {
	UserStore() UserStore
	AspirationStore() AspirationStore
	JournalStore() JournalStore
	JournalEntryStore() JournalEntryStore
	Transaction(ctx context.Context, f func(ctx context.Context) error) error
}
