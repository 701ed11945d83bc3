// Package memstore keeps every store in process memory. It backs local runs
// without a postgres DSN and the logic tests.
package memstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/breeew/otterly-api/internal/store"
	"github.com/breeew/otterly-api/pkg/types"
)

var _ store.Stores = (*Provider)(nil)

type Provider struct {
	users       *UserStore
	aspirations *AspirationStore
	journals    *JournalStore
	entries     *JournalEntryStore
	txMu        sync.Mutex
}

func New() *Provider {
	return &Provider{
		users:       &UserStore{rows: make(map[string]types.User)},
		aspirations: &AspirationStore{},
		journals:    &JournalStore{},
		entries:     &JournalEntryStore{},
	}
}

func (p *Provider) UserStore() store.UserStore {
	return p.users
}

func (p *Provider) AspirationStore() store.AspirationStore {
	return p.aspirations
}

func (p *Provider) JournalStore() store.JournalStore {
	return p.journals
}

func (p *Provider) JournalEntryStore() store.JournalEntryStore {
	return p.entries
}

// Transaction serializes transactional blocks; there is no rollback.
func (p *Provider) Transaction(ctx context.Context, f func(ctx context.Context) error) error {
	p.txMu.Lock()
	defer p.txMu.Unlock()
	return f(ctx)
}

type UserStore struct {
	mu   sync.RWMutex
	rows map[string]types.User
}

func (s *UserStore) Create(ctx context.Context, data types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.rows {
		if v.Appid == data.Appid && v.Email == data.Email {
			return fmt.Errorf("duplicate email %s", data.Email)
		}
	}
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
		data.UpdatedAt = data.CreatedAt
	}
	s.rows[data.ID] = data
	return nil
}

func (s *UserStore) GetUser(ctx context.Context, appid, id string) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.rows[id]
	if !ok || v.Appid != appid {
		return nil, sql.ErrNoRows
	}
	return &v, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, appid, email string) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.rows {
		if v.Appid == appid && v.Email == email {
			return &v, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *UserStore) CompleteOnboarding(ctx context.Context, appid, id string, profile types.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.rows[id]
	if !ok || v.Appid != appid {
		return nil
	}
	v.Name = profile.Name
	v.Age = profile.Age
	v.Gender = profile.Gender
	v.OnboardingDone = true
	v.UpdatedAt = time.Now().Unix()
	s.rows[id] = v
	return nil
}

type AspirationStore struct {
	mu   sync.RWMutex
	rows []types.Aspiration
}

func (s *AspirationStore) BatchCreate(ctx context.Context, list []types.Aspiration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, list...)
	return nil
}

func (s *AspirationStore) ListUserAspirations(ctx context.Context, userID string) ([]types.Aspiration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Filter(s.rows, func(item types.Aspiration, _ int) bool {
		return item.UserID == userID
	}), nil
}

type JournalStore struct {
	mu   sync.RWMutex
	rows []types.Journal
}

func (s *JournalStore) Create(ctx context.Context, data types.Journal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data.Status == types.JOURNAL_STATUS_ACTIVE {
		for _, v := range s.rows {
			if v.UserID == data.UserID && v.Status == types.JOURNAL_STATUS_ACTIVE {
				return fmt.Errorf("user %s already has an active journal", data.UserID)
			}
		}
	}
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	s.rows = append(s.rows, data)
	return nil
}

func (s *JournalStore) Get(ctx context.Context, userID, id string) (*types.Journal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := lo.Find(s.rows, func(item types.Journal) bool {
		return item.UserID == userID && item.ID == id
	})
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &v, nil
}

func (s *JournalStore) GetActive(ctx context.Context, userID string) (*types.Journal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := lo.Find(s.rows, func(item types.Journal) bool {
		return item.UserID == userID && item.Status == types.JOURNAL_STATUS_ACTIVE
	})
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &v, nil
}

func (s *JournalStore) List(ctx context.Context, userID string, page, pageSize uint64) ([]types.Journal, error) {
	s.mu.RLock()
	list := lo.Filter(s.rows, func(item types.Journal, _ int) bool {
		return item.UserID == userID
	})
	s.mu.RUnlock()

	// rows are kept in insertion order, newest last
	list = lo.Reverse(list)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt > list[j].CreatedAt
	})
	return paginate(list, page, pageSize), nil
}

func (s *JournalStore) Archive(ctx context.Context, userID, id string, endedAt int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.rows {
		if v.UserID == userID && v.ID == id && v.Status == types.JOURNAL_STATUS_ACTIVE {
			s.rows[i].Status = types.JOURNAL_STATUS_ARCHIVED
			s.rows[i].EndedAt = endedAt
			return true, nil
		}
	}
	return false, nil
}

type JournalEntryStore struct {
	mu   sync.RWMutex
	rows []types.JournalEntry
}

func (s *JournalEntryStore) Create(ctx context.Context, data types.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = data.CreatedAt
	}
	s.rows = append(s.rows, data)
	return nil
}

func (s *JournalEntryStore) Get(ctx context.Context, userID, id string) (*types.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := lo.Find(s.rows, func(item types.JournalEntry) bool {
		return item.UserID == userID && item.ID == id
	})
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &v, nil
}

func (s *JournalEntryStore) ListByJournal(ctx context.Context, userID, journalID string, page, pageSize uint64) ([]types.JournalEntry, error) {
	s.mu.RLock()
	list := lo.Filter(s.rows, func(item types.JournalEntry, _ int) bool {
		return item.UserID == userID && item.JournalID == journalID
	})
	s.mu.RUnlock()

	list = lo.Reverse(list)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt > list[j].CreatedAt
	})
	return paginate(list, page, pageSize), nil
}

func (s *JournalEntryStore) UpdateReply(ctx context.Context, userID, id, title, reply string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.rows {
		if v.UserID == userID && v.ID == id {
			s.rows[i].OtoReply = reply
			if title != "" {
				s.rows[i].Title = title
			}
			s.rows[i].UpdatedAt = time.Now().Unix()
			return nil
		}
	}
	return nil
}

func paginate[T any](list []T, page, pageSize uint64) []T {
	if pageSize == 0 {
		return list
	}
	if page == 0 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= uint64(len(list)) {
		return []T{}
	}
	end := start + pageSize
	if end > uint64(len(list)) {
		end = uint64(len(list))
	}
	return list[start:end]
}
