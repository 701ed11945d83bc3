package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/breeew/otterly-api/pkg/register"
	"github.com/breeew/otterly-api/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.JournalEntryStore = NewJournalEntryStore(provider)
	})
}

type JournalEntryStore struct {
	CommonFields
}

func NewJournalEntryStore(provider SqlProviderAchieve) *JournalEntryStore {
	repo := &JournalEntryStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_JOURNAL_ENTRY)
	repo.SetAllColumns("id", "user_id", "journal_id", "content", "title", "oto_reply", "created_at", "updated_at")
	return repo
}

func (s *JournalEntryStore) Create(ctx context.Context, data types.JournalEntry) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = data.CreatedAt
	}
	query := sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.ID, data.UserID, data.JournalID, data.Content, data.Title, data.OtoReply, data.CreatedAt, data.UpdatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).ExecContext(ctx, queryString, args...)
	return err
}

func (s *JournalEntryStore) Get(ctx context.Context, userID, id string) (*types.JournalEntry, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"user_id": userID, "id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.JournalEntry
	if err = s.GetReplica(ctx).GetContext(ctx, &res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListByJournal reads from master so a list fetched right after a write contains it.
func (s *JournalEntryStore) ListByJournal(ctx context.Context, userID, journalID string, page, pageSize uint64) ([]types.JournalEntry, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"user_id": userID, "journal_id": journalID}).
		OrderBy("created_at DESC", "id DESC")
	if pageSize > 0 {
		query = query.Limit(pageSize).Offset(pageOffset(page, pageSize))
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.JournalEntry
	if err = s.GetMaster(ctx).SelectContext(ctx, &res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *JournalEntryStore) UpdateReply(ctx context.Context, userID, id, title, reply string) error {
	query := sq.Update(s.GetTable()).
		Set("oto_reply", reply).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"user_id": userID, "id": id})
	if title != "" {
		query = query.Set("title", title)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).ExecContext(ctx, queryString, args...)
	return err
}
