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
		provider.stores.JournalStore = NewJournalStore(provider)
	})
}

type JournalStore struct {
	CommonFields
}

func NewJournalStore(provider SqlProviderAchieve) *JournalStore {
	repo := &JournalStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_JOURNAL)
	repo.SetAllColumns("id", "user_id", "title", "status", "created_at", "ended_at")
	return repo
}

func (s *JournalStore) Create(ctx context.Context, data types.Journal) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	query := sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.ID, data.UserID, data.Title, data.Status, data.CreatedAt, data.EndedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).ExecContext(ctx, queryString, args...)
	return err
}

func (s *JournalStore) Get(ctx context.Context, userID, id string) (*types.Journal, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"user_id": userID, "id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Journal
	if err = s.GetReplica(ctx).GetContext(ctx, &res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetActive reads from master, callers use it to decide where new entries go.
func (s *JournalStore) GetActive(ctx context.Context, userID string) (*types.Journal, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"user_id": userID, "status": types.JOURNAL_STATUS_ACTIVE}).
		OrderBy("created_at DESC").Limit(1)

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Journal
	if err = s.GetMaster(ctx).GetContext(ctx, &res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *JournalStore) List(ctx context.Context, userID string, page, pageSize uint64) ([]types.Journal, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC")
	if pageSize > 0 {
		query = query.Limit(pageSize).Offset(pageOffset(page, pageSize))
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.Journal
	if err = s.GetReplica(ctx).SelectContext(ctx, &res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *JournalStore) Archive(ctx context.Context, userID, id string, endedAt int64) (bool, error) {
	query := sq.Update(s.GetTable()).
		Set("status", types.JOURNAL_STATUS_ARCHIVED).
		Set("ended_at", endedAt).
		Where(sq.Eq{"user_id": userID, "id": id, "status": types.JOURNAL_STATUS_ACTIVE})

	queryString, args, err := query.ToSql()
	if err != nil {
		return false, ErrorSqlBuild(err)
	}

	res, err := s.GetMaster(ctx).ExecContext(ctx, queryString, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
