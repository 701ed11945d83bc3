package sqlstore

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/breeew/otterly-api/pkg/register"
	"github.com/breeew/otterly-api/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.AspirationStore = NewAspirationStore(provider)
	})
}

type AspirationStore struct {
	CommonFields
}

func NewAspirationStore(provider SqlProviderAchieve) *AspirationStore {
	repo := &AspirationStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_ASPIRATION)
	repo.SetAllColumns("id", "user_id", "text", "created_at")
	return repo
}

func (s *AspirationStore) BatchCreate(ctx context.Context, list []types.Aspiration) error {
	if len(list) == 0 {
		return nil
	}
	query := sq.Insert(s.GetTable()).Columns(s.GetAllColumns()...)
	for _, v := range list {
		query = query.Values(v.ID, v.UserID, v.Text, v.CreatedAt)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).ExecContext(ctx, queryString, args...)
	return err
}

func (s *AspirationStore) ListUserAspirations(ctx context.Context, userID string) ([]types.Aspiration, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"user_id": userID}).OrderBy("created_at ASC", "id ASC")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.Aspiration
	if err = s.GetReplica(ctx).SelectContext(ctx, &res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}
