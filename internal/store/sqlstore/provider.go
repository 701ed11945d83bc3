package sqlstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/breeew/otterly-api/internal/store"
	"github.com/breeew/otterly-api/pkg/register"
	"github.com/breeew/otterly-api/pkg/sqlstore"
)

func init() {
	sq.StatementBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

//go:embed schema.sql
var schema string

var _ store.Stores = (*Provider)(nil)

type Provider struct {
	*sqlstore.SqlProvider
	stores *Stores
}

type Stores struct {
	store.UserStore
	store.AspirationStore
	store.JournalStore
	store.JournalEntryStore
}

type RegisterKey struct{}

type SqlProviderAchieve interface {
	GetMaster(ctx context.Context) sqlstore.Executor
	GetReplica(ctx context.Context) sqlstore.Executor
}

func MustSetup(m sqlstore.ConnectConfig, s ...sqlstore.ConnectConfig) *Provider {
	provider := &Provider{
		SqlProvider: sqlstore.MustSetupProvider(m, s...),
		stores:      &Stores{},
	}

	for _, f := range register.ResolveFuncHandlers[*Provider](RegisterKey{}) {
		f(provider)
	}

	return provider
}

// Install creates the tables when they do not exist yet.
func (p *Provider) Install() error {
	if _, err := p.DB().Exec(schema); err != nil {
		return fmt.Errorf("install schema: %w", err)
	}
	return nil
}

func (p *Provider) UserStore() store.UserStore {
	return p.stores.UserStore
}

func (p *Provider) AspirationStore() store.AspirationStore {
	return p.stores.AspirationStore
}

func (p *Provider) JournalStore() store.JournalStore {
	return p.stores.JournalStore
}

func (p *Provider) JournalEntryStore() store.JournalEntryStore {
	return p.stores.JournalEntryStore
}

type CommonFields struct {
	provider   SqlProviderAchieve
	table      string
	allColumns []string
}

func (c *CommonFields) SetProvider(p SqlProviderAchieve) {
	c.provider = p
}

func (c *CommonFields) SetTable(t interface{ Name() string }) {
	c.table = t.Name()
}

func (c *CommonFields) SetAllColumns(cols ...string) {
	c.allColumns = cols
}

func (c *CommonFields) GetTable() string {
	return c.table
}

func (c *CommonFields) GetAllColumns() []string {
	return c.allColumns
}

func (c *CommonFields) GetMaster(ctx context.Context) sqlstore.Executor {
	return c.provider.GetMaster(ctx)
}

func (c *CommonFields) GetReplica(ctx context.Context) sqlstore.Executor {
	return c.provider.GetReplica(ctx)
}

var ERROR_SQL_BUILD = errors.New("failed to build sql")

func ErrorSqlBuild(err error) error {
	return fmt.Errorf("%w: %v", ERROR_SQL_BUILD, err)
}

func pageOffset(page, pageSize uint64) uint64 {
	if page == 0 {
		page = 1
	}
	return (page - 1) * pageSize
}
