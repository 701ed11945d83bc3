package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"

	"github.com/jmoiron/sqlx"
)

type ConnectConfig interface {
	FormatDSN() string
}

// Executor is satisfied by both *sqlx.DB and *sqlx.Tx.
type Executor interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type SqlProvider struct {
	master   *sqlx.DB
	replicas []*sqlx.DB
}

type txKey struct{}

func MustSetupProvider(m ConnectConfig, s ...ConnectConfig) *SqlProvider {
	p, err := SetupProvider(m, s...)
	if err != nil {
		panic(err)
	}
	return p
}

func SetupProvider(m ConnectConfig, s ...ConnectConfig) (*SqlProvider, error) {
	master, err := sqlx.Connect("postgres", m.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("connect master: %w", err)
	}

	p := &SqlProvider{master: master}
	for _, v := range s {
		replica, err := sqlx.Connect("postgres", v.FormatDSN())
		if err != nil {
			return nil, fmt.Errorf("connect replica: %w", err)
		}
		p.replicas = append(p.replicas, replica)
	}
	return p, nil
}

func txFromContext(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx, ok
}

// GetMaster returns the transaction bound to ctx, if any, or the master connection.
func (p *SqlProvider) GetMaster(ctx context.Context) Executor {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return p.master
}

// GetReplica reads inside the current transaction when there is one.
func (p *SqlProvider) GetReplica(ctx context.Context) Executor {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	if len(p.replicas) == 0 {
		return p.master
	}
	return p.replicas[rand.Intn(len(p.replicas))]
}

func (p *SqlProvider) DB() *sqlx.DB {
	return p.master
}

// Transaction runs f with a context carrying a transaction. Nested calls join the outer one.
func (p *SqlProvider) Transaction(ctx context.Context, f func(ctx context.Context) error) error {
	if _, ok := txFromContext(ctx); ok {
		return f(ctx)
	}

	tx, err := p.master.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err = f(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}
