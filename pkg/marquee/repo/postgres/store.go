// Package postgres provides the production backend of the marquee store
// contract on top of pgx. A write unit of work owns one pgx transaction; a
// read-only unit of work runs on pooled connections without an open
// transaction.
package postgres

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wavespeak/marquee/pkg/marquee"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so repository queries
// run unchanged inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store opens units of work over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a postgres-backed store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Begin implements marquee.Store. The returned unit of work is the sole owner
// of the transaction it wraps.
func (s *Store) Begin(ctx context.Context) (marquee.UnitOfWork, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &unitOfWork{pool: s.pool, tx: tx}, nil
}

// View implements marquee.Store. No transaction is opened; queries go to the
// pool directly.
func (s *Store) View(ctx context.Context) (marquee.UnitOfWork, error) {
	return &unitOfWork{pool: s.pool}, nil
}

// unitOfWork binds the repositories to one transaction. Repositories never
// hold the transaction themselves; every call borrows it through use(), which
// serializes access and rejects use after finalization. That makes Commit
// trivially safe: only the unit of work ever owns the handle.
type unitOfWork struct {
	pool *pgxpool.Pool

	mu   sync.Mutex
	tx   pgx.Tx
	done bool
}

// use runs fn against the transaction, or the pool for read-only units of
// work. It fails with ErrTxDone once the unit of work is finalized.
func (u *unitOfWork) use(fn func(db DBTX) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return marquee.ErrTxDone
	}
	if u.tx != nil {
		return fn(u.tx)
	}
	return fn(u.pool)
}

func (u *unitOfWork) ResourceRepository() marquee.ResourceRepository { return &resourceRepository{u} }
func (u *unitOfWork) ContentRepository() marquee.ContentRepository   { return &contentRepository{u} }
func (u *unitOfWork) AvatarRepository() marquee.AvatarRepository     { return &avatarRepository{u} }
func (u *unitOfWork) ViewRepository() marquee.ViewRepository         { return &viewRepository{u} }

func (u *unitOfWork) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return marquee.ErrTxDone
	}
	u.done = true
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit(ctx)
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return marquee.ErrTxDone
	}
	u.done = true
	if u.tx == nil {
		return nil
	}
	return u.tx.Rollback(ctx)
}
