package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/utafrali/backoffice/internal/repository"
	"github.com/utafrali/backoffice/pkg/database"
)

// NewRepositories binds one repository per entity to db, which may be a pool
// or a transaction.
func NewRepositories(db database.DBTX) repository.Repositories {
	return repository.Repositories{
		Categories:    NewCategoryRepository(db),
		Products:      NewProductRepository(db),
		Manufacturers: NewManufacturerRepository(db),
		Invoices:      NewInvoiceRepository(db),
		Users:         NewUserRepository(db),
		Roles:         NewRoleRepository(db),
	}
}

// Store implements repository.Transactor on top of a connection pool.
type Store struct {
	db database.DBTX
}

// NewStore creates a Store.
func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

// Repositories returns repositories bound to the pool, outside any transaction.
func (s *Store) Repositories() repository.Repositories {
	return NewRepositories(s.db)
}

// WithinTx begins a transaction, runs fn with repositories bound to it and
// commits when fn succeeds. Any error, or a panic, rolls back.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) (err error) {
	ctx, end := database.TraceQuery(ctx, "transaction", "BEGIN")
	defer func() { end(err) }()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err = fn(ctx, NewRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback transaction: %w", rbErr))
		}
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
