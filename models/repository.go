package models

import (
	"context"
	"fmt"

	"github.com/golobby/jsonsql"
	"github.com/golobby/jsonsql/store"
)

// Repository reads and writes the node tables through a store.
type Repository struct {
	s *store.Store
}

func NewRepository(s *store.Store) *Repository {
	return &Repository{s: s}
}

// CreateTables creates every table and index that does not exist yet.
func (r *Repository) CreateTables(ctx context.Context) error {
	return r.s.WithTx(ctx, func(tx *store.Tx) error {
		for _, t := range Tables() {
			if _, err := tx.Exec(ctx, t.CreateDescriptor()); err != nil {
				return fmt.Errorf("models: creating %s: %w", t.Name, err)
			}
			for _, idx := range t.IndexDescriptors() {
				if _, err := tx.Exec(ctx, idx); err != nil {
					return fmt.Errorf("models: indexing %s: %w", t.Name, err)
				}
			}
		}
		return nil
	})
}

// insertDescriptor inserts entity, skipping rows that already exist when the
// dialect can express it.
func (r *Repository) insertDescriptor(entity any) jsonsql.M {
	sc := store.SchemaOf(entity)
	typ := "insert"
	if r.s.Builder().Dialect().Templates.Has("insertOrNothing") {
		typ = "insertOrNothing"
	}
	return jsonsql.M{
		"type":   typ,
		"table":  sc.Table,
		"values": sc.Values(entity, true),
	}
}

// Save inserts the entities in one transaction, in the given order. A
// transaction is saved before its asset.
func (r *Repository) Save(ctx context.Context, entities ...any) error {
	return r.s.WithTx(ctx, func(tx *store.Tx) error {
		for _, e := range entities {
			if _, err := tx.Exec(ctx, r.insertDescriptor(e)); err != nil {
				return fmt.Errorf("models: saving %s: %w", store.TableName(e), err)
			}
		}
		return nil
	})
}

func (r *Repository) ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	q, err := f.Descriptor()
	if err != nil {
		return nil, err
	}
	var out []Transaction
	if err := r.s.Select(ctx, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) CountTransactions(ctx context.Context, f TransactionFilter) (int64, error) {
	row, err := r.s.QueryRow(ctx, f.CountDescriptor())
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Repository) ListChats(ctx context.Context, f ChatFilter) ([]ChatMessage, error) {
	q, err := f.Descriptor()
	if err != nil {
		return nil, err
	}
	var out []ChatMessage
	if err := r.s.Select(ctx, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) ListStates(ctx context.Context, f StateFilter) ([]StoredState, error) {
	q, err := f.Descriptor()
	if err != nil {
		return nil, err
	}
	var out []StoredState
	if err := r.s.Select(ctx, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) ListDapps(ctx context.Context, f DappFilter) ([]Dapp, error) {
	q, err := f.Descriptor()
	if err != nil {
		return nil, err
	}
	var out []Dapp
	if err := r.s.Select(ctx, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}
