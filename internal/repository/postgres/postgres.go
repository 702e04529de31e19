package postgres

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store подключение к Postgres; репозитории этого пакета разделяют один пул
type Store struct {
	pool *pgxpool.Pool
}

func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

//go:embed schema.sql
var schema string

// InitSchema применяет идемпотентную схему (CREATE TABLE IF NOT EXISTS)
func (s *Store) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *Store) Close() { s.pool.Close() }

type txKey struct{}

// querier общее подмножество pgxpool.Pool и pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// q возвращает транзакцию из контекста либо пул
func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

// TxManager выполняет fn в serializable-транзакции: этот уровень изоляции
// закрывает гонку конкурентных заявок на вывод (две заявки не могут
// одновременно пройти проверку баланса — одна из транзакций будет отклонена)
type TxManager struct{ store *Store }

func NewTxManager(store *Store) *TxManager { return &TxManager{store: store} }

func (t *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.store.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
