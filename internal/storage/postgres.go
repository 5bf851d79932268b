package storage

import (
	"context"
	"fmt"

	"github.com/KevinKickass/OpenPointHub/internal/config"
	"github.com/KevinKickass/OpenPointHub/internal/pointcfg"
	"github.com/KevinKickass/OpenPointHub/internal/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	pool *pgxpool.Pool
}

func NewPostgresClient(cfg config.DatabaseConfig) (*PostgresClient, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// Connection testen
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{pool: pool}, nil
}

func (p *PostgresClient) Close() {
	p.pool.Close()
}

func (p *PostgresClient) Pool() *pgxpool.Pool {
	return p.pool
}

// querier is satisfied by both the pool and a transaction, so the catalog
// queries run unchanged in either scope.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Catalog returns a pool-backed catalog view for reads and exports.
func (p *PostgresClient) Catalog() pointcfg.Catalog {
	return &catalog{q: p.pool}
}

// InTransaction runs fn against a transaction-scoped catalog. Every catalog
// write inside fn commits together or not at all.
func (p *PostgresClient) InTransaction(ctx context.Context, fn func(pointcfg.Catalog) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&catalog{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListControllers returns every catalog controller, for the read API.
func (p *PostgresClient) ListControllers(ctx context.Context) ([]types.Controller, error) {
	return (&catalog{q: p.pool}).ListControllers(ctx)
}
