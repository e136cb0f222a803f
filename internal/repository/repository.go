package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/forage/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database is the subset of pgxpool.Pool used by the repository.
// pgxmock satisfies it in tests.
type Database interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// Repository provides access to the shared place catalog.
type Repository struct {
	db  Database
	log *slog.Logger
}

// Interface describes the catalog operations consumed by the resolution engine.
type Interface interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.Place, error)
	GetByNormalizedNameAndRoundedCoords(ctx context.Context, name string, coords models.Coordinates) (*models.Place, error)
	ListWithinBoundingBox(ctx context.Context, minLat, maxLat, minLng, maxLng float64) ([]models.Place, error)
	Insert(ctx context.Context, input models.PlaceInput) (*models.Place, error)
}

// NewRepository creates a new instance of Repository with the provided Database.
// It returns a pointer to the newly created Repository.
func NewRepository(db Database, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log}
}

// NewDatabase opens a pgx connection pool for the place catalog and verifies
// connectivity with a ping.
func NewDatabase(ctx context.Context, host, port, user, password, name string) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, password, host, port, name)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
