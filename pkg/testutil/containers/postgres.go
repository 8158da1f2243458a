//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"consents/internal/platform/database"
)

// Tables are the tables created by the migrations, children first.
var Tables = []string{"event", `"user"`}

type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
	DB        *sql.DB
}

// startPostgres is never terminated explicitly: the container outlives
// individual suites and Ryuk removes it when the test process exits.
func startPostgres() (*PostgresContainer, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("consents_test"),
		postgres.WithUsername("consents"),
		postgres.WithPassword("consents_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres: %w", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("postgres connection string: %w", err)
	}
	if err := database.Migrate(url); err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	cfg := database.DefaultConfig()
	cfg.URL = url
	pool, err := database.New(ctx, cfg)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	return &PostgresContainer{Container: container, URL: url, DB: pool.DB()}, nil
}

// TruncateAll empties the users and events tables.
func (p *PostgresContainer) TruncateAll(ctx context.Context) error {
	for _, table := range Tables {
		if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}
