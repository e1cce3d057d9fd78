package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/rickgao/oracle-consensus/internal/model"
)

// DBTX is the subset of pgxpool.Pool, pgx.Conn and pgx.Tx used here.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS price_history (
	id          UUID PRIMARY KEY,
	symbol      TEXT NOT NULL,
	price       NUMERIC NOT NULL,
	confidence  NUMERIC NOT NULL,
	source      TEXT NOT NULL,
	timestamp   BIGINT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS price_history_symbol_timestamp_idx
	ON price_history (symbol, timestamp DESC);
`

const insertSQL = `
	INSERT INTO price_history (id, symbol, price, confidence, source, timestamp, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// Postgres appends observations to price_history.
type Postgres struct {
	db     DBTX
	logger *slog.Logger

	now   func() time.Time
	newID func() uuid.UUID
}

// NewPostgres creates a history writer on db.
func NewPostgres(db DBTX, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{
		db:     db,
		logger: logger,
		now:    time.Now,
		newID:  uuid.New,
	}
}

// EnsureSchema creates the table and index if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create price_history: %w", err)
	}
	return nil
}

// Append inserts one row for obs.
func (p *Postgres) Append(ctx context.Context, obs model.Observation) error {
	id := p.newID()
	_, err := p.db.Exec(ctx, insertSQL,
		id,
		obs.Symbol,
		decimal.NewFromFloat(obs.Price),
		decimal.NewFromFloat(obs.Confidence),
		obs.Source,
		obs.Timestamp,
		p.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert price_history: %w", err)
	}

	p.logger.Debug("appended price history",
		"id", id,
		"symbol", obs.Symbol,
		"price", obs.Price,
		"source", obs.Source,
	)
	return nil
}

// Ping checks the database when the handle supports it.
func (p *Postgres) Ping(ctx context.Context) error {
	if pg, ok := p.db.(pinger); ok {
		return pg.Ping(ctx)
	}
	return nil
}
