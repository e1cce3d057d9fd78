package history

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/rickgao/oracle-consensus/internal/model"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	mu      sync.Mutex
	calls   []execCall
	err     error
	pingErr error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) Ping(context.Context) error { return f.pingErr }

func TestPostgres_EnsureSchema(t *testing.T) {
	db := &fakeDB{}
	p := NewPostgres(db, nil)

	if err := p.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if len(db.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(db.calls))
	}
	sql := db.calls[0].sql
	for _, want := range []string{"CREATE TABLE IF NOT EXISTS price_history", "CREATE INDEX IF NOT EXISTS"} {
		if !strings.Contains(sql, want) {
			t.Errorf("schema SQL missing %q", want)
		}
	}
	if strings.Contains(strings.ToUpper(sql), "DELETE") || strings.Contains(strings.ToUpper(sql), "UPDATE ") {
		t.Error("schema SQL should not modify existing rows")
	}
}

func TestPostgres_Append(t *testing.T) {
	db := &fakeDB{}
	p := NewPostgres(db, nil)
	fixed := time.Date(2024, 6, 10, 6, 13, 20, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	obs := model.Observation{Symbol: "SOL", Price: 150.5, Confidence: 0.05, Timestamp: 1718000000, Source: model.SourceWeightedConsensus}
	if err := p.Append(context.Background(), obs); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if len(db.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(db.calls))
	}
	c := db.calls[0]
	if !strings.Contains(c.sql, "INSERT INTO price_history") {
		t.Errorf("sql = %q, want insert", c.sql)
	}
	if len(c.args) != 7 {
		t.Fatalf("args = %d, want 7", len(c.args))
	}
	if _, ok := c.args[0].(uuid.UUID); !ok {
		t.Errorf("id arg = %T, want uuid.UUID", c.args[0])
	}
	if c.args[1] != "SOL" {
		t.Errorf("symbol = %v, want SOL", c.args[1])
	}
	if d := c.args[2].(decimal.Decimal); !d.Equal(decimal.RequireFromString("150.5")) {
		t.Errorf("price = %s, want 150.5", d)
	}
	if d := c.args[3].(decimal.Decimal); !d.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("confidence = %s, want 0.05", d)
	}
	if c.args[4] != model.SourceWeightedConsensus {
		t.Errorf("source = %v", c.args[4])
	}
	if c.args[5] != int64(1718000000) {
		t.Errorf("timestamp = %v, want 1718000000", c.args[5])
	}
	if c.args[6] != fixed {
		t.Errorf("recorded_at = %v, want %v", c.args[6], fixed)
	}
}

func TestPostgres_AppendKeepsEveryRowInOrder(t *testing.T) {
	db := &fakeDB{}
	p := NewPostgres(db, nil)

	const n = 5
	for i := 0; i < n; i++ {
		obs := model.Observation{Symbol: "SOL", Price: 100, Confidence: 1, Timestamp: int64(1000 + i), Source: model.SourceConsensus}
		if err := p.Append(context.Background(), obs); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	if len(db.calls) != n {
		t.Fatalf("rows = %d, want %d", len(db.calls), n)
	}
	ids := make(map[uuid.UUID]bool)
	for i, c := range db.calls {
		if c.args[5] != int64(1000+i) {
			t.Errorf("row %d timestamp = %v, want %d", i, c.args[5], 1000+i)
		}
		ids[c.args[0].(uuid.UUID)] = true
	}
	if len(ids) != n {
		t.Errorf("distinct ids = %d, want %d", len(ids), n)
	}
}

func TestPostgres_AppendError(t *testing.T) {
	cause := errors.New("connection reset")
	p := NewPostgres(&fakeDB{err: cause}, nil)

	err := p.Append(context.Background(), model.Observation{Symbol: "SOL", Price: 1})
	if !errors.Is(err, cause) {
		t.Errorf("err = %v, want wrapped cause", err)
	}
}

func TestPostgres_Ping(t *testing.T) {
	p := NewPostgres(&fakeDB{pingErr: errors.New("down")}, nil)
	if err := p.Ping(context.Background()); err == nil {
		t.Error("expected ping error")
	}
}
