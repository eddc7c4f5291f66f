package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64 // Simulates DB sequence value
	lastIncr     int64 // Track last increment passed
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Strict strategy passes (key string); increment is the implicit +1.
	// Cached strategy passes (key string, increment int64).
	var increment int64 = 1
	if len(args) == 2 {
		if val, ok := args[1].(int64); ok {
			increment = val
		}
	}

	m.currentValue += increment
	m.lastIncr = increment

	return &mockRow{val: m.currentValue}
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("TEST")

	year := time.Now().Format("2006")

	num, err := svc.GetNextNumber(ctx, cfg, nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "TEST-"+year+"-00001" { // mock starts at 1
		t.Errorf("expected TEST-%s-00001, got %s", year, num)
	}

	num, err = svc.GetNextNumber(ctx, cfg, nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "TEST-"+year+"-00002" {
		t.Errorf("expected TEST-%s-00002, got %s", year, num)
	}
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("SAL")

	opts := &Options{
		Strategy:  StrategyCached,
		RangeSize: 10,
	}

	year := time.Now().Format("2006")

	// First call triggers a DB fetch reserving 1..10.
	num, err := svc.GetNextNumber(ctx, cfg, opts, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "SAL-"+year+"-00001" {
		t.Errorf("expected SAL-%s-00001, got %s", year, num)
	}
	if q.currentValue != 10 {
		t.Errorf("expected DB value to be 10, got %d", q.currentValue)
	}

	// Second call is served from memory, DB must not change.
	num, err = svc.GetNextNumber(ctx, cfg, opts, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "SAL-"+year+"-00002" {
		t.Errorf("expected SAL-%s-00002, got %s", year, num)
	}
	if q.currentValue != 10 {
		t.Errorf("expected DB value to stay 10, got %d", q.currentValue)
	}

	// Exhaust the range; the next call reserves 11..20.
	for i := 0; i < 8; i++ {
		_, _ = svc.GetNextNumber(ctx, cfg, opts, time.Now())
	}

	num, err = svc.GetNextNumber(ctx, cfg, opts, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "SAL-"+year+"-00011" {
		t.Errorf("expected SAL-%s-00011, got %s", year, num)
	}
	if q.currentValue != 20 {
		t.Errorf("expected DB value to be 20, got %d", q.currentValue)
	}
}

func TestParseNumber(t *testing.T) {
	if got := ParseNumber("SAL-2026-00042"); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := ParseNumber("INV-00007"); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if got := ParseNumber("garbage"); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
}
