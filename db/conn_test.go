package db

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestNewPool_RejectsEmpty(t *testing.T) {
	if _, err := NewPool(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty connection string")
	}
}

func TestNewPool_RejectsUnparsable(t *testing.T) {
	if _, err := NewPool(context.Background(), "postgres://%zz"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestOptions(t *testing.T) {
	cfg, err := pgxpool.ParseConfig("postgres://u:p@localhost:5432/claims")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	WithMaxConns(8)(cfg)
	WithConnLifetime(30*time.Second, 0)(cfg)

	if cfg.MaxConns != 8 {
		t.Fatalf("expected 8 max conns, got %d", cfg.MaxConns)
	}
	if cfg.MaxConnIdleTime != 30*time.Second {
		t.Fatalf("expected 30s idle, got %s", cfg.MaxConnIdleTime)
	}
	if cfg.MaxConnLifetime == 0 {
		t.Fatal("zero lifetime must keep the default")
	}
}
