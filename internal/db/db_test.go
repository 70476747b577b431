package db

import (
	"context"
	"errors"
	"testing"
)

func TestNewPostgresPool_NoDSN(t *testing.T) {
	pool, err := NewPostgresPool(context.Background(), "")
	if !errors.Is(err, ErrNoDSN) {
		t.Fatalf("expected ErrNoDSN, got %v", err)
	}
	if pool != nil {
		t.Fatal("expected nil pool")
	}
}

func TestNewPostgresPool_InvalidDSN(t *testing.T) {
	if _, err := NewPostgresPool(context.Background(), "::not a dsn::"); err == nil {
		t.Fatal("expected error for invalid dsn")
	}
}
