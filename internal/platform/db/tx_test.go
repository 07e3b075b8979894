package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeBeginner struct {
	tx    *fakeTx
	calls int
}

func (f *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	f.calls++
	return f.tx, nil
}

func TestWithTx_Commits(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	err := WithTx(context.Background(), b, func(ctx context.Context) error {
		if TxFromContext(ctx) == nil {
			t.Error("expected transaction in context")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.tx.committed {
		t.Error("expected commit")
	}
	if b.tx.rolledBack {
		t.Error("did not expect rollback after commit")
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	want := errors.New("boom")
	err := WithTx(context.Background(), b, func(ctx context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if b.tx.committed {
		t.Error("did not expect commit")
	}
	if !b.tx.rolledBack {
		t.Error("expected rollback")
	}
}

func TestWithTx_ReusesOuterTransaction(t *testing.T) {
	outer := &fakeTx{}
	b := &fakeBeginner{tx: &fakeTx{}}
	ctx := ContextWithTx(context.Background(), outer)

	err := WithTx(ctx, b, func(ctx context.Context) error {
		if TxFromContext(ctx) != outer {
			t.Error("expected outer transaction")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.calls != 0 {
		t.Errorf("expected no new transaction, got %d", b.calls)
	}
}

func TestTxFromContext_Empty(t *testing.T) {
	if TxFromContext(context.Background()) != nil {
		t.Error("expected nil transaction")
	}
}
