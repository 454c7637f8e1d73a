package indexes_test

import (
	"context"
	"errors"
	"testing"

	"github.com/devonwhite/dbmaint/internal/indexes"
	"github.com/devonwhite/dbmaint/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeDB struct {
	execErr error
	execSQL string
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = sql

	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}

	return pgconn.NewCommandTag("DROP INDEX"), nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func newAdmin(db indexes.DB) *indexes.Admin {
	return indexes.NewAdmin(db, observability.NewMetrics())
}

func TestDrop_MissingIndexIsBenign(t *testing.T) {
	db := &fakeDB{execErr: &pgconn.PgError{Code: "42704", Message: `index "stops_address_key" does not exist`}}

	dropped, err := newAdmin(db).Drop(context.Background(), "stops_address_key")
	if err != nil {
		t.Fatalf("missing index should not be an error, got %v", err)
	}
	if dropped {
		t.Fatalf("expected dropped=false for a missing index")
	}
}

func TestDrop_OtherPgErrorsPropagate(t *testing.T) {
	db := &fakeDB{execErr: &pgconn.PgError{Code: "42501", Message: "permission denied"}}

	dropped, err := newAdmin(db).Drop(context.Background(), "stops_address_key")
	if err == nil {
		t.Fatalf("expected error, got dropped=%v", dropped)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "42501" {
		t.Fatalf("original pg error should propagate, got %v", err)
	}
}

func TestDrop_PlainErrorsPropagate(t *testing.T) {
	db := &fakeDB{execErr: errors.New("connection reset")}

	_, err := newAdmin(db).Drop(context.Background(), "stops_address_key")
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestDrop_QuotesIdentifier(t *testing.T) {
	db := &fakeDB{}

	dropped, err := newAdmin(db).Drop(context.Background(), "stops_address_key")
	if err != nil {
		t.Fatalf("Drop error: %v", err)
	}
	if !dropped {
		t.Fatalf("expected dropped=true")
	}

	want := `DROP INDEX "stops_address_key"`
	if db.execSQL != want {
		t.Fatalf("got %q, want %q", db.execSQL, want)
	}
}
