package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func TestInsertRowSortedColumnsReturningID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	// Columns are sorted, so the generated SQL is deterministic.
	mock.ExpectQuery(`INSERT INTO properties \(address, city, state\) VALUES \(\$1, \$2, \$3\) RETURNING property_id`).
		WithArgs("123 Main St", "Austin", "TX").
		WillReturnRows(sqlmock.NewRows([]string{"property_id"}).AddRow(int64(41)))
	mock.ExpectCommit()

	st := NewPostgres(db)
	tx, err := st.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	id, err := tx.InsertRow(context.Background(), "properties", map[string]interface{}{
		"city":    "Austin",
		"state":   "TX",
		"address": "123 Main St",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id != 41 {
		t.Errorf("id = %d, want 41", id)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestInsertRowNoColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	st := NewPostgres(db)
	tx, _ := st.Begin(context.Background())
	if _, err := tx.InsertRow(context.Background(), "properties", nil); err == nil {
		t.Error("expected error for empty column map")
	}
	tx.Rollback()
}

func TestGetOrCreateHOA(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO hoa_associations \(hoa_name, management_company\)`).
		WithArgs("Sunset Hills HOA", "ABC Property Management").
		WillReturnRows(sqlmock.NewRows([]string{"hoa_id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	st := NewPostgres(db)
	tx, _ := st.Begin(context.Background())
	id, err := tx.GetOrCreateHOA(context.Background(), "Sunset Hills HOA", "ABC Property Management")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if id != 7 {
		t.Errorf("id = %d, want 7", id)
	}
	tx.Commit()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetOrCreateHOANullManagement(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO hoa_associations`).
		WithArgs("Oak Ridge Community", nil).
		WillReturnRows(sqlmock.NewRows([]string{"hoa_id"}).AddRow(int64(3)))
	mock.ExpectCommit()

	st := NewPostgres(db)
	tx, _ := st.Begin(context.Background())
	if _, err := tx.GetOrCreateHOA(context.Background(), "Oak Ridge Community", ""); err != nil {
		t.Fatalf("get or create: %v", err)
	}
	tx.Commit()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLookupLabels(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT type_name, valuation_type_id FROM valuation_types`).
		WillReturnRows(sqlmock.NewRows([]string{"type_name", "valuation_type_id"}).
			AddRow("Market Value", int64(1)).
			AddRow("Zestimate", int64(2)))

	st := NewPostgres(db)
	labels, err := st.LookupLabels(context.Background(), "valuation_types", "valuation_type_id", "type_name")
	if err != nil {
		t.Fatalf("lookup labels: %v", err)
	}
	if labels["Market Value"] != 1 || labels["Zestimate"] != 2 {
		t.Errorf("unexpected labels: %v", labels)
	}
}

func TestSavepointLifecycle(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`SAVEPOINT child_row`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT child_row`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	st := NewPostgres(db)
	tx, _ := st.Begin(context.Background())
	if err := tx.Savepoint(context.Background(), "child_row"); err != nil {
		t.Fatalf("savepoint: %v", err)
	}
	if err := tx.RollbackTo(context.Background(), "child_row"); err != nil {
		t.Fatalf("rollback to: %v", err)
	}
	tx.Commit()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", driver.ErrBadConn, true},
		{"connection exception class", &pq.Error{Code: "08006"}, true},
		{"admin shutdown", &pq.Error{Code: "57P01"}, true},
		{"constraint violation", &pq.Error{Code: "23505"}, false},
		{"refused", errors.New("dial tcp 127.0.0.1:5432: connection refused"), true},
		{"plain", errors.New("some row problem"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnavailable(tt.err); got != tt.want {
				t.Errorf("IsUnavailable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
