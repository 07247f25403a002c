package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// idColumns maps each table to its generated-identifier column, appended as
// a RETURNING clause on insert.
var idColumns = map[string]string{
	"properties":               "property_id",
	"property_details":         "detail_id",
	"property_valuations":      "valuation_id",
	"property_rehab_estimates": "estimate_id",
	"property_hoa_data":        "hoa_data_id",
	"hoa_associations":         "hoa_id",
}

// Postgres implements Store against PostgreSQL.
type Postgres struct{ db *sql.DB }

// NewPostgres creates a Postgres-backed store.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (p *Postgres) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

func (p *Postgres) LookupLabels(ctx context.Context, table, idColumn, labelColumn string) (map[string]int64, error) {
	// Table and column names come from compiled-in constants, never input.
	q := fmt.Sprintf("SELECT %s, %s FROM %s", labelColumn, idColumn, table)
	rows, err := p.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("lookup labels %s: %w", table, err)
	}
	defer rows.Close()

	labels := make(map[string]int64)
	for rows.Next() {
		var label string
		var id int64
		if err := rows.Scan(&label, &id); err != nil {
			return nil, fmt.Errorf("scan label %s: %w", table, err)
		}
		labels[label] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate labels %s: %w", table, err)
	}
	return labels, nil
}

type pgTx struct{ tx *sql.Tx }

// InsertRow builds the insert from the column map with a deterministic
// (sorted) column order, so generated SQL is stable for a given row shape.
func (t *pgTx) InsertRow(ctx context.Context, table string, columns map[string]interface{}) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("insert %s: no columns", table)
	}

	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	placeholders := make([]string, len(names))
	values := make([]interface{}, len(names))
	for i, name := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		values[i] = columns[name]
	}

	idColumn, hasID := idColumns[table]
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(placeholders, ", "))

	if !hasID {
		if _, err := t.tx.ExecContext(ctx, q, values...); err != nil {
			return 0, fmt.Errorf("insert %s: %w", table, err)
		}
		return 0, nil
	}

	q += " RETURNING " + idColumn
	var id int64
	if err := t.tx.QueryRowContext(ctx, q, values...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}
	return id, nil
}

// GetOrCreateHOA is a single-statement upsert keyed by the association's
// natural key, so concurrent loads cannot create duplicate rows. The DO
// UPDATE no-op touch makes RETURNING yield the id on the conflict path too.
func (t *pgTx) GetOrCreateHOA(ctx context.Context, name string, managementCompany string) (int64, error) {
	var mgmt sql.NullString
	if managementCompany != "" {
		mgmt = sql.NullString{String: managementCompany, Valid: true}
	}

	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO hoa_associations (hoa_name, management_company)
		VALUES ($1, $2)
		ON CONFLICT (hoa_name) DO UPDATE SET hoa_name = EXCLUDED.hoa_name
		RETURNING hoa_id
	`, name, mgmt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("get or create hoa %q: %w", name, err)
	}
	return id, nil
}

func (t *pgTx) Savepoint(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name)
	return err
}

func (t *pgTx) RollbackTo(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name)
	return err
}

func (t *pgTx) Release(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}

func (t *pgTx) Commit() error   { return t.tx.Commit() }
func (t *pgTx) Rollback() error { return t.tx.Rollback() }
