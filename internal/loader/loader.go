// Package loader performs the dependency-ordered, per-record transactional
// load of transformed property records: parent row first, then details,
// valuations, rehab estimates, and HOA rows, with one commit per source
// record.
package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/property-etl/internal/pkg/logger"
	"github.com/ignite/property-etl/internal/store"
	"github.com/ignite/property-etl/internal/transform"
)

// ErrNoPropertyData rejects a record with no resolvable root-table columns
// before any insert is attempted.
var ErrNoPropertyData = errors.New("record has no property data")

const childSavepoint = "child_row"

// Entities are the extracted related rows accompanying one transformed record.
type Entities struct {
	Valuations     []transform.Valuation
	RehabEstimates []transform.RehabEstimate
	HOAEntries     []transform.HOAEntry
}

// Result reports the outcome of loading one record.
type Result struct {
	PropertyID      int64
	SkippedEntities int // child rows dropped on unknown labels or insert errors
}

// Loader resolves reference labels and writes records through the store.
// The valuation-type and rehab-category vocabularies are loaded once at
// construction; unknown labels skip only the affected sub-insert.
type Loader struct {
	store           store.Store
	valuationTypes  map[string]int64
	rehabCategories map[string]int64
}

// New creates a Loader and preloads the reference-table caches.
func New(ctx context.Context, st store.Store) (*Loader, error) {
	valuationTypes, err := st.LookupLabels(ctx, "valuation_types", "valuation_type_id", "type_name")
	if err != nil {
		return nil, fmt.Errorf("load valuation types: %w", err)
	}
	rehabCategories, err := st.LookupLabels(ctx, "rehab_categories", "category_id", "category_name")
	if err != nil {
		return nil, fmt.Errorf("load rehab categories: %w", err)
	}
	return &Loader{
		store:           st,
		valuationTypes:  valuationTypes,
		rehabCategories: rehabCategories,
	}, nil
}

// Load writes one record and its related entities inside a single
// transaction. The properties row is inserted first and its generated id
// feeds every child row. Child-row failures are local: the row is skipped
// with a diagnostic and the rest of the record still commits. Only a missing
// root table, a failed parent insert, or a failed commit fail the record.
func (l *Loader) Load(ctx context.Context, record transform.TransformedRecord, entities Entities) (Result, error) {
	propertyCols, ok := record["properties"]
	if !ok || len(propertyCols) == 0 {
		return Result{}, ErrNoPropertyData
	}

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("begin record transaction: %w", err)
	}

	propertyID, err := tx.InsertRow(ctx, "properties", propertyCols)
	if err != nil {
		tx.Rollback()
		return Result{}, fmt.Errorf("insert property: %w", err)
	}

	var skipped int

	if details, ok := record["property_details"]; ok && len(details) > 0 {
		cols := withPropertyID(details, propertyID)
		if !l.insertChild(ctx, tx, "property_details", cols) {
			skipped++
		}
	}

	for _, v := range entities.Valuations {
		typeID, ok := l.valuationTypes[v.Type]
		if !ok {
			logger.Warn("valuation type not found, skipping row",
				"type", v.Type, "property_id", propertyID)
			skipped++
			continue
		}
		cols := map[string]interface{}{
			"property_id":       propertyID,
			"valuation_type_id": typeID,
			"valuation_amount":  v.Amount,
			"valuation_date":    v.Date,
			"source":            v.Source,
		}
		if !l.insertChild(ctx, tx, "property_valuations", cols) {
			skipped++
		}
	}

	for _, e := range entities.RehabEstimates {
		categoryID, ok := l.rehabCategories[e.Category]
		if !ok {
			logger.Warn("rehab category not found, skipping row",
				"category", e.Category, "property_id", propertyID)
			skipped++
			continue
		}
		cols := map[string]interface{}{
			"property_id":    propertyID,
			"category_id":    categoryID,
			"estimated_cost": e.Cost,
			"priority_level": e.Priority,
			"estimate_date":  e.Date,
		}
		if !l.insertChild(ctx, tx, "property_rehab_estimates", cols) {
			skipped++
		}
	}

	for _, h := range entities.HOAEntries {
		skipped += l.insertHOA(ctx, tx, propertyID, h)
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit record: %w", err)
	}

	return Result{PropertyID: propertyID, SkippedEntities: skipped}, nil
}

// insertChild wraps one child insert in a savepoint so a constraint failure
// aborts only that row, not the record's transaction. Returns false if the
// row was skipped.
func (l *Loader) insertChild(ctx context.Context, tx store.Tx, table string, cols map[string]interface{}) bool {
	if err := tx.Savepoint(ctx, childSavepoint); err != nil {
		logger.Warn("savepoint failed, skipping row", "table", table, "error", err)
		return false
	}
	if _, err := tx.InsertRow(ctx, table, cols); err != nil {
		tx.RollbackTo(ctx, childSavepoint)
		logger.Warn("child insert failed, skipping row", "table", table, "error", err)
		return false
	}
	tx.Release(ctx, childSavepoint)
	return true
}

// insertHOA resolves the association by name when one is present, then
// inserts the property_hoa_data row. Association resolution failure drops
// only the association link; the fee row is still written, matching the
// source behavior. Returns the number of skipped rows (0, 1, or 2).
func (l *Loader) insertHOA(ctx context.Context, tx store.Tx, propertyID int64, h transform.HOAEntry) int {
	skipped := 0

	cols := map[string]interface{}{
		"property_id":    propertyID,
		"monthly_fee":    h.MonthlyFee,
		"effective_date": h.Date,
	}

	if h.Name != "" {
		hoaID, ok := l.resolveHOA(ctx, tx, h.Name, h.ManagementCompany)
		if ok {
			cols["hoa_id"] = hoaID
		} else {
			skipped++
		}
	}
	if h.SpecialAssessment != nil {
		cols["special_assessment"] = *h.SpecialAssessment
	}
	if h.Amenities != "" {
		cols["amenities"] = h.Amenities
	}

	if !l.insertChild(ctx, tx, "property_hoa_data", cols) {
		skipped++
	}
	return skipped
}

func (l *Loader) resolveHOA(ctx context.Context, tx store.Tx, name, managementCompany string) (int64, bool) {
	if err := tx.Savepoint(ctx, childSavepoint); err != nil {
		logger.Warn("savepoint failed, dropping hoa association", "hoa_name", name, "error", err)
		return 0, false
	}
	id, err := tx.GetOrCreateHOA(ctx, name, managementCompany)
	if err != nil {
		tx.RollbackTo(ctx, childSavepoint)
		logger.Warn("hoa association upsert failed", "hoa_name", name, "error", err)
		return 0, false
	}
	tx.Release(ctx, childSavepoint)
	return id, true
}

func withPropertyID(cols map[string]interface{}, propertyID int64) map[string]interface{} {
	out := make(map[string]interface{}, len(cols)+1)
	for k, v := range cols {
		out[k] = v
	}
	out["property_id"] = propertyID
	return out
}
