package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ValidationReport summarizes post-load integrity and quality checks.
type ValidationReport struct {
	TableCounts     map[string]int64 `json:"table_counts"`
	OrphanedRows    map[string]int64 `json:"orphaned_rows"`
	QualityProblems map[string]int64 `json:"quality_problems"`
}

// Clean reports whether every integrity and quality check came back zero.
func (r *ValidationReport) Clean() bool {
	for _, n := range r.OrphanedRows {
		if n != 0 {
			return false
		}
	}
	for _, n := range r.QualityProblems {
		if n != 0 {
			return false
		}
	}
	return true
}

var countedTables = []string{
	"properties", "property_details", "property_valuations",
	"property_rehab_estimates", "property_hoa_data",
	"hoa_associations", "valuation_types", "rehab_categories",
}

var orphanChecks = map[string]string{
	"property_details": `
		SELECT COUNT(*) FROM property_details pd
		LEFT JOIN properties p ON pd.property_id = p.property_id
		WHERE p.property_id IS NULL`,
	"property_valuations": `
		SELECT COUNT(*) FROM property_valuations pv
		LEFT JOIN properties p ON pv.property_id = p.property_id
		WHERE p.property_id IS NULL`,
	"property_rehab_estimates": `
		SELECT COUNT(*) FROM property_rehab_estimates pre
		LEFT JOIN properties p ON pre.property_id = p.property_id
		WHERE p.property_id IS NULL`,
	"property_hoa_data": `
		SELECT COUNT(*) FROM property_hoa_data ph
		LEFT JOIN properties p ON ph.property_id = p.property_id
		WHERE p.property_id IS NULL`,
}

var qualityChecks = map[string]string{
	"properties_missing_address": `
		SELECT COUNT(*) FROM properties WHERE address IS NULL OR address = ''`,
	"properties_invalid_coordinates": `
		SELECT COUNT(*) FROM properties
		WHERE latitude < -90 OR latitude > 90 OR longitude < -180 OR longitude > 180`,
	"details_invalid_bedrooms": `
		SELECT COUNT(*) FROM property_details WHERE bedrooms < 0 OR bedrooms > 20`,
	"details_invalid_bathrooms": `
		SELECT COUNT(*) FROM property_details WHERE bathrooms < 0 OR bathrooms > 20`,
	"valuations_nonpositive_amount": `
		SELECT COUNT(*) FROM property_valuations WHERE valuation_amount <= 0`,
	"rehab_nonpositive_cost": `
		SELECT COUNT(*) FROM property_rehab_estimates WHERE estimated_cost <= 0`,
}

// Validate runs the post-load table counts, referential-integrity checks,
// and data-quality checks against the live schema.
func (p *Postgres) Validate(ctx context.Context) (*ValidationReport, error) {
	report := &ValidationReport{
		TableCounts:     make(map[string]int64),
		OrphanedRows:    make(map[string]int64),
		QualityProblems: make(map[string]int64),
	}

	for _, table := range countedTables {
		n, err := p.countQuery(ctx, "SELECT COUNT(*) FROM "+table)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		report.TableCounts[table] = n
	}

	for name, q := range orphanChecks {
		n, err := p.countQuery(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("integrity check %s: %w", name, err)
		}
		report.OrphanedRows[name] = n
	}

	for name, q := range qualityChecks {
		n, err := p.countQuery(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("quality check %s: %w", name, err)
		}
		report.QualityProblems[name] = n
	}

	return report, nil
}

func (p *Postgres) countQuery(ctx context.Context, q string) (int64, error) {
	var n int64
	if err := p.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}
