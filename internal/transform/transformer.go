package transform

import (
	"time"

	"github.com/ignite/property-etl/internal/pkg/logger"
)

// Transformer turns one raw JSON property record into its table-partitioned,
// type-coerced representation plus the extracted related entities. It holds
// no per-record state; a single Transformer serves a whole pipeline run.
type Transformer struct {
	mapping FieldMapping
	now     func() time.Time
}

// NewTransformer creates a Transformer over an immutable field mapping.
func NewTransformer(mapping FieldMapping) *Transformer {
	return &Transformer{mapping: mapping, now: time.Now}
}

// Transform runs the simple field-mapping pass: every raw key with a config
// entry is coerced and placed under result[table][column]. Absent values are
// dropped, unmapped fields are ignored (and counted), coercion failures are
// logged at WARN and counted, and none of these fail the record.
func (t *Transformer) Transform(raw map[string]interface{}) (TransformedRecord, Stats) {
	result := make(TransformedRecord)
	var stats Stats

	for field, value := range raw {
		target, ok := t.mapping[field]
		if !ok {
			stats.UnmappedFields++
			continue
		}

		coerced, err := Coerce(value, target.Type)
		if err != nil {
			logger.Warn("coercion failed, dropping field",
				"field", field, "type", string(target.Type), "value", value)
			stats.CoercionFailures++
			continue
		}
		if coerced == nil {
			continue
		}

		if result[target.Table] == nil {
			result[target.Table] = make(map[string]interface{})
		}
		result[target.Table][target.Column] = coerced
		stats.MappedFields++
	}

	return result, stats
}
