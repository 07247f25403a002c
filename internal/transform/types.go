package transform

import "time"

// DataType is the declared coercion type for a mapped field, as written in
// the Data_Type column of the field configuration.
type DataType string

const (
	TypeInt              DataType = "INT"
	TypeDecimal          DataType = "DECIMAL"
	TypeYear             DataType = "YEAR"
	TypeBoolean          DataType = "BOOLEAN"
	TypeVarcharToBoolean DataType = "VARCHAR_TO_BOOLEAN"
	TypeVarchar          DataType = "VARCHAR"
)

// FieldTarget describes where a raw field lands and how its value is coerced.
type FieldTarget struct {
	Table  string
	Column string
	Type   DataType
	Logic  string // free-text business note from the config, not interpreted
}

// FieldMapping maps raw JSON field names to their relational targets.
// Loaded once per pipeline run and treated as immutable afterwards.
type FieldMapping map[string]FieldTarget

// TransformedRecord holds coerced values partitioned by target table.
// Values that coerced to absent are never stored; the column is simply missing.
type TransformedRecord map[string]map[string]interface{}

// Stats counts what happened to one raw record during the simple mapping pass.
type Stats struct {
	MappedFields     int
	UnmappedFields   int
	CoercionFailures int
}

// Priority levels attached to rehab estimates.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
)

// Valuation is one extracted valuation row for a property.
type Valuation struct {
	Type   string
	Amount float64
	Date   time.Time
	Source string
}

// RehabEstimate is one extracted rehab cost row for a property.
type RehabEstimate struct {
	Category string
	Cost     float64
	Priority string
	Date     time.Time
}

// HOAEntry is one extracted HOA row for a property. Name and the descriptive
// fields are only present in the flat source shape; Flag only in the nested one.
type HOAEntry struct {
	MonthlyFee        float64
	Flag              string
	Name              string
	SpecialAssessment *float64
	Amenities         string
	ManagementCompany string
	Date              time.Time
}
