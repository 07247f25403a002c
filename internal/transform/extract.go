package transform

// Extraction synthesizes zero or more related-entity rows from one raw
// record. Two historical source dialects exist: a nested one carrying arrays
// of sub-objects under known top-level keys, and a flat one with scalar
// top-level fields. Both may appear in the same record; results from the two
// shapes are concatenated, never deduplicated.

const (
	sourceNested = "ETL Import - Nested"
	sourceFlat   = "ETL Import - Flat"
)

type labeledField struct {
	field string
	label string
}

// Valuation sub-fields of a nested "Valuation" element, each mapped to its
// valuation-type label.
var nestedValuationFields = []labeledField{
	{"List_Price", "List Price"},
	{"Zestimate", "Zestimate"},
	{"ARV", "ARV"},
	{"Expected_Rent", "Expected Rent"},
	{"Rent_Zestimate", "Rent Zestimate"},
	{"Low_FMR", "Low FMR"},
	{"High_FMR", "High FMR"},
	{"Redfin_Value", "Redfin Value"},
	{"Previous_Rent", "Previous Rent"},
}

// Flat top-level valuation fields.
var flatValuationFields = []labeledField{
	{"market_value", "Market Value"},
	{"tax_assessment", "Tax Assessment"},
	{"insurance_value", "Insurance Value"},
	{"rental_estimate", "Rental Value"},
}

// Boolean rehab flags of a nested "Rehab" element and the category each implies.
var rehabFlagFields = []labeledField{
	{"Paint", "Interior"},
	{"Flooring_Flag", "Flooring"},
	{"Foundation_Flag", "Structural"},
	{"Roof_Flag", "Roofing"},
	{"HVAC_Flag", "HVAC"},
	{"Kitchen_Flag", "Kitchen"},
	{"Bathroom_Flag", "Bathroom"},
	{"Appliances_Flag", "Kitchen"},
	{"Windows_Flag", "Exterior"},
	{"Landscaping_Flag", "Exterior"},
}

// Placeholder costs per category for flag-derived rehab items.
var rehabFlagCosts = map[string]float64{
	"Interior":   3000,
	"Flooring":   5000,
	"Structural": 15000,
	"Roofing":    12000,
	"HVAC":       6000,
	"Kitchen":    15000,
	"Bathroom":   8000,
	"Exterior":   7000,
}

const rehabDefaultCost = 5000

// Flat top-level rehab cost fields.
var flatRehabFields = []labeledField{
	{"kitchen_rehab", "Kitchen"},
	{"bathroom_rehab", "Bathroom"},
	{"flooring_cost", "Flooring"},
	{"roof_repair", "Roofing"},
	{"hvac_cost", "HVAC"},
	{"electrical_work", "Electrical"},
	{"plumbing_work", "Plumbing"},
	{"interior_paint", "Interior"},
	{"exterior_paint", "Exterior"},
}

// ExtractValuations pulls valuation rows from both source shapes. Only
// strictly positive numeric amounts are kept; everything else is skipped
// silently. The call is pure with respect to its input.
func (t *Transformer) ExtractValuations(raw map[string]interface{}) []Valuation {
	var valuations []Valuation
	date := t.now()

	if nested, ok := raw["Valuation"].([]interface{}); ok {
		for _, elem := range nested {
			rec, ok := elem.(map[string]interface{})
			if !ok {
				continue
			}
			for _, lf := range nestedValuationFields {
				amount, ok := positiveAmount(rec[lf.field])
				if !ok {
					continue
				}
				valuations = append(valuations, Valuation{
					Type:   lf.label,
					Amount: amount,
					Date:   date,
					Source: sourceNested,
				})
			}
		}
	}

	for _, lf := range flatValuationFields {
		amount, ok := positiveAmount(raw[lf.field])
		if !ok {
			continue
		}
		valuations = append(valuations, Valuation{
			Type:   lf.label,
			Amount: amount,
			Date:   date,
			Source: sourceFlat,
		})
	}

	return valuations
}

// ExtractRehabEstimates pulls rehab rows from both source shapes. Nested
// elements carry an aggregate Underwriting_Rehab cost plus boolean flags
// that each imply a category with a fixed placeholder cost; flat records
// carry named cost fields.
func (t *Transformer) ExtractRehabEstimates(raw map[string]interface{}) []RehabEstimate {
	var estimates []RehabEstimate
	date := t.now()

	if nested, ok := raw["Rehab"].([]interface{}); ok {
		for _, elem := range nested {
			rec, ok := elem.(map[string]interface{})
			if !ok {
				continue
			}

			if cost, ok := positiveAmount(rec["Underwriting_Rehab"]); ok {
				estimates = append(estimates, RehabEstimate{
					Category: "Structural",
					Cost:     cost,
					Priority: PriorityHigh,
					Date:     date,
				})
			}

			for _, lf := range rehabFlagFields {
				flag, present := rec[lf.field]
				if !present || !flagSet(flag) {
					continue
				}
				cost, ok := rehabFlagCosts[lf.label]
				if !ok {
					cost = rehabDefaultCost
				}
				estimates = append(estimates, RehabEstimate{
					Category: lf.label,
					Cost:     cost,
					Priority: PriorityMedium,
					Date:     date,
				})
			}
		}
	}

	for _, lf := range flatRehabFields {
		cost, ok := positiveAmount(raw[lf.field])
		if !ok {
			continue
		}
		estimates = append(estimates, RehabEstimate{
			Category: lf.label,
			Cost:     cost,
			Priority: PriorityMedium,
			Date:     date,
		})
	}

	return estimates
}

// ExtractHOAData pulls HOA rows from both source shapes. Nested entries are
// kept only when they carry a positive fee; the flat shape adds the sibling
// descriptive fields when present.
func (t *Transformer) ExtractHOAData(raw map[string]interface{}) []HOAEntry {
	var entries []HOAEntry
	date := t.now()

	if nested, ok := raw["HOA"].([]interface{}); ok {
		for _, elem := range nested {
			rec, ok := elem.(map[string]interface{})
			if !ok {
				continue
			}

			flag := "No"
			if f, ok := rec["HOA_Flag"]; ok && f != nil {
				flag = stringify(f)
			}

			fee, ok := positiveAmount(rec["HOA"])
			if !ok {
				continue
			}
			entries = append(entries, HOAEntry{
				MonthlyFee: fee,
				Flag:       flag,
				Date:       date,
			})
		}
	}

	if fee, ok := positiveAmount(raw["hoa_monthly_fee"]); ok {
		entry := HOAEntry{
			MonthlyFee:        fee,
			Name:              stringOrEmpty(raw["hoa_name"]),
			Amenities:         stringOrEmpty(raw["hoa_amenities"]),
			ManagementCompany: stringOrEmpty(raw["hoa_management"]),
			Date:              date,
		}
		if sa, ok := toFloat(raw["hoa_special_assessment"]); ok {
			entry.SpecialAssessment = &sa
		}
		entries = append(entries, entry)
	}

	return entries
}

// positiveAmount parses a raw value as a strictly positive float.
func positiveAmount(value interface{}) (float64, bool) {
	if value == nil {
		return 0, false
	}
	f, ok := toFloat(value)
	if !ok || f <= 0 {
		return 0, false
	}
	return f, true
}

// flagSet reports whether a rehab flag value counts as set.
// Accepted truthy forms: "Yes", "yes", true, 1, "1".
func flagSet(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "Yes" || v == "yes" || v == "1"
	case float64:
		return v == 1
	case int:
		return v == 1
	default:
		return false
	}
}

func stringOrEmpty(value interface{}) string {
	if value == nil {
		return ""
	}
	return stringify(value)
}
