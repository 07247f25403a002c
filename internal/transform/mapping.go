package transform

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ignite/property-etl/internal/pkg/logger"
)

// Field-config column headers, matching the sheet the mapping is exported from.
const (
	colRawField      = "Raw_Field_Name"
	colTargetTable   = "Target_Table"
	colTargetColumn  = "Target_Column"
	colDataType      = "Data_Type"
	colBusinessLogic = "Business_Logic"
)

// LoadFieldConfig reads a field-mapping CSV (the exported field-config sheet)
// into a FieldMapping. Rows missing any of raw field, table, or column are
// skipped. Duplicate raw field names keep the last row and log a warning.
func LoadFieldConfig(path string) (FieldMapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open field config: %w", err)
	}
	defer f.Close()

	mapping, err := ReadFieldConfig(f)
	if err != nil {
		return nil, fmt.Errorf("read field config %s: %w", path, err)
	}
	logger.Info("loaded field config", "path", path, "fields", len(mapping))
	return mapping, nil
}

// ReadFieldConfig parses field-config CSV content from a reader.
func ReadFieldConfig(r io.Reader) (FieldMapping, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("field config is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{colRawField, colTargetTable, colTargetColumn} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("field config missing column %q", required)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	mapping := make(FieldMapping)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		rawField := cell(row, colRawField)
		table := cell(row, colTargetTable)
		column := cell(row, colTargetColumn)
		if rawField == "" || table == "" || column == "" {
			continue
		}

		dataType := DataType(strings.ToUpper(cell(row, colDataType)))
		if dataType == "" {
			dataType = TypeVarchar
		}

		if prev, dup := mapping[rawField]; dup {
			// Last row wins, matching the source behavior; surface it loudly.
			logger.Warn("duplicate raw field in config, last entry wins",
				"raw_field", rawField,
				"kept", table+"."+column,
				"discarded", prev.Table+"."+prev.Column)
		}
		mapping[rawField] = FieldTarget{
			Table:  table,
			Column: column,
			Type:   dataType,
			Logic:  cell(row, colBusinessLogic),
		}
	}

	if len(mapping) == 0 {
		return nil, fmt.Errorf("field config has no usable rows")
	}
	return mapping, nil
}

// DefaultMapping is the compiled-in fallback used when no field config file
// is available. It covers the common fields of the sample dialect only.
func DefaultMapping() FieldMapping {
	return FieldMapping{
		"address":     {Table: "properties", Column: "address", Type: TypeVarchar},
		"city":        {Table: "properties", Column: "city", Type: TypeVarchar},
		"state":       {Table: "properties", Column: "state", Type: TypeVarchar},
		"zip":         {Table: "properties", Column: "zip_code", Type: TypeVarchar},
		"bedrooms":    {Table: "property_details", Column: "bedrooms", Type: TypeInt},
		"bathrooms":   {Table: "property_details", Column: "bathrooms", Type: TypeDecimal},
		"square_feet": {Table: "property_details", Column: "square_feet", Type: TypeInt},
		"year_built":  {Table: "property_details", Column: "year_built", Type: TypeYear},
	}
}

// stripBOM removes a UTF-8 BOM if the stream starts with one.
func stripBOM(r io.Reader) io.Reader {
	buf := make([]byte, 3)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		return io.MultiReader(strings.NewReader(string(buf[:n])), r)
	}
	if buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
		return r
	}
	return io.MultiReader(strings.NewReader(string(buf[:3])), r)
}
