package transform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `Raw_Field_Name,Target_Table,Target_Column,Data_Type,Business_Logic,Required,Example_Value
address,properties,address,VARCHAR,Full street address,True,123 Main St
bedrooms,property_details,bedrooms,INT,Number of bedrooms,False,3
year_built,property_details,year_built,YEAR,Year built,False,1995
`

func TestReadFieldConfig(t *testing.T) {
	mapping, err := ReadFieldConfig(strings.NewReader(sampleConfig))
	require.NoError(t, err)
	require.Len(t, mapping, 3)

	assert.Equal(t, FieldTarget{
		Table: "properties", Column: "address", Type: TypeVarchar,
		Logic: "Full street address",
	}, mapping["address"])
	assert.Equal(t, TypeInt, mapping["bedrooms"].Type)
	assert.Equal(t, TypeYear, mapping["year_built"].Type)
}

func TestReadFieldConfigBOM(t *testing.T) {
	mapping, err := ReadFieldConfig(strings.NewReader("\xEF\xBB\xBF" + sampleConfig))
	require.NoError(t, err)
	assert.Len(t, mapping, 3)
}

func TestReadFieldConfigDuplicateLastWins(t *testing.T) {
	config := `Raw_Field_Name,Target_Table,Target_Column,Data_Type,Business_Logic
zip,properties,zip_code,VARCHAR,first entry
zip,properties,postal_code,VARCHAR,second entry
`
	mapping, err := ReadFieldConfig(strings.NewReader(config))
	require.NoError(t, err)
	assert.Equal(t, "postal_code", mapping["zip"].Column)
}

func TestReadFieldConfigSkipsIncompleteRows(t *testing.T) {
	config := `Raw_Field_Name,Target_Table,Target_Column,Data_Type,Business_Logic
address,properties,address,VARCHAR,ok
,properties,city,VARCHAR,missing raw field
city,,city,VARCHAR,missing table
`
	mapping, err := ReadFieldConfig(strings.NewReader(config))
	require.NoError(t, err)
	assert.Len(t, mapping, 1)
}

func TestReadFieldConfigDefaultsTypeToVarchar(t *testing.T) {
	config := `Raw_Field_Name,Target_Table,Target_Column,Data_Type,Business_Logic
county,properties,county,,County name
`
	mapping, err := ReadFieldConfig(strings.NewReader(config))
	require.NoError(t, err)
	assert.Equal(t, TypeVarchar, mapping["county"].Type)
}

func TestReadFieldConfigMissingColumns(t *testing.T) {
	_, err := ReadFieldConfig(strings.NewReader("Field,Table\nfoo,bar\n"))
	assert.Error(t, err)
}

func TestReadFieldConfigEmpty(t *testing.T) {
	_, err := ReadFieldConfig(strings.NewReader(""))
	assert.Error(t, err)
}

func TestDefaultMapping(t *testing.T) {
	mapping := DefaultMapping()
	assert.Equal(t, "properties", mapping["address"].Table)
	assert.Equal(t, TypeYear, mapping["year_built"].Type)
	assert.Equal(t, "zip_code", mapping["zip"].Column)
}
