package bins

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableWithColumns(names ...string) *Table {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Values: []Value{}}
	}
	return MustTable(cols...)
}

func TestNormalizeColumnName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Bank Name", "bank_name"},
		{"BIN", "bin"},
		{"Country Code", "country_code"},
		{"  Card-Type ", "card_type"},
		{"País", "pais"},
		{"Categoría", "categoria"},
		{"Unnamed: 0", "unnamed:_0"},
		{"two  spaces", "two__spaces"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeColumnName(tt.in))
		})
	}
}

func TestDetect_HeaderScenario(t *testing.T) {
	names := NormalizeColumnNames([]string{"Bank Name", "BIN", "Country Code"})
	require.Equal(t, []string{"bank_name", "bin", "country_code"}, names)

	m := Detect(tableWithColumns(names...))

	assert.Equal(t, "bank_name", m[DimBank])
	assert.Equal(t, "bin", m[DimBIN])
	assert.Equal(t, "country_code", m[DimCountryCode])
}

func TestDetect_Synonyms(t *testing.T) {
	m := Detect(tableWithColumns("issuer_name", "alpha_2", "is_prepaid", "bin_number"))

	assert.Equal(t, "issuer_name", m[DimBank])
	assert.Equal(t, "alpha_2", m[DimCountryCode])
	assert.Equal(t, "is_prepaid", m[DimPrepaid])
	assert.Equal(t, "bin_number", m[DimBIN])
}

func TestDetect_ExactBeatsPartial(t *testing.T) {
	// "issuer_bank" contains "bank" and comes first, but "bank" is exact.
	m := Detect(tableWithColumns("issuer_bank", "bank"))
	assert.Equal(t, "bank", m[DimBank])
}

func TestDetect_PartialFirstColumnWins(t *testing.T) {
	// Column order decides, not synonym order: "card_network" matches the
	// later synonym "network" but precedes "brand_label".
	m := Detect(tableWithColumns("card_network", "brand_label"))
	assert.Equal(t, "card_network", m[DimBrand])
}

func TestDetect_SameColumnForSeveralDimensions(t *testing.T) {
	m := Detect(tableWithColumns("bank_country"))

	assert.Equal(t, "bank_country", m[DimBank])
	assert.Equal(t, "bank_country", m[DimCountry])
}

func TestDetect_NoColumns(t *testing.T) {
	m := Detect(MustTable())

	for _, d := range Dimensions() {
		_, ok := m.Column(d)
		assert.False(t, ok, "dimension %s should be absent", d)
	}
}

func TestDetect_Deterministic(t *testing.T) {
	tbl := tableWithColumns("bin", "issuer", "scheme", "card_type", "tier", "country_name", "iso2", "phone", "state")
	first := Detect(tbl)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Detect(tbl))
	}
}

func TestSetMapping(t *testing.T) {
	tbl := tableWithColumns("bin", "bank", "brand")

	got := SetMapping(tbl, Mapping{
		DimBIN:   "bin",
		DimBank:  "does_not_exist",
		DimBrand: "",
		"bogus":  "bank",
	})

	assert.Equal(t, Mapping{DimBIN: "bin", DimBank: "", DimBrand: ""}, got)
	_, ok := got.Column(DimBank)
	assert.False(t, ok)
}

func TestMapping_JSONRoundTrip(t *testing.T) {
	m := Mapping{DimBIN: "bin", DimBank: ""}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var raw map[string]*string
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, len(Dimensions()))
	require.NotNil(t, raw["bin"])
	assert.Equal(t, "bin", *raw["bin"])
	assert.Nil(t, raw["bank"])
	assert.Nil(t, raw["brand"])

	var back Mapping
	require.NoError(t, json.Unmarshal([]byte(`{"bin":"bin","bank":null}`), &back))
	assert.Equal(t, Mapping{DimBIN: "bin", DimBank: ""}, back)
}
