package bins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strs(vals ...string) []Value {
	out := make([]Value, len(vals))
	for i, v := range vals {
		out[i] = Str(v)
	}
	return out
}

func sampleTable() *Table {
	return MustTable(
		Column{Name: "bin", Values: strs("400000", "400001", "510000", "400000", "520000", "400002")},
		Column{Name: "bank", Values: []Value{Str("Alpha Bank"), Str("Beta"), Str("Alpha Bank"), Str("Alpha Bank"), Null(), Str("Gamma")}},
		Column{Name: "brand", Values: strs("VISA", "VISA", "MASTERCARD", "VISA", "MASTERCARD", "VISA")},
		Column{Name: "type", Values: strs("DEBIT", "CREDIT", "CREDIT", "DEBIT", "DEBIT", "CREDIT")},
		Column{Name: "level", Values: []Value{Str("CLASSIC"), Str("GOLD"), Null(), Str("CLASSIC"), Str("PLATINUM"), Str("GOLD")}},
		Column{Name: "country", Values: strs("MEXICO", "CHILE", "MEXICO", "MEXICO", "PERU", "CHILE")},
		Column{Name: "country_code", Values: strs("MX", "CL", "MX", "MX", "PE", "CL")},
		Column{Name: "prepaid", Values: []Value{Str("no"), Str("yes"), Str("N"), Str("no"), Null(), Str("Y")}},
	)
}

func column(t *testing.T, tbl *Table, name string) []string {
	t.Helper()
	col, ok := tbl.Column(name)
	require.True(t, ok, "missing column %s", name)
	out := make([]string, len(col))
	for i, v := range col {
		out[i] = v.Text()
	}
	return out
}

func TestApply_NoCriteriaReturnsAllRows(t *testing.T) {
	tbl := sampleTable()
	got := Apply(tbl, Detect(tbl), Criteria{})

	assert.Equal(t, tbl.Len(), got.Len())
	assert.Equal(t, tbl.ColumnNames(), got.ColumnNames())
}

func TestApply_Prefix(t *testing.T) {
	tbl := sampleTable()
	got := Apply(tbl, Detect(tbl), Criteria{Prefix: "4000"})

	assert.Equal(t, []string{"400000", "400001", "400000", "400002"}, column(t, got, "bin"))
}

func TestApply_PrefixSkipsNullBIN(t *testing.T) {
	tbl := MustTable(Column{Name: "bin", Values: []Value{Str("411111"), Null()}})
	got := Apply(tbl, Detect(tbl), Criteria{Prefix: "4"})

	assert.Equal(t, 1, got.Len())
}

func TestApply_PrefixIsCaseSensitive(t *testing.T) {
	tbl := MustTable(Column{Name: "bin", Values: strs("AB12", "ab12")})
	got := Apply(tbl, Detect(tbl), Criteria{Prefix: "AB"})

	assert.Equal(t, []string{"AB12"}, column(t, got, "bin"))
}

func TestApply_IncludeExclude(t *testing.T) {
	tbl := sampleTable()
	m := Detect(tbl)

	tests := []struct {
		name     string
		criteria Criteria
		wantBins []string
	}{
		{"include bank", Criteria{IncludeBank: []string{"Alpha Bank"}}, []string{"400000", "510000", "400000"}},
		{"exclude bank keeps nulls", Criteria{ExcludeBank: []string{"Alpha Bank"}}, []string{"400001", "520000", "400002"}},
		{"include brand", Criteria{IncludeBrand: []string{"MASTERCARD"}}, []string{"510000", "520000"}},
		{"include type", Criteria{IncludeType: []string{"CREDIT"}}, []string{"400001", "510000", "400002"}},
		{"include level skips nulls", Criteria{IncludeLevel: []string{"GOLD", "PLATINUM"}}, []string{"400001", "520000", "400002"}},
		{"exclude level keeps nulls", Criteria{ExcludeLevel: []string{"CLASSIC"}}, []string{"400001", "510000", "520000", "400002"}},
		{"include country", Criteria{IncludeCountry: []string{"CHILE"}}, []string{"400001", "400002"}},
		{"include country code", Criteria{IncludeCountryCode: []string{"PE", "MX"}}, []string{"400000", "510000", "400000", "520000"}},
		{"include is exact match", Criteria{IncludeBank: []string{"alpha bank"}}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(tbl, m, tt.criteria)
			assert.Equal(t, tt.wantBins, column(t, got, "bin"))
		})
	}
}

func TestApply_IncludeAndExcludeSameBankIsEmpty(t *testing.T) {
	tbl := MustTable(
		Column{Name: "bin", Values: strs("400000", "400001")},
		Column{Name: "bank", Values: strs("A", "B")},
	)
	got := Apply(tbl, Detect(tbl), Criteria{IncludeBank: []string{"A"}, ExcludeBank: []string{"A"}})

	assert.Equal(t, 0, got.Len())
}

func TestApply_Prepaid(t *testing.T) {
	tbl := MustTable(
		Column{Name: "bin", Values: strs("1", "2", "3", "4", "5")},
		Column{Name: "prepaid", Values: []Value{Str("yes"), Str("No"), Str("TRUE"), Str("bogus"), Null()}},
	)
	m := Detect(tbl)

	assert.Equal(t, []string{"1", "3"}, column(t, Apply(tbl, m, Criteria{Prepaid: True}), "bin"))
	assert.Equal(t, []string{"2"}, column(t, Apply(tbl, m, Criteria{Prepaid: False}), "bin"))
	assert.Equal(t, 5, Apply(tbl, m, Criteria{Prepaid: Unknown}).Len())
}

func TestParseCellBool(t *testing.T) {
	tests := []struct {
		in   Value
		want TriState
	}{
		{Str("yes"), True},
		{Str(" Y "), True},
		{Str("TRUE"), True},
		{Str("1"), True},
		{Str("no"), False},
		{Str("n"), False},
		{Str("False"), False},
		{Str("0"), False},
		{Str("maybe"), Unknown},
		{Str(""), Unknown},
		{Null(), Unknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCellBool(tt.in), "input %+v", tt.in)
	}
}

func TestParseRequestBool(t *testing.T) {
	tests := []struct {
		in   string
		want TriState
	}{
		{"true", True},
		{"TRUE", True},
		{"1", True},
		{"Yes", True},
		{"false", False},
		{"0", False},
		{"NO", False},
		{"y", Unknown},
		{"", Unknown},
		{" true", Unknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseRequestBool(tt.in), "input %q", tt.in)
	}
}

func TestApply_Text(t *testing.T) {
	tbl := sampleTable()
	m := Detect(tbl)

	got := Apply(tbl, m, Criteria{Text: "alpha"})
	assert.Equal(t, []string{"400000", "510000", "400000"}, column(t, got, "bin"))

	got = Apply(tbl, m, Criteria{Text: "CHI"})
	assert.Equal(t, []string{"400001", "400002"}, column(t, got, "bin"))

	// Regex metacharacters are literal.
	got = Apply(tbl, m, Criteria{Text: "a.b"})
	assert.Equal(t, 0, got.Len())
}

func TestApply_Dedupe(t *testing.T) {
	tbl := MustTable(
		Column{Name: "bin", Values: strs("400000", "400001", "400000")},
		Column{Name: "bank", Values: strs("A", "B", "A2")},
	)
	got := Apply(tbl, Detect(tbl), Criteria{Dedupe: true})

	assert.Equal(t, []string{"400000", "400001"}, column(t, got, "bin"))
	assert.Equal(t, []string{"A", "B"}, column(t, got, "bank"))
}

func TestApply_DedupeAfterFilters(t *testing.T) {
	tbl := MustTable(
		Column{Name: "bin", Values: strs("400000", "400000", "400000")},
		Column{Name: "bank", Values: strs("A", "B", "C")},
	)
	got := Apply(tbl, Detect(tbl), Criteria{ExcludeBank: []string{"A"}, Dedupe: true})

	assert.Equal(t, []string{"B"}, column(t, got, "bank"))
}

func TestApply_DedupeIdempotent(t *testing.T) {
	tbl := sampleTable()
	m := Detect(tbl)
	once := Apply(tbl, m, Criteria{Dedupe: true})
	twice := Apply(once, m, Criteria{Dedupe: true})

	assert.Equal(t, once.Records(), twice.Records())
}

func TestApply_DedupeWithoutBINIsNoop(t *testing.T) {
	tbl := MustTable(Column{Name: "bank", Values: strs("A", "A")})
	got := Apply(tbl, Detect(tbl), Criteria{Dedupe: true})

	assert.Equal(t, 2, got.Len())
}

func TestApply_SkipsAbsentDimensions(t *testing.T) {
	tbl := sampleTable()

	// Mapping without bank; bank predicates are ignored.
	m := Detect(tbl)
	delete(m, DimBank)
	got := Apply(tbl, m, Criteria{IncludeBank: []string{"nobody"}})
	assert.Equal(t, tbl.Len(), got.Len())

	// Mapping pointing at a column the table lacks.
	m = Mapping{DimBIN: "missing"}
	got = Apply(tbl, m, Criteria{Prefix: "9", Dedupe: true})
	assert.Equal(t, tbl.Len(), got.Len())
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	tbl := sampleTable()
	before := tbl.Records()

	_ = Apply(tbl, Detect(tbl), Criteria{Prefix: "4", Dedupe: true, Text: "visa"})

	assert.Equal(t, before, tbl.Records())
}

func TestApply_ResultIsSubset(t *testing.T) {
	tbl := sampleTable()
	m := Detect(tbl)
	all := make(map[string]bool)
	for _, r := range tbl.Records() {
		all[r["bin"].Text()+"|"+r["bank"].Text()+"|"+r["level"].Text()] = true
	}

	criteria := []Criteria{
		{Prefix: "4"},
		{IncludeBrand: []string{"VISA"}, Prepaid: False},
		{Text: "gold", Dedupe: true},
		{ExcludeLevel: []string{"GOLD"}, IncludeCountryCode: []string{"MX"}},
	}
	for _, c := range criteria {
		for _, r := range Apply(tbl, m, c).Records() {
			assert.True(t, all[r["bin"].Text()+"|"+r["bank"].Text()+"|"+r["level"].Text()])
		}
	}
}

func TestApply_ComposesLikeMergedCriteria(t *testing.T) {
	tbl := sampleTable()
	m := Detect(tbl)

	c1 := Criteria{Prefix: "4", ExcludeLevel: []string{"PLATINUM"}}
	c2 := Criteria{IncludeBrand: []string{"VISA"}, Prepaid: False}
	merged := Criteria{
		Prefix:       "4",
		ExcludeLevel: []string{"PLATINUM"},
		IncludeBrand: []string{"VISA"},
		Prepaid:      False,
	}

	chained := Apply(Apply(tbl, m, c1), m, c2)
	direct := Apply(tbl, m, merged)

	assert.Equal(t, direct.Records(), chained.Records())
}

func TestCriteria_IsZero(t *testing.T) {
	assert.True(t, Criteria{}.IsZero())
	assert.False(t, Criteria{Dedupe: true}.IsZero())
	assert.False(t, Criteria{Prepaid: False}.IsZero())
	assert.False(t, Criteria{IncludeType: []string{"DEBIT"}}.IsZero())
}
