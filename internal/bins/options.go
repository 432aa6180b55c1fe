package bins

import "sort"

// DefaultTopN is the number of values the dashboard shows per breakdown.
const DefaultTopN = 50

// Options lists, for every mapped dimension whose column exists, the
// distinct non-null values sorted ascending.
func Options(t *Table, m Mapping) map[Dimension][]string {
	out := make(map[Dimension][]string)
	for _, d := range Dimensions() {
		col, ok := lookup(t, m, d)
		if !ok {
			continue
		}
		out[d] = distinct(col)
	}
	return out
}

func distinct(col []Value) []string {
	seen := make(map[string]struct{})
	vals := make([]string, 0)
	for _, v := range col {
		if !v.Valid {
			continue
		}
		if _, ok := seen[v.Str]; ok {
			continue
		}
		seen[v.Str] = struct{}{}
		vals = append(vals, v.Str)
	}
	sort.Strings(vals)
	return vals
}

// ValueCount is a value and the number of rows holding it.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCounts tallies the non-null values of column, most frequent first,
// ties broken by value. limit <= 0 returns every value.
func ValueCounts(t *Table, column string, limit int) []ValueCount {
	col, ok := t.Column(column)
	if !ok {
		return nil
	}
	counts := make(map[string]int)
	for _, v := range col {
		if v.Valid {
			counts[v.Str]++
		}
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Breakdown holds value counts for the brand, type and level dimensions.
// Dimensions that are not mapped are left out.
func Breakdown(t *Table, m Mapping, limit int) map[Dimension][]ValueCount {
	out := make(map[Dimension][]ValueCount)
	for _, d := range []Dimension{DimBrand, DimType, DimLevel} {
		name, ok := m.Column(d)
		if !ok || !t.Has(name) {
			continue
		}
		out[d] = ValueCounts(t, name, limit)
	}
	return out
}
