package bins

import "strings"

// TriState is a boolean that may also be unknown.
type TriState int8

const (
	Unknown TriState = iota
	True
	False
)

// Known reports whether t is True or False.
func (t TriState) Known() bool { return t != Unknown }

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// FromBool converts b to True or False.
func FromBool(b bool) TriState {
	if b {
		return True
	}
	return False
}

// ParseCellBool reads a prepaid-style cell. yes/y/true/1 are True and
// no/n/false/0 are False, ignoring case and surrounding whitespace.
// Everything else, null included, is Unknown.
func ParseCellBool(v Value) TriState {
	if !v.Valid {
		return Unknown
	}
	switch strings.ToLower(strings.TrimSpace(v.Str)) {
	case "yes", "y", "true", "1":
		return True
	case "no", "n", "false", "0":
		return False
	default:
		return Unknown
	}
}

// ParseRequestBool reads a prepaid flag given by a caller rather than a
// cell: true/1/yes and false/0/no, ignoring case. Anything else, the empty
// string included, is Unknown and imposes no constraint.
func ParseRequestBool(s string) TriState {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return True
	case "false", "0", "no":
		return False
	default:
		return Unknown
	}
}

// Criteria is a set of AND-ed row predicates. Zero values impose no
// constraint: an empty prefix, an empty set, Unknown prepaid, empty text.
type Criteria struct {
	Prefix             string
	IncludeBank        []string
	ExcludeBank        []string
	IncludeBrand       []string
	IncludeType        []string
	IncludeLevel       []string
	ExcludeLevel       []string
	IncludeCountry     []string
	IncludeCountryCode []string
	Prepaid            TriState
	Text               string
	Dedupe             bool
}

// IsZero reports whether c constrains nothing.
func (c Criteria) IsZero() bool {
	return c.Prefix == "" &&
		len(c.IncludeBank) == 0 && len(c.ExcludeBank) == 0 &&
		len(c.IncludeBrand) == 0 && len(c.IncludeType) == 0 &&
		len(c.IncludeLevel) == 0 && len(c.ExcludeLevel) == 0 &&
		len(c.IncludeCountry) == 0 && len(c.IncludeCountryCode) == 0 &&
		!c.Prepaid.Known() && c.Text == "" && !c.Dedupe
}

// predicate decides whether row i survives.
type predicate func(i int) bool

// Apply returns the rows of t that satisfy every criterion, in their
// original order. Criteria that target a dimension the mapping leaves
// absent, or a column the table lacks, are skipped. Dedupe runs last and
// keeps the first surviving row per BIN value. t is not modified.
func Apply(t *Table, m Mapping, c Criteria) *Table {
	preds := buildPredicates(t, m, c)

	keep := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		ok := true
		for _, p := range preds {
			if !p(i) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, i)
		}
	}

	if c.Dedupe {
		if bin, found := lookup(t, m, DimBIN); found {
			keep = dedupe(keep, bin)
		}
	}
	return t.Take(keep)
}

func buildPredicates(t *Table, m Mapping, c Criteria) []predicate {
	var preds []predicate

	if c.Prefix != "" {
		if col, ok := lookup(t, m, DimBIN); ok {
			prefix := c.Prefix
			preds = append(preds, func(i int) bool {
				return col[i].Valid && strings.HasPrefix(col[i].Str, prefix)
			})
		}
	}

	include := func(d Dimension, values []string) {
		if len(values) == 0 {
			return
		}
		if col, ok := lookup(t, m, d); ok {
			set := toSet(values)
			preds = append(preds, func(i int) bool {
				if !col[i].Valid {
					return false
				}
				_, in := set[col[i].Str]
				return in
			})
		}
	}
	exclude := func(d Dimension, values []string) {
		if len(values) == 0 {
			return
		}
		if col, ok := lookup(t, m, d); ok {
			set := toSet(values)
			preds = append(preds, func(i int) bool {
				if !col[i].Valid {
					return true
				}
				_, in := set[col[i].Str]
				return !in
			})
		}
	}

	include(DimBank, c.IncludeBank)
	exclude(DimBank, c.ExcludeBank)
	include(DimBrand, c.IncludeBrand)
	include(DimType, c.IncludeType)
	include(DimLevel, c.IncludeLevel)
	exclude(DimLevel, c.ExcludeLevel)
	include(DimCountry, c.IncludeCountry)
	include(DimCountryCode, c.IncludeCountryCode)

	if c.Prepaid.Known() {
		if col, ok := lookup(t, m, DimPrepaid); ok {
			want := c.Prepaid
			preds = append(preds, func(i int) bool {
				return ParseCellBool(col[i]) == want
			})
		}
	}

	if c.Text != "" {
		needle := strings.ToLower(c.Text)
		cols := make([][]Value, 0, t.Width())
		for _, c := range t.columns {
			cols = append(cols, c.Values)
		}
		preds = append(preds, func(i int) bool {
			for _, col := range cols {
				if strings.Contains(strings.ToLower(col[i].Text()), needle) {
					return true
				}
			}
			return false
		})
	}

	return preds
}

// lookup resolves a dimension to its column cells.
func lookup(t *Table, m Mapping, d Dimension) ([]Value, bool) {
	name, ok := m.Column(d)
	if !ok {
		return nil, false
	}
	return t.Column(name)
}

// dedupe keeps the first row index for each key. Null keys compare equal
// to each other.
func dedupe(rows []int, key []Value) []int {
	seen := make(map[Value]struct{}, len(rows))
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		k := key[r]
		if !k.Valid {
			k = Value{}
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
