package bins

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Mapping assigns table columns to dimensions. A dimension that is missing
// from the map, or mapped to "", is absent.
type Mapping map[Dimension]string

// Column returns the column mapped to d.
func (m Mapping) Column(d Dimension) (string, bool) {
	col, ok := m[d]
	if !ok || col == "" {
		return "", false
	}
	return col, true
}

// Clone returns an independent copy of m.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for d, c := range m {
		out[d] = c
	}
	return out
}

// MarshalJSON writes every catalog dimension in catalog order, using null
// for absent ones.
func (m Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(d Dimension, col string, ok bool) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(string(d))
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if !ok {
			buf.WriteString("null")
			return nil
		}
		val, err := json.Marshal(col)
		if err != nil {
			return err
		}
		buf.Write(val)
		return nil
	}
	for _, d := range Dimensions() {
		col, ok := m.Column(d)
		if err := write(d, col, ok); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts {"dimension": "column" | null}.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Mapping, len(raw))
	for k, v := range raw {
		if v == nil {
			out[Dimension(k)] = ""
			continue
		}
		out[Dimension(k)] = *v
	}
	*m = out
	return nil
}

// Detect infers a mapping from the table's column names.
//
// For each dimension, a column whose name equals one of the dimension's
// synonyms wins; otherwise the first column whose name contains any synonym
// is taken. Both passes walk columns in table order, so the earliest column
// wins. Dimensions are resolved independently and may share a column.
func Detect(t *Table) Mapping {
	return DetectColumns(t.ColumnNames())
}

// DetectColumns is Detect over a bare list of normalized column names.
func DetectColumns(columns []string) Mapping {
	m := make(Mapping, len(catalog))
	for _, e := range catalog {
		m[e.Dimension] = matchColumn(columns, e.Synonyms)
	}
	return m
}

func matchColumn(columns, synonyms []string) string {
	for _, c := range columns {
		for _, s := range synonyms {
			if c == s {
				return c
			}
		}
	}
	for _, c := range columns {
		for _, s := range synonyms {
			if strings.Contains(c, s) {
				return c
			}
		}
	}
	return ""
}

// SetMapping validates a manual override against the table. Each candidate
// dimension keeps its column only when the table has it; otherwise the
// dimension becomes absent. Keys that are not catalog dimensions are
// dropped. Dimensions not named in candidate are not part of the result.
func SetMapping(t *Table, candidate Mapping) Mapping {
	out := make(Mapping, len(candidate))
	for d, col := range candidate {
		if !IsDimension(string(d)) {
			continue
		}
		if col != "" && t.Has(col) {
			out[d] = col
		} else {
			out[d] = ""
		}
	}
	return out
}
