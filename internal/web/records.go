package web

import (
	"bytes"
	"encoding/json"

	"github.com/JonMunkholm/binfilter/internal/bins"
)

// tableRecords encodes a table as a JSON array of objects whose keys keep
// column order. A map would sort them.
type tableRecords struct {
	t *bins.Table
}

func (r tableRecords) MarshalJSON() ([]byte, error) {
	names := r.t.ColumnNames()
	keys := make([][]byte, len(names))
	for i, n := range names {
		k, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := 0; i < r.t.Len(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, v := range r.t.Row(i) {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[j])
			buf.WriteByte(':')
			val, err := v.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
