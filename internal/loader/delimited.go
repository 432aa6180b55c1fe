package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/JonMunkholm/binfilter/internal/bins"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// encoding is one candidate in the detection order.
type encoding struct {
	label  string
	decode func([]byte) ([]byte, error)
}

// Encodings lists the labels tried for delimited text, in order.
func Encodings() []string {
	out := make([]string, len(encodingOrder))
	for i, e := range encodingOrder {
		out[i] = e.label
	}
	return out
}

var encodingOrder = []encoding{
	{label: "utf-8", decode: decodeUTF8},
	{label: "utf-8-sig", decode: decodeUTF8Sig},
	{label: "latin-1", decode: func(b []byte) ([]byte, error) {
		return charmap.ISO8859_1.NewDecoder().Bytes(b)
	}},
	{label: "cp1252", decode: decodeCP1252},
}

// decodeUTF8 accepts strictly valid UTF-8 without a byte order mark. BOM
// prefixed input is left for utf-8-sig so the reported label says so.
func decodeUTF8(b []byte) ([]byte, error) {
	if bytes.HasPrefix(b, utf8BOM) {
		return nil, errors.New("byte order mark present")
	}
	if !utf8.Valid(b) {
		return nil, errors.New("invalid utf-8 sequence")
	}
	return b, nil
}

func decodeUTF8Sig(b []byte) ([]byte, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if !utf8.Valid(b) {
		return nil, errors.New("invalid utf-8 sequence")
	}
	return b, nil
}

// decodeCP1252 rejects the five code points cp1252 leaves undefined.
func decodeCP1252(b []byte) ([]byte, error) {
	for i, c := range b {
		switch c {
		case 0x81, 0x8D, 0x8F, 0x90, 0x9D:
			return nil, fmt.Errorf("undefined byte 0x%02X at offset %d", c, i)
		}
	}
	return charmap.Windows1252.NewDecoder().Bytes(b)
}

// readDelimited tries each encoding in turn and returns the first one
// that decodes and parses. All failures are collected in a ReadError.
func readDelimited(ctx context.Context, data []byte, comma rune) ([]string, [][]bins.Value, string, error) {
	var (
		attempts []string
		lastErr  error
	)
	for _, enc := range encodingOrder {
		if err := ctx.Err(); err != nil {
			return nil, nil, "", err
		}
		attempts = append(attempts, enc.label)

		text, err := enc.decode(data)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", enc.label, err)
			continue
		}
		header, rows, err := parseDelimited(text, comma)
		if err != nil {
			if errors.Is(err, ErrEmptyFile) {
				return nil, nil, "", err
			}
			lastErr = fmt.Errorf("%s: %w", enc.label, err)
			continue
		}
		return header, rows, enc.label, nil
	}
	return nil, nil, "", &ReadError{Attempts: attempts, Err: lastErr}
}

// parseDelimited reads a header row followed by data rows. Short rows are
// padded with nulls; rows wider than the header are rejected.
func parseDelimited(text []byte, comma rune) ([]string, [][]bins.Value, error) {
	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = comma
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("invalid csv header: %w", err)
	}

	var rows [][]bins.Value
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("invalid csv: %w", err)
		}
		if len(rec) > len(header) {
			line, _ := r.FieldPos(0)
			return nil, nil, fmt.Errorf("invalid csv: line %d has %d fields, expected %d", line, len(rec), len(header))
		}
		row := make([]bins.Value, len(rec))
		for i, field := range rec {
			row[i] = cell(field)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// naTokens are the cell texts read as missing values.
var naTokens = func() map[string]struct{} {
	tokens := []string{
		"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
		"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
		"n/a", "nan", "null",
	}
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}()

// IsNAToken reports whether s is read as a missing value.
func IsNAToken(s string) bool {
	_, ok := naTokens[s]
	return ok
}

func cell(s string) bins.Value {
	if IsNAToken(s) {
		return bins.Null()
	}
	return bins.Str(s)
}
