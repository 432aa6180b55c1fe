// Package loader turns raw dataset files into normalized bins.Table values.
//
// Delimited text is tried against a fixed list of encodings (utf-8,
// utf-8-sig, latin-1, cp1252) and the first one that both decodes and
// parses wins. XLSX and Parquet inputs are read directly. Any of these may
// be gzip, bzip2, xz or zstd compressed; compression and format are taken
// from the file name.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/binfilter/internal/bins"
)

// DefaultMaxBytes bounds the decompressed size of an input (100MB).
const DefaultMaxBytes = 100 * 1024 * 1024

// ErrEmptyFile is returned for inputs without a header row.
var ErrEmptyFile = errors.New("empty file")

// ErrFileTooLarge is returned when the decompressed input exceeds the limit.
var ErrFileTooLarge = errors.New("file too large")

// Format is the tabular layout of an input file.
type Format int

const (
	FormatCSV Format = iota
	FormatTSV
	FormatXLSX
	FormatParquet
)

func (f Format) String() string {
	switch f {
	case FormatTSV:
		return "tsv"
	case FormatXLSX:
		return "xlsx"
	case FormatParquet:
		return "parquet"
	default:
		return "csv"
	}
}

// DetectFormat infers the format from a file name, ignoring any
// compression suffix. Unknown or missing extensions are treated as CSV.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(trimCompressionExt(name))) {
	case ".tsv":
		return FormatTSV
	case ".xlsx":
		return FormatXLSX
	case ".parquet":
		return FormatParquet
	default:
		return FormatCSV
	}
}

// Result is a loaded table and how it was read.
type Result struct {
	Table       *bins.Table
	Encoding    string
	Format      Format
	Compression Compression
	// Bytes is the decoded input size; RawBytes is what was read from the
	// source before decompression.
	Bytes    int64
	RawBytes int64
}

// Options tunes a load.
type Options struct {
	// MaxBytes caps the decompressed input size. Zero means DefaultMaxBytes.
	MaxBytes int64
}

// ReadError reports that no encoding could read a delimited file.
type ReadError struct {
	Attempts []string
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("unable to read file (tried %s): %v", strings.Join(e.Attempts, ", "), e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// LoadFile opens path and loads it.
func LoadFile(ctx context.Context, path string, opts Options) (*Result, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied data path
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return Load(ctx, filepath.Base(path), f, opts)
}

// Load reads a dataset from r. name is only used to detect compression
// and format.
func Load(ctx context.Context, name string, r io.Reader, opts Options) (*Result, error) {
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	comp := DetectCompression(name)
	raw := &countingReader{r: r}
	rd, cleanup, err := decompress(comp, raw)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	data, err := io.ReadAll(io.LimitReader(rd, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, maxBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Format:      DetectFormat(name),
		Compression: comp,
		Bytes:       int64(len(data)),
		RawBytes:    raw.n,
	}

	var (
		header []string
		rows   [][]bins.Value
	)
	switch res.Format {
	case FormatXLSX:
		header, rows, err = readXLSX(data)
		res.Encoding = "utf-8"
	case FormatParquet:
		header, rows, err = readParquet(ctx, data)
		res.Encoding = "utf-8"
	case FormatTSV:
		header, rows, res.Encoding, err = readDelimited(ctx, data, '\t')
	default:
		header, rows, res.Encoding, err = readDelimited(ctx, data, ',')
	}
	if err != nil {
		return nil, err
	}

	res.Table, err = bins.FromCells(normalizeHeader(header), rows)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// normalizeHeader names blank headers, suffixes duplicates with .1, .2, ...
// and then normalizes every name.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		if n, dup := seen[h]; dup {
			name = h + "." + strconv.Itoa(n)
		}
		seen[h]++
		out[i] = bins.NormalizeColumnName(name)
	}
	return out
}
