package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"testing"

	"github.com/JonMunkholm/binfilter/internal/bins"
)

// ============================================================================
// Load Benchmarks
// ============================================================================

// BenchmarkUpload measures a full load: encoding detection, parse, header
// normalization and mapping detection.
func BenchmarkUpload(b *testing.B) {
	data := generateBINCSV(10000)
	svc := NewService(nil, Config{})

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Upload(context.Background(), "bins.csv", bytes.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Filter Benchmarks
// ============================================================================

// BenchmarkFilter measures the filter engine over a loaded dataset.
func BenchmarkFilter(b *testing.B) {
	svc := benchService(b, 50000)

	cases := map[string]bins.Criteria{
		"none":    {},
		"prefix":  {Prefix: "45"},
		"include": {IncludeBrand: []string{"VISA"}, IncludeCountryCode: []string{"MX", "CL"}},
		"text":    {Text: "platinum"},
		"dedupe":  {Dedupe: true},
		"all": {
			Prefix:       "4",
			IncludeBrand: []string{"VISA"},
			ExcludeLevel: []string{"CLASSIC"},
			Prepaid:      bins.False,
			Text:         "banco",
			Dedupe:       true,
		},
	}
	for name, c := range cases {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, _, err := svc.Filter(c); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkQuery measures one page with projection.
func BenchmarkQuery(b *testing.B) {
	svc := benchService(b, 50000)
	req := QueryRequest{
		Criteria: bins.Criteria{IncludeBrand: []string{"VISA"}},
		Columns:  []string{"bin", "issuer", "country"},
		Page:     3,
		PageSize: 50,
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Query(req); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkExport measures writing the filtered table as CSV.
func BenchmarkExport(b *testing.B) {
	svc := benchService(b, 50000)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := svc.Export(io.Discard, bins.Criteria{Prefix: "4"}, nil); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Parallel Benchmarks
// ============================================================================

// BenchmarkQueryParallel measures readers sharing one snapshot.
func BenchmarkQueryParallel(b *testing.B) {
	svc := benchService(b, 50000)
	req := QueryRequest{Criteria: bins.Criteria{Prefix: "45", Dedupe: true}}

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := svc.Query(req); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

// ============================================================================
// Helper Functions
// ============================================================================

func benchService(b *testing.B, rows int) *Service {
	b.Helper()
	svc := NewService(nil, Config{})
	if _, err := svc.Upload(context.Background(), "bins.csv", bytes.NewReader(generateBINCSV(rows))); err != nil {
		b.Fatal(err)
	}
	return svc
}

// generateBINCSV generates a BIN list with the specified number of rows.
// Every tenth BIN repeats the previous one so dedupe has work to do.
func generateBINCSV(rows int) []byte {
	brands := []string{"VISA", "MASTERCARD", "AMEX"}
	levels := []string{"CLASSIC", "GOLD", "PLATINUM", ""}
	countries := [][2]string{{"MEXICO", "MX"}, {"CHILE", "CL"}, {"PERU", "PE"}, {"SPAIN", "ES"}}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"BIN", "Issuer", "Card Scheme", "Type", "Level", "Country", "Alpha 2", "Prepaid"})
	bin := 400000
	for i := 0; i < rows; i++ {
		if i%10 != 0 {
			bin++
		}
		country := countries[i%len(countries)]
		prepaid := "no"
		if i%7 == 0 {
			prepaid = "yes"
		}
		_ = w.Write([]string{
			fmt.Sprint(bin),
			fmt.Sprintf("Banco %d", i%97),
			brands[i%len(brands)],
			[]string{"DEBIT", "CREDIT"}[i%2],
			levels[i%len(levels)],
			country[0],
			country[1],
			prepaid,
		})
	}
	w.Flush()
	return buf.Bytes()
}
