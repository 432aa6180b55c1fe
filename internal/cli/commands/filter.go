package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/binfilter/internal/bins"
	"github.com/JonMunkholm/binfilter/internal/cli/ui"
	"github.com/JonMunkholm/binfilter/internal/core"
)

type filterOptions struct {
	prefix             string
	includeBank        []string
	excludeBank        []string
	includeBrand       []string
	includeType        []string
	includeLevel       []string
	excludeLevel       []string
	includeCountry     []string
	includeCountryCode []string
	prepaid            string
	text               string
	dedupe             bool

	columns  []string
	mapping  []string
	output   string
	stats    bool
	maxBytes int64
}

func (o *filterOptions) criteria() bins.Criteria {
	return bins.Criteria{
		Prefix:             o.prefix,
		IncludeBank:        o.includeBank,
		ExcludeBank:        o.excludeBank,
		IncludeBrand:       o.includeBrand,
		IncludeType:        o.includeType,
		IncludeLevel:       o.includeLevel,
		ExcludeLevel:       o.excludeLevel,
		IncludeCountry:     o.includeCountry,
		IncludeCountryCode: o.includeCountryCode,
		Prepaid:            bins.ParseRequestBool(o.prepaid),
		Text:               o.text,
		Dedupe:             o.dedupe,
	}
}

func newFilterCommand() *cobra.Command {
	o := &filterOptions{}

	cmd := &cobra.Command{
		Use:   "filter FILE",
		Short: "write the rows of FILE that match the filters as CSV",
		Long: `Load FILE, apply the filters and write the matching rows as CSV to stdout
or to --output. Repeat a list flag to give several values; within one flag the
values are OR-ed, across flags everything is AND-ed.

--mapping dimension=column replaces the detected column for a dimension;
--mapping dimension= makes it absent so its filters are skipped.`,
		Example: `  $ binctl filter bins.csv --prefix 4571 --prepaid yes
  $ binctl filter bins.csv.gz --include-bank "Banco Uno" --exclude-level GOLD -o out.csv
  $ binctl filter bins.csv --mapping bank=issuer_name --text platinum --stats`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(cmd, args[0], o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.prefix, "prefix", "", "keep BINs starting with this text")
	f.StringArrayVar(&o.includeBank, "include-bank", nil, "keep these banks")
	f.StringArrayVar(&o.excludeBank, "exclude-bank", nil, "drop these banks")
	f.StringArrayVar(&o.includeBrand, "include-brand", nil, "keep these brands")
	f.StringArrayVar(&o.includeType, "include-type", nil, "keep these card types")
	f.StringArrayVar(&o.includeLevel, "include-level", nil, "keep these levels")
	f.StringArrayVar(&o.excludeLevel, "exclude-level", nil, "drop these levels")
	f.StringArrayVar(&o.includeCountry, "include-country", nil, "keep these countries")
	f.StringArrayVar(&o.includeCountryCode, "include-country-code", nil, "keep these country codes")
	f.StringVar(&o.prepaid, "prepaid", "", "yes/true/1 or no/false/0; anything else is ignored")
	f.StringVar(&o.text, "text", "", "keep rows where any text column contains this, ignoring case")
	f.BoolVar(&o.dedupe, "dedupe", false, "keep the first row of each BIN")
	f.StringArrayVar(&o.columns, "columns", nil, "output only these columns, in this order")
	f.StringArrayVar(&o.mapping, "mapping", nil, "override a dimension's column as dimension=column")
	f.StringVarP(&o.output, "output", "o", "", "write CSV here instead of stdout")
	f.BoolVar(&o.stats, "stats", false, "print top brand, type and level counts to stderr")
	f.Int64Var(&o.maxBytes, "max-bytes", 0, "largest decompressed input accepted (default 100MB)")
	return cmd
}

func runFilter(cmd *cobra.Command, path string, o *filterOptions) error {
	overrides, err := parseMappingFlags(o.mapping)
	if err != nil {
		return err
	}

	svc := core.NewService(nil, core.Config{MaxFileSize: o.maxBytes})
	snap, err := svc.LoadFile(cmd.Context(), path)
	if err != nil {
		return err
	}

	if len(overrides) > 0 {
		m := snap.Mapping.Clone()
		for d, col := range overrides {
			m[d] = col
		}
		if snap, err = svc.SetMapping(m); err != nil {
			return err
		}
		for d, col := range overrides {
			if got, _ := snap.Mapping.Column(d); got != col {
				ui.PrintWarning(cmd.ErrOrStderr(), "no column %q; %s is absent", col, d)
			}
		}
	}

	c := o.criteria()
	tbl, err := svc.ExportTable(c, o.columns)
	if err != nil {
		return err
	}

	if o.output == "" {
		err = core.WriteCSV(cmd.OutOrStdout(), tbl)
	} else {
		err = writeOutputFile(o.output, tbl)
	}
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	if o.output != "" {
		ui.PrintSuccess(stderr, "%d of %d rows written to %s (%s)", tbl.Len(), snap.Table.Len(), o.output, snap.Encoding)
	}
	if o.stats {
		stats, err := svc.Stats(c)
		if err != nil {
			return err
		}
		fmt.Fprintln(stderr, ui.RenderCounts(stats.Breakdown))
	}
	return nil
}

// createOutput opens the -o destination. Tests swap it to inject write
// failures.
var createOutput = func(path string) (io.WriteCloser, error) {
	return os.Create(path) //nolint:gosec // operator-supplied output path
}

// writeOutputFile writes tbl as CSV to path. A failed close is reported
// like a failed write since the file may be truncated.
func writeOutputFile(path string, tbl *bins.Table) (err error) {
	f, err := createOutput(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output %s: %w", path, cerr)
		}
	}()
	return core.WriteCSV(f, tbl)
}

// parseMappingFlags reads dimension=column pairs. Dimensions must be in
// the catalog; an empty column makes the dimension absent.
func parseMappingFlags(pairs []string) (map[bins.Dimension]string, error) {
	out := make(map[bins.Dimension]string, len(pairs))
	for _, p := range pairs {
		dim, col, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --mapping %q: want dimension=column", p)
		}
		dim = strings.TrimSpace(dim)
		if !bins.IsDimension(dim) {
			return nil, fmt.Errorf("invalid --mapping %q: unknown dimension %q", p, dim)
		}
		out[bins.Dimension(dim)] = bins.NormalizeColumnName(col)
	}
	return out, nil
}
