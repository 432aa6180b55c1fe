package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/binfilter/internal/bins"
	"github.com/JonMunkholm/binfilter/internal/cli/ui"
	"github.com/JonMunkholm/binfilter/internal/loader"
)

type detectOutput struct {
	File        string       `json:"file"`
	Encoding    string       `json:"encoding"`
	Format      string       `json:"format"`
	Compression string       `json:"compression"`
	Bytes       int64        `json:"bytes"`
	RawBytes    int64        `json:"raw_bytes"`
	Rows        int          `json:"rows"`
	Columns     []string     `json:"columns"`
	Mapping     bins.Mapping `json:"mapping"`
}

func newDetectCommand() *cobra.Command {
	var (
		asJSON   bool
		maxBytes int64
	)

	cmd := &cobra.Command{
		Use:   "detect FILE",
		Short: "show how a file is read and which columns were recognized",
		Long: `Read FILE and report the encoding that worked, the format, the number of
rows and the column chosen for each dimension.`,
		Example: `  $ binctl detect bin-list-data.csv
  $ binctl detect bins.xlsx --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := loader.LoadFile(cmd.Context(), args[0], loader.Options{MaxBytes: maxBytes})
			if err != nil {
				return err
			}
			out := detectOutput{
				File:        args[0],
				Encoding:    res.Encoding,
				Format:      res.Format.String(),
				Compression: res.Compression.String(),
				Bytes:       res.Bytes,
				RawBytes:    res.RawBytes,
				Rows:        res.Table.Len(),
				Columns:     res.Table.ColumnNames(),
				Mapping:     bins.Detect(res.Table),
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			fmt.Fprintln(w, ui.RenderSummary(out.File, []ui.Field{
				{Key: "encoding", Value: out.Encoding},
				{Key: "format", Value: out.Format},
				{Key: "compression", Value: out.Compression},
				{Key: "size", Value: fmt.Sprintf("%d bytes (%d read)", out.Bytes, out.RawBytes)},
				{Key: "rows", Value: fmt.Sprint(out.Rows)},
				{Key: "columns", Value: fmt.Sprint(len(out.Columns))},
			}))
			fmt.Fprintln(w, ui.RenderMapping(out.Mapping))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", loader.DefaultMaxBytes, "largest decompressed input accepted")
	return cmd
}
