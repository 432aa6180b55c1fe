// Package commands implements the binctl command tree.
package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/binfilter/internal/cli/ui"
	"github.com/JonMunkholm/binfilter/internal/logging"
)

const version = "0.1.0"

// NewRootCommand builds the binctl command tree. Each call returns a fresh
// tree so tests can run commands independently.
func NewRootCommand() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:     "binctl",
		Short:   "Inspect and filter BIN list files",
		Version: version,
		Long: `binctl reads a BIN list (CSV, TSV, XLSX or Parquet, optionally compressed),
works out which columns hold the bank, brand, country and other attributes, and
writes the rows that match a set of filters as CSV.`,
		Example: `  # Show how a file is read and which columns were recognized
  $ binctl detect bin-list-data.csv

  # Unique Mexican VISA BINs, two columns, to a file
  $ binctl filter bin-list-data.csv --include-brand VISA --include-country-code MX \
      --dedupe --columns bin --columns bank -o visa_mx.csv`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(cmd.ErrOrStderr(), logLevel)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetVersionTemplate(fmt.Sprintf("binctl version %s\n", version))
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newDetectCommand())
	root.AddCommand(newFilterCommand())

	root.SetUsageTemplate(usageTemplate())
	return root
}

// Execute runs binctl with os.Args and reports a failure on stderr.
func Execute() error {
	root := NewRootCommand()
	err := root.Execute()
	if err != nil {
		ui.PrintError(root.ErrOrStderr(), "%v", err)
	}
	return err
}

// setupLogging sends logs to stderr so they never mix with CSV on stdout.
func setupLogging(w io.Writer, level string) {
	slog.SetDefault(logging.New(w, level, "text"))
}

func usageTemplate() string {
	return ui.Styles.Bold.Render("USAGE") + `
  {{.UseLine}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}

{{if .HasExample}}` + ui.Styles.Bold.Render("EXAMPLES") + `
{{.Example}}

{{end}}{{if .HasAvailableSubCommands}}` + ui.Styles.Bold.Render("COMMANDS") + `{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableLocalFlags}}` + ui.Styles.Bold.Render("OPTIONS") + `
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}` + ui.Styles.Bold.Render("GLOBAL OPTIONS") + `
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`
}
