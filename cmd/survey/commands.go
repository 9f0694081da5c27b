package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/resilience/internal/catalog"
	"github.com/JonMunkholm/resilience/internal/export"
	"github.com/JonMunkholm/resilience/internal/logging"
	"github.com/JonMunkholm/resilience/internal/survey"
)

// options carries the persistent flags shared by every subcommand.
type options struct {
	logLevel    string
	catalogPath string
	bom         bool
	output      string

	cat *catalog.Catalog
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "survey",
		Short:         "Work with resilience questionnaire exports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// .env fills in settings shared with the server; flags win.
			_ = godotenv.Load()
			flags := cmd.Flags()
			if v := os.Getenv("LOG_LEVEL"); v != "" && !flags.Changed("log-level") {
				opts.logLevel = v
			}
			if v := os.Getenv("SURVEY_CATALOG_PATH"); v != "" && !flags.Changed("catalog") {
				opts.catalogPath = v
			}

			slog.SetDefault(logging.New(cmd.ErrOrStderr(), opts.logLevel, "text"))

			if opts.catalogPath == "" {
				opts.cat = catalog.Default()
				return nil
			}
			cat, err := catalog.Load(opts.catalogPath)
			if err != nil {
				return err
			}
			opts.cat = cat
			slog.Debug("catalog loaded", "path", opts.catalogPath, "version", cat.Version())
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error (default from $LOG_LEVEL)")
	pf.StringVar(&opts.catalogPath, "catalog", "", "questionnaire YAML (default: $SURVEY_CATALOG_PATH, then built-in)")
	pf.BoolVar(&opts.bom, "bom", true, "prefix CSV output with a UTF-8 byte order mark")
	pf.StringVarP(&opts.output, "output", "o", "", "write to file instead of stdout")

	root.AddCommand(
		newColumnsCmd(opts),
		newFlatCmd(opts),
		newMergeCmd(opts),
		newScoreCmd(opts),
	)
	return root
}

// =============================================================================
// COLUMNS
// =============================================================================

func newColumnsCmd(opts *options) *cobra.Command {
	var both bool
	cmd := &cobra.Command{
		Use:   "columns",
		Short: "Print the flat export header",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cols := export.Columns(opts.cat, both)
			return opts.write(cmd, []byte(strings.Join(cols, string(export.Delimiter))+"\n"))
		},
	}
	cmd.Flags().BoolVar(&both, "both", false, "dual-mode (AS IS and TO BE) layout")
	return cmd
}

// =============================================================================
// FLAT
// =============================================================================

func newFlatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "flat FILE.json",
		Short: "Convert a structured export into a single-mode CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, mode, rs, err := readStructured(opts.cat, args[0])
			if err != nil {
				return err
			}
			row := export.CurrentRow(opts.cat, name, mode, rs, survey.ComputeTotals(opts.cat, rs))
			return opts.writeCSV(cmd, row)
		},
	}
}

// =============================================================================
// MERGE
// =============================================================================

func newMergeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "merge ASIS.json TOBE.json",
		Short: "Combine an AS IS and a TO BE export into the dual-mode CSV",
		Long: `Combine two structured exports into one dual-mode CSV row.

The files may be given in either order; each must carry a different mode.
The respondent name is taken from the AS IS export, or from the TO BE
export when the AS IS name is empty.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			responses := make(map[survey.Mode]survey.ResponseSet, 2)
			names := make(map[survey.Mode]string, 2)

			for _, path := range args {
				name, mode, rs, err := readStructured(opts.cat, path)
				if err != nil {
					return err
				}
				if _, dup := responses[mode]; dup {
					return fmt.Errorf("merge: both files are %s exports", mode.Label())
				}
				responses[mode] = rs
				names[mode] = name
			}

			name := names[survey.ModeAsIs]
			if name == "" {
				name = names[survey.ModeToBe]
			}
			if names[survey.ModeAsIs] != "" && names[survey.ModeToBe] != "" && names[survey.ModeAsIs] != names[survey.ModeToBe] {
				slog.Warn("merge: respondent names differ, using AS IS name",
					"asis", names[survey.ModeAsIs], "tobe", names[survey.ModeToBe])
			}

			row := export.BothRow(opts.cat, name, responses[survey.ModeAsIs], responses[survey.ModeToBe])
			return opts.writeCSV(cmd, row)
		},
	}
}

// =============================================================================
// SCORE
// =============================================================================

func newScoreCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "score FILE.csv",
		Short: "Print totals and over-budget pairs of a single-mode CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := export.ReadTable(f)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			if len(rows) == 0 {
				return fmt.Errorf("read %s: no data rows", args[0])
			}

			var b strings.Builder
			for i, row := range rows {
				name, mode, rs, err := export.ResponsesFromRow(opts.cat, row)
				if err != nil {
					return fmt.Errorf("%s row %d: %w", args[0], i+1, err)
				}
				if i > 0 {
					b.WriteString("\n")
				}
				writeScore(&b, opts.cat, name, mode, rs)
			}
			return opts.write(cmd, []byte(b.String()))
		},
	}
}

func writeScore(w io.Writer, cat *catalog.Catalog, name string, mode survey.Mode, rs survey.ResponseSet) {
	if name == "" {
		name = "(anonymous)"
	}
	fmt.Fprintf(w, "Name: %s\nMode: %s\n", name, mode.Label())

	totals := survey.ComputeTotals(cat, rs)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, q := range survey.Quadrants {
		fmt.Fprintf(tw, "%s\t%d / %d\n", q, totals.Get(q), survey.MaxQuadrantScore)
	}
	tw.Flush()

	invalid := survey.InvalidPairs(cat, rs)
	if len(invalid) == 0 {
		fmt.Fprintln(w, "Over budget: none")
		return
	}
	fmt.Fprintf(w, "Over budget: %s\n", strings.Join(invalid, ", "))
}

// =============================================================================
// OUTPUT
// =============================================================================

func readStructured(cat *catalog.Catalog, path string) (string, survey.Mode, survey.ResponseSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, nil, err
	}
	defer f.Close()

	name, mode, rs, err := export.ParseStructured(cat, f)
	if err != nil {
		return "", 0, nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("structured export read", "path", path, "mode", mode.Slug(), "name", name)
	return name, mode, rs, nil
}

// writeCSV encodes one flat row, with a BOM unless --bom=false.
func (o *options) writeCSV(cmd *cobra.Command, row *export.Record) error {
	text := export.EncodeTable([]*export.Record{row}) + "\n"
	if o.bom {
		return o.write(cmd, export.WithBOM(text))
	}
	return o.write(cmd, []byte(text))
}

// write sends data to --output or the command's stdout.
func (o *options) write(cmd *cobra.Command, data []byte) error {
	if o.output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(o.output, data, 0o644); err != nil {
		return err
	}
	slog.Info("written", "path", o.output, "bytes", len(data))
	return nil
}
