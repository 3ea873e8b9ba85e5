package main

import (
	"bytes"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/feesql/internal/pipeline"
	"github.com/sells-group/feesql/internal/sqlgen"
)

var (
	generateInput   string
	generateFirmID  string
	generateExport  string
	generateDialect string
	generateTable   string
	generateOut     string
	generateReplace bool
	generateVerify  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print the INSERT script for a fee schedule listing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyGenerateFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}

		dialect, err := sqlgen.DialectByName(cfg.Output.Dialect)
		if err != nil {
			return err
		}

		src, err := readListing(cmd, cfg.Input.Path)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		summary, err := pipeline.Run(src, &buf, pipeline.Options{
			FirmID: cfg.FirmID,
			Export: cfg.Input.Export,
			Emitter: sqlgen.Options{
				Table:   cfg.Output.Table,
				Dialect: dialect,
				Replace: cfg.Output.Replace,
				Verify:  cfg.Output.Verify,
			},
		})
		if summary != nil {
			printDiagnostics(cmd.ErrOrStderr(), summary, "emitted", summary.Emitted)
		}
		if err != nil {
			return eris.Wrap(err, "generate")
		}

		if generateOut != "" {
			if err := os.WriteFile(generateOut, buf.Bytes(), 0o644); err != nil {
				return eris.Wrapf(err, "generate: write %s", generateOut)
			}
		} else if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
			return eris.Wrap(err, "generate: write stdout")
		}

		zap.L().Info("generate complete",
			zap.String("input", cfg.Input.Path),
			zap.String("dialect", dialect.Name()),
			zap.Int("emitted", summary.Emitted),
			zap.Int("skipped", len(summary.Skipped)),
		)

		if !summary.OK() {
			return eris.Errorf("generate: %d of %d records skipped", len(summary.Skipped), summary.Total)
		}
		return nil
	},
}

// applyGenerateFlags copies explicitly set flags over the loaded config.
func applyGenerateFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input.Path = generateInput
	}
	if flags.Changed("firm-id") {
		cfg.FirmID = generateFirmID
	}
	if flags.Changed("export") {
		cfg.Input.Export = generateExport
	}
	if flags.Changed("dialect") {
		cfg.Output.Dialect = generateDialect
	}
	if flags.Changed("table") {
		cfg.Output.Table = generateTable
	}
	if flags.Changed("replace") {
		cfg.Output.Replace = generateReplace
	}
	if flags.Changed("verify") {
		cfg.Output.Verify = generateVerify
	}
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateInput, "input", "", "listing to read, or - for stdin (default from config)")
	f.StringVar(&generateFirmID, "firm-id", "", "UUID of the firm that owns the schedules")
	f.StringVar(&generateExport, "export", "", "name of the exported array holding the records")
	f.StringVar(&generateDialect, "dialect", "", "SQL dialect: postgres or sqlite")
	f.StringVar(&generateTable, "table", "", "target table, optionally schema-qualified")
	f.StringVar(&generateOut, "out", "", "write SQL to this file instead of stdout")
	f.BoolVar(&generateReplace, "replace", false, "delete the firm's existing rows first")
	f.BoolVar(&generateVerify, "verify", false, "append a SELECT listing the firm's rows")
	rootCmd.AddCommand(generateCmd)
}
