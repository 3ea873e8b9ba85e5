package main

import (
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/feesql/internal/model"
	"github.com/sells-group/feesql/internal/pipeline"
)

var (
	checkInput  string
	checkExport string
	checkYAML   bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a fee schedule listing without generating SQL",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Flags().Changed("input") {
			cfg.Input.Path = checkInput
		}
		if cmd.Flags().Changed("export") {
			cfg.Input.Export = checkExport
		}

		src, err := readListing(cmd, cfg.Input.Path)
		if err != nil {
			return err
		}

		summary, valid, err := pipeline.Check(src, cfg.Input.Export)
		if err != nil {
			return eris.Wrap(err, "check")
		}
		printDiagnostics(cmd.ErrOrStderr(), summary, "valid", len(valid))

		if checkYAML {
			views := make([]scheduleView, 0, len(valid))
			for i := range valid {
				views = append(views, newScheduleView(&valid[i]))
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(views); err != nil {
				return eris.Wrap(err, "check: encode yaml")
			}
			if err := enc.Close(); err != nil {
				return eris.Wrap(err, "check: encode yaml")
			}
		}

		if !summary.OK() {
			return eris.Errorf("check: %d of %d records invalid", len(summary.Skipped), summary.Total)
		}
		return nil
	},
}

// scheduleView is the YAML shape of a record. Amounts are kept as strings
// so they print exactly as parsed.
type scheduleView struct {
	Index             int        `yaml:"index"`
	ID                string     `yaml:"id"`
	Code              string     `yaml:"code"`
	Name              string     `yaml:"name"`
	Status            string     `yaml:"status"`
	StructureType     string     `yaml:"structure_type"`
	Tiers             []tierView `yaml:"tiers,omitempty"`
	FlatRate          string     `yaml:"flat_rate,omitempty"`
	FlatFeePerQuarter string     `yaml:"flat_fee_per_quarter,omitempty"`
	HasMinimumFee     bool       `yaml:"has_minimum_fee"`
	MinimumFeePerYear string     `yaml:"minimum_fee_per_year,omitempty"`
	Description       string     `yaml:"description,omitempty"`
	IsDirectBill      bool       `yaml:"is_direct_bill"`
}

type tierView struct {
	Threshold string `yaml:"threshold"`
	Max       string `yaml:"max,omitempty"`
	Rate      string `yaml:"rate"`
}

func newScheduleView(fs *model.FeeSchedule) scheduleView {
	v := scheduleView{
		Index:             fs.Index,
		ID:                fs.ID,
		Code:              fs.Code,
		Name:              fs.Name,
		Status:            string(fs.Status),
		StructureType:     string(fs.StructureType),
		FlatRate:          decString(fs.FlatRate),
		FlatFeePerQuarter: decString(fs.FlatFeePerQuarter),
		HasMinimumFee:     fs.HasMinimumFee,
		MinimumFeePerYear: decString(fs.MinimumFeePerYear),
		Description:       fs.Description,
		IsDirectBill:      fs.IsDirectBill,
	}
	for _, t := range fs.Tiers {
		v.Tiers = append(v.Tiers, tierView{
			Threshold: t.Threshold.String(),
			Max:       decString(t.Max),
			Rate:      t.Rate.String(),
		})
	}
	return v
}

func decString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func init() {
	checkCmd.Flags().StringVar(&checkInput, "input", "", "listing to read, or - for stdin (default from config)")
	checkCmd.Flags().StringVar(&checkExport, "export", "", "name of the exported array holding the records")
	checkCmd.Flags().BoolVar(&checkYAML, "yaml", false, "print the valid records as YAML")
	rootCmd.AddCommand(checkCmd)
}
