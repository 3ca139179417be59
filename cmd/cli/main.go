package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gostrat/adapters/excel"
	"gostrat/adapters/prep"
	"gostrat/adapters/rng"
	"gostrat/app"
	"gostrat/internal"
	"gostrat/internal/config"
	"gostrat/internal/frame"
	"gostrat/internal/report"
	"gostrat/internal/testkit"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		internal.DefaultLogger.Info("No .env file found, using environment defaults")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:   "gostrat",
		Short: "Stratified random assignment of units to treatment arms",
	}

	rootCmd.AddCommand(
		newAssignCmd(cfg),
		newRosterCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAssignCmd(cfg *config.Config) *cobra.Command {
	var (
		strata       []string
		treats       int
		probsArg     string
		seed         int64
		idCol        string
		size         int
		misfit       string
		outPath      string
		reportPath   string
		replications int
	)

	cmd := &cobra.Command{
		Use:   "assign [data-file]",
		Short: "Assign units in a CSV/XLSX dataset to treatment arms",
		Long: `Assign units to treatment arms, stratified by the given columns.

Example: gostrat assign trial.csv --strata site,age_band --treats 3 --probs 0.5,0.25,0.25 --seed 42 --id-col patient_id`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataPath := cfg.Paths.DataFile
			if len(args) == 1 {
				dataPath = args[0]
			}
			if dataPath == "" {
				return fmt.Errorf("no data file given (argument or GOSTRAT_DATA_FILE)")
			}

			data, err := excel.NewDataReader(dataPath).ReadData()
			if err != nil {
				return err
			}

			probs, err := parseProbs(probsArg)
			if err != nil {
				return err
			}

			req := app.AssignRequest{
				Data:           data,
				StratumCols:    strata,
				Treats:         treats,
				Probs:          probs,
				Seed:           seed,
				IDCol:          idCol,
				MisfitStrategy: misfit,
			}
			if size > 0 {
				req.Size = &size
			}

			svc := app.NewAssignService(prep.NewDataPreparator(rng.NewSeeded()), rng.NewSeeded())

			if replications > 1 {
				return runReplications(cmd.Context(), svc, cfg, req, outPath, replications)
			}

			result, err := svc.Assign(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := writeResult(result, outPath); err != nil {
				return err
			}
			internal.DefaultLogger.Info("Assigned %d units across %d strata (block size %d) -> %s",
				len(result.Assignments), result.StratumCount, result.Spec.LCMDenominator, outPath)

			if reportPath != "" {
				if err := writeReport(result, reportPath); err != nil {
					return err
				}
				internal.DefaultLogger.Info("Balance report written to %s", reportPath)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&strata, "strata", nil, "stratification column names")
	cmd.Flags().IntVar(&treats, "treats", cfg.Assignment.Treats, "number of treatment arms, including control")
	cmd.Flags().StringVar(&probsArg, "probs", "", "comma-separated assignment probabilities (default uniform)")
	cmd.Flags().Int64Var(&seed, "seed", cfg.Assignment.Seed, "random seed")
	cmd.Flags().StringVar(&idCol, "id-col", "", "unique identifier column (default: row position)")
	cmd.Flags().IntVar(&size, "size", 0, "proportional sub-sample size (0 = use all rows)")
	cmd.Flags().StringVar(&misfit, "misfit", cfg.Assignment.MisfitStrategy, "misfit strategy: stratum, global or none")
	cmd.Flags().StringVar(&outPath, "out", cfg.Paths.OutputFile, "output CSV path")
	cmd.Flags().StringVar(&reportPath, "report", cfg.Paths.ReportFile, "balance report path (.md or .html)")
	cmd.Flags().IntVar(&replications, "replications", 1, "number of independent randomizations (seeds seed..seed+n-1)")
	_ = cmd.MarkFlagRequired("strata")

	return cmd
}

// runReplications executes n independent randomizations concurrently, one
// seed each, and writes one output file per seed.
func runReplications(ctx context.Context, svc *app.AssignService, cfg *config.Config, base app.AssignRequest, outPath string, n int) error {
	reqs := make([]app.AssignRequest, n)
	for i := range reqs {
		reqs[i] = base
		reqs[i].Seed = base.Seed + int64(i)
	}

	runner := app.NewBatchRunner(svc, cfg.Assignment.Parallelism)
	results, err := runner.Run(ctx, reqs)
	if err != nil {
		return err
	}

	for i, result := range results {
		path := replicationPath(outPath, reqs[i].Seed)
		if err := writeResult(result, path); err != nil {
			return err
		}
		internal.DefaultLogger.Info("Seed %d -> %s", reqs[i].Seed, path)
	}
	return nil
}

func replicationPath(outPath string, seed int64) string {
	ext := ".csv"
	stem := strings.TrimSuffix(outPath, ext)
	return fmt.Sprintf("%s_seed%d%s", stem, seed, ext)
}

func newRosterCmd() *cobra.Command {
	var (
		units   int
		sites   int
		bands   int
		uuidIDs bool
		seed    int64
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Generate a synthetic trial roster CSV for experimentation",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := testkit.GenerateRoster(testkit.RosterConfig{
				Units:    units,
				Sites:    sites,
				AgeBands: bands,
				UUIDIDs:  uuidIDs,
				Seed:     seed,
			})
			out, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer out.Close()
			if err := frame.WriteCSV(out, f); err != nil {
				return err
			}
			internal.DefaultLogger.Info("Wrote %d units to %s", f.Len(), outPath)
			return nil
		},
	}

	cmd.Flags().IntVar(&units, "units", 1000, "number of units")
	cmd.Flags().IntVar(&sites, "sites", 3, "number of sites")
	cmd.Flags().IntVar(&bands, "age-bands", 4, "number of age bands")
	cmd.Flags().BoolVar(&uuidIDs, "uuid-ids", false, "use UUID identifiers instead of integers")
	cmd.Flags().Int64Var(&seed, "seed", 7, "roster generation seed")
	cmd.Flags().StringVar(&outPath, "out", "roster.csv", "output CSV path")

	return cmd
}

func parseProbs(arg string) ([]float64, error) {
	if arg == "" {
		return nil, nil
	}
	parts := strings.Split(arg, ",")
	probs := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid probability %q: %w", p, err)
		}
		probs[i] = v
	}
	return probs, nil
}

func writeResult(result *app.AssignResult, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return frame.WriteCSV(out, result.Frame())
}

func writeReport(result *app.AssignResult, path string) error {
	r, err := report.Build(result.Assignments, result.Spec)
	if err != nil {
		return err
	}
	var payload []byte
	if strings.HasSuffix(path, ".html") {
		payload = report.HTML(r)
	} else {
		payload = []byte(report.Markdown(r))
	}
	return os.WriteFile(path, payload, 0o644)
}
