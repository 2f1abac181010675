package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"credit-feature-pipeline/internal/api"
	"credit-feature-pipeline/internal/config"
	"credit-feature-pipeline/internal/logger"
	"credit-feature-pipeline/internal/model"
	"credit-feature-pipeline/internal/pipeline"
	"credit-feature-pipeline/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath    string
	logLevel      string
	inputSource   string
	outputCSV     string
	outputJSON    string
	persistRows   bool
	failurePolicy string
)

// errBatchFailed makes the process exit non-zero after the summary was printed
var errBatchFailed = errors.New("extraction failed, no feature table written")

var rootCmd = &cobra.Command{
	Use:           "pipeline",
	Short:         "Flatten credit bureau records into feature tables",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a feature table from a batch of bureau records",
	Long:  `The extract command reads a JSON array of bureau records from a file or URL and writes one feature row per record.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(cmd)
		if err != nil {
			return err
		}
		return runExtract(cmd.Context(), cfg, log)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the extraction API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return api.Run(ctx, cfg, log)
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the feature columns in output order",
	RunE: func(cmd *cobra.Command, args []string) error {
		for i, f := range pipeline.CreditBureauSchema().Fields() {
			fmt.Fprintf(cmd.OutOrStdout(), "%2d  %-45s %-13s %s\n", i+1, f.Name, f.Kind, f.Path)
		}
		return nil
	},
}

func main() {
	rootCmd.AddCommand(extractCmd, serveCmd, schemaCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errBatchFailed) {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	extractCmd.Flags().StringVarP(&inputSource, "input", "i", "", "Input file path or http(s) URL")
	extractCmd.Flags().StringVarP(&outputCSV, "output", "o", "", "CSV output path")
	extractCmd.Flags().StringVar(&outputJSON, "json", "", "Also write rows and run metadata as JSON to this path")
	extractCmd.Flags().BoolVar(&persistRows, "db", false, "Track the run and its rows in the SQLite store")
	extractCmd.Flags().StringVar(&failurePolicy, "failure-policy", "", "abort_batch or skip_record")
}

// setup loads the config, applies flag overrides and builds the logger
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if inputSource != "" {
		cfg.Input.Source = inputSource
	}
	if outputCSV != "" {
		cfg.Output.CSV = outputCSV
	}
	if outputJSON != "" {
		cfg.Output.JSON = outputJSON
	}
	if persistRows {
		cfg.Database.Enabled = true
	}
	if failurePolicy != "" {
		cfg.Extraction.FailurePolicy = failurePolicy
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}

	log, err := logger.NewFromConfig(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, log, nil
}

func runExtract(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	var runStore pipeline.RunStore
	if cfg.Database.Enabled {
		st, err := store.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		runStore = st
	}

	runner := pipeline.NewRunner(pipeline.CreditBureauSchema(), runStore, log)
	runID := uuid.New().String()
	spec := model.RunSpec{
		Source:        model.Source{URL: cfg.Input.Source},
		FailurePolicy: cfg.FailurePolicy(),
		Export: &model.Export{
			File: cfg.Output.CSV,
			JSON: cfg.Output.JSON,
			DB:   cfg.Database.Enabled,
		},
		Timeout: cfg.Extraction.Timeout,
	}
	if err := runner.Register(runID, spec); err != nil {
		return fmt.Errorf("register run: %w", err)
	}

	report, err := runner.Run(ctx, runID, spec)
	if err != nil {
		return err
	}
	printSummary(report)
	if report.Result.Failed() {
		return errBatchFailed
	}
	return nil
}

func printSummary(report *pipeline.RunReport) {
	res := report.Result
	fmt.Printf("\n📊 Run %s finished in %v\n", report.RunID, report.Duration)
	fmt.Printf("   Status:   %s\n", res.Status)
	fmt.Printf("   Records:  %d\n", res.Records)
	fmt.Printf("   Rows:     %d\n", len(res.Rows))
	fmt.Printf("   Columns:  %d\n", len(res.Columns))
	for _, f := range res.Failures {
		fmt.Printf("   ⚠️  record %d: %s at %s: %s\n", f.Index, f.Field, f.Path, f.Reason)
	}
	for _, exp := range report.Exports {
		if exp.Success {
			fmt.Printf("   ✅ %s: %d rows -> %s\n", exp.Type, exp.RecordCount, exp.Path)
		} else {
			fmt.Printf("   ❌ %s: %s\n", exp.Type, exp.Error)
		}
	}
}
