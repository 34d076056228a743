package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bogdangri/capstone-adk-project/internal/config"
	"github.com/bogdangri/capstone-adk-project/internal/eventlog"
	"github.com/bogdangri/capstone-adk-project/internal/pipeline"
	"github.com/bogdangri/capstone-adk-project/internal/sqlgen"
)

var compileCmd = &cobra.Command{
	Use:   "compile <plan>",
	Short: "Compile a plan file into a PL/pgSQL script",
	Long: `Compile a JSON or YAML data-change plan into one transactional DO block.

The script is written as req-<request_id>.sql next to the plan unless
--output-dir (or output_dir in dmlplan.toml) names another directory.`,
	Example: `  # Write req-42.sql next to the plan
  dmlplan compile plans/rate-change.json

  # Print the script instead of writing it
  dmlplan compile --stdout plans/rate-change.yaml`,
	Args: cobra.ExactArgs(1),
	Run:  runCompile,
}

var (
	compileOutputDir   string
	compileStdout      bool
	compileEnvironment string
)

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&compileOutputDir, "output-dir", "o", "", "Directory for the generated script")
	compileCmd.Flags().BoolVar(&compileStdout, "stdout", false, "Print the script to stdout instead of writing a file")
	compileCmd.Flags().StringVarP(&compileEnvironment, "environment", "e", "", "Environment whose database receives postgres event logs")
}

type compileOptions struct {
	PlanPath    string
	OutputDir   string
	Stdout      bool
	Environment string
}

func runCompile(cmd *cobra.Command, args []string) {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	script, err := compilePlanFile(cmd.Context(), cfg, compileOptions{
		PlanPath:    args[0],
		OutputDir:   compileOutputDir,
		Stdout:      compileStdout,
		Environment: compileEnvironment,
	})
	if err != nil {
		log.Fatalf("Compile failed: %v", err)
	}

	if compileStdout {
		fmt.Fprint(cmd.OutOrStdout(), script.Content)
		return
	}
	_, _ = color.New(color.FgGreen).Fprintf(os.Stderr, "✓ Wrote %s\n", script.Path)
}

// compilePlanFile runs the compile pipeline for one plan file.
func compilePlanFile(ctx context.Context, cfg *config.Config, opts compileOptions) (*sqlgen.Script, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.WithDefaults()

	sink, err := openEventSink(ctx, cfg, opts.Environment)
	if err != nil {
		return nil, err
	}
	events := eventlog.NewRecorder(sink, cfg.AppName, cfg.PipelineName, logger)
	defer func() {
		if err := events.Close(); err != nil {
			logger.Warn("failed to close event log", "error", err)
		}
	}()

	compiler := sqlgen.NewCompiler()
	if cfg.Initiator != "" {
		compiler.Initiator = cfg.Initiator
	}

	var writer *pipeline.Writer
	if !opts.Stdout {
		dir := opts.OutputDir
		if dir == "" {
			dir = cfg.OutputDir
		}
		writer = pipeline.NewWriter(dir)
	}

	runner := pipeline.NewRunner(compiler, writer, events, logger)
	return runner.CompileFile(ctx, opts.PlanPath)
}

// openEventSink opens the configured event log. A postgres event log with no
// url of its own records into the selected environment's database.
func openEventSink(ctx context.Context, cfg *config.Config, environment string) (eventlog.Sink, error) {
	evCfg := cfg.EventLog
	if evCfg.Driver == "postgres" && evCfg.URL == "" {
		env, err := config.ResolveEnvironment(cfg, environment)
		if err != nil {
			return nil, err
		}
		evCfg.URL = env.DatabaseURL
	}

	sink, err := eventlog.Open(ctx, evCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	return sink, nil
}
