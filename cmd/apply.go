package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bogdangri/capstone-adk-project/internal/config"
	"github.com/bogdangri/capstone-adk-project/internal/database"
	"github.com/bogdangri/capstone-adk-project/internal/database/postgres"
	"github.com/bogdangri/capstone-adk-project/internal/prompt"
	"github.com/bogdangri/capstone-adk-project/internal/scriptcheck"
)

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringVarP(&applyEnvironment, "environment", "e", "", "Environment to apply the script to (default from dmlplan.toml)")
	applyCmd.Flags().BoolVarP(&applyYes, "yes", "y", false, "Skip the confirmation prompt")
}

var applyCmd = &cobra.Command{
	Use:   "apply <script>",
	Short: "Run a compiled script against a database",
	Long: `Run a compiled script against the database of an environment.

The script is parsed first and refused unless it is a single PL/pgSQL DO
block. Server notices raised by the script are printed as they arrive.`,
	Args: cobra.ExactArgs(1),
	Run:  runApply,
}

var (
	applyEnvironment string
	applyYes         bool
)

var bannerRequest = regexp.MustCompile(`(?m)^ \* Request: (.*)$`)

func runApply(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	path := args[0]

	content, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read script: %v", err)
	}
	report, err := scriptcheck.Check(string(content))
	if err != nil {
		log.Fatalf("Refusing to apply %s: %v", path, err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	env, err := config.ResolveEnvironment(cfg, applyEnvironment)
	if err != nil {
		printConfigNotFound()
		log.Fatalf("Failed to resolve environment: %v", err)
	}

	if !applyYes {
		ok, err := prompt.Confirm(prompt.Summary{
			ScriptPath:  path,
			RequestID:   scriptRequestID(string(content)),
			Environment: env.Name,
			DatabaseURL: env.DatabaseURL,
			Lines:       report.BodyLines,
		})
		if err != nil {
			log.Fatalf("Confirmation prompt failed: %v", err)
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "Aborted, nothing was applied")
			return
		}
	}

	if err := applyScript(ctx, env, string(content)); err != nil {
		_, _ = color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
	_, _ = color.New(color.FgGreen).Fprintf(os.Stderr, "✓ Applied %s to %s\n", path, env.Name)
}

func applyScript(ctx context.Context, env *config.ResolvedEnvironment, script string) error {
	noticeColor := color.New(color.FgCyan)
	driver := postgres.NewDriver()

	logger.Debug("opening connection", "environment", env.Name, "url", prompt.RedactURL(env.DatabaseURL))
	db, err := driver.OpenConnection(ctx, database.ConnectionConfig{
		PostgresUrl: env.DatabaseURL,
		OnNotice: func(n database.Notice) {
			_, _ = noticeColor.Fprintf(os.Stderr, "%s: %s\n", n.Severity, n.Message)
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return postgres.ExecScript(ctx, db, script)
}

// scriptRequestID reads the request id from a compiled script's banner.
func scriptRequestID(script string) string {
	if m := bannerRequest.FindStringSubmatch(script); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}
