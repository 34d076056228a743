package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bogdangri/capstone-adk-project/internal/diagnostic"
	"github.com/bogdangri/capstone-adk-project/internal/plan"
	"github.com/bogdangri/capstone-adk-project/internal/scriptcheck"
	"github.com/bogdangri/capstone-adk-project/internal/sqlgen"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate plan and script files",
	Long: `Validate plan and script files.

Subcommands:
  plan   - Check a plan against the plan JSON Schema and compile it
  script - Parse a generated script with the PostgreSQL parser`,
	Example: `  # Validate a plan
  dmlplan validate plan plans/rate-change.json

  # Validate a generated script with JSON output (for IDE integration)
  dmlplan validate script --output-format json plans/req-42.sql`,
}

var validatePlanCmd = &cobra.Command{
	Use:   "plan <file>",
	Short: "Validate a data-change plan",
	Long: `Validate a plan document against the plan JSON Schema, check every
action, and make sure the compiled script parses.`,
	Args: cobra.ExactArgs(1),
	Run:  runValidatePlan,
}

var validateScriptCmd = &cobra.Command{
	Use:   "script <file>",
	Short: "Validate a generated PL/pgSQL script",
	Args:  cobra.ExactArgs(1),
	Run:   runValidateScript,
}

var validateOutputFormat string

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.AddCommand(validatePlanCmd)
	validateCmd.AddCommand(validateScriptCmd)

	validateCmd.PersistentFlags().StringVar(&validateOutputFormat, "output-format", "text", "Output format: text (default) or json")
}

func runValidatePlan(cmd *cobra.Command, args []string) {
	reportValidation(cmd, args[0], validatePlanFile(args[0]), "Plan")
}

func runValidateScript(cmd *cobra.Command, args []string) {
	reportValidation(cmd, args[0], validateScriptFile(args[0]), "Script")
}

func reportValidation(cmd *cobra.Command, path string, result diagnostic.Result, kind string) {
	if err := diagnostic.Write(cmd.OutOrStdout(), result, validateOutputFormat); err != nil {
		log.Fatalf("Failed to write validation result: %v", err)
	}
	if !result.Valid {
		os.Exit(1)
	}
	if validateOutputFormat != "json" {
		_, _ = color.New(color.FgGreen).Fprintf(os.Stderr, "✓ %s is valid: %s\n", kind, path)
	}
}

// validatePlanFile checks a plan document end to end: schema, structure,
// compilation, and the parse of the resulting script.
func validatePlanFile(path string) diagnostic.Result {
	c := diagnostic.NewCollector(path)

	data, err := os.ReadFile(path)
	if err != nil {
		c.AddError(fmt.Errorf("failed to read plan file: %w", err))
		return c.Result()
	}

	if err := plan.ValidateDocument(data); err != nil {
		c.AddError(err)
		return c.Result()
	}

	p, err := plan.Parse(data)
	if err != nil {
		c.AddError(err)
		return c.Result()
	}

	for i, a := range p.Actions {
		if !a.Kind.Known() {
			c.AddWarning("unsupported_action",
				fmt.Sprintf("action %d: unsupported action %q on %s will be skipped", i+1, a.Kind, a.TargetTable))
		}
	}
	if err := p.Validate(); err != nil {
		c.AddError(err)
		return c.Result()
	}

	script, err := sqlgen.NewCompiler().Assemble(p)
	if err != nil {
		c.AddError(err)
		return c.Result()
	}
	if _, err := scriptcheck.Check(script); err != nil {
		c.AddError(fmt.Errorf("compiled script does not parse: %v", err))
	}
	return c.Result()
}

func validateScriptFile(path string) diagnostic.Result {
	c := diagnostic.NewCollector(path)

	data, err := os.ReadFile(path)
	if err != nil {
		c.AddError(fmt.Errorf("failed to read script file: %w", err))
		return c.Result()
	}

	if _, err := scriptcheck.Check(string(data)); err != nil {
		c.AddError(err)
	}
	return c.Result()
}
