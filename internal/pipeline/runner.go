package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/bogdangri/capstone-adk-project/internal/eventlog"
	"github.com/bogdangri/capstone-adk-project/internal/plan"
	"github.com/bogdangri/capstone-adk-project/internal/sqlgen"
)

// Stage names. Each is emitted with a ":start" and ":end" suffix, or ":error"
// when the stage fails.
const (
	StageLoadPlan      = "load_plan"
	StageCompileScript = "compile_script"
	StageWriteScript   = "write_script"
)

// Runner drives the compile pipeline. A nil Writer compiles without
// persisting; a nil Events recorder emits nothing.
type Runner struct {
	Fs       afero.Fs
	Compiler *sqlgen.Compiler
	Writer   *Writer
	Events   *eventlog.Recorder
	Logger   *slog.Logger
}

// NewRunner returns a Runner reading and writing the OS filesystem.
func NewRunner(compiler *sqlgen.Compiler, writer *Writer, events *eventlog.Recorder, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		Fs:       afero.NewOsFs(),
		Compiler: compiler,
		Writer:   writer,
		Events:   events,
		Logger:   logger,
	}
}

// CompileFile loads the plan at planPath, compiles it and writes the script.
// Unless the Writer names a directory the script lands next to the plan.
func (r *Runner) CompileFile(ctx context.Context, planPath string) (*sqlgen.Script, error) {
	r.record(ctx, plan.DefaultRequestID, StageLoadPlan+":start", map[string]any{"path": planPath})

	p, err := r.loadPlan(planPath)
	if err != nil {
		r.fail(ctx, plan.DefaultRequestID, StageLoadPlan, err)
		return nil, err
	}
	r.record(ctx, p.RequestID, StageLoadPlan+":end", map[string]any{
		"path":    planPath,
		"actions": len(p.Actions),
	})

	return r.compile(ctx, p, filepath.Dir(planPath))
}

// CompilePlan compiles an already-loaded plan and writes the script.
func (r *Runner) CompilePlan(ctx context.Context, p *plan.Plan) (*sqlgen.Script, error) {
	if p == nil {
		return nil, fmt.Errorf("cannot compile nil plan")
	}
	return r.compile(ctx, p, "")
}

func (r *Runner) compile(ctx context.Context, p *plan.Plan, defaultDir string) (*sqlgen.Script, error) {
	r.record(ctx, p.RequestID, StageCompileScript+":start", map[string]any{"plan": p})

	compiler := r.Compiler
	if compiler == nil {
		compiler = sqlgen.NewCompiler()
	}
	script, err := compiler.Compile(p)
	if err != nil {
		err = fmt.Errorf("failed to compile request %s: %w", p.RequestID, err)
		r.fail(ctx, p.RequestID, StageCompileScript, err)
		return nil, err
	}
	r.record(ctx, p.RequestID, StageCompileScript+":end", map[string]any{
		"filename":     script.Filename,
		"file_content": script.Content,
	})

	if r.Writer == nil {
		return script, nil
	}

	r.record(ctx, p.RequestID, StageWriteScript+":start", map[string]any{"filename": script.Filename})
	path, err := r.Writer.Write(script, defaultDir)
	if err != nil {
		r.fail(ctx, p.RequestID, StageWriteScript, err)
		return nil, err
	}
	r.record(ctx, p.RequestID, StageWriteScript+":end", map[string]any{"path": path})
	r.logger().InfoContext(ctx, "script written", "request_id", p.RequestID, "path", path)

	return script, nil
}

func (r *Runner) loadPlan(path string) (*plan.Plan, error) {
	fsys := r.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	if err := plan.ValidateDocument(data); err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", path, err)
	}
	p, err := plan.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plan %s: %w", path, err)
	}
	return p, nil
}

func (r *Runner) record(ctx context.Context, requestID, stage string, data map[string]any) {
	r.logger().DebugContext(ctx, "pipeline stage", "request_id", requestID, "stage", stage)
	r.Events.Record(ctx, requestID, stage, data)
}

func (r *Runner) fail(ctx context.Context, requestID, stage string, err error) {
	r.logger().ErrorContext(ctx, "pipeline stage failed", "request_id", requestID, "stage", stage, "error", err)
	r.Events.Record(ctx, requestID, stage+":error", map[string]any{"error": err.Error()})
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}
