// Command envclone clones a live HTTP API into a runnable local environment:
// it explores the target with an agent, synthesizes a specification, and
// generates a replica under an output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/arcline/envclone/internal/envload"
	"github.com/arcline/envclone/internal/version"
	"github.com/arcline/envclone/kernel/agentrun"
	"github.com/arcline/envclone/kernel/agents"
	"github.com/arcline/envclone/kernel/completion"
	"github.com/arcline/envclone/kernel/execenv"
	modelproviders "github.com/arcline/envclone/kernel/model/providers"
	"github.com/arcline/envclone/kernel/pipeline"
)

const (
	defaultModelAlias    = "anthropic/claude-sonnet"
	defaultMaxIterations = 100
	defaultOutputDir     = "cloned_env"
)

var (
	banner  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "envclone: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage()
		return fmt.Errorf("a command is required")
	}
	if _, err := envload.LoadNearest(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	switch args[0] {
	case "clone":
		return runClone(ctx, args[1:])
	case "explore":
		return runExplore(ctx, args[1:])
	case "version":
		fmt.Println(version.String())
		return nil
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: envclone <command> [flags] <target-url>

commands:
  clone     explore a target API and generate a runnable local replica
  explore   explore a target API and print what was learned
  version   print version info

run "envclone <command> -h" for command flags`)
}

type cloneFlags struct {
	outputDir     string
	maxIterations int
	modelAlias    string
	endpoints     string
	validate      bool
	cloneURL      string
	mcpConfig     string
}

func parseCloneFlags(name string, args []string) (*cloneFlags, string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cf := &cloneFlags{}
	outputDefault := envDefault("ENVCLONE_OUTPUT", defaultOutputDir)
	modelDefault := envDefault("ENVCLONE_MODEL", defaultModelAlias)
	fs.StringVar(&cf.outputDir, "o", outputDefault, "Output directory for the generated environment")
	fs.StringVar(&cf.outputDir, "output", outputDefault, "Output directory for the generated environment")
	fs.IntVar(&cf.maxIterations, "m", defaultMaxIterations, "Maximum agent iterations per phase")
	fs.IntVar(&cf.maxIterations, "max-iterations", defaultMaxIterations, "Maximum agent iterations per phase")
	fs.StringVar(&cf.modelAlias, "model", modelDefault, "Model alias")
	fs.StringVar(&cf.endpoints, "e", "", "Comma-separated starting endpoints, e.g. /api/users,/health")
	fs.StringVar(&cf.endpoints, "endpoints", "", "Comma-separated starting endpoints, e.g. /api/users,/health")
	fs.BoolVar(&cf.validate, "validate", false, "Run differential validation after generation")
	fs.StringVar(&cf.cloneURL, "clone-url", "", "Base URL of the running clone, required with -validate")
	fs.StringVar(&cf.mcpConfig, "mcp-config", "", "MCP servers JSON file whose tools join exploration")
	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return nil, "", fmt.Errorf("exactly one target URL is required")
	}
	if cf.validate && strings.TrimSpace(cf.cloneURL) == "" {
		return nil, "", fmt.Errorf("-validate requires -clone-url")
	}
	return cf, rest[0], nil
}

func envDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitEndpoints(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newClient(modelAlias string) (*completion.Client, error) {
	factory := modelproviders.NewFactory()
	llm, err := factory.NewByAlias(modelAlias)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w (known: %s)", modelAlias, err, strings.Join(factory.ListModels(), ", "))
	}
	return completion.NewClient(llm)
}

func runClone(ctx context.Context, args []string) error {
	cf, targetURL, err := parseCloneFlags("clone", args)
	if err != nil {
		return err
	}
	client, err := newClient(cf.modelAlias)
	if err != nil {
		return err
	}
	extraTools, closeToolsets, err := loadMCPTools(ctx, cf.mcpConfig)
	if err != nil {
		return err
	}
	defer closeToolsets()

	banner.Printf("Cloning %s -> %s\n", targetURL, cf.outputDir)
	result, err := pipeline.Run(ctx, pipeline.Config{
		Client:            client,
		TargetURL:         targetURL,
		OutputRoot:        cf.outputDir,
		MaxIterations:     cf.maxIterations,
		StartingEndpoints: splitEndpoints(cf.endpoints),
		ExtraTools:        extraTools,
		Validate:          cf.validate,
		CloneURL:          cf.cloneURL,
		Reporter:          consoleReporter(),
	})
	if err != nil {
		return err
	}

	success.Printf("\nClone complete.\n")
	fmt.Printf("  run id:   %s\n", result.RunID)
	fmt.Printf("  spec:     %d endpoints -> %s\n", len(result.Spec.Endpoints), pipeline.SpecFileName)
	if result.Generation != nil && len(result.Generation.Files) > 0 {
		fmt.Printf("  files:    %d generated\n", len(result.Generation.Files))
	}
	if result.Validation != nil {
		fmt.Printf("  fidelity: %.0f/100\n", result.Validation.FidelityScore)
	}
	fmt.Printf("  snapshot: %s\n", result.CommitHash)
	return nil
}

func runExplore(ctx context.Context, args []string) error {
	cf, targetURL, err := parseCloneFlags("explore", args)
	if err != nil {
		return err
	}
	client, err := newClient(cf.modelAlias)
	if err != nil {
		return err
	}
	extraTools, closeToolsets, err := loadMCPTools(ctx, cf.mcpConfig)
	if err != nil {
		return err
	}
	defer closeToolsets()

	env, err := execenv.New(execenv.Config{TargetURL: targetURL})
	if err != nil {
		return err
	}

	banner.Printf("Exploring %s\n", targetURL)
	result, err := agents.RunExploration(ctx, agents.ExplorationConfig{
		Client:            client,
		Env:               env,
		MaxIterations:     cf.maxIterations,
		StartingEndpoints: splitEndpoints(cf.endpoints),
		ExtraTools:        extraTools,
	})
	if err != nil {
		return err
	}

	if result.Outcome == agentrun.OutcomeCompleted {
		success.Printf("\nExploration complete after %d iterations.\n\n", result.Iterations)
	} else {
		warn.Printf("\nExploration stopped (%s) after %d iterations.\n\n", result.Outcome, result.Iterations)
	}
	for _, obs := range result.Observations {
		fmt.Printf("  [%s] %s\n", obs.Category, obs.Observation)
	}
	if len(result.Observations) > 0 {
		fmt.Println()
	}
	fmt.Println(result.Summary)
	return nil
}

func consoleReporter() pipeline.Reporter {
	return pipeline.Reporter{
		PhaseStart: func(phase string) {
			banner.Printf("\n== %s ==\n", strings.ToUpper(phase[:1])+phase[1:])
		},
		PhaseDone: func(phase, summary string) {
			success.Printf("%s done: %s\n", phase, firstLine(summary))
		},
		Iteration: func(phase string, n int) {
			fmt.Printf("  [%s] iteration %d\n", phase, n)
		},
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
