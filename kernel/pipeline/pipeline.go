// Package pipeline sequences the specialized agents into the full cloning
// run: explore the target, synthesize a specification, generate the replica,
// and optionally validate it. Any phase failure aborts the run.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/uuid"

	"github.com/arcline/envclone/kernel/agentrun"
	"github.com/arcline/envclone/kernel/agents"
	"github.com/arcline/envclone/kernel/apispec"
	"github.com/arcline/envclone/kernel/completion"
	"github.com/arcline/envclone/kernel/execenv"
	"github.com/arcline/envclone/kernel/store"
	"github.com/arcline/envclone/kernel/tool"
	"github.com/arcline/envclone/kernel/transcript"
)

// SpecFileName is where the synthesized specification lands in the output.
const SpecFileName = "api_spec.json"

// Reporter receives phase progress. All methods may be called with a nil
// receiver guard already applied; implementations need no locking.
type Reporter struct {
	PhaseStart func(phase string)
	PhaseDone  func(phase, summary string)
	Iteration  func(phase string, n int)
}

// Config configures one cloning run.
type Config struct {
	Client            *completion.Client
	TargetURL         string
	OutputRoot        string
	MaxIterations     int
	StartingEndpoints []string
	// ExtraTools join the exploration catalog, typically from a target's
	// MCP server.
	ExtraTools []tool.Tool
	// Validate runs the differential validation phase against CloneURL
	// after generation.
	Validate bool
	CloneURL string
	Reporter Reporter
}

// Result collects the outcome of all phases.
type Result struct {
	RunID       string
	Spec        *apispec.Document
	Exploration *agents.ExplorationResult
	Generation  *agents.GenerationResult
	Validation  *agents.ValidationResult
	CommitHash  string
}

// Run executes the pipeline. The output root is created if missing; on
// success it holds the generated environment, the specification document, a
// logs/ directory with one transcript per phase, and a git snapshot commit.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("pipeline: completion client is required")
	}
	if cfg.TargetURL == "" {
		return nil, fmt.Errorf("pipeline: target url is required")
	}
	if cfg.OutputRoot == "" {
		return nil, fmt.Errorf("pipeline: output root is required")
	}
	if cfg.Validate && cfg.CloneURL == "" {
		return nil, fmt.Errorf("pipeline: validation needs a clone url")
	}
	if err := os.MkdirAll(cfg.OutputRoot, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: create output root: %w", err)
	}

	db, err := store.Open(filepath.Join(cfg.OutputRoot, "data", "app.db"))
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	defer db.Close()

	env, err := execenv.New(execenv.Config{
		TargetURL:  cfg.TargetURL,
		OutputRoot: cfg.OutputRoot,
		Store:      db,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	result := &Result{RunID: uuid.NewString()}

	cfg.Reporter.phaseStart("exploration")
	exploration, err := agents.RunExploration(ctx, agents.ExplorationConfig{
		Client:            cfg.Client,
		Env:               env,
		MaxIterations:     cfg.MaxIterations,
		StartingEndpoints: cfg.StartingEndpoints,
		ExtraTools:        cfg.ExtraTools,
		Hooks:             cfg.Reporter.hooks("exploration"),
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: exploration: %w", err)
	}
	result.Exploration = exploration
	if err := writePhaseLog(cfg.OutputRoot, "exploration", exploration.Outcome, exploration.Iterations, exploration.Transcript); err != nil {
		return nil, err
	}
	cfg.Reporter.phaseDone("exploration", exploration.Summary)

	cfg.Reporter.phaseStart("specification")
	specification, err := agents.RunSpecification(ctx, agents.SpecificationConfig{
		Client:                cfg.Client,
		ExplorationTranscript: exploration.Transcript.Render(),
		Observations:          exploration.Observations,
		TargetURL:             cfg.TargetURL,
		Hooks:                 cfg.Reporter.hooks("specification"),
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: specification: %w", err)
	}
	result.Spec = specification.Document
	if err := writeSpec(cfg.OutputRoot, specification.Document); err != nil {
		return nil, err
	}
	if err := writePhaseLog(cfg.OutputRoot, "specification", specification.Outcome, specification.Iterations, specification.Transcript); err != nil {
		return nil, err
	}
	cfg.Reporter.phaseDone("specification", fmt.Sprintf("%d endpoints", len(specification.Document.Endpoints)))

	cfg.Reporter.phaseStart("generation")
	generation, err := agents.RunGeneration(ctx, agents.GenerationConfig{
		Client:   cfg.Client,
		Env:      env,
		Document: specification.Document,
		Hooks:    cfg.Reporter.hooks("generation"),
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: generation: %w", err)
	}
	if generation.Outcome == agentrun.OutcomeExhausted {
		return nil, fmt.Errorf("pipeline: generation ran out of iterations before signaling completion")
	}
	result.Generation = generation
	if err := writePhaseLog(cfg.OutputRoot, "generation", generation.Outcome, generation.Iterations, generation.Transcript); err != nil {
		return nil, err
	}
	cfg.Reporter.phaseDone("generation", generation.Summary)

	if cfg.Validate {
		cloneEnv, err := execenv.New(execenv.Config{TargetURL: cfg.CloneURL})
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		cfg.Reporter.phaseStart("validation")
		validation, err := agents.RunValidation(ctx, agents.ValidationConfig{
			Client:        cfg.Client,
			OriginalEnv:   env,
			CloneEnv:      cloneEnv,
			Document:      specification.Document,
			MaxIterations: cfg.MaxIterations,
			Hooks:         cfg.Reporter.hooks("validation"),
		})
		if err != nil {
			return nil, fmt.Errorf("pipeline: validation: %w", err)
		}
		result.Validation = validation
		if err := writePhaseLog(cfg.OutputRoot, "validation", validation.Outcome, validation.Iterations, validation.Transcript); err != nil {
			return nil, err
		}
		cfg.Reporter.phaseDone("validation", fmt.Sprintf("fidelity %.0f/100", validation.FidelityScore))
	}

	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("pipeline: close store: %w", err)
	}
	hash, err := snapshot(cfg.OutputRoot)
	if err != nil {
		return nil, err
	}
	result.CommitHash = hash
	return result, nil
}

func (r Reporter) phaseStart(phase string) {
	if r.PhaseStart != nil {
		r.PhaseStart(phase)
	}
}

func (r Reporter) phaseDone(phase, summary string) {
	if r.PhaseDone != nil {
		r.PhaseDone(phase, summary)
	}
}

func (r Reporter) hooks(phase string) agentrun.Hooks {
	if r.Iteration == nil {
		return agentrun.Hooks{}
	}
	return agentrun.Hooks{
		OnIteration: func(n int) { r.Iteration(phase, n) },
	}
}

// phaseLog is the on-disk shape of one phase transcript.
type phaseLog struct {
	Phase      string            `json:"phase"`
	Outcome    agentrun.Outcome  `json:"outcome"`
	Iterations int               `json:"iterations"`
	Turns      []transcript.Turn `json:"turns"`
}

func writePhaseLog(root, phase string, outcome agentrun.Outcome, iterations int, tr *transcript.Transcript) error {
	logsDir := filepath.Join(root, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("pipeline: create logs dir: %w", err)
	}
	entry := phaseLog{Phase: phase, Outcome: outcome, Iterations: iterations}
	if tr != nil {
		entry.Turns = tr.All()
	}
	raw, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: encode %s log: %w", phase, err)
	}
	path := filepath.Join(logsDir, phase+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("pipeline: write %s log: %w", phase, err)
	}
	return nil
}

func writeSpec(root string, doc *apispec.Document) error {
	text, err := doc.JSON()
	if err != nil {
		return fmt.Errorf("pipeline: encode spec: %w", err)
	}
	path := filepath.Join(root, SpecFileName)
	if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("pipeline: write spec: %w", err)
	}
	return nil
}

// snapshot commits the whole output tree so regenerated runs stay diffable.
func snapshot(root string) (string, error) {
	repo, err := git.PlainInit(root, false)
	if err == git.ErrRepositoryAlreadyExists {
		repo, err = git.PlainOpen(root)
	}
	if err != nil {
		return "", fmt.Errorf("pipeline: init snapshot repo: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("pipeline: snapshot worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("pipeline: stage snapshot: %w", err)
	}
	hash, err := wt.Commit("snapshot generated environment", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "envclone",
			Email: "envclone@localhost",
			When:  time.Now(),
		},
		AllowEmptyCommits: true,
	})
	if err != nil {
		return "", fmt.Errorf("pipeline: commit snapshot: %w", err)
	}
	return hash.String(), nil
}
