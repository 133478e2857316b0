// Package signal provides the completion-marker tools and the observation
// recorder. Marker tools have no side effect beyond setting the complete
// flag in their result; the agent loop interprets the flag as termination.
package signal

import (
	"context"
	"fmt"
	"strings"

	"github.com/arcline/envclone/kernel/tool"
)

const (
	CompleteExplorationName = "complete_exploration"
	CompleteGenerationName  = "complete_generation"
	CompleteValidationName  = "complete_validation"
	RecordObservationName   = "record_observation"
)

// Observation is one recorded exploration finding.
type Observation struct {
	Category    string `json:"category"`
	Observation string `json:"observation"`
}

// Recorder accumulates observations over one run. Runs are single-threaded,
// so no locking.
type Recorder struct {
	observations []Observation
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Append(obs Observation) {
	r.observations = append(r.observations, obs)
}

// All returns recorded observations in order.
func (r *Recorder) All() []Observation {
	out := make([]Observation, len(r.observations))
	copy(out, r.observations)
	return out
}

type explorationArgs struct {
	Summary string `json:"summary" desc:"summary of everything learned about the API"`
}

type generationArgs struct {
	Summary string   `json:"summary" desc:"summary of the generated environment"`
	Files   []string `json:"files,omitempty" desc:"paths of all generated files"`
}

type validationArgs struct {
	Summary       string  `json:"summary" desc:"summary of behavioral differences found"`
	FidelityScore float64 `json:"fidelity_score" desc:"0-100 self-assessment of clone fidelity"`
}

type observationArgs struct {
	Category    string `json:"category" desc:"observation category, e.g. endpoint, auth, schema"`
	Observation string `json:"observation" desc:"one concrete finding"`
}

// NewCompleteExploration builds the exploration completion marker.
func NewCompleteExploration() (tool.Tool, error) {
	return tool.NewFunction(CompleteExplorationName,
		"Signal that API exploration is finished. Call once with a full summary.",
		func(ctx context.Context, args explorationArgs) (map[string]any, error) {
			return map[string]any{
				tool.CompleteKey: true,
				"summary":        args.Summary,
			}, nil
		})
}

// NewCompleteGeneration builds the generation completion marker.
func NewCompleteGeneration() (tool.Tool, error) {
	return tool.NewFunction(CompleteGenerationName,
		"Signal that code generation is finished. Call once with the list of generated files.",
		func(ctx context.Context, args generationArgs) (map[string]any, error) {
			files := make([]string, 0, len(args.Files))
			for _, f := range args.Files {
				if strings.TrimSpace(f) != "" {
					files = append(files, f)
				}
			}
			return map[string]any{
				tool.CompleteKey: true,
				"summary":        args.Summary,
				"files":          files,
			}, nil
		})
}

// NewCompleteValidation builds the validation completion marker. The fidelity
// score is passed through opaquely.
func NewCompleteValidation() (tool.Tool, error) {
	return tool.NewFunction(CompleteValidationName,
		"Signal that differential validation is finished, with a fidelity score.",
		func(ctx context.Context, args validationArgs) (map[string]any, error) {
			if args.FidelityScore < 0 || args.FidelityScore > 100 {
				return nil, fmt.Errorf("signal: fidelity score %v out of range [0,100]", args.FidelityScore)
			}
			return map[string]any{
				tool.CompleteKey: true,
				"summary":        args.Summary,
				"fidelity_score": args.FidelityScore,
			}, nil
		})
}

// NewRecordObservation builds the observation recording tool bound to one
// recorder.
func NewRecordObservation(rec *Recorder) (tool.Tool, error) {
	if rec == nil {
		return nil, fmt.Errorf("signal: recorder is nil")
	}
	return tool.NewFunction(RecordObservationName,
		"Record one concrete finding about the target API.",
		func(ctx context.Context, args observationArgs) (map[string]any, error) {
			if strings.TrimSpace(args.Observation) == "" {
				return nil, fmt.Errorf("signal: observation text is required")
			}
			category := strings.TrimSpace(args.Category)
			if category == "" {
				category = "general"
			}
			rec.Append(Observation{Category: category, Observation: args.Observation})
			return map[string]any{
				"recorded": true,
				"count":    len(rec.All()),
			}, nil
		})
}
