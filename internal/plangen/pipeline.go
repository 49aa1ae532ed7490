package plangen

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"example.com/coach/internal/domain"
	"example.com/coach/internal/llm"
	"example.com/coach/internal/observability"
)

// Decoding parameters are fixed per facet for behavioural stability across
// model updates. The token limits bound verbosity and variance.
const (
	workoutTemperature = 0.4
	workoutMaxTokens   = 900
	dietTemperature    = 0.4
	dietMaxTokens      = 700
)

// Completer isolates the LLM transport from plan orchestration.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// PipelineOption configures optional behaviour for the Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger overrides the logger used to report stage failures.
func WithLogger(logger *log.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// Pipeline runs the two facet generations strictly sequentially and persists
// the combined result as one plan. The first stage failure aborts the run:
// the diet prompt is never sent after a workout failure, and no partial plan
// is ever persisted.
type Pipeline struct {
	completer Completer
	service   *domain.Service
	logger    *log.Logger
	now       func() time.Time
}

// NewPipeline constructs a Pipeline.
func NewPipeline(completer Completer, service *domain.Service, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		completer: completer,
		service:   service,
		logger:    log.New(log.Writer(), "[plangen] ", log.LstdFlags),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Generate validates the request, runs both facets, and persists the plan.
func (p *Pipeline) Generate(ctx context.Context, req PlanRequest) (*domain.Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	workout, err := p.generateWorkout(ctx, req)
	if err != nil {
		observability.RecordPlanFailed()
		return nil, err
	}

	diet, err := p.generateDiet(ctx, req)
	if err != nil {
		observability.RecordPlanFailed()
		return nil, err
	}

	name := fmt.Sprintf("%s Plan - %s", req.FitnessGoal, p.now().UTC().Format("2006-01-02"))
	plan, err := p.service.CreatePlan(ctx, domain.CreatePlanInput{
		UserID:      req.UserID,
		Name:        name,
		WorkoutPlan: workout,
		DietPlan:    diet,
	})
	if err != nil {
		observability.RecordPlanFailed()
		return nil, fmt.Errorf("persist plan: %w", err)
	}

	observability.RecordPlanGenerated()
	return plan, nil
}

func (p *Pipeline) generateWorkout(ctx context.Context, req PlanRequest) (domain.WorkoutPlan, error) {
	parsed, err := p.completeJSON(ctx, "workout", WorkoutPrompt(req), workoutTemperature, workoutMaxTokens)
	if err != nil {
		return domain.WorkoutPlan{}, err
	}
	return ValidateWorkout(parsed)
}

func (p *Pipeline) generateDiet(ctx context.Context, req PlanRequest) (domain.DietPlan, error) {
	parsed, err := p.completeJSON(ctx, "diet", DietPrompt(req), dietTemperature, dietMaxTokens)
	if err != nil {
		return domain.DietPlan{}, err
	}
	return ValidateDiet(parsed)
}

// completeJSON runs one facet: prompt, completion, fence stripping, parse.
func (p *Pipeline) completeJSON(ctx context.Context, facet, prompt string, temperature float64, maxTokens int) (map[string]any, error) {
	start := time.Now()
	raw, err := p.completer.Complete(ctx, prompt, temperature, maxTokens)
	observability.ObserveFacetCompletion(facet, time.Since(start))
	if err != nil {
		p.logger.Printf("%s completion failed: %v", facet, err)
		return nil, fmt.Errorf("%s completion: %w", facet, err)
	}

	cleaned := llm.StripFences(raw)

	var parsed map[string]any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		p.logger.Printf("%s completion is not valid JSON: %v", facet, err)
		return nil, fmt.Errorf("%s completion is not valid JSON: %w", facet, err)
	}
	return parsed, nil
}
