package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/koios-ai/koios/document_store"
	"github.com/koios-ai/koios/llm_service"
	"github.com/koios-ai/koios/search_provider"
)

// Settings are the per-construction pipeline knobs. They are passed in
// explicitly so multiple differently-configured workflows can coexist.
type Settings struct {
	DefaultModel     string
	RetrievalTopK    int
	ContextBudget    int
	MaxSearchResults int
	PipelineTimeout  time.Duration
}

// Workflow coordinates one pipeline run per Run call:
//
//	Start → RetrieveLocal → (SearchFallback) → AssembleContext → Generate → EvaluateSufficiency → Done
//
// A Workflow holds no per-request state and is safe for concurrent use; all
// mutable run state lives in the pipelineRun value.
type Workflow struct {
	store     document_store.Store
	chain     *search_provider.Chain
	llm       llm_service.LLMService
	evaluator *Evaluator
	settings  Settings
	logger    *slog.Logger
}

func NewWorkflow(store document_store.Store, chain *search_provider.Chain, llm llm_service.LLMService, evaluator *Evaluator, settings Settings, logger *slog.Logger) *Workflow {
	if settings.RetrievalTopK <= 0 {
		settings.RetrievalTopK = 3
	}
	if settings.ContextBudget <= 0 {
		settings.ContextBudget = 6000
	}
	if settings.MaxSearchResults <= 0 {
		settings.MaxSearchResults = 5
	}
	return &Workflow{
		store:     store,
		chain:     chain,
		llm:       llm,
		evaluator: evaluator,
		settings:  settings,
		logger:    logger,
	}
}

type pipelineState int

const (
	stateStart pipelineState = iota
	stateRetrieveLocal
	stateSearchFallback
	stateAssembleContext
	stateGenerate
	stateEvaluateSufficiency
	stateDone
)

type pipelineRun struct {
	query      Query
	retrieval  document_store.RetrievalResult
	snippets   []search_provider.Snippet
	contextStr string
	generation string
}

// Run answers one question. Errors are fatal for the request; an
// insufficient answer is NOT an error and is reported through the
// AnswerResult's Sufficient flag.
func (w *Workflow) Run(ctx context.Context, query Query) (AnswerResult, error) {
	if w.settings.PipelineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.settings.PipelineTimeout)
		defer cancel()
	}

	result, err := w.run(ctx, query)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return AnswerResult{}, fmt.Errorf("%w: %v", ErrPipelineTimeout, err)
	}
	return result, err
}

func (w *Workflow) run(ctx context.Context, query Query) (AnswerResult, error) {
	run := &pipelineRun{query: query}
	state := stateStart

	for state != stateDone {
		var err error
		switch state {
		case stateStart:
			if run.query.Model == "" {
				run.query.Model = w.settings.DefaultModel
			}
			if err = run.query.validate(); err != nil {
				return AnswerResult{}, err
			}
			state = stateRetrieveLocal

		case stateRetrieveLocal:
			w.logger.Info("Step: Retrieving Local Context",
				slog.String("question", run.query.Question))
			run.retrieval, err = w.store.Search(ctx, run.query.Question, w.settings.RetrievalTopK)
			if err != nil {
				return AnswerResult{}, fmt.Errorf("local retrieval failed: %w", err)
			}
			if w.evaluator.NeedsSearch(len(run.retrieval), run.query.EnableInternetSearch) {
				state = stateSearchFallback
			} else {
				state = stateAssembleContext
			}

		case stateSearchFallback:
			searchQuery := w.transformQuery(ctx, run.query)
			w.logger.Info("Step: Searching the Web",
				slog.String("search_query", searchQuery))
			run.snippets = w.chain.Search(ctx, searchQuery, w.settings.MaxSearchResults)
			if ctx.Err() != nil {
				return AnswerResult{}, ctx.Err()
			}
			state = stateAssembleContext

		case stateAssembleContext:
			run.contextStr = AssembleContext(w.settings.ContextBudget, run.retrieval, run.snippets)
			state = stateGenerate

		case stateGenerate:
			w.logger.Info("Step: Generating Final Response",
				slog.String("model", run.query.Model),
				slog.Int("context_length", len(run.contextStr)))
			prompt := buildGeneratePrompt(run.query, run.contextStr)
			run.generation, err = w.llm.Generate(ctx, prompt, run.query.Model, run.query.Temperature)
			if err != nil {
				return AnswerResult{}, fmt.Errorf("generation failed: %w", err)
			}
			state = stateEvaluateSufficiency

		case stateEvaluateSufficiency:
			generation, sufficient := w.evaluator.Evaluate(run.generation)
			if !sufficient {
				w.logger.Info("Step: Generation judged insufficient, normalizing response")
			}
			return AnswerResult{
				Question:   strings.TrimSpace(run.query.Question),
				Name:       run.query.Name,
				Generation: generation,
				Model:      run.query.Model,
				Sufficient: sufficient,
			}, nil
		}
	}

	return AnswerResult{}, fmt.Errorf("pipeline reached done without a result")
}

// transformQuery asks the model to reword the question into a short keyword
// query before hitting the search providers. Transformation is best-effort:
// any failure falls back to the raw question.
func (w *Workflow) transformQuery(ctx context.Context, query Query) string {
	w.logger.Info("Step: Optimizing Query for Web Search")

	raw, err := w.llm.Generate(ctx, buildTransformPrompt(query.Question), query.Model, 0)
	if err != nil {
		w.logger.Warn("Query transform failed, using raw question",
			slog.String("error", err.Error()))
		return query.Question
	}

	transformed, err := parseTransformedQuery(raw)
	if err != nil {
		w.logger.Warn("Query transform returned malformed output, using raw question",
			slog.String("error", err.Error()))
		return query.Question
	}
	return transformed
}

func parseTransformedQuery(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in transform output")
	}

	var parsed struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return "", fmt.Errorf("invalid transform JSON: %w", err)
	}
	if strings.TrimSpace(parsed.Query) == "" {
		return "", fmt.Errorf("transform produced an empty query")
	}
	return parsed.Query, nil
}
