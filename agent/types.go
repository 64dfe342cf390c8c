// Package agent contains the research answering pipeline: the decision logic
// that retrieves local context, falls back to internet search when allowed,
// assembles a bounded prompt and judges whether the generated answer actually
// answers the question.
package agent

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidQuery reports a request that fails validation before the
	// pipeline starts.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrPipelineTimeout reports that the whole-pipeline deadline expired
	// before an answer could be produced.
	ErrPipelineTimeout = errors.New("pipeline timed out")
)

// Query is one research question. Immutable for the lifetime of a pipeline
// run. Name only personalizes the answer's tone; it has no security meaning.
type Query struct {
	Question             string
	Name                 string
	Model                string
	Temperature          float64
	EnableInternetSearch bool
}

func (q Query) validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("%w: question is empty", ErrInvalidQuery)
	}
	if q.Temperature < 0 || q.Temperature > 2 {
		return fmt.Errorf("%w: temperature %.2f out of range [0, 2]", ErrInvalidQuery, q.Temperature)
	}
	return nil
}

// AnswerResult is the pipeline's only externally visible output.
type AnswerResult struct {
	Question   string
	Name       string
	Generation string
	Model      string
	Sufficient bool
}
