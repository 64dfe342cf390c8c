package agent

import "strings"

// InsufficientAnswerMessage is the fixed user-facing text substituted for
// model output that disclaims knowledge. The raw disclaimer is never exposed
// so callers see one consistent message.
const InsufficientAnswerMessage = "I don't have enough information to answer this question."

// defaultNoAnswerMarkers are phrases a model emits when it cannot answer.
// Marker matching is inherently fuzzy, so the set is configuration data, not
// a structural constant.
var defaultNoAnswerMarkers = []string{
	"i don't know",
	"i do not know",
	"i don't have enough information",
	"i do not have enough information",
	"insufficient information",
	"not enough information",
	"cannot answer",
	"unable to answer",
}

// Evaluator implements both sufficiency checks: whether retrieval produced
// usable context before generation, and whether the generated text actually
// answers the question afterwards.
type Evaluator struct {
	markers         []string
	fallbackMessage string
}

func NewEvaluator(markers []string, fallbackMessage string) *Evaluator {
	if len(markers) == 0 {
		markers = defaultNoAnswerMarkers
	}
	if fallbackMessage == "" {
		fallbackMessage = InsufficientAnswerMessage
	}
	lowered := make([]string, len(markers))
	for i, m := range markers {
		lowered[i] = strings.ToLower(m)
	}
	return &Evaluator{
		markers:         lowered,
		fallbackMessage: fallbackMessage,
	}
}

// NeedsSearch is the pre-generation check. Context counts as present when
// any local chunks were retrieved or when internet search is disabled
// (model-only mode is always attempted).
func (e *Evaluator) NeedsSearch(retrievedChunks int, internetSearchEnabled bool) bool {
	return retrievedChunks == 0 && internetSearchEnabled
}

// Evaluate is the post-generation check. When the generation matches a
// no-answer marker it is replaced by the fixed fallback message and the
// sufficiency flag is false.
func (e *Evaluator) Evaluate(generation string) (string, bool) {
	lowered := strings.ToLower(generation)
	for _, marker := range e.markers {
		if strings.Contains(lowered, marker) {
			return e.fallbackMessage, false
		}
	}
	return generation, true
}
