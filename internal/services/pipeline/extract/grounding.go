package extract

import (
	"context"
	"fmt"

	"github.com/paperco/orderdesk/internal/services/pipeline/domain"
)

const groundingInstructions = `You audit a generated answer against the
evidence it claims to be based on. The answer is grounded when every
product, price and quantity it states appears in the evidence.
Respond with a single JSON object and nothing else:
{"grounded": true|false, "score": 0.0-1.0, "reason": "<one short sentence>"}`

// Evaluator scores enrichment output against its evidence with the
// model. It implements the grounding gate's evaluator contract.
type Evaluator struct {
	client
}

// NewEvaluator builds a model-backed grounding evaluator.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{client{cfg: cfg.withDefaults()}}
}

// EvaluateGrounding asks the model whether the response is supported by
// the evidence.
func (e *Evaluator) EvaluateGrounding(ctx context.Context, query, response, evidence string) (domain.GroundingVerdict, error) {
	input := fmt.Sprintf("Query:\n%s\n\nEvidence:\n%s\n\nAnswer under evaluation:\n%s", query, evidence, response)
	output, err := e.respond(ctx, groundingInstructions, input)
	if err != nil {
		return domain.GroundingVerdict{}, fmt.Errorf("evaluate grounding: %w", err)
	}

	var payload struct {
		Grounded bool    `json:"grounded"`
		Score    float64 `json:"score"`
		Reason   string  `json:"reason"`
	}
	if err := decodeStrict(output, &payload); err != nil {
		return domain.GroundingVerdict{}, fmt.Errorf("evaluate grounding: %w", err)
	}
	return domain.GroundingVerdict{
		Grounded: payload.Grounded,
		Score:    payload.Score,
		Reason:   payload.Reason,
	}, nil
}
