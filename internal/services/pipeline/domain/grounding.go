package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ReasonNoEvidence is the automatic-fail reason for enrichments that
// carry no supporting evidence at all.
const ReasonNoEvidence = "no response/evidence"

// ErrEvaluatorNotConfigured indicates the gate is missing its evaluator.
var ErrEvaluatorNotConfigured = errors.New("grounding evaluator is not configured")

// GroundingVerdict records whether an enriched order is supported by
// the evidence collected while resolving it. It is attached beside the
// order as metadata; the order itself passes through unchanged.
type GroundingVerdict struct {
	Grounded bool
	Score    float64
	Reason   string
}

// GroundingEvaluator scores a generated response against the evidence
// used to produce it. Implementations are external; the gate treats
// them as a black box returning a pass/fail label, a score, and a
// reason.
type GroundingEvaluator interface {
	EvaluateGrounding(ctx context.Context, query string, response string, evidence string) (GroundingVerdict, error)
}

// GroundingGate validates enrichment output before it may reach the
// decision stage.
type GroundingGate struct {
	evaluator GroundingEvaluator
}

// NewGroundingGate constructs a grounding gate around an evaluator.
func NewGroundingGate(evaluator GroundingEvaluator) *GroundingGate {
	return &GroundingGate{evaluator: evaluator}
}

// Check evaluates one enriched order against the run's evidence buffer.
// An empty evidence buffer fails immediately without consulting the
// evaluator. The order is never mutated; routing reads only the
// returned verdict.
func (g *GroundingGate) Check(ctx context.Context, order EnrichedOrder, evidence *Evidence) (GroundingVerdict, error) {
	if evidence.Empty() {
		return GroundingVerdict{Grounded: false, Score: 0, Reason: ReasonNoEvidence}, nil
	}
	if g == nil || g.evaluator == nil {
		return GroundingVerdict{}, ErrEvaluatorNotConfigured
	}

	response, err := json.Marshal(order)
	if err != nil {
		return GroundingVerdict{}, fmt.Errorf("serialize enriched order: %w", err)
	}
	query := strings.Join(evidence.Queries(), " | ")
	if query == "" {
		query = fmt.Sprintf("order %s enrichment", order.MessageID)
	}
	verdict, err := g.evaluator.EvaluateGrounding(ctx, query, string(response), strings.Join(evidence.Snippets(), "\n\n"))
	if err != nil {
		return GroundingVerdict{}, fmt.Errorf("evaluate grounding: %w", err)
	}
	return verdict, nil
}
