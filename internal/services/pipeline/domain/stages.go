package domain

import (
	"context"
	"fmt"
)

// Classifier triages an inbound message: purchase order or not.
type Classifier interface {
	Classify(ctx context.Context, msg InboundMessage) (Classification, error)
}

// Parser extracts a structured order from a purchase-order email.
type Parser interface {
	Parse(ctx context.Context, msg InboundMessage) (ParsedOrder, error)
}

// Enricher resolves a parsed order against the catalog and customer
// directory, recording every lookup it issues into the run's evidence
// buffer.
type Enricher interface {
	Enrich(ctx context.Context, order ParsedOrder, evidence *Evidence) (EnrichedOrder, error)
}

// Stage names used as graph nodes.
const (
	StageClassify = "classify"
	StageParse    = "parse"
	StageEnrich   = "enrich"
	StageGround   = "ground"
	StageDecide   = "decide"
	StageApprove  = "approve"
	StageFulfill  = "fulfill"
	StageReject   = "reject"
)

// Stage is one node of the pipeline graph. A stage reads what it needs
// from the artifact, runs, and writes its output back onto it.
type Stage interface {
	Name() string
	Run(ctx context.Context, art *Artifact) error
}

// ClassifyStage triages the inbound message.
type ClassifyStage struct {
	Classifier Classifier
}

func (s ClassifyStage) Name() string { return StageClassify }

func (s ClassifyStage) Run(ctx context.Context, art *Artifact) error {
	result, err := s.Classifier.Classify(ctx, art.Message)
	if err != nil {
		return fmt.Errorf("classify message %s: %w", art.Message.ID, err)
	}
	art.Classification = &result
	return nil
}

// ParseStage extracts the structured order and validates it.
type ParseStage struct {
	Parser Parser
}

func (s ParseStage) Name() string { return StageParse }

func (s ParseStage) Run(ctx context.Context, art *Artifact) error {
	order, err := s.Parser.Parse(ctx, art.Message)
	if err != nil {
		return fmt.Errorf("parse message %s: %w", art.Message.ID, err)
	}
	if order.MessageID == "" {
		order.MessageID = art.Message.ID
	}
	if err := order.Validate(); err != nil {
		return fmt.Errorf("validate order for message %s: %w", art.Message.ID, err)
	}
	art.Order = &order
	return nil
}

// EnrichStage resolves the order against the directory.
type EnrichStage struct {
	Enricher Enricher
}

func (s EnrichStage) Name() string { return StageEnrich }

func (s EnrichStage) Run(ctx context.Context, art *Artifact) error {
	enriched, err := s.Enricher.Enrich(ctx, *art.Order, art.Evidence)
	if err != nil {
		return fmt.Errorf("enrich message %s: %w", art.Message.ID, err)
	}
	art.Enriched = &enriched
	return nil
}

// GroundStage attaches the grounding verdict without touching the order.
type GroundStage struct {
	Gate *GroundingGate
}

func (s GroundStage) Name() string { return StageGround }

func (s GroundStage) Run(ctx context.Context, art *Artifact) error {
	verdict, err := s.Gate.Check(ctx, *art.Enriched, art.Evidence)
	if err != nil {
		return fmt.Errorf("ground-check message %s: %w", art.Message.ID, err)
	}
	art.Grounding = &verdict
	return nil
}

// DecideStage applies the business rules.
type DecideStage struct {
	Policy DecisionPolicy
}

func (s DecideStage) Name() string { return StageDecide }

func (s DecideStage) Run(ctx context.Context, art *Artifact) error {
	decision := Decide(*art.Enriched, s.Policy)
	art.Decision = &decision
	return nil
}

// ApproveStage blocks on the human review channel.
type ApproveStage struct {
	Gate *ApprovalGate
}

func (s ApproveStage) Name() string { return StageApprove }

func (s ApproveStage) Run(ctx context.Context, art *Artifact) error {
	outcome, err := s.Gate.Request(ctx, art.Decision.Order, ComputeTotals(art.Decision.Order))
	if err != nil {
		return fmt.Errorf("approval for message %s: %w", art.Message.ID, err)
	}
	art.Approval = &outcome
	return nil
}

// FulfillStage commits the order's side effects.
type FulfillStage struct {
	Stage *FulfillmentStage
}

func (s FulfillStage) Name() string { return StageFulfill }

func (s FulfillStage) Run(ctx context.Context, art *Artifact) error {
	approval := ApprovalDenied
	if art.Approval != nil {
		approval = *art.Approval
	}
	receipt, err := s.Stage.Fulfill(ctx, *art.Decision, approval)
	art.Fulfillment = &receipt
	if err != nil {
		return fmt.Errorf("fulfill message %s: %w", art.Message.ID, err)
	}
	return nil
}

// RejectStage sends the rejection notice.
type RejectStage struct {
	Stage *RejectionStage
}

func (s RejectStage) Name() string { return StageReject }

func (s RejectStage) Run(ctx context.Context, art *Artifact) error {
	receipt, err := s.Stage.Reject(ctx, *art.Decision)
	art.Rejection = &receipt
	if err != nil {
		return fmt.Errorf("reject message %s: %w", art.Message.ID, err)
	}
	return nil
}
