package domain

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrUnknownStage indicates an edge points at a stage the graph
	// does not hold.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrRoutingCycle indicates the graph revisited a stage within one
	// run, which the edge predicates must never allow.
	ErrRoutingCycle = errors.New("routing cycle detected")
)

// Artifact is the tagged union carried through a run. Each stage fills
// in its own slot; nil slots mark stages that never ran. The evidence
// buffer is created fresh with the artifact so no run observes another
// run's retrieval trail.
type Artifact struct {
	Message        InboundMessage
	Classification *Classification
	Order          *ParsedOrder
	Enriched       *EnrichedOrder
	Grounding      *GroundingVerdict
	Decision       *Decision
	Approval       *ApprovalOutcome
	Fulfillment    *FulfillmentReceipt
	Rejection      *RejectionReceipt
	Evidence       *Evidence
	Terminal       string
}

// Edge connects two stages. When is evaluated on the artifact after
// From completes; a nil predicate always matches.
type Edge struct {
	From string
	To   string
	When func(*Artifact) bool
}

// Graph routes one inbound message through the pipeline stages. A graph
// is built fresh per message and holds no state between runs.
type Graph struct {
	start  string
	stages map[string]Stage
	edges  []Edge
	screen SafetyScreen
	tracer trace.Tracer
	logf   func(format string, args ...any)
}

// NewGraph creates an empty graph starting at the named stage.
func NewGraph(start string) *Graph {
	return &Graph{
		start:  start,
		stages: make(map[string]Stage),
		tracer: otel.Tracer("orderdesk/pipeline"),
		logf:   log.Printf,
	}
}

// AddStage registers a stage node.
func (g *Graph) AddStage(s Stage) {
	g.stages[s.Name()] = s
}

// AddEdge registers a routing edge. Edges are evaluated in insertion
// order; the first matching edge wins.
func (g *Graph) AddEdge(from, to string, when func(*Artifact) bool) {
	g.edges = append(g.edges, Edge{From: from, To: to, When: when})
}

// SetScreen installs a content screen that runs before the first stage.
func (g *Graph) SetScreen(screen SafetyScreen) {
	g.screen = screen
}

// Run drives one message through the graph until a terminal stage is
// reached. The returned artifact records everything each stage
// produced; Terminal names the last stage that ran.
func (g *Graph) Run(ctx context.Context, msg InboundMessage) (*Artifact, error) {
	art := &Artifact{Message: msg, Evidence: NewEvidence()}

	if g.screen != nil {
		verdict, err := g.screen.Screen(ctx, msg)
		if err != nil {
			return art, fmt.Errorf("screen message %s: %w", msg.ID, err)
		}
		if !verdict.Safe {
			quarantined := Quarantine(msg, verdict.Reason)
			art.Classification = &quarantined
			g.logf("run message=%s quarantined reason=%q", msg.ID, verdict.Reason)
			return art, nil
		}
	}

	current := g.start
	visited := make(map[string]bool, len(g.stages))
	for {
		stage, ok := g.stages[current]
		if !ok {
			return art, fmt.Errorf("%w: %s", ErrUnknownStage, current)
		}
		if visited[current] {
			return art, fmt.Errorf("%w: %s", ErrRoutingCycle, current)
		}
		visited[current] = true

		if err := g.runStage(ctx, stage, art); err != nil {
			return art, err
		}
		art.Terminal = current

		next, ok := g.next(current, art)
		if !ok {
			g.logTerminal(art)
			return art, nil
		}
		current = next
	}
}

func (g *Graph) runStage(ctx context.Context, stage Stage, art *Artifact) error {
	ctx, span := g.tracer.Start(ctx, "pipeline."+stage.Name())
	defer span.End()
	if err := stage.Run(ctx, art); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (g *Graph) next(from string, art *Artifact) (string, bool) {
	for _, edge := range g.edges {
		if edge.From != from {
			continue
		}
		if edge.When == nil || edge.When(art) {
			return edge.To, true
		}
	}
	return "", false
}

func (g *Graph) logTerminal(art *Artifact) {
	switch {
	case art.Fulfillment != nil:
		g.logf("run message=%s terminal=%s order=%s invoice=%s ok=%t",
			art.Message.ID, art.Terminal, art.Fulfillment.OrderID, art.Fulfillment.InvoiceRef, art.Fulfillment.OK)
	case art.Rejection != nil:
		g.logf("run message=%s terminal=%s reason=%q ok=%t",
			art.Message.ID, art.Terminal, art.Rejection.Reason, art.Rejection.OK)
	case art.Grounding != nil && !art.Grounding.Grounded:
		g.logf("run message=%s terminal=%s ungrounded reason=%q",
			art.Message.ID, art.Terminal, art.Grounding.Reason)
	case art.Classification != nil && !art.Classification.IsPurchaseOrder:
		g.logf("run message=%s terminal=%s not a purchase order: %s",
			art.Message.ID, art.Terminal, art.Classification.Reason)
	default:
		g.logf("run message=%s terminal=%s", art.Message.ID, art.Terminal)
	}
}

// PipelineDeps bundles the collaborators a standard pipeline needs.
type PipelineDeps struct {
	Classifier  Classifier
	Parser      Parser
	Enricher    Enricher
	Grounding   *GroundingGate
	Policy      DecisionPolicy
	Approval    *ApprovalGate
	Fulfillment *FulfillmentStage
	Rejection   *RejectionStage
	Screen      SafetyScreen
}

// NewPipelineGraph wires the standard topology: classify feeds parse
// only for purchase orders, grounding failures terminate before the
// decision runs, and fulfillment is reachable only through an approved
// outcome. Every other path ends in rejection or a silent terminal.
func NewPipelineGraph(deps PipelineDeps) *Graph {
	g := NewGraph(StageClassify)
	g.AddStage(ClassifyStage{Classifier: deps.Classifier})
	g.AddStage(ParseStage{Parser: deps.Parser})
	g.AddStage(EnrichStage{Enricher: deps.Enricher})
	g.AddStage(GroundStage{Gate: deps.Grounding})
	g.AddStage(DecideStage{Policy: deps.Policy})
	g.AddStage(ApproveStage{Gate: deps.Approval})
	g.AddStage(FulfillStage{Stage: deps.Fulfillment})
	g.AddStage(RejectStage{Stage: deps.Rejection})
	if deps.Screen != nil {
		g.SetScreen(deps.Screen)
	}

	g.AddEdge(StageClassify, StageParse, func(a *Artifact) bool {
		return a.Classification != nil && a.Classification.IsPurchaseOrder && !a.Classification.Quarantined
	})
	g.AddEdge(StageParse, StageEnrich, nil)
	g.AddEdge(StageEnrich, StageGround, nil)
	g.AddEdge(StageGround, StageDecide, func(a *Artifact) bool {
		return a.Grounding != nil && a.Grounding.Grounded
	})
	g.AddEdge(StageDecide, StageApprove, func(a *Artifact) bool {
		return a.Decision != nil && a.Decision.Status == StatusFulfillable
	})
	g.AddEdge(StageDecide, StageReject, func(a *Artifact) bool {
		return a.Decision != nil && a.Decision.Status == StatusUnfulfillable
	})
	g.AddEdge(StageApprove, StageFulfill, func(a *Artifact) bool {
		return a.Approval != nil && *a.Approval == ApprovalApproved
	})
	g.AddEdge(StageApprove, StageReject, func(a *Artifact) bool {
		return a.Approval != nil && *a.Approval != ApprovalApproved
	})
	return g
}
