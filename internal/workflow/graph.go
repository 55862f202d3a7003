package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/logtrail/logtrail/internal/conversation"
	"github.com/logtrail/logtrail/internal/llm"
	"github.com/logtrail/logtrail/internal/store"
)

// Deps wires the workflow's stages to their collaborators. All fields
// are required; Now defaults to time.Now if left nil.
type Deps struct {
	LLM               llm.Client
	ConversationStore *conversation.Store
	SchemaRepo        *store.SchemaRepository
	QueryRepo         *store.QueryRepository
	LogRepo           *store.LogRepository
	Now               func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Outcome is how a Run ended.
type Outcome string

const (
	OutcomeComplete      Outcome = "complete"
	OutcomeFail          Outcome = "fail"
	OutcomeClarification Outcome = "clarification"
	OutcomeCancelled     Outcome = "cancelled"
)

// node names, the graph's vertex set.
const (
	nodeResolveContext  = "resolve_context"
	nodeExtractFilters  = "extract_filters"
	nodeClarifier       = "clarifier"
	nodeRetrieveSchema  = "retrieve_schema"
	nodeGenerateSQL     = "generate_sql"
	nodeValidateSQL     = "validate_sql"
	nodeExecuteQuery    = "execute_query"
	nodeGenerateInsight = "generate_insight"
)

// EntryPoint is always resolve_context: conversational context
// resolution is mandatory infrastructure here, not an optional feature
// gated on whether a conversation service happened to be wired in.
func EntryPoint() string { return nodeResolveContext }

// Graph holds the node implementations and routes between them. It has
// no mutable state of its own — everything it touches lives in the
// AgentState passed to each call — so one Graph can run many requests
// concurrently.
type Graph struct {
	deps *Deps
}

func NewGraph(deps *Deps) *Graph {
	return &Graph{deps: deps}
}

// runNode dispatches to the node implementation named by node.
func (g *Graph) runNode(ctx context.Context, node string, state *AgentState) error {
	switch node {
	case nodeResolveContext:
		return resolveContextNode(ctx, g.deps.LLM, g.deps.ConversationStore, state)
	case nodeExtractFilters:
		return extractFiltersNode(ctx, g.deps.LLM, g.deps.now(), state)
	case nodeClarifier:
		return clarificationNode(ctx, g.deps.LLM, g.deps.LogRepo, state)
	case nodeRetrieveSchema:
		return retrieveSchemaNode(ctx, g.deps.SchemaRepo, state)
	case nodeGenerateSQL:
		return generateSQLNode(ctx, g.deps.LLM, state)
	case nodeValidateSQL:
		validateSQLNode(state)
		return nil
	case nodeExecuteQuery:
		return executeQueryNode(ctx, g.deps.QueryRepo, state)
	case nodeGenerateInsight:
		return generateInsightNode(ctx, g.deps.LLM, state)
	default:
		return fmt.Errorf("workflow: unknown node %q", node)
	}
}

// next implements the graph's edges, both fixed and conditional.
// ok is false when node is a terminal (END) vertex.
func (g *Graph) next(node string, state *AgentState) (string, bool) {
	switch node {
	case nodeResolveContext:
		return nodeExtractFilters, true
	case nodeExtractFilters:
		return nodeClarifier, true
	case nodeClarifier:
		if len(state.ClarificationsNeeded) > 0 {
			return "", false
		}
		return nodeRetrieveSchema, true
	case nodeRetrieveSchema:
		return nodeGenerateSQL, true
	case nodeGenerateSQL:
		return nodeValidateSQL, true
	case nodeValidateSQL:
		switch routeAfterValidation(state) {
		case "execute":
			return nodeExecuteQuery, true
		case "regenerate":
			return nodeGenerateSQL, true
		default:
			return "", false
		}
	case nodeExecuteQuery:
		switch routeAfterExecution(state) {
		case "insight":
			return nodeGenerateInsight, true
		default:
			return "", false
		}
	case nodeGenerateInsight:
		return "", false
	default:
		return "", false
	}
}

// Hooks lets a caller (the streaming facade, or a test) observe each
// node boundary as the run progresses.
type Hooks struct {
	OnNodeStart func(node string)
	OnNodeEnd   func(node string, state *AgentState)
}

// Run drives state through the graph from EntryPoint to a terminal
// vertex, calling hooks (if non-nil) at each node boundary and checking
// ctx for cancellation between nodes — matching the "abort at the next
// stage boundary" cancellation contract.
func (g *Graph) Run(ctx context.Context, state *AgentState, hooks Hooks) Outcome {
	node := EntryPoint()

	for {
		select {
		case <-ctx.Done():
			return OutcomeCancelled
		default:
		}

		if hooks.OnNodeStart != nil {
			hooks.OnNodeStart(node)
		}

		if err := g.runNode(ctx, node, state); err != nil {
			// Node implementations that call the LLM normalize failures
			// into *llm.Error themselves (see internal/llm's Supervised
			// wrapper) before they ever reach here, so nothing raw
			// escapes as a workflow failure.
			state.ErrorMessage = err.Error()
			state.emit("node_complete", node, map[string]any{
				"error": err.Error(),
			})
			if hooks.OnNodeEnd != nil {
				hooks.OnNodeEnd(node, state)
			}
			return OutcomeFail
		}

		if hooks.OnNodeEnd != nil {
			hooks.OnNodeEnd(node, state)
		}

		nextNode, ok := g.next(node, state)
		if !ok {
			return terminalOutcome(node, state)
		}
		node = nextNode
	}
}

// terminalOutcome classifies the END state reached from node.
func terminalOutcome(node string, state *AgentState) Outcome {
	switch node {
	case nodeClarifier:
		return OutcomeClarification
	case nodeValidateSQL:
		state.ErrorMessage = fmt.Sprintf("SQL validation failed after %d retries: %s", maxSQLRetries, state.ValidationError)
		return OutcomeFail
	case nodeExecuteQuery:
		return OutcomeFail
	case nodeGenerateInsight:
		return OutcomeComplete
	default:
		return OutcomeFail
	}
}
