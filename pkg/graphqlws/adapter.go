package graphqlws

import (
	"context"

	"github.com/getgraphd/graphd/pkg/graphql"
)

// EngineAdapter adapts a graphql.Engine to the Executor contract. It only
// normalizes the result shape: queries and mutations become a single result,
// subscriptions become a stream. Parse, validation, and resolution failures
// all surface through the errors case.
type EngineAdapter struct {
	engine *graphql.Engine
}

// NewEngineAdapter wraps an engine for use as a session executor.
func NewEngineAdapter(engine *graphql.Engine) *EngineAdapter {
	return &EngineAdapter{engine: engine}
}

// Execute dispatches one operation to the engine.
func (a *EngineAdapter) Execute(ctx context.Context, op *Operation) (*Result, error) {
	req := &graphql.Request{
		Query:         op.Query,
		OperationName: op.OperationName,
		Variables:     op.Variables,
	}

	if a.engine.IsSubscription(req) {
		stream, err := a.engine.Subscribe(ctx, req)
		if err != nil {
			return &Result{Single: graphql.ErrorResponse(err.Error())}, nil
		}
		return &Result{Stream: stream}, nil
	}

	return &Result{Single: a.engine.Execute(ctx, req)}, nil
}
