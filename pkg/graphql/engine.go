package graphql

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/validator"
)

// ResolverFunc resolves a single root field of a query or mutation.
// The returned value is projected onto the field's selection set.
type ResolverFunc func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// SourceFunc produces the value stream for a single subscription field.
// The returned channel must be closed when the source completes. Sending a
// value of type error terminates the stream and is reported as an execution
// error to the client.
type SourceFunc func(ctx context.Context, args map[string]interface{}) (<-chan interface{}, error)

// Engine executes GraphQL operations against programmatically registered
// resolvers and subscription sources.
type Engine struct {
	schema    *Schema
	queries   map[string]ResolverFunc
	mutations map[string]ResolverFunc
	sources   map[string]SourceFunc
}

// NewEngine creates an execution engine for the given schema.
func NewEngine(schema *Schema) *Engine {
	return &Engine{
		schema:    schema,
		queries:   make(map[string]ResolverFunc),
		mutations: make(map[string]ResolverFunc),
		sources:   make(map[string]SourceFunc),
	}
}

// Schema returns the engine's schema.
func (e *Engine) Schema() *Schema {
	return e.schema
}

// Query registers a resolver for a root query field.
func (e *Engine) Query(field string, fn ResolverFunc) {
	e.queries[field] = fn
}

// Mutation registers a resolver for a root mutation field.
func (e *Engine) Mutation(field string, fn ResolverFunc) {
	e.mutations[field] = fn
}

// Source registers a value source for a root subscription field.
func (e *Engine) Source(field string, fn SourceFunc) {
	e.sources[field] = fn
}

// parse parses and validates a request, returning the document and the
// selected operation.
func (e *Engine) parse(req *Request) (*ast.QueryDocument, *ast.OperationDefinition, error) {
	if req == nil || req.Query == "" {
		return nil, nil, fmt.Errorf("query is required")
	}

	doc, parseErr := gqlparser.LoadQuery(e.schema.AST(), req.Query)
	if parseErr != nil {
		if len(parseErr) > 0 {
			return nil, nil, fmt.Errorf("parse error: %s", parseErr[0].Message)
		}
		return nil, nil, fmt.Errorf("parse error")
	}

	validationErrs := validator.Validate(e.schema.AST(), doc)
	if len(validationErrs) > 0 {
		return nil, nil, fmt.Errorf("validation error: %s", validationErrs[0].Message)
	}

	for _, op := range doc.Operations {
		if req.OperationName == "" || op.Name == req.OperationName {
			return doc, op, nil
		}
	}

	if req.OperationName != "" {
		return nil, nil, fmt.Errorf("operation %q not found", req.OperationName)
	}
	return nil, nil, fmt.Errorf("no operation found in query")
}

// IsSubscription reports whether the request selects a subscription
// operation. Malformed requests report false; the error surfaces when the
// request is executed.
func (e *Engine) IsSubscription(req *Request) bool {
	_, op, err := e.parse(req)
	return err == nil && op.Operation == ast.Subscription
}

// Execute runs a query or mutation and returns its response. Failures are
// reported in the response's Errors field, never as a panic or a nil
// response.
func (e *Engine) Execute(ctx context.Context, req *Request) *Response {
	doc, op, err := e.parse(req)
	if err != nil {
		return ErrorResponse(err.Error())
	}

	var resolvers map[string]ResolverFunc
	var rootType string
	switch op.Operation {
	case ast.Query:
		resolvers = e.queries
		rootType = "Query"
	case ast.Mutation:
		resolvers = e.mutations
		rootType = "Mutation"
	case ast.Subscription:
		return ErrorResponse("subscription operations must be executed over a streaming transport")
	default:
		return ErrorResponse("unsupported operation type")
	}

	data := make(map[string]interface{})
	var errs []Error

	for _, sel := range expandSelections(doc, op.SelectionSet) {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue
		}

		alias := field.Alias
		if alias == "" {
			alias = field.Name
		}

		if field.Name == "__typename" {
			data[alias] = rootType
			continue
		}

		fn, ok := resolvers[field.Name]
		if !ok {
			errs = append(errs, Error{
				Message: fmt.Sprintf("no resolver registered for %s.%s", rootType, field.Name),
				Path:    []interface{}{alias},
			})
			data[alias] = nil
			continue
		}

		args := e.coerceArguments(field, req.Variables)
		value, err := fn(ctx, args)
		if err != nil {
			errs = append(errs, Error{Message: err.Error(), Path: []interface{}{alias}})
			data[alias] = nil
			continue
		}

		data[alias] = e.project(doc, field.SelectionSet, value, e.fieldTypeName(rootType, field.Name))
	}

	return &Response{Data: data, Errors: errs}
}

// Subscribe resolves a subscription operation to its source stream. Every
// produced value is projected onto the operation's selection set and wrapped
// in a Response; a produced error value terminates the stream with a
// Response carrying that error.
func (e *Engine) Subscribe(ctx context.Context, req *Request) (<-chan *Response, error) {
	doc, op, err := e.parse(req)
	if err != nil {
		return nil, err
	}
	if op.Operation != ast.Subscription {
		return nil, fmt.Errorf("operation is not a subscription")
	}

	// The validator guarantees a single root field for subscriptions.
	selections := expandSelections(doc, op.SelectionSet)
	if len(selections) == 0 {
		return nil, fmt.Errorf("subscription has no root field")
	}
	field, ok := selections[0].(*ast.Field)
	if !ok {
		return nil, fmt.Errorf("subscription root is not a field")
	}

	fn, ok := e.sources[field.Name]
	if !ok {
		return nil, fmt.Errorf("no source registered for Subscription.%s", field.Name)
	}

	args := e.coerceArguments(field, req.Variables)
	values, err := fn(ctx, args)
	if err != nil {
		return nil, err
	}

	alias := field.Alias
	if alias == "" {
		alias = field.Name
	}
	typeName := e.fieldTypeName("Subscription", field.Name)

	out := make(chan *Response)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case v, open := <-values:
				if !open {
					return
				}
				resp := e.itemResponse(doc, field, alias, typeName, v)
				select {
				case out <- resp:
				case <-ctx.Done():
					return
				}
				if len(resp.Errors) > 0 {
					return
				}
			}
		}
	}()

	return out, nil
}

// itemResponse converts one source value into a stream response.
func (e *Engine) itemResponse(doc *ast.QueryDocument, field *ast.Field, alias, typeName string, v interface{}) *Response {
	if err, ok := v.(error); ok {
		return &Response{Errors: []Error{{Message: err.Error(), Path: []interface{}{alias}}}}
	}
	return &Response{Data: map[string]interface{}{
		alias: e.project(doc, field.SelectionSet, v, typeName),
	}}
}

// fieldTypeName resolves the named result type of a root field, or "" when
// the schema does not define it.
func (e *Engine) fieldTypeName(parentType, fieldName string) string {
	def := e.schema.GetType(parentType)
	if def == nil {
		return ""
	}
	for _, f := range def.Fields {
		if f.Name == fieldName {
			return f.Type.Name()
		}
	}
	return ""
}

// project narrows a resolved value to the fields the client selected,
// honoring aliases and descending into nested objects and lists.
func (e *Engine) project(doc *ast.QueryDocument, selections ast.SelectionSet, value interface{}, typeName string) interface{} {
	if len(selections) == 0 || value == nil {
		return value
	}

	switch v := value.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(selections))
		for _, sel := range expandSelections(doc, selections) {
			field, ok := sel.(*ast.Field)
			if !ok {
				continue
			}
			alias := field.Alias
			if alias == "" {
				alias = field.Name
			}
			if field.Name == "__typename" {
				if typeName != "" {
					result[alias] = typeName
				}
				continue
			}
			child, ok := v[field.Name]
			if !ok {
				result[alias] = nil
				continue
			}
			result[alias] = e.project(doc, field.SelectionSet, child, e.fieldTypeName(typeName, field.Name))
		}
		return result

	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = e.project(doc, selections, item, typeName)
		}
		return result

	default:
		return value
	}
}

// expandSelections inlines fragment spreads and inline fragments so callers
// only deal with fields.
func expandSelections(doc *ast.QueryDocument, selections ast.SelectionSet) ast.SelectionSet {
	var expanded ast.SelectionSet
	for _, sel := range selections {
		switch s := sel.(type) {
		case *ast.Field:
			expanded = append(expanded, s)
		case *ast.FragmentSpread:
			for _, frag := range doc.Fragments {
				if frag.Name == s.Name {
					expanded = append(expanded, expandSelections(doc, frag.SelectionSet)...)
					break
				}
			}
		case *ast.InlineFragment:
			expanded = append(expanded, expandSelections(doc, s.SelectionSet)...)
		}
	}
	return expanded
}

// coerceArguments extracts the argument values of a field, resolving
// variable references against the request variables.
func (e *Engine) coerceArguments(field *ast.Field, variables map[string]interface{}) map[string]interface{} {
	args := make(map[string]interface{}, len(field.Arguments))
	for _, arg := range field.Arguments {
		args[arg.Name] = e.coerceValue(arg.Value, variables)
	}
	return args
}

// coerceValue resolves an AST value to a Go value.
func (e *Engine) coerceValue(value *ast.Value, variables map[string]interface{}) interface{} {
	if value == nil {
		return nil
	}

	switch value.Kind {
	case ast.Variable:
		if variables != nil {
			return variables[value.Raw]
		}
		return nil
	case ast.IntValue:
		n, _ := strconv.ParseInt(value.Raw, 10, 64)
		return n
	case ast.FloatValue:
		f, _ := strconv.ParseFloat(value.Raw, 64)
		return f
	case ast.StringValue, ast.BlockValue:
		return value.Raw
	case ast.BooleanValue:
		return value.Raw == "true"
	case ast.NullValue:
		return nil
	case ast.EnumValue:
		return value.Raw
	case ast.ListValue:
		var list []interface{}
		for _, child := range value.Children {
			list = append(list, e.coerceValue(child.Value, variables))
		}
		return list
	case ast.ObjectValue:
		obj := make(map[string]interface{})
		for _, child := range value.Children {
			obj[child.Name] = e.coerceValue(child.Value, variables)
		}
		return obj
	default:
		return value.Raw
	}
}
