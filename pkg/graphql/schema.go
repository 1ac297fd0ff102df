package graphql

import (
	"fmt"
	"os"
	"sort"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// Schema wraps a parsed GraphQL SDL schema with accessors for the root
// operation types.
type Schema struct {
	ast           *ast.Schema
	source        string
	queries       map[string]*ast.FieldDefinition
	mutations     map[string]*ast.FieldDefinition
	subscriptions map[string]*ast.FieldDefinition
}

// ParseSchema parses a GraphQL SDL string and returns a Schema.
func ParseSchema(sdl string) (*Schema, error) {
	source := &ast.Source{
		Name:  "schema",
		Input: sdl,
	}

	schema, err := gqlparser.LoadSchema(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GraphQL schema: %w", err)
	}

	return newSchema(schema, sdl), nil
}

// ParseSchemaFile parses a GraphQL schema from a file and returns a Schema.
func ParseSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}

	source := &ast.Source{
		Name:  path,
		Input: string(data),
	}

	schema, err := gqlparser.LoadSchema(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GraphQL schema from %s: %w", path, err)
	}

	return newSchema(schema, string(data)), nil
}

func newSchema(schema *ast.Schema, source string) *Schema {
	s := &Schema{
		ast:           schema,
		source:        source,
		queries:       make(map[string]*ast.FieldDefinition),
		mutations:     make(map[string]*ast.FieldDefinition),
		subscriptions: make(map[string]*ast.FieldDefinition),
	}

	if schema.Query != nil {
		for _, field := range schema.Query.Fields {
			if !isIntrospectionField(field.Name) {
				s.queries[field.Name] = field
			}
		}
	}

	if schema.Mutation != nil {
		for _, field := range schema.Mutation.Fields {
			s.mutations[field.Name] = field
		}
	}

	if schema.Subscription != nil {
		for _, field := range schema.Subscription.Fields {
			s.subscriptions[field.Name] = field
		}
	}

	return s
}

// isIntrospectionField returns true if the field name is a built-in introspection field.
func isIntrospectionField(name string) bool {
	return len(name) >= 2 && name[0] == '_' && name[1] == '_'
}

// AST returns the underlying gqlparser AST schema.
func (s *Schema) AST() *ast.Schema {
	return s.ast
}

// Source returns the original SDL source string.
func (s *Schema) Source() string {
	return s.source
}

// GetType returns a type definition by name, or nil if not found.
func (s *Schema) GetType(name string) *ast.Definition {
	return s.ast.Types[name]
}

// GetQueryField returns a query field definition by name, or nil if not found.
func (s *Schema) GetQueryField(name string) *ast.FieldDefinition {
	return s.queries[name]
}

// GetMutationField returns a mutation field definition by name, or nil if not found.
func (s *Schema) GetMutationField(name string) *ast.FieldDefinition {
	return s.mutations[name]
}

// GetSubscriptionField returns a subscription field definition by name, or nil if not found.
func (s *Schema) GetSubscriptionField(name string) *ast.FieldDefinition {
	return s.subscriptions[name]
}

// ListQueries returns all query field names in sorted order.
func (s *Schema) ListQueries() []string {
	return sortedKeys(s.queries)
}

// ListMutations returns all mutation field names in sorted order.
func (s *Schema) ListMutations() []string {
	return sortedKeys(s.mutations)
}

// ListSubscriptions returns all subscription field names in sorted order.
func (s *Schema) ListSubscriptions() []string {
	return sortedKeys(s.subscriptions)
}

func sortedKeys(fields map[string]*ast.FieldDefinition) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasSubscription returns true if the schema defines a subscription type with fields.
func (s *Schema) HasSubscription() bool {
	return s.ast.Subscription != nil && len(s.ast.Subscription.Fields) > 0
}

// Validate performs semantic checks beyond what gqlparser enforces at parse time.
func (s *Schema) Validate() error {
	if s.ast.Query == nil || len(s.ast.Query.Fields) == 0 {
		return fmt.Errorf("schema must define a Query type with at least one field")
	}
	return nil
}
