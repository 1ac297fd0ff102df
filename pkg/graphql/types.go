package graphql

// Request represents a single GraphQL operation submitted for execution.
type Request struct {
	// Query is the GraphQL document string.
	Query string `json:"query"`
	// OperationName selects the operation to execute in multi-operation documents.
	OperationName string `json:"operationName,omitempty"`
	// Variables are the variable values for the operation.
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// Response represents the result of executing one operation, or one item of
// a subscription stream.
type Response struct {
	// Data contains the result of the execution.
	Data interface{} `json:"data,omitempty"`
	// Errors contains any errors that occurred during execution.
	Errors []Error `json:"errors,omitempty"`
	// Extensions contains additional response metadata.
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// Error represents a GraphQL error in the response format.
type Error struct {
	// Message is the error message.
	Message string `json:"message"`
	// Locations indicates where in the document the error occurred.
	Locations []ErrorLocation `json:"locations,omitempty"`
	// Path is the response field path where the error occurred.
	Path []interface{} `json:"path,omitempty"`
	// Extensions contains additional error metadata.
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// ErrorLocation is a position in the GraphQL document (1-indexed).
type ErrorLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// ErrorResponse builds a data-less response carrying a single error message.
func ErrorResponse(message string) *Response {
	return &Response{Errors: []Error{{Message: message}}}
}
