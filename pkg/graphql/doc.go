// Package graphql provides the execution engine behind graphd's transports.
//
// The engine pairs a gqlparser-backed SDL schema with programmatically
// registered resolvers. Queries and mutations resolve to a single response;
// subscriptions resolve to a stream of responses backed by a SourceFunc.
//
// Basic usage:
//
//	schema, err := graphql.ParseSchema(`
//	    type Query {
//	        bookById(id: ID!): Book
//	    }
//	    type Book {
//	        id: ID!
//	        name: String!
//	    }
//	`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine := graphql.NewEngine(schema)
//	engine.Query("bookById", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
//	    return store.Book(args["id"].(string)), nil
//	})
//
//	resp := engine.Execute(ctx, &graphql.Request{Query: `{ bookById(id: "book-1") { name } }`})
//
// Subscription sources produce values on a channel and close it on
// completion:
//
//	engine.Source("countdown", func(ctx context.Context, args map[string]interface{}) (<-chan interface{}, error) {
//	    ch := make(chan interface{})
//	    go func() {
//	        defer close(ch)
//	        for i := args["from"].(int64); i >= 0; i-- {
//	            select {
//	            case ch <- i:
//	            case <-ctx.Done():
//	                return
//	            }
//	        }
//	    }()
//	    return ch, nil
//	})
//
// Execution failures are always reported through Response.Errors; the engine
// never panics on malformed requests.
package graphql
