package cli

import (
	"context"
	"fmt"

	"github.com/getgraphd/graphd/pkg/graphql"
	"github.com/getgraphd/graphd/pkg/pubsub"

	"github.com/google/uuid"
)

// demoSchema is the built-in schema served when no SDL file is configured.
const demoSchema = `
type Book {
  id: ID!
  title: String!
  author: String!
  year: Int!
}

type Message {
  id: ID!
  channel: String!
  text: String!
}

type Query {
  books: [Book!]!
  bookById(id: ID!): Book
}

type Mutation {
  postMessage(channel: String!, text: String!): Message!
}

type Subscription {
  messageAdded(channel: String!): Message!
}
`

var demoBooks = []map[string]interface{}{
	{"id": "1", "title": "The Dispossessed", "author": "Ursula K. Le Guin", "year": 1974},
	{"id": "2", "title": "Nineteen Eighty-Four", "author": "George Orwell", "year": 1949},
	{"id": "3", "title": "Snow Crash", "author": "Neal Stephenson", "year": 1992},
}

// NewDemoEngine builds the demo engine: a static book catalog plus a
// broker-backed message channel exercised by postMessage and messageAdded.
func NewDemoEngine() *graphql.Engine {
	schema, err := graphql.ParseSchema(demoSchema)
	if err != nil {
		// The demo schema is a compile-time constant.
		panic(fmt.Sprintf("demo schema: %v", err))
	}

	broker := pubsub.New()
	engine := graphql.NewEngine(schema)

	engine.Query("books", func(_ context.Context, _ map[string]interface{}) (interface{}, error) {
		return demoBooks, nil
	})

	engine.Query("bookById", func(_ context.Context, args map[string]interface{}) (interface{}, error) {
		id, _ := args["id"].(string)
		for _, b := range demoBooks {
			if b["id"] == id {
				return b, nil
			}
		}
		return nil, nil
	})

	engine.Mutation("postMessage", func(_ context.Context, args map[string]interface{}) (interface{}, error) {
		channel, _ := args["channel"].(string)
		text, _ := args["text"].(string)
		if channel == "" {
			return nil, fmt.Errorf("channel must not be empty")
		}
		msg := map[string]interface{}{
			"id":      uuid.NewString(),
			"channel": channel,
			"text":    text,
		}
		broker.Publish(channel, msg)
		return msg, nil
	})

	engine.Source("messageAdded", func(ctx context.Context, args map[string]interface{}) (<-chan interface{}, error) {
		channel, _ := args["channel"].(string)
		if channel == "" {
			return nil, fmt.Errorf("channel must not be empty")
		}
		return broker.Subscribe(ctx, channel), nil
	})

	return engine
}
