package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"
)

// buildSchema generates the read-only GraphQL schema exposed at
// /v1/graphql: a record(key) lookup and an engine-wide stats query,
// mirroring the record/stats shapes already served over plain REST.
func buildSchema(s *Server) (graphql.Schema, error) {
	recordType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Record",
		Fields: graphql.Fields{
			"key":         &graphql.Field{Type: graphql.Int},
			"value":       &graphql.Field{Type: graphql.Int},
			"weight":      &graphql.Field{Type: graphql.Float},
			"isTombstone": &graphql.Field{Type: graphql.Boolean},
		},
	})

	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stats",
		Fields: graphql.Fields{
			"recordCount":    &graphql.Field{Type: graphql.Int},
			"tombstoneCount": &graphql.Field{Type: graphql.Int},
			"height":         &graphql.Field{Type: graphql.Int},
			"utilization":    &graphql.Field{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"record": &graphql.Field{
				Type: recordType,
				Args: graphql.FieldConfigArgument{
					"key": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					key, ok := p.Args["key"].(int)
					if !ok {
						return nil, nil
					}
					rec, found := s.engine.Get(int64(key))
					if !found {
						return nil, nil
					}
					return recordResponse{Key: rec.Key, Value: rec.Value, Weight: rec.Weight, IsTombstone: rec.IsTombstone()}, nil
				},
			},
			"stats": &graphql.Field{
				Type: statsType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return statsResponse{
						RecordCount:    s.engine.RecordCount(),
						TombstoneCount: s.engine.TombstoneCount(),
						Height:         s.engine.Height(),
						Utilization:    s.engine.MemoryUtilization(),
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   any             `json:"data,omitempty"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// handleGraphQL executes a single query against the schema built in
// buildSchema and wraps the result in the standard data/errors envelope.
func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		Context:        r.Context(),
	})

	resp := graphQLResponse{Data: result.Data}
	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, graphQLError{Message: e.Message})
	}
	s.respondJSON(w, http.StatusOK, resp)
}
