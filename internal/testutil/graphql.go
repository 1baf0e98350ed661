package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// GraphQLCall is one request seen by FakeGraphQL.
type GraphQLCall struct {
	OperationName string
	Query         string
	Variables     map[string]any
	Authorization string
}

// GraphQLResponse is what a handler answers. A zero Status means 200.
type GraphQLResponse struct {
	Status int
	Body   any
}

// FakeGraphQL routes GraphQL requests by operation name.
type FakeGraphQL struct {
	Server *httptest.Server
	APIKey string

	mu       sync.Mutex
	handlers map[string]func(GraphQLCall) GraphQLResponse
	calls    []GraphQLCall
}

func NewFakeGraphQL(t *testing.T, apiKey string) *FakeGraphQL {
	t.Helper()
	f := &FakeGraphQL{APIKey: apiKey, handlers: make(map[string]func(GraphQLCall) GraphQLResponse)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *FakeGraphQL) URL() string {
	return f.Server.URL + "/graphql"
}

// Handle installs h for operation.
func (f *FakeGraphQL) Handle(operation string, h func(GraphQLCall) GraphQLResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[operation] = h
}

// Respond answers operation with {"data": data}.
func (f *FakeGraphQL) Respond(operation string, data any) {
	f.Handle(operation, func(GraphQLCall) GraphQLResponse {
		return GraphQLResponse{Body: map[string]any{"data": data}}
	})
}

// Errors answers operation with a GraphQL errors array.
func (f *FakeGraphQL) Errors(operation string, messages ...string) {
	errs := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		errs = append(errs, map[string]any{"message": m})
	}
	f.Handle(operation, func(GraphQLCall) GraphQLResponse {
		return GraphQLResponse{Body: map[string]any{"data": nil, "errors": errs}}
	})
}

// Status answers operation with an empty body and the given HTTP status.
func (f *FakeGraphQL) Status(operation string, status int) {
	f.Handle(operation, func(GraphQLCall) GraphQLResponse {
		return GraphQLResponse{Status: status}
	})
}

// Calls returns the requests for operation, or every request when operation is empty.
func (f *FakeGraphQL) Calls(operation string) []GraphQLCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []GraphQLCall
	for _, c := range f.calls {
		if operation == "" || c.OperationName == operation {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeGraphQL) serve(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("x-api-key") != f.APIKey {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		OperationName string         `json:"operationName"`
		Query         string         `json:"query"`
		Variables     map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	call := GraphQLCall{
		OperationName: req.OperationName,
		Query:         req.Query,
		Variables:     req.Variables,
		Authorization: r.Header.Get("Authorization"),
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	h, ok := f.handlers[req.OperationName]
	f.mu.Unlock()

	if !ok {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"message": "unknown operation " + req.OperationName}},
		})
		return
	}

	resp := h(call)
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	if resp.Body != nil {
		_ = json.NewEncoder(w).Encode(resp.Body)
	}
}

// LoginSuccess is a loginUser payload carrying idToken.
func LoginSuccess(idToken string) map[string]any {
	return map[string]any{"loginUser": map[string]any{
		"success": true,
		"message": "ok",
		"data": map[string]any{
			"accessToken":  "access-token",
			"idToken":      idToken,
			"refreshToken": "refresh-token",
			"tokenType":    "Bearer",
			"expiresIn":    3600,
		},
	}}
}
