// Package graphql is a small GraphQL-over-HTTP client for the managed AppSync backends.
// Each call decodes the data member into an explicit result type chosen by the caller.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/go-teamchat/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	headerAPIKey    = "x-api-key"
	contentTypeJSON = "application/json"
	maxResponseSize = 8 << 20
)

// Request is the JSON body posted to the endpoint.
type Request struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Error is one entry of a GraphQL errors array.
type Error struct {
	Message   string `json:"message"`
	ErrorType string `json:"errorType,omitempty"`
	Path      []any  `json:"path,omitempty"`
}

// ResponseError is returned when the response carries a non-empty errors array.
type ResponseError struct {
	Errors []Error
}

func (e *ResponseError) Error() string {
	if len(e.Errors) == 0 || e.Errors[0].Message == "" {
		return "GraphQL error"
	}
	return e.Errors[0].Message
}

func (e *ResponseError) Unwrap() error {
	return errors.ErrProtocol
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []Error         `json:"errors"`
}

// Client posts GraphQL requests to one endpoint authenticated with an API key.
type Client struct {
	name       string
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient returns errors.ErrConfiguration when the endpoint or key is missing.
// name only appears in logs and errors. httpClient may be nil.
func NewClient(name, endpoint, apiKey string, httpClient *http.Client) (*Client, error) {
	if endpoint == "" || apiKey == "" {
		return nil, errors.Kind(errors.ErrConfiguration, nil, "%s AppSync configuration is missing", name)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		name:       name,
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: httpClient,
	}, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) APIKey() string {
	return c.apiKey
}

// Do posts req and decodes the data member into out. When accessToken is set it is sent as
// a bearer token alongside the API key.
func (c *Client) Do(ctx context.Context, req Request, accessToken string, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return errors.Wrapf(err, "%s: encode request", c.name)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Kind(errors.ErrConfiguration, err, "%s: build request", c.name)
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set(headerAPIKey, c.apiKey)

	resp, err := c.clientFor(accessToken).Do(httpReq)
	if err != nil {
		return errors.Kind(errors.ErrNetwork, err, "%s request", c.name)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return errors.Kind(errors.ErrProtocol, nil, "%s: HTTP error! status: %d", c.name, resp.StatusCode)
	}

	var envelope response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&envelope); err != nil {
		return errors.Kind(errors.ErrProtocol, err, "%s: malformed response", c.name)
	}
	if len(envelope.Errors) > 0 {
		log.Debug().Str("backend", c.name).Str("operation", req.OperationName).Interface("errors", envelope.Errors).Msg("GraphQL errors")
		return &ResponseError{Errors: envelope.Errors}
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return errors.Kind(errors.ErrProtocol, nil, "%s: response has no data", c.name)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return errors.Kind(errors.ErrProtocol, err, "%s: unexpected data shape", c.name)
	}
	return nil
}

// Query runs req and returns its data decoded as T.
func Query[T any](ctx context.Context, c *Client, req Request, accessToken string) (T, error) {
	var out T
	err := c.Do(ctx, req, accessToken, &out)
	return out, err
}

// clientFor wraps the base transport so bearer calls keep the base client's timeout.
func (c *Client) clientFor(accessToken string) *http.Client {
	if accessToken == "" {
		return c.httpClient
	}
	return &http.Client{
		Timeout:       c.httpClient.Timeout,
		CheckRedirect: c.httpClient.CheckRedirect,
		Jar:           c.httpClient.Jar,
		Transport: &oauth2.Transport{
			Base: c.httpClient.Transport,
			Source: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: accessToken,
				TokenType:   "Bearer",
			}),
		},
	}
}

// Message returns the text to show a user for err: the first GraphQL error message when
// there is one, otherwise err's own text.
func Message(err error) string {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
