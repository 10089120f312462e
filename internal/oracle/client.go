// Package oracle is the HTTP client for the Peirce inference service, which
// reports interpretable nodes of a file and type checks annotations.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"

	annerrors "annot/internal/errors"
	"annot/internal/slogutil"
	"annot/internal/version"
)

const (
	DefaultBaseURL     = "http://0.0.0.0:8080"
	DefaultBasePath    = "/api"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxBodySize = 16 << 20
)

// Endpoints names the route of each operation below the base path.
type Endpoints struct {
	GetState                        string
	Check                           string
	CreateSpace                     string
	CreateTermInterpretation        string
	CreateConstructorInterpretation string
}

// DefaultEndpoints returns the routes served by the reference service.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		GetState:                        "getState",
		Check:                           "check2",
		CreateSpace:                     "createSpace",
		CreateTermInterpretation:        "createTermInterpretation",
		CreateConstructorInterpretation: "createConstructorInterpretation",
	}
}

func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.GetState == "" {
		e.GetState = d.GetState
	}
	if e.Check == "" {
		e.Check = d.Check
	}
	if e.CreateSpace == "" {
		e.CreateSpace = d.CreateSpace
	}
	if e.CreateTermInterpretation == "" {
		e.CreateTermInterpretation = d.CreateTermInterpretation
	}
	if e.CreateConstructorInterpretation == "" {
		e.CreateConstructorInterpretation = d.CreateConstructorInterpretation
	}
	return e
}

// Options configures a Client. Zero fields take the defaults above.
type Options struct {
	BaseURL     string
	BasePath    string
	Timeout     time.Duration
	Endpoints   Endpoints
	MaxBodySize int64
	Logger      *slog.Logger
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Client talks to one inference service. It never retries: every call is
// either applied by the service or reported as failed.
type Client struct {
	baseURL     *url.URL
	client      *http.Client
	endpoints   Endpoints
	maxBodySize int64
	logger      *slog.Logger
}

// NewClient validates the base URL and builds a client.
func NewClient(opts Options) (*Client, error) {
	raw := opts.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, annerrors.Newf(annerrors.InvalidArgument, "invalid oracle URL %q", raw)
	}
	basePath := opts.BasePath
	if basePath == "" {
		basePath = DefaultBasePath
	}
	u.Path = path.Join("/", u.Path, basePath)

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxBody := opts.MaxBodySize
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Client{
		baseURL:     u,
		client:      httpClient,
		endpoints:   opts.Endpoints.withDefaults(),
		maxBodySize: maxBody,
		logger:      logger,
	}, nil
}

// URL returns the full address of an endpoint.
func (c *Client) URL(endpoint string) string {
	u := *c.baseURL
	u.Path = path.Join(u.Path, endpoint)
	return u.String()
}

// GetState asks for the interpretable nodes and constructors of a file.
func (c *Client) GetState(ctx context.Context, req PopulateRequest) (*PopulateResponse, error) {
	if req.Terms == nil {
		req.Terms = []Term{}
	}
	var resp PopulateResponse
	if err := c.post(ctx, c.endpoints.GetState, req, &resp); err != nil {
		return nil, err
	}
	if err := validate.Struct(&resp); err != nil {
		return nil, transportErr(c.endpoints.GetState, fmt.Errorf("invalid populate payload: %w", err))
	}
	return &resp, nil
}

// Check submits the full annotation state and returns the checked terms.
func (c *Client) Check(ctx context.Context, req CheckRequest) ([]Term, error) {
	if req.Terms == nil {
		req.Terms = []Term{}
	}
	if req.Spaces == nil {
		req.Spaces = []Space{}
	}
	if req.Constructors == nil {
		req.Constructors = []Constructor{}
	}
	var terms []Term
	if err := c.post(ctx, c.endpoints.Check, req, &terms); err != nil {
		return nil, err
	}
	return terms, nil
}

// CreateSpace registers a coordinate space.
func (c *Client) CreateSpace(ctx context.Context, sp Space) error {
	return c.postSuccess(ctx, c.endpoints.CreateSpace, createSpaceRequest{Space: sp})
}

// CreateTermInterpretation registers the interpretation carried by t.
func (c *Client) CreateTermInterpretation(ctx context.Context, t Term) error {
	return c.postSuccess(ctx, c.endpoints.CreateTermInterpretation, createTermRequest{Term: t})
}

// CreateConstructorInterpretation registers the interpretation carried by con.
func (c *Client) CreateConstructorInterpretation(ctx context.Context, con Constructor) error {
	return c.postSuccess(ctx, c.endpoints.CreateConstructorInterpretation, createConstructorRequest{Constructor: con})
}

func (c *Client) postSuccess(ctx context.Context, endpoint string, body interface{}) error {
	var resp successResponse
	if err := c.post(ctx, endpoint, body, &resp); err != nil {
		return err
	}
	if resp.Success == nil {
		return transportErr(endpoint, errors.New("response has no success field"))
	}
	if !*resp.Success {
		return annerrors.Newf(annerrors.OracleRejected, "%s was rejected by the oracle", endpoint)
	}
	return nil
}

// post sends body as JSON and decodes a 2xx reply into out.
func (c *Client) post(ctx context.Context, endpoint string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return annerrors.New(annerrors.InternalError, "failed to marshal request body", err)
	}

	target := c.URL(endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return transportErr(endpoint, fmt.Errorf("failed to create request: %w", err))
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return annerrors.New(annerrors.Cancelled, endpoint+" cancelled", ctx.Err())
		}
		return transportErr(endpoint, fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	// Read one byte past the limit to tell a full body from a truncated one.
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return transportErr(endpoint, fmt.Errorf("failed to read response: %w", err))
	}
	c.logger.Debug("Oracle request",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestID,
	)
	if int64(len(data)) > c.maxBodySize {
		return transportErr(endpoint, fmt.Errorf("response exceeds %d bytes", c.maxBodySize))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return remoteErr(endpoint, target, parseErrorResponse(resp.StatusCode, data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return transportErr(endpoint, fmt.Errorf("malformed response: %w", err))
	}
	return nil
}

func transportErr(endpoint string, cause error) error {
	return annerrors.New(annerrors.OracleTransportFailure, endpoint+" failed", cause)
}

// remoteErr wraps a non-2xx reply as a transport failure. The details carry
// the URL and, for 404 and 5xx, a hint about where to look.
func remoteErr(endpoint, target string, re *RemoteError) error {
	details := map[string]interface{}{"url": target, "status": re.StatusCode}
	switch {
	case re.IsNotFound():
		details["hint"] = "endpoint not found; check oracle.basePath and oracle.endpoints"
	case re.IsServerError():
		details["hint"] = "the oracle failed while handling the request; see its logs"
	}
	return annerrors.New(annerrors.OracleTransportFailure, endpoint+" failed", re).WithDetails(details)
}

// parseErrorResponse extracts what it can from a non-2xx body.
func parseErrorResponse(statusCode int, body []byte) *RemoteError {
	var resp struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return &RemoteError{StatusCode: statusCode, Code: "unknown_error", Message: string(body)}
	}

	var detail struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if len(resp.Error) > 0 && json.Unmarshal(resp.Error, &detail) == nil && detail.Message != "" {
		return &RemoteError{StatusCode: statusCode, Code: detail.Code, Message: detail.Message}
	}
	var text string
	if len(resp.Error) > 0 && json.Unmarshal(resp.Error, &text) == nil && text != "" {
		return &RemoteError{StatusCode: statusCode, Code: "error", Message: text}
	}
	if resp.Message != "" {
		return &RemoteError{StatusCode: statusCode, Code: "error", Message: resp.Message}
	}
	return &RemoteError{StatusCode: statusCode, Code: "unknown_error", Message: fmt.Sprintf("HTTP %d", statusCode)}
}

// RemoteError is a non-2xx reply from the service.
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("oracle error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound reports a 404, usually a misconfigured endpoint.
func (e *RemoteError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsServerError reports a 5xx reply.
func (e *RemoteError) IsServerError() bool {
	return e.StatusCode >= 500
}
