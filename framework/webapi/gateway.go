package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/modeldriven/crm-e2e/test/framework/entity"
)

// DefaultTimeout bounds a single request when no other timeout is configured
const DefaultTimeout = 60 * time.Second

// maxErrorBody caps how much of an error body is copied into HTTPStatusError
const maxErrorBody = 512

// ErrIDRequired indicates a single-record operation was called without an id
var ErrIDRequired = errors.New("record id is required")

// ErrInvalidBody indicates a write body that cannot be sent with its Content-Type
var ErrInvalidBody = errors.New("request body does not match its Content-Type")

// WriteRequest is the body and extra headers of a POST or PATCH.
type WriteRequest struct {
	// Data is encoded as JSON and sent as application/json. A string or
	// []byte is sent as is, so pre-serialized JSON works too. When Headers
	// sets a non-JSON Content-Type, Data must be a string or []byte.
	Data any

	// Headers are added to the request; they apply to redirects as well.
	Headers map[string]string
}

// Gateway issues CRUD calls against the tables of one Web API root.
// It keeps no state between calls other than its transport.
type Gateway struct {
	client  *resty.Client
	baseURL string
	logger  *slog.Logger
}

// New creates a Gateway for a Web API root such as
// https://org.crm4.dynamics.com/api/data/v9.2. The transport is expected to
// carry an authenticated session; see WithCookies, WithBearerToken and
// WithClientCredentials.
func New(baseURL string, opts ...Option) (*Gateway, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	s := &settings{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.err != nil {
		return nil, s.err
	}

	var client *resty.Client
	if s.httpClient != nil {
		client = resty.NewWithClient(s.httpClient)
	} else {
		client = resty.New()
	}

	client.
		SetBaseURL(baseURL).
		SetTimeout(s.timeout).
		SetLogger(restyLogger{s.logger}).
		SetDebug(s.debug).
		SetHeader("Accept", "application/json").
		SetHeader("OData-MaxVersion", "4.0").
		SetHeader("OData-Version", "4.0")

	if len(s.cookies) > 0 {
		client.SetCookies(s.cookies)
	}

	return &Gateway{
		client:  client,
		baseURL: baseURL,
		logger:  s.logger,
	}, nil
}

// BaseURL returns the Web API root the gateway talks to
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// GetOne fetches a single record by id, optionally limited to the selected columns.
func (g *Gateway) GetOne(ctx context.Context, collection, id string, selects ...string) (Row, error) {
	if id == "" {
		return nil, ErrIDRequired
	}

	resp, err := g.do(ctx, http.MethodGet, BuildPath(collection, QueryOptions{ID: id, Select: selects}), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeRow(statusText(resp), resp.Body())
}

// GetMany fetches the records of a collection, optionally limited to the selected columns.
func (g *Gateway) GetMany(ctx context.Context, collection string, selects ...string) ([]Row, error) {
	resp, err := g.do(ctx, http.MethodGet, BuildPath(collection, QueryOptions{Select: selects}), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeRows(statusText(resp), resp.Body())
}

// Get reads one record when opts.ID is set and the whole collection otherwise.
func (g *Gateway) Get(ctx context.Context, collection string, opts QueryOptions) (Result, error) {
	if opts.ID != "" {
		row, err := g.GetOne(ctx, collection, opts.ID, opts.Select...)
		if err != nil {
			return Result{}, err
		}
		return Result{Single: true, One: row}, nil
	}

	rows, err := g.GetMany(ctx, collection, opts.Select...)
	if err != nil {
		return Result{}, err
	}
	return Result{Many: rows}, nil
}

// Post creates a record and returns the id the server assigned to it.
func (g *Gateway) Post(ctx context.Context, collection string, req WriteRequest) (string, error) {
	headers, body, err := encodeWrite(req)
	if err != nil {
		return "", err
	}

	resp, err := g.do(ctx, http.MethodPost, collection, headers, body)
	if err != nil {
		return "", err
	}
	return ExtractRecordID(resp.Header().Get(HeaderEntityID), statusText(resp))
}

// Patch updates a record unconditionally (If-Match: *) and returns the HTTP
// status. 204 No Content is the usual success.
func (g *Gateway) Patch(ctx context.Context, collection, id string, req WriteRequest) (int, error) {
	if id == "" {
		return 0, ErrIDRequired
	}

	headers, body, err := encodeWrite(req)
	if err != nil {
		return 0, err
	}
	for k := range headers {
		if http.CanonicalHeaderKey(k) == "If-Match" {
			delete(headers, k)
		}
	}
	headers["If-Match"] = "*"

	resp, err := g.do(ctx, http.MethodPatch, recordPath(collection, id), headers, body)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode(), nil
}

// Delete removes a record and returns the HTTP status. 204 No Content is the
// usual success; deleting a missing record fails with a 404 HTTPStatusError.
func (g *Gateway) Delete(ctx context.Context, collection, id string) (int, error) {
	if id == "" {
		return 0, ErrIDRequired
	}

	resp, err := g.do(ctx, http.MethodDelete, recordPath(collection, id), nil, nil)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode(), nil
}

// RequiredCreateFields lists the columns of a table that are required on its
// default form and valid to set at create time.
func (g *Gateway) RequiredCreateFields(ctx context.Context, logicalName string) ([]string, error) {
	resp, err := g.do(ctx, http.MethodGet, requiredFieldsPath(logicalName), nil, nil)
	if err != nil {
		return nil, &SchemaLookupError{LogicalName: logicalName, Err: err}
	}

	rows, err := decodeRows(statusText(resp), resp.Body())
	if err != nil {
		return nil, &SchemaLookupError{LogicalName: logicalName, Err: err}
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		name, _ := row.String("LogicalName")
		if name == "" {
			return nil, &SchemaLookupError{
				LogicalName: logicalName,
				Err:         &MalformedResponseError{Status: statusText(resp), Err: errors.New("attribute without LogicalName")},
			}
		}
		names = append(names, name)
	}
	return names, nil
}

// InitializeFrom creates a new record by copying the required, create-valid
// columns of an existing one, and returns the new id.
//
// The copied columns are also stored in d.Fields. Before posting, one column
// whose value equals sourceID is dropped so the source key is not resubmitted;
// an unrelated column that happens to hold the same text would be dropped instead.
func (g *Gateway) InitializeFrom(ctx context.Context, d *entity.Descriptor, sourceID string) (string, error) {
	fields, err := g.RequiredCreateFields(ctx, d.LogicalName())
	if err != nil {
		return "", err
	}

	source, err := g.GetOne(ctx, d.LogicalCollectionName(), sourceID, fields...)
	if err != nil {
		return "", err
	}

	payload := copyableFields(source, sourceID)
	d.Fields = make(map[string]any, len(payload))
	for k, v := range payload {
		d.Fields[k] = v
	}

	g.logger.Debug("initializing record from template",
		"table", d.LogicalName(), "source", sourceID, "fields", len(payload))

	return g.Post(ctx, d.LogicalCollectionName(), WriteRequest{Data: payload})
}

// WhoAmI returns the id of the user the transport is authenticated as.
func (g *Gateway) WhoAmI(ctx context.Context) (string, error) {
	resp, err := g.do(ctx, http.MethodGet, "WhoAmI", nil, nil)
	if err != nil {
		return "", err
	}

	row, err := decodeRow(statusText(resp), resp.Body())
	if err != nil {
		return "", err
	}
	id, _ := row.String("UserId")
	if id == "" {
		return "", &MalformedResponseError{Status: statusText(resp), Err: errors.New("no UserId in WhoAmI response")}
	}
	return id, nil
}

// encodeWrite returns the headers and body of a write. Content-Type defaults
// to application/json; JSON bodies that are not already encoded are marshalled here.
func encodeWrite(req WriteRequest) (map[string]string, any, error) {
	headers := make(map[string]string, len(req.Headers)+2)
	contentType := ""
	for k, v := range req.Headers {
		if http.CanonicalHeaderKey(k) == "Content-Type" {
			k, contentType = "Content-Type", v
		}
		headers[k] = v
	}
	if contentType == "" {
		contentType = "application/json"
		headers["Content-Type"] = contentType
	}

	switch req.Data.(type) {
	case nil, string, []byte:
		return headers, req.Data, nil
	}
	if !isJSONContentType(contentType) {
		return nil, nil, fmt.Errorf("%w: %T cannot be sent as %s, pass a string or []byte", ErrInvalidBody, req.Data, contentType)
	}

	body, err := json.Marshal(req.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return headers, body, nil
}

func isJSONContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// do sends one request and fails on any status outside 200-399 before the body is looked at.
func (g *Gateway) do(ctx context.Context, method, path string, headers map[string]string, body any) (*resty.Response, error) {
	req := g.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	if body != nil {
		req.SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		g.logger.Debug("web API request failed", "method", method, "path", path, "error", err)
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}

	code := resp.StatusCode()
	g.logger.Debug("web API request", "method", method, "path", path, "status", code, "duration", time.Since(start))

	if code < 200 || code >= 400 {
		return nil, &HTTPStatusError{
			Method:     method,
			Path:       path,
			StatusCode: code,
			Status:     statusText(resp),
			Body:       errorMessage(resp.Body()),
		}
	}
	return resp, nil
}

// statusText returns "204 No Content" style text for a response
func statusText(resp *resty.Response) string {
	if s := resp.Status(); s != "" {
		return s
	}
	return fmt.Sprintf("%d %s", resp.StatusCode(), http.StatusText(resp.StatusCode()))
}

// errorMessage extracts error.message from a Web API error body, falling back
// to the (truncated) raw body.
func errorMessage(body []byte) string {
	var apiErr struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		if apiErr.Error.Code != "" {
			return apiErr.Error.Code + ": " + apiErr.Error.Message
		}
		return apiErr.Error.Message
	}

	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}

// restyLogger routes resty's own diagnostics into slog
type restyLogger struct {
	l *slog.Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) {
	r.l.Error(fmt.Sprintf(format, v...), "component", "resty")
}

func (r restyLogger) Warnf(format string, v ...interface{}) {
	r.l.Warn(fmt.Sprintf(format, v...), "component", "resty")
}

func (r restyLogger) Debugf(format string, v ...interface{}) {
	r.l.Debug(fmt.Sprintf(format, v...), "component", "resty")
}
