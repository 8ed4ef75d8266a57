package webapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for Web API operations
var (
	// ErrHTTPStatus indicates the server answered outside the 200-399 range
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrMalformedResponse indicates the body did not have the expected JSON shape
	ErrMalformedResponse = errors.New("malformed response")

	// ErrMissingIdentifierHeader indicates a create response carried no OData-EntityId header
	ErrMissingIdentifierHeader = errors.New("missing OData-EntityId header")

	// ErrUnparseableIdentifier indicates the OData-EntityId header held no (<id>) segment
	ErrUnparseableIdentifier = errors.New("unparseable record identifier")

	// ErrSchemaLookup indicates the entity metadata query failed
	ErrSchemaLookup = errors.New("schema lookup failed")

	// ErrTransport indicates the request never produced a response
	ErrTransport = errors.New("transport failure")

	// ErrBaseURLRequired indicates the gateway was built without a Web API root
	ErrBaseURLRequired = errors.New("web API base URL is required")
)

// HTTPStatusError is returned when the transport reports a status outside 200-399.
type HTTPStatusError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	msg := fmt.Sprintf("%s %s: response was %s", e.Method, e.Path, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *HTTPStatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// MalformedResponseError carries the status text and the underlying parse error.
type MalformedResponseError struct {
	Status string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("response was %s. Failed to parse json: %v", e.Status, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// MissingIdentifierHeaderError is returned when a create succeeded but no id header came back.
type MissingIdentifierHeaderError struct {
	Status string
}

func (e *MissingIdentifierHeaderError) Error() string {
	return fmt.Sprintf("response was %s. Failed to get OData-EntityId header", e.Status)
}

func (e *MissingIdentifierHeaderError) Is(target error) bool {
	return target == ErrMissingIdentifierHeader
}

// UnparseableIdentifierError carries the raw header value that could not be parsed.
type UnparseableIdentifierError struct {
	Header string
}

func (e *UnparseableIdentifierError) Error() string {
	return fmt.Sprintf("cannot retrieve the record id from OData-EntityId header: %q", e.Header)
}

func (e *UnparseableIdentifierError) Is(target error) bool {
	return target == ErrUnparseableIdentifier
}

// SchemaLookupError wraps the failure of the required-fields metadata query.
// The wrapped error keeps its own classification, so errors.As still finds an
// *HTTPStatusError or *MalformedResponseError underneath.
type SchemaLookupError struct {
	LogicalName string
	Err         error
}

func (e *SchemaLookupError) Error() string {
	return fmt.Sprintf("schema lookup for %s: %v", e.LogicalName, e.Err)
}

func (e *SchemaLookupError) Unwrap() error {
	return e.Err
}

func (e *SchemaLookupError) Is(target error) bool {
	return target == ErrSchemaLookup
}

// TransportError represents a request that failed before any response was received.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// StatusCode returns the HTTP status carried by err, or 0 when err has none.
func StatusCode(err error) int {
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsNotFound returns true if err is an HTTP 404 from the Web API
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
