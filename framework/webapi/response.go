package webapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// HeaderEntityID is the response header carrying the URL of a created record.
const HeaderEntityID = "OData-EntityId"

// Row is one record as returned by the Web API: column name to JSON value.
type Row map[string]any

// String returns the value of column as text, and whether the column is present.
// Numbers are formatted without exponents; other non-string values with fmt.
func (r Row) String(column string) (string, bool) {
	v, ok := r[column]
	if !ok || v == nil {
		return "", ok
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return fmt.Sprint(v), true
}

// Result is the outcome of Get: exactly one of One or Many is meaningful,
// selected by Single.
type Result struct {
	Single bool
	One    Row
	Many   []Row
}

// entityIDPattern captures the parenthesized key of .../<collection>(<id>)
var entityIDPattern = regexp.MustCompile(`\(([^)]+)\)`)

var errMissingValue = errors.New(`collection payload has no "value" member`)

// decodeRow parses a single-record body.
func decodeRow(status string, body []byte) (Row, error) {
	var row Row
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, &MalformedResponseError{Status: status, Err: err}
	}
	if row == nil {
		return nil, &MalformedResponseError{Status: status, Err: errors.New("body is null")}
	}
	return row, nil
}

// decodeRows parses a collection body of the form {"value": [...]}.
func decodeRows(status string, body []byte) ([]Row, error) {
	var payload struct {
		Value *[]Row `json:"value"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &MalformedResponseError{Status: status, Err: err}
	}
	if payload.Value == nil {
		return nil, &MalformedResponseError{Status: status, Err: errMissingValue}
	}
	return *payload.Value, nil
}

// ExtractRecordID returns the id inside the OData-EntityId header value.
// status is the response status text, reported when the header is absent.
func ExtractRecordID(header, status string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", &MissingIdentifierHeaderError{Status: status}
	}
	m := entityIDPattern.FindStringSubmatch(header)
	if len(m) < 2 || m[1] == "" {
		return "", &UnparseableIdentifierError{Header: header}
	}
	return m[1], nil
}

// copyableFields prepares a fetched row for resubmission as a create payload.
// OData annotations are dropped, then at most one column whose value equals
// sourceID is removed. Columns are visited in sorted order so the choice is
// stable when several columns share that value.
func copyableFields(row Row, sourceID string) Row {
	out := make(Row, len(row))
	keys := make([]string, 0, len(row))
	for k, v := range row {
		if strings.HasPrefix(k, "@odata.") || strings.Contains(k, "@OData.") {
			continue
		}
		out[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if s, ok := out[k].(string); ok && s == sourceID {
			delete(out, k)
			break
		}
	}
	return out
}
