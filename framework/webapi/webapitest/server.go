// Package webapitest provides an in-memory Web API for tests of code built on
// package webapi. It implements just enough of the protocol for record CRUD,
// the required-attributes metadata query and WhoAmI.
package webapitest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APIVersion is the version segment served by the fake
const APIVersion = "v9.2"

// Table declares a table served by the fake
type Table struct {
	LogicalName       string
	CollectionName    string
	PrimaryID         string
	RequiredForCreate []string
}

// DefaultTables returns the contact and account tables
func DefaultTables() []Table {
	return []Table{
		{LogicalName: "contact", CollectionName: "contacts", PrimaryID: "contactid", RequiredForCreate: []string{"lastname"}},
		{LogicalName: "account", CollectionName: "accounts", PrimaryID: "accountid", RequiredForCreate: []string{"name"}},
	}
}

// Request is a request received by the fake
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

type table struct {
	def   Table
	rows  map[string]map[string]any
	order []string
}

type failure struct {
	method string
	status int
}

type delay struct {
	method string
	d      time.Duration
}

// Server is a fake Web API backed by an httptest.Server
type Server struct {
	*httptest.Server

	userID string

	mu       sync.Mutex
	tables   map[string]*table
	requests []Request
	failures []failure
	delays   []delay
}

// NewServer starts a fake serving the given tables, or DefaultTables when none are given.
// Callers must Close it.
func NewServer(tables ...Table) *Server {
	if len(tables) == 0 {
		tables = DefaultTables()
	}

	s := &Server{
		userID: uuid.NewString(),
		tables: make(map[string]*table, len(tables)),
	}
	for _, t := range tables {
		s.tables[t.CollectionName] = &table{def: t, rows: make(map[string]map[string]any)}
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(s.recordRequest, s.injectFailure, s.delayResponse)

	api := r.Group("/api/data/:version")
	api.GET("/*resource", s.handleGet)
	api.POST("/*resource", s.handlePost)
	api.PATCH("/*resource", s.handlePatch)
	api.DELETE("/*resource", s.handleDelete)

	s.Server = httptest.NewServer(r)
	return s
}

// WebAPIURL returns the Web API root, e.g. http://127.0.0.1:1234/api/data/v9.2
func (s *Server) WebAPIURL() string {
	return s.URL + "/api/data/" + APIVersion
}

// UserID returns the id reported by WhoAmI
func (s *Server) UserID() string {
	return s.userID
}

// Seed stores a row directly and returns its generated id
func (s *Server) Seed(collection string, row map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[collection]
	if !ok {
		panic(fmt.Sprintf("webapitest: unknown collection %q", collection))
	}
	id := uuid.NewString()
	t.insert(id, row)
	return id
}

// Row returns a copy of a stored row
func (s *Server) Row(collection, id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[collection]
	if !ok {
		return nil, false
	}
	row, ok := t.rows[id]
	if !ok {
		return nil, false
	}
	return copyRow(row), true
}

// Count returns the number of rows in a collection
func (s *Server) Count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tables[collection]; ok {
		return len(t.rows)
	}
	return 0
}

// Requests returns the requests received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// FailNext makes the next request with the given method answer status
func (s *Server) FailNext(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, status: status})
}

// DelayNext makes the next request with the given method wait d after it
// was handled and before its response is sent. A create is committed even
// when the client gives up waiting.
func (s *Server) DelayNext(method string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, delay{method: method, d: d})
}

func (s *Server) recordRequest(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:   c.Request.Method,
		Path:     c.Request.URL.Path,
		RawQuery: c.Request.URL.RawQuery,
		Header:   c.Request.Header.Clone(),
		Body:     body,
	})
	s.mu.Unlock()

	c.Next()
}

func (s *Server) injectFailure(c *gin.Context) {
	s.mu.Lock()
	for i, f := range s.failures {
		if f.method == c.Request.Method {
			s.failures = append(s.failures[:i], s.failures[i+1:]...)
			s.mu.Unlock()
			abortWithError(c, f.status, "0x80040216", "injected failure")
			return
		}
	}
	s.mu.Unlock()
	c.Next()
}

func (s *Server) delayResponse(c *gin.Context) {
	var wait time.Duration
	s.mu.Lock()
	for i, d := range s.delays {
		if d.method == c.Request.Method {
			s.delays = append(s.delays[:i], s.delays[i+1:]...)
			wait = d.d
			break
		}
	}
	s.mu.Unlock()

	c.Next()
	if wait > 0 {
		time.Sleep(wait)
	}
}

func (s *Server) handleGet(c *gin.Context) {
	resource := strings.TrimPrefix(c.Param("resource"), "/")

	switch {
	case resource == "WhoAmI":
		c.JSON(http.StatusOK, gin.H{
			"@odata.context": s.contextURL(c, "Microsoft.Dynamics.CRM.WhoAmIResponse"),
			"UserId":         s.userID,
			"BusinessUnitId": uuid.NewString(),
			"OrganizationId": uuid.NewString(),
		})
		return
	case strings.HasPrefix(resource, "EntityDefinitions("):
		s.handleMetadata(c, resource)
		return
	}

	name, key, ok := splitSegment(resource)
	if !ok {
		abortWithError(c, http.StatusBadRequest, "0x80060888", fmt.Sprintf("Bad Request - Error in query syntax: %s", resource))
		return
	}
	selects := splitSelect(c.Query("$select"))

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		abortWithError(c, http.StatusNotFound, "0x80060888", fmt.Sprintf("Resource not found for the segment '%s'.", name))
		return
	}

	if key == "" {
		rows := make([]map[string]any, 0, len(t.order))
		for _, id := range t.order {
			rows = append(rows, project(t.rows[id], selects, t.def.PrimaryID))
		}
		c.JSON(http.StatusOK, gin.H{
			"@odata.context": s.contextURL(c, name),
			"value":          rows,
		})
		return
	}

	row, ok := t.rows[key]
	if !ok {
		abortWithError(c, http.StatusNotFound, "0x80040217", fmt.Sprintf("%s With Id = %s Does Not Exist", t.def.LogicalName, key))
		return
	}
	out := project(row, selects, t.def.PrimaryID)
	out["@odata.context"] = s.contextURL(c, name+"/$entity")
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleMetadata(c *gin.Context, resource string) {
	segment, rest, _ := strings.Cut(resource, "/")
	_, key, ok := splitSegment(segment)
	if !ok {
		abortWithError(c, http.StatusBadRequest, "0x80060888", "Bad Request - Error in query syntax.")
		return
	}
	logicalName := strings.Trim(strings.TrimPrefix(key, "LogicalName="), "'")

	s.mu.Lock()
	defer s.mu.Unlock()

	var def *Table
	for _, t := range s.tables {
		if t.def.LogicalName == logicalName {
			def = &t.def
			break
		}
	}
	if def == nil {
		abortWithError(c, http.StatusNotFound, "0x80040217", fmt.Sprintf("Could not find an entity with name %s", logicalName))
		return
	}

	switch rest {
	case "":
		c.JSON(http.StatusOK, gin.H{
			"@odata.context":     s.contextURL(c, "EntityDefinitions/$entity"),
			"LogicalName":        def.LogicalName,
			"EntitySetName":      def.CollectionName,
			"PrimaryIdAttribute": def.PrimaryID,
		})
	case "Attributes":
		filter := c.Query("$filter")
		if !strings.Contains(filter, "IsRequiredForForm eq true") || !strings.Contains(filter, "IsValidForCreate eq true") {
			abortWithError(c, http.StatusBadRequest, "0x80060888", "unsupported $filter: "+filter)
			return
		}
		attrs := make([]gin.H, 0, len(def.RequiredForCreate))
		for _, name := range def.RequiredForCreate {
			attrs = append(attrs, gin.H{"LogicalName": name})
		}
		c.JSON(http.StatusOK, gin.H{
			"@odata.context": s.contextURL(c, "EntityDefinitions('"+def.LogicalName+"')/Attributes(LogicalName)"),
			"value":          attrs,
		})
	default:
		abortWithError(c, http.StatusNotFound, "0x80060888", fmt.Sprintf("Resource not found for the segment '%s'.", rest))
	}
}

func (s *Server) handlePost(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("resource"), "/")

	if !strings.HasPrefix(c.ContentType(), "application/json") {
		abortWithError(c, http.StatusUnsupportedMediaType, "0x80048d19", "Content-Type must be application/json")
		return
	}
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, http.StatusBadRequest, "0x80048d19", "Error identified in Payload provided by the user: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		abortWithError(c, http.StatusNotFound, "0x80060888", fmt.Sprintf("Resource not found for the segment '%s'.", name))
		return
	}
	for _, field := range t.def.RequiredForCreate {
		if v, ok := body[field]; !ok || v == nil || v == "" {
			abortWithError(c, http.StatusBadRequest, "0x80040200", fmt.Sprintf("required attribute %s is missing", field))
			return
		}
	}

	id := uuid.NewString()
	t.insert(id, body)

	c.Header("OData-EntityId", fmt.Sprintf("%s/api/data/%s/%s(%s)", s.URL, c.Param("version"), name, id))
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePatch(c *gin.Context) {
	name, key, ok := splitSegment(strings.TrimPrefix(c.Param("resource"), "/"))
	if !ok || key == "" {
		abortWithError(c, http.StatusMethodNotAllowed, "0x80060888", "PATCH requires a record key")
		return
	}
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, http.StatusBadRequest, "0x80048d19", "Error identified in Payload provided by the user: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		abortWithError(c, http.StatusNotFound, "0x80060888", fmt.Sprintf("Resource not found for the segment '%s'.", name))
		return
	}

	row, exists := t.rows[key]
	if !exists {
		if c.GetHeader("If-Match") == "*" {
			abortWithError(c, http.StatusNotFound, "0x80040217", fmt.Sprintf("%s With Id = %s Does Not Exist", t.def.LogicalName, key))
			return
		}
		// no If-Match: upsert
		t.insert(key, body)
		c.Status(http.StatusNoContent)
		return
	}

	for k, v := range body {
		row[k] = v
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDelete(c *gin.Context) {
	name, key, ok := splitSegment(strings.TrimPrefix(c.Param("resource"), "/"))
	if !ok || key == "" {
		abortWithError(c, http.StatusMethodNotAllowed, "0x80060888", "DELETE requires a record key")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		abortWithError(c, http.StatusNotFound, "0x80060888", fmt.Sprintf("Resource not found for the segment '%s'.", name))
		return
	}
	if _, exists := t.rows[key]; !exists {
		abortWithError(c, http.StatusNotFound, "0x80040217", fmt.Sprintf("%s With Id = %s Does Not Exist", t.def.LogicalName, key))
		return
	}
	t.remove(key)
	c.Status(http.StatusNoContent)
}

func (s *Server) contextURL(c *gin.Context, fragment string) string {
	return fmt.Sprintf("%s/api/data/%s/$metadata#%s", s.URL, c.Param("version"), fragment)
}

func (t *table) insert(id string, row map[string]any) {
	stored := copyRow(row)
	stored[t.def.PrimaryID] = id
	if _, exists := t.rows[id]; !exists {
		t.order = append(t.order, id)
	}
	t.rows[id] = stored
}

func (t *table) remove(id string) {
	delete(t.rows, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// splitSegment splits "contacts(<key>)" into its name and key
func splitSegment(segment string) (name, key string, ok bool) {
	open := strings.Index(segment, "(")
	if open < 0 {
		return segment, "", segment != "" && !strings.Contains(segment, "/")
	}
	if !strings.HasSuffix(segment, ")") {
		return "", "", false
	}
	return segment[:open], segment[open+1 : len(segment)-1], true
}

func splitSelect(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// project returns the selected columns of row plus its primary key and etag.
// Selected columns that are not set come back as null.
func project(row map[string]any, selects []string, primaryID string) map[string]any {
	var out map[string]any
	if len(selects) == 0 {
		out = copyRow(row)
	} else {
		out = make(map[string]any, len(selects)+2)
		for _, col := range selects {
			out[col] = row[col]
		}
		out[primaryID] = row[primaryID]
	}
	out["@odata.etag"] = `W/"1"`
	return out
}

func copyRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
