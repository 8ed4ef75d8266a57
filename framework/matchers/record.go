// Package matchers provides gomega matchers for Web API rows.
package matchers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/onsi/gomega/format"
	"github.com/onsi/gomega/types"

	"github.com/modeldriven/crm-e2e/test/framework/entity"
	"github.com/modeldriven/crm-e2e/test/framework/record"
	"github.com/modeldriven/crm-e2e/test/framework/webapi"
)

// ContainRecord succeeds when actual, a []webapi.Row or a collection
// webapi.Result, holds a row whose columns match every field of expected.
// When expected has an id, the row's primary key must match it too.
//
//	rows, _ := gw.GetMany(ctx, "contacts")
//	Expect(rows).To(matchers.ContainRecord(contact))
func ContainRecord(expected record.Record) types.GomegaMatcher {
	return &containRecordMatcher{expected: expected}
}

// MatchRecord succeeds when actual, a webapi.Row, matches every field of expected
func MatchRecord(expected record.Record) types.GomegaMatcher {
	return &matchRecordMatcher{expected: expected}
}

type containRecordMatcher struct {
	expected record.Record
}

func (m *containRecordMatcher) Match(actual interface{}) (bool, error) {
	rows, err := toRows(actual)
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if len(mismatches(m.expected, row)) == 0 {
			return true, nil
		}
	}
	return false, nil
}

func (m *containRecordMatcher) FailureMessage(actual interface{}) string {
	return format.Message(actual, "to contain a record matching", describe(m.expected))
}

func (m *containRecordMatcher) NegatedFailureMessage(actual interface{}) string {
	return format.Message(actual, "not to contain a record matching", describe(m.expected))
}

type matchRecordMatcher struct {
	expected record.Record
}

func (m *matchRecordMatcher) Match(actual interface{}) (bool, error) {
	row, ok := actual.(webapi.Row)
	if !ok {
		return false, fmt.Errorf("MatchRecord expects a webapi.Row, got:\n%s", format.Object(actual, 1))
	}
	return len(mismatches(m.expected, row)) == 0, nil
}

func (m *matchRecordMatcher) FailureMessage(actual interface{}) string {
	row, _ := actual.(webapi.Row)
	return format.Message(actual, "to match record", describe(m.expected)) +
		"\nmismatched columns: " + strings.Join(mismatches(m.expected, row), ", ")
}

func (m *matchRecordMatcher) NegatedFailureMessage(actual interface{}) string {
	return format.Message(actual, "not to match record", describe(m.expected))
}

func toRows(actual interface{}) ([]webapi.Row, error) {
	switch v := actual.(type) {
	case []webapi.Row:
		return v, nil
	case webapi.Result:
		if v.Single {
			return []webapi.Row{v.One}, nil
		}
		return v.Many, nil
	default:
		return nil, fmt.Errorf("ContainRecord expects []webapi.Row or webapi.Result, got:\n%s", format.Object(actual, 1))
	}
}

// mismatches returns the sorted columns of expected whose value differs in row
func mismatches(expected record.Record, row webapi.Row) []string {
	var out []string
	for column, want := range expected.Fields() {
		got, ok := row.String(column)
		if !ok || got != fmt.Sprint(want) {
			out = append(out, column)
		}
	}

	if id, ok := expected.ID(); ok {
		if d, known := entity.ByCollectionName(expected.Collection()); known {
			got, _ := row.String(d.PrimaryIDAttribute())
			if !strings.EqualFold(got, id) {
				out = append(out, d.PrimaryIDAttribute())
			}
		}
	}

	sort.Strings(out)
	return out
}

func describe(r record.Record) string {
	fields := r.Fields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	if id, ok := r.ID(); ok {
		parts = append(parts, "id="+id)
	}
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return r.Collection() + "{" + strings.Join(parts, ", ") + "}"
}
