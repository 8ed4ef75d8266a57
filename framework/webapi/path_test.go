package webapi

import (
	"strings"
	"testing"
)

func TestBuildPath(t *testing.T) {
	tests := []struct {
		name       string
		collection string
		opts       QueryOptions
		expected   string
	}{
		{
			name:       "collection only",
			collection: "contacts",
			expected:   "contacts",
		},
		{
			name:       "single record",
			collection: "contacts",
			opts:       QueryOptions{ID: "3fa85f64-5717-4562-b3fc-2c963f66afa6"},
			expected:   "contacts(3fa85f64-5717-4562-b3fc-2c963f66afa6)",
		},
		{
			name:       "select keeps order",
			collection: "accounts",
			opts:       QueryOptions{Select: []string{"name", "accountid", "telephone1"}},
			expected:   "accounts?$select=name,accountid,telephone1",
		},
		{
			name:       "single record with select",
			collection: "contacts",
			opts:       QueryOptions{ID: "abc", Select: []string{"firstname", "lastname"}},
			expected:   "contacts(abc)?$select=firstname,lastname",
		},
		{
			name:       "empty select is ignored",
			collection: "contacts",
			opts:       QueryOptions{Select: []string{}},
			expected:   "contacts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildPath(tt.collection, tt.opts)
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestBuildPath_IDAppearsOnce(t *testing.T) {
	ids := []string{"1", "00000000-0000-0000-0000-000000000000", "x-y-z"}
	for _, id := range ids {
		path := BuildPath("contacts", QueryOptions{ID: id})
		if n := strings.Count(path, "contacts("+id+")"); n != 1 {
			t.Errorf("expected id segment once in %q, found %d", path, n)
		}
		if strings.Contains(path, "$select") {
			t.Errorf("expected no $select in %q", path)
		}
	}
}

func TestRequiredFieldsPath(t *testing.T) {
	got := requiredFieldsPath("contact")
	expected := "EntityDefinitions(LogicalName='contact')/Attributes?$select=LogicalName" +
		"&$filter=IsRequiredForForm%20eq%20true%20and%20IsValidForCreate%20eq%20true"
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}
