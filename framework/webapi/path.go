package webapi

import "strings"

// QueryOptions narrows a read to one record and/or a subset of columns.
type QueryOptions struct {
	// Select lists the columns to return, in order. Empty means all columns.
	Select []string

	// ID requests a single record instead of a collection.
	ID string
}

// BuildPath returns the request path for a collection:
//
//	<collection>[(<id>)][?$select=<f1>,<f2>,...]
//
// Ids and column names are expected to be URL-safe already; nothing is escaped.
func BuildPath(collection string, opts QueryOptions) string {
	var b strings.Builder
	b.WriteString(collection)
	if opts.ID != "" {
		b.WriteString("(")
		b.WriteString(opts.ID)
		b.WriteString(")")
	}
	if len(opts.Select) > 0 {
		b.WriteString("?$select=")
		b.WriteString(strings.Join(opts.Select, ","))
	}
	return b.String()
}

// recordPath addresses a single record without a column selection.
func recordPath(collection, id string) string {
	return BuildPath(collection, QueryOptions{ID: id})
}

// requiredFieldsPath is the metadata query listing the attributes that are
// both required on the default form and valid at create time.
func requiredFieldsPath(logicalName string) string {
	return "EntityDefinitions(LogicalName='" + logicalName + "')/Attributes" +
		"?$select=LogicalName" +
		"&$filter=IsRequiredForForm%20eq%20true%20and%20IsValidForCreate%20eq%20true"
}
