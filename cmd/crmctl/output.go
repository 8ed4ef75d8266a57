package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/modeldriven/crm-e2e/test/framework/entity"
)

// writeRecords prints v in the --output format
func writeRecords(w io.Writer, format string, v any) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(format) {
	case "json":
		data, err = json.MarshalIndent(v, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	case "yaml", "":
		data, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unknown output format %q: must be yaml or json", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// resolveTable accepts a logical name (contact) or a collection name (contacts)
func resolveTable(name string) (*entity.Descriptor, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if d, ok := entity.ByLogicalName(name); ok {
		return d, nil
	}
	if d, ok := entity.ByCollectionName(name); ok {
		return d, nil
	}

	known := make([]string, 0)
	for _, d := range entity.All() {
		known = append(known, d.LogicalName())
	}
	sort.Strings(known)
	return nil, fmt.Errorf("unknown table %q (known: %s)", name, strings.Join(known, ", "))
}

// parseAssignments turns column=value and column:=json pairs into a payload.
// Plain assignments are always strings; := takes a JSON literal such as 1,
// true, null or {"@odata.bind": "/accounts(...)"}.
func parseAssignments(pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		if i := strings.Index(pair, ":="); i > 0 && i < strings.Index(pair+"=", "=") {
			var v any
			if err := json.Unmarshal([]byte(pair[i+2:]), &v); err != nil {
				return nil, fmt.Errorf("invalid JSON value for %s: %w", pair[:i], err)
			}
			fields[pair[:i]] = v
			continue
		}

		column, value, ok := strings.Cut(pair, "=")
		if !ok || column == "" {
			return nil, fmt.Errorf("invalid assignment %q: expected column=value or column:=json", pair)
		}
		fields[column] = value
	}
	return fields, nil
}
