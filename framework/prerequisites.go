package framework

import (
	"fmt"
	"strings"

	"github.com/modeldriven/crm-e2e/test/framework/entity"
	"github.com/modeldriven/crm-e2e/test/framework/webapi"
)

// PrerequisiteStatus represents the status of a single prerequisite
type PrerequisiteStatus struct {
	Name    string
	Met     bool
	Message string
}

// PrerequisitesResult contains the results of all prerequisite checks
type PrerequisitesResult struct {
	WebAPI PrerequisiteStatus
	Tables []PrerequisiteStatus
	AllMet bool
}

// CheckPrerequisites verifies that the Web API accepts the framework's
// credentials and that the metadata of every provisioned table can be read.
func (f *Framework) CheckPrerequisites() (*PrerequisitesResult, error) {
	gw, err := f.api()
	if err != nil {
		return nil, NewPrerequisiteError("Web API", err)
	}

	result := &PrerequisitesResult{
		AllMet: true,
	}

	result.WebAPI = f.checkWhoAmI(gw)
	if !result.WebAPI.Met {
		result.AllMet = false
		// table checks would fail the same way
		return result, nil
	}

	for _, d := range entity.All() {
		status := f.checkTable(gw, d)
		if !status.Met {
			result.AllMet = false
		}
		result.Tables = append(result.Tables, status)
	}

	return result, nil
}

func (f *Framework) checkWhoAmI(gw *webapi.Gateway) PrerequisiteStatus {
	status := PrerequisiteStatus{Name: "Web API"}

	userID, err := gw.WhoAmI(f.ctx)
	if err != nil {
		status.Message = err.Error()
		return status
	}

	status.Met = true
	status.Message = fmt.Sprintf("signed in as %s at %s", userID, gw.BaseURL())
	return status
}

// checkTable reads the required create columns of a table
func (f *Framework) checkTable(gw *webapi.Gateway, d *entity.Descriptor) PrerequisiteStatus {
	status := PrerequisiteStatus{Name: d.LogicalName() + " table"}

	fields, err := gw.RequiredCreateFields(f.ctx, d.LogicalName())
	if err != nil {
		status.Message = err.Error()
		return status
	}

	status.Met = true
	if len(fields) == 0 {
		status.Message = "no required columns"
	} else {
		status.Message = "required columns: " + strings.Join(fields, ", ")
	}
	return status
}

// Err returns a PrerequisiteError for the first unmet prerequisite, or nil
func (r *PrerequisitesResult) Err() error {
	if !r.WebAPI.Met {
		return NewPrerequisiteError(r.WebAPI.Name, fmt.Errorf("%s", r.WebAPI.Message))
	}
	for _, t := range r.Tables {
		if !t.Met {
			return NewPrerequisiteError(t.Name, fmt.Errorf("%s", t.Message))
		}
	}
	return nil
}

// String returns a human-readable summary of the prerequisites result
func (r *PrerequisitesResult) String() string {
	var b strings.Builder
	b.WriteString("Prerequisites Check:\n")
	writeStatus(&b, r.WebAPI)
	for _, t := range r.Tables {
		writeStatus(&b, t)
	}
	fmt.Fprintf(&b, "  All prerequisites met: %v", r.AllMet)
	return b.String()
}

func writeStatus(b *strings.Builder, s PrerequisiteStatus) {
	mark := "✓"
	if !s.Met {
		mark = "✗"
	}
	fmt.Fprintf(b, "  %s %s: %s\n", mark, s.Name, s.Message)
}
