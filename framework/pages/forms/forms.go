// Package forms holds page objects for record forms of the model-driven app.
package forms

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// ErrNoRecordID indicates the form URL carries no id, e.g. an unsaved new record
var ErrNoRecordID = errors.New("form URL has no record id")

// EntityForm is the command bar and save status shared by every record form
type EntityForm struct {
	page playwright.Page

	saveButton playwright.Locator
	saveStatus playwright.Locator
	readOnly   playwright.Locator
}

// NewEntityForm creates the shared part of a form page object
func NewEntityForm(page playwright.Page) *EntityForm {
	return &EntityForm{
		page:       page,
		saveButton: page.GetByRole(*playwright.AriaRoleMenuitem, playwright.PageGetByRoleOptions{Name: "Save (CTRL+S)"}),
		saveStatus: page.GetByLabel("Save status - Saved"),
		readOnly: page.GetByText("Read-only").
			Filter(playwright.LocatorFilterOptions{HasNotText: "Press Alt + B to navigate to the notification"}),
	}
}

// Page returns the underlying playwright page
func (f *EntityForm) Page() playwright.Page {
	return f.page
}

// Save clicks Save and waits for the saved status
func (f *EntityForm) Save() error {
	if err := f.saveButton.Click(); err != nil {
		return fmt.Errorf("failed to click save: %w", err)
	}
	if err := f.saveStatus.WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	}); err != nil {
		return fmt.Errorf("record was not saved: %w", err)
	}
	return nil
}

// IsReadOnly reports whether the form shows the read-only notice of an inactive record
func (f *EntityForm) IsReadOnly() (bool, error) {
	if err := f.readOnly.First().WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	}); err != nil {
		return false, nil
	}
	return f.readOnly.First().IsVisible()
}

// RecordID returns the id of the record the form shows
func (f *EntityForm) RecordID() (string, error) {
	return RecordIDFromURL(f.page.URL())
}

// FieldValue returns the value attribute of the input labelled label
func (f *EntityForm) FieldValue(label string) (string, error) {
	value, err := f.page.GetByLabel(label, playwright.PageGetByLabelOptions{Exact: playwright.Bool(true)}).GetAttribute("value")
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %w", label, err)
	}
	return value, nil
}

// fill types value into the input labelled label, skipping empty values
func fill(input playwright.Locator, label, value string) error {
	if value == "" {
		return nil
	}
	if err := input.Fill(value); err != nil {
		return fmt.Errorf("failed to fill %q: %w", label, err)
	}
	return nil
}

// RecordIDFromURL extracts the id query parameter of a form URL, lower-cased
// and without the braces the app sometimes adds.
func RecordIDFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid form URL: %w", err)
	}
	id := strings.Trim(u.Query().Get("id"), "{}")
	if id == "" {
		return "", ErrNoRecordID
	}
	return strings.ToLower(id), nil
}
