// Package views holds page objects for the list views (grids) of the model-driven app.
package views

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// SearchOptions narrows a grid search
type SearchOptions struct {
	// ColumnHeader limits the search to one column. Empty searches every column.
	ColumnHeader string

	// Exact requires the whole cell text to equal the value instead of containing it
	Exact bool
}

// EntityView is the grid, view picker and column editor shared by every list view
type EntityView struct {
	page playwright.Page

	viewList      playwright.Locator
	viewMenuItems playwright.Locator

	resultsGrid playwright.Locator
	searchInput playwright.Locator

	editColumnsButton     playwright.Locator
	addColumnsButton      playwright.Locator
	columnSearchInput     playwright.Locator
	addColumnsCloseButton playwright.Locator
	applyColumnsButton    playwright.Locator
}

// NewEntityView creates a list view page object
func NewEntityView(page playwright.Page) *EntityView {
	return &EntityView{
		page: page,
		viewList: page.GetByRole(*playwright.AriaRoleHeading).
			Filter(playwright.LocatorFilterOptions{Has: page.GetByRole(*playwright.AriaRoleButton)}).
			Filter(playwright.LocatorFilterOptions{Has: page.GetByText("Open popup to change view")}),
		viewMenuItems: page.GetByRole(*playwright.AriaRoleMenuitemradio),

		resultsGrid: page.GetByRole(*playwright.AriaRoleGrid),
		searchInput: page.GetByPlaceholder("Filter by keyword"),

		editColumnsButton: page.GetByRole(*playwright.AriaRoleButton, playwright.PageGetByRoleOptions{Name: "Edit columns"}),
		addColumnsButton:  page.GetByRole(*playwright.AriaRoleButton, playwright.PageGetByRoleOptions{Name: "Add columns"}),
		columnSearchInput: page.GetByPlaceholder("Search"),
		addColumnsCloseButton: page.GetByRole(*playwright.AriaRoleDialog, playwright.PageGetByRoleOptions{Name: "Add columns"}).
			GetByTitle("Close"),
		applyColumnsButton: page.GetByRole(*playwright.AriaRoleButton, playwright.PageGetByRoleOptions{Name: "Apply"}),
	}
}

// Page returns the underlying playwright page
func (v *EntityView) Page() playwright.Page {
	return v.page
}

// AddColumnsToGrid adds the named columns to the grid through the column editor
func (v *EntityView) AddColumnsToGrid(columnNames []string) error {
	if err := v.editColumnsButton.Click(); err != nil {
		return fmt.Errorf("failed to open column editor: %w", err)
	}
	if err := v.addColumnsButton.Click(); err != nil {
		return fmt.Errorf("failed to open add columns: %w", err)
	}

	for _, name := range columnNames {
		if err := v.columnSearchInput.Click(); err != nil {
			return fmt.Errorf("failed to focus column search: %w", err)
		}
		if err := v.columnSearchInput.Fill(name); err != nil {
			return fmt.Errorf("failed to search column %q: %w", name, err)
		}
		if err := v.page.GetByRole(*playwright.AriaRoleOption, playwright.PageGetByRoleOptions{Name: name}).Click(); err != nil {
			return fmt.Errorf("failed to pick column %q: %w", name, err)
		}
	}

	if err := v.addColumnsCloseButton.Click(); err != nil {
		return fmt.Errorf("failed to close add columns: %w", err)
	}
	if err := v.applyColumnsButton.Click(); err != nil {
		return fmt.Errorf("failed to apply columns: %w", err)
	}
	return nil
}

// GridColumnHeaders returns the displayed column headers, without the selection column
func (v *EntityView) GridColumnHeaders() ([]string, error) {
	headers := v.resultsGrid.
		GetByRole(*playwright.AriaRoleColumnheader).
		Filter(playwright.LocatorFilterOptions{HasNot: v.resultsGrid.GetByRole(*playwright.AriaRoleCheckbox)})

	if err := headers.Last().WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	}); err != nil {
		return nil, fmt.Errorf("grid headers not shown: %w", err)
	}

	texts, err := headers.AllInnerTexts()
	if err != nil {
		return nil, fmt.Errorf("failed to read grid headers: %w", err)
	}
	return trimAll(texts), nil
}

// SelectView switches the grid to the view with the displayed name
func (v *EntityView) SelectView(viewName string) error {
	if err := v.viewList.Click(); err != nil {
		return fmt.Errorf("failed to open view picker: %w", err)
	}
	item := v.viewMenuItems.Filter(playwright.LocatorFilterOptions{Has: v.page.GetByLabel(viewName)})
	if err := item.Click(); err != nil {
		return fmt.Errorf("failed to select view %q: %w", viewName, err)
	}
	return nil
}

// FilterByKeyword searches the grid. The app applies keywords as a
// begins-with filter on the displayed columns.
func (v *EntityView) FilterByKeyword(keywords string) error {
	if err := v.searchInput.Click(); err != nil {
		return fmt.Errorf("failed to focus keyword filter: %w", err)
	}
	if err := v.searchInput.Fill(keywords); err != nil {
		return fmt.Errorf("failed to fill keyword filter: %w", err)
	}
	if err := v.searchInput.Press("Enter"); err != nil {
		return fmt.Errorf("failed to submit keyword filter: %w", err)
	}
	return nil
}

// CellsText returns the displayed text of the grid cells, limited to one
// column when opts.ColumnHeader is set.
func (v *EntityView) CellsText(opts SearchOptions) ([]string, error) {
	cells, err := v.cells(opts.ColumnHeader)
	if err != nil {
		return nil, err
	}
	texts, err := cells.AllInnerTexts()
	if err != nil {
		return nil, fmt.Errorf("failed to read grid cells: %w", err)
	}
	return trimAll(texts), nil
}

// ResultGridContains reports whether any grid cell holds value
func (v *EntityView) ResultGridContains(value string, opts SearchOptions) (bool, error) {
	cells, err := v.cells(opts.ColumnHeader)
	if err != nil {
		return false, err
	}

	count, err := cells.Count()
	if err != nil {
		return false, fmt.Errorf("failed to count grid cells: %w", err)
	}
	if count == 0 {
		return false, nil
	}

	texts, err := cells.AllInnerTexts()
	if err != nil {
		return false, fmt.Errorf("failed to read grid cells: %w", err)
	}
	return containsValue(texts, value, opts.Exact), nil
}

// cells locates the grid cells of one column, or of every column when header is empty
func (v *EntityView) cells(header string) (playwright.Locator, error) {
	if header == "" {
		return v.resultsGrid.GetByRole(*playwright.AriaRoleGridcell), nil
	}

	index, err := v.page.GetByRole(*playwright.AriaRoleColumnheader, playwright.PageGetByRoleOptions{Name: header}).
		GetAttribute("aria-colindex")
	if err != nil {
		return nil, fmt.Errorf("column %q not found: %w", header, err)
	}
	if index == "" {
		return nil, fmt.Errorf("column %q has no aria-colindex", header)
	}
	return v.resultsGrid.Locator(columnCellSelector(index)), nil
}

// columnCellSelector selects the grid cells at a column index
func columnCellSelector(colIndex string) string {
	return fmt.Sprintf(`[role="gridcell"][aria-colindex="%s"]`, colIndex)
}

// containsValue reports whether a cell text equals value (exact) or contains it
func containsValue(texts []string, value string, exact bool) bool {
	for _, text := range texts {
		if exact && text == value {
			return true
		}
		if !exact && strings.Contains(text, value) {
			return true
		}
	}
	return false
}

func trimAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = strings.TrimSpace(t)
	}
	return out
}
