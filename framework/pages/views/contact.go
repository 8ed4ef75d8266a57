package views

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// ContactView is the list view of the contact table
type ContactView struct {
	*EntityView

	appURL string
}

// NewContactView creates the contact list page object. appURL is the
// application URL, main.aspx?appid=<id>.
func NewContactView(page playwright.Page, appURL string) *ContactView {
	return &ContactView{
		EntityView: NewEntityView(page),
		appURL:     appURL,
	}
}

// URL returns the address of the contact list in the unified interface
func (v *ContactView) URL() string {
	return v.appURL + "&forceUCI=1&pagetype=entitylist&etn=contact"
}

// GoTo opens the contact list and waits for the grid
func (v *ContactView) GoTo() error {
	if _, err := v.page.Goto(v.URL(), playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("failed to open contact view: %w", err)
	}
	if err := v.resultsGrid.WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	}); err != nil {
		return fmt.Errorf("contact grid not shown: %w", err)
	}
	return nil
}
