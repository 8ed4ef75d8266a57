package pages

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/modeldriven/crm-e2e/test/framework/config"
)

const copilotPlaceholder = "Ask a question about the data in the app. Use / to reference data"

// DismissCopilot waits for the Copilot pane that opens on direct navigation
// and closes it by toggling its tab.
func DismissCopilot(page playwright.Page, timeout time.Duration) error {
	input := page.GetByPlaceholder(copilotPlaceholder)
	if err := input.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(config.Milliseconds(timeout)),
	}); err != nil {
		return fmt.Errorf("copilot pane not shown: %w", err)
	}

	if err := page.GetByRole(*playwright.AriaRoleTab, playwright.PageGetByRoleOptions{
		Name: "Copilot",
	}).Click(); err != nil {
		return fmt.Errorf("failed to close copilot pane: %w", err)
	}
	return nil
}
