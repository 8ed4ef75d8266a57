package forms

import (
	"github.com/playwright-community/playwright-go"

	"github.com/modeldriven/crm-e2e/test/framework/record"
)

// LabelAccountName labels the account name input
const LabelAccountName = "Account Name"

// AccountForm is the main form of the account table
type AccountForm struct {
	*EntityForm

	name playwright.Locator
}

// NewAccountForm creates the account form page object
func NewAccountForm(page playwright.Page) *AccountForm {
	return &AccountForm{
		EntityForm: NewEntityForm(page),
		name:       page.GetByLabel(LabelAccountName),
	}
}

// Add fills the account name from a and saves the form
func (f *AccountForm) Add(a record.Account) error {
	if err := fill(f.name, LabelAccountName, a.Name()); err != nil {
		return err
	}
	return f.Save()
}

// Name returns the displayed account name
func (f *AccountForm) Name() (string, error) {
	return f.name.GetAttribute("value")
}
