package forms

import (
	"github.com/playwright-community/playwright-go"

	"github.com/modeldriven/crm-e2e/test/framework/record"
)

// Contact form labels
const (
	LabelFirstName   = "First Name"
	LabelLastName    = "Last Name"
	LabelEmail       = "Email"
	LabelMobilePhone = "Mobile Phone"
)

// ContactForm is the main form of the contact table
type ContactForm struct {
	*EntityForm

	firstName playwright.Locator
	lastName  playwright.Locator
	email     playwright.Locator
	telephone playwright.Locator
}

// NewContactForm creates the contact form page object
func NewContactForm(page playwright.Page) *ContactForm {
	return &ContactForm{
		EntityForm: NewEntityForm(page),
		firstName:  page.GetByLabel(LabelFirstName),
		lastName:   page.GetByLabel(LabelLastName),
		email:      page.GetByLabel(LabelEmail),
		telephone:  page.GetByLabel(LabelMobilePhone),
	}
}

// Add fills the form from c and saves it
func (f *ContactForm) Add(c record.Contact) error {
	if err := fill(f.firstName, LabelFirstName, c.FirstName()); err != nil {
		return err
	}
	if err := fill(f.lastName, LabelLastName, c.LastName()); err != nil {
		return err
	}
	if err := fill(f.email, LabelEmail, c.Email()); err != nil {
		return err
	}
	if err := fill(f.telephone, LabelMobilePhone, c.Telephone()); err != nil {
		return err
	}
	return f.Save()
}

// FirstName returns the displayed first name
func (f *ContactForm) FirstName() (string, error) {
	return f.firstName.GetAttribute("value")
}

// LastName returns the displayed last name
func (f *ContactForm) LastName() (string, error) {
	return f.lastName.InputValue()
}
