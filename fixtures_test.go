//go:build e2e

package test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/playwright-community/playwright-go"

	"github.com/modeldriven/crm-e2e/test/framework"
	"github.com/modeldriven/crm-e2e/test/framework/record"
)

// openPage opens url in a new tab that is closed when the test ends.
// A failed test leaves a screenshot in the results directory.
func openPage(url string) playwright.Page {
	GinkgoHelper()

	page, err := fw.OpenPage(url)
	Expect(err).NotTo(HaveOccurred())

	DeferCleanup(func() {
		if CurrentSpecReport().Failed() {
			if path, err := fw.Screenshot(page, CurrentSpecReport().LeafNodeText); err == nil {
				AddReportEntry("screenshot", path)
			}
		}
		_ = page.Close()
	})
	return page
}

// deleteAfterSpec removes a record when the test ends, whatever its outcome
func deleteAfterSpec(collection, id string) {
	DeferCleanup(func() {
		if _, err := fw.DeleteRecord(collection, id); err != nil && !framework.IsNotFound(err) {
			Expect(err).NotTo(HaveOccurred())
		}
	})
}

// openContact adds a contact with a first and last name through the Web API
// and opens its form.
func openContact() (record.Contact, playwright.Page) {
	GinkgoHelper()

	contact, err := fw.ProvisionContact()
	Expect(err).NotTo(HaveOccurred())
	id, _ := contact.ID()
	deleteAfterSpec(contact.Collection(), id)

	return contact, openPage(fw.URLs().FormURL("contact", id))
}

// openAccount adds an account with a name through the Web API and opens its form
func openAccount() (record.Account, playwright.Page) {
	GinkgoHelper()

	account, err := fw.ProvisionAccount()
	Expect(err).NotTo(HaveOccurred())
	id, _ := account.ID()
	deleteAfterSpec(account.Collection(), id)

	return account, openPage(fw.URLs().FormURL("account", id))
}

// newContactDetails returns a contact with a random first and last name
func newContactDetails() record.Contact {
	GinkgoHelper()

	contact, err := record.NewContact().
		FirstName(record.RandomFirstName()).
		LastName(record.RandomLastName() + record.UniqueToken()).
		Build()
	Expect(err).NotTo(HaveOccurred())
	return contact
}
