//go:build e2e

package test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/playwright-community/playwright-go"

	"github.com/modeldriven/crm-e2e/test/framework/matchers"
	"github.com/modeldriven/crm-e2e/test/framework/pages/forms"
	"github.com/modeldriven/crm-e2e/test/framework/record"
)

var _ = Describe("Contacts through the Web API", func() {
	It("creates, reads and updates a contact", func() {
		contact, err := fw.CreateContact(newContactDetails())
		Expect(err).NotTo(HaveOccurred())
		id, _ := contact.ID()
		deleteAfterSpec(contact.Collection(), id)

		fetched, err := fw.FetchContact(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(fetched.FirstName()).To(Equal(contact.FirstName()))
		Expect(fetched.LastName()).To(Equal(contact.LastName()))

		status, err := fw.UpdateRecord(contact.Collection(), id, map[string]any{
			record.ContactTelephone: "555-0100",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(http.StatusNoContent))

		row, err := fw.FetchRecord(contact.Collection(), id, record.ContactTelephone)
		Expect(err).NotTo(HaveOccurred())
		Expect(row).To(HaveKeyWithValue(record.ContactTelephone, "555-0100"))
	})

	It("lists a contact created with generated values", func() {
		contact, err := fw.CreateContact(record.NewContact().BuildGeneric())
		Expect(err).NotTo(HaveOccurred())
		id, _ := contact.ID()
		deleteAfterSpec(contact.Collection(), id)

		rows, err := fw.ListRecords(contact.Collection(), record.ContactColumns...)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(matchers.ContainRecord(contact))
	})

	It("shows a deactivated contact as read-only", func() {
		var (
			contact record.Contact
			id      string
		)

		By("GIVEN a contact record is added", func() {
			var err error
			contact, err = fw.CreateContact(newContactDetails())
			Expect(err).NotTo(HaveOccurred())
			id, _ = contact.ID()
			deleteAfterSpec(contact.Collection(), id)
		})

		By("WHEN the contact record is made inactive", func() {
			status, err := fw.DeactivateRecord(contact.Collection(), id)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusNoContent))
		})

		By("THEN the form displays a read-only status", func() {
			page := openPage(fw.URLs().FormURL("contact", id))
			Expect(page.GetByText(contact.FullName()).First().WaitFor(playwright.LocatorWaitForOptions{
				State: playwright.WaitForSelectorStateVisible,
			})).To(Succeed())

			readOnly, err := forms.NewContactForm(page).IsReadOnly()
			Expect(err).NotTo(HaveOccurred())
			Expect(readOnly).To(BeTrue())
		})
	})

	It("deletes a contact", func() {
		id, err := fw.CreateRecord(newContactDetails())
		Expect(err).NotTo(HaveOccurred())

		status, err := fw.DeleteRecord("contacts", id)
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(http.StatusNoContent))
		Expect(fw.WaitForRecordDeleted("contacts", id)).To(Succeed())
	})

	It("clones a contact from its required columns", func() {
		source, err := fw.CreateContact(newContactDetails())
		Expect(err).NotTo(HaveOccurred())
		sourceID, _ := source.ID()
		deleteAfterSpec(source.Collection(), sourceID)

		d := source.Descriptor()
		cloneID, err := fw.CloneRecord(d, sourceID)
		Expect(err).NotTo(HaveOccurred())
		deleteAfterSpec(source.Collection(), cloneID)

		Expect(cloneID).NotTo(Equal(sourceID))
		Expect(d.Fields).To(HaveKeyWithValue(record.ContactLastName, source.LastName()))
	})
})
