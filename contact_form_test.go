//go:build e2e

package test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/playwright-community/playwright-go"

	"github.com/modeldriven/crm-e2e/test/framework/matchers"
	"github.com/modeldriven/crm-e2e/test/framework/pages/forms"
	"github.com/modeldriven/crm-e2e/test/framework/record"
)

var _ = Describe("Contact form", func() {
	It("opens a new contact form from the site map", func() {
		page := openPage(fw.URLs().Application)

		Expect(page.GetByRole(*playwright.AriaRoleTreeitem, playwright.PageGetByRoleOptions{Name: "Contacts"}).Click()).To(Succeed())
		Expect(page.GetByRole(*playwright.AriaRoleMenuitem, playwright.PageGetByRoleOptions{Name: "New"}).Click()).To(Succeed())
		Expect(page.WaitForURL("**pagetype=entityrecord&etn=contact*")).To(Succeed())
	})

	It("creates a contact on the form that the Web API returns", func() {
		// Mobile Phone on the form is not telephone1, so the contact has no telephone
		first, last := record.RandomFirstName(), record.RandomLastName()+record.UniqueToken()
		contact, err := record.NewContact().
			FirstName(first).
			LastName(last).
			Email(record.GenericEmail(first, last)).
			Build()
		Expect(err).NotTo(HaveOccurred())
		form := forms.NewContactForm(openPage(fw.URLs().FormURL("contact", "")))

		Expect(form.Add(contact)).To(Succeed())

		id, err := form.RecordID()
		Expect(err).NotTo(HaveOccurred())
		fw.TrackRecord(contact.Collection(), id)

		row, err := fw.WaitForRecord(contact.Collection(), id, record.ContactColumns...)
		Expect(err).NotTo(HaveOccurred())
		Expect(row).To(matchers.MatchRecord(contact))

		rows, err := fw.ListRecords(contact.Collection(), record.ContactColumns...)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(matchers.ContainRecord(contact))
	})

	It("shows the values of a contact created through the Web API", func() {
		contact, err := fw.CreateContact(newContactDetails())
		Expect(err).NotTo(HaveOccurred())
		id, _ := contact.ID()
		deleteAfterSpec(contact.Collection(), id)

		form := forms.NewContactForm(openPage(fw.URLs().FormURL("contact", id)))

		Expect(form.FirstName()).To(Equal(contact.FirstName()))
		Expect(form.LastName()).To(Equal(contact.LastName()))
	})

	It("opens the provisioned contact", func() {
		contact, page := openContact()

		Expect(page.GetByLabel(forms.LabelFirstName).GetAttribute("value")).To(Equal(contact.FirstName()))
		Expect(page.GetByLabel(forms.LabelLastName).GetAttribute("value")).To(Equal(contact.LastName()))
	})
})
