//go:build e2e

package test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/modeldriven/crm-e2e/test/framework/pages/views"
)

var _ = Describe("Contact views", func() {
	It("filters a view by keyword", func() {
		contact, _ := openContact()

		view := views.NewEntityView(openPage(fw.URLs().ViewURL("contact")))
		Expect(view.FilterByKeyword(contact.LastName())).To(Succeed())

		names, err := view.CellsText(views.SearchOptions{ColumnHeader: "Full Name"})
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(ContainElement(contact.FullName()))
	})

	It("adds columns to the grid", func() {
		view := views.NewEntityView(openPage(fw.URLs().ViewURL("contact")))

		columns := []string{"Birthday", "Owner"}
		Expect(view.AddColumnsToGrid(columns)).To(Succeed())

		headers, err := view.GridColumnHeaders()
		Expect(err).NotTo(HaveOccurred())
		Expect(headers).To(ContainElements(columns))
	})

	It("finds nothing for a keyword no contact has", func() {
		page := openPage(fw.URLs().Application)
		view := views.NewContactView(page, fw.URLs().Application)
		Expect(view.GoTo()).To(Succeed())

		const keyword = "WhatAUniqueNameToHaveForAContact"
		Expect(view.FilterByKeyword(keyword)).To(Succeed())

		found, err := view.ResultGridContains(keyword, views.SearchOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})
})
