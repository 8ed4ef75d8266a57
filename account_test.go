//go:build e2e

package test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/modeldriven/crm-e2e/test/framework/pages/forms"
)

var _ = Describe("Accounts", func() {
	It("opens the provisioned account", func() {
		account, page := openAccount()

		Expect(page.GetByLabel(forms.LabelAccountName).GetAttribute("value")).To(Equal(account.Name()))
		Expect(forms.NewAccountForm(page).Name()).To(Equal(account.Name()))
	})

	It("reads back an account created through the Web API", func() {
		created, err := fw.ProvisionAccount()
		Expect(err).NotTo(HaveOccurred())
		id, _ := created.ID()
		deleteAfterSpec(created.Collection(), id)

		fetched, err := fw.FetchAccount(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(fetched.Name()).To(Equal(created.Name()))
	})
})
