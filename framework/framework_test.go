package framework_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/modeldriven/crm-e2e/test/framework"
	"github.com/modeldriven/crm-e2e/test/framework/config"
	"github.com/modeldriven/crm-e2e/test/framework/entity"
	"github.com/modeldriven/crm-e2e/test/framework/matchers"
	"github.com/modeldriven/crm-e2e/test/framework/record"
	"github.com/modeldriven/crm-e2e/test/framework/webapi"
	"github.com/modeldriven/crm-e2e/test/framework/webapi/webapitest"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig() *config.Config {
	return config.Default().
		WithHTTPTimeout(5*time.Second).
		WithCleanupTimeout(2*time.Second, 10*time.Millisecond)
}

func testEnvironment(srv *webapitest.Server) *config.Environment {
	env := config.DefaultEnvironment()
	env.BaseURL = srv.URL
	env.AppID = "app-1"
	env.StorageStatePath = filepath.Join(GinkgoT().TempDir(), "user.json")
	env.ResultsDir = GinkgoT().TempDir()
	return env
}

var _ = Describe("Framework", func() {
	var (
		srv *webapitest.Server
		env *config.Environment
		fw  *framework.Framework
	)

	BeforeEach(func() {
		srv = webapitest.NewServer()
		DeferCleanup(srv.Close)
		env = testEnvironment(srv)
	})

	newFramework := func(opts ...framework.Option) *framework.Framework {
		opts = append([]framework.Option{
			framework.WithLogger(quietLogger),
			framework.WithConfig(testConfig()),
		}, opts...)
		f, err := framework.New(context.Background(), env, opts...)
		Expect(err).NotTo(HaveOccurred())
		return f
	}

	withGateway := func() framework.Option {
		gw, err := webapi.New(srv.WebAPIURL(), webapi.WithLogger(quietLogger))
		Expect(err).NotTo(HaveOccurred())
		return framework.WithGateway(gw)
	}

	Describe("New", func() {
		It("requires an organization URL", func() {
			_, err := framework.New(context.Background(), nil)
			Expect(err).To(MatchError(framework.ErrBaseURLRequired))

			_, err = framework.New(context.Background(), &config.Environment{})
			Expect(err).To(MatchError(framework.ErrBaseURLRequired))
		})

		It("exposes the application URLs", func() {
			fw = newFramework()
			Expect(fw.URLs().WebAPIEndpoint).To(Equal(srv.URL + "/api/data/v9.2/"))
			Expect(fw.URLs().FormURL("contact", "abc")).To(HaveSuffix("&pagetype=entityrecord&etn=contact&id=abc"))
		})

		It("starts without a gateway when no session exists", func() {
			fw = newFramework()
			Expect(fw.Gateway()).To(BeNil())

			_, err := fw.ProvisionContact()
			Expect(err).To(MatchError(framework.ErrNoCredentials))
		})

		It("reuses the cookies of a saved browser session", func() {
			state := `{"cookies":[
				{"name":"CrmOwinAuth","value":"token-1","domain":"127.0.0.1","path":"/","expires":-1,"httpOnly":true,"secure":false,"sameSite":"None"},
				{"name":"Other","value":"x","domain":"login.example.com","path":"/","expires":-1,"httpOnly":false,"secure":true,"sameSite":"None"}
			],"origins":[]}`
			Expect(os.WriteFile(env.StorageStatePath, []byte(state), 0o600)).To(Succeed())

			fw = newFramework()
			Expect(fw.Gateway()).NotTo(BeNil())

			_, err := fw.Gateway().WhoAmI(context.Background())
			Expect(err).NotTo(HaveOccurred())

			req, ok := srv.LastRequest()
			Expect(ok).To(BeTrue())
			Expect(req.Header.Get("Cookie")).To(Equal("CrmOwinAuth=token-1"))
		})

		It("fails on an unreadable storage state", func() {
			Expect(os.WriteFile(env.StorageStatePath, []byte("{not json"), 0o600)).To(Succeed())

			_, err := framework.New(context.Background(), env, framework.WithLogger(quietLogger))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("record tracking", func() {
		BeforeEach(func() {
			fw = newFramework(withGateway())
		})

		It("tracks and untracks records", func() {
			fw.TrackRecord("contacts", "a")
			fw.TrackRecord("accounts", "b")
			Expect(fw.GetTrackedRecords()).To(HaveLen(2))

			Expect(fw.UntrackRecord("contacts", "a")).To(Succeed())
			Expect(fw.GetTrackedRecords()).To(ConsistOf(
				HaveField("String()", "accounts(b)"),
			))

			err := fw.UntrackRecord("contacts", "a")
			Expect(errors.Is(err, framework.ErrRecordNotTracked)).To(BeTrue())
		})
	})

	Describe("provisioning", func() {
		BeforeEach(func() {
			fw = newFramework(withGateway())
		})

		It("creates a contact with a unique last name and tracks it", func() {
			contact, err := fw.ProvisionContact()
			Expect(err).NotTo(HaveOccurred())

			id, ok := contact.ID()
			Expect(ok).To(BeTrue())
			Expect(contact.FirstName()).NotTo(BeEmpty())
			Expect(contact.LastName()).NotTo(BeEmpty())

			row, found := srv.Row("contacts", id)
			Expect(found).To(BeTrue())
			Expect(row).To(HaveKeyWithValue("lastname", contact.LastName()))

			Expect(fw.GetTrackedRecords()).To(ConsistOf(HaveField("ID", id)))
		})

		It("creates an account named after a last name", func() {
			account, err := fw.ProvisionAccount()
			Expect(err).NotTo(HaveOccurred())
			Expect(account.Name()).To(HaveSuffix("PLC"))

			id, _ := account.ID()
			fetched, err := fw.FetchAccount(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.Name()).To(Equal(account.Name()))
		})

		It("round-trips a generic contact", func() {
			created, err := fw.CreateContact(record.NewContact().BuildGeneric())
			Expect(err).NotTo(HaveOccurred())

			id, _ := created.ID()
			fetched, err := fw.FetchContact(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched).To(Equal(created))

			rows, err := fw.ListRecords("contacts")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(matchers.ContainRecord(created))
		})

		It("reports create failures with the collection", func() {
			srv.FailNext(http.MethodPost, http.StatusForbidden)
			_, err := fw.ProvisionContact()

			var recErr *framework.RecordError
			Expect(errors.As(err, &recErr)).To(BeTrue())
			Expect(recErr.Collection).To(Equal("contacts"))
			Expect(webapi.StatusCode(err)).To(Equal(http.StatusForbidden))
			Expect(fw.GetTrackedRecords()).To(BeEmpty())
		})

		It("clones a record from its required columns", func() {
			source, err := fw.ProvisionContact()
			Expect(err).NotTo(HaveOccurred())
			sourceID, _ := source.ID()

			d := entity.Contact()
			id, err := fw.CloneRecord(d, sourceID)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(Equal(sourceID))
			Expect(d.Fields).To(HaveKeyWithValue("lastname", source.LastName()))

			Expect(fw.GetTrackedRecords()).To(HaveLen(2))
		})
	})

	Describe("updates and deletes", func() {
		var id string

		BeforeEach(func() {
			fw = newFramework(withGateway())
			contact, err := fw.ProvisionContact()
			Expect(err).NotTo(HaveOccurred())
			id, _ = contact.ID()
		})

		It("deactivates a record", func() {
			status, err := fw.DeactivateRecord("contacts", id)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusNoContent))

			row, err := fw.FetchRecord("contacts", id, "statecode", "statuscode")
			Expect(err).NotTo(HaveOccurred())
			Expect(row).To(HaveKeyWithValue("statecode", BeEquivalentTo(framework.StateCodeInactive)))
			Expect(row).To(HaveKeyWithValue("statuscode", BeEquivalentTo(framework.StatusCodeInactive)))
		})

		It("deletes a record and stops tracking it", func() {
			status, err := fw.DeleteRecord("contacts", id)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusNoContent))
			Expect(fw.GetTrackedRecords()).To(BeEmpty())

			Expect(fw.WaitForRecordDeleted("contacts", id)).To(Succeed())

			_, err = fw.FetchRecord("contacts", id)
			Expect(framework.IsNotFound(err)).To(BeTrue())
		})

		It("reports a timeout when a record is not deleted", func() {
			err := fw.WaitForRecordDeleted("contacts", id)
			Expect(framework.IsTimeout(err)).To(BeTrue())
		})

		It("waits for a record to become readable", func() {
			row, err := fw.WaitForRecord("contacts", id, "lastname")
			Expect(err).NotTo(HaveOccurred())
			Expect(row).To(HaveKey("lastname"))
		})
	})

	Describe("WithRecord", func() {
		BeforeEach(func() {
			fw = newFramework(withGateway())
		})

		It("deletes the record after the function returns", func() {
			var seen string
			err := fw.WithRecord(record.NewAccount().BuildGeneric(), func(id string) error {
				seen = id
				_, found := srv.Row("accounts", id)
				Expect(found).To(BeTrue())
				return nil
			})
			Expect(err).NotTo(HaveOccurred())

			_, found := srv.Row("accounts", seen)
			Expect(found).To(BeFalse())
			Expect(fw.GetTrackedRecords()).To(BeEmpty())
		})

		It("deletes the record when the function fails", func() {
			boom := errors.New("boom")
			var seen string
			err := fw.WithRecord(record.NewAccount().BuildGeneric(), func(id string) error {
				seen = id
				return boom
			})
			Expect(err).To(MatchError(boom))

			_, found := srv.Row("accounts", seen)
			Expect(found).To(BeFalse())
		})
	})

	Describe("Cleanup", func() {
		BeforeEach(func() {
			fw = newFramework(withGateway())
		})

		It("deletes every tracked record", func() {
			for i := 0; i < 7; i++ {
				_, err := fw.ProvisionContact()
				Expect(err).NotTo(HaveOccurred())
			}
			_, err := fw.ProvisionAccount()
			Expect(err).NotTo(HaveOccurred())

			Expect(fw.Cleanup()).To(Succeed())
			Expect(srv.Count("contacts")).To(BeZero())
			Expect(srv.Count("accounts")).To(BeZero())
			Expect(fw.GetTrackedRecords()).To(BeEmpty())
		})

		It("treats records deleted elsewhere as cleaned up", func() {
			contact, err := fw.ProvisionContact()
			Expect(err).NotTo(HaveOccurred())
			id, _ := contact.ID()

			_, err = fw.Gateway().Delete(context.Background(), "contacts", id)
			Expect(err).NotTo(HaveOccurred())

			Expect(fw.Cleanup()).To(Succeed())
			Expect(fw.GetTrackedRecords()).To(BeEmpty())
		})

		It("keeps records it could not delete", func() {
			_, err := fw.ProvisionContact()
			Expect(err).NotTo(HaveOccurred())

			srv.FailNext(http.MethodDelete, http.StatusInternalServerError)
			err = fw.Cleanup()

			var cleanupErr *framework.CleanupError
			Expect(errors.As(err, &cleanupErr)).To(BeTrue())
			Expect(cleanupErr.Phase).To(Equal("record deletion"))
			Expect(fw.GetTrackedRecords()).To(HaveLen(1))

			Expect(fw.Cleanup()).To(Succeed())
			Expect(fw.GetTrackedRecords()).To(BeEmpty())
		})

		It("does nothing without tracked records", func() {
			Expect(fw.Cleanup()).To(Succeed())
			Expect(srv.Requests()).To(BeEmpty())
		})
	})

	Describe("CheckPrerequisites", func() {
		It("reports every table when the Web API is reachable", func() {
			fw = newFramework(withGateway())

			result, err := fw.CheckPrerequisites()
			Expect(err).NotTo(HaveOccurred())
			Expect(result.AllMet).To(BeTrue(), result.String())
			Expect(result.Tables).To(HaveLen(len(entity.All())))
			Expect(result.Err()).NotTo(HaveOccurred())

			summary := result.String()
			Expect(summary).To(ContainSubstring("✓ Web API: signed in as " + srv.UserID()))
			Expect(summary).To(ContainSubstring("✓ contact table: required columns: lastname"))
			Expect(summary).To(ContainSubstring("All prerequisites met: true"))
		})

		It("stops at a rejected session", func() {
			fw = newFramework(withGateway())
			srv.FailNext(http.MethodGet, http.StatusUnauthorized)

			result, err := fw.CheckPrerequisites()
			Expect(err).NotTo(HaveOccurred())
			Expect(result.AllMet).To(BeFalse())
			Expect(result.Tables).To(BeEmpty())
			Expect(result.String()).To(ContainSubstring("✗ Web API"))
			Expect(result.Err()).To(MatchError(framework.ErrPrerequisites))
		})

		It("fails without credentials", func() {
			fw = newFramework()
			_, err := fw.CheckPrerequisites()
			Expect(err).To(MatchError(framework.ErrPrerequisites))
			Expect(errors.Is(err, framework.ErrNoCredentials)).To(BeTrue())
		})
	})

	Describe("UseSessionCookies", func() {
		It("switches the gateway to the browser session", func() {
			fw = newFramework()
			Expect(fw.UseSessionCookies(nil)).To(MatchError(framework.ErrNoCredentials))

			Expect(fw.UseSessionCookies([]*http.Cookie{{Name: "CrmOwinAuth", Value: "abc"}})).To(Succeed())
			_, err := fw.Gateway().WhoAmI(context.Background())
			Expect(err).NotTo(HaveOccurred())

			req, _ := srv.LastRequest()
			Expect(req.Header.Get("Cookie")).To(Equal("CrmOwinAuth=abc"))
		})
	})
})
