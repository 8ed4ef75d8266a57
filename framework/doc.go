// Package framework provides the fixtures end-to-end specs use against a
// model-driven app: Web API access, record provisioning with cleanup, and a
// shared browser session for the UI page objects.
//
// # Quick Start
//
// Load the organization settings and create a framework instance:
//
//	env, err := config.LoadEnvironment("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fw, err := framework.New(ctx, env)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer fw.Cleanup()
//
//	// Check prerequisites
//	prereqs, err := fw.CheckPrerequisites()
//	if err != nil || !prereqs.AllMet {
//	    log.Fatal("Prerequisites not met: ", prereqs)
//	}
//
// # Authentication
//
// The Web API gateway is built from the application user in the environment
// (tenant, client id and secret) when one is configured. Otherwise it reuses
// the cookies of a browser session saved by Authenticate:
//
//	if err := fw.Authenticate(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Records
//
// Records created through the framework are tracked and deleted by Cleanup:
//
//	contact, err := fw.ProvisionContact()
//	account, err := fw.CreateAccount(record.NewAccount().BuildGeneric())
//
//	status, err := fw.DeactivateRecord("contacts", id)
//
// WithRecord scopes a record to a function instead:
//
//	err := fw.WithRecord(record.NewContact().BuildGeneric(), func(id string) error {
//	    return checkSomething(id)
//	})
//
// # Browser
//
// OpenPage starts the browser on first use, signed in with the saved session:
//
//	page, err := fw.OpenPage(fw.URLs().FormURL("contact", id))
//	form := forms.NewContactForm(page)
//
// # Error Handling
//
// The framework provides typed errors for better error handling:
//
//	if framework.IsNotFound(err) {
//	    // The record does not exist
//	}
//	if framework.IsTimeout(err) {
//	    // Deleted records were still readable
//	}
//
//	var recErr *framework.RecordError
//	if errors.As(err, &recErr) {
//	    fmt.Printf("Record %s(%s) failed: %v\n", recErr.Collection, recErr.ID, recErr.Err)
//	}
//
// # Configuration
//
// Timeouts and limits can be set through environment variables:
//
//   - CRM_E2E_HTTP_TIMEOUT: Web API request timeout (default: 60s)
//   - CRM_E2E_NAVIGATION_TIMEOUT: page navigation timeout (default: 60s)
//   - CRM_E2E_ACTION_TIMEOUT: page action timeout (default: 30s)
//   - CRM_E2E_LOGIN_TIMEOUT: interactive sign-in timeout (default: 2m)
//   - CRM_E2E_CLEANUP_TIMEOUT: record deletion timeout (default: 2m)
//   - CRM_E2E_MAX_CONCURRENT_DELETES: parallel deletes during cleanup (default: 5)
//
// Or programmatically:
//
//	cfg := config.Default().
//	    WithHTTPTimeout(2 * time.Minute).
//	    WithMaxConcurrentDeletes(10)
//	fw, err := framework.New(ctx, env, framework.WithConfig(cfg))
package framework
