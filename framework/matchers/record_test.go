package matchers

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/modeldriven/crm-e2e/test/framework/record"
	"github.com/modeldriven/crm-e2e/test/framework/webapi"
)

func testContact(t *testing.T) record.Contact {
	t.Helper()
	c, err := record.NewContact().
		FirstName("Ada").
		LastName("Lovelace").
		Email("AdaLovelace@example.com").
		Telephone("1717171717").
		Build()
	if err != nil {
		t.Fatalf("build contact: %v", err)
	}
	return c
}

func TestContainRecord(t *testing.T) {
	g := NewWithT(t)
	c := testContact(t)

	rows := []webapi.Row{
		{"contactid": "1", "firstname": "Grace", "lastname": "Hopper"},
		{
			"contactid":     "2",
			"firstname":     "Ada",
			"lastname":      "Lovelace",
			"emailaddress1": "AdaLovelace@example.com",
			"telephone1":    "1717171717",
			"@odata.etag":   `W/"1"`,
		},
	}

	g.Expect(rows).To(ContainRecord(c))
	g.Expect(rows[:1]).NotTo(ContainRecord(c))
}

func TestContainRecord_NumericColumns(t *testing.T) {
	g := NewWithT(t)
	c := testContact(t)

	// JSON numbers decode as float64
	rows := []webapi.Row{{
		"firstname":     "Ada",
		"lastname":      "Lovelace",
		"emailaddress1": "AdaLovelace@example.com",
		"telephone1":    float64(1717171717),
	}}
	g.Expect(rows).To(ContainRecord(c))
}

func TestContainRecord_ChecksID(t *testing.T) {
	g := NewWithT(t)
	c, err := testContact(t).WithID("ABC")
	g.Expect(err).NotTo(HaveOccurred())

	row := webapi.Row{
		"firstname":     "Ada",
		"lastname":      "Lovelace",
		"emailaddress1": "AdaLovelace@example.com",
		"telephone1":    "1717171717",
	}

	row["contactid"] = "abc"
	g.Expect([]webapi.Row{row}).To(ContainRecord(c))

	row["contactid"] = "other"
	g.Expect([]webapi.Row{row}).NotTo(ContainRecord(c))
}

func TestContainRecord_Result(t *testing.T) {
	g := NewWithT(t)
	a, err := record.NewAccount().Name("Contoso PLC").Build()
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(webapi.Result{Many: []webapi.Row{{"name": "Contoso PLC"}}}).To(ContainRecord(a))
	g.Expect(webapi.Result{Single: true, One: webapi.Row{"name": "Fabrikam PLC"}}).NotTo(ContainRecord(a))
}

func TestContainRecord_WrongType(t *testing.T) {
	g := NewWithT(t)
	_, err := ContainRecord(testContact(t)).Match("not rows")
	g.Expect(err).To(HaveOccurred())
}

func TestMatchRecord(t *testing.T) {
	g := NewWithT(t)
	c := testContact(t)

	row := webapi.Row{
		"firstname":     "Ada",
		"lastname":      "Lovelace",
		"emailaddress1": "AdaLovelace@example.com",
		"telephone1":    "1717171717",
	}
	g.Expect(row).To(MatchRecord(c))

	row["lastname"] = "Byron"
	m := MatchRecord(c)
	ok, err := m.Match(row)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ok).To(BeFalse())
	g.Expect(m.FailureMessage(row)).To(ContainSubstring("mismatched columns: lastname"))
}

func TestFailureMessageDescribesRecord(t *testing.T) {
	g := NewWithT(t)
	a, err := record.NewAccount().Name("Contoso PLC").Build()
	g.Expect(err).NotTo(HaveOccurred())

	msg := ContainRecord(a).FailureMessage([]webapi.Row{})
	g.Expect(msg).To(ContainSubstring("accounts{name=Contoso PLC}"))
}
