package record

import (
	"fmt"

	"github.com/modeldriven/crm-e2e/test/framework/entity"
	"github.com/modeldriven/crm-e2e/test/framework/webapi"
)

// Contact column names
const (
	ContactID        = "contactid"
	ContactFirstName = "firstname"
	ContactLastName  = "lastname"
	ContactEmail     = "emailaddress1"
	ContactTelephone = "telephone1"
)

// ContactColumns lists the columns a Contact maps, in display order
var ContactColumns = []string{ContactFirstName, ContactLastName, ContactEmail, ContactTelephone}

// Contact is an immutable contact row. Only the last name is required.
type Contact struct {
	id        string
	firstName string
	lastName  string
	email     string
	telephone string
}

func (c Contact) ID() (string, bool) { return c.id, c.id != "" }
func (c Contact) FirstName() string  { return c.firstName }
func (c Contact) LastName() string   { return c.lastName }
func (c Contact) Email() string      { return c.email }
func (c Contact) Telephone() string  { return c.telephone }

// FullName returns "<first> <last>", or just the last name
func (c Contact) FullName() string {
	if c.firstName == "" {
		return c.lastName
	}
	return c.firstName + " " + c.lastName
}

// Collection returns "contacts"
func (c Contact) Collection() string {
	return entity.Contact().LogicalCollectionName()
}

// Fields returns the creation payload
func (c Contact) Fields() map[string]any {
	fields := make(map[string]any, 4)
	setIfNotEmpty(fields, ContactFirstName, c.firstName)
	setIfNotEmpty(fields, ContactLastName, c.lastName)
	setIfNotEmpty(fields, ContactEmail, c.email)
	setIfNotEmpty(fields, ContactTelephone, c.telephone)
	return fields
}

// WithID returns a copy of c carrying id. The id of a record can be set once.
func (c Contact) WithID(id string) (Contact, error) {
	assigned, err := assignID(c.id, id)
	if err != nil {
		return c, err
	}
	c.id = assigned
	return c, nil
}

// Descriptor returns a contact descriptor whose Fields hold c's payload
func (c Contact) Descriptor() *entity.Descriptor {
	return entity.Contact().WithFields(c.Fields())
}

// ContactFromRow rebuilds a Contact from a Web API row. The row must carry contactid.
func ContactFromRow(row webapi.Row) (Contact, error) {
	id, _ := row.String(ContactID)
	if id == "" {
		return Contact{}, fmt.Errorf("contact row: %w", &MissingFieldError{Table: "contact", Field: ContactID})
	}

	c := Contact{id: id}
	c.firstName, _ = row.String(ContactFirstName)
	c.lastName, _ = row.String(ContactLastName)
	c.email, _ = row.String(ContactEmail)
	c.telephone, _ = row.String(ContactTelephone)
	return c, nil
}

// ContactBuilder accumulates contact attributes. The zero value is ready to use.
type ContactBuilder struct {
	draft Contact
}

// NewContact returns an empty builder
func NewContact() ContactBuilder {
	return ContactBuilder{}
}

func (b ContactBuilder) FirstName(name string) ContactBuilder {
	b.draft.firstName = name
	return b
}

func (b ContactBuilder) LastName(name string) ContactBuilder {
	b.draft.lastName = name
	return b
}

func (b ContactBuilder) Email(email string) ContactBuilder {
	b.draft.email = email
	return b
}

func (b ContactBuilder) Telephone(number string) ContactBuilder {
	b.draft.telephone = number
	return b
}

// Build returns the contact, or a MissingFieldError when no last name was set
func (b ContactBuilder) Build() (Contact, error) {
	if b.draft.lastName == "" {
		return Contact{}, &MissingFieldError{Table: "contact", Field: ContactLastName}
	}
	return b.draft, nil
}

// BuildGeneric fills every attribute with generated values: a random first
// name, a random last name made unique with a ULID, an email derived from both
// and the current unix time as telephone. Values set on b are overwritten.
func (b ContactBuilder) BuildGeneric() Contact {
	first := RandomFirstName()
	last := RandomLastName() + UniqueToken()

	return b.
		FirstName(first).
		LastName(last).
		Email(GenericEmail(first, last)).
		Telephone(UnixTimestamp()).
		draft
}
