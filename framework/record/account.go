package record

import (
	"fmt"

	"github.com/modeldriven/crm-e2e/test/framework/entity"
	"github.com/modeldriven/crm-e2e/test/framework/webapi"
)

// Account column names
const (
	AccountID        = "accountid"
	AccountName      = "name"
	AccountTelephone = "telephone1"
	AccountWebsite   = "websiteurl"
)

// AccountColumns lists the columns an Account maps
var AccountColumns = []string{AccountName, AccountTelephone, AccountWebsite}

// Account is an immutable account row. Only the name is required.
type Account struct {
	id        string
	name      string
	telephone string
	website   string
}

func (a Account) ID() (string, bool) { return a.id, a.id != "" }
func (a Account) Name() string       { return a.name }
func (a Account) Telephone() string  { return a.telephone }
func (a Account) Website() string    { return a.website }

// Collection returns "accounts"
func (a Account) Collection() string {
	return entity.Account().LogicalCollectionName()
}

// Fields returns the creation payload
func (a Account) Fields() map[string]any {
	fields := make(map[string]any, 3)
	setIfNotEmpty(fields, AccountName, a.name)
	setIfNotEmpty(fields, AccountTelephone, a.telephone)
	setIfNotEmpty(fields, AccountWebsite, a.website)
	return fields
}

// WithID returns a copy of a carrying id. The id of a record can be set once.
func (a Account) WithID(id string) (Account, error) {
	assigned, err := assignID(a.id, id)
	if err != nil {
		return a, err
	}
	a.id = assigned
	return a, nil
}

// Descriptor returns an account descriptor whose Fields hold a's payload
func (a Account) Descriptor() *entity.Descriptor {
	return entity.Account().WithFields(a.Fields())
}

// AccountFromRow rebuilds an Account from a Web API row. The row must carry accountid.
func AccountFromRow(row webapi.Row) (Account, error) {
	id, _ := row.String(AccountID)
	if id == "" {
		return Account{}, fmt.Errorf("account row: %w", &MissingFieldError{Table: "account", Field: AccountID})
	}

	a := Account{id: id}
	a.name, _ = row.String(AccountName)
	a.telephone, _ = row.String(AccountTelephone)
	a.website, _ = row.String(AccountWebsite)
	return a, nil
}

// AccountBuilder accumulates account attributes. The zero value is ready to use.
type AccountBuilder struct {
	draft Account
}

// NewAccount returns an empty builder
func NewAccount() AccountBuilder {
	return AccountBuilder{}
}

func (b AccountBuilder) Name(name string) AccountBuilder {
	b.draft.name = name
	return b
}

func (b AccountBuilder) Telephone(number string) AccountBuilder {
	b.draft.telephone = number
	return b
}

func (b AccountBuilder) Website(url string) AccountBuilder {
	b.draft.website = url
	return b
}

// Build returns the account, or a MissingFieldError when no name was set
func (b AccountBuilder) Build() (Account, error) {
	if b.draft.name == "" {
		return Account{}, &MissingFieldError{Table: "account", Field: AccountName}
	}
	return b.draft, nil
}

// BuildGeneric fills every attribute with generated values. The name is a
// random last name made unique with a ULID, followed by "PLC".
func (b AccountBuilder) BuildGeneric() Account {
	token := UniqueToken()
	name := RandomLastName() + token + " PLC"

	return b.
		Name(name).
		Telephone(UnixTimestamp()).
		Website("https://" + slug(RandomLastName()+"-"+token) + ".example.com").
		draft
}
