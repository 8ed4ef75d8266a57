package framework

import (
	"errors"
	"fmt"

	"github.com/modeldriven/crm-e2e/test/framework/entity"
	"github.com/modeldriven/crm-e2e/test/framework/record"
	"github.com/modeldriven/crm-e2e/test/framework/wait"
	"github.com/modeldriven/crm-e2e/test/framework/webapi"
)

// CreateRecord posts r and tracks the new record for cleanup
func (f *Framework) CreateRecord(r record.Record) (string, error) {
	gw, err := f.api()
	if err != nil {
		return "", err
	}

	id, err := gw.Post(f.ctx, r.Collection(), webapi.WriteRequest{Data: r.Fields()})
	if err != nil {
		return "", NewRecordError(r.Collection(), "", err)
	}

	f.TrackRecord(r.Collection(), id)
	f.logger.Info("created record", "collection", r.Collection(), "id", id)
	return id, nil
}

// CreateContact creates c and returns it with the assigned id
func (f *Framework) CreateContact(c record.Contact) (record.Contact, error) {
	id, err := f.CreateRecord(c)
	if err != nil {
		return c, err
	}
	return c.WithID(id)
}

// CreateAccount creates a and returns it with the assigned id
func (f *Framework) CreateAccount(a record.Account) (record.Account, error) {
	id, err := f.CreateRecord(a)
	if err != nil {
		return a, err
	}
	return a.WithID(id)
}

// ProvisionContact creates a contact with a random first name and a unique last name
func (f *Framework) ProvisionContact() (record.Contact, error) {
	c, err := record.NewContact().
		FirstName(record.RandomFirstName()).
		LastName(record.RandomLastName() + record.UniqueToken()).
		Build()
	if err != nil {
		return c, err
	}
	return f.CreateContact(c)
}

// ProvisionAccount creates an account named after a random last name
func (f *Framework) ProvisionAccount() (record.Account, error) {
	a, err := record.NewAccount().
		Name(record.RandomLastName() + "PLC").
		Build()
	if err != nil {
		return a, err
	}
	return f.CreateAccount(a)
}

// CloneRecord creates a copy of an existing record from its required columns.
// The copied columns are left in d.Fields.
func (f *Framework) CloneRecord(d *entity.Descriptor, sourceID string) (string, error) {
	gw, err := f.api()
	if err != nil {
		return "", err
	}

	id, err := gw.InitializeFrom(f.ctx, d, sourceID)
	if err != nil {
		return "", NewRecordError(d.LogicalCollectionName(), sourceID, err)
	}

	f.TrackRecord(d.LogicalCollectionName(), id)
	f.logger.Info("cloned record", "collection", d.LogicalCollectionName(), "source", sourceID, "id", id)
	return id, nil
}

// FetchRecord reads one record, optionally limited to the selected columns
func (f *Framework) FetchRecord(collection, id string, selects ...string) (webapi.Row, error) {
	gw, err := f.api()
	if err != nil {
		return nil, err
	}

	row, err := gw.GetOne(f.ctx, collection, id, selects...)
	if err != nil {
		return nil, NewRecordError(collection, id, err)
	}
	return row, nil
}

// ListRecords reads a whole collection, optionally limited to the selected columns
func (f *Framework) ListRecords(collection string, selects ...string) ([]webapi.Row, error) {
	gw, err := f.api()
	if err != nil {
		return nil, err
	}

	rows, err := gw.GetMany(f.ctx, collection, selects...)
	if err != nil {
		return nil, NewRecordError(collection, "", err)
	}
	return rows, nil
}

// FetchContact reads a contact by id
func (f *Framework) FetchContact(id string) (record.Contact, error) {
	row, err := f.FetchRecord(entity.Contact().LogicalCollectionName(), id, record.ContactColumns...)
	if err != nil {
		return record.Contact{}, err
	}
	return record.ContactFromRow(row)
}

// FetchAccount reads an account by id
func (f *Framework) FetchAccount(id string) (record.Account, error) {
	row, err := f.FetchRecord(entity.Account().LogicalCollectionName(), id, record.AccountColumns...)
	if err != nil {
		return record.Account{}, err
	}
	return record.AccountFromRow(row)
}

// UpdateRecord patches the given columns of a record and returns the HTTP status
func (f *Framework) UpdateRecord(collection, id string, fields map[string]any) (int, error) {
	gw, err := f.api()
	if err != nil {
		return 0, err
	}

	status, err := gw.Patch(f.ctx, collection, id, webapi.WriteRequest{Data: fields})
	if err != nil {
		return status, NewRecordError(collection, id, err)
	}
	return status, nil
}

// DeactivateRecord sets a record inactive and returns the HTTP status
func (f *Framework) DeactivateRecord(collection, id string) (int, error) {
	return f.UpdateRecord(collection, id, map[string]any{
		"statecode":  StateCodeInactive,
		"statuscode": StatusCodeInactive,
	})
}

// DeleteRecord deletes a record, stops tracking it and returns the HTTP status
func (f *Framework) DeleteRecord(collection, id string) (int, error) {
	gw, err := f.api()
	if err != nil {
		return 0, err
	}

	status, err := gw.Delete(f.ctx, collection, id)
	if err != nil {
		return status, NewRecordError(collection, id, err)
	}

	// records created outside the framework are not tracked
	_ = f.UntrackRecord(collection, id)
	return status, nil
}

// WithRecord creates r, runs fn with its id and deletes the record on every
// exit path. A delete failure is returned only when fn succeeded.
func (f *Framework) WithRecord(r record.Record, fn func(id string) error) (err error) {
	id, err := f.CreateRecord(r)
	if err != nil {
		return err
	}

	defer func() {
		if _, delErr := f.DeleteRecord(r.Collection(), id); delErr != nil && !IsNotFound(delErr) {
			f.logger.Warn("failed to delete record", "collection", r.Collection(), "id", id, "error", delErr)
			if err == nil {
				err = delErr
			}
		}
	}()

	return fn(id)
}

// WaitForRecord waits until a record can be read, for records created through the UI
func (f *Framework) WaitForRecord(collection, id string, selects ...string) (webapi.Row, error) {
	gw, err := f.api()
	if err != nil {
		return nil, err
	}
	return wait.ForRecord(f.ctx, gw, collection, id, f.config.HTTPTimeout, f.config.CleanupPollInterval, selects...)
}

// WaitForRecordMatching waits until match accepts the record, e.g. after an
// update made through the UI or by a plugin.
func (f *Framework) WaitForRecordMatching(collection, id string, match func(webapi.Row) bool) (webapi.Row, error) {
	gw, err := f.api()
	if err != nil {
		return nil, err
	}
	row, err := wait.ForRecordMatching(f.ctx, gw, collection, id, f.config.HTTPTimeout, f.config.CleanupPollInterval, match)
	if errors.Is(err, wait.ErrTimeout) {
		return row, NewTimeoutError(fmt.Sprintf("update of %s(%s)", collection, id), f.config.HTTPTimeout.String(), "")
	}
	return row, err
}

// WaitForRecordDeleted waits until reading a record answers 404
func (f *Framework) WaitForRecordDeleted(collection, id string) error {
	gw, err := f.api()
	if err != nil {
		return err
	}
	err = wait.ForRecordDeleted(f.ctx, gw, collection, id, f.config.CleanupTimeout, f.config.CleanupPollInterval)
	if errors.Is(err, wait.ErrTimeout) {
		return NewTimeoutError(fmt.Sprintf("deletion of %s(%s)", collection, id), f.config.CleanupTimeout.String(), "")
	}
	return err
}
