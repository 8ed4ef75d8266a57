// Package webapi is a thin typed client for the tabular Web API of a
// model-driven app (root <org>/api/data/v<version>/).
//
// It exists to set up, verify and tear down test data; it is not a general
// purpose OData client.
//
// # Paths
//
// BuildPath turns a collection name and QueryOptions into a request path:
//
//	webapi.BuildPath("contacts", webapi.QueryOptions{ID: id, Select: []string{"firstname", "lastname"}})
//	// contacts(<id>)?$select=firstname,lastname
//
// # Gateway
//
// A Gateway wraps an authenticated transport:
//
//	gw, err := webapi.New(env.WebAPIURL(), webapi.WithCookies(cookies))
//	id, err := gw.Post(ctx, "contacts", webapi.WriteRequest{Data: contact.Fields()})
//	row, err := gw.GetOne(ctx, "contacts", id, "firstname", "lastname")
//	status, err := gw.Patch(ctx, "contacts", id, webapi.WriteRequest{Data: map[string]any{"statecode": 1}})
//	status, err = gw.Delete(ctx, "contacts", id)
//
// Reading with an id always yields one object (GetOne); reading without an id
// always yields the "value" array (GetMany). Get accepts QueryOptions and
// reports which of the two it performed.
//
// # Errors
//
// Nothing is retried and nothing is defaulted. Every failure is one of:
//
//   - *HTTPStatusError: status outside 200-399, checked before the body is read
//   - *MalformedResponseError: body is not the expected JSON shape
//   - *MissingIdentifierHeaderError / *UnparseableIdentifierError: a create
//     succeeded but the new id could not be read from OData-EntityId
//   - *SchemaLookupError: the metadata step of InitializeFrom failed; it wraps
//     one of the above
//   - *TransportError: no response at all
//
// Use errors.Is with the Err* sentinels, or errors.As for the details.
package webapi
