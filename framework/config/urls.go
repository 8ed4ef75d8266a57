package config

import "net/url"

// URLs are the application addresses specs navigate to
type URLs struct {
	// WebAPIEndpoint is the Web API root with a trailing slash
	WebAPIEndpoint string
	// Application opens the model-driven app
	Application string
	// BaseForm is completed with "<logical name>&id=<id>"
	BaseForm string
	// BaseView is completed with "<logical name>"
	BaseView string
}

// NewURLs derives the application URLs from env
func NewURLs(env *Environment) URLs {
	application := env.BaseURL + "/main.aspx?appid=" + url.QueryEscape(env.AppID)
	return URLs{
		WebAPIEndpoint: env.WebAPIURL() + "/",
		Application:    application,
		BaseForm:       application + "&pagetype=entityrecord&etn=",
		BaseView:       application + "&pagetype=entitylist&etn=",
	}
}

// FormURL opens the main form of a record, or a new-record form when id is empty
func (u URLs) FormURL(logicalName, id string) string {
	if id == "" {
		return u.BaseForm + logicalName
	}
	return u.BaseForm + logicalName + "&id=" + id
}

// ViewURL opens the default view of a table
func (u URLs) ViewURL(logicalName string) string {
	return u.BaseView + logicalName
}
