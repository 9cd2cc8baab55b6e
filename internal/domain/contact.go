package domain

import (
	"context"
	"strings"
)

// Canonical contact field names. These are the names the rest of the
// application speaks; a few map to differently-named HubSpot properties.
const (
	ContactFieldFirstName     = "firstname"
	ContactFieldLastName      = "lastname"
	ContactFieldEmail         = "email"
	ContactFieldPhone         = "phone"
	ContactFieldMobilePhone   = "mobilephone"
	ContactFieldCompany       = "company"
	ContactFieldJobTitle      = "jobtitle"
	ContactFieldAddress       = "address"
	ContactFieldCity          = "city"
	ContactFieldState         = "state"
	ContactFieldZip           = "zip"
	ContactFieldCountry       = "country"
	ContactFieldWebsite       = "website"
	ContactFieldLinkedInURL   = "linkedin_url"
	ContactFieldTwitterHandle = "twitter_handle"
)

// KnownContactFields is the fixed property set requested from and written
// to the CRM, in canonical names.
var KnownContactFields = []string{
	ContactFieldFirstName,
	ContactFieldLastName,
	ContactFieldEmail,
	ContactFieldPhone,
	ContactFieldMobilePhone,
	ContactFieldCompany,
	ContactFieldJobTitle,
	ContactFieldAddress,
	ContactFieldCity,
	ContactFieldState,
	ContactFieldZip,
	ContactFieldCountry,
	ContactFieldWebsite,
	ContactFieldLinkedInURL,
	ContactFieldTwitterHandle,
}

var canonicalToProvider = map[string]string{
	ContactFieldLinkedInURL:   "hs_linkedin_url",
	ContactFieldTwitterHandle: "twitterhandle",
}

// ProviderPropertyName translates a canonical field name to the HubSpot
// property name. Fields without a special mapping pass through unchanged.
func ProviderPropertyName(field string) string {
	if name, ok := canonicalToProvider[field]; ok {
		return name
	}
	return field
}

type ContactProperties struct {
	FirstName     string `json:"firstname,omitempty"`
	LastName      string `json:"lastname,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	MobilePhone   string `json:"mobilephone,omitempty"`
	Company       string `json:"company,omitempty"`
	JobTitle      string `json:"jobtitle,omitempty"`
	Address       string `json:"address,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	Zip           string `json:"zip,omitempty"`
	Country       string `json:"country,omitempty"`
	Website       string `json:"website,omitempty"`
	LinkedInURL   string `json:"linkedin_url,omitempty"`
	TwitterHandle string `json:"twitter_handle,omitempty"`
}

// Contact is the normalized CRM-side entity. Unrepresentable marks a
// response that carried no usable id/properties; it is an explicit value so
// list mapping stays total.
type Contact struct {
	ID              string            `json:"id"`
	Properties      ContactProperties `json:"properties"`
	DisplayName     string            `json:"display_name"`
	Unrepresentable bool              `json:"unrepresentable,omitempty"`
}

// UnrepresentableContact is the explicit value a malformed CRM response
// formats to.
func UnrepresentableContact() Contact {
	return Contact{Unrepresentable: true}
}

// DeriveDisplayName builds "first last" (trimmed), falling back to email
// when both names are blank. Empty only when name and email are all empty.
func DeriveDisplayName(firstName, lastName, email string) string {
	name := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
	if name != "" {
		return name
	}
	return strings.TrimSpace(email)
}

// ApplyResult is the outcome of a batched suggestion submission. Applied is
// false when no suggestion was selected and no network call was made.
type ApplyResult struct {
	Applied bool    `json:"applied"`
	Contact Contact `json:"contact"`
}

// CRMClient is the contact surface of the CRM integration. Every operation
// validates the credential's token first and performs exactly one business
// HTTP attempt.
type CRMClient interface {
	SearchContacts(ctx context.Context, credential Credential, query string) ([]Contact, error)
	GetContact(ctx context.Context, credential Credential, contactID string) (Contact, error)
	UpdateContact(ctx context.Context, credential Credential, contactID string, updates map[string]string) (Contact, error)
	ApplyUpdates(ctx context.Context, credential Credential, contactID string, suggestions []Suggestion) (ApplyResult, error)
}
