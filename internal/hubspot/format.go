package hubspot

import "github.com/recaphq/recap/internal/domain"

// formatContact normalizes a raw HubSpot contact object into the domain
// shape shared by search, get and update responses. A response with no
// usable id or properties formats to the explicit unrepresentable value.
func formatContact(obj contactObject) domain.Contact {
	if obj.ID == "" || obj.Properties == nil {
		return domain.UnrepresentableContact()
	}

	props := domain.ContactProperties{
		FirstName:     obj.Properties["firstname"],
		LastName:      obj.Properties["lastname"],
		Email:         obj.Properties["email"],
		Phone:         obj.Properties["phone"],
		MobilePhone:   obj.Properties["mobilephone"],
		Company:       obj.Properties["company"],
		JobTitle:      obj.Properties["jobtitle"],
		Address:       obj.Properties["address"],
		City:          obj.Properties["city"],
		State:         obj.Properties["state"],
		Zip:           obj.Properties["zip"],
		Country:       obj.Properties["country"],
		Website:       obj.Properties["website"],
		LinkedInURL:   obj.Properties["hs_linkedin_url"],
		TwitterHandle: obj.Properties["twitterhandle"],
	}

	return domain.Contact{
		ID:          obj.ID,
		Properties:  props,
		DisplayName: domain.DeriveDisplayName(props.FirstName, props.LastName, props.Email),
	}
}
