package hubspot

import (
	"testing"

	"github.com/recaphq/recap/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestFormatContact(t *testing.T) {
	tests := []struct {
		name string
		obj  contactObject
		want domain.Contact
	}{
		{
			name: "first name only, no trailing space",
			obj:  contactObject{ID: "1", Properties: map[string]string{"firstname": "A"}},
			want: domain.Contact{
				ID:          "1",
				Properties:  domain.ContactProperties{FirstName: "A"},
				DisplayName: "A",
			},
		},
		{
			name: "full name",
			obj:  contactObject{ID: "2", Properties: map[string]string{"firstname": "Ada", "lastname": "Lovelace"}},
			want: domain.Contact{
				ID:          "2",
				Properties:  domain.ContactProperties{FirstName: "Ada", LastName: "Lovelace"},
				DisplayName: "Ada Lovelace",
			},
		},
		{
			name: "email fallback when names blank",
			obj:  contactObject{ID: "3", Properties: map[string]string{"email": "j@x.com"}},
			want: domain.Contact{
				ID:          "3",
				Properties:  domain.ContactProperties{Email: "j@x.com"},
				DisplayName: "j@x.com",
			},
		},
		{
			name: "provider property names translated",
			obj: contactObject{ID: "4", Properties: map[string]string{
				"email":           "e@x.com",
				"hs_linkedin_url": "https://linkedin.com/in/e",
				"twitterhandle":   "e",
			}},
			want: domain.Contact{
				ID: "4",
				Properties: domain.ContactProperties{
					Email:         "e@x.com",
					LinkedInURL:   "https://linkedin.com/in/e",
					TwitterHandle: "e",
				},
				DisplayName: "e@x.com",
			},
		},
		{
			name: "missing id is unrepresentable",
			obj:  contactObject{Properties: map[string]string{"firstname": "A"}},
			want: domain.UnrepresentableContact(),
		},
		{
			name: "missing properties is unrepresentable",
			obj:  contactObject{ID: "5"},
			want: domain.UnrepresentableContact(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatContact(tt.obj))
		})
	}
}

func TestDeriveDisplayName_EmptyOnlyWhenAllBlank(t *testing.T) {
	assert.Equal(t, "", domain.DeriveDisplayName("", "", ""))
	assert.Equal(t, "j@x.com", domain.DeriveDisplayName(" ", " ", "j@x.com"))
	assert.Equal(t, "Lovelace", domain.DeriveDisplayName("", "Lovelace", "j@x.com"))
}
