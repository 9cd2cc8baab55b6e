package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/recaphq/recap/internal/domain"

	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "https://api.hubapi.com"

	searchResultLimit = 10

	defaultRequestTimeout = 30 * time.Second
)

// providerProperties is the fixed property set requested from HubSpot, in
// provider naming.
var providerProperties = buildProviderProperties()

func buildProviderProperties() []string {
	names := make([]string, 0, len(domain.KnownContactFields))
	for _, field := range domain.KnownContactFields {
		names = append(names, domain.ProviderPropertyName(field))
	}
	return names
}

// Client is a thin REST client for HubSpot CRM contacts. Every operation
// validates the credential's token before its single business HTTP attempt
// and short-circuits on token failure.
type Client struct {
	refresher  domain.TokenRefresher
	baseURL    string
	httpClient *http.Client
}

type ClientDependencies struct {
	TokenRefresher domain.TokenRefresher
	BaseURL        string
	HTTPClient     *http.Client
}

func NewClient(deps ClientDependencies) *Client {
	baseURL := deps.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	return &Client{
		refresher:  deps.TokenRefresher,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type contactObject struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

type searchRequest struct {
	Query      string   `json:"query"`
	Limit      int      `json:"limit"`
	Properties []string `json:"properties"`
}

type searchResponse struct {
	Results []contactObject `json:"results"`
}

type updateRequest struct {
	Properties map[string]string `json:"properties"`
}

// SearchContacts runs a free-text contact search capped at 10 results. No
// matches is an empty list, not an error.
func (c *Client) SearchContacts(ctx context.Context, credential domain.Credential, query string) ([]domain.Contact, error) {
	credential, err := c.refresher.EnsureValidToken(ctx, credential)
	if err != nil {
		return nil, err
	}

	body := searchRequest{
		Query:      query,
		Limit:      searchResultLimit,
		Properties: providerProperties,
	}

	respBody, status, err := c.do(ctx, credential, http.MethodPost, "/crm/v3/objects/contacts/search", body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, c.apiError(status, respBody)
	}

	var resp searchResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search response: %w", err)
	}

	contacts := make([]domain.Contact, 0, len(resp.Results))
	for _, obj := range resp.Results {
		if len(contacts) == searchResultLimit {
			break
		}
		contacts = append(contacts, formatContact(obj))
	}

	return contacts, nil
}

// GetContact fetches one contact with the full known property set. A 404
// maps to domain.ErrNotFound.
func (c *Client) GetContact(ctx context.Context, credential domain.Credential, contactID string) (domain.Contact, error) {
	credential, err := c.refresher.EnsureValidToken(ctx, credential)
	if err != nil {
		return domain.Contact{}, err
	}

	endpoint := fmt.Sprintf("/crm/v3/objects/contacts/%s?properties=%s",
		url.PathEscape(contactID), strings.Join(providerProperties, ","))

	respBody, status, err := c.do(ctx, credential, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Contact{}, err
	}

	return c.decodeContact(respBody, status)
}

// UpdateContact partially updates only the supplied canonical fields and
// returns the post-update contact. A 404 maps to domain.ErrNotFound.
func (c *Client) UpdateContact(ctx context.Context, credential domain.Credential, contactID string, updates map[string]string) (domain.Contact, error) {
	credential, err := c.refresher.EnsureValidToken(ctx, credential)
	if err != nil {
		return domain.Contact{}, err
	}

	properties := make(map[string]string, len(updates))
	for field, value := range updates {
		properties[domain.ProviderPropertyName(field)] = value
	}

	endpoint := fmt.Sprintf("/crm/v3/objects/contacts/%s", url.PathEscape(contactID))

	respBody, status, err := c.do(ctx, credential, http.MethodPatch, endpoint, updateRequest{Properties: properties})
	if err != nil {
		return domain.Contact{}, err
	}

	return c.decodeContact(respBody, status)
}

// ApplyUpdates submits the selected suggestions as one batched contact
// update. Suggestions with Apply false are ignored; when a field appears
// twice the later suggestion wins. An empty update set returns a no-op
// result without any network call.
func (c *Client) ApplyUpdates(ctx context.Context, credential domain.Credential, contactID string, suggestions []domain.Suggestion) (domain.ApplyResult, error) {
	updates := make(map[string]string)
	for _, s := range suggestions {
		if s.Apply {
			updates[s.Field] = s.NewValue
		}
	}

	if len(updates) == 0 {
		return domain.ApplyResult{Applied: false}, nil
	}

	contact, err := c.UpdateContact(ctx, credential, contactID, updates)
	if err != nil {
		return domain.ApplyResult{}, err
	}

	return domain.ApplyResult{Applied: true, Contact: contact}, nil
}

func (c *Client) decodeContact(respBody []byte, status int) (domain.Contact, error) {
	if status == http.StatusNotFound {
		return domain.Contact{}, domain.ErrNotFound
	}
	if status < 200 || status >= 300 {
		return domain.Contact{}, c.apiError(status, respBody)
	}

	var obj contactObject
	if err := json.Unmarshal(respBody, &obj); err != nil {
		return domain.Contact{}, fmt.Errorf("failed to unmarshal contact response: %w", err)
	}

	return formatContact(obj), nil
}

// do performs one HTTP attempt and returns the raw body and status.
// Transport failures map to domain.HTTPError; status classification is the
// caller's concern.
func (c *Client) do(ctx context.Context, credential domain.Credential, method, endpoint string, body any) ([]byte, int, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+credential.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("method", method).Str("endpoint", endpoint).Msg("HubSpot request transport failure")
		return nil, 0, &domain.HTTPError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Str("endpoint", endpoint).Msg("Failed to read HubSpot response body")
		return nil, 0, &domain.HTTPError{Err: err}
	}

	return respBody, resp.StatusCode, nil
}

func (c *Client) apiError(status int, body []byte) error {
	log.Error().Int("status", status).Str("body", string(body)).Msg("HubSpot API error")
	return &domain.APIError{StatusCode: status, Body: string(body)}
}
