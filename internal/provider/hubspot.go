package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"connecthub/integrations/internal/config"
	"connecthub/integrations/internal/model"
)

// HubSpot drives the HubSpot CRM contacts API.
type HubSpot struct {
	cfg        config.ProviderConfig
	httpClient *http.Client

	authURL  string
	tokenURL string
	apiBase  string
}

func NewHubSpot(cfg config.ProviderConfig) *HubSpot {
	return &HubSpot{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		authURL:    "https://app.hubspot.com/oauth/authorize",
		tokenURL:   "https://api.hubapi.com/oauth/v1/token",
		apiBase:    "https://api.hubapi.com",
	}
}

func (h *HubSpot) Name() string { return "hubspot" }

func (h *HubSpot) UsesPKCE() bool { return false }

func (h *HubSpot) AuthCodeURL(encodedState, _ string) string {
	params := url.Values{
		"client_id":     {h.cfg.ClientID},
		"redirect_uri":  {h.cfg.RedirectURL},
		"scope":         {strings.Join(h.cfg.Scopes, " ")},
		"response_type": {"code"},
		"state":         {encodedState},
	}
	return h.authURL + "?" + params.Encode()
}

func (h *HubSpot) ExchangeCode(ctx context.Context, code, _ string) (*model.CredentialBundle, error) {
	params := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {h.cfg.ClientID},
		"client_secret": {h.cfg.ClientSecret},
		"redirect_uri":  {h.cfg.RedirectURL},
		"code":          {code},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.tokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	return decodeTokenResponse(resp)
}

type hubspotObject struct {
	ID         string         `json:"id"`
	ObjectType string         `json:"objectType"`
	CreatedAt  string         `json:"createdAt"`
	UpdatedAt  string         `json:"updatedAt"`
	Properties map[string]any `json:"properties"`
}

func (h *HubSpot) itemFromObject(obj hubspotObject) model.IntegrationItem {
	first, _ := obj.Properties["firstname"].(string)
	last, _ := obj.Properties["lastname"].(string)
	name := strings.TrimSpace(first + " " + last)
	if name == "" {
		name = obj.ID
	}

	typ := obj.ObjectType
	if typ == "" {
		typ = "contact"
	}

	return model.IntegrationItem{
		ID:               obj.ID,
		Type:             typ,
		Name:             name,
		CreationTime:     obj.CreatedAt,
		LastModifiedTime: obj.UpdatedAt,
		Properties:       obj.Properties,
	}
}

func contactPayload(data model.ContactData) map[string]any {
	return map[string]any{
		"properties": map[string]string{
			"firstname": data.Firstname,
			"lastname":  data.Lastname,
			"email":     data.Email,
			"phone":     data.Phone,
			"company":   data.Company,
		},
	}
}

func (h *HubSpot) contactsURL() string {
	return h.apiBase + "/crm/v3/objects/contacts"
}

func (h *HubSpot) ListItems(ctx context.Context, creds *model.CredentialBundle) ([]model.IntegrationItem, error) {
	resp, err := doAuthed(ctx, h.httpClient, http.MethodGet, h.contactsURL(), creds.AccessToken, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readUpstreamError(resp, "fetch contacts")
	}

	var page struct {
		Results []hubspotObject `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, err
	}

	items := make([]model.IntegrationItem, 0, len(page.Results))
	for _, obj := range page.Results {
		items = append(items, h.itemFromObject(obj))
	}
	return items, nil
}

func (h *HubSpot) GetContact(ctx context.Context, creds *model.CredentialBundle, contactID string) (*model.IntegrationItem, error) {
	resp, err := doAuthed(ctx, h.httpClient, http.MethodGet, h.contactsURL()+"/"+contactID, creds.AccessToken, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readUpstreamError(resp, "fetch contact")
	}
	return h.decodeContact(resp)
}

func (h *HubSpot) CreateContact(ctx context.Context, creds *model.CredentialBundle, data model.ContactData) (*model.IntegrationItem, error) {
	resp, err := doAuthed(ctx, h.httpClient, http.MethodPost, h.contactsURL(), creds.AccessToken, contactPayload(data))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, readUpstreamError(resp, "create contact")
	}
	return h.decodeContact(resp)
}

func (h *HubSpot) UpdateContact(ctx context.Context, creds *model.CredentialBundle, contactID string, data model.ContactData) (*model.IntegrationItem, error) {
	resp, err := doAuthed(ctx, h.httpClient, http.MethodPatch, h.contactsURL()+"/"+contactID, creds.AccessToken, contactPayload(data))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readUpstreamError(resp, "update contact")
	}
	return h.decodeContact(resp)
}

// DeleteContact returns nil only on the provider's documented 204 response.
func (h *HubSpot) DeleteContact(ctx context.Context, creds *model.CredentialBundle, contactID string) error {
	resp, err := doAuthed(ctx, h.httpClient, http.MethodDelete, h.contactsURL()+"/"+contactID, creds.AccessToken, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return readUpstreamError(resp, "delete contact")
	}
	return nil
}

func (h *HubSpot) decodeContact(resp *http.Response) (*model.IntegrationItem, error) {
	var obj hubspotObject
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		return nil, err
	}
	item := h.itemFromObject(obj)
	return &item, nil
}
