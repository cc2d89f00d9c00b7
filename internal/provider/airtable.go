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

// Airtable drives the Airtable metadata and records APIs. Airtable's OAuth2
// flow mandates PKCE and HTTP Basic client authentication on the token endpoint.
type Airtable struct {
	cfg        config.ProviderConfig
	httpClient *http.Client

	authURL  string
	tokenURL string
	apiBase  string
}

func NewAirtable(cfg config.ProviderConfig) *Airtable {
	return &Airtable{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		authURL:    "https://airtable.com/oauth2/v1/authorize",
		tokenURL:   "https://airtable.com/oauth2/v1/token",
		apiBase:    "https://api.airtable.com",
	}
}

func (a *Airtable) Name() string { return "airtable" }

func (a *Airtable) UsesPKCE() bool { return true }

func (a *Airtable) AuthCodeURL(encodedState, codeChallenge string) string {
	params := url.Values{
		"client_id":             {a.cfg.ClientID},
		"redirect_uri":          {a.cfg.RedirectURL},
		"scope":                 {strings.Join(a.cfg.Scopes, " ")},
		"response_type":         {"code"},
		"owner":                 {"user"},
		"state":                 {encodedState},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {"S256"},
	}
	return a.authURL + "?" + params.Encode()
}

func (a *Airtable) ExchangeCode(ctx context.Context, code, codeVerifier string) (*model.CredentialBundle, error) {
	params := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {a.cfg.ClientID},
		"redirect_uri":  {a.cfg.RedirectURL},
		"code":          {code},
		"code_verifier": {codeVerifier},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.cfg.ClientID, a.cfg.ClientSecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	return decodeTokenResponse(resp)
}

// Base is one Airtable base with its tables, as returned by the metadata API.
type Base struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Tables []Table `json:"tables"`
}

type Table struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Bases lists every base visible to the token together with its tables.
// The base listing is paginated by an opaque offset cursor.
func (a *Airtable) Bases(ctx context.Context, creds *model.CredentialBundle) ([]Base, error) {
	var bases []Base
	offset := ""
	for {
		listURL := a.apiBase + "/v0/meta/bases"
		if offset != "" {
			listURL += "?offset=" + url.QueryEscape(offset)
		}

		resp, err := doAuthed(ctx, a.httpClient, http.MethodGet, listURL, creds.AccessToken, nil)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			return nil, readUpstreamError(resp, "list bases")
		}

		var page struct {
			Bases  []Base `json:"bases"`
			Offset string `json:"offset"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			resp.Body.Close()
			return nil, err
		}
		resp.Body.Close()

		bases = append(bases, page.Bases...)
		if page.Offset == "" {
			break
		}
		offset = page.Offset
	}

	for i := range bases {
		tables, err := a.tables(ctx, creds, bases[i].ID)
		if err != nil {
			return nil, err
		}
		bases[i].Tables = tables
	}
	return bases, nil
}

func (a *Airtable) tables(ctx context.Context, creds *model.CredentialBundle, baseID string) ([]Table, error) {
	resp, err := doAuthed(ctx, a.httpClient, http.MethodGet, a.apiBase+"/v0/meta/bases/"+baseID+"/tables", creds.AccessToken, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readUpstreamError(resp, "list tables")
	}

	var page struct {
		Tables []Table `json:"tables"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, err
	}
	return page.Tables, nil
}

// ListItems flattens bases and tables into integration items, with each
// table parented to its base.
func (a *Airtable) ListItems(ctx context.Context, creds *model.CredentialBundle) ([]model.IntegrationItem, error) {
	bases, err := a.Bases(ctx, creds)
	if err != nil {
		return nil, err
	}

	var items []model.IntegrationItem
	for _, base := range bases {
		items = append(items, model.IntegrationItem{
			ID:   base.ID,
			Type: "base",
			Name: base.Name,
		})
		for _, table := range base.Tables {
			items = append(items, model.IntegrationItem{
				ID:       table.ID,
				Type:     "table",
				Name:     table.Name,
				ParentID: base.ID,
			})
		}
	}
	return items, nil
}

// CreateRecord inserts a record into the given table and returns it normalized.
func (a *Airtable) CreateRecord(ctx context.Context, creds *model.CredentialBundle, baseID, tableID string, fields map[string]any) (*model.IntegrationItem, error) {
	payload := map[string]any{"fields": fields}
	resp, err := doAuthed(ctx, a.httpClient, http.MethodPost, a.apiBase+"/v0/"+baseID+"/"+tableID, creds.AccessToken, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readUpstreamError(resp, "create record")
	}

	var record struct {
		ID          string         `json:"id"`
		CreatedTime string         `json:"createdTime"`
		Fields      map[string]any `json:"fields"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, err
	}

	name, _ := record.Fields["Name"].(string)
	if name == "" {
		name = record.ID
	}
	return &model.IntegrationItem{
		ID:           record.ID,
		Type:         "record",
		Name:         name,
		CreationTime: record.CreatedTime,
		ParentID:     tableID,
		Properties:   record.Fields,
	}, nil
}
