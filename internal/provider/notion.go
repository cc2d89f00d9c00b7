package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"connecthub/integrations/internal/config"
	"connecthub/integrations/internal/model"
)

const notionVersion = "2022-06-28"

// Notion drives the Notion search API. The token endpoint takes a JSON body
// with HTTP Basic client authentication; Notion has no scope parameter.
type Notion struct {
	cfg        config.ProviderConfig
	httpClient *http.Client

	authURL  string
	tokenURL string
	apiBase  string
}

func NewNotion(cfg config.ProviderConfig) *Notion {
	return &Notion{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		authURL:    "https://api.notion.com/v1/oauth/authorize",
		tokenURL:   "https://api.notion.com/v1/oauth/token",
		apiBase:    "https://api.notion.com",
	}
}

func (n *Notion) Name() string { return "notion" }

func (n *Notion) UsesPKCE() bool { return false }

func (n *Notion) AuthCodeURL(encodedState, _ string) string {
	params := url.Values{
		"client_id":     {n.cfg.ClientID},
		"redirect_uri":  {n.cfg.RedirectURL},
		"response_type": {"code"},
		"owner":         {"user"},
		"state":         {encodedState},
	}
	return n.authURL + "?" + params.Encode()
}

func (n *Notion) ExchangeCode(ctx context.Context, code, _ string) (*model.CredentialBundle, error) {
	payload, _ := json.Marshal(map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": n.cfg.RedirectURL,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.tokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(n.cfg.ClientID, n.cfg.ClientSecret)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	return decodeTokenResponse(resp)
}

type notionObject struct {
	Object         string         `json:"object"` // "page" | "database"
	ID             string         `json:"id"`
	CreatedTime    string         `json:"created_time"`
	LastEditedTime string         `json:"last_edited_time"`
	Parent         notionParent   `json:"parent"`
	Title          []notionText   `json:"title"` // databases carry the title inline
	Properties     map[string]any `json:"properties"`
}

type notionParent struct {
	Type       string `json:"type"`
	PageID     string `json:"page_id"`
	DatabaseID string `json:"database_id"`
}

type notionText struct {
	PlainText string `json:"plain_text"`
}

// ListItems searches the workspace for every page and database shared with
// the integration.
func (n *Notion) ListItems(ctx context.Context, creds *model.CredentialBundle) ([]model.IntegrationItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiBase+"/v1/search", strings.NewReader("{}"))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", notionVersion)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readUpstreamError(resp, "search workspace")
	}

	var page struct {
		Results []notionObject `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, err
	}

	items := make([]model.IntegrationItem, 0, len(page.Results))
	for _, obj := range page.Results {
		items = append(items, itemFromNotionObject(obj))
	}
	return items, nil
}

func itemFromNotionObject(obj notionObject) model.IntegrationItem {
	name := notionObjectName(obj)
	if name == "" {
		name = obj.ID
	}

	parentID := ""
	switch obj.Parent.Type {
	case "page_id":
		parentID = obj.Parent.PageID
	case "database_id":
		parentID = obj.Parent.DatabaseID
	}

	return model.IntegrationItem{
		ID:               obj.ID,
		Type:             obj.Object,
		Name:             name,
		CreationTime:     obj.CreatedTime,
		LastModifiedTime: obj.LastEditedTime,
		ParentID:         parentID,
		Properties:       obj.Properties,
	}
}

// notionObjectName extracts the display title: databases carry it inline,
// pages bury it inside the property typed "title".
func notionObjectName(obj notionObject) string {
	if len(obj.Title) > 0 {
		return joinPlainText(obj.Title)
	}
	for _, prop := range obj.Properties {
		m, ok := prop.(map[string]any)
		if !ok || m["type"] != "title" {
			continue
		}
		parts, ok := m["title"].([]any)
		if !ok {
			continue
		}
		var texts []notionText
		for _, part := range parts {
			pm, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if plain, ok := pm["plain_text"].(string); ok {
				texts = append(texts, notionText{PlainText: plain})
			}
		}
		return joinPlainText(texts)
	}
	return ""
}

func joinPlainText(texts []notionText) string {
	var b strings.Builder
	for _, t := range texts {
		b.WriteString(t.PlainText)
	}
	return strings.TrimSpace(b.String())
}
