package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connecthub/integrations/internal/config"
)

func testAirtable(serverURL string) *Airtable {
	a := NewAirtable(config.ProviderConfig{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8000/integrations/airtable/oauth2callback",
		Scopes:       []string{"data.records:read", "schema.bases:read"},
	})
	if serverURL != "" {
		a.tokenURL = serverURL + "/oauth2/v1/token"
		a.apiBase = serverURL
	}
	return a
}

func TestAirtableAuthCodeURLIncludesPKCE(t *testing.T) {
	a := testAirtable("")
	require.True(t, a.UsesPKCE())

	parsed, err := url.Parse(a.AuthCodeURL("blob", "challenge-value"))
	require.NoError(t, err)

	q := parsed.Query()
	assert.Equal(t, "challenge-value", q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "user", q.Get("owner"))
	assert.Equal(t, "blob", q.Get("state"))
	assert.Equal(t, "data.records:read schema.bases:read", q.Get("scope"))
}

func TestAirtableExchangeCodeSendsBasicAuthAndVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "cid", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-verifier", r.PostForm.Get("code_verifier"))
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))

		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "tok",
			"refresh_token": "ref",
			"expires_in":    7200,
		})
	}))
	defer srv.Close()

	a := testAirtable(srv.URL)
	bundle, err := a.ExchangeCode(context.Background(), "the-code", "the-verifier")
	require.NoError(t, err)
	assert.Equal(t, "tok", bundle.AccessToken)
	assert.Equal(t, 7200, bundle.ExpiresIn)
}

func TestAirtableListItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v0/meta/bases":
			json.NewEncoder(w).Encode(map[string]any{
				"bases": []map[string]any{{"id": "app1", "name": "CRM"}},
			})
		case "/v0/meta/bases/app1/tables":
			json.NewEncoder(w).Encode(map[string]any{
				"tables": []map[string]any{
					{"id": "tbl1", "name": "Contacts"},
					{"id": "tbl2", "name": "Deals"},
				},
			})
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	a := testAirtable(srv.URL)
	items, err := a.ListItems(context.Background(), testCreds())
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "base", items[0].Type)
	assert.Equal(t, "CRM", items[0].Name)
	assert.Empty(t, items[0].ParentID)

	assert.Equal(t, "table", items[1].Type)
	assert.Equal(t, "Contacts", items[1].Name)
	assert.Equal(t, "app1", items[1].ParentID)
	assert.Equal(t, "app1", items[2].ParentID)
}

func TestAirtableListItemsPaginates(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v0/meta/bases" && r.URL.Query().Get("offset") == "":
			calls++
			json.NewEncoder(w).Encode(map[string]any{
				"bases":  []map[string]any{{"id": "app1", "name": "First"}},
				"offset": "next",
			})
		case r.URL.Path == "/v0/meta/bases" && r.URL.Query().Get("offset") == "next":
			calls++
			json.NewEncoder(w).Encode(map[string]any{
				"bases": []map[string]any{{"id": "app2", "name": "Second"}},
			})
		default:
			json.NewEncoder(w).Encode(map[string]any{"tables": []map[string]any{}})
		}
	}))
	defer srv.Close()

	a := testAirtable(srv.URL)
	bases, err := a.Bases(context.Background(), testCreds())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, bases, 2)
	assert.Equal(t, "Second", bases[1].Name)
}

func TestAirtableCreateRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/app1/tbl1", r.URL.Path)

		var payload struct {
			Fields map[string]any `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Ada Lovelace", payload.Fields["Name"])

		json.NewEncoder(w).Encode(map[string]any{
			"id":          "rec1",
			"createdTime": "2024-03-01T00:00:00Z",
			"fields":      payload.Fields,
		})
	}))
	defer srv.Close()

	a := testAirtable(srv.URL)
	item, err := a.CreateRecord(context.Background(), testCreds(), "app1", "tbl1", map[string]any{"Name": "Ada Lovelace"})
	require.NoError(t, err)

	assert.Equal(t, "rec1", item.ID)
	assert.Equal(t, "record", item.Type)
	assert.Equal(t, "Ada Lovelace", item.Name)
	assert.Equal(t, "tbl1", item.ParentID)
	assert.Equal(t, "2024-03-01T00:00:00Z", item.CreationTime)
}

func TestAirtableListItemsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"type":"INVALID_PERMISSIONS"}}`))
	}))
	defer srv.Close()

	a := testAirtable(srv.URL)
	_, err := a.ListItems(context.Background(), testCreds())

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusForbidden, upstream.StatusCode)
}
