package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"connecthub/integrations/internal/model"
	"connecthub/integrations/internal/provider"
	"connecthub/integrations/internal/service"
	"connecthub/integrations/pkg/response"
)

// completionPage tells the user's browser window the flow is finished.
const completionPage = `<html>
    <head><title>Authorization Complete</title></head>
    <body>
        <h2>Authorization Complete</h2>
        <p>You can close this window and return to the application.</p>
        <script>
            window.close();
        </script>
    </body>
</html>`

// IntegrationHandler exposes the OAuth2 connector and resource-proxy routes.
// The generic flow handlers are parameterized by provider key; the HubSpot
// contact CRUD and Airtable record routes go through the typed providers.
type IntegrationHandler struct {
	connectors map[string]*service.Connector
	hubspot    *provider.HubSpot
	airtable   *provider.Airtable
}

func NewIntegrationHandler(connectors map[string]*service.Connector, hubspot *provider.HubSpot, airtable *provider.Airtable) *IntegrationHandler {
	return &IntegrationHandler{
		connectors: connectors,
		hubspot:    hubspot,
		airtable:   airtable,
	}
}

func (h *IntegrationHandler) connector(c *gin.Context, key string) *service.Connector {
	conn, ok := h.connectors[key]
	if !ok {
		response.NotFound(c, "unknown provider")
		return nil
	}
	return conn
}

// Authorize starts the flow and returns the provider authorization URL.
func (h *IntegrationHandler) Authorize(providerKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn := h.connector(c, providerKey)
		if conn == nil {
			return
		}

		userID := c.PostForm("user_id")
		orgID := c.PostForm("org_id")
		if userID == "" || orgID == "" {
			response.BadRequest(c, "missing user_id or org_id")
			return
		}

		authURL, err := conn.Authorize(c.Request.Context(), userID, orgID)
		if err != nil {
			response.InternalError(c, "failed to generate authorization URL")
			return
		}
		response.Success(c, gin.H{"authorization_url": authURL})
	}
}

// Callback handles the provider redirect and renders the completion page.
func (h *IntegrationHandler) Callback(providerKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn := h.connector(c, providerKey)
		if conn == nil {
			return
		}

		err := conn.Callback(c.Request.Context(), c.Query("code"), c.Query("state"), c.Query("error"))
		if err != nil {
			writeFlowError(c, err)
			return
		}

		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(completionPage))
	}
}

// Credentials returns the cached bundle and deletes it from the store.
func (h *IntegrationHandler) Credentials(providerKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn := h.connector(c, providerKey)
		if conn == nil {
			return
		}

		userID := c.PostForm("user_id")
		orgID := c.PostForm("org_id")
		if userID == "" || orgID == "" {
			response.BadRequest(c, "missing user_id or org_id")
			return
		}

		bundle, err := conn.GetCredentials(c.Request.Context(), userID, orgID)
		if err != nil {
			writeFlowError(c, err)
			return
		}
		response.Success(c, bundle)
	}
}

// Load lists the provider's objects as normalized integration items.
func (h *IntegrationHandler) Load(providerKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn := h.connector(c, providerKey)
		if conn == nil {
			return
		}

		items, err := conn.LoadItems(c.Request.Context(), c.PostForm("credentials"))
		if err != nil {
			writeFlowError(c, err)
			return
		}
		response.Success(c, items)
	}
}

func (h *IntegrationHandler) CreateContact(c *gin.Context) {
	creds, ok := parseCredentials(c)
	if !ok {
		return
	}
	data, ok := parseContactData(c)
	if !ok {
		return
	}

	item, err := h.hubspot.CreateContact(c.Request.Context(), creds, data)
	if err != nil {
		writeFlowError(c, err)
		return
	}
	response.Success(c, item)
}

func (h *IntegrationHandler) GetContact(c *gin.Context) {
	creds, ok := parseCredentials(c)
	if !ok {
		return
	}
	contactID := c.PostForm("contact_id")
	if contactID == "" {
		response.BadRequest(c, "missing contact_id")
		return
	}

	item, err := h.hubspot.GetContact(c.Request.Context(), creds, contactID)
	if err != nil {
		writeFlowError(c, err)
		return
	}
	response.Success(c, item)
}

func (h *IntegrationHandler) UpdateContact(c *gin.Context) {
	creds, ok := parseCredentials(c)
	if !ok {
		return
	}
	contactID := c.PostForm("contact_id")
	if contactID == "" {
		response.BadRequest(c, "missing contact_id")
		return
	}
	data, ok := parseContactData(c)
	if !ok {
		return
	}

	item, err := h.hubspot.UpdateContact(c.Request.Context(), creds, contactID, data)
	if err != nil {
		writeFlowError(c, err)
		return
	}
	response.Success(c, item)
}

func (h *IntegrationHandler) DeleteContact(c *gin.Context) {
	creds, ok := parseCredentials(c)
	if !ok {
		return
	}
	contactID := c.PostForm("contact_id")
	if contactID == "" {
		response.BadRequest(c, "missing contact_id")
		return
	}

	if err := h.hubspot.DeleteContact(c.Request.Context(), creds, contactID); err != nil {
		writeFlowError(c, err)
		return
	}
	response.Success(c, gin.H{"success": true})
}

// AirtableBases returns every base visible to the token with its tables.
func (h *IntegrationHandler) AirtableBases(c *gin.Context) {
	creds, ok := parseCredentials(c)
	if !ok {
		return
	}

	bases, err := h.airtable.Bases(c.Request.Context(), creds)
	if err != nil {
		writeFlowError(c, err)
		return
	}
	response.Success(c, gin.H{"bases": bases})
}

func (h *IntegrationHandler) CreateAirtableRecord(c *gin.Context) {
	creds, ok := parseCredentials(c)
	if !ok {
		return
	}
	baseID := c.PostForm("base_id")
	tableID := c.PostForm("table_id")
	if baseID == "" || tableID == "" {
		response.BadRequest(c, "missing base_id or table_id")
		return
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(c.PostForm("record_data")), &fields); err != nil {
		response.BadRequest(c, "invalid record_data payload")
		return
	}

	item, err := h.airtable.CreateRecord(c.Request.Context(), creds, baseID, tableID, fields)
	if err != nil {
		writeFlowError(c, err)
		return
	}
	response.Success(c, item)
}

func parseCredentials(c *gin.Context) (*model.CredentialBundle, bool) {
	bundle, err := model.ParseCredentialBundle(c.PostForm("credentials"))
	if err != nil || bundle.AccessToken == "" {
		response.BadRequest(c, service.ErrMalformedCredentials.Error())
		return nil, false
	}
	return bundle, true
}

func parseContactData(c *gin.Context) (model.ContactData, bool) {
	var data model.ContactData
	if err := json.Unmarshal([]byte(c.PostForm("contact_data")), &data); err != nil {
		response.BadRequest(c, "invalid contact_data payload")
		return model.ContactData{}, false
	}
	return data, true
}

// writeFlowError maps the service error taxonomy onto HTTP statuses: caller
// input and upstream provider errors are 400s, consumption misses 404s,
// everything else (transport, corrupt store data) a 500.
func writeFlowError(c *gin.Context, err error) {
	var upstream *provider.UpstreamError
	switch {
	case errors.Is(err, service.ErrProviderRejected),
		errors.Is(err, service.ErrMissingParams),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrStateNotFound),
		errors.Is(err, service.ErrStateMismatch),
		errors.Is(err, service.ErrMalformedCredentials):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrCredentialsNotFound),
		errors.Is(err, service.ErrCredentialsInvalid):
		response.NotFound(c, err.Error())
	case errors.As(err, &upstream):
		response.BadRequest(c, upstream.Detail)
	default:
		response.InternalError(c, err.Error())
	}
}
