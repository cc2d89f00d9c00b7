package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
server:
  host: 127.0.0.1
  port: 8000
  mode: release
state:
  backend: memory
providers:
  hubspot:
    client_id: hub-id
    client_secret: hub-secret
    redirect_url: http://localhost:8000/integrations/hubspot/oauth2callback
    scopes: [crm.objects.contacts.read]
  airtable:
    client_id: air-id
    client_secret: air-secret
    redirect_url: http://localhost:8000/integrations/airtable/oauth2callback
  notion:
    client_id: not-id
    client_secret: not-secret
    redirect_url: http://localhost:8000/integrations/notion/oauth2callback
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.State.Backend)
	assert.Equal(t, "hub-id", cfg.Providers.HubSpot.ClientID)
	assert.Equal(t, []string{"crm.objects.contacts.read"}, cfg.Providers.HubSpot.Scopes)
}

func TestLoadMissingProviderCredentials(t *testing.T) {
	yaml := `
state:
  backend: memory
providers:
  hubspot:
    client_id: hub-id
`
	_, err := Load(writeConfig(t, yaml))
	require.Error(t, err)

	// every missing field is reported at once
	assert.Contains(t, err.Error(), "providers.hubspot.client_secret")
	assert.Contains(t, err.Error(), "providers.airtable.client_id")
	assert.Contains(t, err.Error(), "providers.notion.redirect_url")
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	cfg.State.Backend = "etcd"
	assert.ErrorContains(t, cfg.Validate(), "state.backend")
}
