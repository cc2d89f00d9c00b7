// Package provider implements the platform-specific halves of the OAuth2
// connectors: building authorization URLs, exchanging authorization codes,
// and mapping each platform's REST objects into the shared IntegrationItem shape.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"connecthub/integrations/internal/model"
)

// Provider is the capability set a platform must supply so the generic
// connector can drive the authorization-code flow and list objects.
type Provider interface {
	Name() string

	// UsesPKCE reports whether the platform requires a PKCE code challenge
	// on the authorization request.
	UsesPKCE() bool

	// AuthCodeURL builds the provider authorization URL embedding the encoded
	// state blob. codeChallenge is ignored by providers without PKCE.
	AuthCodeURL(encodedState, codeChallenge string) string

	// ExchangeCode redeems an authorization code at the token endpoint.
	// codeVerifier is empty for providers without PKCE.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*model.CredentialBundle, error)

	// ListItems fetches the provider's object collection and normalizes it.
	ListItems(ctx context.Context, creds *model.CredentialBundle) ([]model.IntegrationItem, error)
}

// UpstreamError carries a non-success response from a provider endpoint.
// Handlers surface it as a client error with the provider's own detail text.
type UpstreamError struct {
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Detail)
}

// decodeTokenResponse parses a token endpoint response into a credential
// bundle, extracting the provider's error_description/error fields on failure.
func decodeTokenResponse(resp *http.Response) (*model.CredentialBundle, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		detail := string(body)
		var oauthErr struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(body, &oauthErr) == nil {
			if oauthErr.ErrorDescription != "" {
				detail = oauthErr.ErrorDescription
			} else if oauthErr.Error != "" {
				detail = oauthErr.Error
			}
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Detail: "token exchange failed: " + detail}
	}

	var bundle model.CredentialBundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}
	if bundle.AccessToken == "" {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Detail: "token response missing access_token"}
	}
	return &bundle, nil
}

// doAuthed issues a bearer-authenticated request with an optional JSON payload.
func doAuthed(ctx context.Context, client *http.Client, method, url, accessToken string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return client.Do(req)
}

// readUpstreamError drains the response body into an UpstreamError.
func readUpstreamError(resp *http.Response, action string) error {
	body, _ := io.ReadAll(resp.Body)
	return &UpstreamError{
		StatusCode: resp.StatusCode,
		Detail:     fmt.Sprintf("failed to %s: %s", action, string(body)),
	}
}
