package model

import "encoding/json"

// CredentialBundle is the token material obtained from a provider's token
// endpoint. It is cached briefly in the state store and otherwise passed
// around by the caller in serialized form.
type CredentialBundle struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// ParseCredentialBundle deserializes a bundle previously handed to the caller.
func ParseCredentialBundle(raw string) (*CredentialBundle, error) {
	var bundle CredentialBundle
	if err := json.Unmarshal([]byte(raw), &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}
