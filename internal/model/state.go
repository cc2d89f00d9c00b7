package model

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// StateRecord pins an in-flight OAuth2 authorization to the caller session.
// The serialized record is stored server-side under the per-provider state key;
// an encoded copy (without the PKCE verifier) round-trips through the provider
// as the `state` query parameter.
type StateRecord struct {
	State        string `json:"state"`
	UserID       string `json:"user_id"`
	OrgID        string `json:"org_id"`
	CodeVerifier string `json:"code_verifier,omitempty"`
}

var ErrInvalidStateBlob = errors.New("invalid state parameter")

// Encode serializes the record and base64url-encodes it for use as the
// provider-facing state blob. The PKCE verifier never leaves the server.
func (r StateRecord) Encode() string {
	public := StateRecord{State: r.State, UserID: r.UserID, OrgID: r.OrgID}
	data, _ := json.Marshal(public)
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeStateBlob reverses Encode. Any decode or unmarshal failure is reported
// as ErrInvalidStateBlob; callers treat it as a client error.
func DecodeStateBlob(blob string) (*StateRecord, error) {
	data, err := base64.URLEncoding.DecodeString(blob)
	if err != nil {
		return nil, ErrInvalidStateBlob
	}
	var rec StateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, ErrInvalidStateBlob
	}
	return &rec, nil
}
