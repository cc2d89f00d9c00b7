package model

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRecordEncodeDecode(t *testing.T) {
	rec := StateRecord{State: "tok-123", UserID: "u1", OrgID: "o1"}

	decoded, err := DecodeStateBlob(rec.Encode())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", decoded.State)
	assert.Equal(t, "u1", decoded.UserID)
	assert.Equal(t, "o1", decoded.OrgID)
}

func TestStateRecordEncodeOmitsVerifier(t *testing.T) {
	rec := StateRecord{State: "tok", UserID: "u", OrgID: "o", CodeVerifier: "secret-verifier"}

	raw, err := base64.URLEncoding.DecodeString(rec.Encode())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-verifier")

	decoded, err := DecodeStateBlob(rec.Encode())
	require.NoError(t, err)
	assert.Empty(t, decoded.CodeVerifier)
}

func TestDecodeStateBlobInvalid(t *testing.T) {
	for _, blob := range []string{"", "not-base64!!", base64.URLEncoding.EncodeToString([]byte("not json"))} {
		_, err := DecodeStateBlob(blob)
		assert.ErrorIs(t, err, ErrInvalidStateBlob, "blob %q", blob)
	}
}

func TestParseCredentialBundle(t *testing.T) {
	bundle, err := ParseCredentialBundle(`{"access_token":"tok","refresh_token":"ref","expires_in":3600}`)
	require.NoError(t, err)
	assert.Equal(t, "tok", bundle.AccessToken)
	assert.Equal(t, "ref", bundle.RefreshToken)
	assert.Equal(t, 3600, bundle.ExpiresIn)

	_, err = ParseCredentialBundle("{broken")
	assert.Error(t, err)
}
