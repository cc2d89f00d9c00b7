package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"connecthub/integrations/internal/model"
	"connecthub/integrations/internal/provider"
	"connecthub/integrations/internal/repository"
	"connecthub/integrations/pkg/crypto"
)

const (
	stateTTL      = 10 * time.Minute
	credentialTTL = time.Hour

	stateTokenBytes   = 32
	codeVerifierBytes = 32
)

// Connector drives the OAuth2 authorization-code flow for one provider,
// keeping the CSRF-state protocol in one place while the provider supplies
// the platform-specific endpoints.
type Connector struct {
	provider provider.Provider
	store    repository.StateStore
	logger   *zap.Logger
}

func NewConnector(p provider.Provider, store repository.StateStore, logger *zap.Logger) *Connector {
	return &Connector{
		provider: p,
		store:    store,
		logger:   logger.With(zap.String("provider", p.Name())),
	}
}

func (c *Connector) Provider() provider.Provider { return c.provider }

func (c *Connector) stateKey(orgID, userID string) string {
	return fmt.Sprintf("%s_state:%s:%s", c.provider.Name(), orgID, userID)
}

func (c *Connector) credentialsKey(orgID, userID string) string {
	return fmt.Sprintf("%s_credentials:%s:%s", c.provider.Name(), orgID, userID)
}

// Authorize generates the CSRF state, persists it keyed by (org, user), and
// returns the provider authorization URL carrying the encoded state blob.
func (c *Connector) Authorize(ctx context.Context, userID, orgID string) (string, error) {
	stateToken, err := crypto.GenerateRandomString(stateTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}

	rec := model.StateRecord{State: stateToken, UserID: userID, OrgID: orgID}

	codeChallenge := ""
	if c.provider.UsesPKCE() {
		verifier, err := crypto.GenerateRandomString(codeVerifierBytes)
		if err != nil {
			return "", fmt.Errorf("generate code verifier: %w", err)
		}
		rec.CodeVerifier = verifier
		codeChallenge = crypto.CodeChallengeS256(verifier)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal state record: %w", err)
	}
	if err := c.store.Set(ctx, c.stateKey(orgID, userID), data, stateTTL); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}

	c.logger.Info("authorization started",
		zap.String("user_id", userID),
		zap.String("org_id", orgID))

	return c.provider.AuthCodeURL(rec.Encode(), codeChallenge), nil
}

// Callback validates the provider redirect against the persisted state,
// exchanges the code for tokens, and caches the credential bundle.
//
// The token exchange and the state-key deletion run concurrently; neither
// depends on the other's outcome. If the exchange fails the state is already
// consumed and the caller must restart from Authorize.
func (c *Connector) Callback(ctx context.Context, code, encodedState, providerErr string) error {
	if providerErr != "" {
		return fmt.Errorf("%w: %s", ErrProviderRejected, providerErr)
	}
	if code == "" || encodedState == "" {
		return ErrMissingParams
	}

	rec, err := model.DecodeStateBlob(encodedState)
	if err != nil {
		return ErrInvalidState
	}
	if rec.UserID == "" || rec.OrgID == "" {
		return fmt.Errorf("%w: missing user_id or org_id", ErrInvalidState)
	}

	stateKey := c.stateKey(rec.OrgID, rec.UserID)
	saved, err := c.store.Get(ctx, stateKey)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if saved == nil {
		return ErrStateNotFound
	}

	var savedRec model.StateRecord
	if err := json.Unmarshal(saved, &savedRec); err != nil {
		return fmt.Errorf("corrupt state record: %w", err)
	}
	if rec.State != savedRec.State {
		c.logger.Warn("state mismatch on callback",
			zap.String("user_id", rec.UserID),
			zap.String("org_id", rec.OrgID))
		return ErrStateMismatch
	}

	deleted := make(chan error, 1)
	go func() {
		deleted <- c.store.Delete(ctx, stateKey)
	}()

	bundle, exchangeErr := c.provider.ExchangeCode(ctx, code, savedRec.CodeVerifier)
	if err := <-deleted; err != nil {
		c.logger.Warn("failed to delete state key", zap.Error(err))
	}
	if exchangeErr != nil {
		c.logger.Error("token exchange failed",
			zap.String("user_id", rec.UserID),
			zap.String("org_id", rec.OrgID),
			zap.Error(exchangeErr))
		return exchangeErr
	}

	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	if err := c.store.Set(ctx, c.credentialsKey(rec.OrgID, rec.UserID), data, credentialTTL); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}

	c.logger.Info("authorization completed",
		zap.String("user_id", rec.UserID),
		zap.String("org_id", rec.OrgID))
	return nil
}

// GetCredentials consumes the cached bundle for (org, user). The key is
// atomically taken from the store, so a second call finds nothing.
func (c *Connector) GetCredentials(ctx context.Context, userID, orgID string) (*model.CredentialBundle, error) {
	data, err := c.store.Take(ctx, c.credentialsKey(orgID, userID))
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if data == nil {
		return nil, ErrCredentialsNotFound
	}

	var bundle model.CredentialBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, ErrCredentialsCorrupt
	}
	if bundle.AccessToken == "" {
		return nil, ErrCredentialsInvalid
	}

	c.logger.Info("credentials consumed",
		zap.String("user_id", userID),
		zap.String("org_id", orgID))
	return &bundle, nil
}

// LoadItems lists the provider's objects using a caller-held bundle.
func (c *Connector) LoadItems(ctx context.Context, rawCreds string) ([]model.IntegrationItem, error) {
	bundle, err := model.ParseCredentialBundle(rawCreds)
	if err != nil || bundle.AccessToken == "" {
		return nil, ErrMalformedCredentials
	}
	return c.provider.ListItems(ctx, bundle)
}
