package market

import (
	"context"
	"strings"
)

type ConnectionRequest struct {
	ClientID    string `json:"clientId"`
	AccessToken string `json:"accessToken"`
}

// ConnectionTester verifies credentials against Dhan and caches the session
// only when Dhan accepts them.
type ConnectionTester struct {
	registry *Registry
	factory  SessionFactory
}

func NewConnectionTester(registry *Registry, factory SessionFactory) *ConnectionTester {
	return &ConnectionTester{registry: registry, factory: factory}
}

func (t *ConnectionTester) Test(ctx context.Context, req ConnectionRequest) (FundLimits, error) {
	var missing []string
	if strings.TrimSpace(req.ClientID) == "" {
		missing = append(missing, "clientId")
	}
	if strings.TrimSpace(req.AccessToken) == "" {
		missing = append(missing, "accessToken")
	}
	if len(missing) > 0 {
		return FundLimits{}, &ValidationError{Reason: "Missing clientId or accessToken", Missing: missing}
	}

	creds := Credentials{ClientID: req.ClientID, AccessToken: req.AccessToken}
	sess := t.factory(creds)
	limits, err := sess.FundLimits(ctx)
	if err != nil {
		return FundLimits{}, err
	}
	t.registry.Put(creds, sess)
	return limits, nil
}
