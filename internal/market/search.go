package market

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"market-data-proxy/internal/store"
)

const unresolvedMessage = "Symbol search not yet implemented. Please provide security ID manually."

type SecurityIDLookup interface {
	LookupSecurityID(ctx context.Context, symbol string) (*store.SecurityID, error)
}

type SearchRequest struct {
	ClientID    string `json:"clientId"`
	AccessToken string `json:"accessToken"`
	Symbol      string `json:"symbol"`
}

type SearchResult struct {
	Success         bool   `json:"success"`
	Symbol          string `json:"symbol"`
	Resolved        bool   `json:"resolved"`
	SecurityID      string `json:"securityId,omitempty"`
	ExchangeSegment string `json:"exchangeSegment,omitempty"`
	Message         string `json:"message,omitempty"`
}

// Resolver answers symbol searches from the static mapping table only.
// Anything not in the table is reported as unresolved.
type Resolver struct {
	lookup SecurityIDLookup
}

func NewResolver(lookup SecurityIDLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

func (r *Resolver) Resolve(ctx context.Context, req SearchRequest) (SearchResult, error) {
	var missing []string
	if strings.TrimSpace(req.ClientID) == "" {
		missing = append(missing, "clientId")
	}
	if strings.TrimSpace(req.AccessToken) == "" {
		missing = append(missing, "accessToken")
	}
	if strings.TrimSpace(req.Symbol) == "" {
		missing = append(missing, "symbol")
	}
	if len(missing) > 0 {
		return SearchResult{}, &ValidationError{Missing: missing}
	}

	unresolved := SearchResult{Success: true, Symbol: req.Symbol, Message: unresolvedMessage}
	if r == nil || r.lookup == nil {
		return unresolved, nil
	}
	rec, err := r.lookup.LookupSecurityID(ctx, req.Symbol)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return unresolved, nil
		}
		return SearchResult{}, err
	}
	seg := rec.ExchangeSegment
	if seg == "" {
		seg = DefaultExchangeSegment
	}
	return SearchResult{
		Success:         true,
		Symbol:          req.Symbol,
		Resolved:        true,
		SecurityID:      rec.SecurityID,
		ExchangeSegment: seg,
	}, nil
}
