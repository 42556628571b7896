// Package apikey mints API keys. The raw key is returned once; only its
// bcrypt hash and lookup prefix are persisted.
package apikey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/internal/api/middleware"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const rawPrefix = "bp_"

var ErrInvalidScope = errors.New("invalid scope")

var validScopes = []string{models.ScopeRead, models.ScopeIngest, models.ScopeAnalyze, models.ScopeAdmin}

// Generate creates a key with the given name and scopes. cost is the bcrypt
// cost; zero selects bcrypt.DefaultCost.
func Generate(name string, scopes []string, cost int) (string, *models.APIKey, error) {
	if len(scopes) == 0 {
		return "", nil, fmt.Errorf("%w: at least one scope is required", ErrInvalidScope)
	}
	for _, s := range scopes {
		if !slices.Contains(validScopes, s) {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidScope, s)
		}
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		return "", nil, fmt.Errorf("generate key: %w", err)
	}
	raw := rawPrefix + hex.EncodeToString(secret)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return "", nil, fmt.Errorf("hash key: %w", err)
	}

	now := time.Now().UTC()
	return raw, &models.APIKey{
		ID:        uuid.New(),
		Name:      name,
		KeyHash:   string(hash),
		KeyPrefix: raw[:middleware.KeyPrefixLen],
		Scopes:    slices.Compact(slices.Sorted(slices.Values(scopes))),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
