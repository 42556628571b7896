package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	apiKeyIDKey     contextKey = "api_key_id"
	apiKeyNameKey   contextKey = "api_key_name"
	keyPrefixKey    contextKey = "key_prefix"
	apiKeyScopesKey contextKey = "api_key_scopes"
)

func setAPIKey(ctx context.Context, id uuid.UUID, name string) context.Context {
	ctx = context.WithValue(ctx, apiKeyIDKey, id)
	return context.WithValue(ctx, apiKeyNameKey, name)
}

// SetAPIKey stores the authenticated key identity. Exposed for handler tests.
func SetAPIKey(ctx context.Context, id uuid.UUID, name string) context.Context {
	return setAPIKey(ctx, id, name)
}

// GetAPIKeyID returns the ID of the key that authenticated the request.
func GetAPIKeyID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(apiKeyIDKey).(uuid.UUID)
	return id, ok
}

// GetAPIKeyName returns the display name of the authenticating key. It is
// recorded as the actor on alert acknowledgements.
func GetAPIKeyName(r *http.Request) string {
	name, _ := r.Context().Value(apiKeyNameKey).(string)
	return name
}

func setKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

func setScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, apiKeyScopesKey, scopes)
}

func getScopes(r *http.Request) []string {
	scopes, _ := r.Context().Value(apiKeyScopesKey).([]string)
	return scopes
}

// ExportedKeyPrefixKey returns the context key for key_prefix (for testing).
func ExportedKeyPrefixKey() contextKey {
	return keyPrefixKey
}
