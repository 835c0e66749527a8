// Package grpc provides authentication context utilities for passing
// the hub's signed-in user between HTTP handlers and gRPC services via
// metadata.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// Default metadata keys for authentication context.
// These can be customized via Config if needed.
const (
	// DefaultMetadataKeyUserID is the default gRPC metadata key for the authenticated user ID
	DefaultMetadataKeyUserID = "x-user-id"

	// DefaultMetadataKeyAuthToken is the default gRPC metadata key carrying the hub's JWT
	DefaultMetadataKeyAuthToken = "authorization"
)

// Config holds the metadata key configuration for auth context.
type Config struct {
	// MetadataKeyUserID is the gRPC metadata key for the authenticated user ID.
	// Defaults to "x-user-id".
	MetadataKeyUserID string

	// MetadataKeyAuthToken is the gRPC metadata key the interceptor reads the
	// hub's JWT from.  Defaults to "authorization".
	MetadataKeyAuthToken string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKeyUserID:    DefaultMetadataKeyUserID,
		MetadataKeyAuthToken: DefaultMetadataKeyAuthToken,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyUserID == "" {
		c.MetadataKeyUserID = DefaultMetadataKeyUserID
	}
	if c.MetadataKeyAuthToken == "" {
		c.MetadataKeyAuthToken = DefaultMetadataKeyAuthToken
	}
}

// UserIDFromContext extracts the authenticated user ID from the gRPC context metadata.
// Returns empty string if no user is authenticated.
func UserIDFromContext(ctx context.Context) string {
	return UserIDFromContextWithConfig(ctx, nil)
}

// UserIDFromContextWithConfig extracts the authenticated user ID using the specified config.
func UserIDFromContextWithConfig(ctx context.Context, config *Config) string {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	if values := md.Get(config.MetadataKeyUserID); len(values) > 0 {
		return values[0]
	}

	return ""
}

// UserIDToOutgoingContext adds the user ID to outgoing gRPC context metadata.
func UserIDToOutgoingContext(ctx context.Context, userID string) context.Context {
	return UserIDToOutgoingContextWithKey(ctx, userID, DefaultMetadataKeyUserID)
}

// UserIDToOutgoingContextWithKey adds the user ID to outgoing gRPC context metadata with a custom key.
func UserIDToOutgoingContextWithKey(ctx context.Context, userID string, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, key, userID)
}

// AuthTokenToOutgoingContext adds the hub's JWT to outgoing gRPC context
// metadata so the server side interceptor can verify it.
func AuthTokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return AuthTokenToOutgoingContextWithKey(ctx, token, DefaultMetadataKeyAuthToken)
}

// AuthTokenToOutgoingContextWithKey adds the JWT with a custom key.
func AuthTokenToOutgoingContextWithKey(ctx context.Context, token string, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, key, "Bearer "+token)
}

// IsAuthenticated returns true if there is an authenticated user in the context.
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != ""
}

// IsAuthenticatedWithConfig returns true if there is an authenticated user using the specified config.
func IsAuthenticatedWithConfig(ctx context.Context, config *Config) bool {
	return UserIDFromContextWithConfig(ctx, config) != ""
}
