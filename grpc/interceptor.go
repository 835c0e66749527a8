package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// VerifyTokenFunc verifies an auth token string and returns the user ID
// it was issued for.  The web package's JWT verifier satisfies this.
type VerifyTokenFunc func(tokenString string) (loggedInUserId string, token any, err error)

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	// Config holds the metadata key configuration.
	*Config

	// VerifyToken, when set, lets the interceptor authenticate requests
	// that carry a JWT in the auth token metadata instead of a
	// pre-resolved user ID.
	VerifyToken VerifyTokenFunc

	// RequireAuth when true rejects unauthenticated requests.
	// When false, requests proceed but UserIDFromContext returns empty.
	RequireAuth bool

	// PublicMethods is a set of method names that don't require auth.
	// Only used when RequireAuth is true.
	// Keys should be full method names like "/package.Service/Method".
	PublicMethods map[string]bool
}

// DefaultInterceptorConfig returns a config that requires auth for all methods.
func DefaultInterceptorConfig() *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
}

// NewPublicMethodsConfig creates a config with the specified public methods.
func NewPublicMethodsConfig(publicMethods ...string) *InterceptorConfig {
	config := DefaultInterceptorConfig()
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated requests.
func OptionalAuthConfig() *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		RequireAuth:   false,
		PublicMethods: make(map[string]bool),
	}
}

// UnaryAuthInterceptor returns a gRPC unary interceptor that resolves the
// authenticated user from metadata.  A JWT in the auth token metadata is
// verified through config.VerifyToken and the resolved user ID is made
// available to handlers via UserIDFromContext.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config = ensureInterceptorConfig(config)

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, userID := resolveUser(ctx, config)

		if config.RequireAuth && !config.PublicMethods[info.FullMethod] {
			if userID == "" {
				return nil, status.Error(codes.Unauthenticated, "authentication required")
			}
		}

		return handler(ctx, req)
	}
}

// StreamAuthInterceptor returns a gRPC stream interceptor that resolves
// the authenticated user from metadata.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	config = ensureInterceptorConfig(config)

	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		_, userID := resolveUser(ss.Context(), config)

		if config.RequireAuth && !config.PublicMethods[info.FullMethod] {
			if userID == "" {
				return status.Error(codes.Unauthenticated, "authentication required")
			}
		}

		return handler(srv, ss)
	}
}

func ensureInterceptorConfig(config *InterceptorConfig) *InterceptorConfig {
	if config == nil {
		config = DefaultInterceptorConfig()
	}
	if config.Config == nil {
		config.Config = DefaultConfig()
	}
	config.Config.EnsureDefaults()
	return config
}

// resolveUser extracts the user ID from the incoming metadata, falling
// back to JWT verification when only a token was sent.  When the token
// verifies, the user ID is stamped into the incoming metadata so
// downstream handlers see it through UserIDFromContext.
func resolveUser(ctx context.Context, config *InterceptorConfig) (context.Context, string) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx, ""
	}

	if values := md.Get(config.Config.MetadataKeyUserID); len(values) > 0 && values[0] != "" {
		return ctx, values[0]
	}

	if config.VerifyToken != nil {
		for _, raw := range md.Get(config.Config.MetadataKeyAuthToken) {
			tokenString := strings.TrimPrefix(raw, "Bearer ")
			userID, _, err := config.VerifyToken(tokenString)
			if err == nil && userID != "" {
				md = md.Copy()
				md.Set(config.Config.MetadataKeyUserID, userID)
				return metadata.NewIncomingContext(ctx, md), userID
			}
		}
	}

	return ctx, ""
}
