// ABOUTME: gRPC interceptor for authenticating requests with bearer tokens in metadata
// ABOUTME: Populates the principal in context and maps verification failures to status codes

package auth

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// logAuthFailure logs an authentication failure with structured context.
func logAuthFailure(logger *slog.Logger, ctx context.Context, reason string, attrs ...any) {
	if logger == nil {
		return
	}
	baseAttrs := []any{"reason", reason}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		baseAttrs = append(baseAttrs, "peer_addr", p.Addr.String())
	}
	baseAttrs = append(baseAttrs, attrs...)
	logger.Warn("auth failure", baseAttrs...)
}

// UnaryInterceptor returns a gRPC unary interceptor that authenticates requests
// from the "authorization" metadata key. Methods listed in publicMethods
// (full method names) skip authentication.
func UnaryInterceptor(verifier Authenticator, logger *slog.Logger, publicMethods ...string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if slices.Contains(publicMethods, info.FullMethod) {
			return handler(ctx, req)
		}

		principal, err := authenticateMetadata(ctx, verifier, logger, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(WithPrincipal(ctx, principal), req)
	}
}

func authenticateMetadata(ctx context.Context, verifier Authenticator, logger *slog.Logger, method string) (*Principal, error) {
	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("authorization"); len(vals) > 0 {
			header = vals[0]
		}
	}

	token, reason := extractBearerToken(header)
	if reason != "" {
		logAuthFailure(logger, ctx, reason, "method", method)
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	principal, err := verifier.Verify(ctx, token)
	if err != nil {
		logAuthFailure(logger, ctx, Reason(err), "method", method, "error", err)
		return nil, StatusError(err)
	}
	return principal, nil
}

// StatusError maps a verification error to a gRPC status without revealing
// which check failed.
func StatusError(err error) error {
	if errors.Is(err, ErrUnavailable) {
		return status.Error(codes.Unavailable, "token registry unavailable")
	}
	return status.Error(codes.Unauthenticated, "unauthenticated")
}
