// ABOUTME: TokenService gRPC endpoint letting sibling backends verify bearer tokens
// ABOUTME: Uses protobuf well-known types so no generated stubs are needed

package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/vimofthevine/underbudget-auth/internal/accounts"
	"github.com/vimofthevine/underbudget-auth/internal/auth"
)

// Full method names of underbudget.auth.v1.TokenService.
const (
	tokenServiceName         = "underbudget.auth.v1.TokenService"
	tokenServiceVerifyMethod = "/" + tokenServiceName + "/Verify"
	tokenServiceWhoAmIMethod = "/" + tokenServiceName + "/WhoAmI"
)

// TokenServiceServer is the server API for TokenService.
type TokenServiceServer interface {
	// Verify checks a bearer token and returns {user_id, jwt_id, expires_at}.
	// It does not require caller authentication.
	Verify(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// WhoAmI returns the account of the authenticated caller.
	WhoAmI(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterTokenServiceServer registers srv on s.
func RegisterTokenServiceServer(s grpc.ServiceRegistrar, srv TokenServiceServer) {
	s.RegisterService(&tokenServiceDesc, srv)
}

var tokenServiceDesc = grpc.ServiceDesc{
	ServiceName: tokenServiceName,
	HandlerType: (*TokenServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Verify", Handler: tokenServiceVerifyHandler},
		{MethodName: "WhoAmI", Handler: tokenServiceWhoAmIHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "underbudget/auth/v1/token.proto",
}

func tokenServiceVerifyHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TokenServiceServer).Verify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: tokenServiceVerifyMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TokenServiceServer).Verify(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func tokenServiceWhoAmIHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TokenServiceServer).WhoAmI(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: tokenServiceWhoAmIMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TokenServiceServer).WhoAmI(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// TokenServiceClient is the client API for TokenService.
type TokenServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewTokenServiceClient creates a client on cc.
func NewTokenServiceClient(cc grpc.ClientConnInterface) *TokenServiceClient {
	return &TokenServiceClient{cc: cc}
}

// Verify calls TokenService.Verify.
func (c *TokenServiceClient) Verify(ctx context.Context, token string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, tokenServiceVerifyMethod, wrapperspb.String(token), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// WhoAmI calls TokenService.WhoAmI.
func (c *TokenServiceClient) WhoAmI(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, tokenServiceWhoAmIMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type tokenServiceServer struct {
	verifier *auth.Verifier
	accounts *accounts.Service
	logger   *slog.Logger
}

func newTokenServiceServer(verifier *auth.Verifier, svc *accounts.Service, logger *slog.Logger) *tokenServiceServer {
	return &tokenServiceServer{
		verifier: verifier,
		accounts: svc,
		logger:   logger.With("component", "token-service"),
	}
}

func (s *tokenServiceServer) Verify(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	p, err := s.verifier.Verify(ctx, req.GetValue())
	if err != nil {
		s.logger.Warn("token verification rejected", "reason", auth.Reason(err))
		return nil, auth.StatusError(err)
	}

	out, err := structpb.NewStruct(map[string]any{
		"user_id":    p.UserID,
		"jwt_id":     p.TokenID,
		"expires_at": p.ExpiresAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}

func (s *tokenServiceServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	u, err := s.accounts.WhoAmI(ctx, auth.FromContext(ctx))
	if err != nil {
		return nil, grpcError(err)
	}

	out, err := structpb.NewStruct(map[string]any{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}

// grpcError maps account errors to status codes.
func grpcError(err error) error {
	switch {
	case errors.Is(err, accounts.ErrUnauthenticated), errors.Is(err, accounts.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "unauthenticated")
	case errors.Is(err, accounts.ErrUnavailable):
		return status.Error(codes.Unavailable, "service unavailable")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
