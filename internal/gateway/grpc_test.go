// ABOUTME: Tests for the TokenService gRPC endpoint over an in-memory listener
// ABOUTME: Verifies public token checks and authenticated WhoAmI calls

package gateway

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func dialTokenService(t *testing.T, gw *Gateway) *TokenServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = gw.grpcServer.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewTokenServiceClient(conn)
}

func TestTokenService_Verify(t *testing.T) {
	gw := newTestGateway(t)
	h := gw.Handler()
	userID := registerUser(t, h, "bobby", "bobby@example.com", "correct horse battery")
	token := authenticate(t, h, "bobby@example.com", "correct horse battery", "me")
	client := dialTokenService(t, gw)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := client.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, out.GetFields()["user_id"].GetStringValue())
	jwtID := out.GetFields()["jwt_id"].GetStringValue()
	assert.NotEmpty(t, jwtID)
	assert.NotEmpty(t, out.GetFields()["expires_at"].GetStringValue())

	_, err = client.Verify(ctx, "garbage")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	rec := doRequest(t, h, http.MethodDelete, "/api/tokens/"+jwtID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = client.Verify(ctx, token)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "unauthenticated", status.Convert(err).Message())
}

func TestTokenService_WhoAmI(t *testing.T) {
	gw := newTestGateway(t)
	h := gw.Handler()
	registerUser(t, h, "bobby", "bobby@example.com", "correct horse battery")
	token := authenticate(t, h, "bobby@example.com", "correct horse battery", "me")
	client := dialTokenService(t, gw)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.WhoAmI(ctx)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	authCtx := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	out, err := client.WhoAmI(authCtx)
	require.NoError(t, err)
	assert.Equal(t, "bobby", out.GetFields()["name"].GetStringValue())
	assert.Equal(t, "bobby@example.com", out.GetFields()["email"].GetStringValue())
}
