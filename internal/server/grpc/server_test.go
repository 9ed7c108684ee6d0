package grpc

import (
	"context"
	"net"
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
	"google.golang.org/protobuf/types/known/structpb"
)

func startBufServer(t *testing.T, env *testEnv) *IdentityClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	served := make(chan error, 1)
	go func() { served <- env.srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-served:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	return NewIdentityClient(conn)
}

func authed(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	client := startBufServer(t, env)
	ctx := context.Background()

	pong, err := client.Call(ctx, MethodPing, nil)
	require.NoError(t, err)
	assert.Equal(t, "OK", pong.Fields["status"].GetStringValue())

	in, err := structpb.NewStruct(map[string]any{"username": "bob", "email": "b@x.com", "password": "secret1"})
	require.NoError(t, err)
	created, err := client.Call(ctx, MethodCreateUser, in)
	require.NoError(t, err)
	id := created.Fields["id"].GetStringValue()

	_, err = client.Call(ctx, MethodGetMe, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	creds, err := structpb.NewStruct(map[string]any{"username": "bob", "password": "secret1"})
	require.NoError(t, err)
	login, err := client.Call(ctx, MethodLogin, creds)
	require.NoError(t, err)
	token := login.Fields["access_token"].GetStringValue()

	me, err := client.Call(authed(token), MethodGetMe, nil)
	require.NoError(t, err)
	assert.Equal(t, id, me.Fields["id"].GetStringValue())

	_, err = client.Call(authed(token), MethodListUsers, nil)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	assert.Equal(t, msgInsufficientPrivilege, status.Convert(err).Message())

	deactivate, err := structpb.NewStruct(map[string]any{"is_active": false})
	require.NoError(t, err)
	_, err = client.Call(authed(token), MethodUpdateUser, deactivate)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = client.Call(authed(token), MethodDeleteUser, nil)
	require.NoError(t, err)

	_, err = client.Call(authed(token), MethodGetMe, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, msgUnauthorized, status.Convert(err).Message())
}

func TestRun_BadAddress(t *testing.T) {
	env := newTestEnv(t)
	env.srv.address = "256.0.0.1:-1"

	err := env.srv.Run(context.Background())
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
