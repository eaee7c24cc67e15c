package schnitz

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorplex-labs/comchat/pkg/signature"
)

func newSigner(t *testing.T) *signature.Provider {
	t.Helper()
	keypair, err := sr25519.GenerateKeypair()
	require.NoError(t, err)
	provider, err := signature.NewProvider(keypair)
	require.NoError(t, err)
	return provider
}

func startServer(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = s.App.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = s.App.Shutdown()
	})
	return ln.Addr().String()
}

func TestClientCallRoundTrip(t *testing.T) {
	minerSigner := newSigner(t)
	s := NewServer(&ServerConfig{SelfKey: minerSigner.Address(), MaxMessageAge: time.Minute}, nil)

	callers := make(chan string, 1)
	ServeRoute(s, MethodGenerate, func(c *fiber.Ctx, req GenerateRequest) (GenerateResponse, error) {
		if auth, ok := GetAuth(c); ok {
			callers <- auth.Hotkey
		}
		return GenerateResponse{Answer: req.Service + "/" + req.Model + ": " + req.Prompt}, nil
	})
	address := startServer(t, s)

	validatorSigner := newSigner(t)
	client, err := NewClient(&ClientConfig{Timeout: 5 * time.Second, ZstdCompression: true}, validatorSigner)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	resp, err := Call[GenerateRequest, GenerateResponse](context.Background(), client, address, minerSigner.Address(),
		MethodGenerate, GenerateRequest{Prompt: "explain tides", Service: "openai", Model: "gpt-4-0613"})
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4-0613: explain tides", resp.Answer)
	assert.Equal(t, validatorSigner.Address(), <-callers)
}

func TestClientCallWrongPeerKeyRejected(t *testing.T) {
	minerSigner := newSigner(t)
	s := NewServer(&ServerConfig{SelfKey: minerSigner.Address()}, nil)
	ServeRoute(s, MethodGenerate, func(c *fiber.Ctx, req GenerateRequest) (GenerateResponse, error) {
		return GenerateResponse{Answer: "unreachable"}, nil
	})
	address := startServer(t, s)

	client, err := NewClient(nil, newSigner(t))
	require.NoError(t, err)
	t.Cleanup(client.Close)

	_, err = Call[GenerateRequest, GenerateResponse](context.Background(), client, address, newSigner(t).Address(),
		MethodGenerate, GenerateRequest{Prompt: "x"})
	require.Error(t, err)

	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusForbidden, remote.StatusCode)
	assert.True(t, IsRemoteError(err))
}

func TestClientCallHonoursContextDeadline(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(ts.Close)

	client, err := NewClient(&ClientConfig{Timeout: 10 * time.Second}, newSigner(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = Call[GenerateRequest, GenerateResponse](ctx, client, ts.URL, "peer", MethodGenerate, GenerateRequest{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, IsRemoteError(err))
}

func TestClientApplicationError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+MethodGenerate, r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(SignatureHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"body":{"answer":""},"error":"model refused"}`))
	}))
	t.Cleanup(ts.Close)

	client, err := NewClient(&ClientConfig{Timeout: time.Second}, newSigner(t))
	require.NoError(t, err)

	_, err = Call[GenerateRequest, GenerateResponse](context.Background(), client, ts.URL, "peer", MethodGenerate, GenerateRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model refused")
}

func TestNewClientRequiresSigner(t *testing.T) {
	_, err := NewClient(nil, nil)
	assert.Error(t, err)
}
