// Package schnitz is the signed, zstd-compressed HTTP transport used between
// validators and miners.
package schnitz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/comchat/pkg/signature"
)

// Client configuration
type ClientConfig struct {
	// Timeout caps a single call; a context deadline can only shorten it.
	Timeout         time.Duration
	ZstdCompression bool
}

type Client struct {
	config      *ClientConfig
	restyClient *resty.Client
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
	signer      signature.SignatureProvider
}

// NewClient creates a client signing every request with signer.
func NewClient(config *ClientConfig, signer signature.SignatureProvider) (*Client, error) {
	if signer == nil {
		return nil, fmt.Errorf("signature provider cannot be nil")
	}
	if config == nil {
		config = &ClientConfig{ZstdCompression: true}
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}

	restyClient := resty.New().
		SetTimeout(config.Timeout).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	client := &Client{
		config:      config,
		restyClient: restyClient,
		signer:      signer,
	}

	if config.ZstdCompression {
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		client.encoder = encoder

		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		client.decoder = decoder
	}
	return client, nil
}

// Close cleans up client resources
func (c *Client) Close() {
	if c.encoder != nil {
		_ = c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}

// Hotkey returns the address requests are signed with.
func (c *Client) Hotkey() string {
	return c.signer.Address()
}

// CreateAuthParams signs a message addressed to peerKey.
func (c *Client) CreateAuthParams(peerKey string) (AuthParams, error) {
	message := AuthMessage(peerKey, time.Now())
	sig, err := c.signer.Sign(message)
	if err != nil {
		return AuthParams{}, fmt.Errorf("failed to sign message: %w", err)
	}

	return AuthParams{
		Hotkey:    c.signer.Address(),
		Message:   message,
		Signature: sig,
	}, nil
}

func (c *Client) buildHeaders(auth AuthParams) map[string]string {
	headers := map[string]string{
		"Content-Type":  "application/json",
		SignatureHeader: auth.Signature,
		MessageHeader:   auth.Message,
		HotkeyHeader:    auth.Hotkey,
	}
	if c.config.ZstdCompression {
		headers["Accept-Encoding"] = "zstd"
		headers["Content-Encoding"] = "zstd"
	}
	return headers
}

func endpoint(address, method string) string {
	base := strings.TrimSuffix(address, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return base + "/" + method
}

// post sends request to address/method and returns the decoded response body.
func (c *Client) post(ctx context.Context, address, peerKey, method string, request any) ([]byte, error) {
	auth, err := c.CreateAuthParams(peerKey)
	if err != nil {
		return nil, err
	}

	url := endpoint(address, method)
	req := c.restyClient.R().
		SetContext(ctx).
		SetHeaders(c.buildHeaders(auth))

	jsonData, err := sonic.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	if c.encoder != nil {
		req = req.SetBody(c.encoder.EncodeAll(jsonData, nil))
	} else {
		req = req.SetBody(jsonData)
	}

	log.Trace().
		Str("endpoint", url).
		Str("peer_key", peerKey).
		Int("body_size", len(jsonData)).
		Msg("Sending peer request")

	resp, err := req.Post(url)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	responseBody := resp.Body()
	if c.decoder != nil && strings.EqualFold(resp.Header().Get("Content-Encoding"), "zstd") {
		decompressed, err := c.decoder.DecodeAll(responseBody, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress response: %w", err)
		}
		responseBody = decompressed
	}

	if resp.IsError() {
		msg := string(responseBody)
		var envelope StdResponse[map[string]any]
		if err := sonic.Unmarshal(responseBody, &envelope); err == nil && envelope.Error != nil {
			msg = *envelope.Error
		}
		return nil, &RemoteError{StatusCode: resp.StatusCode(), Message: msg}
	}

	return responseBody, nil
}

// Call invokes method on the peer at address (ip:port) and decodes its body.
func Call[Req, Resp any](ctx context.Context, c *Client, address, peerKey, method string, request Req) (Resp, error) {
	var zero Resp
	body, err := c.post(ctx, address, peerKey, method, request)
	if err != nil {
		return zero, err
	}

	var envelope StdResponse[Resp]
	if err := sonic.Unmarshal(body, &envelope); err != nil {
		return zero, fmt.Errorf("failed to unmarshal StdResponse: %w", err)
	}
	if envelope.Error != nil {
		return zero, &RemoteError{StatusCode: 200, Message: *envelope.Error}
	}
	return envelope.Body, nil
}

// IsRemoteError reports whether err came back from the peer itself.
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
