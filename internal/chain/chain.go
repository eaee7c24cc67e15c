// Package chain is a client for the HTTP chain gateway that exposes the
// subnet registry and accepts weight votes.
package chain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/comchat/internal/config"
)

type ChainInterface interface {
	QueryMapAddress(ctx context.Context, netuid int) (map[int64]string, error)
	QueryMapKey(ctx context.Context, netuid int) (map[int64]string, error)
	QuerySubnetNames(ctx context.Context) (map[int]string, error)
	Vote(ctx context.Context, params VoteParams) (ExtrinsicHashResponse, error)
}

// Chain is a client wrapper for the chain gateway HTTP API. Reads go through
// a retrying client; votes are posted once.
type Chain struct {
	client     *resty.Client
	httpClient *retryablehttp.Client
	BaseURL    string
}

// NewChain creates a new gateway client for the configured network.
func NewChain(cfg *config.ChainEnvConfig) (*Chain, error) {
	if cfg == nil {
		return nil, ErrNilChainConfig
	}

	url := strings.TrimSuffix(cfg.NodeURL(), "/")
	if url == "" {
		return nil, fmt.Errorf("chain url cannot be empty")
	}

	timeout := cfg.ChainTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(url).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetTimeout(timeout)

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 5
	httpClient.RetryWaitMin = 200 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.HTTPClient.Timeout = timeout
	httpClient.Logger = nil

	log.Info().
		Str("base_url", url).
		Bool("testnet", cfg.UseTestnet).
		Int("retry_max", httpClient.RetryMax).
		Msg("chain client initialised")

	return &Chain{
		client:     client,
		httpClient: httpClient,
		BaseURL:    url,
	}, nil
}

func postJSON[T any](ctx context.Context, client *resty.Client, path string, body any) (ChainResponse[T], error) {
	var result ChainResponse[T]
	resp, err := client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("post request failed")
		return ChainResponse[T]{}, fmt.Errorf("post %s: %w", path, err)
	}
	if resp.IsError() {
		log.Error().Int("status", resp.StatusCode()).Str("body", resp.String()).Str("path", path).Msg("post non-2xx")
		return ChainResponse[T]{}, fmt.Errorf("request returned status %d: %s", resp.StatusCode(), resp.String())
	}
	if result.Error != nil {
		log.Error().Interface("error", result.Error).Str("path", path).Msg("response contains error")
		return ChainResponse[T]{}, fmt.Errorf("response error: %v", result.Error)
	}
	return result, nil
}

func getJSON[T any](ctx context.Context, c *Chain, path string) (ChainResponse[T], error) {
	url := c.BaseURL + path

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ChainResponse[T]{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	log.Debug().Str("url", url).Msg("making chain query")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("chain query failed")
		return ChainResponse[T]{}, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChainResponse[T]{}, fmt.Errorf("read %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(bytes.TrimSpace(respBody))).
			Str("url", url).
			Msg("get non-2xx")
		return ChainResponse[T]{}, fmt.Errorf("request returned status %d: %s", resp.StatusCode, respBody)
	}

	var result ChainResponse[T]
	if err := sonic.Unmarshal(respBody, &result); err != nil {
		return ChainResponse[T]{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if result.Error != nil {
		log.Error().Interface("error", result.Error).Str("path", path).Msg("response contains error")
		return ChainResponse[T]{}, fmt.Errorf("response error: %v", result.Error)
	}
	return result, nil
}

// QueryMapAddress returns the registered "ip:port" string of every uid.
func (c *Chain) QueryMapAddress(ctx context.Context, netuid int) (map[int64]string, error) {
	res, err := getJSON[UIDMap](ctx, c, fmt.Sprintf("/chain/address-map/%d", netuid))
	if err != nil {
		return nil, fmt.Errorf("%w: address map: %w", ErrChainQuery, err)
	}
	return parseUIDMap(res.Data), nil
}

// QueryMapKey returns the SS58 key of every uid.
func (c *Chain) QueryMapKey(ctx context.Context, netuid int) (map[int64]string, error) {
	res, err := getJSON[UIDMap](ctx, c, fmt.Sprintf("/chain/key-map/%d", netuid))
	if err != nil {
		return nil, fmt.Errorf("%w: key map: %w", ErrChainQuery, err)
	}
	return parseUIDMap(res.Data), nil
}

// QuerySubnetNames returns the name of every subnet keyed by netuid.
func (c *Chain) QuerySubnetNames(ctx context.Context) (map[int]string, error) {
	res, err := getJSON[map[string]string](ctx, c, "/chain/subnet-names")
	if err != nil {
		return nil, fmt.Errorf("%w: subnet names: %w", ErrChainQuery, err)
	}
	names := make(map[int]string, len(res.Data))
	for key, name := range res.Data {
		netuid, err := strconv.Atoi(key)
		if err != nil {
			log.Warn().Str("netuid", key).Msg("skipping malformed netuid from chain")
			continue
		}
		names[netuid] = name
	}
	return names, nil
}

// Vote submits a signed weight vote and returns the extrinsic hash.
func (c *Chain) Vote(ctx context.Context, params VoteParams) (ExtrinsicHashResponse, error) {
	if len(params.Uids) != len(params.Weights) {
		return ExtrinsicHashResponse{}, ErrMismatchedVotes
	}
	res, err := postJSON[string](ctx, c.client, "/chain/vote", params)
	if err != nil {
		return ExtrinsicHashResponse{}, fmt.Errorf("%w: %w", ErrVoteRejected, err)
	}
	return res, nil
}

// ResolveNetuid finds the netuid registered under name, preferring the
// lowest netuid if the name is registered more than once.
func ResolveNetuid(ctx context.Context, c ChainInterface, name string) (int, error) {
	names, err := c.QuerySubnetNames(ctx)
	if err != nil {
		return 0, err
	}
	found := -1
	for netuid, subnet := range names {
		if subnet == name && (found < 0 || netuid < found) {
			found = netuid
		}
	}
	if found < 0 {
		return 0, fmt.Errorf("%w: %q", ErrSubnetNotFound, name)
	}
	return found, nil
}
