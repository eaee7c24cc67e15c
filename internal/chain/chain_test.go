package chain

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorplex-labs/comchat/internal/config"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Chain) {
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := NewChain(&config.ChainEnvConfig{ChainURL: ts.URL, ChainTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("new chain: %v", err)
	}
	c.httpClient.RetryWaitMin = time.Millisecond
	c.httpClient.RetryWaitMax = 5 * time.Millisecond
	return ts, c
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func TestNewChain_NilConfig(t *testing.T) {
	_, err := NewChain(nil)
	assert.ErrorIs(t, err, ErrNilChainConfig)
}

func TestNewChain_SelectsTestnet(t *testing.T) {
	c, err := NewChain(&config.ChainEnvConfig{
		ChainURL:        "http://mainnet:3000",
		TestnetChainURL: "http://testnet:3001/",
		UseTestnet:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://testnet:3001", c.BaseURL)
}

func TestQueryMapAddress_Success(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chain/address-map/17" || r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, `{"statusCode":200,"success":true,"data":{"0":"10.0.0.1:8000","3":"miner:9","x":"bad"},"error":null}`)
	})

	addresses, err := c.QueryMapAddress(context.Background(), 17)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{0: "10.0.0.1:8000", 3: "miner:9"}, addresses)
}

func TestQueryMapKey_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, `{"statusCode":200,"success":true,"data":{"1":"5Grw"},"error":null}`)
	})

	keys, err := c.QueryMapKey(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "5Grw"}, keys)
	assert.EqualValues(t, 3, calls.Load())
}

func TestQueryMapKey_ResponseErrorField(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"statusCode":200,"success":false,"data":{},"error":{"msg":"boom"}}`)
	})

	_, err := c.QueryMapKey(context.Background(), 1)
	assert.ErrorIs(t, err, ErrChainQuery)
}

func TestQueryMapKey_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.QueryMapKey(context.Background(), 1)
	assert.ErrorIs(t, err, ErrChainQuery)
	assert.EqualValues(t, 1, calls.Load())
}

func TestResolveNetuid(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chain/subnet-names" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, `{"statusCode":200,"success":true,"data":{"0":"root","12":"comchat","4":"comchat"},"error":null}`)
	})

	netuid, err := ResolveNetuid(context.Background(), c, "comchat")
	require.NoError(t, err)
	assert.Equal(t, 4, netuid)

	_, err = ResolveNetuid(context.Background(), c, "missing")
	assert.ErrorIs(t, err, ErrSubnetNotFound)
}

func TestVote_Success(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chain/vote" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var params VoteParams
		if err := sonic.Unmarshal(body, &params); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, []int64{0, 1}, params.Uids)
		assert.Equal(t, []int64{518, 481}, params.Weights)
		assert.Equal(t, VoteMessage(17, params.Uids, params.Weights), params.Message)
		writeJSON(w, `{"statusCode":200,"success":true,"data":"0xabc","error":null}`)
	})

	res, err := c.Vote(context.Background(), VoteParams{
		Netuid:  17,
		Uids:    []int64{0, 1},
		Weights: []int64{518, 481},
		Key:     "5Grw",
		Message: VoteMessage(17, []int64{0, 1}, []int64{518, 481}),
	})
	require.NoError(t, err)
	assert.Equal(t, "0xabc", res.Data)
	assert.True(t, res.Success)
}

func TestVote_NotRetried(t *testing.T) {
	var calls atomic.Int32
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Vote(context.Background(), VoteParams{Uids: []int64{1}, Weights: []int64{1000}})
	assert.ErrorIs(t, err, ErrVoteRejected)
	assert.EqualValues(t, 1, calls.Load())
}

func TestVote_MismatchedLengths(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request")
	})

	_, err := c.Vote(context.Background(), VoteParams{Uids: []int64{1, 2}, Weights: []int64{1000}})
	assert.ErrorIs(t, err, ErrMismatchedVotes)
}
