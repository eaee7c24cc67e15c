package chain

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
)

var (
	ErrChainQuery      = errors.New("chain query failed")
	ErrSubnetNotFound  = errors.New("subnet not found")
	ErrVoteRejected    = errors.New("vote rejected")
	ErrNilChainConfig  = errors.New("configuration cannot be nil")
	ErrMismatchedVotes = errors.New("uids and weights differ in length")
)

// ChainResponse is the envelope every gateway endpoint returns.
type ChainResponse[T any] struct {
	StatusCode int            `json:"statusCode"`
	Success    bool           `json:"success"`
	Data       T              `json:"data"`
	Error      map[string]any `json:"error"`
}

type (
	// UIDMap maps a decimal uid to a per-peer string value.
	UIDMap                = map[string]string
	UIDMapResponse        = ChainResponse[UIDMap]
	SubnetNamesResponse   = ChainResponse[map[string]string]
	ExtrinsicHashResponse = ChainResponse[string]
)

// VoteParams is the signed weight submission.
type VoteParams struct {
	Netuid    int     `json:"netuid"`
	Uids      []int64 `json:"uids"`
	Weights   []int64 `json:"weights"`
	Key       string  `json:"key"`
	Message   string  `json:"message"`
	Signature string  `json:"signature"`
}

// VoteMessage is the canonical message a validator signs for a vote.
func VoteMessage(netuid int, uids, weights []int64) string {
	return fmt.Sprintf("vote:%d:%v:%v", netuid, uids, weights)
}

// parseUIDMap converts decimal uid keys, dropping malformed ones.
func parseUIDMap(raw UIDMap) map[int64]string {
	out := make(map[int64]string, len(raw))
	for key, value := range raw {
		uid, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			log.Warn().Str("uid", key).Msg("skipping malformed uid from chain")
			continue
		}
		out[uid] = value
	}
	return out
}
