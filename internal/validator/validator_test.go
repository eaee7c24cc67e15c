package validator

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorplex-labs/comchat/internal/chain"
	"github.com/tensorplex-labs/comchat/internal/challenge"
	"github.com/tensorplex-labs/comchat/internal/config"
	"github.com/tensorplex-labs/comchat/internal/dispatch"
	"github.com/tensorplex-labs/comchat/internal/llm"
	"github.com/tensorplex-labs/comchat/internal/metrics"
)

const validatorKey = "5validator"

type fakeChain struct {
	mu        sync.Mutex
	keys      map[int64]string
	addresses map[int64]string
	keysErr   error
	voteErr   error
	votes     []chain.VoteParams
}

func (c *fakeChain) QueryMapAddress(context.Context, int) (map[int64]string, error) {
	return c.addresses, nil
}

func (c *fakeChain) QueryMapKey(context.Context, int) (map[int64]string, error) {
	return c.keys, c.keysErr
}

func (c *fakeChain) QuerySubnetNames(context.Context) (map[int]string, error) {
	return map[int]string{17: "comchat"}, nil
}

func (c *fakeChain) Vote(_ context.Context, params chain.VoteParams) (chain.ExtrinsicHashResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.voteErr != nil {
		return chain.ExtrinsicHashResponse{}, c.voteErr
	}
	c.votes = append(c.votes, params)
	return chain.ExtrinsicHashResponse{Success: true, Data: "0xhash"}, nil
}

func (c *fakeChain) voteCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.votes)
}

type fakeGenerator struct {
	failures int
	calls    int
}

var testChallenge = challenge.Challenge{
	Criteria:        challenge.Criteria{Field: "physics", Audience: "a curious teenager", Style: "with an analogy", Depth: "a short overview"},
	Subject:         "Tides",
	ReferenceAnswer: "reference",
}

func (g *fakeGenerator) Generate(context.Context) (challenge.Challenge, error) {
	g.calls++
	if g.calls <= g.failures {
		return challenge.Challenge{}, errors.New("provider overloaded")
	}
	return testChallenge, nil
}

// vectorEmbedder maps known texts to fixed vectors and fails on anything else.
type vectorEmbedder map[string][]float64

func (e vectorEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec, ok := e[text]
	if !ok {
		return nil, errors.New("embedding backend unavailable")
	}
	return vec, nil
}

type fakeDispatcher struct {
	answers map[int64]string
	prompt  string
	target  dispatch.Target
	peers   []dispatch.PeerRecord
	entered chan struct{}
	release chan struct{}
}

func (d *fakeDispatcher) Dispatch(_ context.Context, target dispatch.Target, prompt string, peers []dispatch.PeerRecord) []dispatch.Outcome {
	if d.entered != nil {
		close(d.entered)
		<-d.release
	}
	d.prompt, d.target, d.peers = prompt, target, peers

	outcomes := make([]dispatch.Outcome, len(peers))
	for i, p := range peers {
		outcomes[i] = dispatch.Outcome{UID: p.UID, Answer: d.answers[p.UID]}
		if outcomes[i].Answer == "" {
			outcomes[i].Err = dispatch.ErrMissingAnswer
		}
	}
	return outcomes
}

type fakeSigner struct{}

func (fakeSigner) Sign(message string) (string, error) { return "0xsigned:" + message, nil }

func (fakeSigner) Address() string { return validatorKey }

type fixture struct {
	chain      *fakeChain
	generator  *fakeGenerator
	dispatcher *fakeDispatcher
	metrics    *metrics.Manager
	cfg        *config.ValidatorEnvConfig
}

func newFixture() *fixture {
	return &fixture{
		chain: &fakeChain{
			keys: map[int64]string{0: validatorKey, 1: "5miner1", 2: "5miner2", 3: "5miner3", 4: "5miner4"},
			addresses: map[int64]string{
				0: "10.0.0.9:9000",
				1: "10.0.0.1:8001",
				2: "not an address",
				3: "['10.0.0.3:8003']",
				4: "10.0.0.4:8004",
			},
		},
		generator: &fakeGenerator{},
		dispatcher: &fakeDispatcher{answers: map[int64]string{
			1: "perfect",
			3: "orthogonal",
			4: "unembeddable",
		}},
		metrics: metrics.NewManager(),
		cfg: &config.ValidatorEnvConfig{
			IterationInterval: time.Hour,
			ChallengeAttempts: 4,
			MaxAllowedWeights: 420,
			SigmoidThreshold:  0.7,
			SigmoidSteepness:  25,
		},
	}
}

func (f *fixture) validator() *Validator {
	embedder := vectorEmbedder{
		"reference":  {1, 0},
		"perfect":    {1, 0},
		"orthogonal": {0, 1},
	}
	return NewValidator(f.cfg, 17, f.chain, f.generator, embedder, f.dispatcher, fakeSigner{},
		WithMetrics(f.metrics),
		WithRand(rand.New(rand.NewPCG(7, 7))),
		WithCatalog(dispatch.NewCatalog(dispatch.Target{Service: llm.ServiceGroq, Model: "llama3-70b-8192"})),
	)
}

func TestRunRoundVotesOnce(t *testing.T) {
	f := newFixture()
	v := f.validator()

	result, err := v.RunRound(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID.String())
	assert.Equal(t, testChallenge.MinerPrompt(), f.dispatcher.prompt)
	assert.Equal(t, llm.ServiceGroq, f.dispatcher.target.Service)

	var dispatched []int64
	for _, p := range f.dispatcher.peers {
		dispatched = append(dispatched, p.UID)
	}
	assert.Equal(t, []int64{0, 1, 3, 4}, dispatched)

	// uid 4 cannot be embedded and is left out, uid 0 never answered
	require.Len(t, result.Scores, 2)
	assert.InDelta(t, 1.0, result.Scores[1], 1e-9)
	assert.InDelta(t, 0.2929, result.Scores[3], 1e-4)

	// uid 3 falls far below the sigmoid threshold and is pruned
	require.Len(t, result.Weights, 1)
	assert.Equal(t, int64(1), result.Weights[0].UID)
	assert.Equal(t, int64(999), result.Weights[0].Weight)

	require.Equal(t, 1, f.chain.voteCount())
	vote := f.chain.votes[0]
	assert.Equal(t, 17, vote.Netuid)
	assert.Equal(t, []int64{1}, vote.Uids)
	assert.Equal(t, []int64{999}, vote.Weights)
	assert.Equal(t, validatorKey, vote.Key)
	assert.Equal(t, chain.VoteMessage(17, []int64{1}, []int64{999}), vote.Message)
	assert.Equal(t, "0xsigned:"+vote.Message, vote.Signature)

	assert.True(t, result.Voted)
	assert.Equal(t, "0xhash", result.TxHash)

	count, err := testutil.GatherAndCount(f.metrics.Registry(), "comchat_validator_rounds_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunRoundRequiresRegisteredValidator(t *testing.T) {
	f := newFixture()
	delete(f.chain.keys, 0)

	_, err := f.validator().RunRound(context.Background())

	require.ErrorIs(t, err, ErrValidatorNotRegistered)
	assert.Zero(t, f.generator.calls)
	assert.Zero(t, f.chain.voteCount())
}

func TestRunRoundChainQueryFailure(t *testing.T) {
	f := newFixture()
	f.chain.keysErr = chain.ErrChainQuery

	_, err := f.validator().RunRound(context.Background())

	require.ErrorIs(t, err, chain.ErrChainQuery)
	assert.Zero(t, f.chain.voteCount())
}

func TestRunRoundRetriesChallenge(t *testing.T) {
	f := newFixture()
	f.generator.failures = 3

	_, err := f.validator().RunRound(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, f.generator.calls)
	assert.Equal(t, 1, f.chain.voteCount())
}

func TestRunRoundChallengeExhausted(t *testing.T) {
	f := newFixture()
	f.generator.failures = 10

	_, err := f.validator().RunRound(context.Background())

	require.ErrorIs(t, err, ErrChallengeFailed)
	assert.Equal(t, 4, f.generator.calls)
	assert.Zero(t, f.chain.voteCount())
}

func TestRunRoundWithoutAnswersSkipsVote(t *testing.T) {
	f := newFixture()
	f.dispatcher.answers = nil

	result, err := f.validator().RunRound(context.Background())

	require.NoError(t, err)
	assert.Empty(t, result.Scores)
	assert.False(t, result.Voted)
	assert.Zero(t, f.chain.voteCount())
}

func TestRunRoundWithoutPeersSkipsVote(t *testing.T) {
	f := newFixture()
	f.chain.addresses = map[int64]string{}

	result, err := f.validator().RunRound(context.Background())

	require.NoError(t, err)
	assert.Empty(t, f.dispatcher.peers)
	assert.False(t, result.Voted)
}

func TestRunRoundVoteFailure(t *testing.T) {
	f := newFixture()
	f.chain.voteErr = chain.ErrVoteRejected

	_, err := f.validator().RunRound(context.Background())

	require.ErrorIs(t, err, ErrVoteFailed)
	require.ErrorIs(t, err, chain.ErrVoteRejected)
}

func TestRunRoundIsExclusive(t *testing.T) {
	f := newFixture()
	f.dispatcher.entered = make(chan struct{})
	f.dispatcher.release = make(chan struct{})
	v := f.validator()

	done := make(chan error, 1)
	go func() {
		_, err := v.RunRound(context.Background())
		done <- err
	}()

	<-f.dispatcher.entered
	_, err := v.RunRound(context.Background())
	assert.ErrorIs(t, err, ErrRoundInProgress)

	close(f.dispatcher.release)
	require.NoError(t, <-done)
}

func TestRunRoundWritesReport(t *testing.T) {
	f := newFixture()
	f.cfg.RoundReportPath = filepath.Join(t.TempDir(), "last_round.json")

	result, err := f.validator().RunRound(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(f.cfg.RoundReportPath)
	require.NoError(t, err)

	var report roundReport
	require.NoError(t, sonic.Unmarshal(data, &report))
	assert.Equal(t, result.ID.String(), report.RoundID)
	assert.Equal(t, "Tides", report.Subject)
	assert.Equal(t, 4, report.Peers)
	assert.Equal(t, 3, report.Answered)
	assert.Equal(t, map[int64]int64{1: 999}, report.Weights)
	assert.True(t, report.Voted)
}

func TestStartStop(t *testing.T) {
	f := newFixture()
	v := f.validator()

	v.Start()
	require.Eventually(t, func() bool { return f.chain.voteCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		v.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("validator did not stop")
	}
	assert.Equal(t, 1, f.chain.voteCount())
}

func TestResolvePeers(t *testing.T) {
	keys := map[int64]string{5: "k5", 1: "k1", 3: "k3", 9: "k9"}
	addresses := map[int64]string{
		1: "10.0.0.1:8000",
		3: "http://192.168.1.3:9000/",
		5: "localhost:8000",
		7: "10.0.0.7:8000",
	}

	peers := ResolvePeers(addresses, keys)

	assert.Equal(t, []dispatch.PeerRecord{
		{UID: 1, IP: "10.0.0.1", Port: 8000, Key: "k1"},
		{UID: 3, IP: "192.168.1.3", Port: 9000, Key: "k3"},
	}, peers)
}

func TestOutcomeLabel(t *testing.T) {
	tests := []struct {
		outcome dispatch.Outcome
		want    string
	}{
		{dispatch.Outcome{Answer: "x"}, metrics.OutcomeAnswered},
		{dispatch.Outcome{Err: dispatch.ErrCallTimeout}, metrics.OutcomeTimeout},
		{dispatch.Outcome{Err: dispatch.ErrMissingAnswer}, metrics.OutcomeEmpty},
		{dispatch.Outcome{Err: errors.New("refused")}, metrics.OutcomeError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, outcomeLabel(tt.outcome))
	}
}
