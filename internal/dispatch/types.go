// Package dispatch fans a prompt out to many peers with bounded concurrency
// and a hard per-peer deadline.
package dispatch

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/tensorplex-labs/comchat/pkg/schnitz"
)

var (
	ErrMissingAnswer = errors.New("peer returned no answer")
	ErrCallTimeout   = errors.New("peer call timed out")
)

const (
	DefaultConcurrency = 8
	DefaultCallTimeout = 65 * time.Second
)

// PeerRecord is a reachable registered miner.
type PeerRecord struct {
	UID  int64
	IP   string
	Port int
	Key  string
}

// Address returns "ip:port".
func (p PeerRecord) Address() string {
	return net.JoinHostPort(p.IP, strconv.Itoa(p.Port))
}

// Outcome is the result of calling one peer. Exactly one of Answer (non
// empty) or Err is set.
type Outcome struct {
	UID     int64
	Answer  string
	Err     error
	Latency time.Duration
}

func (o Outcome) Answered() bool {
	return o.Err == nil && o.Answer != ""
}

// PeerCaller performs one authenticated generate call.
type PeerCaller interface {
	Generate(ctx context.Context, peer PeerRecord, req schnitz.GenerateRequest) (schnitz.GenerateResponse, error)
}

// SchnitzCaller calls peers over the schnitz transport.
type SchnitzCaller struct {
	Client *schnitz.Client
}

func (c SchnitzCaller) Generate(ctx context.Context, peer PeerRecord, req schnitz.GenerateRequest) (schnitz.GenerateResponse, error) {
	return schnitz.Call[schnitz.GenerateRequest, schnitz.GenerateResponse](
		ctx, c.Client, peer.Address(), peer.Key, schnitz.MethodGenerate, req)
}
