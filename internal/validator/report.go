package validator

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
)

// roundReport is the on-disk summary of the last round.
type roundReport struct {
	RoundID    string            `json:"round_id"`
	StartedAt  time.Time         `json:"started_at"`
	DurationMs int64             `json:"duration_ms"`
	Subject    string            `json:"subject"`
	Criteria   string            `json:"criteria"`
	Service    string            `json:"service"`
	Model      string            `json:"model"`
	Peers      int               `json:"peers"`
	Answered   int               `json:"answered"`
	Scores     map[int64]float64 `json:"scores"`
	Weights    map[int64]int64   `json:"weights"`
	Voted      bool              `json:"voted"`
	TxHash     string            `json:"tx_hash,omitempty"`
}

func newRoundReport(r RoundResult) roundReport {
	answered := 0
	for _, o := range r.Outcomes {
		if o.Answered() {
			answered++
		}
	}
	weights := make(map[int64]int64, len(r.Weights))
	for _, w := range r.Weights {
		weights[w.UID] = w.Weight
	}
	return roundReport{
		RoundID:    r.ID.String(),
		StartedAt:  r.StartedAt,
		DurationMs: r.Duration.Milliseconds(),
		Subject:    r.Challenge.Subject,
		Criteria:   r.Challenge.Criteria.String(),
		Service:    string(r.Target.Service),
		Model:      r.Target.Model,
		Peers:      len(r.Peers),
		Answered:   answered,
		Scores:     r.Scores,
		Weights:    weights,
		Voted:      r.Voted,
		TxHash:     r.TxHash,
	}
}

// writeRoundReport atomically replaces path with the summary of r.
func writeRoundReport(path string, r RoundResult) error {
	data, err := sonic.ConfigStd.MarshalIndent(newRoundReport(r), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal round report: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".round-report-*")
	if err != nil {
		return fmt.Errorf("create round report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write round report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close round report: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
