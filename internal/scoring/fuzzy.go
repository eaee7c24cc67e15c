package scoring

import (
	"math"
	"sync"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// FuzzyRatio is the edit-distance similarity of a and b on a 0-100 scale:
// 100 for identical strings, 0 when every character differs.
func FuzzyRatio(a, b string) int {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 100
	}
	distance := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * (1 - float64(distance)/float64(longest))))
}

// AnswerMatch is the closest earlier answer to a newly observed one.
type AnswerMatch struct {
	UID   int64
	Ratio int
}

// AnswerTracker remembers the answers seen in a round and reports how close
// each new answer is to the earlier ones. It only informs; it never changes
// a score.
type AnswerTracker struct {
	mu      sync.Mutex
	answers []trackedAnswer
}

type trackedAnswer struct {
	uid    int64
	answer string
}

func NewAnswerTracker() *AnswerTracker {
	return &AnswerTracker{}
}

// Observe records answer and returns its best match among earlier answers.
// ok is false for the first answer.
func (t *AnswerTracker) Observe(uid int64, answer string) (match AnswerMatch, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, prev := range t.answers {
		ratio := FuzzyRatio(answer, prev.answer)
		if !ok || ratio > match.Ratio {
			match = AnswerMatch{UID: prev.uid, Ratio: ratio}
			ok = true
		}
	}
	t.answers = append(t.answers, trackedAnswer{uid: uid, answer: answer})
	return match, ok
}
