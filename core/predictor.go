package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Policy selects how fetch guesses the direction of branches.
type Policy int

// Prediction policies.
const (
	AlwaysNotTaken Policy = iota
	AlwaysTaken
	TwoBit
	TwoLevel
)

var policyNames = []string{"not-taken", "taken", "2bit", "2level"}

func (p Policy) String() string {
	if p >= 0 && int(p) < len(policyNames) {
		return policyNames[p]
	}

	return fmt.Sprintf("Policy(%d)", int(p))
}

// Policies lists every policy in selector order.
func Policies() []Policy {
	return []Policy{AlwaysNotTaken, AlwaysTaken, TwoBit, TwoLevel}
}

// ParsePolicy accepts a policy name or its selector number 0-3.
func ParsePolicy(s string) (Policy, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n >= len(policyNames) {
			return 0, fmt.Errorf("predictor selector %d out of range 0-%d",
				n, len(policyNames)-1)
		}

		return Policy(n), nil
	}

	switch s {
	case "not-taken", "nottaken", "always-not-taken":
		return AlwaysNotTaken, nil
	case "taken", "always-taken":
		return AlwaysTaken, nil
	case "2bit", "2-bit", "bimodal":
		return TwoBit, nil
	case "2level", "2-level", "gshare", "global":
		return TwoLevel, nil
	}

	return 0, fmt.Errorf("unknown predictor %q", s)
}

// Counter is a 2-bit saturating counter.
type Counter uint8

// Counter states.
const (
	StrongNotTaken Counter = iota
	WeakNotTaken
	WeakTaken
	StrongTaken
)

// Taken reports whether the counter predicts taken.
func (c Counter) Taken() bool {
	return c >= WeakTaken
}

func (c Counter) update(taken bool) Counter {
	if taken && c < StrongTaken {
		return c + 1
	}

	if !taken && c > StrongNotTaken {
		return c - 1
	}

	return c
}

const (
	tableSize   = 1024
	historyBits = 10
	historyMask = 1<<historyBits - 1
)

// Prediction is what fetch records about a branch so that execute can check
// and repair it.
type Prediction struct {
	Taken   bool
	Index   uint32
	State   Counter
	History uint16
}

// Predictor holds the counter table and the global history of one run.
type Predictor struct {
	policy  Policy
	table   [tableSize]Counter
	history uint16
}

// NewPredictor creates a predictor with every counter at StrongNotTaken and
// an empty history.
func NewPredictor(policy Policy) *Predictor {
	if policy < AlwaysNotTaken || policy > TwoLevel {
		panic(fmt.Sprintf("invalid predictor policy %d", int(policy)))
	}

	return &Predictor{policy: policy}
}

// Policy returns the active policy.
func (p *Predictor) Policy() Policy {
	return p.policy
}

// Counter returns the table entry at index.
func (p *Predictor) Counter(index uint32) Counter {
	return p.table[index%tableSize]
}

// History returns the global history register.
func (p *Predictor) History() uint16 {
	return p.history
}

// Index returns the table entry the active policy consults for a branch at
// pc.
func (p *Predictor) Index(pc uint32) uint32 {
	if p.policy == TwoLevel {
		return uint32(p.history)
	}

	return (pc >> 3) % tableSize
}

// Predict guesses the direction of the branch at pc. The 2-level policy
// shifts the guess into the history right away.
func (p *Predictor) Predict(pc uint32) Prediction {
	pred := Prediction{History: p.history}

	switch p.policy {
	case AlwaysNotTaken:
	case AlwaysTaken:
		pred.Taken = true
	case TwoBit, TwoLevel:
		pred.Index = p.Index(pc)
		pred.State = p.table[pred.Index]
		pred.Taken = pred.State.Taken()
	}

	if p.policy == TwoLevel {
		p.history = shiftHistory(p.history, pred.Taken)
	}

	return pred
}

// Resolve trains the predictor with the real outcome of a branch and reports
// whether the prediction was wrong. On a miss the 2-level history is rebuilt
// from the snapshot taken at prediction time.
func (p *Predictor) Resolve(pred Prediction, taken bool) (mispredicted bool) {
	mispredicted = pred.Taken != taken

	if p.policy == TwoBit || p.policy == TwoLevel {
		p.table[pred.Index] = p.table[pred.Index].update(taken)
	}

	if mispredicted && p.policy == TwoLevel {
		p.history = shiftHistory(pred.History, taken)
	}

	return mispredicted
}

func shiftHistory(h uint16, taken bool) uint16 {
	h <<= 1
	if taken {
		h |= 1
	}

	return h & historyMask
}
