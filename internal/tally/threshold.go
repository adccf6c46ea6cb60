package tally

import "fmt"

// ThresholdRule names a policy for how many votes a group must cast
// before a vote can pass.
type ThresholdRule string

// Threshold rules carried in the embedded vote payload. Anything else
// falls back to RuleAll.
const (
	RuleFourFifths ThresholdRule = "fourfifths"
	RuleTwoThirds  ThresholdRule = "twothirds"
	RuleMajority   ThresholdRule = "majority"
	RuleAll        ThresholdRule = "all"
)

// Threshold computes the vote count required to pass for a group of the
// given size. Pure integer math; a zero-sized group requires zero votes
// under every rule.
func Threshold(groupSize int, rule ThresholdRule) int {
	if groupSize <= 0 {
		return 0
	}
	switch rule {
	case RuleFourFifths:
		return ceilDiv(groupSize*4, 5)
	case RuleTwoThirds:
		return ceilDiv(groupSize*2, 3)
	case RuleMajority:
		return ceilDiv(groupSize, 2)
	default: // all
		return groupSize
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// ProgressState is the discrete outcome of classifying a vote's tally.
type ProgressState int

const (
	// ProgressCounting means the vote is open, quorum has not been
	// reached, and the indicator carries a decile value.
	ProgressCounting ProgressState = iota
	// ProgressQuorum means the minimum-participation bar was met.
	ProgressQuorum
	// ProgressClosed means the vote is closed; terminal.
	ProgressClosed
)

// Progress is the symbolic progress indicator for a vote. The mapping
// of an indicator to a rendered asset (badge SVG) belongs to whoever
// consumes it; this type only names the state.
type Progress struct {
	State  ProgressState
	Decile float64 // populated only for ProgressCounting
}

// Indicator returns the stable string form persisted in VoteData.Progress
// ("vote-closed", "vote-quorum", or "progress-<decile>").
func (p Progress) Indicator() string {
	switch p.State {
	case ProgressClosed:
		return "vote-closed"
	case ProgressQuorum:
		return "vote-quorum"
	default:
		return fmt.Sprintf("progress-%.1f", p.Decile)
	}
}

// Classify produces the progress indicator for the current tally state.
// First match wins: closed, then quorum, then a decile bucket of
// groupVotes over the required threshold (rounded down to the nearest
// 10%, expressed in tenths: 4.0 means 40%).
//
// A zero threshold means the eligible group is empty; there is nothing
// outstanding to collect, so the vote is treated as already quorate
// rather than dividing by zero.
func Classify(v *VoteData) Progress {
	if v.Closed {
		return Progress{State: ProgressClosed}
	}
	if v.HasQuorum {
		return Progress{State: ProgressQuorum}
	}
	required := Threshold(v.GroupSize, v.VotingThreshold)
	if required == 0 {
		return Progress{State: ProgressQuorum}
	}
	ratio := float64(v.GroupVotes) / float64(required)
	decile := float64(int(ratio * 10)) // floor to the nearest 10%
	return Progress{State: ProgressCounting, Decile: decile}
}
