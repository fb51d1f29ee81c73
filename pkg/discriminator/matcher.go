package discriminator

import (
	aerrors "github.com/lugondev/go-anvil/pkg/errors"
)

// MatcherStrategy selects how a Matcher resolves a tag.
type MatcherStrategy int

const (
	// StrategyAuto scans small sets linearly and uses a map otherwise.
	StrategyAuto MatcherStrategy = iota
	StrategyMap
	StrategyLinear
)

// linearThreshold is the set size up to which a scan beats a map lookup.
const linearThreshold = 8

// Matcher maps a tag to its position in a fixed set, typically the
// instruction handlers of a program.
type Matcher struct {
	discriminators map[Discriminator]int
	orderedDiscs   []Discriminator
	strategy       MatcherStrategy
}

// NewMatcher builds a matcher over discs. The first occurrence of a
// repeated tag wins.
func NewMatcher(discs []Discriminator, strategy MatcherStrategy) *Matcher {
	m := &Matcher{
		discriminators: make(map[Discriminator]int, len(discs)),
		orderedDiscs:   make([]Discriminator, len(discs)),
		strategy:       strategy,
	}

	for i, disc := range discs {
		if _, exists := m.discriminators[disc]; !exists {
			m.discriminators[disc] = i
		}
		m.orderedDiscs[i] = disc
	}

	if m.strategy == StrategyAuto {
		m.strategy = StrategyMap
		if len(discs) <= linearThreshold {
			m.strategy = StrategyLinear
		}
	}

	return m
}

// Len returns the number of tags in the set.
func (m *Matcher) Len() int {
	return len(m.orderedDiscs)
}

// Match returns the index of target, or -1.
func (m *Matcher) Match(target Discriminator) int {
	if m.strategy == StrategyLinear {
		for i, candidate := range m.orderedDiscs {
			if target == candidate {
				return i
			}
		}
		return -1
	}
	if idx, exists := m.discriminators[target]; exists {
		return idx
	}
	return -1
}

// MatchData resolves the tag prefixing data and returns its index and the
// remaining payload.
func (m *Matcher) MatchData(data []byte) (int, []byte, error) {
	disc, ok := FromBytes(data)
	if !ok {
		return -1, nil, aerrors.ErrInvalidInstructionData.WithDetails(map[string]any{
			"data_len": len(data),
		})
	}
	idx := m.Match(disc)
	if idx < 0 {
		return -1, nil, aerrors.ErrUnknownInstruction.WithDetails(map[string]any{
			"discriminator": disc.String(),
		})
	}
	return idx, data[Len:], nil
}

// MatchBatch resolves each target; unknown tags yield -1.
func (m *Matcher) MatchBatch(targets []Discriminator) []int {
	if len(targets) == 0 {
		return nil
	}
	results := make([]int, len(targets))
	for i, target := range targets {
		results[i] = m.Match(target)
	}
	return results
}
