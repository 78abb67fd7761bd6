// Package engine implements the multi-agent turn orchestrator: speaker
// selection, session bookkeeping, and the sequential session driver.
package engine

import (
	"regexp"
	"strings"

	"github.com/xiaot623/trialogue/internal/domain"
)

// RandSource abstracts the randomness used for speaker selection so tests can
// force deterministic outcomes. *math/rand.Rand satisfies it.
type RandSource interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

var mentionPattern = regexp.MustCompile(`(?i)@(anthropic|gpt|gemini)`)

// LastMention returns the last @-mention in text, case-insensitive. A
// question or invitation to another model is conventionally placed at the end
// of a reply, so the last match wins.
func LastMention(text string) (domain.ModelID, bool) {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return "", false
	}
	return domain.ModelID(strings.ToLower(matches[len(matches)-1][1])), true
}

// MentionHint returns the first @-mention in text that is not current. This is
// the server-side mention detection surfaced as next_model on chat responses.
func MentionHint(text string, current domain.ModelID) (domain.ModelID, bool) {
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		mentioned := domain.ModelID(strings.ToLower(m[1]))
		if mentioned != current {
			return mentioned, true
		}
	}
	return "", false
}

// Selector chooses the next speaker. It is a pure function over the last
// reply and the discussion state; the only nondeterminism is the injected
// random source.
type Selector struct {
	rnd RandSource
}

// NewSelector creates a selector backed by rnd.
func NewSelector(rnd RandSource) *Selector {
	return &Selector{rnd: rnd}
}

// Select picks the next speaker. lastReply is empty when no assistant reply
// precedes the selection. Priority order, first matching rule wins:
//
//  1. opinion phase with unspoken models: uniform random among the unspoken;
//  2. last reply carries an @-mention: the mentioned model (last match wins);
//  3. otherwise: uniform random among the models tied at the minimum turn
//     count.
func (s *Selector) Select(lastReply string, state *domain.DiscussionState) domain.ModelID {
	if state.Phase == domain.PhaseOpinion {
		if unspoken := state.Unspoken(); len(unspoken) > 0 {
			return unspoken[s.rnd.Intn(len(unspoken))]
		}
	}

	if lastReply != "" {
		if mentioned, ok := LastMention(lastReply); ok {
			return mentioned
		}
	}

	min := -1
	for _, m := range domain.AllModels() {
		if c := state.TurnCount[m]; min < 0 || c < min {
			min = c
		}
	}
	var tied []domain.ModelID
	for _, m := range domain.AllModels() {
		if state.TurnCount[m] == min {
			tied = append(tied, m)
		}
	}
	return tied[s.rnd.Intn(len(tied))]
}

// ShuffledRound returns all models in a fresh random order, the opening queue
// of one automatic round.
func (s *Selector) ShuffledRound() []domain.ModelID {
	queue := domain.AllModels()
	s.rnd.Shuffle(len(queue), func(i, j int) {
		queue[i], queue[j] = queue[j], queue[i]
	})
	return queue
}
