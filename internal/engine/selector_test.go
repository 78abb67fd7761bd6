package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/trialogue/internal/domain"
)

// fixedRand always picks the same slot and leaves shuffles untouched.
type fixedRand struct {
	n int
}

func (f fixedRand) Intn(n int) int {
	return f.n % n
}

func (f fixedRand) Shuffle(n int, swap func(i, j int)) {}

func TestSelectOpinionPicksUnspoken(t *testing.T) {
	state := domain.NewDiscussionState()
	state.RecordReply(domain.ModelAnthropic)

	for pick := 0; pick < 3; pick++ {
		s := NewSelector(fixedRand{n: pick})
		got := s.Select("please ask @anthropic", state)
		assert.NotEqual(t, domain.ModelAnthropic, got, "opinion phase must pick an unspoken model, mention or not")
		assert.True(t, got == domain.ModelGPT || got == domain.ModelGemini)
	}
}

func TestSelectMentionLastMatchWins(t *testing.T) {
	state := domain.NewDiscussionState()
	for _, m := range domain.AllModels() {
		state.RecordReply(m)
	}
	require.True(t, state.AdvancePhase())

	s := NewSelector(fixedRand{})
	got := s.Select("... ask @gpt and @gemini, @gpt again", state)
	assert.Equal(t, domain.ModelGPT, got)
}

func TestSelectMentionCaseInsensitive(t *testing.T) {
	state := domain.NewDiscussionState()
	for _, m := range domain.AllModels() {
		state.RecordReply(m)
	}
	state.AdvancePhase()

	s := NewSelector(fixedRand{})
	assert.Equal(t, domain.ModelGemini, s.Select("interesting point. @GEMINI, thoughts?", state))
}

func TestSelectTieBreakAtMinimumCount(t *testing.T) {
	state := domain.NewDiscussionState()
	for _, m := range domain.AllModels() {
		state.RecordReply(m)
	}
	state.AdvancePhase()
	state.RecordReply(domain.ModelGemini) // gemini: 2, others: 1

	for pick := 0; pick < 3; pick++ {
		s := NewSelector(fixedRand{n: pick})
		got := s.Select("no handoff here", state)
		assert.Contains(t, []domain.ModelID{domain.ModelAnthropic, domain.ModelGPT}, got)
	}
}

func TestSelectDeterministicWithSeed(t *testing.T) {
	run := func() []domain.ModelID {
		s := NewSelector(rand.New(rand.NewSource(42)))
		state := domain.NewDiscussionState()
		var picks []domain.ModelID
		for i := 0; i < 6; i++ {
			m := s.Select("", state)
			picks = append(picks, m)
			state.RecordReply(m)
			state.AdvancePhase()
		}
		return picks
	}

	assert.Equal(t, run(), run())
}

func TestLastMentionNone(t *testing.T) {
	_, ok := LastMention("no handoff, just an email foo@example.com style token")
	assert.False(t, ok)
}

func TestMentionHintSkipsSelf(t *testing.T) {
	hint, ok := MentionHint("as @gpt said before, I defer to @gemini", domain.ModelGPT)
	require.True(t, ok)
	assert.Equal(t, domain.ModelGemini, hint)

	_, ok = MentionHint("@gpt thinking out loud about itself", domain.ModelGPT)
	assert.False(t, ok)
}

func TestShuffledRoundContainsAllModels(t *testing.T) {
	s := NewSelector(rand.New(rand.NewSource(7)))
	queue := s.ShuffledRound()
	require.Len(t, queue, 3)

	seen := map[domain.ModelID]bool{}
	for _, m := range queue {
		seen[m] = true
	}
	assert.Len(t, seen, 3)
}
