package domain

// DiscussionPhase is the per-session discussion stage. It starts at opinion
// and transitions once, irreversibly, to free_talk after every model has
// spoken in the opinion phase.
type DiscussionPhase string

const (
	// PhaseOpinion is the round-robin opening: every model speaks exactly
	// once before anything else happens.
	PhaseOpinion DiscussionPhase = "opinion"
	// PhaseFreeTalk is the open floor: any model may speak again.
	PhaseFreeTalk DiscussionPhase = "free_talk"
)

// DiscussionState is the selection bookkeeping for one session: the current
// phase, per-model successful reply counts, and the set of models that have
// spoken during the opinion phase.
type DiscussionState struct {
	Phase     DiscussionPhase  `json:"phase"`
	TurnCount map[ModelID]int  `json:"turn_count"`
	Spoken    map[ModelID]bool `json:"spoken_in_opinion"`
}

// NewDiscussionState returns the initial state for a fresh session.
func NewDiscussionState() *DiscussionState {
	counts := make(map[ModelID]int, len(AllModels()))
	for _, m := range AllModels() {
		counts[m] = 0
	}
	return &DiscussionState{
		Phase:     PhaseOpinion,
		TurnCount: counts,
		Spoken:    make(map[ModelID]bool),
	}
}

// RecordReply registers one successful reply by model. Faulted turns must not
// be recorded: TurnCount counts successful replies only.
func (s *DiscussionState) RecordReply(model ModelID) {
	s.TurnCount[model]++
	if s.Phase == PhaseOpinion {
		s.Spoken[model] = true
	}
}

// AdvancePhase flips opinion to free_talk once every model has spoken.
// It reports whether the transition happened on this call.
func (s *DiscussionState) AdvancePhase() bool {
	if s.Phase != PhaseOpinion {
		return false
	}
	for _, m := range AllModels() {
		if !s.Spoken[m] {
			return false
		}
	}
	s.Phase = PhaseFreeTalk
	return true
}

// Unspoken returns the models that have not yet spoken in the opinion phase,
// in the stable AllModels order.
func (s *DiscussionState) Unspoken() []ModelID {
	var out []ModelID
	for _, m := range AllModels() {
		if !s.Spoken[m] {
			out = append(out, m)
		}
	}
	return out
}
