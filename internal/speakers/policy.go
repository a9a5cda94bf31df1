package speakers

import "podscribe/internal/config"

// Policy bounds how much transcript the sampler may hand to the naming
// oracle. The thresholds are heuristics tuned for shows that open with an
// interview block and settle into panel discussion; they are configuration,
// not law, and ship with defaults that match that shape.
type Policy struct {
	SmallShowSpeakers      int
	InterviewCutoffSeconds float64
	InterviewFraction      float64
	InterviewHead          int
	MainHead               int
	MainTransitions        int
	FallbackHead           int
	ManySpeakers           int
	CapManySpeakers        int
	CapFewSpeakers         int
}

// DefaultPolicy returns the stock sampling thresholds.
func DefaultPolicy() Policy {
	return Policy{
		SmallShowSpeakers:      6,
		InterviewCutoffSeconds: 1800,
		InterviewFraction:      0.4,
		InterviewHead:          30,
		MainHead:               20,
		MainTransitions:        15,
		FallbackHead:           50,
		ManySpeakers:           10,
		CapManySpeakers:        150,
		CapFewSpeakers:         200,
	}
}

// PolicyFromConfig converts the sampling configuration section into a Policy,
// backfilling any unset threshold with its default.
func PolicyFromConfig(s config.Sampling) Policy {
	return Policy{
		SmallShowSpeakers:      s.SmallShowSpeakers,
		InterviewCutoffSeconds: float64(s.InterviewCutoffSeconds),
		InterviewFraction:      s.InterviewFraction,
		InterviewHead:          s.InterviewHead,
		MainHead:               s.MainHead,
		MainTransitions:        s.MainTransitions,
		FallbackHead:           s.FallbackHead,
		ManySpeakers:           s.ManySpeakers,
		CapManySpeakers:        s.CapManySpeakers,
		CapFewSpeakers:         s.CapFewSpeakers,
	}.normalized()
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.SmallShowSpeakers <= 0 {
		p.SmallShowSpeakers = def.SmallShowSpeakers
	}
	if p.InterviewCutoffSeconds <= 0 {
		p.InterviewCutoffSeconds = def.InterviewCutoffSeconds
	}
	if p.InterviewFraction <= 0 || p.InterviewFraction > 1 {
		p.InterviewFraction = def.InterviewFraction
	}
	if p.InterviewHead <= 0 {
		p.InterviewHead = def.InterviewHead
	}
	if p.MainHead <= 0 {
		p.MainHead = def.MainHead
	}
	if p.MainTransitions <= 0 {
		p.MainTransitions = def.MainTransitions
	}
	if p.FallbackHead <= 0 {
		p.FallbackHead = def.FallbackHead
	}
	if p.ManySpeakers <= 0 {
		p.ManySpeakers = def.ManySpeakers
	}
	if p.CapManySpeakers <= 0 {
		p.CapManySpeakers = def.CapManySpeakers
	}
	if p.CapFewSpeakers <= 0 {
		p.CapFewSpeakers = def.CapFewSpeakers
	}
	return p
}
