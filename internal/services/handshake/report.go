package handshake

import "qchat/internal/domain"

// Assessment is a display-oriented reading of a SecurityReport. HasQBER is
// false when no QBER was reported. Margin is Threshold minus QBER, so a
// negative margin means the threshold was exceeded. EavesdropperDetected is
// set when Eve was simulated and the run flagged errors for it.
type Assessment struct {
	Secure               bool
	QBER                 float64
	HasQBER              bool
	Threshold            float64
	Margin               float64
	Efficiency           float64
	EavesdropperDetected bool
	Intercepted          int
}

// Assess summarises r. It reports, it does not reinterpret: Secure mirrors
// the backend's success flag.
func Assess(r domain.SecurityReport) Assessment {
	a := Assessment{
		Secure:     r.Success,
		Threshold:  r.QBERThreshold,
		Efficiency: r.AliceState.Efficiency(),
	}
	if q, ok := r.QBERValue(); ok {
		a.QBER, a.HasQBER = q, true
		a.Margin = r.QBERThreshold - q
	}
	if r.EveState != nil {
		a.Intercepted = r.EveState.NIntercepted
	}
	a.EavesdropperDetected = r.EavesdroppingEnabled && (r.ErrorDetected || r.AboveThreshold())
	return a
}
