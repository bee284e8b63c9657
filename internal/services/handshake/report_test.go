package handshake

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"qchat/internal/domain"
)

func TestAssess(t *testing.T) {
	ok := Assess(domain.SecurityReport{
		Success:       true,
		QBER:          qber(0.02),
		QBERThreshold: 0.11,
		AliceState:    domain.AliceState{NQubits: 1024, SiftedKeyLength: 512, FinalKeyLength: 256},
	})
	assert.True(t, ok.Secure)
	assert.True(t, ok.HasQBER)
	assert.InDelta(t, 0.09, ok.Margin, 1e-9)
	assert.InDelta(t, 0.25, ok.Efficiency, 1e-9)
	assert.False(t, ok.EavesdropperDetected)

	eve := Assess(domain.SecurityReport{
		Success:              false,
		QBER:                 qber(0.25),
		QBERThreshold:        0.11,
		EavesdroppingEnabled: true,
		EveState:             &domain.EveState{NIntercepted: 300, InterceptProbability: 1},
	})
	assert.False(t, eve.Secure)
	assert.Less(t, eve.Margin, 0.0)
	assert.True(t, eve.EavesdropperDetected)
	assert.Equal(t, 300, eve.Intercepted)

	none := Assess(domain.SecurityReport{})
	assert.False(t, none.HasQBER)
	assert.Zero(t, none.Efficiency)
}
