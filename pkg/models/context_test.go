package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseFor(t *testing.T) {
	tests := []struct {
		name      string
		daysUntil int
		expected  SessionPhase
	}{
		{"session passed yesterday", -1, SessionPhaseCompleted},
		{"session long past", -30, SessionPhaseCompleted},
		{"session today", 0, SessionPhaseImminent},
		{"three days out", 3, SessionPhaseImminent},
		{"four days out", 4, SessionPhasePreparation},
		{"one week out", 7, SessionPhasePreparation},
		{"eight days out", 8, SessionPhaseUpcoming},
		{"a month out", 30, SessionPhaseUpcoming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PhaseFor(tt.daysUntil))
		})
	}
}
