package main

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"lg/stride-api/internal/logger"
)

// TestProfileEnergy_LogsInvalidAnswers warns about a stored answer the
// normalizer rejects but stays quiet about unanswered questions.
func TestProfileEnergy_LogsInvalidAnswers(t *testing.T) {
	tests := []struct {
		name       string
		mut        func(p *userProfile)
		wantEnergy bool
		wantWarn   bool
	}{
		{"complete", func(p *userProfile) {}, true, false},
		{"unanswered height", func(p *userProfile) { p.Height = nil }, false, false},
		{"invalid age", func(p *userProfile) { p.Age = intPtr(7) }, false, true},
		{"invalid activity", func(p *userProfile) { p.ActivityLevel = strPtr("couch") }, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			h := &Handler{log: &logger.Logger{SugaredLogger: zap.New(core).Sugar()}}

			p := completeProfile()
			tc.mut(&p)
			energy := h.profileEnergy(1, p)

			if (energy != nil) != tc.wantEnergy {
				t.Errorf("expected energy=%v, got %+v", tc.wantEnergy, energy)
			}
			if got := logs.Len() > 0; got != tc.wantWarn {
				t.Errorf("expected warning=%v, got %d entries", tc.wantWarn, logs.Len())
			}
		})
	}
}
