package platform

import (
	"testing"

	"github.com/mini-rodalies-3d/transit/internal/ids"
	"github.com/mini-rodalies-3d/transit/internal/store"
)

func TestExtractPlatform(t *testing.T) {
	tests := []struct {
		name      string
		op        ids.Operator
		label     string
		stopID    string
		direction int
		codiVia   string
		want      string
		wantOK    bool
	}{
		{"fgc label", ids.FGC, "R4-77626-PLATF.(1)", "", 0, "", "1", true},
		{"renfe label", ids.Renfe, "C5-1234-PLATF.(3)", "", 0, "", "3", true},
		{"euskotren stop id", ids.Euskotren, "", "EUSKOTREN_E123_Plataforma_Q2", 0, "", "2", true},
		{"metro bilbao direction", ids.MetroBilbao, "", "", 1, "", "1", true},
		{"metro bilbao invalid direction", ids.MetroBilbao, "", "", 3, "", "", false},
		{"tmb codi_via", ids.TMB, "", "", 0, "4", "4", true},
		{"fgc label no match", ids.FGC, "no platform here", "", 0, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractPlatform(tt.op, tt.label, tt.stopID, tt.direction, tt.codiVia)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractPlatform(%v) = (%q, %v), want (%q, %v)", tt.op, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestShouldRecord(t *testing.T) {
	tests := []struct {
		name     string
		status   store.VehicleStatus
		stopID   string
		platform string
		want     bool
	}{
		{"stopped with platform", store.StatusStoppedAt, "S1", "2", true},
		{"incoming with platform", store.StatusIncomingAt, "S1", "2", true},
		{"in transit excluded", store.StatusInTransitTo, "S1", "2", false},
		{"missing stop", store.StatusStoppedAt, "", "2", false},
		{"missing platform", store.StatusStoppedAt, "S1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRecord(tt.status, tt.stopID, tt.platform); got != tt.want {
				t.Errorf("ShouldRecord(%s) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}
