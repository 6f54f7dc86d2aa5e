package ids

import (
	"testing"

	"github.com/mini-rodalies-3d/transit/internal/apperr"
)

func TestPrefixStop(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		op      Operator
		want    string
		wantErr apperr.Kind
	}{
		{"applies operator prefix", "17000", Renfe, "RENFE_17000", 0},
		{"passthrough already-prefixed", "RENFE_17000", Renfe, "RENFE_17000", 0},
		{"renfe alias rewrite", "5222", Renfe, "RENFE_16403", 0},
		{"tmb prefix", "1.105", TMB, "TMB_METRO_1.105", 0},
		{"empty id is malformed", "", Renfe, "", apperr.KindMalformedID},
		{"whitespace id is malformed", "   ", Renfe, "", apperr.KindMalformedID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PrefixStop(tt.raw, tt.op)
			if tt.wantErr != 0 {
				if !apperr.Is(err, tt.wantErr) {
					t.Fatalf("PrefixStop(%q) error = %v, want kind %v", tt.raw, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("PrefixStop(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("PrefixStop(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestPrefixTrip_RenfeNeverPrefixed(t *testing.T) {
	got, err := PrefixTrip("17045", Renfe)
	if err != nil {
		t.Fatalf("PrefixTrip: %v", err)
	}
	if got != "17045" {
		t.Errorf("Renfe trip id was prefixed: got %q, want verbatim passthrough", got)
	}
}

func TestPrefixTrip_OtherOperatorsPrefixed(t *testing.T) {
	got, err := PrefixTrip("8842", FGC)
	if err != nil {
		t.Fatalf("PrefixTrip: %v", err)
	}
	if got != "FGC_8842" {
		t.Errorf("PrefixTrip(FGC) = %q, want FGC_8842", got)
	}
}

func TestExtractRouteShortName_C4C8Split(t *testing.T) {
	tests := []struct {
		name      string
		shortName string
		headsign  string
		want      string
	}{
		{"c4 default branch a", "C4", "Madrid Atocha", "C4a"},
		{"c4 colmenar branch b", "C4", "Colmenar Viejo", "C4b"},
		{"c8 cercedilla branch b", "C8", "Cercedilla", "C8b"},
		{"unrelated route passes through", "R4", "Sant Vicenç de Calders", "R4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractRouteShortName(tt.shortName, tt.headsign); got != tt.want {
				t.Errorf("ExtractRouteShortName(%q, %q) = %q, want %q", tt.shortName, tt.headsign, got, tt.want)
			}
		})
	}
}
