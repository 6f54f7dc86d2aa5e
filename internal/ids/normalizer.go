// Package ids implements the Identifier Normalizer (§4.A): mapping
// operator-native identifiers into the canonical "<NETWORK>_<native>"
// namespace.
package ids

import (
	"fmt"
	"strings"

	"github.com/mini-rodalies-3d/transit/internal/apperr"
)

// Operator enumerates the real-time operators the normalizer knows about.
type Operator string

const (
	Renfe       Operator = "RENFE"
	MetroBilbao Operator = "METRO_BILBAO"
	Euskotren   Operator = "EUSKOTREN"
	FGC         Operator = "FGC"
	TMB         Operator = "TMB_METRO"
	Tram        Operator = "TRAM_SEV"
	Metro       Operator = "METRO"
	ML          Operator = "ML"
)

// Spec holds the normalization rules for one operator.
type Spec struct {
	Prefix string
	// PrefixesTrips is false only for Renfe: trip IDs must match the static
	// GTFS trip table verbatim, so they are never prefixed. This asymmetry
	// is load-bearing (spec §9) and is modeled here as data, not a scattered
	// conditional.
	PrefixesTrips bool
}

// operatorSpecs is the single source of truth for per-operator prefixing.
var operatorSpecs = map[Operator]Spec{
	Renfe:       {Prefix: "RENFE", PrefixesTrips: false},
	MetroBilbao: {Prefix: "METRO_BILBAO", PrefixesTrips: true},
	Euskotren:   {Prefix: "EUSKOTREN", PrefixesTrips: true},
	FGC:         {Prefix: "FGC", PrefixesTrips: true},
	TMB:         {Prefix: "TMB_METRO", PrefixesTrips: true},
	Tram:        {Prefix: "TRAM_SEV", PrefixesTrips: true},
	Metro:       {Prefix: "METRO", PrefixesTrips: true},
	ML:          {Prefix: "ML", PrefixesTrips: true},
}

// renfeAliases covers operator-side ID churn: old Renfe stop codes that were
// renumbered but still arrive in some live feeds.
var renfeAliases = map[string]string{
	"5222": "16403",
}

// knownPrefixes lets passthrough detection recognize an already-canonical ID.
var knownPrefixes = []string{
	"RENFE_", "METRO_BILBAO_", "EUSKOTREN_", "FGC_", "TMB_METRO_",
	"TRAM_SEV_", "METRO_", "ML_",
}

func hasKnownPrefix(id string) bool {
	for _, p := range knownPrefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}

func validate(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.New(apperr.KindMalformedID, "ids.validate", fmt.Errorf("empty identifier"))
	}
	return nil
}

// PrefixStop maps a raw stop code to its canonical ID: alias rewrite,
// then prefix-if-needed. Stops always carry a prefix, for every operator.
func PrefixStop(raw string, op Operator) (string, error) {
	if err := validate(raw); err != nil {
		return "", err
	}
	raw = strings.TrimSpace(raw)
	if alias, ok := renfeAliases[raw]; ok {
		raw = alias
	}
	if hasKnownPrefix(raw) {
		return raw, nil
	}
	spec, ok := operatorSpecs[op]
	if !ok {
		return "", apperr.New(apperr.KindMalformedID, "ids.PrefixStop", fmt.Errorf("unknown operator %q", op))
	}
	return spec.Prefix + "_" + raw, nil
}

// PrefixRoute maps a raw route ID to its canonical ID.
func PrefixRoute(raw string, op Operator) (string, error) {
	if err := validate(raw); err != nil {
		return "", err
	}
	raw = strings.TrimSpace(raw)
	if hasKnownPrefix(raw) {
		return raw, nil
	}
	spec, ok := operatorSpecs[op]
	if !ok {
		return "", apperr.New(apperr.KindMalformedID, "ids.PrefixRoute", fmt.Errorf("unknown operator %q", op))
	}
	return spec.Prefix + "_" + raw, nil
}

// PrefixTrip maps a raw trip ID to its canonical ID, honoring the
// Renfe no-prefix exception.
func PrefixTrip(raw string, op Operator) (string, error) {
	if err := validate(raw); err != nil {
		return "", err
	}
	raw = strings.TrimSpace(raw)
	spec, ok := operatorSpecs[op]
	if !ok {
		return "", apperr.New(apperr.KindMalformedID, "ids.PrefixTrip", fmt.Errorf("unknown operator %q", op))
	}
	if !spec.PrefixesTrips {
		return raw, nil
	}
	if hasKnownPrefix(raw) {
		return raw, nil
	}
	return spec.Prefix + "_" + raw, nil
}

// madridC4C8Headsigns maps keywords found in a Cercanías headsign to the
// C4/C8 branch letter. Anything not matching defaults to the "a" branch.
var madridC4C8Headsigns = []struct {
	keyword string
	branch  string
}{
	{"colmenar", "b"},
	{"cercedilla", "b"},
}

// ExtractRouteShortName applies the Madrid C4/C8 line-split rule: those two
// short names are ambiguous branches and must be disambiguated by headsign
// keyword. All other short names pass through unchanged. Idempotent: once a
// name already carries a branch letter it is left alone.
func ExtractRouteShortName(routeShortName string, headsign string) string {
	base := strings.TrimSpace(routeShortName)
	if base != "C4" && base != "C8" {
		return base
	}
	if strings.HasSuffix(base, "a") || strings.HasSuffix(base, "b") {
		return base
	}
	branch := "a"
	lower := strings.ToLower(headsign)
	for _, rule := range madridC4C8Headsigns {
		if strings.Contains(lower, rule.keyword) {
			branch = rule.branch
			break
		}
	}
	return base + branch
}
