package fusion

import (
	"regexp"
	"strings"

	"github.com/mini-rodalies-3d/transit/internal/gtfs"
	"github.com/mini-rodalies-3d/transit/internal/iss"
)

// tmbPlatformRegex matches a TMB station-level stop ID like
// "TMB_METRO_P.1234567" so its platform suffix heuristic (§4.H Step 1) can
// extract the last three digits.
var tmbPlatformRegex = regexp.MustCompile(`^TMB_METRO_P\.(\d+)$`)

// ResolveStops implements §4.H Step 1 and the station↔platform resolution
// MCJP reuses verbatim: expand a user-facing stop ID (which may be a
// location_type=1 station) into the platform-level stop IDs it should
// actually be queried against.
func ResolveStops(s *iss.Store, stopID string) ([]string, error) {
	info, err := s.GetStopInfo(stopID)
	if err != nil {
		return nil, err
	}
	if info.LocationType != gtfs.LocationStation {
		return []string{stopID}, nil
	}

	children, err := s.GetChildStops(stopID)
	if err != nil {
		return nil, err
	}
	if len(children) > 0 {
		return children, nil
	}

	if m := tmbPlatformRegex.FindStringSubmatch(stopID); m != nil {
		digits := m[1]
		if len(digits) > 3 {
			digits = digits[len(digits)-3:]
		}
		return []string{"TMB_METRO_1." + digits}, nil
	}

	if strings.HasPrefix(stopID, "FGC_") && !endsInDigit(stopID) {
		siblings, err := s.GetStopsByPrefix(stopID)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(siblings))
		for _, id := range siblings {
			if id != stopID {
				out = append(out, id)
			}
		}
		if len(out) > 0 {
			return out, nil
		}
	}

	return []string{stopID}, nil
}

func endsInDigit(s string) bool {
	if s == "" {
		return false
	}
	c := s[len(s)-1]
	return c >= '0' && c <= '9'
}
