// Package platform implements the platform extraction heuristics (§4.B),
// the Platform-History Recorder (§4.E), and the Platform Post-Processor
// (§4.G).
package platform

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mini-rodalies-3d/transit/internal/ids"
)

// fgcRenfeLabelRegex pulls a platform number out of a vehicle label like
// "R4-77626-PLATF.(1)".
var fgcRenfeLabelRegex = regexp.MustCompile(`PLATF\.\((\d+)\)`)

// euskotrenStopIDRegex pulls a platform number out of a stop ID like
// "EUSKOTREN_E123_Plataforma_Q2".
var euskotrenStopIDRegex = regexp.MustCompile(`_Plataforma_Q(\d+)`)

// ExtractFromLabel implements the FGC/Renfe-native rule: platform number
// from the vehicle position's label field.
func ExtractFromLabel(label string) (string, bool) {
	m := fgcRenfeLabelRegex.FindStringSubmatch(label)
	if len(m) != 2 {
		return "", false
	}
	return m[1], true
}

// ExtractFromStopID implements the Euskotren rule: platform number encoded
// in the stop ID itself.
func ExtractFromStopID(stopID string) (string, bool) {
	m := euskotrenStopIDRegex.FindStringSubmatch(stopID)
	if len(m) != 2 {
		return "", false
	}
	return m[1], true
}

// ExtractFromDirection implements the Metro Bilbao rule: direction_id
// (1 or 2) is interpreted directly as the platform number.
func ExtractFromDirection(directionID int) (string, bool) {
	if directionID != 1 && directionID != 2 {
		return "", false
	}
	return strconv.Itoa(directionID), true
}

// ExtractFromCodiVia implements the TMB rule: the feed's codi_via field is
// already the platform number.
func ExtractFromCodiVia(codiVia string) (string, bool) {
	if codiVia == "" {
		return "", false
	}
	return codiVia, true
}

// ExtractPlatform dispatches to the operator-appropriate rule. label is the
// raw vehicle label (FGC/Renfe), stopID the canonical stop ID (Euskotren),
// directionID the GTFS-RT direction (Metro Bilbao), codiVia TMB's own field.
func ExtractPlatform(op ids.Operator, label, stopID string, directionID int, codiVia string) (string, bool) {
	switch op {
	case ids.FGC, ids.Renfe:
		return ExtractFromLabel(label)
	case ids.Euskotren:
		return ExtractFromStopID(stopID)
	case ids.MetroBilbao:
		return ExtractFromDirection(directionID)
	case ids.TMB:
		return ExtractFromCodiVia(codiVia)
	default:
		return "", false
	}
}

// stripNetworkPrefix derives an approximate route_short_name from a route ID
// by dropping everything up to and including the first underscore (the
// network prefix); an ID without an underscore is returned unchanged. The
// precise short name comes from the ISS route record.
func stripNetworkPrefix(routeID string) string {
	if i := strings.IndexByte(routeID, '_'); i >= 0 {
		return routeID[i+1:]
	}
	return routeID
}
