package fusion

// civisMaxStops is the §4.H Step 6 CIVIS express-detection table: Madrid
// Cercanías routes whose trip stops at or under the given count are the
// express ("CIVIS") service pattern rather than the all-stops pattern.
var civisMaxStops = map[string]int{
	"C2":  9,
	"C3":  9,
	"C10": 8,
	"C8a": 8,
}

const (
	civisName  = "CIVIS"
	civisColor = "#2596be"
)

// detectExpress reports whether a trip is a CIVIS express service.
func detectExpress(routeShortName string, stopCount int) (isExpress bool, name, color string) {
	max, ok := civisMaxStops[routeShortName]
	if !ok || stopCount <= 0 || stopCount > max {
		return false, "", ""
	}
	return true, civisName, civisColor
}
