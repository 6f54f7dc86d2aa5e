package raptor

import "sort"

// dominates reports whether a is at least as good as b on every criterion
// (arrival time, transfer count, total walking time) and strictly better on
// at least one — the §4.I Pareto-optimality test.
func dominates(a, b Journey) bool {
	betterOrEqual := a.ArrivalSeconds <= b.ArrivalSeconds && a.Transfers <= b.Transfers && a.TotalWalkingSeconds <= b.TotalWalkingSeconds
	strictlyBetter := a.ArrivalSeconds < b.ArrivalSeconds || a.Transfers < b.Transfers || a.TotalWalkingSeconds < b.TotalWalkingSeconds
	return betterOrEqual && strictlyBetter
}

// paretoFilter keeps only the non-dominated journeys, deduplicates
// itineraries that reconstruct to the identical segment chain (distinct
// rounds sometimes yield the same trip sequence), and caps the result at
// limit, sorted by arrival time.
func paretoFilter(journeys []Journey, limit int) []Journey {
	deduped := dedupeJourneys(journeys)

	var kept []Journey
	for i, candidate := range deduped {
		dominated := false
		for j, other := range deduped {
			if i == j {
				continue
			}
			if dominates(other, candidate) {
				dominated = true
				break
			}
		}
		if !dominated {
			kept = append(kept, candidate)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].ArrivalSeconds != kept[j].ArrivalSeconds {
			return kept[i].ArrivalSeconds < kept[j].ArrivalSeconds
		}
		return kept[i].Transfers < kept[j].Transfers
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

func dedupeJourneys(journeys []Journey) []Journey {
	seen := make(map[string]bool, len(journeys))
	out := journeys[:0:0]
	for _, j := range journeys {
		key := journeyKey(j)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, j)
	}
	return out
}

func journeyKey(j Journey) string {
	key := ""
	for _, seg := range j.Segments {
		key += seg.Kind + "|" + seg.TripID + "|" + seg.From.ID + "|" + seg.To.ID + ";"
	}
	return key
}
