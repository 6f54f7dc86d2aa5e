package raptor

// relaxTransfers implements §4.I step 3: footpath relaxation. For every
// stop q marked by this round's route scan, walk each transfer q->q'; if
// the walk beats q''s current best arrival, mark q' too.
func (p *Planner) relaxTransfers(k int, transitMarked map[string]bool, touched []map[string]label, bestArrival map[string]int, destSet map[string]bool, bestDestArrival **int) (map[string]bool, error) {
	newlyMarked := make(map[string]bool)

	for q := range transitMarked {
		qLabel, ok := touched[k][q]
		if !ok {
			continue
		}
		transfers, err := p.ISS.GetTransfers(q)
		if err != nil {
			return nil, err
		}
		for _, tr := range transfers {
			arrival := qLabel.arrival + tr.WalkSeconds
			bound, hasBound := bestArrival[tr.ToStopID]
			pruneBound := *bestDestArrival
			improves := (!hasBound || arrival < bound) &&
				(pruneBound == nil || arrival < *pruneBound || destSet[tr.ToStopID])
			if !improves {
				continue
			}
			touched[k][tr.ToStopID] = label{
				arrival: arrival,
				back: &backPointer{
					kind: "walk", prevStop: q, prevRound: k, walkSeconds: tr.WalkSeconds,
				},
			}
			bestArrival[tr.ToStopID] = arrival
			newlyMarked[tr.ToStopID] = true
		}
	}

	return newlyMarked, nil
}
