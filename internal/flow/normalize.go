package flow

import "sort"

// Transaction is one record of the flat upstream shape. Value is signed:
// positive means net buying.
type Transaction struct {
	Participant string
	Value       float64
	AvgPrice    float64
}

// SideEntry is one record of the nested upstream shape. Value is an
// unsigned magnitude; the side it appears on supplies the sign.
type SideEntry struct {
	Participant string
	Value       float64
	AvgPrice    float64
}

// Summary is the nested upstream shape with separate buy and sell arrays.
type Summary struct {
	Buyers  []SideEntry
	Sellers []SideEntry
}

// Payload is the tagged union of the two upstream shapes. Exactly one of
// the fields is populated; a nil Summary selects the flat shape.
type Payload struct {
	Transactions []Transaction
	Summary      *Summary
}

// Normalize converts either upstream shape into the canonical snapshot:
// positive net value means net buying, both sides sorted by descending
// magnitude. Records missing a participant id or magnitude are dropped,
// never fatal. Empty input yields an empty (invalid) snapshot.
func Normalize(p Payload) Snapshot {
	var snap Snapshot
	if p.Summary != nil {
		for _, e := range p.Summary.Buyers {
			if e.Participant == "" || e.Value == 0 {
				continue
			}
			snap.Inflow = append(snap.Inflow, ParticipantFlow{
				Participant: e.Participant,
				NetValue:    abs(e.Value),
				AvgPrice:    e.AvgPrice,
			})
		}
		for _, e := range p.Summary.Sellers {
			if e.Participant == "" || e.Value == 0 {
				continue
			}
			snap.Outflow = append(snap.Outflow, ParticipantFlow{
				Participant: e.Participant,
				NetValue:    -abs(e.Value),
				AvgPrice:    e.AvgPrice,
			})
		}
	} else {
		for _, tx := range p.Transactions {
			if tx.Participant == "" || tx.Value == 0 {
				continue
			}
			f := ParticipantFlow{Participant: tx.Participant, NetValue: tx.Value, AvgPrice: tx.AvgPrice}
			if tx.Value > 0 {
				snap.Inflow = append(snap.Inflow, f)
			} else {
				snap.Outflow = append(snap.Outflow, f)
			}
		}
	}
	sortByMagnitude(snap.Inflow)
	sortByMagnitude(snap.Outflow)
	return snap
}

func sortByMagnitude(flows []ParticipantFlow) {
	sort.SliceStable(flows, func(i, j int) bool {
		return magnitude(flows[i]) > magnitude(flows[j])
	})
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
