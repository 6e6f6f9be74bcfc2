// Package flow models per-participant money flow and the accumulation
// signal derived from it. All values are monetary, signed so that a
// positive net value always means net buying.
package flow

import (
	"math"
	"time"
)

// Class is the capability class of a market participant.
type Class string

const (
	ClassInstitutional Class = "INSTITUTIONAL"
	ClassRetail        Class = "RETAIL"
	ClassUnknown       Class = "UNKNOWN"
)

// Tag labels a scored snapshot with a descriptive flow pattern.
type Tag string

const (
	TagAccum            Tag = "ACCUM"
	TagBigAccum         Tag = "BIG_ACCUM"
	TagDistribution     Tag = "DISTRIBUTION"
	TagRetailBuy        Tag = "RETAIL_BUY"
	TagInstitutionalBuy Tag = "INSTITUTIONAL_BUY"
	TagRetailAbsorption Tag = "RETAIL_ABSORPTION"
)

// ParticipantFlow is one participant's net transacted value and
// volume-weighted average price for one instrument on one date.
type ParticipantFlow struct {
	Participant string
	NetValue    float64
	AvgPrice    float64
}

// Snapshot is the canonical per-instrument flow picture for one date.
// Inflow holds net buyers (NetValue > 0), Outflow net sellers
// (NetValue < 0); both are ordered by descending magnitude.
type Snapshot struct {
	Symbol  string
	Date    time.Time
	Inflow  []ParticipantFlow
	Outflow []ParticipantFlow
}

// Valid reports whether the snapshot carries usable data. A one-sided
// snapshot counts as absent data, not a degenerate signal.
func (s Snapshot) Valid() bool {
	return len(s.Inflow) > 0 && len(s.Outflow) > 0
}

// Signal is the scored accumulation/distribution verdict for one instrument.
type Signal struct {
	Symbol       string
	NetMoney     float64
	Turnover     float64 // gross top-N value on both sides, used as a liquidity estimate
	Score        int
	Tags         []Tag
	LeadBuyer    string
	LeadSeller   string
	LeadAvgPrice float64
}

// HasTag reports whether the signal carries the given tag.
func (s Signal) HasTag(tag Tag) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func magnitude(f ParticipantFlow) float64 {
	return math.Abs(f.NetValue)
}
