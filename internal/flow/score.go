package flow

// Scorer applies the rule cascade that turns a canonical snapshot into a
// signed accumulation score. Thresholds are configuration, not constants.
type Scorer struct {
	classifier *Classifier
	topN       int
	bigAccum   float64
	severeDist float64
}

// NewScorer builds a scorer with defaulted parameters: top-3 aggregation,
// a 1B strong-accumulation threshold and a 5B severe-distribution tier.
func NewScorer(classifier *Classifier, topN int, bigAccumThreshold, severeDistThreshold float64) *Scorer {
	if classifier == nil {
		classifier = NewClassifier(nil, nil)
	}
	if topN <= 0 {
		topN = 3
	}
	if bigAccumThreshold <= 0 {
		bigAccumThreshold = 1e9
	}
	if severeDistThreshold <= 0 {
		severeDistThreshold = 5e9
	}
	return &Scorer{
		classifier: classifier,
		topN:       topN,
		bigAccum:   bigAccumThreshold,
		severeDist: severeDistThreshold,
	}
}

// Score evaluates a valid snapshot. Both sides must be present; callers
// gate on Snapshot.Valid before reaching this stage.
func (s *Scorer) Score(snap Snapshot) Signal {
	buyTop := sumMagnitude(snap.Inflow, s.topN)
	sellTop := sumMagnitude(snap.Outflow, s.topN)
	net := buyTop - sellTop

	sig := Signal{
		Symbol:       snap.Symbol,
		NetMoney:     net,
		Turnover:     buyTop + sellTop,
		LeadBuyer:    snap.Inflow[0].Participant,
		LeadSeller:   snap.Outflow[0].Participant,
		LeadAvgPrice: snap.Inflow[0].AvgPrice,
	}

	switch {
	case net > s.bigAccum:
		sig.Score = 3
		sig.Tags = append(sig.Tags, TagBigAccum)
	case net > 0:
		sig.Score = 1
		sig.Tags = append(sig.Tags, TagAccum)
	case net < -s.severeDist:
		sig.Score = -5
		sig.Tags = append(sig.Tags, TagDistribution)
	case net < -s.bigAccum:
		sig.Score = -3
		sig.Tags = append(sig.Tags, TagDistribution)
	case net < 0:
		sig.Score = -1
		sig.Tags = append(sig.Tags, TagDistribution)
	}

	buyerClass := s.classifier.Classify(sig.LeadBuyer)
	sellerClass := s.classifier.Classify(sig.LeadSeller)

	if buyerClass == ClassInstitutional && net > 0 {
		sig.Tags = append(sig.Tags, TagInstitutionalBuy)
	}
	if buyerClass == ClassInstitutional && sellerClass == ClassRetail {
		// Institutional accumulation absorbing retail selling: the
		// strongest bullish pattern in the cascade.
		sig.Tags = append(sig.Tags, TagRetailAbsorption)
		sig.Score += 2
	}
	if buyerClass == ClassRetail && net < 0 {
		// Retail absorbing distribution: the strongest bearish pattern.
		sig.Tags = append(sig.Tags, TagRetailBuy)
		sig.Score -= 2
	}

	return sig
}

func sumMagnitude(flows []ParticipantFlow, n int) float64 {
	if n > len(flows) {
		n = len(flows)
	}
	var total float64
	for _, f := range flows[:n] {
		total += magnitude(f)
	}
	return total
}
