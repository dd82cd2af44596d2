package inference

// Confidence combines a heuristic prior with an empirical overlap ratio into
// a single score in [0,1]. With total == 0 the score is 0. With no prior
// (base == 0) the ratio is used directly; otherwise prior and ratio are
// blended half-and-half. Kept separate from the overlap sampler so other
// call sites can combine priors with evidence uniformly.
func Confidence(matches, total int, base float64) float64 {
	if total == 0 {
		return 0.0
	}

	ratio := float64(matches) / float64(total)

	if base == 0.0 {
		return clampConfidence(ratio)
	}
	return clampConfidence(0.5*base + 0.5*ratio)
}
