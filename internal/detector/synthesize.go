package detector

// Synthesize maps features onto a probability and confidence using the
// default tuning.
func Synthesize(kind ContentKind, f *Features, rng RandomSource) (aiProbability, confidence float64) {
	return defaultTuning.Synthesize(kind, f, rng)
}

// Synthesize maps features onto a probability in [0,100] and a confidence.
//
// Images ignore features entirely and draw both values at random. For text
// and documents a random base score is shifted by each triggered adjustment
// and clamped once at the end. A nil f is treated as empty content.
func (t *Tuning) Synthesize(kind ContentKind, f *Features, rng RandomSource) (aiProbability, confidence float64) {
	if kind == KindImage {
		aiProbability = t.ImageProbability.Draw(rng)
		confidence = t.ImageConfidence.Draw(rng)
		return clamp(aiProbability, 0, 100), clamp(confidence, 0, 100)
	}

	if f == nil {
		f = &Features{}
	}

	base := t.BaseScore.Draw(rng)

	if f.HasFormalConnectors {
		base += t.FormalConnectorBoost
	}
	if f.AvgWordsPerSentence > t.LongSentenceWords {
		base += t.LongSentenceBoost
	}
	if f.HasPersonalMarkers {
		base -= t.PersonalMarkerPenalty
	}
	if f.WordCount < t.ShortTextWords {
		base -= t.ShortTextPenalty
		confidence = t.ShortTextConfidence.Draw(rng)
	} else {
		confidence = t.TextConfidence.Draw(rng)
	}
	if f.VocabularyDiversity < t.LowDiversityRatio {
		base += t.LowDiversityBoost
	}

	return clamp(base, 0, 100), clamp(confidence, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
