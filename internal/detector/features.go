package detector

import "strings"

// Features are the scalar values derived from text content. They are
// computed once per analysis and never mutated.
type Features struct {
	WordCount           int
	SentenceCount       int
	AvgWordsPerSentence float64
	VocabularyDiversity float64
	HasFormalConnectors bool
	HasPersonalMarkers  bool
}

// ExtractFeatures derives features using the default marker phrases.
func ExtractFeatures(content string) Features {
	return defaultTuning.ExtractFeatures(content)
}

// ExtractFeatures derives features using this tuning's marker phrases.
// It never fails; empty content yields all-zero counts.
func (t *Tuning) ExtractFeatures(content string) Features {
	words := strings.FieldsFunc(content, isSpace)
	sentences := countSentences(content)

	f := Features{
		WordCount:           len(words),
		SentenceCount:       sentences,
		AvgWordsPerSentence: float64(len(words)) / float64(max(sentences, 1)),
		HasFormalConnectors: containsAny(content, t.FormalConnectors),
		HasPersonalMarkers:  containsAny(content, t.PersonalMarkers),
	}

	if len(words) > 0 {
		distinct := make(map[string]struct{}, len(words))
		for _, w := range words {
			distinct[strings.ToLower(w)] = struct{}{}
		}
		f.VocabularyDiversity = float64(len(distinct)) / float64(len(words))
	}

	return f
}

// countSentences splits on runs of sentence terminators and counts the
// segments that hold something other than whitespace.
func countSentences(content string) int {
	segments := strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	n := 0
	for _, s := range segments {
		if strings.TrimFunc(s, isSpace) != "" {
			n++
		}
	}
	return n
}

// isSpace matches the ECMAScript whitespace and line terminator set. It
// differs from unicode.IsSpace in counting U+FEFF and not U+0085, so a byte
// order mark pasted with the text never becomes a word.
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', '\u00a0', '\u1680',
		'\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}

func containsAny(content string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(content, m) {
			return true
		}
	}
	return false
}
