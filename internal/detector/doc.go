// Package detector provides the AI-content scoring engine.
//
// The engine is a heuristic, not a trained model:
//   - ExtractFeatures derives scalar features from text (word and sentence
//     counts, vocabulary diversity, marker phrases)
//   - Synthesize folds those features and a random base score into a
//     bounded probability and confidence
//   - SelectPatterns, SelectIndicators and Recommend pick descriptive labels
//     from static reference tables keyed by content kind
//   - Detector.Detect composes the three behind a simulated processing delay
//
// Every function that draws randomness takes an explicit RandomSource so
// results are reproducible under a seeded generator.
package detector
