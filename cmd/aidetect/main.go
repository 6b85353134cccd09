// aidetect scores files or text with the AI content detector from the
// command line.
//
// Usage:
//
//	# Analyze every text file under docs/
//	aidetect analyze 'docs/**/*.txt'
//
//	# Score stdin and print JSON
//	echo "Furthermore, ..." | aidetect text --json -
//
//	# Reproducible output with exported reports
//	aidetect analyze --seed 42 --export out/ essay.txt photo.png
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
