// Command loadtest drives the detection API at a target rate and reports
// latency percentiles per content kind and the spread of risk bands.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// defaultRequestTimeout covers the server's simulated inference delay
// with room to spare.
const defaultRequestTimeout = 10 * time.Second

// Config holds the load test configuration
type Config struct {
	Target         string        // Detector API URL
	Duration       time.Duration // Test duration
	RPS            int           // Target requests per second
	Workers        int           // Number of concurrent workers
	RequestTimeout time.Duration // Per-request deadline
	Mix            KindMix       // Weighted content kinds
	Token          string        // Optional bearer token
	Output         string        // Output format (json/text)
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║              AI CONTENT DETECTOR LOAD TEST                    ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  Target       : %-45s ║\n", cfg.Target)
	fmt.Printf("║  Duration     : %-45s ║\n", cfg.Duration)
	fmt.Printf("║  Target RPS   : %-45d ║\n", cfg.RPS)
	fmt.Printf("║  Workers      : %-45d ║\n", cfg.Workers)
	fmt.Printf("║  Kind mix     : %-45s ║\n", cfg.Mix)
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived shutdown signal, finishing current requests...")
		cancel()
	}()

	client := NewClient(cfg.Target, cfg.Token, cfg.Mix)
	runner := NewRunner(cfg, client, os.Stdout)
	results := runner.Run(ctx)

	if cfg.Output == "json" {
		printJSONResults(results)
	} else {
		printTextResults(results)
	}
}

func parseFlags(args []string) (Config, error) {
	cfg := Config{}
	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)

	var mix string
	fs.StringVar(&cfg.Target, "target", "http://localhost:8000", "Detector API URL")
	fs.DurationVar(&cfg.Duration, "duration", 60*time.Second, "Test duration (e.g., 60s, 5m)")
	fs.IntVar(&cfg.RPS, "rps", 20, "Target requests per second")
	fs.IntVar(&cfg.Workers, "workers", 64, "Number of concurrent workers")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", defaultRequestTimeout, "Per-request timeout")
	fs.StringVar(&mix, "mix", "text=6,document=3,image=1", "Weighted content kinds")
	fs.StringVar(&cfg.Token, "token", os.Getenv("DETECTOR_TOKEN"), "Bearer token for Auth0-protected deployments")
	fs.StringVar(&cfg.Output, "output", "text", "Output format (json/text)")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	m, err := ParseKindMix(mix)
	if err != nil {
		return cfg, err
	}
	cfg.Mix = m

	if cfg.RPS < 1 {
		cfg.RPS = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	return cfg, nil
}

func printTextResults(results *Results) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                    LOAD TEST RESULTS                          ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  Duration        : %-42.1fs ║\n", results.Duration.Seconds())
	fmt.Printf("║  Target RPS      : %-42d ║\n", results.TargetRPS)
	fmt.Printf("║  Achieved RPS    : %-42.1f ║\n", results.AchievedRPS)
	fmt.Printf("║  Total Requests  : %-42s ║\n", formatNumber(results.TotalRequests))
	fmt.Println("╠═══════════════════════════════════════════════════════════════╣")
	fmt.Println("║  LATENCY (ms)                                                 ║")
	fmt.Printf("║    P50           : %-42.1f ║\n", results.LatencyP50)
	fmt.Printf("║    P90           : %-42.1f ║\n", results.LatencyP90)
	fmt.Printf("║    P99           : %-42.1f ║\n", results.LatencyP99)
	fmt.Printf("║    Max           : %-42.1f ║\n", results.LatencyMax)
	fmt.Println("╠═══════════════════════════════════════════════════════════════╣")
	fmt.Println("║  OUTCOMES                                                     ║")
	fmt.Printf("║    Success       : %-42s ║\n", withPercent(results.SuccessCount, results.TotalRequests))
	fmt.Printf("║    Fallback      : %-42s ║\n", withPercent(results.FallbackCount, results.TotalRequests))
	fmt.Printf("║    Rate limited  : %-42s ║\n", withPercent(results.RateLimited, results.TotalRequests))
	fmt.Printf("║    Timeout       : %-42s ║\n", withPercent(results.TimeoutCount, results.TotalRequests))
	fmt.Printf("║    Error         : %-42s ║\n", withPercent(results.ErrorCount, results.TotalRequests))
	fmt.Printf("║    Dropped ticks : %-42s ║\n", formatNumber(results.Dropped))
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	if len(results.KindResults) > 0 {
		fmt.Println()
		fmt.Println("Per-Kind Breakdown:")
		fmt.Println("┌────────────┬───────────┬──────────┬──────────┬──────────┬──────────┐")
		fmt.Println("│ Kind       │ Requests  │ Success  │ P50 (ms) │ P99 (ms) │ Avg AI % │")
		fmt.Println("├────────────┼───────────┼──────────┼──────────┼──────────┼──────────┤")
		for _, kr := range results.KindResults {
			fmt.Printf("│ %-10s │ %9d │ %7.1f%% │ %8.1f │ %8.1f │ %8.1f │\n",
				kr.Kind, kr.Requests, kr.SuccessRate*100, kr.LatencyP50, kr.LatencyP99, kr.AvgProbability)
		}
		fmt.Println("└────────────┴───────────┴──────────┴──────────┴──────────┴──────────┘")
	}

	if len(results.RiskBands) > 0 {
		fmt.Println()
		fmt.Println("Risk Bands:")
		for _, band := range []string{"high", "medium", "low"} {
			fmt.Printf("  %-7s %s\n", band, withPercent(results.RiskBands[band], results.SuccessCount))
		}
	}
}

func printJSONResults(results *Results) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling results: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func withPercent(n, total int64) string {
	return fmt.Sprintf("%-7s (%.1f%%)", formatNumber(n), float64(n)/float64(max(total, 1))*100)
}

func formatNumber(n int64) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
	if n >= 1000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}
