// Soak test runner for the DELTA congestion controller.
//
// This tool drives synthetic RTT/loss samples through a delta.Controller
// for an extended period (up to 24 hours or more) and monitors it for
// memory growth, invariant violations, and estimate anomalies — the same
// long-duration discipline the upstream bandwidth estimator soak applied
// to its own control loop.
//
// Usage:
//
//	go run ./cmd/deltasoak -duration 24h
//	go run ./cmd/deltasoak -duration 1h  # shorter test
//
// Exposes pprof endpoint at :6060 for live profiling:
//
//	curl http://localhost:6060/debug/pprof/heap > heap.pprof
//	go tool pprof heap.pprof
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // Enable pprof endpoints
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/wavry/delta/pkg/delta"
)

const (
	sampleIntervalMs      = 20 // 50 samples/sec, a typical RTCP RR cadence
	statusIntervalMinutes = 5
)

// SoakResult contains the results of a soak test run.
type SoakResult struct {
	Duration         time.Duration
	TotalSamples     int
	FinalBitrateKbps uint32
	FinalFPS         uint16
	FinalFECRatio    float32
	PeakHeapMB       float64
	TotalGCCycles    uint32
	SuspiciousEvents int
	Status           string
}

func main() {
	duration := flag.Duration("duration", 24*time.Hour, "Test duration (e.g., 1h, 24h)")
	pprofPort := flag.Int("pprof-port", 6060, "Port for pprof HTTP server")
	seed := flag.Int64("seed", 1, "RNG seed for synthetic traffic generation")
	flag.Parse()

	fmt.Printf("DELTA Soak Test Runner\n")
	fmt.Printf("=======================\n")
	fmt.Printf("Duration: %v\n", *duration)
	fmt.Printf("Pprof:    http://localhost:%d/debug/pprof/\n", *pprofPort)
	fmt.Printf("\n")

	go func() {
		addr := fmt.Sprintf(":%d", *pprofPort)
		if err := http.ListenAndServe(addr, nil); err != nil {
			fmt.Printf("Warning: pprof server failed: %v\n", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived %v, shutting down gracefully...\n", sig)
		cancel()
	}()

	result := runSoakTest(ctx, *duration, *seed)
	printSummary(result)

	if result.Status == "PASS" {
		os.Exit(0)
	}
	os.Exit(1)
}

// syntheticNetwork produces a drifting RTT/loss trace that cycles through
// calm periods, gradual ramps, and sudden congestion spikes so the soak
// exercises Stable, Rising, and Congested alike over a long run.
type syntheticNetwork struct {
	rng       *rand.Rand
	baseRTTUs float64
	phase     int // 0=stable, 1=ramp, 2=spike
	phaseTick int
}

func newSyntheticNetwork(seed int64) *syntheticNetwork {
	return &syntheticNetwork{rng: rand.New(rand.NewSource(seed)), baseRTTUs: 20_000}
}

func (n *syntheticNetwork) next() (rttUs uint64, lossFraction float64) {
	n.phaseTick++
	switch n.phase {
	case 0: // stable: small jitter around the baseline
		rttUs = uint64(n.baseRTTUs + (n.rng.Float64()-0.5)*1000)
		if n.phaseTick > 500 {
			n.phase, n.phaseTick = 1, 0
		}
	case 1: // ramp: RTT climbs toward a spike
		rttUs = uint64(n.baseRTTUs + float64(n.phaseTick)*400)
		if n.phaseTick > 40 {
			n.phase, n.phaseTick = 2, 0
		}
	case 2: // spike: hard congestion with intermittent loss, then release
		rttUs = uint64(n.baseRTTUs + 25_000 + (n.rng.Float64())*5000)
		if n.rng.Float64() < 0.1 {
			lossFraction = n.rng.Float64() * 0.1
		}
		if n.phaseTick > 60 {
			n.phase, n.phaseTick = 0, 0
		}
	}
	if rttUs == 0 {
		rttUs = 1
	}
	return rttUs, lossFraction
}

func runSoakTest(ctx context.Context, duration time.Duration, seed int64) SoakResult {
	controller, err := delta.NewController(delta.DefaultConfig())
	if err != nil {
		fmt.Printf("FATAL: invalid config: %v\n", err)
		return SoakResult{Status: "FAIL"}
	}

	net := newSyntheticNetwork(seed)
	result := SoakResult{Status: "PASS"}

	var memStats runtime.MemStats
	var nowUs uint64

	startTime := time.Now()
	lastStatusTime := startTime
	statusInterval := time.Duration(statusIntervalMinutes) * time.Minute
	sampleInterval := time.Duration(sampleIntervalMs) * time.Millisecond
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	fmt.Printf("[%s] Starting soak test...\n", formatDuration(0))

	for {
		select {
		case <-ctx.Done():
			result.Duration = time.Since(startTime)
			return result

		case now := <-ticker.C:
			elapsed := now.Sub(startTime)
			if elapsed >= duration {
				result.Duration = elapsed
				return result
			}

			rttUs, lossFraction := net.next()
			nowUs += uint64(sampleIntervalMs * 1000)
			controller.ProcessSample(nowUs, rttUs, lossFraction)
			result.TotalSamples++

			bitrate := controller.Bitrate()
			fps := controller.FPS()
			fec := controller.FECRatio()
			result.FinalBitrateKbps = bitrate
			result.FinalFPS = fps
			result.FinalFECRatio = fec

			if bitrate < delta.DefaultConfig().MinBitrateKbps || bitrate > delta.DefaultConfig().MaxBitrateKbps {
				fmt.Printf("[%s] ERROR: bitrate out of bounds: %d kbps\n", formatDuration(elapsed), bitrate)
				result.SuspiciousEvents++
				result.Status = "FAIL"
			}
			if math.IsNaN(float64(fec)) || fec < 0 || fec > 1 {
				fmt.Printf("[%s] ERROR: invalid fec_ratio: %v\n", formatDuration(elapsed), fec)
				result.SuspiciousEvents++
				result.Status = "FAIL"
			}

			if now.Sub(lastStatusTime) >= statusInterval {
				lastStatusTime = now
				runtime.ReadMemStats(&memStats)

				heapMB := float64(memStats.HeapAlloc) / (1024 * 1024)
				if heapMB > result.PeakHeapMB {
					result.PeakHeapMB = heapMB
				}
				result.TotalGCCycles = memStats.NumGC

				fmt.Printf("[%s] Samples: %d, Bitrate: %d kbps, FPS: %d, FEC: %.3f, State: %s, HeapAlloc: %.2f MB, NumGC: %d\n",
					formatDuration(elapsed), result.TotalSamples, bitrate, fps, fec, controller.State(),
					heapMB, memStats.NumGC)

				if heapMB > 100 {
					fmt.Printf("[%s] ERROR: Memory limit exceeded: %.2f MB\n", formatDuration(elapsed), heapMB)
					result.Status = "FAIL"
				}
			}
		}
	}
}

func printSummary(result SoakResult) {
	fmt.Printf("\n")
	fmt.Printf("Soak Test Complete\n")
	fmt.Printf("==================\n")
	fmt.Printf("Duration:          %v\n", result.Duration.Round(time.Second))
	fmt.Printf("Total samples:     %d\n", result.TotalSamples)
	fmt.Printf("Final bitrate:     %d kbps\n", result.FinalBitrateKbps)
	fmt.Printf("Final fps:         %d\n", result.FinalFPS)
	fmt.Printf("Final fec_ratio:   %.3f\n", result.FinalFECRatio)
	fmt.Printf("Peak HeapAlloc:    %.2f MB\n", result.PeakHeapMB)
	fmt.Printf("Total GC cycles:   %d\n", result.TotalGCCycles)
	fmt.Printf("Suspicious events: %d\n", result.SuspiciousEvents)
	fmt.Printf("Status:            %s\n", result.Status)
	fmt.Printf("\n")

	fmt.Printf("Pass Criteria:\n")
	fmt.Printf("  - No panics:            %s\n", checkMark(true))
	fmt.Printf("  - Bitrate in bounds:    %s\n", checkMark(result.SuspiciousEvents == 0))
	fmt.Printf("  - Peak memory < 100 MB: %s\n", checkMark(result.PeakHeapMB < 100))
}

func formatDuration(d time.Duration) string {
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func checkMark(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}
