// Command diagnose runs a connectivity preflight: a STUN reflexive-address
// probe and an ICE candidate gather, reporting the local connectivity
// posture before a real connect attempt. It does not connect to any
// camera; it is a standalone network-reachability check, grounded on the
// teacher's cmd/diagnose reporting idiom but repurposed from NAL-unit
// flow diagnostics to STUN/ICE preflight (pion/webrtc's full media
// pipeline has no counterpart in this domain's scope).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethan/camiotc/pkg/diag"
	"github.com/ethan/camiotc/pkg/logger"
)

func main() {
	fs := flag.NewFlagSet("diagnose", flag.ExitOnError)
	logFlags := logger.RegisterFlags(fs)
	stunServer := fs.String("stun-server", diag.DefaultSTUNServer, "STUN server to probe (host:port)")
	timeout := fs.Duration("timeout", 15*time.Second, "overall preflight timeout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Connectivity Preflight Tool\n\n")
		fmt.Fprintf(os.Stderr, "This tool will:\n")
		fmt.Fprintf(os.Stderr, "  1. Send a STUN binding request to discover your reflexive address\n")
		fmt.Fprintf(os.Stderr, "  2. Gather host and server-reflexive ICE candidates\n")
		fmt.Fprintf(os.Stderr, "  3. Report what it found\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		logger.PrintUsageExamples()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing flags: %v\n", err)
		os.Exit(1)
	}

	logConfig, err := logFlags.ToConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error configuring logger: %v\n", err)
		os.Exit(1)
	}
	lgr, err := logger.New(logConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer lgr.Close()
	logger.SetDefault(lgr)

	lgr.Info("=== Connectivity Preflight ===", "stun_server", *stunServer)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	report, err := diag.Run(ctx, *stunServer)
	if err != nil {
		lgr.Error("preflight failed", "error", err)
		printReport(report, err)
		os.Exit(1)
	}

	printReport(report, nil)
}

func printReport(report diag.Report, runErr error) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("CONNECTIVITY PREFLIGHT RESULTS")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("STUN server:      %s\n", report.STUNServer)
	if report.ReflexiveAddr != "" {
		fmt.Printf("Reflexive addr:   %s (rtt %s)\n", report.ReflexiveAddr, report.RoundTrip)
	}
	fmt.Printf("Host candidates:  %d\n", len(report.HostCandidates))
	for _, c := range report.HostCandidates {
		fmt.Printf("  - %s\n", c)
	}
	fmt.Printf("Srflx candidates: %d\n", len(report.SrflxCandidates))
	for _, c := range report.SrflxCandidates {
		fmt.Printf("  - %s\n", c)
	}
	if runErr != nil {
		fmt.Printf("\nerror: %v\n", runErr)
		fmt.Println("\nLikely cause: outbound UDP to the STUN server is blocked, or no")
		fmt.Println("network interface has a usable address. A ConnectByUIDParallel call")
		fmt.Println("against a camera over this network is unlikely to establish direct P2P.")
	} else if len(report.SrflxCandidates) == 0 {
		fmt.Println("\nNo server-reflexive candidate gathered: this host is likely behind a")
		fmt.Println("NAT that does not support the basic mapping model. Expect the transport")
		fmt.Println("to fall back to relay mode for this camera.")
	} else {
		fmt.Println("\nNetwork looks reachable for P2P connect attempts.")
	}
	fmt.Println(strings.Repeat("=", 60))
}
