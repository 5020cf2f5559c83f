// Package diag runs a connectivity preflight before a session Connect
// attempt: a STUN binding request to discover the caller's reflexive
// address, and an ICE agent gathering host/srflx candidates. Neither result
// changes how ConnectByUIDParallel is invoked; the native transport owns
// the actual P2P/relay path selection (spec.md's NAT-traversal non-goal).
// This package only reports what it sees, the way the teacher's
// cmd/diagnose reports NAL-unit flow before declaring a stream healthy.
package diag

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/pion/ice/v4"
	"github.com/pion/stun/v3"
)

// DefaultSTUNServer is a public STUN server suitable for a quick reflexive
// address probe.
const DefaultSTUNServer = "stun.l.google.com:19302"

// Report summarizes the local connectivity posture observed during a
// preflight run.
type Report struct {
	STUNServer     string
	ReflexiveAddr  string
	RoundTrip      time.Duration
	HostCandidates []string
	SrflxCandidates []string
}

// ProbeSTUN sends a single STUN binding request to server and returns the
// caller's reflexive transport address as reported by the server.
func ProbeSTUN(ctx context.Context, server string) (addr string, rtt time.Duration, err error) {
	conn, err := net.Dial("udp", server)
	if err != nil {
		return "", 0, fmt.Errorf("diag: dial stun server %s: %w", server, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(5 * time.Second))
	}

	msg := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	start := time.Now()
	if _, err := conn.Write(msg.Raw); err != nil {
		return "", 0, fmt.Errorf("diag: write stun request: %w", err)
	}

	buf := make([]byte, 1500)
	n, err := conn.Read(buf)
	if err != nil {
		return "", 0, fmt.Errorf("diag: read stun response: %w", err)
	}
	rtt = time.Since(start)

	resp := &stun.Message{Raw: buf[:n]}
	if err := resp.Decode(); err != nil {
		return "", 0, fmt.Errorf("diag: decode stun response: %w", err)
	}

	var xorAddr stun.XORMappedAddress
	if err := xorAddr.GetFrom(resp); err != nil {
		return "", 0, fmt.Errorf("diag: no XOR-MAPPED-ADDRESS in stun response: %w", err)
	}

	return fmt.Sprintf("%s:%d", xorAddr.IP, xorAddr.Port), rtt, nil
}

// GatherCandidates runs a short-lived ICE agent to collect host and
// server-reflexive candidates, reporting local connectivity posture
// without performing any ICE connectivity checks against a peer.
func GatherCandidates(ctx context.Context, stunServer string) ([]string, []string, error) {
	urls, err := parseSTUNURL(stunServer)
	if err != nil {
		return nil, nil, err
	}

	agent, err := ice.NewAgent(&ice.AgentConfig{
		NetworkTypes: []ice.NetworkType{ice.NetworkTypeUDP4, ice.NetworkTypeUDP6},
		Urls:         []*stun.URI{urls},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("diag: create ice agent: %w", err)
	}
	defer agent.Close()

	var host, srflx []string
	done := make(chan struct{})
	if err := agent.OnCandidate(func(c ice.Candidate) {
		if c == nil {
			close(done)
			return
		}
		switch c.Type() {
		case ice.CandidateTypeHost:
			host = append(host, c.String())
		case ice.CandidateTypeServerReflexive:
			srflx = append(srflx, c.String())
		}
	}); err != nil {
		return nil, nil, fmt.Errorf("diag: register candidate handler: %w", err)
	}

	if err := agent.GatherCandidates(); err != nil {
		return nil, nil, fmt.Errorf("diag: gather candidates: %w", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		return host, srflx, ctx.Err()
	case <-time.After(10 * time.Second):
	}

	return host, srflx, nil
}

func parseSTUNURL(server string) (*stun.URI, error) {
	u, err := stun.ParseURI("stun:" + server)
	if err != nil {
		return nil, fmt.Errorf("diag: parse stun url %q: %w", server, err)
	}
	return u, nil
}

// Run performs a full preflight: STUN reflexive-address probe followed by
// ICE candidate gathering against the same server.
func Run(ctx context.Context, stunServer string) (Report, error) {
	if stunServer == "" {
		stunServer = DefaultSTUNServer
	}

	addr, rtt, err := ProbeSTUN(ctx, stunServer)
	if err != nil {
		return Report{}, err
	}

	host, srflx, err := GatherCandidates(ctx, stunServer)
	if err != nil {
		return Report{STUNServer: stunServer, ReflexiveAddr: addr, RoundTrip: rtt}, err
	}

	return Report{
		STUNServer:      stunServer,
		ReflexiveAddr:   addr,
		RoundTrip:       rtt,
		HostCandidates:  host,
		SrflxCandidates: srflx,
	}, nil
}
