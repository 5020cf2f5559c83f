// Command stream connects to a single camera, authenticates, and prints
// frame statistics while optionally writing the raw Annex-B payloads to a
// file or repacketizing them into RTP for local preview.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethan/camiotc/pkg/account"
	"github.com/ethan/camiotc/pkg/config"
	"github.com/ethan/camiotc/pkg/logger"
	"github.com/ethan/camiotc/pkg/model"
	"github.com/ethan/camiotc/pkg/preview"
	"github.com/ethan/camiotc/pkg/runtime"
	"github.com/ethan/camiotc/pkg/transport/faketransport"
)

func main() {
	fs := flag.NewFlagSet("stream", flag.ExitOnError)
	logFlags := logger.RegisterFlags(fs)

	envPath := fs.String("env", ".env", "path to the .env-style config file")
	outFile := fs.String("out", "", "write raw Annex-B frame payloads to this file")
	previewAddr := fs.String("preview", "", "repacketize into RTP and send to this host:port (e.g. 127.0.0.1:5004)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Connect to a camera, authenticate, and stream frames.\n\n")
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

	lgr.Info("starting stream", "log_config", logFlags.String())

	cfg, err := config.Load(*envPath)
	if err != nil {
		lgr.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		lgr.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	acct, camera, err := resolveAccountAndCamera(ctx, cfg, lgr.Logger)
	if err != nil {
		lgr.Error("failed to resolve account/camera", "error", err)
		os.Exit(1)
	}
	lgr.Info("resolved camera", "mac", camera.MAC, "nickname", camera.Nickname, "doorbell", camera.IsDoorbell())

	// This module ships no cgo and no native transport library; the fake
	// transport stands in for whatever concrete transport.Transport an
	// embedder links in production (spec.md §6).
	t := faketransport.New()
	if camera.IsDoorbell() {
		t.RegisterDoorbellResponders(3, "AAAAAAAAAAAAAAAA")
	} else {
		t.RegisterHappyPathResponders(3, "AAAAAAAAAAAAAAAA")
	}

	rt, err := runtime.Open(t, cfg.Session.UDPPort, lgr)
	if err != nil {
		lgr.Error("failed to open runtime", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	sess, err := rt.Connect(ctx, acct, camera)
	if err != nil {
		lgr.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer sess.Close()
	lgr.Info("session authenticated", "state", sess.State().String())

	var out *os.File
	if *outFile != "" {
		out, err = os.Create(*outFile)
		if err != nil {
			lgr.Error("failed to open output file", "error", err)
			os.Exit(1)
		}
		defer out.Close()
	}

	var previewBridge *preview.Bridge
	if *previewAddr != "" {
		previewBridge, err = preview.New(*previewAddr, lgr.Logger)
		if err != nil {
			lgr.Error("failed to start preview bridge", "error", err)
			os.Exit(1)
		}
		defer previewBridge.Close()
		lgr.Info("preview bridge active", "dest", *previewAddr)
		go func() {
			if err := previewBridge.ReadReceiverReports(ctx); err != nil && ctx.Err() == nil {
				lgr.Warn("preview receiver-report reader stopped", "error", err)
			}
		}()
	}

	statsTicker := time.NewTicker(10 * time.Second)
	defer statsTicker.Stop()

	frames := sess.Frames(ctx)
	var frameCount, byteCount uint64
	for {
		select {
		case f, ok := <-frames:
			if !ok {
				lgr.Info("frame stream ended")
				printSummary(frameCount, byteCount)
				return
			}
			frameCount++
			byteCount += uint64(len(f.Payload))

			if out != nil {
				if _, err := out.Write(f.Payload); err != nil {
					lgr.Warn("failed to write frame payload", "error", err)
				}
			}
			if previewBridge != nil {
				if err := previewBridge.WriteFrame(f.Payload, f.Info); err != nil {
					lgr.Warn("failed to forward frame to preview", "error", err)
				}
			}

		case <-statsTicker.C:
			lgr.Info("stream stats",
				"frames", frameCount,
				"bytes", byteCount,
			)

		case <-ctx.Done():
			lgr.Info("shutting down")
			printSummary(frameCount, byteCount)
			return
		}
	}
}

// resolveAccountAndCamera logs in against the account API when credentials
// are configured, falling back to the bare Account/Camera values from
// config when the caller only wants to exercise the session/runtime
// layers directly (e.g. against a test fixture camera).
func resolveAccountAndCamera(ctx context.Context, cfg *config.Config, logger interface {
	Info(string, ...any)
	Warn(string, ...any)
}) (model.Account, model.Camera, error) {
	client := account.New("", nil)
	if err := client.Login(ctx, cfg.Account.Email, cfg.Account.Password); err != nil {
		return model.Account{}, model.Camera{}, fmt.Errorf("login: %w", err)
	}

	acct, err := client.GetAccount(ctx)
	if err != nil {
		return model.Account{}, model.Camera{}, fmt.Errorf("get account: %w", err)
	}

	cameras, err := client.GetCameraList(ctx)
	if err != nil {
		return model.Account{}, model.Camera{}, fmt.Errorf("get camera list: %w", err)
	}

	for _, c := range cameras {
		if cfg.Camera.MAC != "" && c.MAC == cfg.Camera.MAC {
			return acct, c, nil
		}
		if cfg.Camera.UID != "" && c.UID == cfg.Camera.UID {
			return acct, c, nil
		}
	}
	if len(cameras) > 0 {
		logger.Warn("configured camera not found, using first camera on account",
			"configured_mac", cfg.Camera.MAC, "configured_uid", cfg.Camera.UID)
		return acct, cameras[0], nil
	}
	return model.Account{}, model.Camera{}, fmt.Errorf("no cameras found on account")
}

func printSummary(frames, bytes uint64) {
	fmt.Printf("\nstream summary: %d frames, %d bytes\n", frames, bytes)
}
