package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/claude/strongsight/internal/capture"
	"github.com/claude/strongsight/internal/config"
	"github.com/claude/strongsight/internal/counter"
	"github.com/claude/strongsight/internal/display"
	"github.com/claude/strongsight/internal/pose"
	"github.com/claude/strongsight/internal/pose/dnn"
	"github.com/claude/strongsight/internal/recording"
	"github.com/claude/strongsight/internal/session"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	recordPath := flag.String("record", "", "record landmark streams to this SQLite file (overrides recording.path)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(Version)
		return
	}

	level := new(slog.LevelVar)
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if l, err := cfg.Log.SlogLevel(); err == nil {
		level.Set(l)
	}
	if *recordPath != "" {
		cfg.Recording.Path = *recordPath
	}

	sessionID := uuid.New()
	log = log.With("session", sessionID.String())
	log.Info("StrongSight starting", "version", Version, "device", cfg.Camera.Device, "mode", cfg.Pose.RunningMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cnt, err := counter.New(cfg.Counter.Thresholds())
	if err != nil {
		log.Error("invalid counter thresholds", "error", err)
		os.Exit(1)
	}
	cnt.OnRep(func(ev counter.RepEvent) {
		log.Info("squat detected", "count", ev.Count, "left_knee", int(ev.LeftKnee), "right_knee", int(ev.RightKnee))
	})

	// Load pose model
	detector, err := dnn.New(dnn.Config{
		ModelPath:       cfg.Pose.ModelPath,
		InputSize:       cfg.Pose.InputSize,
		InputLayout:     cfg.Pose.InputLayout,
		Backend:         cfg.Pose.Backend,
		Target:          cfg.Pose.Target,
		MinPoseScore:    cfg.Pose.MinPoseScore,
		LandmarksOutput: dnn.DefaultConfig().LandmarksOutput,
		PoseFlagOutput:  dnn.DefaultConfig().PoseFlagOutput,
	})
	if err != nil {
		log.Error("failed to load pose model", "path", cfg.Pose.ModelPath, "error", err)
		os.Exit(1)
	}
	log.Info("pose model loaded", "path", cfg.Pose.ModelPath, "backend", cfg.Pose.Backend, "target", cfg.Pose.Target)

	// Optional landmark recording
	var (
		store    *recording.Store
		recorder *recording.Recorder
	)
	if cfg.Recording.Path != "" {
		store, err = recording.Open(cfg.Recording.Path)
		if err != nil {
			detector.Close()
			log.Error("failed to open recording", "path", cfg.Recording.Path, "error", err)
			os.Exit(1)
		}

		recorder, err = store.StartSession(ctx, sessionID, cfg.Camera.Device, time.Now())
		if err != nil {
			detector.Close()
			store.Close()
			log.Error("failed to start recording", "error", err)
			os.Exit(1)
		}
		log.Info("recording landmarks", "path", cfg.Recording.Path)
	}

	// Open camera
	cam, err := capture.Open(capture.Config{
		Device: cfg.Camera.Device,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
	})
	if err != nil {
		detector.Close()
		if recorder != nil {
			recorder.Close()
			store.Close()
		}
		log.Error("failed to open camera", "device", cfg.Camera.Device, "error", err)
		os.Exit(1)
	}
	log.Info("camera opened", "device", cam.Device())

	latest := &pose.Latest{}
	var runner interface {
		session.Runner[*capture.Frame]
		Stats() pose.RunnerStats
	}
	if cfg.Pose.RunningMode == config.ModeSingle {
		runner = pose.NewInline[*capture.Frame](detector, latest, log)
	} else {
		runner = pose.NewAsync[*capture.Frame](detector, latest, log)
	}

	window := display.Open(cfg.Display.WindowTitle, cfg.Display.QuitKeyCode())

	opts := []session.Option{session.WithRelease(detector)}
	if recorder != nil {
		opts = append(opts, session.WithRecorder(recorder))
	}
	sess := session.New[*capture.Frame](cam, runner, window, latest, cnt, log, opts...)

	stats, err := sess.Run(ctx)
	printStats(log, stats, runner.Stats())
	if store != nil {
		if cerr := store.Close(); cerr != nil {
			log.Warn("closing recording failed", "error", cerr)
		}
	}
	if err != nil {
		log.Error("session failed", "error", err)
		os.Exit(1)
	}
	log.Info("session complete", "squats", cnt.Count())
}

func printStats(log *slog.Logger, s *session.Stats, r pose.RunnerStats) {
	if s == nil {
		return
	}
	log.Info("session stats",
		"reason", s.Reason,
		"duration", s.Duration.Round(time.Millisecond),
		"frames", s.Frames,
		"pose_results", s.Results,
		"reps", s.Reps,
		"recorded", s.Recorded,
		"record_failures", s.RecordFailures,
		"inference_submitted", r.Submitted,
		"inference_dropped", r.Dropped,
		"inference_failed", r.Failed,
	)
}
