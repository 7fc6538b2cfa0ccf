package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/claude/strongsight/internal/config"
	"github.com/claude/strongsight/internal/counter"
	"github.com/claude/strongsight/internal/recording"
)

func main() {
	configPath := flag.String("config", "", "path to config file (counter thresholds and recording path)")
	dbPath := flag.String("recording", "", "SQLite recording file (overrides recording.path)")
	sessionArg := flag.String("session", "", "session id to replay (default: most recent)")
	list := flag.Bool("list", false, "list recorded sessions and exit")
	downAngle := flag.Float64("down-angle", 0, "override counter.down_angle")
	upAngle := flag.Float64("up-angle", 0, "override counter.up_angle")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *dbPath != "" {
		cfg.Recording.Path = *dbPath
	}
	if cfg.Recording.Path == "" {
		fmt.Fprintf(os.Stderr, "Usage: strongsight-replay -recording poses.db [-session id] [-list]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *downAngle > 0 {
		cfg.Counter.DownAngle = *downAngle
	}
	if *upAngle > 0 {
		cfg.Counter.UpAngle = *upAngle
	}

	ctx := context.Background()
	store, err := recording.Open(cfg.Recording.Path)
	if err != nil {
		log.Error("failed to open recording", "path", cfg.Recording.Path, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if *list {
		sessions, err := store.Sessions(ctx)
		if err != nil {
			log.Error("listing sessions failed", "error", err)
			os.Exit(1)
		}
		for _, s := range sessions {
			log.Info("session", "id", s.ID, "device", s.Device, "started_at", s.StartedAt, "frames", s.Frames)
		}
		return
	}

	var id uuid.UUID
	if *sessionArg == "" {
		latest, err := store.Latest(ctx)
		if err != nil {
			log.Error("no session to replay", "error", err)
			os.Exit(1)
		}
		id = latest.ID
	} else if id, err = uuid.Parse(*sessionArg); err != nil {
		log.Error("invalid session id", "session", *sessionArg, "error", err)
		os.Exit(1)
	}

	frames, err := store.Frames(ctx, id)
	if err != nil {
		log.Error("loading frames failed", "session", id, "error", err)
		os.Exit(1)
	}

	t := cfg.Counter.Thresholds()
	cnt, err := counter.New(t)
	if err != nil {
		log.Error("invalid counter thresholds", "error", err)
		os.Exit(1)
	}

	log.Info("replaying session", "session", id, "frames", len(frames), "down_angle", t.DownAngle, "up_angle", t.UpAngle)
	sum := recording.Replay(frames, cnt)
	for _, rep := range sum.Reps {
		log.Info("squat detected", "count", rep.Count, "at", rep.At, "left_knee", int(rep.LeftKnee), "right_knee", int(rep.RightKnee))
	}
	log.Info("replay complete",
		"frames", sum.Frames,
		"tracked", sum.Tracked,
		"skipped", sum.Skipped,
		"squats", len(sum.Reps),
		"duration", sum.Duration,
	)
}
