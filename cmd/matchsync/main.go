// Command matchsync discovers an event's webcasts, keeps the stream pool in a
// YAML file, calibrates it, and prints where each match starts in the video.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/onnwee/matchsync/config"
	"github.com/onnwee/matchsync/event"
	"github.com/onnwee/matchsync/service"
	"github.com/onnwee/matchsync/stream"
	"github.com/onnwee/matchsync/telemetry"
)

var build string
var semanticVersion = "v0.1.0-dev" + build

const (
	skuFlag       = "sku"
	streamsFlag   = "streams"
	outputFlag    = "output"
	streamFlag    = "stream"
	matchTimeFlag = "match-time"
	positionFlag  = "position"
	deltaFlag     = "delta"
	teamFlag      = "team"
	divisionFlag  = "division"
	formatFlag    = "format"
	phaseFlag     = "phase"
	attemptsFlag  = "attempts"
	intervalFlag  = "interval"
)

const defaultPingTimeout = 5 * time.Second

// engine is what the commands need from the service layer.
type engine interface {
	Streams(ctx context.Context, sku string) (event.Event, stream.Pool, error)
	ResolveEvent(ctx context.Context, sku string, pool stream.Pool) (service.Resolution, error)
	Calibrate(ctx context.Context, pool stream.Pool) service.Calibration
	ManualCalibrate(pool stream.Pool, streamID string, matchTime time.Time, position float64) (stream.Pool, error)
	Nudge(pool stream.Pool, streamID string, delta time.Duration) (stream.Pool, error)
}

// opener builds the online engine. Only commands that reach a provider call it.
type opener func(ctx context.Context) (engine, func() error, error)

func openService(ctx context.Context) (engine, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	svc, closeFn, err := service.FromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return svc, closeFn, nil
}

func main() {
	if err := newApp(openService, os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(open opener, stdout, stderr io.Writer) *cli.App {
	c := &commands{open: open, stdout: stdout, offline: &service.Service{}}
	return &cli.App{
		Name:      "matchsync",
		Usage:     "Find robotics competition livestreams and jump to any match",
		Version:   semanticVersion,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Usage: "dotenv file to load before reading configuration", Value: ".env"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", Value: "warn", EnvVars: []string{"LOG_LEVEL"}},
			&cli.StringFlag{Name: "log-format", Usage: "text or json", Value: "text", EnvVars: []string{"LOG_FORMAT"}},
		},
		Before: func(cCtx *cli.Context) error {
			// a missing dotenv file is normal outside local dev
			_ = godotenv.Load(cCtx.String("env-file"))
			lvl := (&config.Config{LogLevel: cCtx.String("log-level")}).SlogLevel()
			slog.SetDefault(telemetry.NewLogger(stderr, lvl, cCtx.String("log-format")))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "discover",
				Usage: "Discover an event's webcasts and write the provisioned stream pool",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: skuFlag, Usage: "event SKU, e.g. RE-VRC-23-1234", Required: true},
					&cli.StringFlag{Name: outputFlag, Aliases: []string{"o"}, Usage: `pool file to write, or "-" for stdout`, Value: stdoutName},
				},
				Action: c.discover,
			},
			{
				Name:  "resolve",
				Usage: "Print the stream and seek offset for every match",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: streamsFlag, Usage: "pool file", Required: true},
					&cli.StringFlag{Name: skuFlag, Usage: "event SKU (defaults to the pool file's)"},
					&cli.StringFlag{Name: teamFlag, Usage: "only matches this team plays in"},
					&cli.IntFlag{Name: divisionFlag, Usage: "only matches of this division id"},
					&cli.StringFlag{Name: phaseFlag, Usage: "only practice, qualification or elimination matches"},
					&cli.StringFlag{Name: formatFlag, Usage: "table or yaml", Value: "table"},
				},
				Action: c.resolve,
			},
			{
				Name:  "calibrate",
				Usage: "Calibrate streams automatically, or one stream from an observed match",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: streamsFlag, Usage: "pool file, rewritten in place unless --output is set", Required: true},
					&cli.StringFlag{Name: outputFlag, Aliases: []string{"o"}, Usage: `pool file to write, or "-" for stdout`},
					&cli.StringFlag{Name: streamFlag, Usage: "stream id for manual calibration"},
					&cli.TimestampFlag{Name: matchTimeFlag, Usage: "RFC3339 start of the match on screen", Layout: time.RFC3339},
					&cli.Float64Flag{Name: positionFlag, Usage: "playback position in seconds when that match started"},
					&cli.IntFlag{Name: attemptsFlag, Usage: "auto mode: passes to make while streams stay uncalibrated, e.g. before a live stream starts", Value: 1},
					&cli.DurationFlag{Name: intervalFlag, Usage: "auto mode: wait between passes", Value: 30 * time.Second},
				},
				Action: c.calibrate,
			},
			{
				Name:  "nudge",
				Usage: "Shift a calibrated stream's origin to absorb drift",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: streamsFlag, Usage: "pool file, rewritten in place unless --output is set", Required: true},
					&cli.StringFlag{Name: outputFlag, Aliases: []string{"o"}, Usage: `pool file to write, or "-" for stdout`},
					&cli.StringFlag{Name: streamFlag, Usage: "stream id", Required: true},
					&cli.DurationFlag{Name: deltaFlag, Usage: "shift, e.g. 5s or -1s", Required: true},
				},
				Action: c.nudge,
			},
			dbCommand(),
			{
				Name:  "stream",
				Usage: "Edit streams in a pool file",
				Subcommands: []*cli.Command{
					{
						Name:  "set-url",
						Usage: "Set a stream's video URL (clears calibration when the video changes)",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: streamsFlag, Required: true},
							&cli.StringFlag{Name: streamFlag, Required: true},
							&cli.StringFlag{Name: "url", Required: true},
						},
						Action: c.setURL,
					},
					{
						Name:  "set-day",
						Usage: "Move a stream to a zero-based event day, or all days with --all-days",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: streamsFlag, Required: true},
							&cli.StringFlag{Name: streamFlag, Required: true},
							&cli.IntFlag{Name: "day"},
							&cli.BoolFlag{Name: "all-days"},
						},
						Action: c.setDay,
					},
					{
						Name:  "add-backup",
						Usage: "Add a backup stream for the same slot",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: streamsFlag, Required: true},
							&cli.StringFlag{Name: streamFlag, Required: true},
						},
						Action: c.addBackup,
					},
					{
						Name:  "clear-calibration",
						Usage: "Drop a stream's calibration so it can be calibrated again",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: streamsFlag, Required: true},
							&cli.StringFlag{Name: streamFlag, Required: true},
						},
						Action: c.clearCalibration,
					},
					{
						Name:  "remove",
						Usage: "Remove a stream",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: streamsFlag, Required: true},
							&cli.StringFlag{Name: streamFlag, Required: true},
						},
						Action: c.remove,
					},
				},
			},
		},
	}
}
