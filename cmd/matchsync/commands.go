package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/onnwee/matchsync/event"
	"github.com/onnwee/matchsync/service"
	"github.com/onnwee/matchsync/stream"
)

type commands struct {
	open    opener
	stdout  io.Writer
	offline *service.Service
}

func (c *commands) withEngine(ctx context.Context, fn func(engine) error) error {
	eng, closeFn, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeFn == nil {
			return
		}
		if err := closeFn(); err != nil {
			slog.Warn("close failed", slog.Any("err", err))
		}
	}()
	return fn(eng)
}

// target is where an edited pool goes: --output when given, else back to
// the --streams file.
func target(cCtx *cli.Context) string {
	if out := cCtx.String(outputFlag); out != "" {
		return out
	}
	return cCtx.String(streamsFlag)
}

func (c *commands) discover(cCtx *cli.Context) error {
	sku := strings.TrimSpace(cCtx.String(skuFlag))
	return c.withEngine(cCtx.Context, func(eng engine) error {
		ev, pool, err := eng.Streams(cCtx.Context, sku)
		if err != nil {
			return fmt.Errorf("discover %s: %w", sku, err)
		}
		slog.Info("discovered streams", slog.String("sku", ev.SKU), slog.Int("streams", len(pool)))
		return writePool(c.stdout, cCtx.String(outputFlag), poolFile{SKU: ev.SKU, Event: &ev, Streams: pool})
	})
}

func (c *commands) resolve(cCtx *cli.Context) error {
	pf, err := readPool(cCtx.String(streamsFlag))
	if err != nil {
		return err
	}
	sku := cCtx.String(skuFlag)
	if sku == "" {
		sku = pf.SKU
	}
	if sku == "" {
		return errors.New("no event SKU: pass --sku or use a pool file written by discover")
	}
	return c.withEngine(cCtx.Context, func(eng engine) error {
		res, err := eng.ResolveEvent(cCtx.Context, sku, pf.Streams)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", sku, err)
		}
		res.Rows = filterRows(res.Rows, rowFilter{
			team:     cCtx.String(teamFlag),
			division: divisionFilter(cCtx),
			phase:    event.Phase(strings.ToLower(cCtx.String(phaseFlag))),
		})
		if cCtx.String(formatFlag) == "yaml" {
			enc := yaml.NewEncoder(c.stdout)
			enc.SetIndent(2)
			if err := enc.Encode(&res); err != nil {
				return err
			}
			return enc.Close()
		}
		return renderResolution(c.stdout, res, pf.Streams)
	})
}

func divisionFilter(cCtx *cli.Context) *int {
	if !cCtx.IsSet(divisionFlag) {
		return nil
	}
	id := cCtx.Int(divisionFlag)
	return &id
}

type rowFilter struct {
	team     string
	division *int
	phase    event.Phase
}

func (f rowFilter) keep(m event.Match) bool {
	if f.team != "" && !m.HasTeam(f.team) {
		return false
	}
	if f.phase != "" && m.Phase() != f.phase {
		return false
	}
	return m.InDivision(f.division)
}

func filterRows(rows []service.Row, f rowFilter) []service.Row {
	if f == (rowFilter{}) {
		return rows
	}
	out := make([]service.Row, 0, len(rows))
	for _, r := range rows {
		if f.keep(r.Match) {
			out = append(out, r)
		}
	}
	return out
}

func (c *commands) calibrate(cCtx *cli.Context) error {
	pf, err := readPool(cCtx.String(streamsFlag))
	if err != nil {
		return err
	}

	if id := cCtx.String(streamFlag); id != "" {
		at := cCtx.Timestamp(matchTimeFlag)
		if at == nil {
			return fmt.Errorf("--%s is required with --%s", matchTimeFlag, streamFlag)
		}
		if !cCtx.IsSet(positionFlag) {
			return fmt.Errorf("--%s is required with --%s", positionFlag, streamFlag)
		}
		pool, err := c.offline.ManualCalibrate(pf.Streams, id, *at, cCtx.Float64(positionFlag))
		if err != nil {
			return fmt.Errorf("calibrate %s: %w", id, err)
		}
		pf.Streams = pool
		return writePool(c.stdout, target(cCtx), pf)
	}

	policy := stream.RetryPolicy{MaxAttempts: cCtx.Int(attemptsFlag), Interval: cCtx.Duration(intervalFlag)}
	return c.withEngine(cCtx.Context, func(eng engine) error {
		cal := service.Calibration{Pool: pf.Streams}
		err := policy.Do(cCtx.Context, func(ctx context.Context) error {
			cal = eng.Calibrate(ctx, cal.Pool)
			if n := waiting(cal.Diagnostics); n > 0 {
				slog.Info("streams still uncalibrated", slog.Int("count", n))
				return fmt.Errorf("%d streams uncalibrated", n)
			}
			return nil
		})
		// progress made before a cancel is still written out
		if err != nil && !errors.Is(err, stream.ErrAttemptsExhausted) {
			slog.Warn("calibration interrupted", slog.Any("err", err))
		}
		renderDiagnostics(cCtx.App.ErrWriter, cal)
		pf.Streams = cal.Pool
		return writePool(c.stdout, target(cCtx), pf)
	})
}

// waiting counts streams another pass could still calibrate. Streams without a
// URL or without platform credentials never will.
func waiting(diags map[string]string) int {
	n := 0
	for _, d := range diags {
		if d != stream.DiagNoVideo && d != stream.DiagNoCredential {
			n++
		}
	}
	return n
}

func (c *commands) nudge(cCtx *cli.Context) error {
	pf, err := readPool(cCtx.String(streamsFlag))
	if err != nil {
		return err
	}
	id := cCtx.String(streamFlag)
	pool, err := c.offline.Nudge(pf.Streams, id, cCtx.Duration(deltaFlag))
	if err != nil {
		return fmt.Errorf("nudge %s: %w", id, err)
	}
	pf.Streams = pool
	return writePool(c.stdout, target(cCtx), pf)
}

// editPool loads the pool file, applies fn, and writes it back.
func (c *commands) editPool(cCtx *cli.Context, fn func(pf poolFile) (stream.Pool, error)) error {
	path := cCtx.String(streamsFlag)
	pf, err := readPool(path)
	if err != nil {
		return err
	}
	pool, err := fn(pf)
	if err != nil {
		return err
	}
	pf.Streams = pool
	return writePool(c.stdout, path, pf)
}

func (c *commands) setURL(cCtx *cli.Context) error {
	return c.editPool(cCtx, func(pf poolFile) (stream.Pool, error) {
		return pf.Streams.Update(cCtx.String(streamFlag), func(s stream.Stream) (stream.Stream, error) {
			s = s.SetURL(cCtx.String("url"))
			if !s.HasVideo() {
				slog.Warn("url is not a recognized video link", slog.String("url", s.URL))
			}
			return s, nil
		})
	})
}

func (c *commands) setDay(cCtx *cli.Context) error {
	return c.editPool(cCtx, func(pf poolFile) (stream.Pool, error) {
		if pf.Event == nil {
			return nil, errors.New("pool file has no event; re-run discover")
		}
		var day *int
		if !cCtx.Bool("all-days") {
			if !cCtx.IsSet("day") {
				return nil, errors.New("pass --day or --all-days")
			}
			d := cCtx.Int("day")
			day = &d
		}
		ev := *pf.Event
		return pf.Streams.Update(cCtx.String(streamFlag), func(s stream.Stream) (stream.Stream, error) {
			return s.SetDay(day, ev)
		})
	})
}

func (c *commands) addBackup(cCtx *cli.Context) error {
	return c.editPool(cCtx, func(pf poolFile) (stream.Pool, error) {
		pool, b, err := pf.Streams.AddBackup(cCtx.String(streamFlag))
		if err != nil {
			return nil, err
		}
		slog.Info("backup stream added", slog.String("id", b.ID), slog.String("label", b.Label))
		return pool, nil
	})
}

func (c *commands) clearCalibration(cCtx *cli.Context) error {
	return c.editPool(cCtx, func(pf poolFile) (stream.Pool, error) {
		return pf.Streams.Update(cCtx.String(streamFlag), func(s stream.Stream) (stream.Stream, error) {
			return stream.ClearCalibration(s), nil
		})
	})
}

func (c *commands) remove(cCtx *cli.Context) error {
	return c.editPool(cCtx, func(pf poolFile) (stream.Pool, error) {
		id := cCtx.String(streamFlag)
		if _, ok := pf.Streams.Find(id); !ok {
			return nil, fmt.Errorf("%w: %s", stream.ErrNotFound, id)
		}
		return pf.Streams.Without(id), nil
	})
}
