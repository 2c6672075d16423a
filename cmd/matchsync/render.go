package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/onnwee/matchsync/platform"
	"github.com/onnwee/matchsync/service"
	"github.com/onnwee/matchsync/stream"
)

// formatSeek renders seconds as h:mm:ss.
func formatSeek(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}

// seekURL appends a start offset to the stream's watch URL.
func seekURL(s stream.Stream, secs int64) string {
	if !s.HasVideo() {
		return ""
	}
	u := platform.WatchURL(s.Video())
	if u == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	if s.Platform == platform.Twitch {
		return fmt.Sprintf("%s%st=%dh%dm%ds", u, sep, secs/3600, secs/60%60, secs%60)
	}
	return fmt.Sprintf("%s%st=%d", u, sep, secs)
}

func renderResolution(w io.Writer, res service.Resolution, pool stream.Pool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s (%s)\n", res.Event.Name, res.Event.SKU)
	fmt.Fprintln(tw, "MATCH\tDAY\tSTREAM\tSEEK\tSTATUS")
	for _, r := range res.Rows {
		status, label, seek := "ok", "-", "-"
		switch {
		case r.GrayOut != "":
			status = r.GrayOut
		case r.Result.Blocked:
			status = r.Result.Reason
		default:
			seek = formatSeek(r.Result.SeekSeconds)
			if s, ok := pool.Find(r.Result.StreamID); ok {
				label = s.Label
				if u := seekURL(s, r.Result.SeekSeconds); u != "" {
					status = u
				}
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", r.Match.Name, r.Day+1, label, seek, status)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(tw, "warning: %s\n", warn)
	}
	return tw.Flush()
}

func renderDiagnostics(w io.Writer, cal service.Calibration) {
	for _, s := range cal.Pool {
		switch {
		case cal.Diagnostics[s.ID] != "":
			fmt.Fprintf(w, "%s: %s\n", s.Label, cal.Diagnostics[s.ID])
		case s.Calibrated():
			fmt.Fprintf(w, "%s: origin %s\n", s.Label, s.Origin.Format("2006-01-02 15:04:05Z07:00"))
		}
	}
}
