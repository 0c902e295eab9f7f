package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/posture-data/postureguard/internal/monitoring"
)

// handleScoreReport renders an HTML line chart of recent smoothed scores
// using go-echarts. Query params:
//   - session_id (optional; defaults to all sessions)
//   - limit (optional; default 600, i.e. five minutes at the default cadence)
func (s *Server) handleScoreReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusNotFound, "no session store configured")
		return
	}

	limit := 600
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 10000 {
			limit = v
		}
	}

	samples, err := s.store.ListSamples(r.URL.Query().Get("session_id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(samples) == 0 {
		writeError(w, http.StatusNotFound, "no samples recorded yet")
		return
	}

	// ListSamples returns newest first; the chart reads left to right.
	xs := make([]string, 0, len(samples))
	ys := make([]opts.LineData, 0, len(samples))
	for i := len(samples) - 1; i >= 0; i-- {
		sm := samples[i]
		xs = append(xs, sm.Timestamp.Local().Format(time.Kitchen))
		ys = append(ys, opts.LineData{Value: sm.Score})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Posture score",
			Subtitle: "smoothed score per tick (100 = calibrated posture)",
		}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 100, Name: "score"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	line.SetXAxis(xs).AddSeries("score", ys)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := line.Render(w); err != nil {
		monitoring.Logf("failed to render score report: %v", err)
	}
}
