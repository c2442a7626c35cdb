package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/pable/go-scrim-metrics/internal/model"
)

func TestBand(t *testing.T) {
	cases := []struct {
		v    float64
		want string
	}{
		{60, "high"},
		{75.5, "high"},
		{59.9, "mid"},
		{40, "mid"},
		{39.9, "low"},
		{math.NaN(), ""},
	}
	for _, c := range cases {
		if got := Band(c.v); got != c.want {
			t.Errorf("Band(%v) = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestPct(t *testing.T) {
	if got := Pct(57.5); got != "57.5%" {
		t.Errorf("Pct(57.5) = %q", got)
	}
	if got := Rate(0.625); got != "62.5%" {
		t.Errorf("Rate(0.625) = %q", got)
	}
	if got := Pct(math.NaN()); got != "-" {
		t.Errorf("Pct(NaN) = %q", got)
	}
	if got := Ratio(math.NaN()); got != "-" {
		t.Errorf("Ratio(NaN) = %q", got)
	}
}

func TestPrintRoundInsightsHidesAbsentMetrics(t *testing.T) {
	rows := []model.RoundSummary{{
		SummaryRow: model.SummaryRow{Key: "Ascent", Games: 2, Wins: 1, Losses: 1},
		AvgAtkWR:   math.NaN(), AvgDefWR: math.NaN(), RoundWR: math.NaN(),
		PostPlant: 57.5, HasPostPlant: true,
		Retake: math.NaN(), PistolWR: math.NaN(),
	}}
	var buf bytes.Buffer
	PrintRoundInsights(&buf, rows)
	out := buf.String()
	if !strings.Contains(out, "57.5%") {
		t.Errorf("expected post-plant value in output:\n%s", out)
	}
	if strings.Contains(out, "RETAKE") || strings.Contains(out, "PISTOL") {
		t.Errorf("absent metrics should not be printed:\n%s", out)
	}
}

func TestPrintMapSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintMapSummary(&buf, []model.SummaryRow{
		{Key: "Ascent", Games: 4, Wins: 3, Losses: 1},
		{Key: "Bind", Games: 1, Draws: 1},
	})
	out := buf.String()
	for _, want := range []string{"Ascent", "75.0%", "Bind", "0.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
}
