package stats_test

import (
	"testing"

	sessiondto "beatmark/internal/modules/session/dto"
	"beatmark/internal/ui/views/stats"
)

func TestTableOneRowPerEpoch(t *testing.T) {
	t.Parallel()
	out := sessiondto.StatsOutput{
		Plugin: "descriptives",
		Epochs: []sessiondto.EpochStatsOutput{
			{Epoch: "Rest", Values: map[string]float64{"n": 3, "mean": 0.8}},
			{Epoch: "None", Values: map[string]float64{"n": 1}},
		},
	}
	want := "## Statistics (descriptives)\n\n" +
		"| epoch | mean | n |\n" +
		"| --- | ---: | ---: |\n" +
		"| Rest | 0.8 | 3 |\n" +
		"| None | – | 1 |\n"
	if got := stats.Table(out); got != want {
		t.Fatalf("unexpected table:\n%s", got)
	}
}

func TestTableWithoutRows(t *testing.T) {
	t.Parallel()
	got := stats.Table(sessiondto.StatsOutput{Plugin: "p"})
	if got != "## Statistics (p)\n\nNo selected markers.\n" {
		t.Fatalf("unexpected table %q", got)
	}
}
