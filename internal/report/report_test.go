package report

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crossmatch/internal/model"
	"crossmatch/internal/results"
)

func scenarioAggregator(t *testing.T) *results.Aggregator {
	t.Helper()
	agg := results.NewAggregator(results.PolicyAverage)
	for _, rec := range []model.MatchRecord{
		{HomeTeam: "A", HomeAgent: 0, AwayTeam: "B", AwayAgent: 0, HomeScore: 3.0, AwayScore: 1.0, Duration: 4.2},
		{HomeTeam: "A", HomeAgent: 1, AwayTeam: "B", AwayAgent: 0, HomeScore: 0.5, AwayScore: 2.0, Duration: 5.0},
		{HomeTeam: "B", HomeAgent: 0, AwayTeam: "A", AwayAgent: 0, HomeScore: 1.0, AwayScore: 3.0, Duration: 4.2},
		{HomeTeam: "B", HomeAgent: 0, AwayTeam: "A", AwayAgent: 1, HomeScore: 2.0, AwayScore: 0.5, Duration: 5.0},
	} {
		if err := agg.Record(rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	return agg
}

func TestWriteResultsMatrix(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResultsMatrix(&buf, []string{"A", "B", "C"}, scenarioAggregator(t)); err != nil {
		t.Fatalf("write matrix: %v", err)
	}
	want := strings.Join([]string{
		`Home Team\Away Team,A,B,C`,
		"A,N/A,V: 1; S = 3.5,0;0.0",
		"B,V: 1; S = 3.0,N/A,0;0.0",
		"C,0;0.0,0;0.0,N/A",
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("unexpected matrix:\n%s\nwant:\n%s", buf.String(), want)
	}

	restored := results.NewAggregator(results.PolicyAverage)
	if err := ReadResultsMatrix(&buf, restored); err != nil {
		t.Fatalf("read matrix: %v", err)
	}
	if got := restored.Legacy("A", "B"); got != "V: 1; S = 3.5" {
		t.Fatalf("unexpected restored cell: %q", got)
	}
	if _, ok := restored.Cell("A", "C"); ok {
		t.Fatal("placeholder cells must not be restored")
	}
}

func TestReadResultsMatrixLegacyLayout(t *testing.T) {
	input := "Home Team\\Away Team,A,B,\nA,N/A,V: 2; S = 1.5,\nB,V: 0; S = 0.0,N/A,\n"
	agg := results.NewAggregator(results.PolicyAverage)
	if err := ReadResultsMatrix(strings.NewReader(input), agg); err != nil {
		t.Fatalf("read legacy matrix: %v", err)
	}
	cell, ok := agg.Cell("A", "B")
	if !ok || cell.Wins != 2 || math.Abs(cell.ScoreTotal-3.0) > 1e-12 {
		t.Fatalf("unexpected cell: %+v", cell)
	}
}

func TestReadResultsMatrixMalformedCell(t *testing.T) {
	input := "Home Team\\Away Team,A,B\nA,N/A,V: x; S = 1.5\nB,N/A,N/A\n"
	err := ReadResultsMatrix(strings.NewReader(input), results.NewAggregator(results.PolicyAverage))
	var malformed *results.MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedRecordError, got %v", err)
	}
	if err := ReadResultsMatrix(strings.NewReader("A,B\n"), results.NewAggregator(results.PolicyAverage)); err == nil {
		t.Fatal("expected missing header error")
	}
}

func TestDetailedResultsFormatting(t *testing.T) {
	agg := scenarioAggregator(t)
	var buf bytes.Buffer
	if err := WriteDetailedResults(&buf, agg.Log()); err != nil {
		t.Fatalf("write detailed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header and 4 lines, got %d", len(lines))
	}
	if lines[0] != "HomeTeam,HomeAgent,AwayTeam,AwayAgent,VictoryHome,ScoreHomeAgent,ScoreAwayAgent,TimeFight" {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if lines[1] != "A,0,B,0,T,3.0,1.0,4.200" {
		t.Fatalf("unexpected first line: %s", lines[1])
	}
	if lines[2] != "A,1,B,0,F,0.5,2.0,5.000" {
		t.Fatalf("unexpected second line: %s", lines[2])
	}

	records, err := ReadDetailedResults(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("read detailed: %v", err)
	}
	if len(records) != 4 || !records[3].HomeWon || records[3].Duration != 5.0 {
		t.Fatalf("unexpected parsed records: %+v", records)
	}
}

func TestTeamTable(t *testing.T) {
	rows := TeamTable([]string{"B", "A"}, scenarioAggregator(t).Log())
	if len(rows) != 2 || rows[0].Team != "B" || rows[1].Team != "A" {
		t.Fatalf("unexpected team order: %+v", rows)
	}
	a := rows[1]
	if a.Matches != 4 || a.HomeWins != 1 || a.AwayWins != 1 {
		t.Fatalf("unexpected A row: %+v", a)
	}
	if math.Abs(a.ScoreMean-1.75) > 1e-12 || math.Abs(a.ScoreTotal-7.0) > 1e-12 {
		t.Fatalf("unexpected A scores: %+v", a)
	}
	if math.Abs(a.HomeWinDurationAvg-4.2) > 1e-12 {
		t.Fatalf("unexpected A duration: %+v", a)
	}

	extra := TeamTable(nil, []model.MatchRecord{{HomeTeam: "Z", AwayTeam: "Z", HomeScore: 1, AwayScore: 1}})
	if len(extra) != 1 || extra[0].Team != "Z" || extra[0].Ties != 1 {
		t.Fatalf("unexpected self-play row: %+v", extra)
	}
}

func TestWriteRunArtifacts(t *testing.T) {
	agg := scenarioAggregator(t)
	run := model.RunRecord{ID: "run-1", Teams: []string{"A", "B"}, Matches: 4}
	dir, err := WriteRunArtifacts(t.TempDir(), Artifacts{Run: run, Aggregator: agg, Summary: agg.Summarize()})
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	for _, name := range []string{RunFile, ResultsFile, DetailedFile, TeamsFile, SummaryFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	summary, ok, err := ReadSummary(dir)
	if err != nil || !ok {
		t.Fatalf("read summary: ok=%v err=%v", ok, err)
	}
	if summary.MostHomeWins.Team != "A" || summary.Matches != 4 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if _, ok, err := ReadSummary(t.TempDir()); ok || err != nil {
		t.Fatalf("expected missing summary, ok=%v err=%v", ok, err)
	}

	if _, err := WriteRunArtifacts(t.TempDir(), Artifacts{Aggregator: agg}); err == nil {
		t.Fatal("expected missing run id error")
	}
}
