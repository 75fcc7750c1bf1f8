//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"crossmatch/internal/model"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "crossmatch.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	older := model.RunRecord{
		VersionedRecord: CurrentVersion(),
		ID:              "run-1",
		CreatedAtUTC:    "2026-01-01T00:00:00Z",
		Engine:          "sumo",
		Teams:           []string{"A", "B"},
		Matches:         4,
	}
	newer := older
	newer.ID = "run-2"
	newer.CreatedAtUTC = "2026-02-01T00:00:00Z"
	for _, run := range []model.RunRecord{older, newer} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run: %v", err)
		}
	}

	loaded, ok, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok || loaded.Engine != "sumo" || len(loaded.Teams) != 2 {
		t.Fatalf("unexpected run loaded: %+v", loaded)
	}
	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" {
		t.Fatalf("unexpected run list: %+v", runs)
	}
	limited, err := store.ListRuns(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limited list: %+v %v", limited, err)
	}

	records := []model.MatchRecord{{HomeTeam: "A", AwayTeam: "B", HomeWon: true, HomeScore: 2, Duration: 1.5}}
	if err := store.SaveMatchRecords(ctx, "run-1", records); err != nil {
		t.Fatalf("save records: %v", err)
	}
	loadedRecords, ok, err := store.GetMatchRecords(ctx, "run-1")
	if err != nil || !ok || len(loadedRecords) != 1 || loadedRecords[0].HomeScore != 2 {
		t.Fatalf("unexpected records: %+v ok=%v err=%v", loadedRecords, ok, err)
	}

	cells := []model.ResultsCell{{HomeTeam: "A", AwayTeam: "B", Wins: 1, Matches: 1, ScoreTotal: 2}}
	if err := store.SaveResultsCells(ctx, "run-1", cells); err != nil {
		t.Fatalf("save cells: %v", err)
	}
	loadedCells, ok, err := store.GetResultsCells(ctx, "run-1")
	if err != nil || !ok || len(loadedCells) != 1 || loadedCells[0].ScoreTotal != 2 {
		t.Fatalf("unexpected cells: %+v ok=%v err=%v", loadedCells, ok, err)
	}
	if _, ok, err := store.GetResultsCells(ctx, "run-9"); err != nil || ok {
		t.Fatalf("expected missing cells, ok=%v err=%v", ok, err)
	}
}

func TestNewStoreSQLite(t *testing.T) {
	store, err := NewStore("sqlite", filepath.Join(t.TempDir(), "factory.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := CloseIfSupported(store); err != nil {
		t.Fatalf("close: %v", err)
	}
}
