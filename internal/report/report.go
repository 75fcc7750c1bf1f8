// Package report writes tournament artifacts: the results matrix, the
// detailed match log, a per-team table and the summary.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"crossmatch/internal/model"
	"crossmatch/internal/results"
)

const (
	ResultsFile  = "results.csv"
	DetailedFile = "detailedResults.csv"
	TeamsFile    = "teams.csv"
	SummaryFile  = "summary.json"
	RunFile      = "run.json"

	matrixCorner    = `Home Team\Away Team`
	diagonalCell    = "N/A"
	placeholderCell = "0;0.0"
)

// Artifacts is everything a finished run reports.
type Artifacts struct {
	Run        model.RunRecord
	Aggregator *results.Aggregator
	Summary    model.Summary
}

// WriteRunArtifacts writes every artifact of a run under baseDir/<run id>
// and returns that directory.
func WriteRunArtifacts(baseDir string, a Artifacts) (string, error) {
	if a.Run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}
	if a.Aggregator == nil {
		return "", errors.New("aggregator is required")
	}

	runDir := filepath.Join(baseDir, a.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	teams := a.Run.Teams
	if len(teams) == 0 {
		teams = a.Aggregator.Teams()
	}
	records := a.Aggregator.Log()

	if err := writeJSON(filepath.Join(runDir, RunFile), a.Run); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, ResultsFile), func(w io.Writer) error {
		return WriteResultsMatrix(w, teams, a.Aggregator)
	}); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, DetailedFile), func(w io.Writer) error {
		return WriteDetailedResults(w, records)
	}); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, TeamsFile), func(w io.Writer) error {
		return WriteTeamTable(w, teams, records)
	}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, SummaryFile), a.Summary); err != nil {
		return "", err
	}
	return runDir, nil
}

// WriteResultsMatrix writes one row per home team and one column per away
// team. Diagonal cells read N/A unless a self-play run populated them; cells
// never played hold the 0;0.0 placeholder.
func WriteResultsMatrix(w io.Writer, teams []string, agg *results.Aggregator) error {
	writer := gocsv.DefaultCSVWriter(w)

	header := append([]string{matrixCorner}, teams...)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, home := range teams {
		row := make([]string, 0, len(teams)+1)
		row = append(row, home)
		for _, away := range teams {
			_, played := agg.Cell(home, away)
			switch {
			case played:
				row = append(row, agg.Legacy(home, away))
			case home == away:
				row = append(row, diagonalCell)
			default:
				row = append(row, placeholderCell)
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadResultsMatrix restores every played cell of a previously written
// matrix into agg. A malformed cell aborts with a *results.MalformedRecordError.
func ReadResultsMatrix(r io.Reader, agg *results.Aggregator) error {
	rows, err := gocsv.DefaultCSVReader(r).ReadAll()
	if err != nil {
		return err
	}
	if len(rows) == 0 || len(rows[0]) == 0 || rows[0][0] != matrixCorner {
		return fmt.Errorf("results matrix: missing %q header", matrixCorner)
	}
	away := trimTrailingEmpty(rows[0][1:])
	for _, row := range rows[1:] {
		row = trimTrailingEmpty(row)
		if len(row) == 0 {
			continue
		}
		if len(row) != len(away)+1 {
			return fmt.Errorf("results matrix: row %s has %d cells, want %d", row[0], len(row)-1, len(away))
		}
		home := row[0]
		for j, cell := range row[1:] {
			cell = strings.TrimSpace(cell)
			if cell == diagonalCell || cell == placeholderCell || cell == "" {
				continue
			}
			if err := agg.Restore(home, away[j], cell); err != nil {
				return fmt.Errorf("results matrix %s vs %s: %w", home, away[j], err)
			}
		}
	}
	return nil
}

// Legacy matrices end every line with a comma.
func trimTrailingEmpty(row []string) []string {
	for len(row) > 0 && row[len(row)-1] == "" {
		row = row[:len(row)-1]
	}
	return row
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func ReadSummary(runDir string) (model.Summary, bool, error) {
	data, err := os.ReadFile(filepath.Join(runDir, SummaryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return model.Summary{}, false, nil
		}
		return model.Summary{}, false, err
	}
	var summary model.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.Summary{}, false, err
	}
	return summary, true, nil
}
