// Package results aggregates match records into per-pair results cells and
// derives ranking summaries from the match log.
package results

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"gonum.org/v1/gonum/stat"

	"crossmatch/internal/model"
)

// Policy selects how a results cell reports its score. Every cell sums the
// home score of all its matches, ties and losses included.
type Policy string

const (
	// PolicyTotal reports the raw score total.
	PolicyTotal Policy = "total"
	// PolicyAverage reports the score total divided by the win count.
	PolicyAverage Policy = "average"
)

func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyAverage:
		return PolicyAverage, nil
	case PolicyTotal:
		return PolicyTotal, nil
	default:
		return "", fmt.Errorf("unsupported aggregation policy: %s", value)
	}
}

type cellKey struct {
	home string
	away string
}

// Aggregator owns the match log and the results cells. It is safe for
// concurrent use.
type Aggregator struct {
	policy Policy

	mu    sync.Mutex
	log   []model.MatchRecord
	cells map[cellKey]*model.ResultsCell
	teams []string
	known map[string]struct{}
}

func NewAggregator(policy Policy) *Aggregator {
	if policy == "" {
		policy = PolicyAverage
	}
	return &Aggregator{
		policy: policy,
		cells:  make(map[cellKey]*model.ResultsCell),
		known:  make(map[string]struct{}),
	}
}

func (a *Aggregator) Policy() Policy {
	return a.policy
}

// Record appends rec to the log and updates the cell of its ordered team
// pair. HomeWon is recomputed from the scores; a tie is not a win.
func (a *Aggregator) Record(rec model.MatchRecord) error {
	if rec.HomeTeam == "" || rec.AwayTeam == "" {
		return fmt.Errorf("match record needs both team names")
	}
	if !finite(rec.HomeScore) || !finite(rec.AwayScore) || !finite(rec.Duration) {
		return fmt.Errorf("match record %s/%d vs %s/%d has non-finite values", rec.HomeTeam, rec.HomeAgent, rec.AwayTeam, rec.AwayAgent)
	}
	rec.HomeWon = rec.HomeScore > rec.AwayScore

	a.mu.Lock()
	defer a.mu.Unlock()

	a.log = append(a.log, rec)
	a.remember(rec.HomeTeam)
	a.remember(rec.AwayTeam)

	cell := a.cellLocked(rec.HomeTeam, rec.AwayTeam)
	cell.Matches++
	if rec.HomeWon {
		cell.Wins++
	}
	cell.ScoreTotal += rec.HomeScore
	return nil
}

// Restore seeds an untouched cell from its legacy string form. A malformed
// string leaves the cell unchanged and returns a *MalformedRecordError.
//
// A legacy string carries no loss or tie count. A restored cell starts with
// Matches equal to its wins and is marked Restored, so AverageScorePerMatch
// overstates it when the earlier run had losses. Under the average policy a
// cell without wins restores with a zero total.
func (a *Aggregator) Restore(home, away, legacy string) error {
	wins, score, err := ParseLegacyCell(legacy)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.cells[cellKey{home, away}]; ok && (existing.Matches > 0 || existing.Restored) {
		return fmt.Errorf("cell %s vs %s is already populated", home, away)
	}
	a.remember(home)
	a.remember(away)
	cell := a.cellLocked(home, away)
	cell.Wins = wins
	cell.Matches = wins
	cell.Restored = true
	if a.policy == PolicyTotal {
		cell.ScoreTotal = score
	} else {
		cell.ScoreTotal = score * float64(wins)
	}
	return nil
}

func (a *Aggregator) Cell(home, away string) (model.ResultsCell, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cell, ok := a.cells[cellKey{home, away}]
	if !ok {
		return model.ResultsCell{HomeTeam: home, AwayTeam: away}, false
	}
	return *cell, true
}

// Cells returns every populated cell ordered by home then away team, using
// the order in which teams were first seen.
func (a *Aggregator) Cells() []model.ResultsCell {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]model.ResultsCell, 0, len(a.cells))
	for _, home := range a.teams {
		for _, away := range a.teams {
			if cell, ok := a.cells[cellKey{home, away}]; ok {
				out = append(out, *cell)
			}
		}
	}
	return out
}

// Score is the policy view of a cell's score: the raw total or the average
// per win.
func (a *Aggregator) Score(cell model.ResultsCell) float64 {
	if a.policy == PolicyTotal {
		return cell.ScoreTotal
	}
	return cell.AverageScorePerWin()
}

// Legacy renders the cell of an ordered pair in "V: n; S = x" form.
func (a *Aggregator) Legacy(home, away string) string {
	cell, _ := a.Cell(home, away)
	return FormatLegacyCell(cell.Wins, a.Score(cell))
}

func (a *Aggregator) Log() []model.MatchRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]model.MatchRecord(nil), a.log...)
}

func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.log)
}

func (a *Aggregator) Teams() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]string(nil), a.teams...)
}

// Summarize scans the whole log once. Ties on any ranking are broken by the
// lexicographically smallest team name. Average durations only cover
// matches the team won at home.
func (a *Aggregator) Summarize() model.Summary {
	records := a.Log()
	return Summarize(records)
}

func Summarize(records []model.MatchRecord) model.Summary {
	homeWins := make(map[string]int)
	awayWins := make(map[string]int)
	scores := make(map[string][]float64)
	durations := make(map[string][]float64)

	for _, rec := range records {
		homeWon := rec.HomeScore > rec.AwayScore
		if homeWon {
			homeWins[rec.HomeTeam]++
			durations[rec.HomeTeam] = append(durations[rec.HomeTeam], rec.Duration)
		}
		if rec.AwayWon() {
			awayWins[rec.AwayTeam]++
		}
		scores[rec.HomeTeam] = append(scores[rec.HomeTeam], rec.HomeScore)
		scores[rec.AwayTeam] = append(scores[rec.AwayTeam], rec.AwayScore)
	}

	summary := model.Summary{
		Matches:                len(records),
		MostHomeWins:           bestCount(homeWins),
		MostAwayWins:           bestCount(awayWins),
		AverageScoreByTeam:     make(map[string]float64, len(scores)),
		AverageHomeWinDuration: make(map[string]float64, len(durations)),
	}
	for team, values := range scores {
		summary.AverageScoreByTeam[team] = stat.Mean(values, nil)
	}
	for team, values := range durations {
		summary.AverageHomeWinDuration[team] = stat.Mean(values, nil)
	}
	summary.BestAverageScore = bestScore(summary.AverageScoreByTeam)
	return summary
}

func bestCount(counts map[string]int) model.TeamCount {
	var best model.TeamCount
	for _, team := range sortedKeys(counts) {
		if counts[team] > best.Count {
			best = model.TeamCount{Team: team, Count: counts[team]}
		}
	}
	return best
}

func bestScore(means map[string]float64) model.TeamScore {
	var best model.TeamScore
	found := false
	for _, team := range sortedKeys(means) {
		if !found || means[team] > best.Score {
			best = model.TeamScore{Team: team, Score: means[team]}
			found = true
		}
	}
	return best
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (a *Aggregator) cellLocked(home, away string) *model.ResultsCell {
	key := cellKey{home, away}
	cell, ok := a.cells[key]
	if !ok {
		cell = &model.ResultsCell{HomeTeam: home, AwayTeam: away}
		a.cells[key] = cell
	}
	return cell
}

func (a *Aggregator) remember(team string) {
	if _, ok := a.known[team]; ok {
		return
	}
	a.known[team] = struct{}{}
	a.teams = append(a.teams, team)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
