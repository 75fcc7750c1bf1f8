package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"crossmatch/internal/model"
)

// verdict renders a home win as T or F.
type verdict bool

func (v verdict) MarshalCSV() (string, error) {
	if v {
		return "T", nil
	}
	return "F", nil
}

func (v *verdict) UnmarshalCSV(s string) error {
	switch s {
	case "T", "true":
		*v = true
	case "F", "false":
		*v = false
	default:
		return fmt.Errorf("invalid verdict %q", s)
	}
	return nil
}

type score float64

func (s score) MarshalCSV() (string, error) {
	return strconv.FormatFloat(float64(s), 'f', 1, 64), nil
}

func (s *score) UnmarshalCSV(v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	*s = score(f)
	return nil
}

type seconds float64

func (d seconds) MarshalCSV() (string, error) {
	return strconv.FormatFloat(float64(d), 'f', 3, 64), nil
}

func (d *seconds) UnmarshalCSV(v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	*d = seconds(f)
	return nil
}

type detailedRow struct {
	HomeTeam    string  `csv:"HomeTeam"`
	HomeAgent   int     `csv:"HomeAgent"`
	AwayTeam    string  `csv:"AwayTeam"`
	AwayAgent   int     `csv:"AwayAgent"`
	VictoryHome verdict `csv:"VictoryHome"`
	HomeScore   score   `csv:"ScoreHomeAgent"`
	AwayScore   score   `csv:"ScoreAwayAgent"`
	Duration    seconds `csv:"TimeFight"`
}

// WriteDetailedResults writes one line per match in log order. Scores keep
// one decimal and durations three.
func WriteDetailedResults(w io.Writer, records []model.MatchRecord) error {
	rows := make([]detailedRow, len(records))
	for i, rec := range records {
		rows[i] = detailedRow{
			HomeTeam:    rec.HomeTeam,
			HomeAgent:   rec.HomeAgent,
			AwayTeam:    rec.AwayTeam,
			AwayAgent:   rec.AwayAgent,
			VictoryHome: verdict(rec.HomeWon),
			HomeScore:   score(rec.HomeScore),
			AwayScore:   score(rec.AwayScore),
			Duration:    seconds(rec.Duration),
		}
	}
	return gocsv.Marshal(rows, w)
}

// ReadDetailedResults parses a detailed results file back into records, at
// the precision it was written with.
func ReadDetailedResults(r io.Reader) ([]model.MatchRecord, error) {
	var rows []detailedRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, err
	}
	records := make([]model.MatchRecord, len(rows))
	for i, row := range rows {
		records[i] = model.MatchRecord{
			HomeTeam:  row.HomeTeam,
			HomeAgent: row.HomeAgent,
			AwayTeam:  row.AwayTeam,
			AwayAgent: row.AwayAgent,
			HomeWon:   bool(row.VictoryHome),
			HomeScore: float64(row.HomeScore),
			AwayScore: float64(row.AwayScore),
			Duration:  float64(row.Duration),
		}
	}
	return records, nil
}

// TeamRow is the per-team line of teams.csv.
type TeamRow struct {
	Team               string  `csv:"team"`
	Matches            int     `csv:"matches"`
	HomeWins           int     `csv:"home_wins"`
	AwayWins           int     `csv:"away_wins"`
	Ties               int     `csv:"ties"`
	ScoreTotal         float64 `csv:"score_total"`
	ScoreMean          float64 `csv:"score_mean"`
	ScoreStdDev        float64 `csv:"score_stddev"`
	HomeWinDurationAvg float64 `csv:"home_win_duration_mean"`
}

// TeamTable folds the match log into one row per team, in the given order
// followed by any team only seen in the log.
func TeamTable(teams []string, records []model.MatchRecord) []TeamRow {
	type acc struct {
		row       TeamRow
		scores    []float64
		durations []float64
	}
	byTeam := make(map[string]*acc)
	order := append([]string(nil), teams...)
	get := func(team string) *acc {
		a, ok := byTeam[team]
		if !ok {
			a = &acc{row: TeamRow{Team: team}}
			byTeam[team] = a
		}
		return a
	}
	for _, team := range teams {
		get(team)
	}

	var extra []string
	for _, rec := range records {
		for _, team := range []string{rec.HomeTeam, rec.AwayTeam} {
			if _, ok := byTeam[team]; !ok {
				extra = append(extra, team)
				get(team)
			}
		}
		home := get(rec.HomeTeam)
		away := get(rec.AwayTeam)
		home.row.Matches++
		away.row.Matches++
		home.scores = append(home.scores, rec.HomeScore)
		away.scores = append(away.scores, rec.AwayScore)
		switch {
		case rec.HomeScore > rec.AwayScore:
			home.row.HomeWins++
			home.durations = append(home.durations, rec.Duration)
		case rec.AwayWon():
			away.row.AwayWins++
		default:
			home.row.Ties++
			if rec.AwayTeam != rec.HomeTeam {
				away.row.Ties++
			}
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	rows := make([]TeamRow, 0, len(order))
	for _, team := range order {
		a := byTeam[team]
		if len(a.scores) > 0 {
			a.row.ScoreTotal = floats.Sum(a.scores)
			a.row.ScoreMean = stat.Mean(a.scores, nil)
		}
		if len(a.scores) > 1 {
			a.row.ScoreStdDev = stat.StdDev(a.scores, nil)
		}
		if len(a.durations) > 0 {
			a.row.HomeWinDurationAvg = stat.Mean(a.durations, nil)
		}
		rows = append(rows, a.row)
	}
	return rows
}

func WriteTeamTable(w io.Writer, teams []string, records []model.MatchRecord) error {
	return gocsv.Marshal(TeamTable(teams, records), w)
}
