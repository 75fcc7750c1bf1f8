package model

import "log/slog"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Genotype is the flat parameter vector of one evolved individual.
type Genotype []float64

// Clone returns an independent copy of g.
func (g Genotype) Clone() Genotype {
	if g == nil {
		return nil
	}
	return append(Genotype(nil), g...)
}

// Outcome is the result of one contest, seen from the home side.
type Outcome struct {
	Duration  float64 `json:"duration"`
	HomeScore float64 `json:"home_score"`
	AwayScore float64 `json:"away_score"`
}

// MatchRecord is one line of the append-only match log.
type MatchRecord struct {
	HomeTeam  string  `json:"home_team"`
	HomeAgent int     `json:"home_agent"`
	AwayTeam  string  `json:"away_team"`
	AwayAgent int     `json:"away_agent"`
	HomeWon   bool    `json:"home_won"`
	HomeScore float64 `json:"home_score"`
	AwayScore float64 `json:"away_score"`
	Duration  float64 `json:"duration"`
}

// AwayWon reports whether the away side strictly outscored the home side.
func (r MatchRecord) AwayWon() bool {
	return r.AwayScore > r.HomeScore
}

func (r MatchRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("home_team", r.HomeTeam),
		slog.Int("home_agent", r.HomeAgent),
		slog.String("away_team", r.AwayTeam),
		slog.Int("away_agent", r.AwayAgent),
		slog.Bool("home_won", r.HomeWon),
		slog.Float64("home_score", r.HomeScore),
		slog.Float64("away_score", r.AwayScore),
		slog.Float64("duration", r.Duration),
	)
}

// ResultsCell aggregates every contest played with HomeTeam at home against
// AwayTeam. ScoreTotal sums the home score of every match.
type ResultsCell struct {
	HomeTeam   string  `json:"home_team"`
	AwayTeam   string  `json:"away_team"`
	Wins       int     `json:"wins"`
	Matches    int     `json:"matches"`
	ScoreTotal float64 `json:"score_total"`
	// Restored cells were seeded from a legacy matrix, which records no
	// losses; Matches is then a lower bound.
	Restored bool `json:"restored,omitempty"`
}

// AverageScorePerWin is ScoreTotal divided by Wins, or 0 before the first win.
func (c ResultsCell) AverageScorePerWin() float64 {
	if c.Wins == 0 {
		return 0
	}
	return c.ScoreTotal / float64(c.Wins)
}

// AverageScorePerMatch is ScoreTotal divided by Matches, or 0 when empty.
// It is an upper bound for a Restored cell.
func (c ResultsCell) AverageScorePerMatch() float64 {
	if c.Matches == 0 {
		return 0
	}
	return c.ScoreTotal / float64(c.Matches)
}

type TeamCount struct {
	Team  string `json:"team"`
	Count int    `json:"count"`
}

type TeamScore struct {
	Team  string  `json:"team"`
	Score float64 `json:"score"`
}

// Summary is derived from the full match log on demand.
type Summary struct {
	Matches                int                `json:"matches"`
	MostHomeWins           TeamCount          `json:"most_home_wins"`
	MostAwayWins           TeamCount          `json:"most_away_wins"`
	BestAverageScore       TeamScore          `json:"best_average_score"`
	AverageScoreByTeam     map[string]float64 `json:"average_score_by_team"`
	AverageHomeWinDuration map[string]float64 `json:"average_home_win_duration"`
}

// RunRecord describes one persisted tournament run.
type RunRecord struct {
	VersionedRecord
	ID           string   `json:"id"`
	CreatedAtUTC string   `json:"created_at_utc"`
	Engine       string   `json:"engine"`
	Schedule     string   `json:"schedule"`
	Aggregation  string   `json:"aggregation"`
	Teams        []string `json:"teams"`
	Matches      int      `json:"matches"`
	Failures     int      `json:"failures"`
	Skipped      int      `json:"skipped"`
}
