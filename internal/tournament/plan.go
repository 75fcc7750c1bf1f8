// Package tournament enumerates and runs the contests between teams of agent
// factories.
package tournament

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"crossmatch/internal/match"
)

var ErrDuplicateTeam = errors.New("duplicate team name")

// Team is a named, ordered list of agent factories. It is immutable after
// NewTeam.
type Team struct {
	name      string
	factories []match.Factory
}

func NewTeam(name string, factories []match.Factory) (Team, error) {
	if strings.TrimSpace(name) == "" {
		return Team{}, errors.New("team name is required")
	}
	for i, f := range factories {
		if f == nil {
			return Team{}, fmt.Errorf("team %s: factory %d is nil", name, i)
		}
	}
	return Team{name: name, factories: append([]match.Factory(nil), factories...)}, nil
}

func (t Team) Name() string {
	return t.name
}

func (t Team) Size() int {
	return len(t.factories)
}

func (t Team) Factory(i int) match.Factory {
	return t.factories[i]
}

type Policy string

const (
	// PolicyFullCross plays every unordered team pair in both directions,
	// home side first for the lower team index.
	PolicyFullCross Policy = "full_cross"
	// PolicySingleDirection visits every ordered team pair once with the
	// first team at home.
	PolicySingleDirection Policy = "single_direction"
	// PolicySelfPlay matches every agent against itself, home then away.
	PolicySelfPlay Policy = "self_play"
)

func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyFullCross:
		return PolicyFullCross, nil
	case PolicySingleDirection:
		return PolicySingleDirection, nil
	case PolicySelfPlay:
		return PolicySelfPlay, nil
	default:
		return "", fmt.Errorf("unsupported schedule policy: %s", value)
	}
}

// Fixture is one scheduled contest, addressed by team and agent indices.
type Fixture struct {
	Seq       int
	HomeTeam  int
	HomeAgent int
	AwayTeam  int
	AwayAgent int
}

func (f Fixture) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("seq", f.Seq),
		slog.Int("home_team", f.HomeTeam),
		slog.Int("home_agent", f.HomeAgent),
		slog.Int("away_team", f.AwayTeam),
		slog.Int("away_agent", f.AwayAgent),
	)
}

// Plan lists the fixtures of policy over teams. The order only depends on
// team order and each team's agent order.
func Plan(teams []Team, policy Policy) ([]Fixture, error) {
	seen := make(map[string]struct{}, len(teams))
	for _, team := range teams {
		if _, ok := seen[team.name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTeam, team.name)
		}
		seen[team.name] = struct{}{}
	}

	var fixtures []Fixture
	add := func(i, k, j, p int) {
		fixtures = append(fixtures, Fixture{Seq: len(fixtures), HomeTeam: i, HomeAgent: k, AwayTeam: j, AwayAgent: p})
	}
	crossOneWay := func(i, j int) {
		for k := 0; k < teams[i].Size(); k++ {
			for p := 0; p < teams[j].Size(); p++ {
				add(i, k, j, p)
			}
		}
	}

	switch policy {
	case PolicyFullCross:
		for i := range teams {
			for j := i + 1; j < len(teams); j++ {
				crossOneWay(i, j)
				crossOneWay(j, i)
			}
		}
	case PolicySingleDirection:
		for i := range teams {
			for j := range teams {
				if i != j {
					crossOneWay(i, j)
				}
			}
		}
	case PolicySelfPlay:
		for i := range teams {
			for k := 0; k < teams[i].Size(); k++ {
				add(i, k, i, k)
				add(i, k, i, k)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported schedule policy: %s", policy)
	}
	return fixtures, nil
}
