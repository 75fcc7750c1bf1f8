package arena

import "math"

const ringOutScore = 2.0

// ScoreHomeVsAway rates the home agent's performance against the away
// agent: 0 if home left the ring, ringOutScore if it pushed away out, and
// otherwise the fraction of the way away was pushed towards its edge.
func ScoreHomeVsAway(r Result) float64 {
	if r.HomeOut {
		return 0
	}
	if r.AwayOut {
		return ringOutScore
	}
	room := r.RingHalfWidth - r.AwayStart
	return pushFraction(r.AwayPosition-r.AwayStart, room)
}

// ScoreAwayVsHome is the mirror of ScoreHomeVsAway for the away agent.
func ScoreAwayVsHome(r Result) float64 {
	if r.AwayOut {
		return 0
	}
	if r.HomeOut {
		return ringOutScore
	}
	room := r.RingHalfWidth + r.HomeStart
	return pushFraction(r.HomeStart-r.HomePosition, room)
}

func pushFraction(displacement, room float64) float64 {
	if room <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, displacement/room))
}
