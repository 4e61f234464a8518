// Package drift derives a difficulty signal from a session's turn history.
// The detector is a pure function: it is recomputed fresh every turn and the
// result is never persisted. The narrator receives the level plus the
// supporting stats so it can steer difficulty without ever naming the
// mechanism to the player.
package drift

import "cubicle/internal/game"

// Level classifies how the player is tracking against the scenario.
type Level string

const (
	// LevelOnTrack means no corrective steering is needed.
	LevelOnTrack Level = "on_track"
	// LevelPassive means the player is consistently under-engaging.
	LevelPassive Level = "passive"
	// LevelStruggling means the player is losing ground across turns.
	LevelStruggling Level = "struggling"
	// LevelCritical means the last turns were outright failures.
	LevelCritical Level = "critical"
)

// Score thresholds for streak counting.
const (
	poorScoreCeiling = 50 // score < 50 counts toward the poor streak
	badScoreCeiling  = 20 // score < 20 counts toward the bad streak
)

// window is how many recent evaluated turns feed the rolling average and
// HP trend.
const window = 3

// PlayerDrift is the derived signal handed to the narrator.
type PlayerDrift struct {
	Level           Level
	ConsecutivePoor int     // trailing streak of turns with score < 50
	ConsecutiveBad  int     // trailing streak of turns with score < 20
	RollingAverage  float64 // mean score over the last <= 3 evaluated turns
	HPTrend         int     // sum of applied HP deltas over that window
}

// Compute derives the drift signal from turn history. Only turns that carry
// a completed evaluation are considered; the entry turn never does. With no
// evaluated turns the player is on track with a neutral baseline.
func Compute(history []game.Turn) PlayerDrift {
	var evaluated []game.Turn
	for _, t := range history {
		if t.Evaluated() {
			evaluated = append(evaluated, t)
		}
	}

	if len(evaluated) == 0 {
		return PlayerDrift{Level: LevelOnTrack, RollingAverage: 100}
	}

	recent := evaluated
	if len(recent) > window {
		recent = recent[len(recent)-window:]
	}

	var scoreSum, trend int
	for _, t := range recent {
		scoreSum += t.Evaluation.Score
		trend += t.HPDelta
	}
	avg := float64(scoreSum) / float64(len(recent))

	// Streaks are counted backward from the most recent evaluated turn and
	// stop at the first turn that breaks the respective condition.
	var poor, bad int
	for i := len(evaluated) - 1; i >= 0; i-- {
		if evaluated[i].Evaluation.Score < poorScoreCeiling {
			poor++
		} else {
			break
		}
	}
	for i := len(evaluated) - 1; i >= 0; i-- {
		if evaluated[i].Evaluation.Score < badScoreCeiling {
			bad++
		} else {
			break
		}
	}

	d := PlayerDrift{
		ConsecutivePoor: poor,
		ConsecutiveBad:  bad,
		RollingAverage:  avg,
		HPTrend:         trend,
	}

	switch {
	case bad >= 2:
		d.Level = LevelCritical
	case poor >= 3 || avg < 30 || trend <= -30:
		d.Level = LevelStruggling
	case poor >= 2 || avg < 50:
		d.Level = LevelPassive
	default:
		d.Level = LevelOnTrack
	}
	return d
}
