package app

import (
	"strings"

	"github.com/shopspring/decimal"

	"quiz-orchestrator/internal/domain"
)

// CompletePoints is awarded in complete mode for an exactly matching answer.
const CompletePoints = 10

var ten = decimal.NewFromInt(10)

// ScoreAnswer returns the points earned by selected against the correct letters.
// Both slices are treated as sets.
func ScoreAnswer(mode domain.ScoreMode, correct, selected []string) int {
	want := letterSet(correct)
	got := letterSet(selected)

	if mode == domain.ScorePartial {
		return partialScore(want, got)
	}
	if len(want) != len(got) {
		return 0
	}
	for l := range got {
		if _, ok := want[l]; !ok {
			return 0
		}
	}
	return CompletePoints
}

// partialScore is round(sum/|C|*10) floored at zero, where every selected
// letter adds one when correct and subtracts one otherwise.
func partialScore(want, got map[string]struct{}) int {
	if len(want) == 0 {
		return 0
	}
	sum := int64(0)
	for l := range got {
		if _, ok := want[l]; ok {
			sum++
		} else {
			sum--
		}
	}
	points := decimal.NewFromInt(sum).
		Mul(ten).
		Div(decimal.NewFromInt(int64(len(want)))).
		Round(0).
		IntPart()
	if points < 0 {
		return 0
	}
	return int(points)
}

func letterSet(letters []string) map[string]struct{} {
	set := make(map[string]struct{}, len(letters))
	for _, l := range letters {
		set[strings.ToLower(l)] = struct{}{}
	}
	return set
}
