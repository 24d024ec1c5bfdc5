package sm2

import (
	"math"
	"time"

	"github.com/prepdeck/prepdeck-api/internal/domain"
)

// qualityFor maps a qualitative rating to the SM-2 quality score (0-5).
//
// Only three of the six classic quality levels are reachable from the UI:
// a confident answer, a hesitant one, and a blackout. Any rating outside
// the enumeration degrades to the hesitant quality rather than failing;
// the scheduler never rejects input.
func qualityFor(rating domain.Rating) int {
	switch rating {
	case domain.RatingKnowIt:
		return 5 // perfect response
	case domain.RatingLearning:
		return 3 // correct with difficulty
	case domain.RatingDontKnow:
		return 0 // complete blackout
	default:
		return 3
	}
}

// computeNext applies one SM-2 step to the prior state.
//
// The order of operations is deliberate and must not be rearranged:
// the interval for the third and later repetitions multiplies the old
// interval by the ease factor as it stood BEFORE this call's adjustment,
// and the repetition branch tests the pre-increment repetition count.
// Updating the ease factor first silently changes every interval from the
// third review onward.
func computeNext(prior *State, rating domain.Rating, now time.Time) Schedule {
	easeFactor := domain.InitialEaseFactor
	interval := domain.InitialInterval
	repetitions := 0

	if prior != nil {
		easeFactor = prior.EaseFactor
		interval = prior.Interval
		repetitions = prior.Repetitions
	}

	quality := qualityFor(rating)

	if quality >= 3 {
		// Correct response
		switch repetitions {
		case 0:
			interval = 1
		case 1:
			interval = 6
		default:
			interval = int(math.Round(float64(interval) * easeFactor))
		}
		repetitions++
	} else {
		// Incorrect response - reset
		repetitions = 0
		interval = 1
	}

	// Adjust the ease factor. Applied on both branches; bounded below but
	// not above.
	easeFactor += 0.1 - float64(5-quality)*(0.08+float64(5-quality)*0.02)
	if easeFactor < domain.MinimumEaseFactor {
		easeFactor = domain.MinimumEaseFactor
	}

	return Schedule{
		State: State{
			EaseFactor:  easeFactor,
			Interval:    interval,
			Repetitions: repetitions,
		},
		NextReviewDate: now.AddDate(0, 0, interval),
	}
}
