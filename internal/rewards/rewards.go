// Package rewards turns completed attempts into points and streak updates.
package rewards

import (
	"context"
	"fmt"
	"math"
	"time"

	"assessment-session-service/internal/domain"
	"assessment-session-service/internal/logger"
)

const (
	// PassBonus is added to every passing attempt.
	PassBonus = 50
	// MilestoneBonus is added when a pass streak reaches a milestone.
	MilestoneBonus = 25
	// BaseStreakMilestone is the first streak length that earns MilestoneBonus.
	BaseStreakMilestone = 3
)

// StreakStore keeps consecutive-pass streaks per learner.
type StreakStore interface {
	// Extend increments the learner's streak and returns the new length.
	Extend(ctx context.Context, learnerID string) (int, error)
	// Reset clears the learner's streak.
	Reset(ctx context.Context, learnerID string) error
}

// Publisher forwards awards to whoever renders them (notifications, profile widgets).
type Publisher interface {
	Publish(ctx context.Context, award Award) error
}

// Award is the incentive produced for one completed attempt.
type Award struct {
	LearnerID     string    `json:"learnerId"`
	AssessmentID  string    `json:"assessmentId"`
	AttemptID     string    `json:"attemptId"`
	Points        int       `json:"points"`
	Streak        int       `json:"streak"`
	Milestone     bool      `json:"milestone"`
	NextMilestone int       `json:"nextMilestone"`
	Reason        string    `json:"reason"`
	AwardedAt     time.Time `json:"awardedAt"`
}

// Sink receives final results and converts them into awards.
type Sink struct {
	streaks   StreakStore
	publisher Publisher
	log       *logger.Logger
}

// NewSink builds a sink. publisher may be nil.
func NewSink(streaks StreakStore, publisher Publisher, log *logger.Logger) *Sink {
	if log == nil {
		log = logger.Nop()
	}
	return &Sink{streaks: streaks, publisher: publisher, log: log.With("component", "rewards")}
}

// Notify records the outcome of a completed attempt.
func (s *Sink) Notify(ctx context.Context, reward domain.Reward) error {
	award := Award{
		LearnerID:    reward.LearnerID,
		AssessmentID: reward.AssessmentID,
		AttemptID:    reward.AttemptID,
		Points:       Points(reward.Percentage, reward.Passed),
		AwardedAt:    reward.CompletedAt,
	}

	if reward.Passed {
		streak, err := s.streaks.Extend(ctx, reward.LearnerID)
		if err != nil {
			return fmt.Errorf("extend streak: %w", err)
		}
		award.Streak = streak
		if IsMilestone(streak) {
			award.Milestone = true
			award.Points += MilestoneBonus
		}
		award.NextMilestone = NextMilestone(streak)
		award.Reason = fmt.Sprintf("Passed with %.0f%%", reward.Percentage)
	} else {
		if err := s.streaks.Reset(ctx, reward.LearnerID); err != nil {
			return fmt.Errorf("reset streak: %w", err)
		}
		award.NextMilestone = NextMilestone(0)
		award.Reason = fmt.Sprintf("Completed with %.0f%%", reward.Percentage)
	}

	s.log.Info("award granted",
		"learner_id", award.LearnerID,
		"attempt_id", award.AttemptID,
		"points", award.Points,
		"streak", award.Streak,
		"next_milestone", award.NextMilestone,
	)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, award); err != nil {
			return fmt.Errorf("publish award: %w", err)
		}
	}
	return nil
}

// Points awards one point per full percent, plus PassBonus when passed.
func Points(percentage float64, passed bool) int {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}
	points := int(math.Floor(percentage))
	if passed {
		points += PassBonus
	}
	return points
}

// IsMilestone reports whether a streak of this length earns a bonus.
func IsMilestone(streak int) bool {
	return streak > 0 && streak == nextMilestoneFrom(streak-1)
}

// NextMilestone returns the next streak milestone above current.
func NextMilestone(current int) int {
	return nextMilestoneFrom(current)
}

func nextMilestoneFrom(current int) int {
	thresholds := []int{BaseStreakMilestone, 5, 10, 15, 20}
	for _, t := range thresholds {
		if t > current {
			return t
		}
	}
	// Beyond 20, every 5.
	return ((current / 5) + 1) * 5
}
