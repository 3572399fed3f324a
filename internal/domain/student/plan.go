package student

import (
	"time"

	"github.com/jee-coach/tutor/internal/domain/mastery"
	"github.com/jee-coach/tutor/internal/domain/shared"
)

// TopicTarget is one topic scheduled in a daily plan.
type TopicTarget struct {
	Subject    string             `json:"subject"`
	Topic      string             `json:"topic"`
	Confidence mastery.Confidence `json:"confidence"`
	Difficulty shared.Difficulty  `json:"difficulty"`
	Stretch    bool               `json:"stretch"`
}

// BlockKind distinguishes study time from breaks in a plan.
type BlockKind string

const (
	BlockStudy BlockKind = "study"
	BlockBreak BlockKind = "break"
)

// PlanBlock is one stretch of the day.
type PlanBlock struct {
	Kind    BlockKind `json:"kind"`
	Minutes int       `json:"minutes"`
}

// LectureToWatch is a recorded lecture suggested for a weak target topic.
type LectureToWatch struct {
	LectureID string  `json:"lecture_id"`
	Title     string  `json:"title"`
	Subject   string  `json:"subject"`
	Topic     string  `json:"topic"`
	Speed     float64 `json:"speed"`
}

// DailyPlan is the skeleton of one day's study: what to focus on, how many
// questions to attempt and how the hours split into blocks.
type DailyPlan struct {
	Date              time.Time     `json:"date"`
	DayIndex          int           `json:"day_index"`
	FocusSubject      string        `json:"focus_subject"`
	TargetTopics      []TopicTarget `json:"target_topics"`
	TargetPYQCount    int           `json:"target_pyq_count"`
	EstimatedHours    float64       `json:"estimated_hours"`
	Blocks            []PlanBlock   `json:"blocks"`
	YesterdayAccuracy *float64      `json:"yesterday_accuracy,omitempty"`

	LecturesToWatch []LectureToWatch `json:"lectures_to_watch,omitempty"`
}

// StudyMinutes sums the study blocks.
func (d DailyPlan) StudyMinutes() int {
	total := 0
	for _, b := range d.Blocks {
		if b.Kind == BlockStudy {
			total += b.Minutes
		}
	}
	return total
}

// Clone returns a deep copy.
func (d DailyPlan) Clone() DailyPlan {
	d.TargetTopics = cloneSlice(d.TargetTopics)
	d.Blocks = cloneSlice(d.Blocks)
	d.LecturesToWatch = cloneSlice(d.LecturesToWatch)
	if d.YesterdayAccuracy != nil {
		v := *d.YesterdayAccuracy
		d.YesterdayAccuracy = &v
	}
	return d
}
