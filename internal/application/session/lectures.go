package session

import (
	"fmt"

	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
	"github.com/jee-coach/tutor/pkg/logger"
)

// RecordLecture logs mins of watch time on a recorded lecture. Progress is
// kept with the open session and reaches the profile on EndSession. The
// recommended speed follows the session's current confidence in the
// lecture's topic.
func (o *Orchestrator) RecordLecture(id string, mins int) (student.LectureProgress, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.active
	if s == nil {
		return student.LectureProgress{}, shared.ErrNoActiveSession
	}
	if mins <= 0 {
		return student.LectureProgress{}, shared.ErrInvalidWatchTime
	}
	if o.lectures == nil {
		return student.LectureProgress{}, shared.ErrNoContentAvailable.Wrap(fmt.Errorf("no lecture catalog for %q", id))
	}
	lec, ok := o.lectures.Lecture(id)
	if !ok {
		return student.LectureProgress{}, shared.ErrNoContentAvailable.Wrap(fmt.Errorf("unknown lecture %q", id))
	}

	p, seen := s.lectures[lec.ID]
	if !seen {
		p = student.LectureProgress{
			LectureID:     lec.ID,
			Title:         lec.Title,
			Subject:       lec.Subject,
			Topic:         lec.Topic,
			KeyTimestamps: append([]string(nil), lec.KeyTimestamps...),
		}
	}
	p.TotalMins = lec.TotalMins
	m, _ := s.working.Get(lec.Subject, lec.Topic)
	p.RecommendedSpeed = student.RecommendedSpeedFor(m.Confidence)
	p.RecordWatch(mins, o.now())

	if s.lectures == nil {
		s.lectures = make(map[string]student.LectureProgress)
	}
	s.lectures[lec.ID] = p

	o.log.Info("lecture watched",
		logger.String("student_id", s.profile.ID.String()),
		logger.String("lecture_id", lec.ID),
		logger.Int("watched_mins", p.WatchedMins),
		logger.Bool("completed", p.Completed()),
	)
	return p.Clone(), nil
}
