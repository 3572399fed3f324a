// Package student contains the student profile aggregate of the tutor.
//
// The package defines:
//
//   - Aggregate: Profile, the single root that persistence loads and saves whole
//   - Entities: SessionRecord, DailyPlan, LectureProgress
//   - Behavioural aggregates: intervention effectiveness and stress triggers
//   - Repository and SessionLock interfaces implemented in infrastructure
//
// # Principles
//
//  1. No third-party dependencies; topic mastery lives in the mastery package
//  2. Whole-object persistence: a profile is loaded at session start and
//     replaced at session end, never patched field by field
//  3. Only the session orchestrator mutates a profile during a session
//
// # Usage
//
//	p, err := student.NewProfile(student.NewProfileParams{
//	    Name:     "Riya Sharma",
//	    ExamDate: timeutil.Date(2027, 4, 4),
//	    Now:      time.Now(),
//	})
//	days := p.DaysRemaining(time.Now())
package student
