// Package document encodes student profiles as single JSON documents, the
// format every profile store persists.
package document

import (
	"encoding/json"
	"fmt"

	"github.com/jee-coach/tutor/internal/domain/mastery"
	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
)

// Encode marshals a profile.
func Encode(p *student.Profile) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode profile %s: %w", p.ID, err)
	}
	return data, nil
}

// Decode unmarshals a profile and fills empty collections so callers never
// see nil maps. Undecodable or invalid documents match shared.ErrInvalidProfile.
func Decode(data []byte) (*student.Profile, error) {
	var p student.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, shared.ErrInvalidProfile.Wrap(err)
	}
	if p.Topics == nil {
		p.Topics = make(mastery.Book)
	}
	if p.Sessions == nil {
		p.Sessions = make([]student.SessionRecord, 0)
	}
	if p.DailyPlans == nil {
		p.DailyPlans = make([]student.DailyPlan, 0)
	}
	if p.Lectures == nil {
		p.Lectures = make(map[string]student.LectureProgress)
	}
	if p.Interventions == nil {
		p.Interventions = make(map[string]student.InterventionStat)
	}
	if p.StressTriggers == nil {
		p.StressTriggers = make(map[string]int)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
