package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jee-coach/tutor/internal/domain/content"
	"github.com/jee-coach/tutor/pkg/logger"
)

// LectureIndex is the list of recorded lectures, in file order.
type LectureIndex struct {
	lectures []content.Lecture
	byID     map[string]int
}

var _ content.LectureCatalog = (*LectureIndex)(nil)

type lectureFile struct {
	Lectures []yaml.Node `yaml:"lectures"`
}

// LoadLectures reads a lecture file. A missing file yields an empty index.
func LoadLectures(path string, log *logger.Logger) (*LectureIndex, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ParseLectures(nil, log)
	}
	if err != nil {
		return nil, fmt.Errorf("read lecture file: %w", err)
	}
	return ParseLectures(data, log)
}

// ParseLectures decodes lectures, skipping invalid ones and duplicate IDs.
func ParseLectures(data []byte, log *logger.Logger) (*LectureIndex, error) {
	if log == nil {
		log = logger.Nop()
	}
	var file lectureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse lecture file: %w", err)
	}

	idx := &LectureIndex{byID: make(map[string]int, len(file.Lectures))}
	v := validatorInstance()
	for i := range file.Lectures {
		node := &file.Lectures[i]
		var l content.Lecture
		if err := node.Decode(&l); err != nil {
			log.Warn("lecture rejected", logger.Int("line", node.Line), logger.Err(err))
			continue
		}
		if err := v.Struct(l); err != nil {
			log.Warn("lecture rejected",
				logger.Int("line", node.Line),
				logger.String("lecture_id", l.ID),
				logger.String("reason", describe(err)))
			continue
		}
		key := strings.ToLower(l.ID)
		if _, dup := idx.byID[key]; dup {
			log.Warn("duplicate lecture skipped", logger.String("lecture_id", l.ID))
			continue
		}
		idx.byID[key] = len(idx.lectures)
		idx.lectures = append(idx.lectures, l)
	}
	return idx, nil
}

// Lectures returns a copy of every lecture.
func (x *LectureIndex) Lectures() []content.Lecture {
	out := make([]content.Lecture, len(x.lectures))
	copy(out, x.lectures)
	return out
}

// Lecture looks a lecture up by ID, ignoring case.
func (x *LectureIndex) Lecture(id string) (content.Lecture, bool) {
	i, ok := x.byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return content.Lecture{}, false
	}
	return x.lectures[i], true
}

// Len is the number of lectures.
func (x *LectureIndex) Len() int { return len(x.lectures) }
