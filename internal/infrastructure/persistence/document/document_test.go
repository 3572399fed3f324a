package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/internal/domain/student"
	"github.com/jee-coach/tutor/pkg/timeutil"
)

func TestEncodeDecode_PreservesProfile(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, timeutil.IST)
	p, err := student.NewProfile(student.NewProfileParams{
		Name:     "Riya Sharma",
		ExamDate: timeutil.Date(2026, 4, 2),
		Now:      now,
	})
	require.NoError(t, err)
	p.RecordStressTrigger("long_session")

	data, err := Encode(p)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.True(t, p.ExamDate.Equal(got.ExamDate))
	assert.Equal(t, p.DailyHours, got.DailyHours)
	assert.Equal(t, 1, got.StressTriggers["long_session"])
}

func TestDecode_FillsEmptyCollections(t *testing.T) {
	got, err := Decode([]byte(`{"student_id":"arjun","name":"Arjun"}`))
	require.NoError(t, err)
	assert.NotNil(t, got.Topics)
	assert.NotNil(t, got.Sessions)
	assert.NotNil(t, got.Interventions)
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	assert.ErrorIs(t, err, shared.ErrInvalidProfile)

	_, err = Decode([]byte(`{"student_id":"","name":""}`))
	assert.ErrorIs(t, err, shared.ErrInvalidProfile)
}
