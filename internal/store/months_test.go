package store

import (
	"testing"
	"time"

	"autotag/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestMonthTally(t *testing.T) {
	plus2 := time.FixedZone("UTC+2", 2*3600)
	tally := NewMonthTally(plus2)

	tally.Add(time.Date(2024, 5, 31, 23, 0, 0, 0, time.UTC), true) // June 1st in UTC+2
	tally.Add(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), false)
	tally.Add(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), false)

	total, tagged := tally.Counts()
	assert.Equal(t, []models.MonthCount{{Key: "2024-05", Count: 1}, {Key: "2024-06", Count: 2}}, total)
	assert.Equal(t, []models.MonthCount{{Key: "2024-06", Count: 1}}, tagged)
}
