package dto

import (
	"sort"

	"github.com/EliasBlind/UniBot/internal/models"
)

// DaySchedule groups one date's lessons for the dates endpoint.
type DaySchedule struct {
	Date    string          `json:"date"`
	Lessons []models.Lesson `json:"lessons"`
}

// DaysFromMap flattens the per-date mapping into a date-sorted slice.
func DaysFromMap(byDate map[string][]models.Lesson) []DaySchedule {
	days := make([]DaySchedule, 0, len(byDate))
	for date, lessons := range byDate {
		days = append(days, DaySchedule{Date: date, Lessons: lessons})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}
