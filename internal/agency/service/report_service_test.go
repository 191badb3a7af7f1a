package service

import (
	"testing"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) *time.Time {
	t := day(s).Add(10 * time.Hour)
	return &t
}

func TestWeekStart(t *testing.T) {
	assert.Equal(t, "2024-01-01", WeekStart(day("2024-01-01")).Format(dateLayout))
	assert.Equal(t, "2024-01-01", WeekStart(day("2024-01-03")).Format(dateLayout))
	assert.Equal(t, "2024-01-01", WeekStart(*at("2024-01-07")).Format(dateLayout))
	assert.Equal(t, "2024-01-08", WeekStart(day("2024-01-08")).Format(dateLayout))
}

func TestBuildReport(t *testing.T) {
	tasks := []entity.Task{
		{Status: entity.TaskStatusCompleted, CompletedAt: at("2024-01-03"), ActualHours: 4},
		{Status: entity.TaskStatusCompleted, CompletedAt: at("2024-01-10"), ActualHours: 2.5},
		{Status: entity.TaskStatusTodo, DueDate: at("2024-01-05")},
		{Status: entity.TaskStatusCancelled, DueDate: at("2024-01-05")},
	}
	milestones := []entity.ProjectMilestone{
		{Status: entity.MilestoneStatusCompleted, CompletedAt: at("2024-01-09")},
		{Status: entity.MilestoneStatusInProgress},
	}
	messages := []entity.ProjectMessage{
		{CreatedAt: *at("2024-01-02")},
		{CreatedAt: *at("2023-12-30")},
	}

	weeks, sum := BuildReport(tasks, milestones, messages, day("2024-01-01"), day("2024-01-14"), day("2024-01-14"))

	require.Len(t, weeks, 2)
	assert.Equal(t, WeekStats{WeekStart: "2024-01-01", TasksCompleted: 1, HoursLogged: 4, Messages: 1}, weeks[0])
	assert.Equal(t, WeekStats{WeekStart: "2024-01-08", TasksCompleted: 1, MilestonesCompleted: 1, HoursLogged: 2.5}, weeks[1])

	assert.Equal(t, 4, sum.TotalTasks)
	assert.Equal(t, 2, sum.CompletedTasks)
	assert.Equal(t, 1, sum.OverdueTasks)
	assert.Equal(t, 2, sum.TotalMilestones)
	assert.Equal(t, 1, sum.CompletedMilestones)
	assert.Equal(t, 50.0, sum.MilestoneProgress)
}

func TestReportRange(t *testing.T) {
	now := time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)

	from, to, err := ReportRange(nil, nil, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-20", to.Format(dateLayout))
	assert.Equal(t, "2024-01-29", from.Format(dateLayout))

	f, tt := day("2024-03-01"), day("2024-02-01")
	_, _, err = ReportRange(&f, &tt, now)
	assert.ErrorIs(t, err, ErrValidation)

	f, tt = day("2022-01-01"), day("2024-01-01")
	_, _, err = ReportRange(&f, &tt, now)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRenderReportXLSX(t *testing.T) {
	report := &ProjectReport{
		ProjectID: "p-1",
		From:      "2024-01-01",
		To:        "2024-01-14",
		Weeks:     []WeekStats{{WeekStart: "2024-01-01", TasksCompleted: 3}},
		Summary:   ReportSummary{TotalTasks: 5},
	}

	f, err := RenderReportXLSX(report)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Weeks", "Summary"}, f.GetSheetList())
	v, err := f.GetCellValue("Weeks", "B2")
	require.NoError(t, err)
	assert.Equal(t, "3", v)
	v, err = f.GetCellValue("Summary", "B4")
	require.NoError(t, err)
	assert.Equal(t, "5", v)
}
