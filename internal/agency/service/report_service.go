package service

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/repository"
	"github.com/braincreator/flow-masters/internal/shared/storage"
	"github.com/xuri/excelize/v2"
)

const (
	defaultReportWeeks = 8
	maxReportWeeks     = 53
)

// WeekStart returns the Monday 00:00 UTC of t's week.
func WeekStart(t time.Time) time.Time {
	d := truncateDay(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeekStats activity within one Monday-start week
type WeekStats struct {
	WeekStart           string  `json:"weekStart"`
	TasksCompleted      int     `json:"tasksCompleted"`
	MilestonesCompleted int     `json:"milestonesCompleted"`
	HoursLogged         float64 `json:"hoursLogged"`
	Messages            int     `json:"messages"`
}

// ReportSummary whole-project figures
type ReportSummary struct {
	TotalTasks          int     `json:"totalTasks"`
	CompletedTasks      int     `json:"completedTasks"`
	OverdueTasks        int     `json:"overdueTasks"`
	TotalMilestones     int     `json:"totalMilestones"`
	CompletedMilestones int     `json:"completedMilestones"`
	MilestoneProgress   float64 `json:"milestoneProgress"`
	AverageSatisfaction float64 `json:"averageSatisfaction"`
}

// ProjectReport weekly analytics of a project
type ProjectReport struct {
	ProjectID string        `json:"projectId"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Weeks     []WeekStats   `json:"weeks"`
	Summary   ReportSummary `json:"summary"`
}

// ReportRange resolves the query window. Missing bounds default to the last eight weeks.
func ReportRange(from, to *time.Time, now time.Time) (time.Time, time.Time, error) {
	end := truncateDay(now)
	if to != nil {
		end = truncateDay(*to)
	}
	start := WeekStart(end).AddDate(0, 0, -7*(defaultReportWeeks-1))
	if from != nil {
		start = truncateDay(*from)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, validationf("from must not be after to")
	}
	if end.Sub(WeekStart(start)) > time.Duration(maxReportWeeks)*7*24*time.Hour {
		return time.Time{}, time.Time{}, validationf("range must not exceed %d weeks", maxReportWeeks)
	}
	return start, end, nil
}

// BuildReport buckets activity into Monday-start UTC weeks covering [from, to].
func BuildReport(tasks []entity.Task, milestones []entity.ProjectMilestone, messages []entity.ProjectMessage, from, to, now time.Time) ([]WeekStats, ReportSummary) {
	first := WeekStart(from)
	last := WeekStart(to)
	index := make(map[time.Time]int)
	var weeks []WeekStats
	for w := first; !w.After(last); w = w.AddDate(0, 0, 7) {
		index[w] = len(weeks)
		weeks = append(weeks, WeekStats{WeekStart: w.Format(dateLayout)})
	}
	bucket := func(t *time.Time) *WeekStats {
		if t == nil {
			return nil
		}
		d := truncateDay(*t)
		if d.Before(from) || d.After(to) {
			return nil
		}
		if i, ok := index[WeekStart(d)]; ok {
			return &weeks[i]
		}
		return nil
	}

	var sum ReportSummary
	today := truncateDay(now)
	for i := range tasks {
		t := &tasks[i]
		sum.TotalTasks++
		if t.Status == entity.TaskStatusCompleted {
			sum.CompletedTasks++
			if w := bucket(t.CompletedAt); w != nil {
				w.TasksCompleted++
				w.HoursLogged += t.ActualHours
			}
		} else if t.Status != entity.TaskStatusCancelled && t.DueDate != nil && truncateDay(*t.DueDate).Before(today) {
			sum.OverdueTasks++
		}
	}
	for i := range milestones {
		m := &milestones[i]
		sum.TotalMilestones++
		if m.Status == entity.MilestoneStatusCompleted {
			sum.CompletedMilestones++
			if w := bucket(m.CompletedAt); w != nil {
				w.MilestonesCompleted++
			}
		}
	}
	for i := range messages {
		if w := bucket(&messages[i].CreatedAt); w != nil {
			w.Messages++
		}
	}
	if sum.TotalMilestones > 0 {
		sum.MilestoneProgress = round1(float64(sum.CompletedMilestones) * 100 / float64(sum.TotalMilestones))
	}
	return weeks, sum
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ReportService project analytics and exports
type ReportService struct {
	taskRepo      *repository.TaskRepository
	milestoneRepo *repository.MilestoneRepository
	messageRepo   *repository.MessageRepository
	projects      *ProjectService
	store         storage.ObjectStore
	urlExpiry     time.Duration
	now           func() time.Time
}

func NewReportService(
	taskRepo *repository.TaskRepository,
	milestoneRepo *repository.MilestoneRepository,
	messageRepo *repository.MessageRepository,
	projects *ProjectService,
	store storage.ObjectStore,
	urlExpiry time.Duration,
) *ReportService {
	if urlExpiry <= 0 {
		urlExpiry = time.Hour
	}
	return &ReportService{
		taskRepo:      taskRepo,
		milestoneRepo: milestoneRepo,
		messageRepo:   messageRepo,
		projects:      projects,
		store:         store,
		urlExpiry:     urlExpiry,
		now:           time.Now,
	}
}

func (s *ReportService) Build(ctx context.Context, projectID string, from, to *time.Time, actor Actor) (*ProjectReport, error) {
	if _, err := s.projects.AccessibleProject(ctx, projectID, actor); err != nil {
		return nil, err
	}
	start, end, err := ReportRange(from, to, s.now())
	if err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	milestones, err := s.milestoneRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load milestones: %w", err)
	}
	messages, err := s.messageRepo.ListByProject(ctx, projectID, actor.IsStaff())
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	avg, err := s.milestoneRepo.AverageRating(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("average rating: %w", err)
	}

	weeks, summary := BuildReport(tasks, milestones, messages, start, end, s.now())
	summary.AverageSatisfaction = round1(avg)
	return &ProjectReport{
		ProjectID: projectID,
		From:      start.Format(dateLayout),
		To:        end.Format(dateLayout),
		Weeks:     weeks,
		Summary:   summary,
	}, nil
}

// ExportResult stored spreadsheet
type ExportResult struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Export renders the report to xlsx, stores it and returns a presigned link.
func (s *ReportService) Export(ctx context.Context, projectID string, from, to *time.Time, actor Actor) (*ExportResult, error) {
	report, err := s.Build(ctx, projectID, from, to, actor)
	if err != nil {
		return nil, err
	}
	f, err := RenderReportXLSX(report)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}

	filename := fmt.Sprintf("report_%s_%s_%s.xlsx", projectID[:min(8, len(projectID))], report.From, report.To)
	key := fmt.Sprintf("reports/%s/%d.xlsx", projectID, s.now().UnixNano())
	size := int64(buf.Len())
	if err := s.store.Put(ctx, key, &buf, size, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}
	url, err := s.store.PresignedURL(ctx, key, s.urlExpiry, filename)
	if err != nil {
		return nil, fmt.Errorf("presign report: %w", err)
	}
	return &ExportResult{Key: key, URL: url, ExpiresAt: s.now().Add(s.urlExpiry)}, nil
}

// RenderReportXLSX builds a workbook with a weekly sheet and a summary sheet.
func RenderReportXLSX(r *ProjectReport) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Weeks"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})

	headers := []string{"Week", "Tasks completed", "Milestones completed", "Hours logged", "Messages"}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
		f.SetColWidth(sheet, col, col, 20)
	}
	for i, w := range r.Weeks {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), w.WeekStart)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), w.TasksCompleted)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), w.MilestonesCompleted)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), w.HoursLogged)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), w.Messages)
	}

	summary := "Summary"
	if _, err := f.NewSheet(summary); err != nil {
		return nil, err
	}
	rows := [][]interface{}{
		{"Project", r.ProjectID},
		{"From", r.From},
		{"To", r.To},
		{"Total tasks", r.Summary.TotalTasks},
		{"Completed tasks", r.Summary.CompletedTasks},
		{"Overdue tasks", r.Summary.OverdueTasks},
		{"Milestone progress, %", r.Summary.MilestoneProgress},
		{"Average satisfaction", r.Summary.AverageSatisfaction},
	}
	for i, kv := range rows {
		f.SetCellValue(summary, fmt.Sprintf("A%d", i+1), kv[0])
		f.SetCellValue(summary, fmt.Sprintf("B%d", i+1), kv[1])
		f.SetCellStyle(summary, fmt.Sprintf("A%d", i+1), fmt.Sprintf("A%d", i+1), headerStyle)
	}
	f.SetColWidth(summary, "A", "B", 26)
	return f, nil
}
