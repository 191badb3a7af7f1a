package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/repository"
)

// Calendar formats
const (
	CalendarICal = "ical"
	CalendarJSON = "json"
)

// CalendarEvent one dated milestone or task
type CalendarEvent struct {
	ID     string `json:"id"`
	Type   string `json:"type"` // milestone/task
	Title  string `json:"title"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

// CalendarService project calendar export
type CalendarService struct {
	milestoneRepo *repository.MilestoneRepository
	taskRepo      *repository.TaskRepository
	projects      *ProjectService
	now           func() time.Time
}

func NewCalendarService(milestoneRepo *repository.MilestoneRepository, taskRepo *repository.TaskRepository, projects *ProjectService) *CalendarService {
	return &CalendarService{milestoneRepo: milestoneRepo, taskRepo: taskRepo, projects: projects, now: time.Now}
}

// Events lists dated milestones and tasks sorted by date.
func (s *CalendarService) Events(ctx context.Context, projectID string, actor Actor) (*entity.ServiceProject, []CalendarEvent, error) {
	project, err := s.projects.AccessibleProject(ctx, projectID, actor)
	if err != nil {
		return nil, nil, err
	}
	milestones, err := s.milestoneRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := s.taskRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	var out []CalendarEvent
	for _, m := range milestones {
		if m.DueDate == nil {
			continue
		}
		out = append(out, CalendarEvent{ID: m.ID, Type: "milestone", Title: m.Title, Date: m.DueDate.UTC().Format(dateLayout), Status: m.Status})
	}
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		out = append(out, CalendarEvent{ID: t.ID, Type: "task", Title: t.Title, Date: t.DueDate.UTC().Format(dateLayout), Status: t.Status})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return project, out, nil
}

// Export renders the calendar in format. Unknown formats are a validation error.
func (s *CalendarService) Export(ctx context.Context, projectID, format string, actor Actor) (string, []CalendarEvent, error) {
	if format == "" {
		format = CalendarICal
	}
	if format != CalendarICal && format != CalendarJSON {
		return "", nil, validationf("unsupported format %q", format)
	}
	project, evs, err := s.Events(ctx, projectID, actor)
	if err != nil {
		return "", nil, err
	}
	if format == CalendarJSON {
		if evs == nil {
			evs = []CalendarEvent{}
		}
		return "", evs, nil
	}
	return RenderICal(project.Name, evs, s.now()), nil, nil
}

// RenderICal produces an RFC 5545 calendar with one all-day VEVENT per event.
func RenderICal(name string, evs []CalendarEvent, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetProductId("-//Flow Masters//Project Calendar//EN")
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName(name)

	for _, ev := range evs {
		day, err := time.Parse(dateLayout, ev.Date)
		if err != nil {
			continue
		}
		prefix := "Task"
		if ev.Type == "milestone" {
			prefix = "Milestone"
		}
		event := cal.AddEvent(fmt.Sprintf("%s-%s@flow-masters", ev.Type, ev.ID))
		event.SetDtStampTime(now)
		event.SetAllDayStartAt(day)
		event.SetAllDayEndAt(day.AddDate(0, 0, 1))
		event.SetSummary(prefix + ": " + ev.Title)
		event.SetStatus(icalStatus(ev.Status))
	}
	return cal.Serialize()
}

func icalStatus(s string) ics.ObjectStatus {
	switch s {
	case entity.TaskStatusCompleted:
		return ics.ObjectStatusConfirmed
	case entity.TaskStatusCancelled:
		return ics.ObjectStatusCancelled
	default:
		return ics.ObjectStatusTentative
	}
}
