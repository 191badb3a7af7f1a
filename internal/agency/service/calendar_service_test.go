package service

import (
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderICal(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	evs := []CalendarEvent{
		{ID: "m1", Type: "milestone", Title: "Discovery, research", Date: "2024-01-03", Status: "completed"},
		{ID: "t1", Type: "task", Title: "Kickoff call", Date: "2024-01-05", Status: "todo"},
		{ID: "bad", Type: "task", Title: "No date", Date: ""},
	}

	out := RenderICal("Site; redesign", evs, now)

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(strings.TrimRight(out, "\r\n"), "END:VCALENDAR"))
	assert.Contains(t, out, "VERSION:2.0\r\n")
	assert.Contains(t, out, "METHOD:PUBLISH\r\n")
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "UID:milestone-m1@flow-masters\r\n")
	assert.Contains(t, out, "DTSTAMP:20240101T093000Z\r\n")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20240103\r\n")
	assert.Contains(t, out, "DTEND;VALUE=DATE:20240104\r\n")

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	assert.Equal(t, "milestone-m1@flow-masters", events[0].Id())
	assert.True(t, strings.HasPrefix(events[0].GetProperty(ics.ComponentPropertySummary).Value, "Milestone: Discovery"))
	assert.Equal(t, string(ics.ObjectStatusConfirmed), events[0].GetProperty(ics.ComponentPropertyStatus).Value)
	assert.Equal(t, "Task: Kickoff call", events[1].GetProperty(ics.ComponentPropertySummary).Value)
	assert.Equal(t, string(ics.ObjectStatusTentative), events[1].GetProperty(ics.ComponentPropertyStatus).Value)
}

func TestRenderICalLongTitleRoundTrips(t *testing.T) {
	title := strings.Repeat("Запуск рекламной кампании ", 6)
	out := RenderICal("Кампания", []CalendarEvent{
		{ID: "t9", Type: "task", Title: title, Date: "2024-02-10", Status: "cancelled"},
	}, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, cal.Events(), 1)
	ev := cal.Events()[0]
	assert.Equal(t, "Task: "+title, ev.GetProperty(ics.ComponentPropertySummary).Value)
	assert.Equal(t, string(ics.ObjectStatusCancelled), ev.GetProperty(ics.ComponentPropertyStatus).Value)
}
