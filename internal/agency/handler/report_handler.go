package handler

import (
	"fmt"
	"net/http"

	"github.com/braincreator/flow-masters/internal/agency/service"
	"github.com/gin-gonic/gin"
)

// ReportHandler analytics and calendar exports
type ReportHandler struct {
	reports  *service.ReportService
	calendar *service.CalendarService
}

func NewReportHandler(reports *service.ReportService, calendar *service.CalendarService) *ReportHandler {
	return &ReportHandler{reports: reports, calendar: calendar}
}

// Report GET /api/project-reports/:id?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *ReportHandler) Report(c *gin.Context) {
	from, ok := dateQuery(c, "from")
	if !ok {
		BadRequest(c, "from must be a YYYY-MM-DD date")
		return
	}
	to, ok := dateQuery(c, "to")
	if !ok {
		BadRequest(c, "to must be a YYYY-MM-DD date")
		return
	}
	report, err := h.reports.Build(c.Request.Context(), c.Param("id"), from, to, actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, report)
}

// Export POST /api/project-reports/:id/export?from=&to=
func (h *ReportHandler) Export(c *gin.Context) {
	from, ok := dateQuery(c, "from")
	if !ok {
		BadRequest(c, "from must be a YYYY-MM-DD date")
		return
	}
	to, ok := dateQuery(c, "to")
	if !ok {
		BadRequest(c, "to must be a YYYY-MM-DD date")
		return
	}
	res, err := h.reports.Export(c.Request.Context(), c.Param("id"), from, to, actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, res)
}

// Calendar GET /api/project-calendar/:id?format=ical|json
func (h *ReportHandler) Calendar(c *gin.Context) {
	format := c.DefaultQuery("format", service.CalendarICal)
	ical, events, err := h.calendar.Export(c.Request.Context(), c.Param("id"), format, actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	if format == service.CalendarJSON {
		Success(c, gin.H{"events": events})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "project-"+c.Param("id")+".ics"))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ical))
}
