package httpapi

import (
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"compliance_calendar/internal/app"
	"compliance_calendar/internal/domain/calendar"
	"compliance_calendar/internal/domain/compliance"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	calendars    *app.CalendarService
	fulfillments *app.FulfillmentService
	status       *app.StatusService
	logger       *logrus.Entry
	now          func() time.Time
}

func NewHandler(calendars *app.CalendarService, fulfillments *app.FulfillmentService, status *app.StatusService, logger *logrus.Entry, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{calendars: calendars, fulfillments: fulfillments, status: status, logger: logger, now: now}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/calendars/generate", h.generate)

	rg.POST("/occurrences/shift", h.shift)
	rg.POST("/occurrences/disable", h.disable)
	rg.POST("/occurrences/fulfill", h.fulfill)
	rg.PATCH("/occurrences/:id/active", h.setActive)

	rg.POST("/periods/:id/sync", h.syncPeriod)

	rg.GET("/status", h.listStatus)
	rg.GET("/status/export.csv", h.exportCSV)
	rg.GET("/clients/:client_id/export.csv", h.exportClientCSV)
}

func (h *Handler) generate(c *gin.Context) {
	var req generateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}
	genReq, err := req.toRequest()
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.calendars.GenerateCalendar(c.Request.Context(), genReq)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "message": res.Message, "count": res.Count, "year": res.Year, "occurrences": res.Occurrences})
}

func (h *Handler) shift(c *gin.Context) {
	var req shiftReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}
	shift, err := req.toRequest()
	if err != nil {
		respondError(c, err)
		return
	}

	n, err := h.calendars.ShiftDatesBulk(c.Request.Context(), shift)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "updated": n})
}

func (h *Handler) disable(c *gin.Context) {
	var req disableReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}
	from, err := calendar.ParseDate("from_date", req.FromDate)
	if err != nil {
		respondError(c, err)
		return
	}

	summary, err := h.calendars.DisableFromDate(c.Request.Context(), req.TemplateID, from, strings.TrimSpace(req.ClientID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": summary})
}

func (h *Handler) fulfill(c *gin.Context) {
	var req fulfillReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}
	fulfillment, err := req.toRequest()
	if err != nil {
		respondError(c, err)
		return
	}

	n, err := h.fulfillments.FulfillBulk(c.Request.Context(), fulfillment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "fulfilled": n})
}

func (h *Handler) setActive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req activeReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		respondInvalidBody(c)
		return
	}

	summary, err := h.calendars.SetOccurrenceActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "period": summary})
}

func (h *Handler) syncPeriod(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	summary, err := h.calendars.SynchronizePeriod(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "period": summary})
}

func (h *Handler) listStatus(c *gin.Context) {
	rows, ok := h.report(c, "")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(rows), "items": toRowViews(rows)})
}

func (h *Handler) exportCSV(c *gin.Context) {
	rows, ok := h.report(c, "")
	if !ok {
		return
	}
	h.writeCSV(c, "compliance_status.csv", rows)
}

func (h *Handler) exportClientCSV(c *gin.Context) {
	clientID := strings.TrimSpace(c.Param("client_id"))
	rows, ok := h.report(c, clientID)
	if !ok {
		return
	}
	h.writeCSV(c, "compliance_status_"+clientID+".csv", rows)
}

func (h *Handler) writeCSV(c *gin.Context, filename string, rows []app.ReportRow) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Status(http.StatusOK)
	if err := app.WriteCSV(c.Writer, rows); err != nil {
		h.logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("CSV export aborted")
	}
}

// report runs the status report for the query string. A non-empty clientID
// overrides the client_id parameter.
func (h *Handler) report(c *gin.Context, clientID string) ([]app.ReportRow, bool) {
	filter, asOf, err := h.parseReportQuery(c)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if clientID != "" {
		filter.ClientID = clientID
	}

	rows, err := h.status.Report(c.Request.Context(), filter, asOf)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return rows, true
}

func (h *Handler) parseReportQuery(c *gin.Context) (app.ReportFilter, time.Time, error) {
	var (
		filter app.ReportFilter
		err    error
	)
	filter.ClientID = strings.TrimSpace(c.Query("client_id"))
	if v := c.Query("template_id"); v != "" {
		filter.TemplateID, err = strconv.ParseInt(v, 10, 64)
		if err != nil || filter.TemplateID <= 0 {
			return filter, time.Time{}, calendar.NewValidationError("template_id", "must be a positive integer")
		}
	}
	if filter.DeadlineFrom, err = calendar.ParseOptionalDate("deadline_from", c.Query("deadline_from")); err != nil {
		return filter, time.Time{}, err
	}
	if filter.DeadlineTo, err = calendar.ParseOptionalDate("deadline_to", c.Query("deadline_to")); err != nil {
		return filter, time.Time{}, err
	}
	for _, raw := range c.QueryArray("status") {
		for _, s := range strings.Split(raw, ",") {
			st := compliance.Status(strings.TrimSpace(s))
			if st == "" {
				continue
			}
			if !compliance.Known(st) {
				return filter, time.Time{}, calendar.NewValidationError("status", "unknown status "+strconv.Quote(string(st)))
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}

	asOf, err := parseAsOf(c.Query("as_of"), h.now)
	if err != nil {
		return filter, time.Time{}, err
	}
	return filter, asOf, nil
}

// parseAsOf accepts an RFC 3339 timestamp or a YYYY-MM-DD date and defaults to now.
func parseAsOf(s string, now func() time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return calendar.ParseDate("as_of", s)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid " + name, "field": name})
		return 0, false
	}
	return id, true
}
