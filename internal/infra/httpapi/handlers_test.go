package httpapi_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"compliance_calendar/internal/app"
	"compliance_calendar/internal/domain/calendar"
	"compliance_calendar/internal/infra/httpapi"
	"compliance_calendar/internal/infra/memstore"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router  *gin.Engine
	store   *memstore.Store
	process *calendar.MasterProcess
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.New()
	ref := calendar.Date(2026, time.January, 31)
	process := &calendar.MasterProcess{
		Name:        "Payroll tax",
		Temporality: calendar.TemporalityMonthly,
		Templates:   []*calendar.MilestoneTemplate{{Name: "Pay", ReferenceDate: &ref, Critical: true, Category: "tax"}},
	}
	require.NoError(t, store.Stores().Processes.Create(context.Background(), process))

	l, _ := test.NewNullLogger()
	logger := logrus.NewEntry(l)
	now := func() time.Time { return time.Date(2026, time.January, 2, 9, 0, 0, 0, time.UTC) }

	h := httpapi.NewHandler(
		app.NewCalendarService(store, logger, now),
		app.NewFulfillmentService(store, logger, now),
		app.NewStatusService(store, logger),
		logger,
		now,
	)
	return testServer{router: httpapi.NewRouter(h, logger), store: store, process: process}
}

func (s testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequest(method, path, nil)
	} else {
		req, err = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s testServer) generate(t *testing.T, clientID string) {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/v1/calendars/generate", fmt.Sprintf(`{"client_id":%q,"process_id":%d}`, clientID, s.process.ID))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

type statusItem struct {
	OccurrenceID    int64  `json:"occurrence_id"`
	PeriodID        int64  `json:"period_id"`
	ClientID        string `json:"client_id"`
	Deadline        string `json:"deadline"`
	Status          string `json:"status"`
	PeriodState     string `json:"period_state"`
	FulfillmentDate string `json:"fulfillment_date"`
}

type statusResponse struct {
	OK    bool         `json:"ok"`
	Count int          `json:"count"`
	Items []statusItem `json:"items"`
}

func (s testServer) status(t *testing.T, query string) statusResponse {
	t.Helper()
	rr := s.do(t, http.MethodGet, "/api/v1/status?"+query, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res statusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	return res
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "healthy", decode(t, rr)["status"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-Id", "req-42")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	assert.Equal(t, "req-42", rr.Header().Get("X-Request-Id"))
}

func TestGenerate(t *testing.T) {
	s := newTestServer(t)
	path := "/api/v1/calendars/generate"
	body := fmt.Sprintf(`{"client_id":"acme","process_id":%d}`, s.process.ID)

	rr := s.do(t, http.MethodPost, path, body)
	require.Equal(t, http.StatusCreated, rr.Code)
	res := decode(t, rr)
	assert.Equal(t, true, res["ok"])
	assert.Equal(t, "client calendar generated", res["message"])
	assert.EqualValues(t, 12, res["count"])
	assert.EqualValues(t, 2026, res["year"])

	rr = s.do(t, http.MethodPost, path, body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, false, decode(t, rr)["ok"])
}

func TestGenerate_Errors(t *testing.T) {
	s := newTestServer(t)
	empty := &calendar.MasterProcess{Name: "Empty", Temporality: calendar.TemporalityMonthly}
	require.NoError(t, s.store.Stores().Processes.Create(context.Background(), empty))

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{name: "malformed json", body: `{"client_id":`, status: http.StatusBadRequest},
		{name: "bad start date", body: fmt.Sprintf(`{"client_id":"acme","process_id":%d,"start_date":"2026-13-01"}`, s.process.ID), status: http.StatusBadRequest, field: "start_date"},
		{name: "missing client", body: fmt.Sprintf(`{"process_id":%d}`, s.process.ID), status: http.StatusBadRequest, field: "client_id"},
		{name: "unknown process", body: `{"client_id":"acme","process_id":999}`, status: http.StatusNotFound},
		{name: "process without templates", body: fmt.Sprintf(`{"client_id":"acme","process_id":%d}`, empty.ID), status: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, http.MethodPost, "/api/v1/calendars/generate", tt.body)
			assert.Equal(t, tt.status, rr.Code)
			if tt.field != "" {
				assert.Equal(t, tt.field, decode(t, rr)["field"])
			}
		})
	}
}

func TestShift(t *testing.T) {
	s := newTestServer(t)
	s.generate(t, "acme")
	tplID := s.process.Templates[0].ID

	rr := s.do(t, http.MethodPost, "/api/v1/occurrences/shift", fmt.Sprintf(
		`{"template_id":%d,"client_ids":["acme"],"new_date":"2026-02-20","effective_from":"2026-02-01","effective_until":"2026-03-31"}`, tplID))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.EqualValues(t, 2, decode(t, rr)["updated"])

	res := s.status(t, "client_id=acme&deadline_from=2026-02-01&deadline_to=2026-03-31")
	require.Len(t, res.Items, 2)
	assert.Equal(t, "2026-02-20", res.Items[0].Deadline)
	assert.Equal(t, "2026-03-20", res.Items[1].Deadline)

	rr = s.do(t, http.MethodPost, "/api/v1/occurrences/shift", fmt.Sprintf(
		`{"template_id":%d,"client_ids":["acme"],"new_date":"2026-02-20","new_time":"25:00","effective_from":"2026-02-01"}`, tplID))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "new_time", decode(t, rr)["field"])
}

func TestStatusListing(t *testing.T) {
	s := newTestServer(t)
	s.generate(t, "acme")
	s.generate(t, "globex")

	res := s.status(t, "client_id=acme&as_of=2026-02-02")
	assert.True(t, res.OK)
	require.Equal(t, 12, res.Count)
	assert.Equal(t, "2026-01-30", res.Items[0].Deadline)
	assert.Equal(t, "PendingLate", res.Items[0].Status)
	assert.Equal(t, "2026-02-27", res.Items[1].Deadline)
	assert.Equal(t, "PendingOnTime", res.Items[1].Status)
	assert.Equal(t, app.PeriodInProgress, res.Items[0].PeriodState)

	late := s.status(t, "as_of=2026-02-02&status=PendingLate")
	assert.Equal(t, 2, late.Count)

	rr := s.do(t, http.MethodGet, "/api/v1/status?status=Whatever", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "status", decode(t, rr)["field"])

	rr = s.do(t, http.MethodGet, "/api/v1/status?template_id=x", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t)
	s.generate(t, "acme")
	s.generate(t, "globex")

	rr := s.do(t, http.MethodGet, "/api/v1/status/export.csv?as_of=2026-02-02", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	records, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 25)

	rr = s.do(t, http.MethodGet, "/api/v1/clients/globex/export.csv?as_of=2026-02-02", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "compliance_status_globex.csv")
	records, err = csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 13)
	for _, rec := range records[1:] {
		assert.Equal(t, "globex", rec[1])
	}
}

func TestExportClientCSV_QuotesFilename(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/api/v1/clients/ac%22me/export.csv", "")
	require.Equal(t, http.StatusOK, rr.Code)

	disposition, params, err := mime.ParseMediaType(rr.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, `compliance_status_ac"me.csv`, params["filename"])
}

func TestFulfill(t *testing.T) {
	s := newTestServer(t)
	s.generate(t, "acme")
	first := s.status(t, "client_id=acme").Items[0]

	rr := s.do(t, http.MethodPost, "/api/v1/occurrences/fulfill", fmt.Sprintf(
		`{"occurrence_ids":[%d],"date":"2026-01-29","time":"10:30","author":"maria"}`, first.OccurrenceID))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.EqualValues(t, 1, decode(t, rr)["fulfilled"])

	res := s.status(t, "client_id=acme&as_of=2026-02-02")
	assert.Equal(t, "CompletedOnTime", res.Items[0].Status)
	assert.Equal(t, "2026-01-29", res.Items[0].FulfillmentDate)
	assert.Equal(t, app.PeriodFinalized, res.Items[0].PeriodState)

	rr = s.do(t, http.MethodPost, "/api/v1/occurrences/fulfill", `{"occurrence_ids":[],"date":"2026-01-29"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "occurrence_ids", decode(t, rr)["field"])
}

func TestToggleAndSync(t *testing.T) {
	s := newTestServer(t)
	s.generate(t, "acme")
	first := s.status(t, "client_id=acme").Items[0]

	rr := s.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/occurrences/%d/active", first.OccurrenceID), `{"active":false}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	period := decode(t, rr)["period"].(map[string]any)
	assert.Equal(t, true, period["changed"])
	assert.Equal(t, false, period["current"])

	rr = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/periods/%d/sync", first.PeriodID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	period = decode(t, rr)["period"].(map[string]any)
	assert.Equal(t, false, period["changed"])
	assert.Equal(t, false, period["current"])

	assert.Equal(t, 11, s.status(t, "client_id=acme").Count)

	rr = s.do(t, http.MethodPatch, "/api/v1/occurrences/abc/active", `{"active":true}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = s.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/occurrences/%d/active", first.OccurrenceID), `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = s.do(t, http.MethodPatch, "/api/v1/occurrences/9999/active", `{"active":true}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = s.do(t, http.MethodPost, "/api/v1/periods/9999/sync", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDisable(t *testing.T) {
	s := newTestServer(t)
	s.generate(t, "acme")
	s.generate(t, "globex")
	tplID := s.process.Templates[0].ID

	rr := s.do(t, http.MethodPost, "/api/v1/occurrences/disable", fmt.Sprintf(
		`{"template_id":%d,"from_date":"2026-07-01","client_id":"acme"}`, tplID))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	result := decode(t, rr)["result"].(map[string]any)
	assert.EqualValues(t, 6, result["occurrences_disabled"])
	assert.Len(t, result["periods_disabled"], 6)

	assert.Equal(t, 6, s.status(t, "client_id=acme").Count)
	assert.Equal(t, 12, s.status(t, "client_id=globex").Count)

	rr = s.do(t, http.MethodPost, "/api/v1/occurrences/disable", fmt.Sprintf(`{"template_id":%d,"from_date":"July"}`, tplID))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "from_date", decode(t, rr)["field"])
}
