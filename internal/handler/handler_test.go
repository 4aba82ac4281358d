package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/suteetoe/leasedesk/internal/audit"
	"github.com/suteetoe/leasedesk/internal/events"
	"github.com/suteetoe/leasedesk/internal/lease"
	"github.com/suteetoe/leasedesk/internal/model"
	"github.com/suteetoe/leasedesk/internal/notification"
	"github.com/suteetoe/leasedesk/internal/outbox"
	"github.com/suteetoe/leasedesk/internal/testutil"
	"github.com/suteetoe/leasedesk/pkg/config"
	"github.com/suteetoe/leasedesk/pkg/jwtutil"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type server struct {
	e       *echo.Echo
	db      *gorm.DB
	admin   string
	staff   string
	staffID uint
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := testutil.DB(t)

	d := outbox.NewDispatcher(db)
	d.Register(outbox.KindAudit, audit.NewRecorder(db).HandleOutbox)
	d.Register(outbox.KindNotify, notification.NewFanout(db, notification.AllUsers{}, nil, 2).HandleOutbox)
	d.Register(outbox.KindLeaseEvent, events.OutboxHandler(events.LogPublisher{}))

	j := jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})
	admin := testutil.SeedUser(t, db, "admin@example.com", model.RoleAdmin)
	staff := testutil.SeedUser(t, db, "staff@example.com", model.RoleStaff)

	adminToken, err := j.GenerateToken(admin.Email, admin.ID, admin.Role)
	require.NoError(t, err)
	staffToken, err := j.GenerateToken(staff.Email, staff.ID, staff.Role)
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	RegisterRoutes(e, New(db, lease.NewService(db, d)), j)

	return &server{e: e, db: db, admin: adminToken, staff: staffToken, staffID: staff.ID}
}

func (s *server) do(t *testing.T, token, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func (s *server) mustCreate(t *testing.T, path, body string) uint {
	t.Helper()
	rec, out := s.do(t, s.admin, http.MethodPost, path, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return uint(out["id"].(float64))
}

func TestHealthCheck(t *testing.T) {
	s := newServer(t)
	rec, out := s.do(t, "", http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", out["status"])

	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rec, out = s.do(t, "", http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", out["status"])
}

func TestLeaseLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)

	propertyID := s.mustCreate(t, "/api/properties", `{"name":"Tower A","city":"Makati"}`)
	u101 := s.mustCreate(t, "/api/units", fmt.Sprintf(`{"property_id":%d,"unit_number":"101","total_rent":10000}`, propertyID))
	u102 := s.mustCreate(t, "/api/units", fmt.Sprintf(`{"property_id":%d,"unit_number":"102","total_rent":15000}`, propertyID))
	tenantID := s.mustCreate(t, "/api/tenants", `{"name":"Acme Corp","email":"ops@acme.example"}`)

	body := fmt.Sprintf(`{
		"tenant_id": %d,
		"start_date": "2024-01-01",
		"end_date": "2024-12-31",
		"total_rent_amount": 25000,
		"security_deposit": 50000,
		"status": "ACTIVE",
		"units": [{"unit_id": %d, "rent_amount": 10000}, {"unit_id": %d, "rent_amount": 15000}]
	}`, tenantID, u101, u102)
	rec, out := s.do(t, s.staff, http.MethodPost, "/api/leases", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 25000.0, out["total_rent_amount"])
	assert.Len(t, out["lease_units"], 2)
	leaseID := uint(out["id"].(float64))

	rec, out = s.do(t, s.staff, http.MethodGet, fmt.Sprintf("/api/units/%d", u101), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OCCUPIED", out["status"])

	rec, out = s.do(t, s.staff, http.MethodGet, "/api/notifications?unread=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := out["notifications"].([]interface{})
	require.Len(t, items, 1)
	note := items[0].(map[string]interface{})
	assert.Equal(t, "New lease for Acme Corp: Tower A – 101, Tower A – 102", note["message"])

	rec, _ = s.do(t, s.staff, http.MethodPut, fmt.Sprintf("/api/units/%d", u101),
		fmt.Sprintf(`{"property_id":%d,"unit_number":"101","total_rent":10000,"status":"MAINTENANCE"}`, propertyID))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(t, s.staff, http.MethodPut, fmt.Sprintf("/api/leases/%d", leaseID),
		fmt.Sprintf(`{"start_date":"2024-01-01","end_date":"2024-12-31","status":"ACTIVE","units":[{"unit_id":%d}]}`, u101))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out = s.do(t, s.staff, http.MethodPost, fmt.Sprintf("/api/leases/%d/terminate", leaseID),
		`{"termination_date":"2024-06-30","reason":"relocated"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "TERMINATED", out["status"])

	rec, out = s.do(t, s.staff, http.MethodPut, fmt.Sprintf("/api/leases/%d", leaseID),
		`{"start_date":"2024-01-01","end_date":"2024-12-31","status":"ACTIVE"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "LEASE_STATE_CONFLICT", out["code"])

	rec, out = s.do(t, s.staff, http.MethodGet, fmt.Sprintf("/api/units/%d", u102), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "VACANT", out["status"])

	rec, _ = s.do(t, s.admin, http.MethodDelete, fmt.Sprintf("/api/tenants/%d", tenantID), "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(t, s.staff, http.MethodDelete, fmt.Sprintf("/api/leases/%d", leaseID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out = s.do(t, s.staff, http.MethodGet, fmt.Sprintf("/api/leases/%d", leaseID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", out["code"])

	rec, out = s.do(t, s.admin, http.MethodGet, "/api/audit-logs?entity_type=Lease", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["audit_logs"], 3)

	rec, out = s.do(t, s.staff, http.MethodGet, "/api/notifications/unread-count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3.0, out["unread"])

	rec, out = s.do(t, s.staff, http.MethodPost, "/api/notifications/read-all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3.0, out["updated"])
}

func TestLeaseErrorsOverHTTP(t *testing.T) {
	s := newServer(t)

	rec, out := s.do(t, "", http.MethodPost, "/api/leases", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", out["code"])

	rec, out = s.do(t, s.staff, http.MethodPost, "/api/leases",
		`{"tenant_id":1,"start_date":"2024-01-01","end_date":"2024-12-31","status":"ACTIVE","units":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", out["code"])

	rec, _ = s.do(t, s.staff, http.MethodPost, "/api/leases",
		`{"tenant_id":1,"start_date":"01/01/2024","end_date":"2024-12-31","units":[{"unit_id":1}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, s.staff, http.MethodGet, "/api/leases/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, s.staff, http.MethodGet, "/api/leases?status=BOGUS", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var leases int64
	require.NoError(t, s.db.Model(&model.Lease{}).Count(&leases).Error)
	assert.Zero(t, leases)
}

func TestUsersRequireAdmin(t *testing.T) {
	s := newServer(t)

	rec, out := s.do(t, s.staff, http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", out["code"])

	id := s.mustCreate(t, "/api/users", `{"email":"New.Manager@Example.com","name":"Mo","role":"manager"}`)

	rec, _ = s.do(t, s.admin, http.MethodPost, "/api/users", `{"email":"new.manager@example.com","role":"STAFF"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, out = s.do(t, s.admin, http.MethodPut, fmt.Sprintf("/api/users/%d", id), `{"name":"Mo","role":"MANAGER","active":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, out["active"])

	rec, out = s.do(t, s.admin, http.MethodGet, "/api/users?active=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["users"], 2)
}

func TestPropertyAndUnitGuards(t *testing.T) {
	s := newServer(t)

	propertyID := s.mustCreate(t, "/api/properties", `{"name":"Tower B"}`)
	unitBody := fmt.Sprintf(`{"property_id":%d,"unit_number":"201","total_rent":5000}`, propertyID)
	unitID := s.mustCreate(t, "/api/units", unitBody)

	rec, _ := s.do(t, s.admin, http.MethodPost, "/api/units", unitBody)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(t, s.admin, http.MethodPost, "/api/units", `{"property_id":999,"unit_number":"1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, s.admin, http.MethodPost, "/api/units",
		fmt.Sprintf(`{"property_id":%d,"unit_number":"202","status":"OCCUPIED"}`, propertyID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, s.admin, http.MethodDelete, fmt.Sprintf("/api/properties/%d", propertyID), "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, out := s.do(t, s.admin, http.MethodPut, fmt.Sprintf("/api/units/%d", unitID),
		fmt.Sprintf(`{"property_id":%d,"unit_number":"201","total_rent":5500,"status":"MAINTENANCE"}`, propertyID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "MAINTENANCE", out["status"])
	assert.Equal(t, 1.0, out["version"])

	rec, out = s.do(t, s.admin, http.MethodGet, "/api/reports/occupancy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := out["properties"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, 5500.0, rows[0].(map[string]interface{})["opportunity_loss"])

	rec, _ = s.do(t, s.admin, http.MethodGet, "/api/reports/opportunity-loss?from=2024-01-01&to=2024-01-31", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, s.admin, http.MethodDelete, fmt.Sprintf("/api/units/%d", unitID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, s.admin, http.MethodDelete, fmt.Sprintf("/api/properties/%d", propertyID), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
