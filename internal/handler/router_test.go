package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/dormfix-api/internal/repository"
	"github.com/noah-isme/dormfix-api/internal/service"
	"github.com/noah-isme/dormfix-api/pkg/config"
	"github.com/noah-isme/dormfix-api/pkg/storage"
)

type routerFixture struct {
	engine *gin.Engine
	store  *repository.MemoryRequestRepository
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	accessTable, err := config.LoadAccessTable("")
	require.NoError(t, err)
	campusTable, err := config.LoadCampusTable("")
	require.NoError(t, err)

	var audit *service.AuditService
	metrics := service.NewMetricsService()
	store := repository.NewMemoryRequestRepository()
	store.Seed(repository.SeedRequests())

	access, err := service.NewAccessService(accessTable, nil, audit, nil, nil, service.AccessConfig{
		Secret:       "router-secret",
		TTL:          24 * time.Hour,
		Issuer:       "dormfix-test",
		StudentScope: "submitter",
		BcryptCost:   bcrypt.MinCost,
	})
	require.NoError(t, err)

	campus := service.NewCampusService(campusTable)
	intake := service.NewIntakeService(store, service.NewRuleUrgencyClassifier(), campus, audit, metrics, nil, nil,
		service.IntakeConfig{RequireIdentity: true, RequireLocation: true})
	requests := service.NewRequestService(store, access, audit, nil, metrics, nil, service.WorkflowConfig{})
	dashboard := service.NewDashboardService(store, access, service.NewRuleDuplicateGrouper(), metrics, nil)

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	exports := service.NewExportService(dashboard, files, storage.NewSignedURLSigner("export-secret", time.Hour), audit, nil,
		service.ExportConfig{APIPrefix: "/api/v1"})

	engine := NewRouter(RouterConfig{
		APIPrefix:  "/api/v1",
		CookieName: "session",
		Sessions:   access,
		Metrics:    metrics,
	}, Handlers{
		Auth:      NewAuthHandler(access, CookieConfig{Name: "session"}),
		Requests:  NewRequestHandler(intake, requests),
		Dashboard: NewDashboardHandler(dashboard),
		Exports:   NewExportHandler(exports),
		Catalog:   NewCatalogHandler(campus),
		Metrics:   NewMetricsHandler(metrics, nil),
	})
	return &routerFixture{engine: engine, store: store}
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func (f *routerFixture) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	body := `{"email":"` + email + `","password":"password"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "session" {
			return cookie
		}
	}
	t.Fatalf("login for %s set no session cookie", email)
	return nil
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error *struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Fields  map[string][]string `json:"fields"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestRouterLoginSetsSessionCookie(t *testing.T) {
	f := newRouterFixture(t)
	cookie := f.login(t, "warden.podhigai@dormfix.com")

	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 86400, cookie.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.False(t, cookie.Secure)
}

func TestRouterFailedLoginSetsNoCookie(t *testing.T) {
	f := newRouterFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"admin@dormfix.com","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := f.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Invalid credentials. Please try again.", env.Error.Message)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestRouterDashboardIsScopedBySession(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req.AddCookie(f.login(t, "warden.podhigai@dormfix.com"))
	rec = f.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view struct {
		Requests []struct {
			ID         string `json:"id"`
			HostelName string `json:"hostelName"`
		} `json:"requests"`
		Stats struct {
			Total int `json:"total"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &view))
	assert.Equal(t, 3, view.Stats.Total)
	for _, item := range view.Requests {
		assert.Equal(t, "Podhigai", item.HostelName)
	}
}

func TestRouterMultipartIntakeUsesPhotoPlaceholder(t *testing.T) {
	f := newRouterFixture(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	fields := map[string]string{
		"name":           "Arun",
		"registerNumber": "21CS042",
		"gender":         "male",
		"hostelName":     "Podhigai",
		"floor":          "2",
		"roomNumber":     "214",
		"category":       "Plumbing",
		"priority":       "Medium",
		"description":    "Water leaking under the wash basin.",
	}
	for k, v := range fields {
		require.NoError(t, form.WriteField(k, v))
	}
	part, err := form.CreateFormFile("photo", "leak.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("not really a jpeg"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := f.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result struct {
		Message string `json:"message"`
		Request struct {
			ID       string `json:"id"`
			ImageURL string `json:"imageUrl"`
			Status   string `json:"status"`
		} `json:"request"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &result))
	assert.Equal(t, "REQ-008", result.Request.ID)
	assert.Equal(t, "https://placehold.co/400x300.png", result.Request.ImageURL)
	assert.Equal(t, "Submitted", result.Request.Status)
	assert.Contains(t, result.Message, "Request submitted successfully.")
}

func TestRouterIntakeValidationReturnsFieldMap(t *testing.T) {
	f := newRouterFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests",
		strings.NewReader(`{"roomNumber":"214","category":"Plumbing","priority":"Low","description":"too short"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := f.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields["description"], "Description must be at least 10 characters.")
	assert.Contains(t, env.Error.Fields["name"], "Name is required.")
}

func TestRouterStatusUpdateForbiddenForStudent(t *testing.T) {
	f := newRouterFixture(t)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/requests/REQ-001/status",
		strings.NewReader(`{"status":"Assigned"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(f.login(t, "student@dormfix.com"))

	rec := f.do(req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouterStatusUpdateByWarden(t *testing.T) {
	f := newRouterFixture(t)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/requests/REQ-001/status",
		strings.NewReader(`{"status":"Assigned","assignedTo":"Ravi (plumber)"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(f.login(t, "warden.podhigai@dormfix.com"))

	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var item struct {
		Status     string `json:"status"`
		AssignedTo string `json:"assignedTo"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &item))
	assert.Equal(t, "Assigned", item.Status)
	assert.Equal(t, "Ravi (plumber)", item.AssignedTo)
}

func TestRouterExportRoundTrip(t *testing.T) {
	f := newRouterFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exports", strings.NewReader(`{"format":"csv"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(f.login(t, "admin@dormfix.com"))

	rec := f.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result struct {
		URL  string `json:"url"`
		Rows int    `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &result))
	assert.Equal(t, 7, result.Rows)
	require.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/"))

	rec = f.do(httptest.NewRequest(http.MethodGet, result.URL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "maintenance_requests_")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Hostel Name,Room Number"))

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/exports/forged", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterExportRequiresViewerRole(t *testing.T) {
	f := newRouterFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exports", strings.NewReader(`{"format":"csv"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(f.login(t, "student@dormfix.com"))

	rec := f.do(req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouterRouteDecision(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/route?path=/warden", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var decision struct {
		Allowed  bool   `json:"allowed"`
		Redirect string `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &decision))
	assert.False(t, decision.Allowed)
	assert.Equal(t, "/login", decision.Redirect)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/route?path=/login", nil)
	req.AddCookie(f.login(t, "warden.podhigai@dormfix.com"))
	rec = f.do(req)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &decision))
	assert.Equal(t, "/warden", decision.Redirect)
}

func TestRouterLogoutClearsCookie(t *testing.T) {
	f := newRouterFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.AddCookie(f.login(t, "admin@dormfix.com"))

	rec := f.do(req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestRouterCatalogIsPublic(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/catalog/categories?hostelName=Podhigai&floor=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var options struct {
		HasAC      bool     `json:"hasAC"`
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &options))
	assert.NotEmpty(t, options.Categories)
	assert.Equal(t, options.HasAC, containsString(options.Categories, "AC"))
}

func containsString(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
