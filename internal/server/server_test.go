package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/farellandr/confpass/internal/helpers"
	"github.com/farellandr/confpass/internal/middleware"
	"github.com/farellandr/confpass/internal/models"
	"github.com/farellandr/confpass/internal/service"
	"github.com/farellandr/confpass/internal/store"
	"github.com/farellandr/confpass/internal/store/storetest"
)

func testDeps(t *testing.T, admin middleware.AdminConfig) Deps {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := storetest.NewDB(t)
	storetest.Seed(t, db, models.Attendee{
		Ref: "CONF01", Name: "Conf Person", Email: "conf@example.com",
		OriginalEmail: "conf@example.com", Type: "conf-only",
	})

	return Deps{
		Service: service.NewAttendeeService(store.NewAttendeeStore(db), nil, service.Options{DemoEnabled: true}),
		Signer:  helpers.NewBadgeSigner("badge-secret"),
		Admin:   admin,
	}
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicRoutes(t *testing.T) {
	r := NewRouter(testDeps(t, middleware.AdminConfig{}))

	w := serve(r, http.MethodGet, "/attendee/CONF01", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodPut, "/attendee/CONF01", `{"registered":true}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/attendee/CONF01/badge", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Metrics(t *testing.T) {
	r := NewRouter(testDeps(t, middleware.AdminConfig{}))

	serve(r, http.MethodGet, "/attendee/CONF01", "")
	w := serve(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `confpass_http_requests_total{method="GET",route="/attendee/:ref",status="200"}`)
}

func TestRouter_AdminDisabledWithoutSecrets(t *testing.T) {
	r := NewRouter(testDeps(t, middleware.AdminConfig{JWTSecret: "only-a-secret"}))

	w := serve(r, http.MethodPost, "/v1/admin/login", `{"password":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_AdminEnabled(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	r := NewRouter(testDeps(t, middleware.AdminConfig{JWTSecret: "jwt", PasswordHash: string(hash)}))

	w := serve(r, http.MethodPost, "/v1/admin/login", `{"password":"pw"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/v1/admin/attendees", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_BadgeRoutesNeedSigner(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	deps := testDeps(t, middleware.AdminConfig{JWTSecret: "jwt", PasswordHash: string(hash)})
	deps.Signer = nil
	r := NewRouter(deps)

	w := serve(r, http.MethodGet, "/attendee/CONF01/badge", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodPost, "/v1/admin/badges/verify", `{"qr_data":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodGet, "/attendee/CONF01", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
