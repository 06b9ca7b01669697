package endpoints

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/beacon/internal/http/api"
	"github.com/Nixie-Tech-LLC/beacon/internal/http/api/admin/auth/packets"
	"github.com/Nixie-Tech-LLC/beacon/internal/http/middleware"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hash, err := middleware.HashPassword("hunter2")
	require.NoError(t, err)

	router := gin.New()
	api.MountGroup(router, api.GroupConfig{Prefix: "/api/admin"}, AuthPublicModule("secret", hash))
	api.MountGroup(router, api.GroupConfig{Prefix: "/api/admin", Auth: true, SecretKey: "secret"}, AuthSessionModule("secret", hash))
	return router
}

func post(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	buf, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLoginIssuesUsableToken(t *testing.T) {
	router := newAuthRouter(t)

	w := post(router, "/api/admin/auth/login", packets.LoginRequest{Password: "hunter2"})
	require.Equal(t, http.StatusOK, w.Code)
	var login packets.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var session packets.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, AdminOperator, session.Operator)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	router := newAuthRouter(t)

	w := post(router, "/api/admin/auth/login", packets.LoginRequest{Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(router, "/api/admin/auth/login", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, api.ReasonMissingFields, body.Error)
}
