package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-portfolio-api/internal/dto"
	"github.com/noah-isme/student-portfolio-api/internal/middleware"
	"github.com/noah-isme/student-portfolio-api/internal/models"
	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
)

func TestAuthHandlerLogins(t *testing.T) {
	fake := &fakePortal{}
	h := NewAuthHandler(fake)

	c, rec := newTestContext(http.MethodPost, "/auth/developer", `{"passphrase":"open sesame"}`)
	h.DeveloperLogin(c)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &resp))
	assert.Equal(t, models.RoleDeveloper, resp.Role)

	c, rec = newTestContext(http.MethodPost, "/auth/teacher", `{"name":"Ms. Rahma","passphrase":"chalk"}`)
	h.TeacherLogin(c)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &resp))
	assert.Equal(t, "Ms. Rahma", resp.Name)
}

func TestAuthHandlerRejectsBadPassphrase(t *testing.T) {
	fake := &fakePortal{loginErr: appErrors.ErrInvalidCredentials}
	h := NewAuthHandler(fake)

	c, rec := newTestContext(http.MethodPost, "/auth/developer", `{"passphrase":"nope"}`)
	h.DeveloperLogin(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, decodeEnvelope(t, rec).Error.Code)
}

func TestAuthHandlerTeacherSession(t *testing.T) {
	h := NewAuthHandler(&fakePortal{})
	issued := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)

	claims := &models.JWTClaims{Role: models.RoleTeacher, Name: "Ms. Rahma"}
	claims.IssuedAt = jwtTime(issued)
	claims.ExpiresAt = jwtTime(issued.Add(8 * time.Hour))

	c, rec := newTestContext(http.MethodGet, "/teacher/session", "")
	c.Set(middleware.ContextUserKey, claims)
	h.TeacherSession(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var session dto.TeacherSession
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &session))
	assert.Equal(t, "Ms. Rahma", session.Name)
	assert.True(t, issued.Equal(session.LoggedInAt))

	c, rec = newTestContext(http.MethodGet, "/teacher/session", "")
	h.TeacherSession(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
