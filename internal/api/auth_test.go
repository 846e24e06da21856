package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodgram/backend/internal/testhelpers"
)

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	user := testhelpers.CreateUser(t, env.db, "chef")

	w := env.do("POST", "/api/auth/token/login", "", map[string]string{
		"email":    user.Email,
		"password": testhelpers.TestPassword,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	decode(t, w, &body)
	assert.NotEmpty(t, body["auth_token"])
}

func TestLoginEndpointRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	user := testhelpers.CreateUser(t, env.db, "chef")

	w := env.do("POST", "/api/auth/token/login", "", map[string]string{
		"email":    user.Email,
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "unable to log in with provided credentials", body["errors"])
}

func TestLogoutEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signUp("chef")

	w := env.do("POST", "/api/auth/token/logout", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	// The revoked token no longer opens protected endpoints.
	w = env.do("GET", "/api/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutEndpointRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/api/auth/token/logout", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "missing authorization header", body["error"])
}
