package handler_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/Baaaki/flavorshare/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type AuthHandlerIntegrationTestSuite struct {
	apiSuite
}

func (s *AuthHandlerIntegrationTestSuite) TestRegisterSuccess() {
	w := s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "newuser",
		"email":    "NewUser@Example.com ",
		"password": "SecurePass123",
	}, "")
	require.Equal(s.T(), http.StatusCreated, w.Code, w.Body.String())

	response := s.decode(w)
	assert.Equal(s.T(), "User registered successfully", response["message"])
	assert.NotEmpty(s.T(), response["token"])

	user := response["user"].(map[string]interface{})
	assert.Equal(s.T(), "newuser", user["username"])
	assert.Equal(s.T(), "newuser@example.com", user["email"])
	assert.NotEmpty(s.T(), user["id"])
	assert.NotContains(s.T(), w.Body.String(), "password")

	cookie := tokenCookie(w)
	require.NotNil(s.T(), cookie)
	assert.True(s.T(), cookie.HttpOnly)
	assert.Equal(s.T(), http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(s.T(), response["token"], cookie.Value)
}

func (s *AuthHandlerIntegrationTestSuite) TestRegisterDuplicates() {
	testutil.CreateTestUser(s.T(), s.testDB.DB, "existing", "test@example.com")

	testCases := []struct {
		name     string
		username string
		email    string
		expected string
	}{
		{"Same email", "different", "test@example.com", "Email already registered"},
		{"Same username", "existing", "other@example.com", "Username already taken"},
		{"Both taken reports email", "existing", "test@example.com", "Email already registered"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			w := s.do(http.MethodPost, "/api/auth/register", map[string]string{
				"username": tc.username,
				"email":    tc.email,
				"password": "SecurePass123",
			}, "")

			assert.Equal(s.T(), http.StatusBadRequest, w.Code)
			response := s.decode(w)
			assert.Equal(s.T(), "duplicate_key", response["error"])
			assert.Equal(s.T(), tc.expected, response["message"])
		})
	}
}

func (s *AuthHandlerIntegrationTestSuite) TestRegisterInvalidInput() {
	testCases := []struct {
		name     string
		body     interface{}
		expected string
	}{
		{"Missing username", map[string]string{"email": "a@example.com", "password": "Pass123456"}, "username is required"},
		{"Long username", map[string]string{"username": strings.Repeat("u", 51), "email": "a@example.com", "password": "p"}, "username must be at most 50 characters"},
		{"Invalid email", map[string]string{"username": "testuser", "email": "invalid-email", "password": "Pass123456"}, "invalid email format"},
		{"Missing password", map[string]string{"username": "testuser", "email": "a@example.com"}, "password is required"},
		{"Malformed body", "{not json", "Invalid request body"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			w := s.do(http.MethodPost, "/api/auth/register", tc.body, "")

			assert.Equal(s.T(), http.StatusBadRequest, w.Code)
			response := s.decode(w)
			assert.Equal(s.T(), "validation_error", response["error"])
			assert.Equal(s.T(), tc.expected, response["message"])
		})
	}
}

func (s *AuthHandlerIntegrationTestSuite) TestLoginSuccess() {
	testutil.CreateTestUser(s.T(), s.testDB.DB, "loginuser", "login@example.com")

	w := s.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "LOGIN@example.com",
		"password": testutil.DefaultPassword,
	}, "")
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())

	response := s.decode(w)
	assert.Equal(s.T(), "Login successful", response["message"])
	assert.NotEmpty(s.T(), response["token"])

	user := response["user"].(map[string]interface{})
	assert.Equal(s.T(), "loginuser", user["username"])
	assert.Equal(s.T(), "login@example.com", user["email"])
	assert.NotNil(s.T(), tokenCookie(w))
}

func (s *AuthHandlerIntegrationTestSuite) TestLoginFailuresAreIndistinguishable() {
	testutil.CreateTestUser(s.T(), s.testDB.DB, "loginuser", "login@example.com")

	wrongPassword := s.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "login@example.com",
		"password": "WrongPass123",
	}, "")
	unknownEmail := s.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "nonexistent@example.com",
		"password": testutil.DefaultPassword,
	}, "")

	for _, w := range []int{wrongPassword.Code, unknownEmail.Code} {
		assert.Equal(s.T(), http.StatusBadRequest, w)
	}
	assert.JSONEq(s.T(), wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.Equal(s.T(), "Invalid credentials", s.decode(wrongPassword)["message"])
	assert.Nil(s.T(), tokenCookie(wrongPassword))
}

func (s *AuthHandlerIntegrationTestSuite) TestProfile() {
	user := testutil.CreateTestUser(s.T(), s.testDB.DB, "chef", "chef@example.com")
	token := s.tokenFor(user)

	w := s.do(http.MethodGet, "/api/auth/profile", nil, "")
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/auth/profile", nil, "garbage")
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(s.T(), "Invalid token", s.decode(w)["message"])

	w = s.do(http.MethodGet, "/api/auth/profile", nil, token)
	require.Equal(s.T(), http.StatusOK, w.Code)
	profile := s.decode(w)["user"].(map[string]interface{})
	assert.Equal(s.T(), "chef", profile["username"])
	assert.Equal(s.T(), []interface{}{}, profile["favorites"])
	assert.NotContains(s.T(), w.Body.String(), "passwordHash")

	w = s.do(http.MethodPut, "/api/auth/profile", map[string]string{"username": "sous-chef"}, token)
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	updated := s.decode(w)
	assert.Equal(s.T(), "Profile updated successfully", updated["message"])
	assert.Equal(s.T(), "sous-chef", updated["user"].(map[string]interface{})["username"])
	assert.Equal(s.T(), "chef@example.com", updated["user"].(map[string]interface{})["email"])

	testutil.CreateTestUser(s.T(), s.testDB.DB, "taken", "taken@example.com")
	w = s.do(http.MethodPut, "/api/auth/profile", map[string]string{"email": "taken@example.com"}, token)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Equal(s.T(), "Email already registered", s.decode(w)["message"])
}

func (s *AuthHandlerIntegrationTestSuite) TestCookieAuthAndLogout() {
	w := s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "cookie",
		"email":    "cookie@example.com",
		"password": "SecurePass123",
	}, "")
	require.Equal(s.T(), http.StatusCreated, w.Code)
	cookie := tokenCookie(w)
	require.NotNil(s.T(), cookie)

	req, _ := http.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.AddCookie(cookie)
	rec := s.serve(req)
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	w = s.do(http.MethodPost, "/api/auth/logout", nil, "")
	assert.Equal(s.T(), http.StatusOK, w.Code)
	cleared := tokenCookie(w)
	require.NotNil(s.T(), cleared)
	assert.Empty(s.T(), cleared.Value)
	assert.Less(s.T(), cleared.MaxAge, 0)
}

func TestAuthHandlerIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerIntegrationTestSuite))
}
