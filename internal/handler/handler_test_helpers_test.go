package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/Baaaki/flavorshare/internal/handler"
	"github.com/Baaaki/flavorshare/internal/models"
	"github.com/Baaaki/flavorshare/internal/repository"
	"github.com/Baaaki/flavorshare/internal/service"
	"github.com/Baaaki/flavorshare/internal/storage"
	"github.com/Baaaki/flavorshare/internal/testutil"
	"github.com/Baaaki/flavorshare/internal/utils"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	testJWTSecret      = "handler-test-secret-0123456789"
	testMaxUploadBytes = 1024
)

// apiSuite wires the full router against an in-memory database.
type apiSuite struct {
	suite.Suite
	testDB *testutil.TestDatabase
	images *storage.MemoryStore
	router *gin.Engine
}

func (s *apiSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	logger.Init(false)

	s.testDB = testutil.SetupTestDatabase(s.T())
	s.images = storage.NewMemoryStore("http://images.test")

	users := repository.NewUserRepository(s.testDB.DB)
	recipes := repository.NewRecipeRepository(s.testDB.DB)
	comments := repository.NewCommentRepository(s.testDB.DB)

	s.router = handler.NewRouter(handler.RouterConfig{
		DB:              s.testDB.DB,
		AuthService:     service.NewAuthService(users, testJWTSecret, time.Hour),
		RecipeService:   service.NewRecipeService(recipes, users, nil).WithImageStore(s.images, testMaxUploadBytes),
		CommentService:  service.NewCommentService(comments, recipes, users, nil),
		FavoriteService: service.NewFavoriteService(users, recipes),
		CORSOrigins:     []string{"http://localhost:5173"},
		MaxUploadBytes:  testMaxUploadBytes,
	})
}

func (s *apiSuite) TearDownSuite() {
	s.testDB.Teardown(s.T())
}

func (s *apiSuite) SetupTest() {
	testutil.CleanDatabase(s.T(), s.testDB.DB)
}

// tokenFor issues a bearer token for a fixture user.
func (s *apiSuite) tokenFor(u *models.User) string {
	token, err := utils.GenerateToken(u, testJWTSecret, time.Hour)
	require.NoError(s.T(), err)
	return token
}

// do sends a JSON request; body may be nil, a string (sent raw) or any value
// to marshal. An empty token sends no Authorization header.
func (s *apiSuite) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(s.T(), err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(req)
}

func (s *apiSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *apiSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func tokenCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "token" {
			return cookie
		}
	}
	return nil
}
