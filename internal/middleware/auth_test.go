package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Babadzakkkich/project-manager/internal/model"
	"github.com/Babadzakkkich/project-manager/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

func setupAuthTest(t *testing.T) (*gin.Engine, *model.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.User{}))

	user := &model.User{Login: "alice", Email: "alice@example.com", Name: "Alice", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	r := gin.New()
	r.GET("/me", AuthMiddleware(testSecret, db), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetCurrentUserID(c), "login": GetCurrentUser(c).Login})
	})
	return r, user
}

func TestAuthMiddlewareAcceptsBearerToken(t *testing.T) {
	r, user := setupAuthTest(t)

	tokenStr, _, err := jwt.GenerateToken(testSecret, user.ID, user.Login, 30)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"login":"alice"`)
}

func TestAuthMiddlewareAcceptsQueryToken(t *testing.T) {
	r, user := setupAuthTest(t)

	tokenStr, _, err := jwt.GenerateToken(testSecret, user.ID, user.Login, 30)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me?token="+tokenStr, nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	r, _ := setupAuthTest(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40101")
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	r, _ := setupAuthTest(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40101")
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	r, user := setupAuthTest(t)

	tokenStr, _, err := jwt.GenerateToken(testSecret, user.ID, user.Login, -1)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40102")
}

func TestAuthMiddlewareDeletedUser(t *testing.T) {
	r, _ := setupAuthTest(t)

	tokenStr, _, err := jwt.GenerateToken(testSecret, 9999, "ghost", 30)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40103")
}
