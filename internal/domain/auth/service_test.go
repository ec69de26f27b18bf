package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fieldwork/internal/pkg/apperror"
	jwtsvc "fieldwork/internal/pkg/jwt"
)

func setupService(t *testing.T) (*Service, *Repository, *jwtsvc.Service) {
	t.Helper()
	dsn := fmt.Sprintf("file:auth_test_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}))

	repo := NewRepository(db)
	j := jwtsvc.New("test-secret", time.Hour)
	return NewService(repo, j), repo, j
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, j := setupService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Budi", " Budi@Fieldwork.test ", "rahasia123", RoleTechnician)
	require.NoError(t, err)
	assert.Equal(t, "budi@fieldwork.test", u.Email)
	assert.NotEqual(t, "rahasia123", u.PasswordHash)

	res, err := svc.Login(ctx, LoginRequest{Email: "BUDI@fieldwork.test", Password: "rahasia123"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)

	claims, err := j.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "teknisi", claims.Role)
}

func TestRegisterRejectsDuplicatesAndUnknownRoles(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Rina", "rina@fieldwork.test", "pw", RoleSupervisor)
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Rina again", "RINA@fieldwork.test", "pw", RoleSupervisor)
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)

	_, err = svc.Register(ctx, "Admin", "admin@fieldwork.test", "pw", UserRole("admin"))
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestLoginFailures(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Hadi", "hadi@fieldwork.test", "correct", RoleManager)
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "hadi@fieldwork.test", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@fieldwork.test", Password: "correct"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestDirectoryLookups(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()

	sup, err := svc.Register(ctx, "Rina", "rina@fieldwork.test", "pw", RoleSupervisor)
	require.NoError(t, err)
	m1, err := svc.Register(ctx, "Hadi", "hadi@fieldwork.test", "pw", RoleManager)
	require.NoError(t, err)
	m2, err := svc.Register(ctx, "Dewi", "dewi@fieldwork.test", "pw", RoleManager)
	require.NoError(t, err)

	roles, err := repo.RolesByID(ctx, []int64{sup.ID, m1.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, map[int64]UserRole{sup.ID: RoleSupervisor, m1.ID: RoleManager}, roles)

	ids, err := repo.IDsByRole(ctx, RoleManager)
	require.NoError(t, err)
	assert.Equal(t, []int64{m1.ID, m2.ID}, ids)

	empty, err := repo.RolesByID(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("Technician")
	assert.True(t, ok)
	assert.Equal(t, RoleTechnician, r)

	r, ok = ParseRole("supervisor")
	assert.True(t, ok)
	assert.Equal(t, RoleSupervisor, r)

	_, ok = ParseRole("admin")
	assert.False(t, ok)
}

func TestLoginHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _, _ := setupService(t)
	u, err := svc.Register(context.Background(), "Sari", "sari@fieldwork.test", "teknisi123", RoleTechnician)
	require.NoError(t, err)

	h := NewHandler(svc)
	r := gin.New()
	v1 := r.Group("/api/v1")
	h.RegisterPublicRoutes(v1)
	protected := v1.Group("")
	protected.Use(func(c *gin.Context) {
		c.Set("user_id", u.ID)
		c.Set("role", string(u.Role))
	})
	h.RegisterProtectedRoutes(protected)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"email":"sari@fieldwork.test","password":"teknisi123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var ok struct {
		Data struct {
			AccessToken string `json:"access_token"`
			User        User   `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ok))
	assert.NotEmpty(t, ok.Data.AccessToken)
	assert.Equal(t, RoleTechnician, ok.Data.User.Role)
	assert.NotContains(t, w.Body.String(), "password")

	w = post(`{"email":"sari@fieldwork.test","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(`{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sari@fieldwork.test")
}
