package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dkoval/market_api/internal/handlers"
	"github.com/dkoval/market_api/internal/middleware/auth"
	"github.com/dkoval/market_api/internal/models"
	"github.com/dkoval/market_api/internal/repository"
	"github.com/dkoval/market_api/internal/service/search"
	"github.com/dkoval/market_api/internal/storage"
	"github.com/dkoval/market_api/internal/token"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Product{}))

	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	tokens := token.NewService([]byte("test-secret"))

	e := echo.New()
	Register(e, &Deps{
		UserHandler: &handlers.UserHandler{
			Users:  &repository.UserRepo{DB: db},
			Tokens: tokens,
		},
		ProductHandler: &handlers.ProductHandler{
			Products: &repository.ProductRepo{DB: db},
			Files:    files,
			Indexer:  &search.Indexer{Index: "product"},
		},
		SearchHandler: &handlers.SearchHandler{Index: "product"},
		Auth:          &auth.Middleware{Tokens: tokens},
		ImageDir:      files.Dir,
	})
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSignupThenLoginFlow(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(t, e, http.MethodPost, "/signup", map[string]string{
		"email":           "a@x.com",
		"password":        "12345",
		"confirmPassword": "12345",
		"firstName":       "Ann",
		"lastName":        "Smith",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// duplicate signup fails with the plain validation envelope
	rec = doJSON(t, e, http.MethodPost, "/signup", map[string]string{
		"email":           "a@x.com",
		"password":        "12345",
		"confirmPassword": "12345",
		"firstName":       "Ann",
		"lastName":        "Smith",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Contains(t, envelope["message"], "already exists")
	require.NotContains(t, envelope, "isError")

	rec = doJSON(t, e, http.MethodPost, "/login", map[string]string{
		"email":    "a@x.com",
		"password": "12345",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login["token"])
	require.NotEmpty(t, login["userId"])

	// the issued token opens the product surface
	req := httptest.NewRequest(http.MethodGet, "/product?currentPage=1&perPage=10", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+login["token"].(string))
	authed := httptest.NewRecorder()
	e.ServeHTTP(authed, req)
	require.Equal(t, http.StatusOK, authed.Code)
}

func TestProductRoutesRequireAuth(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(t, e, http.MethodGet, "/product?currentPage=1&perPage=10", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, true, envelope["isError"])
	require.NotEmpty(t, envelope["message"])
}

func TestLoginWrongPasswordEnvelope(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(t, e, http.MethodPost, "/signup", map[string]string{
		"email":           "a@x.com",
		"password":        "12345",
		"confirmPassword": "12345",
		"firstName":       "Ann",
		"lastName":        "Smith",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/login", map[string]string{
		"email":    "a@x.com",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, true, envelope["isError"])
	require.Equal(t, "Invalid password!", envelope["message"])
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(t, e, http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
