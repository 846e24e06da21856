package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/testhelpers"
)

const tinyPNG = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	auth   *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupTestDatabase(t)
	images := service.NewImageService(service.NewLocalStorage(t.TempDir(), "/media"))
	auth := service.NewAuthService(db, service.NewMemoryDenylist(), "test-secret", time.Hour)

	router := gin.New()
	SetupAPI(router, Services{
		Auth:    auth,
		Users:   service.NewUserService(db, images),
		Catalog: service.NewCatalogService(db),
		Recipes: service.NewRecipeService(db, images),
	}, nil)

	return &testEnv{t: t, db: db, router: router, auth: auth}
}

// signUp creates a fixture user and returns it with a live token.
func (e *testEnv) signUp(username string) (*models.User, string) {
	e.t.Helper()

	user := testhelpers.CreateUser(e.t, e.db, username)
	token, err := e.auth.Login(user.Email, testhelpers.TestPassword)
	require.NoError(e.t, err)
	return user, token
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoErrorf(t, json.Unmarshal(w.Body.Bytes(), out), "body: %s", w.Body.String())
}

type catalogFixture struct {
	breakfast *models.Tag
	dinner    *models.Tag
	eggs      *models.Ingredient
	flour     *models.Ingredient
}

func (e *testEnv) seedCatalog() catalogFixture {
	return catalogFixture{
		breakfast: testhelpers.CreateTag(e.t, e.db, "Breakfast", "breakfast"),
		dinner:    testhelpers.CreateTag(e.t, e.db, "Dinner", "dinner"),
		eggs:      testhelpers.CreateIngredient(e.t, e.db, "eggs", "pcs"),
		flour:     testhelpers.CreateIngredient(e.t, e.db, "flour", "g"),
	}
}

func (e *testEnv) recipeBody(fix catalogFixture) map[string]interface{} {
	return map[string]interface{}{
		"name":         "Pancakes",
		"text":         "Mix and fry.",
		"cooking_time": 20,
		"image":        tinyPNG,
		"tags":         []string{fix.breakfast.ID.String()},
		"ingredients": []map[string]interface{}{
			{"id": fix.eggs.ID.String(), "amount": 2},
			{"id": fix.flour.ID.String(), "amount": 200},
		},
	}
}

// createRecipe posts a recipe through the API and returns its response body.
func (e *testEnv) createRecipe(token string, body map[string]interface{}) RecipeResponse {
	e.t.Helper()

	w := e.do("POST", "/api/recipes", token, body)
	require.Equalf(e.t, 201, w.Code, "body: %s", w.Body.String())

	var resp RecipeResponse
	decode(e.t, w, &resp)
	return resp
}
