package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dszwed/wp-blueprints/internal/database"
	"github.com/dszwed/wp-blueprints/internal/metrics"
	"github.com/dszwed/wp-blueprints/internal/middleware"
	"github.com/dszwed/wp-blueprints/internal/repository"
	"github.com/dszwed/wp-blueprints/internal/services"
	"github.com/dszwed/wp-blueprints/internal/validation"
	"github.com/dszwed/wp-blueprints/internal/versions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const createBody = `{
	"name": "Shop starter",
	"description": "WooCommerce with sample data",
	"landingPage": "/shop/",
	"preferredVersions": {"php": "8.2", "wp": "6.8"},
	"features": {"networking": true},
	"steps": [{"kind": "installPlugin", "pluginData": {"resource": "wordpress.org/plugins", "slug": "woocommerce"}}]
}`

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	store, err := database.NewBoltStore(filepath.Join(t.TempDir(), "blueprints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	catalog, err := versions.Load()
	require.NoError(t, err)

	m := metrics.New()
	recorder := services.NewStatisticsRecorder(repository.NewBoltStatisticsRepository(store), 16, 1, m)
	recorder.Start(context.Background())
	t.Cleanup(func() { recorder.Shutdown(context.Background()) })

	svc := services.NewBlueprintService(
		repository.NewBoltBlueprintRepository(store),
		repository.NewBoltUserRepository(store),
		recorder,
		validation.New(catalog),
		m,
	)
	h := NewBlueprintHandler(svc, catalog)
	health := NewHealthHandler(catalog)

	r := gin.New()
	r.Use(middleware.Identify(middleware.UnverifiedParser{}))
	r.GET("/versions", health.Versions)
	r.GET("/blueprints", h.List)
	r.POST("/blueprints", h.Create)
	r.GET("/blueprints/:id", h.Get)
	r.PATCH("/blueprints/:id", h.Update)
	r.DELETE("/blueprints/:id", h.Delete)
	r.GET("/blueprints/:id/playground", h.Playground)
	r.POST("/blueprints/:id/runs", h.RecordRun)
	r.GET("/me/blueprints", middleware.RequireUser(), h.Mine)
	return r
}

func bearer(t *testing.T, sub, name string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix()}
	if name != "" {
		claims["name"] = name
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unused"))
	require.NoError(t, err)
	return "Bearer " + s
}

func do(r http.Handler, method, path, body, auth string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func createBlueprint(t *testing.T, r http.Handler, auth string) map[string]interface{} {
	t.Helper()
	w := do(r, http.MethodPost, "/blueprints", createBody, auth)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["data"].(map[string]interface{})
}

func TestCreateAnonymousBlueprint(t *testing.T) {
	r := setupRouter(t)

	data := createBlueprint(t, r, "")
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, "Shop starter", data["name"])
	assert.Equal(t, "public", data["status"])
	assert.Equal(t, "8.2", data["phpVersion"])
	assert.Equal(t, "6.8", data["wordpressVersion"])
	assert.Equal(t, true, data["isAnonymous"])
	assert.Nil(t, data["ownerId"])
	assert.Len(t, data["steps"], 1)
}

func TestCreateWithoutLandingPage(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodPost, "/blueprints", `{
		"name": "T",
		"status": "private",
		"preferredVersions": {"php": "8.2", "wp": "6.8"},
		"features": {"networking": true},
		"steps": [{"kind": "runCode", "code": "x"}]
	}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["isAnonymous"])
	assert.Equal(t, "8.2", data["phpVersion"])
	assert.Equal(t, "private", data["status"])
	assert.Equal(t, "/wp-admin/", data["landingPage"])
}

func TestCreateOwnedBlueprint(t *testing.T) {
	r := setupRouter(t)

	data := createBlueprint(t, r, bearer(t, "auth0|alice", "Alice"))
	assert.Equal(t, false, data["isAnonymous"])
	assert.Equal(t, "auth0|alice", data["ownerId"])
}

func TestCreateRejectsBadBodies(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed", `{"name": `, http.StatusBadRequest},
		{"array", `[1, 2]`, http.StatusBadRequest},
		{"null", `null`, http.StatusBadRequest},
		{"trailing data", `{} {}`, http.StatusBadRequest},
		{"missing fields", `{}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/blueprints", tt.body, "")
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}

	w := do(r, http.MethodPost, "/blueprints", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateValidationErrorsAreKeyedByPath(t *testing.T) {
	r := setupRouter(t)

	body := `{
		"name": "",
		"landingPage": "/",
		"preferredVersions": {"php": "5.6", "wp": "6.8"},
		"features": {"networking": true},
		"steps": [{"kind": "teleport"}]
	}`
	w := do(r, http.MethodPost, "/blueprints", body, "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	out := decode(t, w)
	assert.NotEmpty(t, out["message"])
	errs := out["errors"].(map[string]interface{})
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "preferredVersions.php")
	assert.Contains(t, errs, "steps[0].kind")
	assert.NotContains(t, errs, "preferredVersions.wp")

	list := decode(t, do(r, http.MethodGet, "/blueprints", "", ""))
	assert.Equal(t, float64(0), list["meta"].(map[string]interface{})["total"])
}

func TestUpdateClaimsAnonymousBlueprint(t *testing.T) {
	r := setupRouter(t)
	id := createBlueprint(t, r, "")["id"].(string)

	w := do(r, http.MethodPatch, "/blueprints/"+id, `{"name": "Claimed"}`, bearer(t, "auth0|alice", "Alice"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Claimed", data["name"])
	assert.Equal(t, "auth0|alice", data["ownerId"])
	assert.Equal(t, false, data["isAnonymous"])

	w = do(r, http.MethodPatch, "/blueprints/"+id, `{"name": "Stolen"}`, bearer(t, "auth0|bob", ""))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decode(t, w)["error"])

	w = do(r, http.MethodPatch, "/blueprints/"+id, `{"name": "Stolen"}`, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateInvalidField(t *testing.T) {
	r := setupRouter(t)
	id := createBlueprint(t, r, "")["id"].(string)

	w := do(r, http.MethodPatch, "/blueprints/"+id, `{"status": "draft"}`, "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode(t, w)["errors"], "status")
}

func TestUpdateUnknownBlueprint(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodPatch, "/blueprints/missing", `{"name": "x"}`, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["error"])
}

func TestDeleteHidesBlueprint(t *testing.T) {
	r := setupRouter(t)
	alice := bearer(t, "auth0|alice", "Alice")
	id := createBlueprint(t, r, alice)["id"].(string)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodDelete, "/blueprints/"+id, "", "").Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/blueprints/"+id, "", alice).Code)

	// the record stays readable by id with its deletion stamp
	w := do(r, http.MethodGet, "/blueprints/"+id, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, decode(t, w)["data"].(map[string]interface{})["deletedAt"])

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/blueprints/"+id+"/playground", "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPatch, "/blueprints/"+id, `{"name": "x"}`, alice).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/blueprints/"+id, "", alice).Code)

	list := decode(t, do(r, http.MethodGet, "/blueprints", "", ""))
	assert.Empty(t, list["data"])
}

func TestListValidatesPaging(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		query string
		field string
	}{
		{"per_page=0", "per_page"},
		{"per_page=101", "per_page"},
		{"per_page=ten", "per_page"},
		{"page=0", "page"},
		{"page=-3", "page"},
		{"status=draft", "status"},
		{"php_version=latest", "php_version"},
		{"wordpress_version=nope", "wordpress_version"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(r, http.MethodGet, "/blueprints?"+tt.query, "", "")
			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Contains(t, decode(t, w)["errors"], tt.field)
		})
	}
}

func TestListPastLastPage(t *testing.T) {
	r := setupRouter(t)
	createBlueprint(t, r, "")

	w := do(r, http.MethodGet, "/blueprints?page=9223372036854775807&per_page=100", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Empty(t, out["data"])
	assert.Equal(t, float64(1), out["meta"].(map[string]interface{})["total"])

	out = decode(t, do(r, http.MethodGet, "/blueprints?page=2&per_page=1", "", ""))
	assert.Empty(t, out["data"])
}

func TestListPagesAndFilters(t *testing.T) {
	r := setupRouter(t)
	for i := 0; i < 3; i++ {
		createBlueprint(t, r, "")
	}
	other := `{
		"name": "Legacy",
		"status": "private",
		"landingPage": "/",
		"preferredVersions": {"php": "7.4", "wp": "5.9"},
		"features": {"networking": false},
		"steps": []
	}`
	require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/blueprints", other, "").Code)

	out := decode(t, do(r, http.MethodGet, "/blueprints?per_page=2&page=2", "", ""))
	meta := out["meta"].(map[string]interface{})
	assert.Equal(t, float64(2), meta["currentPage"])
	assert.Equal(t, float64(2), meta["perPage"])
	assert.Equal(t, float64(4), meta["total"])
	assert.Len(t, out["data"], 2)

	out = decode(t, do(r, http.MethodGet, "/blueprints?status=private", "", ""))
	require.Len(t, out["data"], 1)
	assert.Equal(t, "Legacy", out["data"].([]interface{})[0].(map[string]interface{})["name"])

	out = decode(t, do(r, http.MethodGet, "/blueprints?php_version=8.2&wordpress_version=6.8", "", ""))
	assert.Len(t, out["data"], 3)

	out = decode(t, do(r, http.MethodGet, "/blueprints?php_version=8.0", "", ""))
	assert.Empty(t, out["data"])
	assert.Equal(t, float64(0), out["meta"].(map[string]interface{})["total"])
}

func TestMineListsOwnBlueprints(t *testing.T) {
	r := setupRouter(t)
	alice := bearer(t, "auth0|alice", "Alice")
	createBlueprint(t, r, alice)
	createBlueprint(t, r, bearer(t, "auth0|bob", "Bob"))
	createBlueprint(t, r, "")

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me/blueprints", "", "").Code)

	out := decode(t, do(r, http.MethodGet, "/me/blueprints", "", alice))
	require.Len(t, out["data"], 1)
	assert.Equal(t, "auth0|alice", out["data"].([]interface{})[0].(map[string]interface{})["ownerId"])
}

func TestPlaygroundDocument(t *testing.T) {
	r := setupRouter(t)
	id := createBlueprint(t, r, bearer(t, "auth0|alice", "Alice"))["id"].(string)

	w := do(r, http.MethodGet, "/blueprints/"+id+"/playground", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	doc := decode(t, w)
	assert.Equal(t, "https://playground.wordpress.net/blueprint-schema.json", doc["$schema"])
	// landing page and networking are fixed in exported documents
	assert.Equal(t, "/wp-admin/", doc["landingPage"])
	assert.Equal(t, map[string]interface{}{"networking": true}, doc["features"])
	assert.Equal(t, true, doc["login"])

	meta := doc["meta"].(map[string]interface{})
	assert.Equal(t, "Shop starter", meta["title"])
	assert.Equal(t, "Alice", meta["author"])
	assert.Equal(t, []interface{}{"generated"}, meta["categories"])

	assert.Equal(t, map[string]interface{}{"php": "8.2", "wp": "6.8"}, doc["preferredVersions"])
	steps := doc["steps"].([]interface{})
	require.Len(t, steps, 1)
	assert.Equal(t, "installPlugin", steps[0].(map[string]interface{})["kind"])
}

func TestViewsAndRunsAreCounted(t *testing.T) {
	r := setupRouter(t)
	id := createBlueprint(t, r, "")["id"].(string)

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/blueprints/"+id+"/playground", "", "").Code)
	w := do(r, http.MethodPost, "/blueprints/"+id+"/runs", "", "")
	require.Equal(t, http.StatusAccepted, w.Code)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/blueprints/missing/runs", "", "").Code)

	assert.Eventually(t, func() bool {
		data := decode(t, do(r, http.MethodGet, "/blueprints/"+id, "", ""))["data"].(map[string]interface{})
		stats, ok := data["statistics"].(map[string]interface{})
		return ok && stats["viewsCount"] == float64(1) && stats["runsCount"] == float64(1)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestVersions(t *testing.T) {
	r := setupRouter(t)

	out := decode(t, do(r, http.MethodGet, "/versions", "", ""))
	assert.Equal(t, "8.2", out["php"].([]interface{})[0])
	assert.Equal(t, "6.8", out["wordpress"].([]interface{})[0])
}
