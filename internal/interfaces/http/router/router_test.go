package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, DefaultBasePath, r.BasePath())
	assert.Empty(t, r.registrars)
}

func TestRouterWithBasePath(t *testing.T) {
	r := NewRouter(gin.New(), WithBasePath("/api/v2"))

	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	vehicle := NewDomainGroup("vehicle", "/vehicle")
	vehicle.GET("/makes", func(c *gin.Context) {
		c.String(http.StatusOK, "makes")
	})
	r.Register(vehicle).Setup()

	w := serve(engine, http.MethodGet, "/api/vehicle/makes")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "makes", w.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/vehicle/makes").Code)
}

func TestRouterMiddlewareScopedToAPI(t *testing.T) {
	engine := gin.New()
	engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("scope"))
	})

	r := NewRouter(engine, WithMiddleware(func(c *gin.Context) {
		c.Set("scope", "api")
		c.Next()
	}))
	system := NewDomainGroup("system", "/system")
	system.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("scope"))
	})
	r.Register(system).Setup()

	assert.Equal(t, "api", serve(engine, http.MethodGet, "/api/system/ping").Body.String())
	assert.Empty(t, serve(engine, http.MethodGet, "/health").Body.String())
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("wizard", "/wizard")
		assert.Equal(t, "wizard", g.Name())
		assert.Equal(t, "/wizard", g.Prefix())
	})

	t.Run("registers every method", func(t *testing.T) {
		engine := gin.New()
		ok := func(c *gin.Context) { c.String(http.StatusOK, c.Request.Method) }

		g := NewDomainGroup("wizard", "/wizard")
		g.POST("/sessions", ok).
			GET("/sessions/:id", ok).
			PATCH("/sessions/:id/vehicle", ok).
			DELETE("/sessions/:id", ok)
		g.RegisterRoutes(engine.Group("/api"))

		tests := []struct {
			method string
			path   string
		}{
			{http.MethodPost, "/api/wizard/sessions"},
			{http.MethodGet, "/api/wizard/sessions/abc"},
			{http.MethodPatch, "/api/wizard/sessions/abc/vehicle"},
			{http.MethodDelete, "/api/wizard/sessions/abc"},
		}
		for _, tt := range tests {
			w := serve(engine, tt.method, tt.path)
			assert.Equal(t, http.StatusOK, w.Code, "%s %s", tt.method, tt.path)
			assert.Equal(t, tt.method, w.Body.String())
		}
	})

	t.Run("group middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("vehicle", "/vehicle")
		g.Use(func(c *gin.Context) {
			c.Header("X-Group", "vehicle")
			c.Next()
		})
		g.GET("/makes", func(c *gin.Context) { c.Status(http.StatusOK) })
		g.RegisterRoutes(engine.Group("/api"))

		w := serve(engine, http.MethodGet, "/api/vehicle/makes")
		assert.Equal(t, "vehicle", w.Header().Get("X-Group"))
	})

	t.Run("subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("vehicle", "/vehicle")
		g.Group("gid", "/gid").GET("/:gid", func(c *gin.Context) {
			c.String(http.StatusOK, c.Param("gid"))
		})
		g.RegisterRoutes(engine.Group("/api"))

		w := serve(engine, http.MethodGet, "/api/vehicle/gid/1001")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "1001", w.Body.String())
	})
}

func TestRegisterMultipleGroups(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	vehicle := NewDomainGroup("vehicle", "/vehicle").GET("/makes", func(c *gin.Context) { c.Status(http.StatusOK) })
	wizard := NewDomainGroup("wizard", "/wizard").POST("/sessions", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.Register(vehicle, wizard).Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/vehicle/makes").Code)
	assert.Equal(t, http.StatusCreated, serve(engine, http.MethodPost, "/api/wizard/sessions").Code)
}
