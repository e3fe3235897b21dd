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

type pingRegistrar struct{ body string }

func (p pingRegistrar) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, p.body)
	})
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Equal(t, "/api/v1", r.BasePath())
	assert.Empty(t, r.groups)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestNewDomainGroup_NormalizesPrefix(t *testing.T) {
	assert.Equal(t, "/capacity", NewDomainGroup("capacity", "capacity/").Prefix())
	assert.Equal(t, "/system", NewDomainGroup("system", "/system").Prefix())
	assert.Equal(t, "capacity", NewDomainGroup("capacity", "/capacity").Name())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	var guarded bool
	capacityGroup := NewDomainGroup("capacity", "/capacity").
		Use(func(c *gin.Context) {
			guarded = true
			c.Next()
		}).
		Mount(pingRegistrar{body: "capacity"})
	systemGroup := NewDomainGroup("system", "/system").Mount(pingRegistrar{body: "system"})

	api := r.Register(capacityGroup, systemGroup).Setup()
	assert.Equal(t, "/api/v1", api.BasePath())

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "system", w.Body.String())
	assert.False(t, guarded, "group middleware must not leak into sibling groups")

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/capacity/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "capacity", w.Body.String())
	assert.True(t, guarded)
}

func TestRouterSetup_UnknownRoute(t *testing.T) {
	engine := gin.New()
	NewRouter(engine).Register(NewDomainGroup("system", "/system").Mount(pingRegistrar{})).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/system/ping", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
