package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"idlezoo/pkg/config"
	"idlezoo/pkg/errutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

func TestNewHttpServer(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Addr = "9090"

	engine := NewEngine(cfg)
	srv := NewHttpServer(Params{Config: cfg, Handler: engine})
	require.Equal(t, ":9090", srv.server.Addr)
	require.Nil(t, srv.server.TLSConfig)
}

func TestEngineRendersErrors(t *testing.T) {
	engine := NewEngine(&config.Config{})
	engine.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errutil.Conflict("slot busy", nil))
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "slot busy")
}
