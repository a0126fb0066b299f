package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/kinview-backend/internal/http/handlers"
	httpMW "github.com/yungbote/kinview-backend/internal/http/middleware"
	"github.com/yungbote/kinview-backend/internal/observability"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log             *logger.Logger
	AllowOrigins    []string
	MaxRequestBytes int64
	Metrics         *observability.Metrics

	HealthHandler   *httpH.HealthHandler
	SessionHandler  *httpH.SessionHandler
	TreeHandler     *httpH.TreeHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("kinview"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowOrigins))
	r.Use(httpMW.MaxBodyBytes(cfg.MaxRequestBytes))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/v1")
	if cfg.SessionHandler != nil {
		api.POST("/sessions", cfg.SessionHandler.Create)

		sess := api.Group("/sessions/:sid")
		{
			sess.DELETE("", cfg.SessionHandler.Delete)
			sess.PUT("/subject", cfg.SessionHandler.SwitchSubject)
			sess.GET("/people/:pid", cfg.SessionHandler.GetPerson)
			sess.POST("/people/:pid/brick-wall", cfg.SessionHandler.ToggleBrickWall)

			if cfg.TreeHandler != nil {
				sess.GET("/trees/:direction", cfg.TreeHandler.Tree)
				sess.GET("/trees/:direction/chart.png", cfg.TreeHandler.Chart)
				sess.POST("/expand", cfg.TreeHandler.Expand)
				sess.POST("/collapse", cfg.TreeHandler.Collapse)
				sess.POST("/uncollapse", cfg.TreeHandler.Uncollapse)
				sess.POST("/partner", cfg.TreeHandler.ChangePartner)
			}

			// Realtime (SSE)
			if cfg.RealtimeHandler != nil {
				sess.GET("/events", cfg.RealtimeHandler.SSEStream)
			}
		}
	}
	return r
}
