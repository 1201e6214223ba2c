package api

import (
	"github.com/gin-gonic/gin"

	"github.com/getnara/unstruct/internal/api/handler"
	"github.com/getnara/unstruct/internal/api/middleware"
	"github.com/getnara/unstruct/internal/logger"
)

// Handlers groups the route handlers wired in main.
type Handlers struct {
	Health  *handler.HealthHandler
	Project *handler.ProjectHandler
	Asset   *handler.AssetHandler
	Task    *handler.TaskHandler
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(h *Handlers, log *logger.Logger, mode string, cors middleware.CORSConfig) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cors))

	r.GET("/health", h.Health.Health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/projects", h.Project.CreateProject)
		v1.GET("/projects", h.Project.ListProjects)

		v1.POST("/assets", h.Asset.CreateAsset)
		v1.GET("/assets", h.Asset.ListAssets)
		v1.GET("/assets/:id", h.Asset.GetAsset)
		v1.DELETE("/assets/:id", h.Asset.DeleteAsset)

		v1.POST("/tasks", h.Task.CreateTask)
		v1.GET("/tasks", h.Task.ListTasks)
		v1.GET("/tasks/:id", h.Task.GetTask)
		v1.POST("/tasks/:id/process", h.Task.ProcessTask)
	}

	return r
}
