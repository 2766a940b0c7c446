package runtime

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PathGuard resolves a client-supplied build file path, rejecting paths it does not allow.
type PathGuard func(path string) (string, error)

// NewHttpHandler registers the task metadata API on g:
//
//	GET  /types          registered task type names
//	GET  /types/:name    actions and properties of one type
//	POST /validate       validate the tasks of a build file: {"build": "path"}
func NewHttpHandler(app *App, guard PathGuard, g *gin.Engine) {
	g.GET("/types", handleListTypes(app))
	g.GET("/types/:name", handleDescribeType(app))
	g.POST("/validate", handleValidate(app, guard))
}

func handleListTypes(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"types": app.Container.TaskTypes()})
	}
}

func handleDescribeType(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		taskType, ok := app.Container.TaskType(name)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "Unknown task type: " + name})
			return
		}
		info, err := app.Container.Factory().ClassInfo(taskType)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json", DescribeTaskType(name, info).Bytes())
	}
}

type validateRequest struct {
	Build string `json:"build" binding:"required"`
}

func handleValidate(app *App, guard PathGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Wrong request body format"})
			return
		}

		path := req.Build
		if guard != nil {
			resolved, err := guard(req.Build)
			if err != nil {
				c.JSON(http.StatusForbidden, gin.H{"message": err.Error()})
				return
			}
			path = resolved
		}

		build, err := app.LoadBuild(path)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}
		tasks, err := app.CreateTasks(build)
		if err != nil {
			slog.Error("Failed to create tasks", "build", path, "error", err)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}

		results := make(map[string]ValidationMessages, len(tasks))
		for name, task := range tasks {
			results[name] = app.Validate(task)
		}
		c.Data(http.StatusOK, "application/json", DescribeValidation(results).Bytes())
	}
}
