package remote

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/storyshelf/internal/library"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Library string `json:"library"`
	Time    string `json:"time"`
	Version string `json:"version,omitempty"`
}

type HealthController struct {
	lib     library.Contract
	version string
}

func NewHealthController(lib library.Contract, version string) *HealthController {
	return &HealthController{
		lib:     lib,
		version: version,
	}
}

// Status reports the status of the served library. Libraries that cannot
// be read answer 503.
func (h *HealthController) Status(c *gin.Context) {
	libStatus := h.lib.Status(c.Request.Context())

	status := "healthy"
	statusCode := http.StatusOK
	if !libStatus.IsReady() {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, HealthResponse{
		Status:  status,
		Library: libStatus.String(),
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
	})
}
