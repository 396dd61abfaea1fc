package linker

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/wellness-api/internal/handler"
	"github.com/jwalitptl/wellness-api/internal/service/linker"
	"github.com/jwalitptl/wellness-api/pkg/logger"
)

type Handler struct {
	service *linker.Service
	logger  *logger.Logger
}

func NewHandler(service *linker.Service, logger *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/link-intakes", h.Preview)
	r.POST("/link-intakes", h.Apply)
}

// Preview reports the links a run would make without writing anything.
func (h *Handler) Preview(c *gin.Context) {
	h.run(c, linker.ModePreview)
}

func (h *Handler) Apply(c *gin.Context) {
	h.run(c, linker.ModeApply)
}

func (h *Handler) run(c *gin.Context, mode linker.Mode) {
	result, err := h.service.ComputeLinks(c.Request.Context(), mode)
	if err != nil {
		h.logger.Error(err, "Link run failed", "mode", string(mode), "staff", handler.StaffName(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": handler.ErrorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, result)
}
