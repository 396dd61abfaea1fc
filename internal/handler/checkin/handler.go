package checkin

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/wellness-api/internal/export"
	"github.com/jwalitptl/wellness-api/internal/handler"
	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/service/checkin"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
	"github.com/jwalitptl/wellness-api/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service *checkin.Service
	logger  *logger.Logger
}

func NewHandler(service *checkin.Service, logger *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/patients", h.ListPatients)
	checkins := r.Group("/checkin")
	{
		checkins.GET("", h.ListCheckins)
		checkins.POST("", h.SaveCheckin)
		checkins.GET("/export", h.ExportCheckins)
	}
}

func (h *Handler) ListPatients(c *gin.Context) {
	patients, err := h.service.ListActivePatients(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to list active patients")
		return
	}
	c.JSON(http.StatusOK, gin.H{"patients": patients})
}

// ListCheckins accepts either patient_id or protocol_id; protocol_id wins when
// both are given.
func (h *Handler) ListCheckins(c *gin.Context) {
	protocol, checkins, err := h.lookup(c)
	if err != nil {
		h.fail(c, err, "Failed to list check-ins")
		return
	}
	if checkins == nil {
		checkins = []*model.Checkin{}
	}

	resp := gin.H{
		"protocol_id": protocol.ID,
		"checkins":    checkins,
	}
	if improvement := checkin.Improvement(checkins); improvement != nil {
		resp["improvement"] = improvement
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) SaveCheckin(c *gin.Context) {
	var in checkin.CheckinInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	saved, err := h.service.UpsertCheckin(c.Request.Context(), in, handler.StaffName(c))
	if err != nil {
		status := handler.ErrorStatus(err)
		resp := gin.H{"success": false, "error": handler.ErrorMessage(err)}
		if appErr, ok := apperrors.As(err); ok && appErr.Field != "" {
			resp["field"] = appErr.Field
		}
		if status >= http.StatusInternalServerError {
			h.logger.Error(err, "Failed to save check-in", "protocol_id", in.ProtocolID)
		}
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "checkin": saved})
}

func (h *Handler) ExportCheckins(c *gin.Context) {
	id, err := uuid.Parse(c.Query("protocol_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "protocol_id must be a valid UUID"})
		return
	}

	protocol, checkins, err := h.service.ListCheckins(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to load check-ins for export")
		return
	}

	data, err := export.CheckinsXLSX(protocol, checkins, checkin.Improvement(checkins))
	if err != nil {
		h.fail(c, err, "Failed to render check-in export")
		return
	}

	filename := fmt.Sprintf("checkins-%s.xlsx", protocol.ID)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *Handler) lookup(c *gin.Context) (*model.Protocol, []*model.Checkin, error) {
	ctx := c.Request.Context()
	if raw := c.Query("protocol_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, nil, apperrors.NewValidation("protocol_id", "protocol_id must be a valid UUID")
		}
		return h.service.ListCheckins(ctx, id)
	}
	if raw := c.Query("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, nil, apperrors.NewValidation("patient_id", "patient_id must be a valid UUID")
		}
		return h.service.ListCheckinsForPatient(ctx, id)
	}
	return nil, nil, apperrors.NewValidation("patient_id", "patient_id or protocol_id is required")
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	status := handler.ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(err, msg)
	}
	c.JSON(status, gin.H{"error": handler.ErrorMessage(err)})
}
