package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admin-console-api/internal/models"
	"github.com/noah-isme/admin-console-api/internal/service"
	appErrors "github.com/noah-isme/admin-console-api/pkg/errors"
	"github.com/noah-isme/admin-console-api/pkg/response"
)

// MonitorHandler exposes the operational endpoints: online sessions, forced
// logout and the audit trail.
type MonitorHandler struct {
	monitor *service.MonitorService
	auth    *service.AuthService
}

// NewMonitorHandler creates a new handler.
func NewMonitorHandler(monitor *service.MonitorService, auth *service.AuthService) *MonitorHandler {
	return &MonitorHandler{monitor: monitor, auth: auth}
}

// Online godoc
// @Summary Current online connection count
// @Tags Monitoring
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /monitor/online [get]
func (h *MonitorHandler) Online(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{"online": h.monitor.OnlineCount()}, nil)
}

// ForceLogout godoc
// @Summary Force-logout a user
// @Description Invalidate every token minted for the user before this call
// @Tags Monitoring
// @Produce json
// @Param id path string true "User id"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /monitor/force-logout/{id} [post]
func (h *MonitorHandler) ForceLogout(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "user id is required"))
		return
	}

	if err := h.auth.ForceLogout(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AuditLogs godoc
// @Summary List authentication audit logs
// @Tags Monitoring
// @Produce json
// @Param user_id query string false "Filter by user id"
// @Param action query string false "Filter by action (LOGIN, REFRESH, LOGOUT, FORCE_LOGOUT, PASSWORD_CHANGE)"
// @Param from query string false "Start of time range (RFC3339)"
// @Param to query string false "End of time range (RFC3339)"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(50)
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /monitor/audit-logs [get]
func (h *MonitorHandler) AuditLogs(c *gin.Context) {
	filter, err := auditFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	logs, total, err := h.monitor.ListAuditLogs(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, logs, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// ExportAuditLogs godoc
// @Summary Export audit logs
// @Description Download the matching audit trail as CSV or PDF
// @Tags Monitoring
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "Export format (csv, pdf)" default(csv)
// @Param user_id query string false "Filter by user id"
// @Param action query string false "Filter by action"
// @Param from query string false "Start of time range (RFC3339)"
// @Param to query string false "End of time range (RFC3339)"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /monitor/audit-logs/export [get]
func (h *MonitorHandler) ExportAuditLogs(c *gin.Context) {
	filter, err := auditFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))

	payload, contentType, err := h.monitor.ExportAuditLogs(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("audit-logs-%s.%s", time.Now().UTC().Format("20060102-150405"), format)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}

func auditFilterFromQuery(c *gin.Context) (models.AuditFilter, error) {
	filter := models.AuditFilter{
		UserID:   c.Query("user_id"),
		Action:   c.Query("action"),
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "page_size", 50),
	}

	for _, bound := range []struct {
		key  string
		dest **time.Time
	}{
		{"from", &filter.From},
		{"to", &filter.To},
	} {
		raw := c.Query(bound.key)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, bound.key+" must be RFC3339")
		}
		*bound.dest = &ts
	}

	return filter, nil
}
