package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admin-console-api/internal/models"
	"github.com/noah-isme/admin-console-api/internal/service"
	appErrors "github.com/noah-isme/admin-console-api/pkg/errors"
	"github.com/noah-isme/admin-console-api/pkg/response"
)

// DictHandler wires HTTP endpoints to the dictionary service.
type DictHandler struct {
	service *service.DictService
}

// NewDictHandler creates a new handler.
func NewDictHandler(svc *service.DictService) *DictHandler {
	return &DictHandler{service: svc}
}

// ListByType godoc
// @Summary List dictionary entries of one type
// @Tags Dictionaries
// @Produce json
// @Param type path string true "Dictionary type code"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dicts/types/{type} [get]
func (h *DictHandler) ListByType(c *gin.Context) {
	entries, err := h.service.ListByType(c.Request.Context(), c.Param("type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// List godoc
// @Summary List dictionary entries
// @Tags Dictionaries
// @Produce json
// @Param type_code query string false "Filter by type code"
// @Param search query string false "Label substring filter"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(50)
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dicts [get]
func (h *DictHandler) List(c *gin.Context) {
	filter := models.DictFilter{
		TypeCode: c.Query("type_code"),
		Search:   c.Query("search"),
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "page_size", 50),
	}

	entries, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Create godoc
// @Summary Create a dictionary entry
// @Tags Dictionaries
// @Accept json
// @Produce json
// @Param payload body models.DictEntry true "Entry payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /dicts [post]
func (h *DictHandler) Create(c *gin.Context) {
	var entry models.DictEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid entry payload"))
		return
	}

	if err := h.service.Create(c.Request.Context(), &entry); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Update godoc
// @Summary Update a dictionary entry
// @Tags Dictionaries
// @Accept json
// @Produce json
// @Param id path string true "Entry id"
// @Param payload body models.DictEntry true "Entry payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /dicts/{id} [put]
func (h *DictHandler) Update(c *gin.Context) {
	var entry models.DictEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid entry payload"))
		return
	}
	entry.ID = c.Param("id")

	if err := h.service.Update(c.Request.Context(), &entry); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Delete a dictionary entry
// @Tags Dictionaries
// @Produce json
// @Param id path string true "Entry id"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /dicts/{id} [delete]
func (h *DictHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
