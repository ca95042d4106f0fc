package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dszwed/wp-blueprints/internal/middleware"
	"github.com/dszwed/wp-blueprints/internal/models"
	"github.com/dszwed/wp-blueprints/internal/services"
	"github.com/dszwed/wp-blueprints/internal/validation"
	"github.com/dszwed/wp-blueprints/internal/versions"
	"github.com/gin-gonic/gin"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// BlueprintHandler handles blueprint-related requests
type BlueprintHandler struct {
	service *services.BlueprintService
	catalog *versions.Catalog
}

// NewBlueprintHandler creates a new blueprint handler. The catalog checks
// version filters on listings.
func NewBlueprintHandler(service *services.BlueprintService, catalog *versions.Catalog) *BlueprintHandler {
	return &BlueprintHandler{
		service: service,
		catalog: catalog,
	}
}

// List handles listing public and private blueprints with optional filters
func (h *BlueprintHandler) List(c *gin.Context) {
	query, verrs := h.parseListQuery(c)
	if verrs != nil {
		respondValidation(c, verrs)
		return
	}
	h.list(c, query)
}

// Mine lists the authenticated user's own blueprints
func (h *BlueprintHandler) Mine(c *gin.Context) {
	query, verrs := h.parseListQuery(c)
	if verrs != nil {
		respondValidation(c, verrs)
		return
	}
	query.Filter.OwnerId = middleware.UserID(c)
	h.list(c, query)
}

func (h *BlueprintHandler) list(c *gin.Context, query services.ListQuery) {
	result, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewListResponse(result.Page, result.CurrentPage, result.PerPage))
}

// Create handles creating a new blueprint, anonymous or owned
func (h *BlueprintHandler) Create(c *gin.Context) {
	raw, ok := decodeBody(c)
	if !ok {
		return
	}

	bp, err := h.service.Create(c.Request.Context(), raw, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": bp.ToResponse()})
}

// Get handles fetching a single blueprint with its statistics
func (h *BlueprintHandler) Get(c *gin.Context) {
	bp, stats, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bp.ToDetailResponse(stats)})
}

// Update handles partial updates; an anonymous blueprint edited by a
// signed-in user becomes theirs
func (h *BlueprintHandler) Update(c *gin.Context) {
	raw, ok := decodeBody(c)
	if !ok {
		return
	}

	bp, err := h.service.Update(c.Request.Context(), c.Param("id"), raw, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bp.ToResponse()})
}

// Delete handles soft deleting a blueprint
func (h *BlueprintHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Playground serves the blueprint as a WordPress Playground document
func (h *BlueprintHandler) Playground(c *gin.Context) {
	doc, err := h.service.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	body, err := doc.Encode()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// RecordRun counts a Playground launch of the blueprint
func (h *BlueprintHandler) RecordRun(c *gin.Context) {
	if err := h.service.RecordRun(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Run recorded."})
}

// actorFrom returns the authenticated caller, or nil for anonymous requests
func actorFrom(c *gin.Context) *services.Actor {
	id := middleware.UserID(c)
	if id == "" {
		return nil
	}
	return &services.Actor{Id: id, Name: middleware.UserName(c)}
}

// decodeBody reads a JSON object, keeping number literals intact. It writes
// the 400 response itself when the body is unusable.
func decodeBody(c *gin.Context) (map[string]interface{}, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			respondBadRequest(c, "Request body must be a JSON object.")
		} else {
			respondBadRequest(c, fmt.Sprintf("Malformed JSON: %v", err))
		}
		return nil, false
	}
	if raw == nil {
		respondBadRequest(c, "Request body must be a JSON object.")
		return nil, false
	}
	if dec.More() {
		respondBadRequest(c, "Request body must hold a single JSON object.")
		return nil, false
	}
	return raw, true
}

// parseListQuery reads page, per_page and the filters. Out of range paging
// is rejected rather than clamped.
func (h *BlueprintHandler) parseListQuery(c *gin.Context) (services.ListQuery, *validation.Errors) {
	verrs := &validation.Errors{}
	q := services.ListQuery{Page: 1, PerPage: services.DefaultPerPage}

	if v, ok := c.GetQuery("page"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			verrs.Add("page", "The page must be an integer of at least 1.")
		} else {
			q.Page = n
		}
	}
	if v, ok := c.GetQuery("per_page"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > services.MaxPerPage {
			verrs.Add("per_page", fmt.Sprintf("The per page value must be an integer between 1 and %d.", services.MaxPerPage))
		} else {
			q.PerPage = n
		}
	}
	if v := c.Query("status"); v != "" {
		status := models.Status(v)
		if !status.Valid() {
			verrs.Add("status", "The status filter must be either public or private.")
		} else {
			q.Filter.Status = status
		}
	}
	if v := c.Query("php_version"); v != "" {
		if !h.catalog.PHP.Contains(v) {
			verrs.Add("php_version", "The PHP version is not supported.")
		} else {
			q.Filter.PHPVersion = v
		}
	}
	if v := c.Query("wordpress_version"); v != "" {
		if !h.catalog.WordPress.Contains(v) {
			verrs.Add("wordpress_version", "The WordPress version is not supported.")
		} else {
			q.Filter.WordPressVersion = v
		}
	}

	if verrs.Len() > 0 {
		return q, verrs
	}
	return q, nil
}
