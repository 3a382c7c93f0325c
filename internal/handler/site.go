package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sumire/bebop/internal/domain"
	"github.com/sumire/bebop/internal/service"
)

// SiteHandler serves forum configuration and cached chain data.
type SiteHandler struct {
	site *service.SiteService
}

// NewSiteHandler creates a new SiteHandler.
func NewSiteHandler(site *service.SiteService) *SiteHandler {
	return &SiteHandler{site: site}
}

type siteView struct {
	domain.SiteConfig
	DatabaseID string `json:"db_id"`
}

// Config returns the forum configuration.
func (h *SiteHandler) Config(c echo.Context) error {
	return JSON(c, http.StatusOK, siteView{SiteConfig: h.site.Site(), DatabaseID: h.site.DatabaseID()})
}

// Head returns the cached head block.
func (h *SiteHandler) Head(c echo.Context) error {
	head, err := h.site.Head(c.Request().Context())
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, head)
}

// RefreshHead fetches the head block from the explorer.
func (h *SiteHandler) RefreshHead(c echo.Context) error {
	head, err := h.site.RefreshHead(c.Request().Context())
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, head)
}

// Request fetches and caches a recorded query.
func (h *SiteHandler) Request(c echo.Context) error {
	doc, err := h.site.FetchRequest(c.Request().Context(), c.Param("hash"))
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, doc)
}

// Block fetches and caches a block.
func (h *SiteHandler) Block(c echo.Context) error {
	height, err := strconv.ParseInt(c.Param("height"), 10, 64)
	if err != nil || height < 0 {
		return fmt.Errorf("%w: height must be a non-negative integer", domain.ErrInvalidInput)
	}
	doc, err := h.site.FetchBlock(c.Request().Context(), height)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, doc)
}
