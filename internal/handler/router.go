package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// NewRouter wires the loopback HTTP surface.
func NewRouter(sessions *SessionHandler, site *SiteHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewAppValidator()
	e.HTTPErrorHandler = HTTPErrorHandler

	e.Use(RequestID())
	e.Use(RequestLogger())
	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return JSON(c, http.StatusOK, map[string]string{"status": "ok"})
	})

	e.GET("/oauth/end", sessions.OAuthEnd)

	api := e.Group("/api/v1")

	api.GET("/session", sessions.Get)
	api.POST("/session/check", sessions.Check)
	api.POST("/session/signin", sessions.SignIn)
	api.DELETE("/session", sessions.SignOut)
	api.PUT("/session/name", sessions.SetName)
	api.POST("/session/name/decline", sessions.DeclineName)
	api.GET("/token", sessions.Token)

	api.GET("/site", site.Config)
	api.GET("/head", site.Head)
	api.POST("/head/refresh", site.RefreshHead)
	api.GET("/sql/:hash", site.Request)
	api.GET("/blocks/:height", site.Block)

	return e
}
