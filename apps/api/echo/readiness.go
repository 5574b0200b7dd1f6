package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ubora/core/readiness"
)

type readinessApi struct {
	svc *readiness.Service
}

func registerReadinessAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *readiness.Service) {
	api := readinessApi{svc: svc}

	rg := g.Group("/readiness", jwt)
	rg.GET("/clients", api.clients, staffMiddleware())
	rg.GET("/me", api.me)
}

// clients returns the readiness rows of every client on a live path in any
// program the calling staff member oversees, most urgent first.
func (api *readinessApi) clients(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rows, err := api.svc.CoachDashboard(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "computing coach dashboard")
	}
	return ctx.JSON(http.StatusOK, rows)
}

// me returns the calling user's own readiness rows, one per live path.
func (api *readinessApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rows, err := api.svc.ForUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "computing user readiness")
	}
	return ctx.JSON(http.StatusOK, rows)
}
