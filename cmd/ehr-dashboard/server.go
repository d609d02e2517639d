package main

import (
	"context"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/config"
	"github.com/ehr/dashboard/internal/domain/billing"
	"github.com/ehr/dashboard/internal/domain/clinical"
	"github.com/ehr/dashboard/internal/domain/identity"
	"github.com/ehr/dashboard/internal/domain/scheduling"
	"github.com/ehr/dashboard/internal/platform/db"
	"github.com/ehr/dashboard/internal/platform/dispatch"
	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/internal/platform/middleware"
	"github.com/ehr/dashboard/internal/platform/mockstore"
)

// newServer wires every domain over one upstream and one mock store.
func newServer(cfg *config.Config, src fhir.Source, reg *mockstore.Registry, logger zerolog.Logger, checks ...db.Check) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))
	if timeout, err := cfg.FHIRTimeout(); err == nil {
		e.Use(middleware.RequestTimeout(timeout))
	}

	e.GET("/health", db.HealthHandler(checks...))

	policy := dispatch.Policy{MockCRUD: cfg.MockCRUD}

	identitySvc := identity.NewService(reg, src, policy, logger)
	schedulingSvc := scheduling.NewService(reg, src, identitySvc, policy, logger)
	clinicalSvc := clinical.NewService(reg, src, identitySvc, policy, logger)
	billingSvc := billing.NewService(reg, src, identitySvc, policy, logger)

	apiV1 := e.Group("/api/v1")
	identity.NewHandler(identitySvc).RegisterRoutes(apiV1)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(apiV1)
	clinical.NewHandler(clinicalSvc).RegisterRoutes(apiV1)
	billing.NewHandler(billingSvc).RegisterRoutes(apiV1)

	if cfg.IsDev() {
		admin := apiV1.Group("/admin")
		admin.POST("/mock/reset", resetMockStore(reg))
		admin.GET("/mock/collections", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]any{"collections": reg.Collections()})
		})
	}

	return e
}

// resetMockStore drops every session record across all domains.
func resetMockStore(reg *mockstore.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		reg.ClearAll()
		return c.JSON(http.StatusOK, dispatch.OK("", "mock data cleared"))
	}
}

// pingUpstream reads a single patient page and returns the reported total.
func pingUpstream(ctx context.Context, src fhir.Source) (int, error) {
	b, err := src.Search(ctx, "Patient", url.Values{"_count": {"1"}, "_summary": {"count"}})
	if err != nil {
		return 0, err
	}
	return b.TotalOr(len(b.Entry)), nil
}

func upstreamCheck(src fhir.Source) db.Check {
	return db.Check{
		Name: "fhir_upstream",
		Probe: func(ctx context.Context) error {
			_, err := pingUpstream(ctx, src)
			return err
		},
	}
}
