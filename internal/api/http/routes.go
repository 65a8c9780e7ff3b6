package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/vg84526/airquality-analysis/internal/analysis"
	"github.com/vg84526/airquality-analysis/internal/geo"
	"github.com/vg84526/airquality-analysis/internal/httpc"
	"github.com/vg84526/airquality-analysis/internal/store"
	"github.com/vg84526/airquality-analysis/internal/weather"
)

var validate = validator.New()

// analysisTimeout bounds one synchronous multi-location, multi-day run.
const analysisTimeout = 10 * time.Minute

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *analysis.Service) {
	v1 := app.Group("/api/v1")

	v1.Post("/analysis", func(c *fiber.Ctx) error {
		var req analysisRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx, cancel := context.WithTimeout(c.Context(), analysisTimeout)
		defer cancel()

		report, err := service.Run(ctx, analysis.Request{
			Locations:  req.Locations,
			StartDate:  req.StartDate,
			EndDate:    req.EndDate,
			Parameters: req.Parameters,
		})
		if err != nil {
			// Run only fails on input validation.
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.JSON(report)
	})

	v1.Get("/analysis/latest", func(c *fiber.Ctx) error {
		location := c.Query("location")
		if location == "" {
			return fiber.NewError(fiber.StatusBadRequest, "location query parameter is required")
		}

		result, err := service.Latest(location)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no analysis result for requested location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load analysis result")
		}

		return c.JSON(result)
	})

	v1.Get("/geocode", func(c *fiber.Ctx) error {
		location := c.Query("location")
		if location == "" {
			return fiber.NewError(fiber.StatusBadRequest, "location query parameter is required")
		}

		marginKm := 0.0
		if raw := c.Query("margin_km"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || v < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "margin_km must be a non-negative number")
			}
			marginKm = v
		}

		box, err := service.Geocode(c.Context(), location, marginKm)
		if err != nil {
			return mapUpstreamError(err)
		}

		return c.JSON(fiber.Map{
			"location": location,
			"box":      box,
		})
	})

	v1.Get("/weather/daily", func(c *fiber.Ctx) error {
		var req weatherQuery
		req.Location = c.Query("location")
		req.StartDate = c.Query("start_date")
		req.EndDate = c.Query("end_date")
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		summaries, err := service.WeatherDaily(c.Context(), req.Location, req.StartDate, req.EndDate)
		if err != nil {
			if errors.Is(err, weather.ErrNoData) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return mapUpstreamError(err)
		}

		return c.JSON(fiber.Map{
			"location": req.Location,
			"daily":    summaries,
		})
	})
}

// mapUpstreamError translates resolver/client failures into HTTP statuses:
// "no such place" is the caller's problem, "service unreachable" is not.
func mapUpstreamError(err error) error {
	switch {
	case errors.Is(err, geo.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, httpc.ErrTransport):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
}

// analysisRequest is the POST /analysis body.
type analysisRequest struct {
	Locations  []string `json:"locations" validate:"required,min=1,dive,required"`
	StartDate  string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	Parameters []string `json:"parameters"`
}

// weatherQuery holds query parameters for the weather endpoint.
type weatherQuery struct {
	Location  string `validate:"required"`
	StartDate string `validate:"required,datetime=2006-01-02"`
	EndDate   string `validate:"required,datetime=2006-01-02"`
}
