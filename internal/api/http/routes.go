package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-history/internal/store"
	"github.com/i474232898/weather-history/internal/weather"
)

var validate = validator.New()

// Service is what the HTTP layer needs from weather.Service.
type Service interface {
	History(city string) (store.Log, error)
	Prune(ctx context.Context) (store.PruneResult, error)
	Fetch(ctx context.Context, city string, units weather.Units) (weather.Report, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service Service, defaultUnits weather.Units) {
	v1 := app.Group("/api/v1")

	v1.Get("/history", func(c *fiber.Ctx) error {
		var q historyQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := service.History(q.City)
		if err != nil {
			return historyError(err)
		}

		if q.Since > 0 {
			records = since(records, q.Since)
		}

		return c.JSON(fiber.Map{
			"city":    q.City,
			"count":   len(records),
			"records": records,
		})
	})

	v1.Post("/history/prune", func(c *fiber.Ctx) error {
		res, err := service.Prune(c.UserContext())
		if err != nil {
			return historyError(err)
		}
		return c.JSON(res)
	})

	v1.Get("/weather/forecast", func(c *fiber.Ctx) error {
		q := forecastQuery{
			City:  c.Query("city"),
			Units: c.Query("units", string(defaultUnits)),
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), 30*time.Second)
		defer cancel()

		report, err := service.Fetch(ctx, q.City, weather.Units(q.Units))
		if err != nil {
			if errors.Is(err, weather.ErrNoCity) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}

		resp := fiber.Map{
			"city":      report.City,
			"fetchedAt": report.FetchedAt,
			"days":      report.Days,
			"recorded":  report.HistoryErr == nil,
		}
		if report.HistoryErr != nil {
			resp["historyError"] = report.HistoryErr.Error()
		}
		return c.JSON(resp)
	})
}

// historyError maps store failures onto HTTP errors. A corrupt history file
// is a server-side condition the operator must resolve (archive or repair).
func historyError(err error) error {
	switch {
	case errors.Is(err, store.ErrParse):
		return fiber.NewError(fiber.StatusInternalServerError, "history file is corrupt: "+err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to access weather history")
	}
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	City  string `validate:"omitempty,max=128"`
	Since uint64
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.City = c.Query("city")

	if s := c.Query("since"); s != "" {
		ts, err := parseTime(s)
		if err != nil {
			return err
		}
		h.Since = store.TimestampOf(ts)
	}

	return validate.Struct(h)
}

// forecastQuery holds query parameters for the forecast endpoint. An empty
// city asks the service to detect the location.
type forecastQuery struct {
	City  string `validate:"omitempty,max=128"`
	Units string `validate:"required,oneof=metric imperial standard"`
}

func since(records store.Log, ts uint64) store.Log {
	out := make(store.Log, 0, len(records))
	for _, r := range records {
		if r.Timestamp >= ts {
			out = append(out, r)
		}
	}
	return out
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
