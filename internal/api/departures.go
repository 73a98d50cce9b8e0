package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/passbi/railplanner/internal/cache"
	"github.com/passbi/railplanner/internal/models"
	"github.com/passbi/railplanner/internal/network"
	"github.com/passbi/railplanner/internal/schedule"
	"github.com/rs/zerolog/log"
)

const (
	departuresWindow   = 2 * 3600
	departuresCacheTTL = 60 * time.Second
)

// DepartureInfo represents a single upcoming departure at a station
type DepartureInfo struct {
	RouteID       string               `json:"route_id"`
	RouteName     models.LocalizedName `json:"route_name"`
	SubRouteID    string               `json:"sub_route_id"`
	Direction     int                  `json:"direction"`
	TerminusID    string               `json:"terminus_id"`
	TerminusName  models.LocalizedName `json:"terminus_name"`
	DepartureTime string               `json:"departure_time"`
	MinutesUntil  int                  `json:"minutes_until"`
	TripID        string               `json:"trip_id"`
}

// DeparturesResponse is the response for the departures endpoint
type DeparturesResponse struct {
	Station     StationBasic    `json:"station"`
	Departures  []DepartureInfo `json:"departures"`
	CurrentTime string          `json:"current_time"`
	Total       int             `json:"total"`
}

// StationBasic represents minimal station info
type StationBasic struct {
	ID   string               `json:"id"`
	Name models.LocalizedName `json:"name"`
}

// StationDepartures handles GET /v1/stations/:id/departures
func (h *Handler) StationDepartures(c *fiber.Ctx) error {
	if h.board == nil {
		return c.Status(501).JSON(fiber.Map{"error": "departures board not available"})
	}

	stationID := c.Params("id")
	ctx := c.Context()

	timeStr := c.Query("time")
	var from schedule.ServiceTime
	if timeStr != "" {
		parsed, err := schedule.ParseServiceTime(timeStr)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": fmt.Sprintf("invalid time format (use HH:MM[:SS]): %v", err)})
		}
		from = parsed
	} else {
		from = schedule.ServiceTimeOf(h.now())
	}

	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	station, err := h.registry.Station(ctx, stationID)
	if errors.Is(err, network.ErrNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "station not found"})
	}
	if err != nil {
		log.Error().Err(err).Str("station", stationID).Msg("station lookup failed")
		return c.Status(500).JSON(fiber.Map{"error": "internal server error"})
	}

	cacheKey := cache.DeparturesKey(stationID, int(from), limit)
	if h.store != nil {
		var cached DeparturesResponse
		found, err := h.store.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			log.Warn().Err(err).Str("key", cacheKey).Msg("departures cache read failed")
		}
		if found {
			return c.JSON(cached)
		}
	}

	board, err := h.board.DeparturesAt(ctx, stationID, from, departuresWindow, limit)
	if err != nil {
		log.Error().Err(err).Str("station", stationID).Msg("departures query failed")
		return c.Status(500).JSON(fiber.Map{"error": "internal server error"})
	}

	departures, err := h.describeDepartures(ctx, board, from)
	if err != nil {
		log.Error().Err(err).Str("station", stationID).Msg("departure metadata lookup failed")
		return c.Status(500).JSON(fiber.Map{"error": "internal server error"})
	}

	resp := DeparturesResponse{
		Station:     StationBasic{ID: station.ID, Name: station.Name},
		Departures:  departures,
		CurrentTime: from.String(),
		Total:       len(departures),
	}

	if h.store != nil {
		if err := h.store.SetJSON(ctx, cacheKey, resp, departuresCacheTTL); err != nil {
			log.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache departures")
		}
	}

	return c.JSON(resp)
}

func (h *Handler) describeDepartures(ctx context.Context, board []schedule.StationDeparture, from schedule.ServiceTime) ([]DepartureInfo, error) {
	departures := []DepartureInfo{}
	for _, d := range board {
		route, err := h.registry.Route(ctx, d.RouteID)
		if err != nil {
			return nil, err
		}
		terminus, err := h.registry.Station(ctx, d.TerminusID)
		if err != nil {
			return nil, err
		}

		departures = append(departures, DepartureInfo{
			RouteID:       d.RouteID,
			RouteName:     route.Name,
			SubRouteID:    d.SubRouteID,
			Direction:     int(d.Direction),
			TerminusID:    d.TerminusID,
			TerminusName:  terminus.Name,
			DepartureTime: d.Departure.String(),
			MinutesUntil:  d.Departure.Sub(from) / 60,
			TripID:        d.TripID,
		})
	}
	return departures, nil
}
