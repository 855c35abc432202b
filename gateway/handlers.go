package gateway

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/storage"
)

// ModelsResponse lists the supported models per provider.
type ModelsResponse struct {
	Default   string              `json:"default"`
	Providers map[string][]string `json:"providers"`
}

// HealthResponse reports per-provider health.
type HealthResponse struct {
	Status    string                `json:"status"`
	Providers map[string]llm.Health `json:"providers"`
}

// TurnsResponse is a page of stored turns, newest first.
type TurnsResponse struct {
	Turns []*storage.Turn `json:"turns"`
	Count int             `json:"count"`
}

// handlePing returns a simple liveness response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleModels(c *fiber.Ctx) error {
	registry := s.chat.Registry()
	return c.JSON(ModelsResponse{
		Default:   registry.Default(),
		Providers: registry.ListModels(),
	})
}

// handleHealth is "ok" only when every provider is healthy. It always answers
// 200 so a single misconfigured provider doesn't fail load balancer checks.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	providers := s.chat.Registry().HealthAll(c.Context())

	status := llm.HealthOK
	for _, h := range providers {
		if h.Status != llm.HealthOK {
			status = "degraded"
			break
		}
	}

	return c.JSON(HealthResponse{Status: status, Providers: providers})
}

func (s *Server) handleListTurns(c *fiber.Ctx) error {
	query := storage.Query{Provider: c.Query("provider")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "limit must be a non-negative integer"})
		}
		query.Limit = limit
	}

	turns, err := s.driver.List(c.Context(), query)
	if err != nil {
		s.logger.Error("failed to list turns", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list turns"})
	}

	return c.JSON(TurnsResponse{Turns: turns, Count: len(turns)})
}

func (s *Server) handleGetTurn(c *fiber.Ctx) error {
	turn, err := s.driver.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "turn not found"})
		}
		s.logger.Error("failed to get turn", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get turn"})
	}

	return c.JSON(turn)
}
