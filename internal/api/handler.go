package api

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/cardlock/internal/access"
	"github.com/Checker-Finance/cardlock/internal/lock"
	"github.com/Checker-Finance/cardlock/internal/metrics"
	"github.com/Checker-Finance/cardlock/pkg/model"
)

// LockService defines the operations the handler needs.
type LockService interface {
	Check(ctx context.Context, uid string) access.Decision
	Summary() lock.Summary
	Mode() string
	RecentEvents(ctx context.Context, limit int) ([]model.AccessEvent, error)
}

// CheckLimiter throttles card checks per reader.
type CheckLimiter interface {
	Allow(key string) bool
}

// ReaderHeader identifies the card reader calling the API. It only selects
// the throttle bucket when the id is one of the configured known readers;
// any other request is throttled by client IP.
const ReaderHeader = "X-Reader-ID"

// CheckRequest is the body of POST /api/v1/access/check.
type CheckRequest struct {
	UID string `json:"uid"`
}

// AccessHandler serves card checks and the masked configuration view.
type AccessHandler struct {
	logger       *zap.Logger
	service      LockService
	limiter      CheckLimiter
	knownReaders map[string]struct{}
}

// NewAccessHandler creates a new AccessHandler.
// limiter is optional; if nil, checks are not throttled.
func NewAccessHandler(logger *zap.Logger, service LockService, limiter CheckLimiter, knownReaders []string) *AccessHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	known := make(map[string]struct{}, len(knownReaders))
	for _, id := range knownReaders {
		known[id] = struct{}{}
	}
	return &AccessHandler{logger: logger, service: service, limiter: limiter, knownReaders: known}
}

// throttleKey picks the rate limit bucket of a request.
func (h *AccessHandler) throttleKey(c *fiber.Ctx) string {
	if id := c.Get(ReaderHeader); id != "" {
		if _, ok := h.knownReaders[id]; ok {
			return "reader:" + id
		}
	}
	return "ip:" + c.IP()
}

// CheckHandler decides on one presented card.
func (h *AccessHandler) CheckHandler(c *fiber.Ctx) error {
	var req CheckRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if strings.TrimSpace(req.UID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "uid is required"})
	}

	key := h.throttleKey(c)
	if h.limiter != nil && !h.limiter.Allow(key) {
		h.logger.Warn("api.check_rate_limited", zap.String("key", key))
		metrics.IncAccessDecision(false, access.ReasonRateLimited)
		return c.Status(fiber.StatusTooManyRequests).JSON(access.Decision{
			UID:    access.DisplayUID(req.UID),
			Reason: access.ReasonRateLimited,
		})
	}

	d := h.service.Check(c.UserContext(), req.UID)
	return c.Status(fiber.StatusOK).JSON(d)
}

// ConfigHandler returns the masked credential table.
func (h *AccessHandler) ConfigHandler(c *fiber.Ctx) error {
	return c.JSON(h.service.Summary())
}

// EventsHandler returns recent access decisions, newest first.
func (h *AccessHandler) EventsHandler(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be positive"})
	}

	events, err := h.service.RecentEvents(c.UserContext(), limit)
	if err != nil {
		h.logger.Error("api.recent_events_failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "events unavailable"})
	}
	if events == nil {
		events = []model.AccessEvent{}
	}
	return c.JSON(fiber.Map{"events": events})
}
