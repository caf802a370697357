package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"mailroom_server/adapter/in/worker"
	"mailroom_server/core/domain"
	"mailroom_server/core/port/out"
	"mailroom_server/core/service/notify"
	"mailroom_server/pkg/apperr"
)

// MailroomHandler serves the read-only operational API: notification
// history, the live feed, the routing audit trail and pipeline stats.
type MailroomHandler struct {
	notifications out.NotificationRepository
	routes        out.RouteRepository
	feed          *notify.FeedChannel
	stats         func() worker.LoopStats
}

func NewMailroomHandler(
	notifications out.NotificationRepository,
	routes out.RouteRepository,
	feed *notify.FeedChannel,
	stats func() worker.LoopStats,
) *MailroomHandler {
	return &MailroomHandler{
		notifications: notifications,
		routes:        routes,
		feed:          feed,
		stats:         stats,
	}
}

func (h *MailroomHandler) Register(api fiber.Router) {
	api.Get("/notifications", h.Notifications)
	api.Get("/feed", h.Feed)
	api.Get("/routes", h.Routes)
	api.Get("/stats", h.Stats)
}

// Notifications returns the persisted history, newest first. min_level
// drops entries below the given severity.
func (h *MailroomHandler) Notifications(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	items, err := h.notifications.Recent(c.Context(), limit)
	if err != nil {
		return apperr.DatabaseError("list notifications", err)
	}
	if min := domain.NotificationLevel(c.Query("min_level")); min != "" {
		filtered := make([]*domain.Notification, 0, len(items))
		for _, n := range items {
			if n.Level.Rank() >= min.Rank() {
				filtered = append(filtered, n)
			}
		}
		items = filtered
	}
	return c.JSON(fiber.Map{"notifications": items, "count": len(items)})
}

// Feed returns the in-memory live feed.
func (h *MailroomHandler) Feed(c *fiber.Ctx) error {
	if h.feed == nil {
		return c.JSON(fiber.Map{"feed": []any{}, "count": 0})
	}
	items := h.feed.Snapshot()
	return c.JSON(fiber.Map{"feed": items, "count": len(items)})
}

// Routes returns the audit trail, optionally filtered by department and
// minimum priority.
func (h *MailroomHandler) Routes(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	department := domain.Department(c.Query("department"))
	records, err := h.routes.Recent(c.Context(), limit, department)
	if err != nil {
		return apperr.DatabaseError("list routes", err)
	}
	if min := domain.Priority(c.Query("min_priority")); min != "" {
		filtered := make([]*domain.RouteRecord, 0, len(records))
		for _, r := range records {
			if r.Priority.Rank() >= min.Rank() {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	resp := fiber.Map{"routes": records, "count": len(records)}
	if counts, err := h.routes.CountByDepartment(c.Context(), time.Now().Add(-24*time.Hour)); err == nil {
		resp["last_24h"] = counts
	}
	return c.JSON(resp)
}

// Stats returns the pipeline counters.
func (h *MailroomHandler) Stats(c *fiber.Ctx) error {
	if h.stats == nil {
		return c.JSON(fiber.Map{})
	}
	return c.JSON(h.stats())
}
