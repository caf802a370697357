package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"mailroom_server/core/domain"
)

type fakeNotificationRepo struct {
	items []*domain.Notification
}

func (f *fakeNotificationRepo) Append(ctx context.Context, n *domain.Notification) error {
	return nil
}

func (f *fakeNotificationRepo) TrimTo(ctx context.Context, max int) (int64, error) {
	return 0, nil
}

func (f *fakeNotificationRepo) Recent(ctx context.Context, limit int) ([]*domain.Notification, error) {
	return f.items, nil
}

type fakeRouteRepo struct {
	records []*domain.RouteRecord
}

func (f *fakeRouteRepo) ExistsByMessageID(ctx context.Context, messageID string) (bool, error) {
	return false, nil
}

func (f *fakeRouteRepo) InsertIfAbsent(ctx context.Context, rec *domain.RouteRecord) (bool, error) {
	return true, nil
}

func (f *fakeRouteRepo) Recent(ctx context.Context, limit int, department domain.Department) ([]*domain.RouteRecord, error) {
	return f.records, nil
}

func (f *fakeRouteRepo) CountByDepartment(ctx context.Context, since time.Time) (map[domain.Department]int64, error) {
	return map[domain.Department]int64{}, nil
}

func newTestApp(notifications *fakeNotificationRepo, routes *fakeRouteRepo) *fiber.App {
	app := fiber.New()
	api := app.Group("/api/v1")
	NewMailroomHandler(notifications, routes, nil, nil).Register(api)
	return app
}

func TestNotificationsMinLevelFilter(t *testing.T) {
	repo := &fakeNotificationRepo{items: []*domain.Notification{
		{Level: domain.NotifyInfo, Title: "routed"},
		{Level: domain.NotifyError, Title: "stage failed"},
		{Level: domain.NotifyCritical, Title: "cycle down"},
	}}
	app := newTestApp(repo, &fakeRouteRepo{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/notifications?min_level=error", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Notifications []domain.Notification `json:"notifications"`
		Count         int                   `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 2 {
		t.Fatalf("expected 2 notifications at error and above, got %d", body.Count)
	}
	for _, n := range body.Notifications {
		if n.Level.Rank() < domain.NotifyError.Rank() {
			t.Errorf("level %s should have been filtered out", n.Level)
		}
	}
}

func TestNotificationsNoFilter(t *testing.T) {
	repo := &fakeNotificationRepo{items: []*domain.Notification{
		{Level: domain.NotifyInfo, Title: "routed"},
		{Level: domain.NotifyWarning, Title: "retry capped"},
	}}
	app := newTestApp(repo, &fakeRouteRepo{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/notifications", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 2 {
		t.Fatalf("expected all notifications without a filter, got %d", body.Count)
	}
}

func TestRoutesMinPriorityFilter(t *testing.T) {
	repo := &fakeRouteRepo{records: []*domain.RouteRecord{
		{Protocol: "MR-AAAA1111", Priority: domain.PriorityNormal},
		{Protocol: "MR-BBBB2222", Priority: domain.PriorityHigh},
		{Protocol: "MR-CCCC3333", Priority: domain.PriorityUrgent},
	}}
	app := newTestApp(&fakeNotificationRepo{}, repo)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/routes?min_priority=high", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Routes []domain.RouteRecord `json:"routes"`
		Count  int                  `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 2 {
		t.Fatalf("expected 2 routes at high and above, got %d", body.Count)
	}
	for _, r := range body.Routes {
		if r.Priority.Rank() < domain.PriorityHigh.Rank() {
			t.Errorf("priority %s should have been filtered out", r.Priority)
		}
	}
}
