package route

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mailroom_server/core/domain"
	"mailroom_server/core/port/out"
)

type fakeTransport struct {
	sent    []*domain.OutboundMail
	failFor func(m *domain.OutboundMail) error
}

func (f *fakeTransport) Send(ctx context.Context, m *domain.OutboundMail) error {
	if f.failFor != nil {
		if err := f.failFor(m); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakeRouteRepo struct {
	existing  map[string]bool
	inserted  []*domain.RouteRecord
	existsErr error
}

func (f *fakeRouteRepo) ExistsByMessageID(ctx context.Context, messageID string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.existing[messageID], nil
}

func (f *fakeRouteRepo) InsertIfAbsent(ctx context.Context, rec *domain.RouteRecord) (bool, error) {
	if f.existing[rec.MessageID] {
		return false, nil
	}
	if f.existing == nil {
		f.existing = make(map[string]bool)
	}
	f.existing[rec.MessageID] = true
	f.inserted = append(f.inserted, rec)
	return true, nil
}

func (f *fakeRouteRepo) Recent(ctx context.Context, limit int, department domain.Department) ([]*domain.RouteRecord, error) {
	return nil, nil
}

func (f *fakeRouteRepo) CountByDepartment(ctx context.Context, since time.Time) (map[domain.Department]int64, error) {
	return nil, nil
}

type fakeCache struct {
	seen   map[string]bool
	marked []string
}

func (f *fakeCache) Seen(ctx context.Context, messageID string) (bool, error) {
	return f.seen[messageID], nil
}

func (f *fakeCache) MarkSeen(ctx context.Context, messageID string, ttl time.Duration) error {
	f.marked = append(f.marked, messageID)
	return nil
}

func (f *fakeCache) IncrRetry(ctx context.Context, messageID string) (int64, error) { return 0, nil }
func (f *fakeCache) ClearRetry(ctx context.Context, messageID string) error         { return nil }

func testConfig() Config {
	return Config{
		Departments: map[domain.Department]string{
			domain.DepartmentSales:   "sales@mailroom.local",
			domain.DepartmentFinance: "finance@mailroom.local",
			domain.DepartmentTriage:  "triage@mailroom.local",
		},
		CCTriage:         true,
		AutoReplyEnabled: true,
		FromAddress:      "mailroom@mailroom.local",
	}
}

func matched(id string, dept domain.Department) domain.MatchedMessage {
	return domain.MatchedMessage{
		ClassifiedMessage: domain.ClassifiedMessage{
			ParsedMessage: domain.ParsedMessage{
				Message: domain.InboundMessage{
					ID:      id,
					From:    "school@example.com",
					Subject: "Re: contract renewal",
					Date:    time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
				},
				Entities: make(domain.EntitySet),
			},
			Classification: domain.Classification{
				Category:   domain.Prediction{Label: string(domain.CategoryRenewal), Confidence: 0.8},
				Priority:   domain.Prediction{Label: string(domain.PriorityHigh), Confidence: 0.7},
				Department: domain.Prediction{Label: string(dept), Confidence: 0.8},
			},
		},
	}
}

func TestRouteForwardAndReply(t *testing.T) {
	transport := &fakeTransport{}
	repo := &fakeRouteRepo{}
	cache := &fakeCache{}
	r, err := NewRouter(testConfig(), transport, repo, cache)
	if err != nil {
		t.Fatal(err)
	}

	routed, dup, err := r.Route(context.Background(), matched("<m1@test>", domain.DepartmentSales))
	if err != nil || dup {
		t.Fatalf("route failed: dup=%v err=%v", dup, err)
	}

	if len(transport.sent) != 2 {
		t.Fatalf("expected forward + auto-reply, got %d sends", len(transport.sent))
	}
	forward, reply := transport.sent[0], transport.sent[1]

	if forward.To[0] != "sales@mailroom.local" {
		t.Errorf("forward went to %v", forward.To)
	}
	if len(forward.CC) != 1 || forward.CC[0] != "triage@mailroom.local" {
		t.Errorf("expected triage CC, got %v", forward.CC)
	}
	if !strings.HasPrefix(forward.Subject, "["+routed.Protocol+"][HIGH] ") {
		t.Errorf("unexpected forward subject %q", forward.Subject)
	}
	if !strings.Contains(forward.Subject, "contract renewal") {
		t.Errorf("reply prefix should be stripped from subject, got %q", forward.Subject)
	}
	if !strings.Contains(forward.HTMLBody, routed.Protocol) {
		t.Error("forward body should quote the protocol")
	}

	if reply.To[0] != "school@example.com" {
		t.Errorf("auto-reply went to %v", reply.To)
	}
	if reply.InReplyTo != "<m1@test>" {
		t.Errorf("auto-reply should thread onto the original, got %q", reply.InReplyTo)
	}
	if !routed.AutoReplied {
		t.Error("routed message should record the auto-reply")
	}

	if len(repo.inserted) != 1 {
		t.Fatalf("expected an audit record, got %d", len(repo.inserted))
	}
	rec := repo.inserted[0]
	if rec.MessageID != "<m1@test>" || rec.Department != domain.DepartmentSales {
		t.Errorf("audit record wrong: %+v", rec)
	}
	if len(cache.marked) != 1 {
		t.Error("dedupe cache should be warmed after routing")
	}
}

func TestRouteProtocolFormat(t *testing.T) {
	for i := 0; i < 20; i++ {
		p := NewProtocol()
		if !strings.HasPrefix(p, "MR-") || len(p) != 11 {
			t.Fatalf("bad protocol %q", p)
		}
		if suffix := p[3:]; suffix != strings.ToUpper(suffix) {
			t.Fatalf("protocol suffix not uppercase: %q", p)
		}
	}
}

func TestRouteTriageFallback(t *testing.T) {
	transport := &fakeTransport{}
	r, err := NewRouter(testConfig(), transport, &fakeRouteRepo{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	routed, _, err := r.Route(context.Background(), matched("<m2@test>", domain.DepartmentLegal))
	if err != nil {
		t.Fatal(err)
	}
	if routed.Department != domain.DepartmentTriage {
		t.Errorf("unconfigured department should fall back to triage, got %s", routed.Department)
	}
	if transport.sent[0].To[0] != "triage@mailroom.local" {
		t.Errorf("forward went to %v", transport.sent[0].To)
	}
	if len(transport.sent[0].CC) != 0 {
		t.Error("no triage CC when routing to triage itself")
	}
}

func TestRouteDuplicateSkipped(t *testing.T) {
	tests := []struct {
		name  string
		repo  *fakeRouteRepo
		cache *fakeCache
	}{
		{
			name:  "cache fast path",
			repo:  &fakeRouteRepo{},
			cache: &fakeCache{seen: map[string]bool{"<m3@test>": true}},
		},
		{
			name: "audit table",
			repo: &fakeRouteRepo{existing: map[string]bool{"<m3@test>": true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{}
			var cache out.ProcessedCache
			if tt.cache != nil {
				cache = tt.cache
			}
			r, err := NewRouter(testConfig(), transport, tt.repo, cache)
			if err != nil {
				t.Fatal(err)
			}

			routed, dup, err := r.Route(context.Background(), matched("<m3@test>", domain.DepartmentSales))
			if err != nil {
				t.Fatal(err)
			}
			if !dup || routed != nil {
				t.Errorf("expected duplicate skip, got dup=%v routed=%v", dup, routed)
			}
			if len(transport.sent) != 0 {
				t.Error("duplicates must not be forwarded again")
			}
		})
	}
}

func TestRouteForwardFailureFails(t *testing.T) {
	transport := &fakeTransport{failFor: func(m *domain.OutboundMail) error {
		return errors.New("relay down")
	}}
	repo := &fakeRouteRepo{}
	r, err := NewRouter(testConfig(), transport, repo, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = r.Route(context.Background(), matched("<m4@test>", domain.DepartmentSales))
	if err == nil {
		t.Fatal("forward failure must fail the route")
	}
	if len(repo.inserted) != 0 {
		t.Error("no audit record without a delivered forward")
	}
}

func TestRouteAutoReplyFailureTolerated(t *testing.T) {
	transport := &fakeTransport{failFor: func(m *domain.OutboundMail) error {
		if m.InReplyTo != "" {
			return errors.New("sender rejects")
		}
		return nil
	}}
	repo := &fakeRouteRepo{}
	r, err := NewRouter(testConfig(), transport, repo, nil)
	if err != nil {
		t.Fatal(err)
	}

	routed, dup, err := r.Route(context.Background(), matched("<m5@test>", domain.DepartmentSales))
	if err != nil || dup {
		t.Fatalf("auto-reply failure must not fail the route: dup=%v err=%v", dup, err)
	}
	if routed.AutoReplied {
		t.Error("failed auto-reply must not be recorded as sent")
	}
	if len(repo.inserted) != 1 {
		t.Error("audit record should still be written")
	}
}

func TestNewRouterRequiresTriage(t *testing.T) {
	cfg := testConfig()
	delete(cfg.Departments, domain.DepartmentTriage)
	if _, err := NewRouter(cfg, &fakeTransport{}, &fakeRouteRepo{}, nil); err == nil {
		t.Error("router without a triage mailbox should be rejected")
	}
}

func TestRenderTemplates(t *testing.T) {
	html, err := renderForward(forwardData{
		Protocol:   "MR-ABCD1234",
		Sender:     "Maria <maria@school.example.com>",
		Subject:    "Renewal",
		Category:   "renewal",
		Priority:   "high",
		Department: "sales",
		Confidence: "80%",
		Entities:   []entityRow{{Type: "contract_number", Values: "2024/0153"}},
		Match:      &matchRow{Number: "2024/0153", SchoolName: "Monteiro Lobato", Score: "1.00", Method: "contract_number"},
		Body:       "<script>alert(1)</script>",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "MR-ABCD1234") || !strings.Contains(html, "Monteiro Lobato") {
		t.Error("forward template missing fields")
	}
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Error("message body must be escaped in the forward")
	}

	reply, err := renderReply(replyData{Protocol: "MR-ABCD1234", Category: "renewal", SLA: slaForPriority(domain.PriorityUrgent), ReceivedAt: "2026-03-15 10:00 UTC"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply, "within 4 business hours") {
		t.Error("reply should carry the urgent SLA")
	}
}

func TestSLAForPriority(t *testing.T) {
	tests := []struct {
		priority domain.Priority
		expected string
	}{
		{domain.PriorityUrgent, "within 4 business hours"},
		{domain.PriorityHigh, "within 1 business day"},
		{domain.PriorityNormal, "within 2 business days"},
		{domain.PriorityLow, "within 3 business days"},
	}
	for _, tt := range tests {
		if got := slaForPriority(tt.priority); got != tt.expected {
			t.Errorf("%s: expected %q, got %q", tt.priority, tt.expected, got)
		}
	}
}
