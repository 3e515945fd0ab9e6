package view

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/kimeru/internal/insights"
	"github.com/hitoshi/kimeru/internal/model"
)

func TestRenderer(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer returned error: %v", err)
	}

	user := &model.UserProfile{Name: "Taro", Email: "taro@example.com"}

	t.Run("homeは未認証でも描画できる", func(t *testing.T) {
		var buf bytes.Buffer
		if err := r.Render(&buf, "home", HomeData{Page: Page{Title: "Home"}}); err != nil {
			t.Fatalf("Render returned error: %v", err)
		}
		if !strings.Contains(buf.String(), "Get started") {
			t.Error("anonymous home should show the signup call to action")
		}
	})

	t.Run("loginはCSRFトークンを埋め込む", func(t *testing.T) {
		var buf bytes.Buffer
		err := r.Render(&buf, "login", LoginData{Page: Page{Title: "Login", CSRFToken: "tok-abc"}})
		if err != nil {
			t.Fatalf("Render returned error: %v", err)
		}
		if !strings.Contains(buf.String(), `value="tok-abc"`) {
			t.Error("login form should embed the CSRF token")
		}
	})

	t.Run("dashboardは意思決定と集計を描画する", func(t *testing.T) {
		data := DashboardData{
			Page: Page{Title: "Dashboard", User: user},
			Decisions: []*model.Decision{
				{ID: "d1", Title: "Learn Go", Category: "Career", Priority: "High", Status: "Pending", CreatedAt: time.Now()},
			},
			Summary: insights.Summary{Total: 1, Pending: 1},
			Logs: []*model.ActivityLogEntry{
				{ID: "l1", Action: model.ActionCreatedDecision, EntityID: &model.LogEntity{Title: "Learn Go"}},
			},
		}

		var buf bytes.Buffer
		if err := r.Render(&buf, "dashboard", data); err != nil {
			t.Fatalf("Render returned error: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "Learn Go") {
			t.Error("dashboard should list decisions")
		}
		// html/templateは引用符を&#34;にエスケープする
		if !strings.Contains(out, `Created new decision &#34;Learn Go&#34;`) {
			t.Error("dashboard should show activity captions")
		}
		if !strings.Contains(out, `class="badge status-pending"`) {
			t.Error("status badge should carry the normalized status class")
		}
	})

	t.Run("analyticsはアドバイスHTMLをエスケープせず描画する", func(t *testing.T) {
		data := AnalyticsData{
			Page:   Page{Title: "Analytics", User: user},
			Weekly: insights.WeeklyActivity(time.Now(), nil),
			Advice: "<p>Focus on <strong>career</strong>.</p>",
		}

		var buf bytes.Buffer
		if err := r.Render(&buf, "analytics", data); err != nil {
			t.Fatalf("Render returned error: %v", err)
		}
		if !strings.Contains(buf.String(), "<p>Focus on <strong>career</strong>.</p>") {
			t.Error("sanitized advice should be rendered as HTML")
		}
	})

	t.Run("ユーザー入力はエスケープされる", func(t *testing.T) {
		data := DashboardData{
			Page: Page{Title: "Dashboard", User: user},
			Decisions: []*model.Decision{
				{ID: "d1", Title: "<script>alert(1)</script>", Category: "x", Status: "Pending"},
			},
			Summary: insights.Summary{Total: 1, Pending: 1},
		}

		var buf bytes.Buffer
		if err := r.Render(&buf, "dashboard", data); err != nil {
			t.Fatalf("Render returned error: %v", err)
		}
		if strings.Contains(buf.String(), "<script>alert(1)</script>") {
			t.Error("decision titles must be HTML-escaped")
		}
	})

	t.Run("settingsはプロフィール値を埋め込む", func(t *testing.T) {
		u := &model.UserProfile{Name: "Taro", Education: "B.Sc.", Skills: "Go, SQL"}
		var buf bytes.Buffer
		if err := r.Render(&buf, "settings", SettingsData{Page: Page{Title: "Settings", User: u}}); err != nil {
			t.Fatalf("Render returned error: %v", err)
		}
		if !strings.Contains(buf.String(), "B.Sc.") {
			t.Error("settings should prefill profile fields")
		}
	})
}
