package route

import "testing"

func TestRequiresAuth(t *testing.T) {
	tests := []struct {
		name          string
		authenticated bool
		wantAllow     bool
		wantRedirect  string
	}{
		{"認証済みは許可", true, true, ""},
		{"未認証はログインへ転送", false, false, "/login"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RequiresAuth(tt.authenticated)
			if got.Allow != tt.wantAllow {
				t.Errorf("Allow = %v, want %v", got.Allow, tt.wantAllow)
			}
			if got.RedirectTo != tt.wantRedirect {
				t.Errorf("RedirectTo = %q, want %q", got.RedirectTo, tt.wantRedirect)
			}
		})
	}
}

func TestRequiresAnonymous(t *testing.T) {
	tests := []struct {
		name          string
		authenticated bool
		wantAllow     bool
		wantRedirect  string
	}{
		{"未認証は許可", false, true, ""},
		{"認証済みはダッシュボードへ転送", true, false, "/dashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RequiresAnonymous(tt.authenticated)
			if got.Allow != tt.wantAllow {
				t.Errorf("Allow = %v, want %v", got.Allow, tt.wantAllow)
			}
			if got.RedirectTo != tt.wantRedirect {
				t.Errorf("RedirectTo = %q, want %q", got.RedirectTo, tt.wantRedirect)
			}
		})
	}
}
