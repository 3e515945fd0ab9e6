package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/kimeru/internal/backend"
	"github.com/hitoshi/kimeru/internal/middleware"
	"github.com/hitoshi/kimeru/internal/model"
	"github.com/hitoshi/kimeru/internal/security"
)

// ProfileServiceInterface は設定ハンドラーが必要とするセッションストアのインターフェース。
type ProfileServiceInterface interface {
	UpdateProfile(ctx context.Context, sessionID string, input backend.ProfileInput) (*model.UserProfile, error)
	UploadProfileImage(ctx context.Context, sessionID, filename string, data []byte) (*model.UserProfile, error)
	DeleteAccount(ctx context.Context, sessionID string) error
}

// SettingsHandler はプロフィール設定のHTTPハンドラー。
type SettingsHandler struct {
	sessions     ProfileServiceInterface
	avatarGuard  security.AvatarGuardService
	maxImageSize int64
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(sessions ProfileServiceInterface, avatarGuard security.AvatarGuardService, maxImageSize int64) *SettingsHandler {
	return &SettingsHandler{
		sessions:     sessions,
		avatarGuard:  avatarGuard,
		maxImageSize: maxImageSize,
	}
}

// UpdateProfile はプロフィールフィールドを更新する。
// POST /settings/profile
func (h *SettingsHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	input := backend.ProfileInput{
		ProfileImage: r.PostFormValue("profileImage"),
		Education:    r.PostFormValue("education"),
		Skills:       r.PostFormValue("skills"),
		CareerGoals:  r.PostFormValue("careerGoals"),
	}

	// 画像URLはユーザー入力なので保存前に検証する
	if input.ProfileImage != "" {
		if err := h.avatarGuard.ValidateURL(input.ProfileImage); err != nil {
			slog.Warn("rejected profile image URL",
				slog.String("error", err.Error()),
			)
			h.redirect(w, r, "That image URL is not allowed.")
			return
		}
	}

	sess := middleware.SessionFromContext(r.Context())
	if _, err := h.sessions.UpdateProfile(r.Context(), sess.ID, input); err != nil {
		slog.Warn("failed to update profile", slog.String("error", err.Error()))
		h.redirect(w, r, model.UserMessage(err, "Could not save your profile."))
		return
	}
	h.redirect(w, r, "")
}

// UploadImage はプロフィール画像をアップロードする。
// POST /settings/image
func (h *SettingsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	// multipart読み込み自体にも上限をかける
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageSize+4096)

	file, header, err := r.FormFile("image")
	if err != nil {
		h.redirect(w, r, "Please choose an image file (max 2MB).")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Warn("failed to read uploaded image", slog.String("error", err.Error()))
		h.redirect(w, r, "Could not read the uploaded file.")
		return
	}

	sess := middleware.SessionFromContext(r.Context())
	if _, err := h.sessions.UploadProfileImage(r.Context(), sess.ID, header.Filename, data); err != nil {
		slog.Warn("failed to upload profile image", slog.String("error", err.Error()))
		h.redirect(w, r, model.UserMessage(err, "Could not upload the image."))
		return
	}
	h.redirect(w, r, "")
}

// DeleteAccount はアカウントを完全に削除する。
// 成功時はセッションCookieを破棄してトップページへ転送する。
// POST /settings/delete
func (h *SettingsHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if err := h.sessions.DeleteAccount(r.Context(), sess.ID); err != nil {
		slog.Error("failed to delete account", slog.String("error", err.Error()))
		h.redirect(w, r, model.UserMessage(err, "Could not delete your account."))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *SettingsHandler) redirect(w http.ResponseWriter, r *http.Request, flash string) {
	target := "/settings"
	if flash != "" {
		target += "?error=" + url.QueryEscape(flash)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
