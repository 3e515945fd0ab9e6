package handler

import (
	"net/http"
	"strconv"

	"github.com/hitoshi/kimeru/internal/avatar"
)

// AvatarHandler はプロフィール画像のプロキシエンドポイント。
// 外部URLの画像をSSRF検証付きで取得し、ブラウザへ中継する。
type AvatarHandler struct {
	fetcher avatar.FetcherService
}

// NewAvatarHandler はAvatarHandlerを生成する。
func NewAvatarHandler(fetcher avatar.FetcherService) *AvatarHandler {
	return &AvatarHandler{fetcher: fetcher}
}

// Serve は画像を取得して返す。取得できない場合は404を返す。
// GET /avatar?url=https://...
func (h *AvatarHandler) Serve(w http.ResponseWriter, r *http.Request) {
	imageURL := r.URL.Query().Get("url")
	if imageURL == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}

	data, mimeType, err := h.fetcher.Fetch(r.Context(), imageURL)
	if err != nil || data == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
