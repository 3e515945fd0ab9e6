// Package advisor はAIによる意思決定戦略の生成とチャットを提供する。
package advisor

import (
	"context"
	"strings"

	"github.com/hitoshi/kimeru/internal/backend"
	"github.com/hitoshi/kimeru/internal/model"
	"github.com/hitoshi/kimeru/internal/security"
)

// BackendAIAPI はアドバイザーが必要とするバックエンドAPIの部分集合。
type BackendAIAPI interface {
	Analyze(ctx context.Context, token string, entities []backend.AnalyzeEntity) (string, error)
	Chat(ctx context.Context, token string, messages []model.ChatMessage, chatCtx backend.ChatContext) (string, error)
}

// Service はAIアドバイザー。
// バックエンドのAI APIを呼び出し、応答をサニタイズして返す。
type Service struct {
	backend   BackendAIAPI
	sanitizer security.AdviceSanitizerService
}

// NewService はServiceを生成する。
func NewService(backendAPI BackendAIAPI, sanitizer security.AdviceSanitizerService) *Service {
	return &Service{
		backend:   backendAPI,
		sanitizer: sanitizer,
	}
}

// GenerateStrategy は現在の意思決定コレクション全体に対する
// 戦略アドバイスを生成する。意思決定が0件の場合は空文字列を返し、
// バックエンドを呼ばない。
func (s *Service) GenerateStrategy(ctx context.Context, token string, decisions []*model.Decision) (string, error) {
	if len(decisions) == 0 {
		return "", nil
	}

	entities := make([]backend.AnalyzeEntity, 0, len(decisions))
	for _, d := range decisions {
		entities = append(entities, backend.AnalyzeEntity{
			Title:       d.Title,
			Description: d.Description,
			Category:    d.Category,
			Status:      d.Status,
		})
	}

	advice, err := s.backend.Analyze(ctx, token, entities)
	if err != nil {
		return "", err
	}
	return s.sanitizer.Sanitize(advice), nil
}

// Chat は会話履歴と意思決定コンテキストを添えてAIチャットを行い、
// サニタイズ済みの返信を返す。
// initialAdviceは直近のGenerateStrategyの結果（なければ空文字列）。
func (s *Service) Chat(ctx context.Context, token string, messages []model.ChatMessage, initialAdvice string, decisions []*model.Decision) (string, error) {
	chatCtx := backend.ChatContext{
		InitialAdvice:    initialAdvice,
		DecisionsContext: BuildDecisionsContext(decisions),
	}

	reply, err := s.backend.Chat(ctx, token, messages, chatCtx)
	if err != nil {
		return "", err
	}
	return s.sanitizer.Sanitize(reply), nil
}

// BuildDecisionsContext は意思決定コレクションをAIに渡す
// テキスト表現へ変換する。1件ごとにタイトル・カテゴリ・ステータス・説明を
// 行単位で並べ、区切り線で連結する。
func BuildDecisionsContext(decisions []*model.Decision) string {
	parts := make([]string, 0, len(decisions))
	for _, d := range decisions {
		var b strings.Builder
		b.WriteString("Title: " + d.Title + "\n")
		b.WriteString("Category: " + d.Category + "\n")
		b.WriteString("Status: " + d.Status + "\n")
		b.WriteString("Description: " + d.Description + "\n")
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "---\n")
}
