package model

import "time"

// 優先度の既知の値。バックエンドはこの4値のいずれかを返す。
const (
	PriorityLow      = "Low"
	PriorityMedium   = "Medium"
	PriorityHigh     = "High"
	PriorityCritical = "Critical"
)

// Decision はユーザーが記録した意思決定レコードを表す。
// バックエンドがMongoDB系のため、識別子のJSONキーは"_id"。
// Statusは自由形式の文字列で、表示時に大文字小文字を区別せず分類する。
type Decision struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DecisionInput は意思決定の作成・更新リクエストのフィールドを表す。
type DecisionInput struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

// 活動ログのアクション種別。サーバー側で追記され、クライアントからは読み取り専用。
const (
	ActionCreatedDecision = "CREATED_DECISION"
	ActionUpdatedDecision = "UPDATED_DECISION"
	ActionDeletedDecision = "DELETED_DECISION"
)

// LogEntity は活動ログが参照する意思決定のスナップショット。
// 削除済みの意思決定を参照する場合があるため、タイトルのみを値で保持する。
type LogEntity struct {
	Title string `json:"title"`
}

// ActivityLogEntry は意思決定への変更操作の監査ログ1件を表す。
type ActivityLogEntry struct {
	ID        string     `json:"_id"`
	Action    string     `json:"action"`
	EntityID  *LogEntity `json:"entityId"`
	Timestamp time.Time  `json:"timestamp"`
}

// Caption は活動ログの表示用キャプションを生成する。
// 未知のアクションには汎用の文言を返す。
func (e *ActivityLogEntry) Caption() string {
	title := "Unknown Decision"
	if e.EntityID != nil && e.EntityID.Title != "" {
		title = e.EntityID.Title
	}
	switch e.Action {
	case ActionCreatedDecision:
		return `Created new decision "` + title + `"`
	case ActionDeletedDecision:
		return `Deleted decision "` + title + `"`
	case ActionUpdatedDecision:
		return `Updated decision "` + title + `"`
	default:
		return `Performed action on "` + title + `"`
	}
}

// ChatMessage はAIチャットの1発言を表す。roleは"user"または"assistant"。
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
