// Package insights は意思決定コレクションからの派生ビューを計算する。
// すべて純粋関数で、入力スライスを変更しない。
package insights

import (
	"strings"
	"time"

	"github.com/hitoshi/kimeru/internal/model"
)

// Summary は意思決定の集計値。
type Summary struct {
	Total     int
	Pending   int
	Completed int
}

// CategoryCount はカテゴリ別の件数。
type CategoryCount struct {
	Category string
	Count    int
}

// DayCount は1日分の意思決定件数。
type DayCount struct {
	Date  time.Time // ローカル暦日の0時
	Label string    // 曜日の短縮表記（Mon, Tue, ...）
	Count int
}

// Status の正規化結果。
const (
	StatusPending    = "pending"
	StatusCompleted  = "completed"
	StatusInProgress = "in-progress"
	StatusUnknown    = "unknown"
)

// ClassifyStatus はステータス文字列を大文字小文字を無視して正規化する。
// 既知の3値以外はunknownとして扱い、エラーにはしない。
func ClassifyStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusPending:
		return StatusPending
	case StatusCompleted:
		return StatusCompleted
	case StatusInProgress:
		return StatusInProgress
	default:
		return StatusUnknown
	}
}

// Summarize は総数・保留・完了の集計を返す。
// unknownステータスは総数のみに数える。
func Summarize(decisions []*model.Decision) Summary {
	s := Summary{Total: len(decisions)}
	for _, d := range decisions {
		switch ClassifyStatus(d.Status) {
		case StatusPending:
			s.Pending++
		case StatusCompleted:
			s.Completed++
		}
	}
	return s
}

// CategoryHistogram はカテゴリ別の件数を初出順で返す。
// カテゴリ名の比較は完全一致（大文字小文字を区別する）。
func CategoryHistogram(decisions []*model.Decision) []CategoryCount {
	index := make(map[string]int)
	var out []CategoryCount
	for _, d := range decisions {
		if i, ok := index[d.Category]; ok {
			out[i].Count++
			continue
		}
		index[d.Category] = len(out)
		out = append(out, CategoryCount{Category: d.Category, Count: 1})
	}
	return out
}

// WeeklyActivity は直近7日間の日別作成件数を返す。
// バケットはnowを含むローカル暦日7日分で、古い日が先頭。
// 該当のない日は0件で埋める。7日より前の作成分は含めない。
func WeeklyActivity(now time.Time, decisions []*model.Decision) []DayCount {
	today := startOfDay(now)
	start := today.AddDate(0, 0, -6)

	out := make([]DayCount, 7)
	index := make(map[time.Time]int, 7)
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		out[i] = DayCount{Date: day, Label: day.Format("Mon")}
		index[day] = i
	}

	for _, d := range decisions {
		day := startOfDay(d.CreatedAt.In(now.Location()))
		if i, ok := index[day]; ok {
			out[i].Count++
		}
	}
	return out
}

// Filter はタイトルまたは説明に部分一致する意思決定を返す。
// 比較は大文字小文字を無視する。空クエリは入力をそのまま返す。
// コレクション自体は変更しない。
func Filter(decisions []*model.Decision, query string) []*model.Decision {
	query = strings.TrimSpace(query)
	if query == "" {
		return decisions
	}

	q := strings.ToLower(query)
	out := []*model.Decision{}
	for _, d := range decisions {
		if strings.Contains(strings.ToLower(d.Title), q) ||
			strings.Contains(strings.ToLower(d.Description), q) {
			out = append(out, d)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
