// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// UserProfile はバックエンドAPIが返すユーザープロフィールを表す。
// OAuthプロバイダーによりname以外のフィールド（username, login等）に
// 表示名が入る場合があるため、表示にはDisplayName()を使用する。
type UserProfile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Username     string `json:"username,omitempty"`
	Login        string `json:"login,omitempty"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage,omitempty"`
	Education    string `json:"education,omitempty"`
	Skills       string `json:"skills,omitempty"`
	CareerGoals  string `json:"careerGoals,omitempty"`
	AuthProvider string `json:"authProvider,omitempty"`
}

// DisplayName は表示用の名前を解決する。
// Googleはname、GitHubはloginまたはusernameに名前を入れるため、
// name → username → login → メールアドレスのローカル部の順でフォールバックする。
func (u *UserProfile) DisplayName() string {
	if u == nil {
		return "User"
	}
	switch {
	case u.Name != "":
		return u.Name
	case u.Username != "":
		return u.Username
	case u.Login != "":
		return u.Login
	case u.Email != "":
		if at := strings.Index(u.Email, "@"); at > 0 {
			return u.Email[:at]
		}
		return u.Email
	}
	return "User"
}

// Session はブラウザ1つ分のログインセッションを表す。
// 永続ストアにはトークンとユーザープロフィールの2つのデータのみを保持し、
// ログアウト時には両方を同時に破棄する（片方だけ残る状態を作らない）。
type Session struct {
	ID        string
	Token     string
	User      *UserProfile
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Authenticated はセッションが認証済みかを返す。
// トークンが非空であることと認証済みであることは同値。
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}
