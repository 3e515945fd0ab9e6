package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionExpiry はセッションの有効期限を決定する。
// 基本はmaxAge後だが、トークンがJWTでexpクレームを持ち、それがmaxAgeより
// 早く切れる場合はexpに合わせる。トークンの検証はバックエンドの責務なので
// 署名は確認しない。expを読めないトークンはmaxAgeをそのまま使う。
func sessionExpiry(token string, now time.Time, maxAge time.Duration) time.Time {
	expiry := now.Add(maxAge)

	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return expiry
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return expiry
	}

	if exp.Time.After(now) && exp.Time.Before(expiry) {
		return exp.Time
	}
	return expiry
}
