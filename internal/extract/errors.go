package extract

import (
	"errors"
	"strings"
)

// Sentinel errors for the regeneration stage.
var (
	// ErrNoCandidates indicates the model returned no candidates at all.
	ErrNoCandidates = errors.New("no candidates")

	// ErrNoImageData indicates no candidate carried an inline image part.
	ErrNoImageData = errors.New("no image data")
)

// providerErrorPatterns maps provider error substrings to user-facing
// messages. Matching is case-insensitive and first-match-wins in table
// order; the table is ordered so no earlier entry shadows a later one.
var providerErrorPatterns = []struct {
	Substr  string
	Message string
}{
	{"safety", "安全性ポリシーにより画像を生成できませんでした"},
	{"recitation", "著作権保護の観点から画像を生成できませんでした"},
	{"copyright", "著作権保護の観点から画像を生成できませんでした"},
	{"blocked", "コンテンツポリシーにより画像を生成できませんでした"},
	{"quota", "API利用枠の上限に達しました。しばらくしてから再度お試しください"},
	{"rate limit", "リクエストが集中しています。しばらくしてから再度お試しください"},
}

// UserFacingMessage converts a provider error into a message the slide UI
// can show next to the placeholder. Unrecognized errors fall back to the
// raw message text.
func UserFacingMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	for _, p := range providerErrorPatterns {
		if strings.Contains(lower, p.Substr) {
			return p.Message
		}
	}
	return msg
}
