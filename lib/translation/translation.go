package translation

import (
	"strings"

	"github.com/leonelquinteros/gotext"
)

// Configure loads <dir>/<lang>/LC_MESSAGES/default.po. Message ids are the
// English strings, so a missing catalog falls back to English.
func Configure(dir, lang string) {
	gotext.Configure(dir, strings.ToLower(lang), "default")
}

func GetLanguage() string {
	lang := gotext.GetLanguage()

	if lang == "und" || lang == "" {
		return "en"
	}

	return lang
}

// Translate looks msgID up without formatting it; callers that need
// placeholders pass the result to fmt.Sprintf.
func Translate(msgID string) string {
	return gotext.Get(msgID)
}
