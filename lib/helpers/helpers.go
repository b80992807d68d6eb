package helpers

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func EscapeMarkdownV2(text string) string {
	charactersToEscape := []string{"\\", ".", "-", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "=", "|", "{", "}", "!"}

	for _, char := range charactersToEscape {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

// FormatPriceUS picks the precision from the magnitude: DEX pairs are often
// priced far below one cent.
func FormatPriceUS(price float64, escapeMarkdown bool) string {
	decimals := 6

	if price >= 1000 {
		decimals = 0
	} else if price > 1.2 {
		decimals = 2
	} else if price < 0.00001 {
		decimals = 10
	}

	p := message.NewPrinter(language.English)
	formatted := p.Sprintf("%.*f", decimals, price)

	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

// FormatPercentage renders a signed percentage, e.g. "+17.30%".
func FormatPercentage(pct float64, escapeMarkdown bool) string {
	formatted := fmt.Sprintf("%+.2f%%", pct)
	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

// FormatCount renders a count with thousands separators.
func FormatCount(n int64) string {
	return EscapeMarkdownV2(humanize.Comma(n))
}

// FormatSince renders a relative time such as "3 hours ago".
func FormatSince(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "\\-"
	}
	return EscapeMarkdownV2(humanize.RelTime(t, now, "ago", "from now"))
}

// FormatDuration renders a duration without trailing zero units, e.g.
// "2h" or "1h30m", escaped for MarkdownV2.
func FormatDuration(d time.Duration) string {
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}
	if strings.HasSuffix(s, "h0m") {
		s = strings.TrimSuffix(s, "0m")
	}
	return EscapeMarkdownV2(s)
}
