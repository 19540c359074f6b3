package chat

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	numberRe    = regexp.MustCompile(`\d+`)
	jsonFenceRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	chartTypeRe = regexp.MustCompile(`Excel\.ChartType\.([\s\S]*?),`)
)

// ExtractCodeBlocks returns the bodies of all ```lang fenced blocks joined by
// a newline. Bodies are kept as-is, including the leading newline.
func ExtractCodeBlocks(text, lang string) string {
	re := regexp.MustCompile("```" + regexp.QuoteMeta(lang) + "([\\s\\S]*?)```")
	matches := re.FindAllStringSubmatch(text, -1)
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m[1])
	}
	return strings.Join(parts, "\n")
}

// FirstNumber returns the first run of digits in s. Runs too large for an
// int are clamped to math.MaxInt.
func FirstNumber(s string) (int, bool) {
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt, true
	}
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseJSONMaybeInText decodes a reply that is either plain JSON, contains a
// fenced JSON block, or embeds one JSON object in prose.
func ParseJSONMaybeInText(text string, v any) error {
	trimmed := strings.TrimSpace(text)
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}
	if m := jsonFenceRe.FindStringSubmatch(trimmed); m != nil {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), v); err == nil {
			return nil
		}
	}
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(trimmed, pair[0])
		end := strings.LastIndex(trimmed, pair[1])
		if start >= 0 && end > start {
			if err := json.Unmarshal([]byte(trimmed[start:end+1]), v); err == nil {
				return nil
			}
		}
	}
	return errors.New("no JSON found in reply")
}

// CorrectEnumSpelling lower-cases the first letter of Excel.ChartType members
// (Excel.ChartType.Line, -> Excel.ChartType.line,), which models tend to
// capitalize.
func CorrectEnumSpelling(code string) string {
	return chartTypeRe.ReplaceAllStringFunc(code, func(m string) string {
		const prefix = "Excel.ChartType."
		member := m[len(prefix):]
		r, size := utf8.DecodeRuneInString(member)
		if r == utf8.RuneError {
			return m
		}
		return prefix + string(unicode.ToLower(r)) + member[size:]
	})
}
