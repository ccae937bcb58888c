// Package logformat holds the closed registry of log-dialect templates.
// Each template knows how to pull (timestamp, nickname, value) out of one
// log line and how to turn the value into an item kind and quantity.
// Adding a template is a deployment-time change; the registry is read-only
// at runtime.
package logformat

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultID is the template assigned when an agent declares an unknown one
const DefaultID = "default"

// GemLabel is the canonical item kind for gem/currency wins
const GemLabel = "钻石"

// Match is one extracted candidate event before deduplication
type Match struct {
	LogTime  string
	Nickname string
	ItemType string
	Quantity int
}

// Template defines one log dialect: an extraction pattern plus the rule
// that interprets the captured value group.
type Template struct {
	ID      string
	Label   string
	pattern *regexp.Regexp
	resolve func(groups []string) (Match, bool)
}

// ExtractLine matches a single trimmed log line. ok is false when the line
// doesn't match this dialect; that is expected and not an error.
func (t *Template) ExtractLine(line string) (Match, bool) {
	groups := t.pattern.FindStringSubmatch(line)
	if groups == nil {
		return Match{}, false
	}
	return t.resolve(groups)
}

var registry = map[string]*Template{
	DefaultID: {
		ID:    DefaultID,
		Label: "标准日志",
		// [time] Name_123 | win, type, 50
		pattern: regexp.MustCompile(`\[(.*?)\]\s+(.*?)_\d+\s+\|.*?[,，]\s*(?:.*?)[,，]\s*(\d+)`),
		resolve: func(g []string) (Match, bool) {
			qty, err := strconv.Atoi(g[3])
			if err != nil {
				return Match{}, false
			}
			return Match{LogTime: g[1], Nickname: g[2], ItemType: GemLabel, Quantity: qty}, true
		},
	},
	"pixiu": {
		ID:    "pixiu",
		Label: "貔貅日志",
		// [time] Name_123 | 获得 <value>
		pattern: regexp.MustCompile(`\[(.*?)\]\s+(.*?)_\d+\s+\|\s*获得\s+(\S+)`),
		resolve: func(g []string) (Match, bool) {
			item, qty := resolvePixiuValue(g[3])
			return Match{LogTime: g[1], Nickname: g[2], ItemType: item, Quantity: qty}, true
		},
	},
	"cnclock": {
		ID:    "cnclock",
		Label: "中文时间日志",
		// [2026年02月06日 10时00分00秒] Name_123 | win, type, 50
		pattern: regexp.MustCompile(`\[(\d{4}年\d{2}月\d{2}日\s+\d{2}时\d{2}分\d{2}秒)\]\s+(.*?)_\d+\s+\|.*?[,，]\s*(?:.*?)[,，]\s*(\d+)`),
		resolve: func(g []string) (Match, bool) {
			qty, err := strconv.Atoi(g[3])
			if err != nil {
				return Match{}, false
			}
			return Match{
				LogTime:  canonicalizeCNClock(g[1]),
				Nickname: g[2],
				ItemType: GemLabel,
				Quantity: qty,
			}, true
		},
	},
}

var embeddedInt = regexp.MustCompile(`\d+`)

// resolvePixiuValue applies the pixiu quantity rule: a value carrying the
// gem marker yields its embedded integer as the quantity under the
// canonical label; anything else is a named item won once.
func resolvePixiuValue(value string) (item string, qty int) {
	if strings.Contains(value, GemLabel) {
		if digits := embeddedInt.FindString(value); digits != "" {
			if n, err := strconv.Atoi(digits); err == nil {
				return GemLabel, n
			}
		}
		return GemLabel, 1
	}
	return value, 1
}

var cnClockUnits = strings.NewReplacer("年", "-", "月", "-", "日", "", "时", ":", "分", ":", "秒", "")

// canonicalizeCNClock rewrites 2026年02月06日 10时00分00秒 as
// 2026-02-06 10:00:00 so the stored raw prefix buckets by day like every
// other dialect.
func canonicalizeCNClock(raw string) string {
	s := cnClockUnits.Replace(raw)
	return strings.Join(strings.Fields(s), " ")
}

// Lookup returns the template for id, or nil when unknown
func Lookup(id string) *Template {
	return registry[id]
}

// Default returns the fallback template used for unknown declared ids
func Default() *Template {
	return registry[DefaultID]
}

// IDs returns every registered template id (order unspecified)
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	return ids
}
