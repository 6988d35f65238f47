package poller

import (
	"strings"

	"github.com/use-agent/bestip/models"
)

// Placeholders are shown by the page while the test has not produced a
// result list. Neither contains ':' or "ms", so they can never be read as
// finished output.
var Placeholders = []string{
	"正在加载IP列表，请稍候",
	"请选择端口和IP库",
}

// FinishedTokens only appear in a finished list: the separator of a
// host:port pair and the latency unit. The match is a plain substring test.
var FinishedTokens = []string{":", "ms"}

// IsPlaceholder reports whether text contains a loading placeholder.
func IsPlaceholder(text string) bool {
	for _, p := range Placeholders {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Classify maps the results region text to Loading or Complete.
// Placeholders take precedence over finished tokens.
func Classify(text string) models.PollState {
	if IsPlaceholder(text) {
		return models.PollLoading
	}
	if strings.TrimSpace(text) == "" {
		return models.PollLoading
	}
	for _, tok := range FinishedTokens {
		if strings.Contains(text, tok) {
			return models.PollComplete
		}
	}
	return models.PollLoading
}
