// Package llm holds what the sentiment labelers share.
package llm

import (
	"fmt"
	"strings"
)

const DefaultSystemPrompt = "You will work as a Sentiment Analysis for Financial news. " +
	"I will share news headline and article. " +
	"You will only answer as: BEARISH,BULLISH,NEUTRAL. No further explanation."

// SystemPrompt returns custom when set, the default otherwise.
func SystemPrompt(custom string) string {
	if strings.TrimSpace(custom) != "" {
		return custom
	}
	return DefaultSystemPrompt
}

// UserPrompt renders one article for the model.
func UserPrompt(title, body string) string {
	return fmt.Sprintf("%s\n%s", strings.TrimSpace(title), strings.TrimSpace(body))
}
