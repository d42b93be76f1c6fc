package main

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/slack-go/slack"
)

// NotifySummary posts the window's summary line to the configured Slack
// channel. Posting is best-effort; failures are logged and never fail the
// run.
func NotifySummary(cfg Config, entry SummaryEntry) {
	if !cfg.SlackConfigured() {
		return
	}
	api := slack.New(cfg.SlackBotToken)
	_, _, err := api.PostMessage(cfg.SlackChannelID, slack.MsgOptionText(FormatSummaryMessage(entry), false))
	if err != nil {
		log.Printf("summary notification error: %v", err)
		return
	}
	log.Printf("summary notification posted channel=%s window=%s-%s", cfg.SlackChannelID, entry.StartDate, entry.EndDate)
}

func FormatSummaryMessage(entry SummaryEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review report %s -> %s: %d positive, %d negative (%s)\n",
		entry.StartDate, entry.EndDate, entry.PositiveCount, entry.NegativeCount, entry.File)

	categories := make([]string, 0, len(entry.Categories))
	for name := range entry.Categories {
		categories = append(categories, name)
	}
	sort.Slice(categories, func(i, j int) bool {
		if entry.Categories[categories[i]] != entry.Categories[categories[j]] {
			return entry.Categories[categories[i]] > entry.Categories[categories[j]]
		}
		return categories[i] < categories[j]
	})
	if len(categories) > 5 {
		categories = categories[:5]
	}
	for _, name := range categories {
		fmt.Fprintf(&b, "• %s: %d\n", name, entry.Categories[name])
	}
	return strings.TrimRight(b.String(), "\n")
}
