// Package mark renders journals as Markdown documents.
package mark

import (
	"fmt"
	"strings"
	"time"

	"github.com/breeew/otterly-api/pkg/types"
)

const DATE_LAYOUT = "January 2, 2006"

func formatDate(ts int64) string {
	if ts == 0 {
		return ""
	}
	return time.Unix(ts, 0).UTC().Format(DATE_LAYOUT)
}

// Journal renders a volume with its entries in chronological order.
// entries are expected newest first, the way the stores list them.
func Journal(j types.Journal, entries []types.JournalEntry) string {
	b := strings.Builder{}
	b.WriteString("# ")
	b.WriteString(j.Title)
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("_%s", formatDate(j.CreatedAt)))
	if j.EndedAt > 0 {
		b.WriteString(" - ")
		b.WriteString(formatDate(j.EndedAt))
	}
	b.WriteString(fmt.Sprintf(", %d entries_\n", len(entries)))

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		b.WriteString("\n## ")
		b.WriteString(e.DisplayTitle())
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("_%s_\n\n", formatDate(e.CreatedAt)))
		b.WriteString(strings.TrimSpace(e.Content))
		b.WriteString("\n")
		if reply := strings.TrimSpace(e.OtoReply); reply != "" {
			b.WriteString("\n> **Oto:** ")
			b.WriteString(strings.ReplaceAll(reply, "\n", "\n> "))
			b.WriteString("\n")
		}
	}
	return b.String()
}
