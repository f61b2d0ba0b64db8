package lrc

import (
	"fmt"
	"strings"

	"rubato/pkg/models"
)

// Metadata holds the optional header tags emitted at the top of a generated
// LRC document.
type Metadata struct {
	Title  string
	Artist string
}

// Generate serializes a sequence of synced lines into LRC text, one
// "[mm:ss.cc]text" line per entry with a trailing newline each. Lines are
// written in the order given; callers wanting chronological output must sort
// first (Parse already does). When metadata is supplied, [ti:] and [ar:]
// header lines precede the content.
//
// Generation truncates times to hundredths of a second, so sub-hundredth
// precision does not survive a Generate/Parse round trip.
func Generate(lines []models.SyncedLine, meta *Metadata) string {
	var b strings.Builder
	if meta != nil {
		if meta.Title != "" {
			fmt.Fprintf(&b, "[ti:%s]\n", meta.Title)
		}
		if meta.Artist != "" {
			fmt.Fprintf(&b, "[ar:%s]\n", meta.Artist)
		}
	}
	for _, line := range lines {
		fmt.Fprintf(&b, "[%s]%s\n", EncodeTimestamp(line.Time), line.Text)
	}
	return b.String()
}
