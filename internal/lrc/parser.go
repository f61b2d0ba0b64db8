package lrc

import (
	"regexp"
	"sort"
	"strings"

	"rubato/pkg/models"
)

// metadataRe matches LRC metadata tag lines such as [ti:...], [ar:...],
// [al:...], [by:...] and [offset:...]. These carry no timed content.
var metadataRe = regexp.MustCompile(`(?i)^\[(ti|ar|al|by|offset):`)

// lineBreakRe splits raw LRC text on CRLF or LF.
var lineBreakRe = regexp.MustCompile(`\r?\n`)

// Parse converts raw LRC text into an ordered sequence of synced lines.
//
// The format in the wild is messy, so parsing is tolerant by policy: blank
// lines, metadata tags and lines without a decodable time-code are silently
// dropped rather than reported. A line may carry several leading time-codes
// ([00:01.00][00:05.00]word, the repeated-line convention); only the first one
// establishes the line's time, and the text is everything after the last ']'.
// The result is stable-sorted ascending by time. Lines whose text is empty are
// kept: they mark a pause beat during playback.
//
// A completely unrecognizable input yields an empty (non-nil) slice; deciding
// whether that is an error belongs to the caller.
func Parse(text string) []models.SyncedLine {
	synced := []models.SyncedLine{}

	for _, raw := range lineBreakRe.Split(text, -1) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if metadataRe.MatchString(line) {
			continue
		}

		tags := timecodeRe.FindAllString(line, -1)
		if len(tags) == 0 {
			continue
		}
		time, ok := DecodeTimestamp(tags[0])
		if !ok {
			continue
		}

		lastClose := strings.LastIndex(line, "]")
		lineText := strings.TrimSpace(line[lastClose+1:])

		synced = append(synced, models.SyncedLine{Time: time, Text: lineText})
	}

	sort.SliceStable(synced, func(i, j int) bool {
		return synced[i].Time < synced[j].Time
	})
	return synced
}
