package lrc

import "strings"

// ExtractPlainText strips timing from raw LRC text and returns the lyric
// lines only, newline-joined, in their original order.
//
// The extractor is deliberately more permissive than Parse: it never decodes
// time-codes, so a line with a malformed tag still contributes its text as
// long as it contains at least one ']'. Bracketless lines are presumed not to
// be lyric content in this format and are dropped, as are metadata tags and
// lines whose remaining text is empty.
func ExtractPlainText(text string) string {
	plain := []string{}

	for _, raw := range lineBreakRe.Split(text, -1) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if metadataRe.MatchString(line) {
			continue
		}
		lastClose := strings.LastIndex(line, "]")
		if lastClose == -1 {
			continue
		}
		lineText := strings.TrimSpace(line[lastClose+1:])
		if lineText == "" {
			continue
		}
		plain = append(plain, lineText)
	}

	return strings.Join(plain, "\n")
}
