// Package lrc implements the LRC synchronized-lyrics format: a time-code
// codec, a tolerant parser, a canonical generator and a plain-text extractor.
package lrc

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// timecodeRe matches one bracketed time-code such as [01:23.45]. Minutes may
// be 1 or 2 digits, seconds exactly 2, the fractional part 1 to 3 digits.
var timecodeRe = regexp.MustCompile(`\[(\d{1,2}):(\d{2})(?:\.(\d{1,3}))?\]`)

// EncodeTimestamp converts a time in seconds to the textual mm:ss.cc form
// (without brackets). Hundredths are truncated, never rounded, so the output
// never claims more precision than it carries. Values of 100 minutes or more
// produce a wider minute field instead of failing.
func EncodeTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := int(seconds) / 60
	secs := int(seconds) % 60
	hundredths := int(math.Floor(math.Mod(seconds, 1) * 100))
	return fmt.Sprintf("%02d:%02d.%02d", minutes, secs, hundredths)
}

// DecodeTimestamp parses a bracketed time-code and returns the time in
// seconds. The fractional digit string is right-padded with zeros to three
// digits and read as milliseconds, so ".5" means 500ms and ".05" means 50ms.
// Returns ok=false when the input does not match the time-code pattern.
func DecodeTimestamp(s string) (float64, bool) {
	m := timecodeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	frac := m[3]
	for len(frac) < 3 {
		frac += "0"
	}
	millis, err := strconv.Atoi(frac)
	if err != nil {
		return 0, false
	}
	return float64(minutes)*60 + float64(seconds) + float64(millis)/1000, true
}
