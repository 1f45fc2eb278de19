package strategy

import (
	"fmt"
	"regexp"
	"strconv"
)

// Entry reasons follow a fixed grammar so downstream consumers can
// cross-check the annotated levels against the structured fields.
const entryReasonFormat = "%s entry triggered. Entry: %.2f, SL: %.2f, Target: %.2f"

var entryReasonRe = regexp.MustCompile(
	`^(LONG|SHORT) entry triggered\. Entry: ([0-9]+\.[0-9]{2}), SL: ([0-9]+\.[0-9]{2}), Target: ([0-9]+\.[0-9]{2})$`)

// FormatEntryReason renders the canonical entry annotation.
func FormatEntryReason(bias Bias, entry, stop, target float64) string {
	return fmt.Sprintf(entryReasonFormat, bias, entry, stop, target)
}

// ParsedReason holds the levels recovered from an entry annotation.
type ParsedReason struct {
	Bias   Bias
	Entry  float64
	Stop   float64
	Target float64
}

// ParseEntryReason recovers levels from an entry annotation. The second
// return value is false when the text does not match the grammar.
func ParseEntryReason(reason string) (ParsedReason, bool) {
	m := entryReasonRe.FindStringSubmatch(reason)
	if m == nil {
		return ParsedReason{}, false
	}
	entry, _ := strconv.ParseFloat(m[2], 64)
	stop, _ := strconv.ParseFloat(m[3], 64)
	target, _ := strconv.ParseFloat(m[4], 64)
	return ParsedReason{
		Bias:   Bias(m[1]),
		Entry:  entry,
		Stop:   stop,
		Target: target,
	}, true
}
