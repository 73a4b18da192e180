package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"shotpipe/internal/media"
)

const (
	DefaultSequence = "s01"
	DefaultShot     = "c001"
)

var (
	sequenceNumbered = regexp.MustCompile(`^[sS](\d+)$`)
	sequenceWord     = regexp.MustCompile(`(?i)^(?:seq|sequence)[_\s-]*(\d+)$`)
	digitsOnly       = regexp.MustCompile(`^\d+$`)
	shotPrefixed     = regexp.MustCompile(`^[cC](\d+)`)
	lastDigits       = regexp.MustCompile(`(\d+)\D*$`)
	taskUnsafe       = regexp.MustCompile(`[^a-zA-Z0-9]+`)
)

// sequenceAliases maps project code names to fixed sequence codes.
var sequenceAliases = map[string]string{
	"LIG":      "s01",
	"KIAP":     "s02",
	"LIG_KIAP": "s03",
}

// NormalizeSequence renders a sequence hint as s<NN>. Unrecognized values
// fall back to DefaultSequence.
func NormalizeSequence(hint string) string {
	value := strings.TrimSpace(norm.NFC.String(hint))
	if value == "" {
		return DefaultSequence
	}
	if code, ok := sequenceAliases[strings.ToUpper(value)]; ok {
		return code
	}
	for _, re := range []*regexp.Regexp{sequenceNumbered, sequenceWord} {
		if m := re.FindStringSubmatch(value); m != nil {
			return formatNumber("s", m[1], 2)
		}
	}
	if digitsOnly.MatchString(value) {
		return formatNumber("s", value, 2)
	}
	return DefaultSequence
}

// NormalizeShot renders a shot hint as c<NNN>, taking the number after a
// leading c or else the trailing digits. Missing or zero numbers become 1.
func NormalizeShot(hint string) string {
	value := strings.TrimSpace(norm.NFC.String(hint))
	if value == "" {
		return DefaultShot
	}
	if strings.HasPrefix(strings.ToLower(value), "c") {
		if m := shotPrefixed.FindStringSubmatch(value); m != nil {
			return formatNumber("c", m[1], 3)
		}
		return DefaultShot
	}
	if m := lastDigits.FindStringSubmatch(value); m != nil {
		return formatNumber("c", m[1], 3)
	}
	return DefaultShot
}

// NormalizeTask returns the task for a file. Empty, "comp", and "unknown"
// hints are treated as absent and replaced by the kind's default task.
func NormalizeTask(hint string, kind media.Kind) string {
	value := taskUnsafe.ReplaceAllString(strings.TrimSpace(norm.NFC.String(hint)), "")
	switch strings.ToLower(value) {
	case "", "comp", "unknown":
		return media.TaskFor(kind)
	}
	return value
}

func formatNumber(prefix, digits string, width int) string {
	n, err := strconv.Atoi(strings.TrimLeft(digits, "0"))
	if err != nil || n <= 0 {
		n = 1
	}
	return fmt.Sprintf("%s%0*d", prefix, width, n)
}
