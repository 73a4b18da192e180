package scanner

import (
	"path/filepath"
	"regexp"
	"strings"

	"shotpipe/internal/naming"
)

var (
	tokenSplit  = regexp.MustCompile(`[^A-Za-z0-9]+`)
	seqToken    = regexp.MustCompile(`^[sS](\d{1,3})$`)
	shotPattern = regexp.MustCompile(`(?:^|[^A-Za-z])[cC](\d+)`)
)

// guessSequence looks for a known project alias or s<digits> token in the
// filename first, then in parent folder names nearest first.
func guessSequence(path, root string) string {
	if tuple, ok := naming.ParseName(path); ok {
		return naming.NormalizeSequence(tuple.Sequence)
	}
	candidates := []string{strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err == nil && rel != "." {
		parts := strings.Split(rel, string(filepath.Separator))
		for i := len(parts) - 1; i >= 0; i-- {
			candidates = append(candidates, parts[i])
		}
	}
	for _, candidate := range candidates {
		if guess := sequenceFromText(candidate); guess != "" {
			return guess
		}
	}
	return ""
}

func sequenceFromText(text string) string {
	upper := strings.ToUpper(text)
	hasLIG, hasKIAP := false, false
	for _, token := range tokenSplit.Split(upper, -1) {
		switch token {
		case "LIG":
			hasLIG = true
		case "KIAP":
			hasKIAP = true
		}
	}
	switch {
	case hasLIG && hasKIAP:
		return naming.NormalizeSequence("LIG_KIAP")
	case hasLIG:
		return naming.NormalizeSequence("LIG")
	case hasKIAP:
		return naming.NormalizeSequence("KIAP")
	}
	for _, token := range tokenSplit.Split(text, -1) {
		if seqToken.MatchString(token) {
			return naming.NormalizeSequence(token)
		}
	}
	return ""
}

func guessShot(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if m := shotPattern.FindStringSubmatch(stem); m != nil {
		return naming.NormalizeShot("c" + m[1])
	}
	return ""
}
