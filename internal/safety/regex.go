package safety

import (
	"regexp"
	"strings"
)

const (
	maxRegexPatternLen = 1000
	maxRegexGroups     = 20
)

// redosPatterns are crude signatures of catastrophic-backtracking shapes.
// This is a heuristic screen, not a proof of safety.
var redosPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(.+\*){3,}`),
	regexp.MustCompile(`(.+\+){3,}`),
	regexp.MustCompile(`\(\.\*\)\*`),
	regexp.MustCompile(`\(\.\+\)\+`),
}

// validateRegexPattern screens $regex values against runaway length, group
// nesting, and known backtracking bombs before they reach the server.
func validateRegexPattern(pattern string) error {
	if len(pattern) > maxRegexPatternLen {
		return reject(InvalidValue, "regex pattern is too long (max %d characters)", maxRegexPatternLen)
	}
	if strings.Count(pattern, "(") > maxRegexGroups {
		return reject(InvalidValue, "regex pattern has too many groups (max %d)", maxRegexGroups)
	}
	for _, re := range redosPatterns {
		if re.MatchString(pattern) {
			return reject(InvalidValue, "regex pattern contains potentially dangerous repetition")
		}
	}
	return nil
}
