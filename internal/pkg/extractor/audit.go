package extractor

import (
	"regexp"
	"strings"
)

const MaxAuditIssues = 5

var (
	separatorLine = regexp.MustCompile(`^[-=]+$`)
	bulletPrefix  = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)
)

// AuditIssues parses the plain text audit format into at most five issues.
func AuditIssues(response string) []string {
	issues := make([]string, 0, MaxAuditIssues)

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || separatorLine.MatchString(line) {
			continue
		}

		lower := strings.ToLower(line)
		if strings.Contains(lower, "high impact:") || lower == "high impact" {
			continue
		}

		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}

		issues = append(issues, line)
		if len(issues) == MaxAuditIssues {
			break
		}
	}

	return issues
}
