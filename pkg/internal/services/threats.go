package services

import (
	"regexp"
	"strings"
)

var threatSignatures = map[string]*regexp.Regexp{
	"script_tag":      regexp.MustCompile(`(?i)<\s*/?\s*script`),
	"js_scheme":       regexp.MustCompile(`(?i)javascript\s*:`),
	"event_handler":   regexp.MustCompile(`(?i)on(load|error|click|mouseover)\s*=`),
	"sql_keyword":     regexp.MustCompile(`(?i)\b(union|select|insert|update|delete|drop|exec)\b`),
	"sql_meta":        regexp.MustCompile(`['";]|--|/\*`),
	"path_traversal":  regexp.MustCompile(`\.\.[/\\]`),
	"null_byte":       regexp.MustCompile(`\x00|%00`),
	"template_braces": regexp.MustCompile(`\$\{|\{\{`),
}

var pollIDShape = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// SanitizePollID trims and length-caps a caller supplied poll identifier before
// it is matched or used in a query.
func SanitizePollID(raw string) string {
	id := strings.TrimSpace(raw)
	if len(id) > 128 {
		id = id[:128]
	}
	return id
}

// ScanPollID reports the first matched threat signature in the identifier. An
// identifier that does not look like a UUID or slug at all counts as a threat
// too.
func ScanPollID(id string) (string, bool) {
	for name, pattern := range threatSignatures {
		if pattern.MatchString(id) {
			return name, true
		}
	}
	if !pollIDShape.MatchString(id) {
		return "malformed_identifier", true
	}
	return "", false
}
