package artifact

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	jsonFenceRe     = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	markdownFenceRe = regexp.MustCompile("(?s)```(?:markdown|md)\\s*(.*?)\\s*```")
	htmlFenceRe     = regexp.MustCompile("(?s)```html\\s*(.*?)\\s*```")
	apiHeadingRe    = regexp.MustCompile(`(?mi)^# .*\bAPI\b`)

	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_]\w*)(\s*:)`)
	trailingObjRe   = regexp.MustCompile(`,\s*}`)
	trailingArrayRe = regexp.MustCompile(`,\s*]`)
)

// ErrNoContent is returned when raw output holds nothing recognizable.
var ErrNoContent = errors.New("artifact: no recognizable content in output")

// ExtractJSON locates a JSON object in free-form generator output and
// unmarshals it into v. A ```json fence wins; otherwise the span from the
// first '{' to the last '}' is used. Common syntax slips (bare keys,
// trailing commas, single quotes) are repaired before giving up.
func ExtractJSON(raw string, v any) error {
	candidate := ""
	if m := jsonFenceRe.FindStringSubmatch(raw); m != nil {
		candidate = m[1]
	} else {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return ErrNoContent
		}
		candidate = raw[start : end+1]
	}

	err := json.Unmarshal([]byte(candidate), v)
	if err == nil {
		return nil
	}
	repaired := RepairJSON(candidate)
	if json.Unmarshal([]byte(repaired), v) == nil {
		return nil
	}
	if json.Unmarshal([]byte(strings.ReplaceAll(repaired, "'", `"`)), v) == nil {
		return nil
	}
	return err
}

// RepairJSON quotes bare object keys and drops trailing commas.
func RepairJSON(s string) string {
	s = bareKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	s = trailingObjRe.ReplaceAllString(s, "}")
	return trailingArrayRe.ReplaceAllString(s, "]")
}

// ExtractMarkdown returns the body of a ```markdown fence, or everything
// from the first top-level heading mentioning API, or the trimmed output
// when it already starts with a heading.
func ExtractMarkdown(raw string) (string, error) {
	if m := markdownFenceRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), nil
	}
	if loc := apiHeadingRe.FindStringIndex(raw); loc != nil {
		return strings.TrimSpace(raw[loc[0]:]), nil
	}
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "#") {
		return trimmed, nil
	}
	return "", ErrNoContent
}

// ExtractHTML returns the body of a ```html fence, or the output itself
// when it starts with a doctype or an html element.
func ExtractHTML(raw string) (string, error) {
	if m := htmlFenceRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), nil
	}
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html") {
		return trimmed, nil
	}
	if i := strings.Index(lower, "<!doctype html"); i >= 0 {
		return trimmed[i:], nil
	}
	return "", ErrNoContent
}
