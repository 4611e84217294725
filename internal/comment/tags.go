package comment

import (
	"regexp"
	"strings"
)

var atTagPattern = regexp.MustCompile(`^@(\w+)\s*(.*)$`)

var pythonHeadings = map[string]bool{"Args": true, "Returns": true, "Raises": true, "Yields": true}

var rustHeadingPattern = regexp.MustCompile(`^#\s*(Arguments|Returns|Examples|Panics|Errors|Safety)\s*$`)

// extractTags dispatches to the appropriate doc-tag grammar based on the
// content's own shape: Python section headings, Rust markdown headings, or
// JSDoc/Doxygen `@name value` lines. A doc comment only ever uses one of
// these conventions, so trying each in turn is safe.
func extractTags(content string) []Tag {
	if tags := pythonTags(content); tags != nil {
		return tags
	}
	if tags := rustTags(content); tags != nil {
		return tags
	}
	return atTags(content)
}

func atTags(content string) []Tag {
	var out []Tag
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		m := atTagPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, Tag{Name: m[1], Value: strings.TrimSpace(m[2])})
	}
	return out
}

func pythonTags(content string) []Tag {
	lines := strings.Split(content, "\n")
	var out []Tag
	var current *Tag
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		heading := strings.TrimSuffix(trimmed, ":")
		if pythonHeadings[heading] && strings.HasSuffix(trimmed, ":") {
			if current != nil {
				out = append(out, *current)
			}
			current = &Tag{Name: heading}
			continue
		}
		if current != nil && trimmed != "" {
			if current.Value != "" {
				current.Value += " "
			}
			current.Value += trimmed
		}
	}
	if current != nil {
		out = append(out, *current)
	}
	return out
}

func rustTags(content string) []Tag {
	lines := strings.Split(content, "\n")
	var out []Tag
	var current *Tag
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := rustHeadingPattern.FindStringSubmatch(trimmed); m != nil {
			if current != nil {
				out = append(out, *current)
			}
			current = &Tag{Name: m[1]}
			continue
		}
		if current != nil && trimmed != "" {
			if current.Value != "" {
				current.Value += " "
			}
			current.Value += trimmed
		}
	}
	if current != nil {
		out = append(out, *current)
	}
	return out
}
