package services

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"pattern-editor/pkg/textutil"
)

// Header is the metadata block at the top of an exported pattern file.
type Header struct {
	Title         string
	Slug          string
	Categories    []string
	BlockTypes    []string
	TemplateTypes []string
	// Inserter is nil when the file does not carry an Inserter line.
	Inserter *bool
	// Fields keeps every "Key: value" line, including unknown keys.
	Fields map[string]string
}

// Category returns the first declared category.
func (h Header) Category() string {
	if len(h.Categories) == 0 {
		return ""
	}
	return h.Categories[0]
}

// BuildHeaderComment renders the header in the format theme pattern
// discovery scans for.
func BuildHeaderComment(h Header) string {
	var b strings.Builder
	b.WriteString("<?php\n/**\n")
	fmt.Fprintf(&b, " * Title: %s\n", h.Title)
	fmt.Fprintf(&b, " * Slug: %s\n", h.Slug)
	fmt.Fprintf(&b, " * Categories: %s\n", strings.Join(h.Categories, ","))
	if len(h.BlockTypes) > 0 {
		fmt.Fprintf(&b, " * Block Types: %s\n", strings.Join(h.BlockTypes, ","))
	}
	if len(h.TemplateTypes) > 0 {
		fmt.Fprintf(&b, " * Template Types: %s\n", strings.Join(h.TemplateTypes, ","))
	}
	if h.Inserter != nil {
		fmt.Fprintf(&b, " * Inserter: %t\n", *h.Inserter)
	}
	b.WriteString(" */\n?>")
	return b.String()
}

// ParseHeaderComment reads the leading header comment of a pattern file and
// returns it together with the markup that follows the closing "?>".
func ParseHeaderComment(src []byte) (Header, string, error) {
	str := normalizeLineEndings(string(src))
	h := Header{Fields: map[string]string{}}

	if !strings.HasPrefix(strings.TrimSpace(str), "<?php") {
		return h, "", fmt.Errorf("missing php open tag")
	}
	comment := textutil.SubstringBetween("/**", "*/", str, false)
	if !strings.HasSuffix(comment, "*/") {
		return h, "", fmt.Errorf("missing header comment")
	}
	end := strings.Index(str, comment) + len(comment)

	scanner := bufio.NewScanner(strings.NewReader(strings.TrimSuffix(strings.TrimPrefix(comment, "/**"), "*/")))
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(scanner.Text()), "*"))
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		h.Fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	h.Title = h.Fields["Title"]
	h.Slug = h.Fields["Slug"]
	h.Categories = splitHeaderList(h.Fields["Categories"])
	h.BlockTypes = splitHeaderList(h.Fields["Block Types"])
	h.TemplateTypes = splitHeaderList(h.Fields["Template Types"])
	if v, ok := h.Fields["Inserter"]; ok {
		inserter := !(strings.EqualFold(v, "false") || strings.EqualFold(v, "no"))
		h.Inserter = &inserter
	}
	if h.Slug == "" {
		return h, "", fmt.Errorf("header has no Slug")
	}

	body := str[end:]
	if i := strings.Index(body, "?>"); i >= 0 {
		body = body[i+2:]
	}
	body = strings.TrimPrefix(body, "\n")
	return h, body, nil
}

func splitHeaderList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizeLineEndings(input string) string {
	return strings.ReplaceAll(input, "\r\n", "\n")
}

// PlaceholderValues are the concrete URLs substituted for the PHP echo
// placeholders when a pattern file is rendered.
type PlaceholderValues struct {
	HomeURL       string
	ContentURL    string
	StylesheetURI string
}

var contentURLCall = regexp.MustCompile(`<\?php echo content_url\(\s*"([^"]*)"\s*\)\s*\?>`)

// RenderPatternBody evaluates the placeholders an export writes into pattern markup.
func RenderPatternBody(body string, v PlaceholderValues) string {
	body = contentURLCall.ReplaceAllStringFunc(body, func(m string) string {
		arg := contentURLCall.FindStringSubmatch(m)[1]
		return strings.TrimRight(v.ContentURL, "/") + arg
	})
	body = strings.ReplaceAll(body, stylesheetURIPlaceholder, v.StylesheetURI)
	return strings.ReplaceAll(body, homeURLPlaceholder, v.HomeURL)
}
