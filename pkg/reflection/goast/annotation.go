package goast

import (
	"go/ast"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-park/weaver/pkg/reflection"
)

const (
	// AnnotationFinal marks a struct or method that must not be proxied.
	AnnotationFinal = "final"
	// AnnotationAbstract marks a struct that only serves as a base.
	AnnotationAbstract = "abstract"
)

var regexAnnotation = regexp.MustCompile(`^@([A-Za-z][A-Za-z0-9_]*)\s*(?:\((.*)\))?\s*$`)

func trimQuotes(s string) string {
	if v, err := strconv.Unquote(s); err == nil {
		return v
	}
	return strings.TrimFunc(s, func(c rune) bool {
		return c == '"'
	})
}

// parseAnnotations splits a doc comment into annotation tags and the
// remaining documentation. "@Before("expr")" becomes tag "before" with
// value "expr"; repeated annotations accumulate values.
func parseAnnotations(groups ...*ast.CommentGroup) (reflection.Tags, string) {
	tags := reflection.Tags{}
	var doc []string
	for _, c := range groups {
		if c == nil {
			continue
		}
		for _, line := range strings.Split(c.Text(), "\n") {
			line = strings.TrimSpace(line)
			ss := regexAnnotation.FindStringSubmatch(line)
			if ss == nil {
				doc = append(doc, line)
				continue
			}
			name := strings.ToLower(ss[1])
			values := tags[name]
			if v := strings.TrimSpace(ss[2]); v != "" {
				values = append(values, trimQuotes(v))
			}
			tags[name] = values
		}
	}
	return tags, strings.TrimSpace(strings.Join(doc, "\n"))
}

func hasTag(tags reflection.Tags, name string) bool {
	_, ok := tags[name]
	return ok
}
