package gen

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-park/weaver/pkg/config"
	"github.com/go-park/weaver/pkg/pointcut"
	"github.com/go-park/weaver/pkg/reflection"
	"github.com/go-park/weaver/pkg/tools/collections"
)

func filterEmptyStr(ss ...string) []string {
	arr := make([]string, 0, len(ss))
	for _, s := range ss {
		if len(s) > 0 {
			arr = append(arr, s)
		}
	}
	return arr
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}

// importLine renders an import spec; values already carrying quotes are kept.
func importLine(spec string) string {
	if strings.Contains(spec, `"`) {
		return spec
	}
	return fmt.Sprintf("%q", spec)
}

// commentLines turns free text into comment lines without the leading "//".
func commentLines(doc string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(doc), "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "//"))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// tagLines re-renders class tags as annotation comments.
func tagLines(tags reflection.Tags) []string {
	var lines []string
	for _, name := range reflection.SortedTagNames(tags) {
		values := tags[name]
		if len(values) == 0 {
			lines = append(lines, "@"+name)
			continue
		}
		for _, v := range values {
			lines = append(lines, fmt.Sprintf("@%s(%q)", name, v))
		}
	}
	return lines
}

func compileBlacklist(patterns []string) ([]*regexp.Regexp, error) {
	list := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("^(?:" + p + ")$")
		if err != nil {
			return nil, fmt.Errorf("gen: invalid blacklist pattern %q: %w", p, err)
		}
		list = append(list, re)
	}
	return list, nil
}

type (
	classFacts struct {
		Name        string
		Package     string
		PackagePath string
		Tags        reflection.Tags
		Final       bool
		Abstract    bool
		Interface   bool
		Interfaces  []string
		Constructor string
		Methods     []methodFacts
		Properties  []propertyFacts
	}
	methodFacts struct {
		Name           string
		DeclaringClass string
		Tags           reflection.Tags
		Final          bool
		Visibility     reflection.Visibility
		Signature      reflection.Signature
	}
	propertyFacts struct {
		Name       string
		Type       string
		Doc        string
		Tags       reflection.Tags
		Visibility reflection.Visibility
	}
)

// fingerprint hashes every reflection fact and option a weave depends on.
func fingerprint(r reflection.Service, classNames []string, o *options) (string, error) {
	facts := make([]classFacts, 0, len(classNames))
	for _, class := range classNames {
		pkg, path := r.ClassPackage(class)
		constructor, _ := r.Constructor(class)
		f := classFacts{
			Name:        class,
			Package:     pkg,
			PackagePath: path,
			Tags:        r.ClassTagsValues(class),
			Final:       r.IsClassFinal(class),
			Abstract:    r.IsClassAbstract(class),
			Interface:   r.IsInterface(class),
			Interfaces:  r.InterfaceNames(class),
			Constructor: constructor,
		}
		for _, m := range r.ClassMethodNames(class) {
			declaring, _ := r.MethodDeclaringClass(class, m)
			sig, _ := r.MethodSignature(class, m)
			f.Methods = append(f.Methods, methodFacts{
				Name:           m,
				DeclaringClass: declaring,
				Tags:           r.MethodTagsValues(class, m),
				Final:          r.IsMethodFinal(class, m),
				Visibility:     r.MethodVisibility(class, m),
				Signature:      sig,
			})
		}
		for _, p := range r.ClassPropertyNames(class) {
			f.Properties = append(f.Properties, propertyFacts{
				Name:       p,
				Type:       r.PropertyType(class, p),
				Doc:        r.PropertyDoc(class, p),
				Tags:       r.PropertyTagsValues(class, p),
				Visibility: r.PropertyVisibility(class, p),
			})
		}
		facts = append(facts, f)
	}
	data, err := json.Marshal(struct {
		Classes   []classFacts
		Suffix    string
		Context   string
		Blacklist []string
		Settings  any
		Filters   []string
	}{facts, o.suffix, o.context, o.blacklist, jsonSafe(o.settings), filterNames(o.filters)})
	if err != nil {
		return "", fmt.Errorf("gen: fingerprint: %w", err)
	}
	sum := sha256.Sum256(data)
	return "aop_" + hex.EncodeToString(sum[:]), nil
}

// filterNames describes the custom filter set. The names and types of a
// pointcut.Filters map are listed; any other resolver is known by its type
// only, so its filters must not change between runs sharing a cache.
func filterNames(f pointcut.FilterResolver) []string {
	switch t := f.(type) {
	case nil:
		return nil
	case pointcut.Filters:
		names := make([]string, 0, len(t))
		for _, name := range collections.SortedKeys(t) {
			names = append(names, fmt.Sprintf("%s=%T", name, t[name]))
		}
		return names
	}
	return []string{fmt.Sprintf("%T", f)}
}

// jsonSafe converts nested settings maps into values encoding/json accepts.
func jsonSafe(v any) any {
	switch t := v.(type) {
	case config.Settings:
		return jsonSafe(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = jsonSafe(v)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[fmt.Sprint(k)] = jsonSafe(v)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = jsonSafe(v)
		}
		return out
	}
	return v
}
