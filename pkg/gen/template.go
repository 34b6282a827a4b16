package gen

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/go-park/weaver/pkg/aop"
	"github.com/go-park/weaver/pkg/reflection"
)

const aopImportPath = "github.com/go-park/weaver/pkg/aop"

type (
	// ProxyData is the input of the proxy template.
	ProxyData struct {
		Package     string
		Imports     []string
		TargetClass string
		Target      string
		ProxyName   string
		AdvicesVar  string
		Constructor string
		Tags        []string
		Interfaces  []string
		Properties  []*ProxyProperty
		Advices     []*ProxyAdvices
		Methods     []*ProxyMethod
	}
	ProxyProperty struct {
		Doc  []string
		Name string
		Type string
	}
	ProxyAdvices struct {
		Method string
		Refs   []string
	}
	// ProxyMethod holds the rendered pieces of one intercepted method.
	ProxyMethod struct {
		Name      string
		Params    string
		Results   string
		Arguments []string
		Invoke    string
		Body      []string
		Return    []string
	}
)

var proxyTpl = template.Must(template.New("proxy").Parse(`// Code generated by weaver. DO NOT EDIT.

package {{.Package}}

import (
	"` + aopImportPath + `"
{{- range .Imports}}
	{{.}}
{{- end}}
)

// {{.ProxyName}} weaves advices into {{.Target}}.
{{- if .Tags}}
//
{{- range .Tags}}
// {{.}}
{{- end}}
{{- end}}
type {{.ProxyName}} struct {
	*{{.Target}}
{{range .Properties}}
{{- range .Doc}}
	// {{.}}
{{- end}}
	{{.Name}} {{.Type}}
{{end}}
	aopGuard        aop.Guard
	aopInterceptors map[string]*aop.MethodInterceptor
}

var {{.AdvicesVar}} = map[string][]aop.AdviceRef{
{{- range .Advices}}
	{{printf "%q" .Method}}: {
{{- range .Refs}}
		{{.}},
{{- end}}
	},
{{- end}}
}

var _ aop.Proxy = (*{{.ProxyName}})(nil)
{{- range .Interfaces}}
var _ {{.}} = (*{{$.ProxyName}})(nil)
{{- end}}

// New{{.ProxyName}} binds the advices of {{.Target}} and wraps target.
func New{{.ProxyName}}(container aop.Container, target *{{.Target}}) (*{{.ProxyName}}, error) {
	interceptors, err := aop.BindInterceptors({{printf "%q" .TargetClass}}, {{.AdvicesVar}}, container)
	if err != nil {
		return nil, err
	}
	p := &{{.ProxyName}}{ {{- .Target}}: target, aopInterceptors: interceptors}
	if _, err := p.aopInterceptors[{{printf "%q" .Constructor}}].Invoke(p, &p.aopGuard, nil, func(jp *aop.JoinPoint) (any, error) {
		return p.{{.Target}}, nil
	}); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *{{.ProxyName}}) AOPTargetClassName() string { return {{printf "%q" .TargetClass}} }
{{range .Methods}}
func (p *{{$.ProxyName}}) {{.Name}}({{.Params}}) {{.Results}} {
	{{.Invoke}} p.aopInterceptors[{{printf "%q" .Name}}].Invoke(p, &p.aopGuard, []aop.Argument{
{{- range .Arguments}}
		{{.}},
{{- end}}
	}, func(jp *aop.JoinPoint) (any, error) {
{{- range .Body}}
		{{.}}
{{- end}}
	})
{{- range .Return}}
	{{.}}
{{- end}}
}
{{end}}`))

// Render executes the proxy template.
func Render(data *ProxyData) ([]byte, error) {
	var buf bytes.Buffer
	if err := proxyTpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("gen: render %s: %w", data.ProxyName, err)
	}
	return buf.Bytes(), nil
}

func adviceRefLiteral(ref aop.AdviceRef) string {
	s := fmt.Sprintf("{Kind: %s, Aspect: %q, Method: %q", ref.Kind.GoName(), ref.Aspect, ref.Method)
	if ref.Condition != "" {
		s += fmt.Sprintf(", Condition: %q", ref.Condition)
	}
	return s + "}"
}

var reservedNames = map[string]bool{
	"p": true, "jp": true, "out": true, "err": true, "vals": true, "aop": true,
}

// renderMethod builds the interceptor of one method. Without a target
// method the body is a stub returning zero values.
func renderMethod(target, name string, sig reflection.Signature, hasTarget bool) *ProxyMethod {
	m := &ProxyMethod{Name: name}

	var params, callArgs []string
	for i, p := range sig.Params {
		variable := p.Name
		if variable == "" || variable == "_" || reservedNames[variable] || isResultName(variable) {
			variable = fmt.Sprintf("a%d", i)
		}
		argName := p.Name
		if argName == "" || argName == "_" {
			argName = variable
		}
		params = append(params, variable+" "+p.Type)
		call := variable
		if sig.Variadic && i == len(sig.Params)-1 {
			call += "..."
		}
		callArgs = append(callArgs, call)
		m.Arguments = append(m.Arguments, fmt.Sprintf("{Name: %q, Value: %s}", argName, variable))
	}
	m.Params = strings.Join(params, ", ")

	results := sig.Results
	hasErr := len(results) > 0 && results[len(results)-1].Type == "error"
	values := results
	if hasErr {
		values = results[:len(results)-1]
	}
	types := make([]string, 0, len(results))
	for _, r := range results {
		types = append(types, r.Type)
	}
	switch len(types) {
	case 0:
	case 1:
		m.Results = types[0]
	default:
		m.Results = "(" + strings.Join(types, ", ") + ")"
	}

	call := fmt.Sprintf("p.%s.%s(%s)", target, name, strings.Join(callArgs, ", "))
	resultVars := make([]string, 0, len(values))
	for i := range values {
		resultVars = append(resultVars, fmt.Sprintf("r%d", i))
	}

	switch {
	case !hasTarget:
		m.Body = []string{"return nil, nil"}
	case len(values) == 0 && !hasErr:
		m.Body = []string{call, "return nil, nil"}
	case len(values) == 0:
		m.Body = []string{"return nil, " + call}
	case len(values) == 1:
		if hasErr {
			m.Body = []string{"return " + call}
		} else {
			m.Body = []string{"return " + call + ", nil"}
		}
	default:
		lhs := strings.Join(resultVars, ", ")
		if hasErr {
			m.Body = []string{
				fmt.Sprintf("%s, err := %s", lhs, call),
				fmt.Sprintf("return []any{%s}, err", lhs),
			}
		} else {
			m.Body = []string{
				fmt.Sprintf("%s := %s", lhs, call),
				fmt.Sprintf("return []any{%s}, nil", lhs),
			}
		}
	}

	errVar := "_"
	if hasErr {
		errVar = "err"
	}
	switch len(values) {
	case 0:
		if hasErr {
			m.Invoke = "_, err :="
			m.Return = []string{"return err"}
		} else {
			m.Invoke = "_, _ ="
		}
	case 1:
		m.Invoke = fmt.Sprintf("out, %s :=", errVar)
		m.Return = []string{fmt.Sprintf("r0, _ := out.(%s)", values[0].Type)}
	default:
		m.Invoke = fmt.Sprintf("out, %s :=", errVar)
		m.Return = []string{"vals, _ := out.([]any)"}
		for i, v := range values {
			m.Return = append(m.Return, fmt.Sprintf("var r%d %s", i, v.Type))
		}
		m.Return = append(m.Return, fmt.Sprintf("if len(vals) == %d {", len(values)))
		for i, v := range values {
			m.Return = append(m.Return, fmt.Sprintf("\tr%d, _ = vals[%d].(%s)", i, i, v.Type))
		}
		m.Return = append(m.Return, "}")
	}
	if len(values) > 0 {
		ret := strings.Join(resultVars, ", ")
		if hasErr {
			ret += ", err"
		}
		m.Return = append(m.Return, "return "+ret)
	}
	return m
}

func isResultName(s string) bool {
	if len(s) < 2 || s[0] != 'r' {
		return false
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
