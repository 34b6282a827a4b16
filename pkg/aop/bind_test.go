package aop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type auditAspect struct {
	calls []string
}

func (a *auditAspect) Log(jp *JoinPoint) {
	a.calls = append(a.calls, "log:"+jp.MethodName())
}

func (a *auditAspect) Check(jp *JoinPoint) error {
	if jp.IsMethodArgument("deny") {
		return errors.New("denied")
	}
	return nil
}

func (a *auditAspect) Wrap(jp *JoinPoint) (any, error) {
	result, err := jp.Proceed()
	if err != nil {
		return nil, err
	}
	return result.(int) * 2, nil
}

func (a *auditAspect) Wrong(s string) {}

func containerOf(aspects map[string]any) Container {
	return ContainerFunc(func(name string) (any, error) {
		if a, ok := aspects[name]; ok {
			return a, nil
		}
		return nil, errors.New("unknown aspect " + name)
	})
}

func TestBind(t *testing.T) {
	audit := &auditAspect{}
	c := containerOf(map[string]any{"AuditAspect": audit})

	interceptors, err := BindInterceptors("Service", map[string][]AdviceRef{
		"Count": {
			{Kind: Before, Aspect: "AuditAspect", Method: "Log"},
			{Kind: Before, Aspect: "AuditAspect", Method: "Check"},
			{Kind: Around, Aspect: "AuditAspect", Method: "Wrap"},
		},
	}, c)
	require.NoError(t, err)
	require.Contains(t, interceptors, "Count")

	result, err := interceptors["Count"].Invoke(nil, &Guard{}, nil, func(jp *JoinPoint) (any, error) { return 21, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, []string{"log:Count"}, audit.calls)

	_, err = interceptors["Count"].Invoke(nil, &Guard{}, []Argument{{Name: "deny", Value: true}},
		func(jp *JoinPoint) (any, error) { return 1, nil })
	assert.EqualError(t, err, "denied")
}

func TestBind_errors(t *testing.T) {
	c := containerOf(map[string]any{"AuditAspect": &auditAspect{}})
	tests := []struct {
		name string
		ref  AdviceRef
	}{
		{"unknown aspect", AdviceRef{Kind: Before, Aspect: "Missing", Method: "Log"}},
		{"unknown method", AdviceRef{Kind: Before, Aspect: "AuditAspect", Method: "Nope"}},
		{"bad signature", AdviceRef{Kind: Before, Aspect: "AuditAspect", Method: "Wrong"}},
		{"bad condition", AdviceRef{Kind: Before, Aspect: "AuditAspect", Method: "Log", Condition: "args.id =="}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bind(tt.ref, c)
			assert.Error(t, err)
		})
	}
}

func TestBind_condition(t *testing.T) {
	audit := &auditAspect{}
	c := containerOf(map[string]any{"AuditAspect": audit})
	interceptors, err := BindInterceptors("Service", map[string][]AdviceRef{
		"Save": {
			{Kind: Before, Aspect: "AuditAspect", Method: "Log", Condition: "args.id > 10"},
			{Kind: Around, Aspect: "AuditAspect", Method: "Wrap", Condition: "args.id > 10"},
		},
	}, c)
	require.NoError(t, err)
	body := func(jp *JoinPoint) (any, error) { return 5, nil }

	result, err := interceptors["Save"].Invoke(nil, &Guard{}, []Argument{{Name: "id", Value: 3}}, body)
	require.NoError(t, err)
	assert.Equal(t, 5, result)
	assert.Empty(t, audit.calls)

	result, err = interceptors["Save"].Invoke(nil, &Guard{}, []Argument{{Name: "id", Value: 11}}, body)
	require.NoError(t, err)
	assert.Equal(t, 10, result)
	assert.Equal(t, []string{"log:Save"}, audit.calls)
}

type providerAspect struct{}

func (providerAspect) Advice(name string) (Invocable, bool) {
	if name != "Deny" {
		return nil, false
	}
	return InvocableFunc(func(jp *JoinPoint) (any, error) { return nil, errors.New("no") }), true
}

func TestBind_adviceProvider(t *testing.T) {
	c := containerOf(map[string]any{"Provider": providerAspect{}})
	inv, err := Bind(AdviceRef{Kind: Before, Aspect: "Provider", Method: "Deny"}, c)
	require.NoError(t, err)
	_, err = inv.Invoke(NewJoinPoint(nil, "Service", "Save", nil))
	assert.EqualError(t, err, "no")
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, ok := ParseKind(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("pointcut")
	assert.False(t, ok)
}
