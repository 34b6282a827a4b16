package reflection

import "sort"

var _ Service = (*Registry)(nil)

type (
	// Class is the metadata of one class.
	Class struct {
		Name        string
		Package     string
		PackagePath string
		Imports     []string
		Tags        Tags
		Final       bool
		Abstract    bool
		Interface   bool
		Interfaces  []string
		// Constructor is the name of the factory function, if any.
		Constructor string
		Methods     []*Method
		Properties  []*Property
	}
	// Method is the metadata of one method.
	Method struct {
		Name           string
		DeclaringClass string
		Tags           Tags
		Final          bool
		Visibility     Visibility
		Signature      Signature
	}
	// Property is the metadata of one property.
	Property struct {
		Name       string
		Type       string
		Doc        string
		Tags       Tags
		Visibility Visibility
	}
)

// Registry is an in-memory Service.
type Registry struct {
	classes map[string]*Class
	order   []string
}

func NewRegistry(classes ...*Class) *Registry {
	r := &Registry{classes: map[string]*Class{}}
	for _, c := range classes {
		r.Add(c)
	}
	return r
}

// Add registers c, replacing a class of the same name.
func (r *Registry) Add(c *Class) {
	if _, ok := r.classes[c.Name]; !ok {
		r.order = append(r.order, c.Name)
	}
	r.classes[c.Name] = c
}

// Class returns the metadata of name.
func (r *Registry) Class(name string) (*Class, bool) {
	c, ok := r.classes[name]
	return c, ok
}

// ClassNames returns all class names in registration order.
func (r *Registry) ClassNames() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) method(class, method string) *Method {
	c, ok := r.classes[class]
	if !ok {
		return nil
	}
	for _, m := range c.Methods {
		if m.Name == method {
			return m
		}
	}
	return nil
}

func (r *Registry) property(class, property string) *Property {
	c, ok := r.classes[class]
	if !ok {
		return nil
	}
	for _, p := range c.Properties {
		if p.Name == property {
			return p
		}
	}
	return nil
}

func (r *Registry) ClassExists(class string) bool {
	_, ok := r.classes[class]
	return ok
}

func (r *Registry) IsClassTaggedWith(class, tag string) bool {
	c, ok := r.classes[class]
	if !ok {
		return false
	}
	_, ok = c.Tags[tag]
	return ok
}

func (r *Registry) ClassTagsValues(class string) Tags {
	if c, ok := r.classes[class]; ok {
		return c.Tags
	}
	return nil
}

func (r *Registry) IsClassFinal(class string) bool {
	c, ok := r.classes[class]
	return ok && c.Final
}

func (r *Registry) IsClassAbstract(class string) bool {
	c, ok := r.classes[class]
	return ok && c.Abstract
}

func (r *Registry) IsInterface(class string) bool {
	c, ok := r.classes[class]
	return ok && c.Interface
}

func (r *Registry) ImplementsInterface(class, iface string) bool {
	for _, name := range r.InterfaceNames(class) {
		if name == iface {
			return true
		}
	}
	return false
}

func (r *Registry) InterfaceNames(class string) []string {
	if c, ok := r.classes[class]; ok {
		return c.Interfaces
	}
	return nil
}

func (r *Registry) ClassPackage(class string) (string, string) {
	if c, ok := r.classes[class]; ok {
		return c.Package, c.PackagePath
	}
	return "", ""
}

func (r *Registry) ClassImports(class string) []string {
	if c, ok := r.classes[class]; ok {
		return c.Imports
	}
	return nil
}

func (r *Registry) ClassMethodNames(class string) []string {
	c, ok := r.classes[class]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(c.Methods))
	for _, m := range c.Methods {
		names = append(names, m.Name)
	}
	return names
}

func (r *Registry) HasMethod(class, method string) bool {
	return r.method(class, method) != nil
}

func (r *Registry) MethodTagsValues(class, method string) Tags {
	if m := r.method(class, method); m != nil {
		return m.Tags
	}
	return nil
}

func (r *Registry) IsMethodFinal(class, method string) bool {
	m := r.method(class, method)
	return m != nil && m.Final
}

func (r *Registry) MethodVisibility(class, method string) Visibility {
	if m := r.method(class, method); m != nil {
		return m.Visibility
	}
	return Public
}

func (r *Registry) MethodDeclaringClass(class, method string) (string, bool) {
	m := r.method(class, method)
	if m == nil {
		return "", false
	}
	if m.DeclaringClass == "" {
		return class, true
	}
	return m.DeclaringClass, true
}

func (r *Registry) MethodSignature(class, method string) (Signature, bool) {
	if m := r.method(class, method); m != nil {
		return m.Signature, true
	}
	return Signature{}, false
}

func (r *Registry) Constructor(class string) (string, bool) {
	c, ok := r.classes[class]
	if !ok || c.Constructor == "" {
		return "", false
	}
	return c.Constructor, true
}

func (r *Registry) ClassPropertyNames(class string) []string {
	c, ok := r.classes[class]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(c.Properties))
	for _, p := range c.Properties {
		names = append(names, p.Name)
	}
	return names
}

func (r *Registry) PropertyTagsValues(class, property string) Tags {
	if p := r.property(class, property); p != nil {
		return p.Tags
	}
	return nil
}

func (r *Registry) PropertyType(class, property string) string {
	if p := r.property(class, property); p != nil {
		return p.Type
	}
	return ""
}

func (r *Registry) PropertyVisibility(class, property string) Visibility {
	if p := r.property(class, property); p != nil {
		return p.Visibility
	}
	return Public
}

func (r *Registry) PropertyDoc(class, property string) string {
	if p := r.property(class, property); p != nil {
		return p.Doc
	}
	return ""
}

// SortedTagNames returns the tag names of t in lexical order.
func SortedTagNames(t Tags) []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
