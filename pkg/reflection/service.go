// Package reflection describes the class and method metadata the weaving
// engine consumes. The engine never inspects code itself; it asks a Service.
package reflection

import "strings"

// Visibility of a method or property.
type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	}
	return "unknown"
}

// ParseVisibility maps "public", "protected" and "private" to a Visibility.
func ParseVisibility(s string) (Visibility, bool) {
	switch strings.ToLower(s) {
	case "public":
		return Public, true
	case "protected":
		return Protected, true
	case "private":
		return Private, true
	}
	return 0, false
}

// Tags maps a lower-cased tag name to the values it was given, in
// declaration order.
type Tags map[string][]string

// Param is a parameter or result of a method signature.
type Param struct {
	Name string
	Type string
}

// Signature of a method, in the syntax of the generated source.
type Signature struct {
	Params   []Param
	Results  []Param
	Variadic bool
}

// Service answers metadata queries about classes.
type Service interface {
	ClassExists(class string) bool
	IsClassTaggedWith(class, tag string) bool
	ClassTagsValues(class string) Tags
	IsClassFinal(class string) bool
	IsClassAbstract(class string) bool
	IsInterface(class string) bool
	ImplementsInterface(class, iface string) bool
	InterfaceNames(class string) []string
	// ClassPackage returns the package name and import path of class.
	ClassPackage(class string) (name, path string)
	ClassImports(class string) []string

	ClassMethodNames(class string) []string
	HasMethod(class, method string) bool
	MethodTagsValues(class, method string) Tags
	IsMethodFinal(class, method string) bool
	MethodVisibility(class, method string) Visibility
	MethodDeclaringClass(class, method string) (string, bool)
	MethodSignature(class, method string) (Signature, bool)
	// Constructor returns the name of the factory constructing class.
	Constructor(class string) (string, bool)

	ClassPropertyNames(class string) []string
	PropertyTagsValues(class, property string) Tags
	PropertyType(class, property string) string
	PropertyVisibility(class, property string) Visibility
	PropertyDoc(class, property string) string
}

// ShortName strips the package qualifier from a class name.
func ShortName(class string) string {
	if i := strings.LastIndex(class, "."); i >= 0 {
		return class[i+1:]
	}
	return class
}
