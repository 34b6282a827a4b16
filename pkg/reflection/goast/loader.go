// Package goast is a reflection.Service source reading Go code: structs are
// classes, their methods and fields are methods and properties, and
// doc-comment annotations such as //@Aspect or //@Before("...") are tags.
package goast

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"

	"github.com/sirupsen/logrus"
	"golang.org/x/tools/go/packages"

	"github.com/go-park/weaver/pkg/aop"
	"github.com/go-park/weaver/pkg/reflection"
	"github.com/go-park/weaver/pkg/tools/collections"
)

type (
	Option[T any] func(*T)

	// Loader collects declarations file by file and assembles them into a
	// reflection registry.
	Loader struct {
		logger logrus.FieldLogger
		fset   *token.FileSet
		types  map[string]*typeDecl
		order  []string
		funcs  map[string]bool
	}

	typeDecl struct {
		class    *reflection.Class
		imports  []string
		declared bool
	}
)

func WithLogger(l logrus.FieldLogger) Option[Loader] {
	return func(o *Loader) {
		if l != nil {
			o.logger = l
		}
	}
}

func NewLoader(opts ...Option[Loader]) *Loader {
	l := &Loader{
		logger: logrus.StandardLogger(),
		fset:   token.NewFileSet(),
		types:  map[string]*typeDecl{},
		funcs:  map[string]bool{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the packages matching patterns, as understood by go list.
func Load(patterns ...string) (*reflection.Registry, error) {
	l := NewLoader()
	if err := l.Load(patterns...); err != nil {
		return nil, err
	}
	return l.Registry(), nil
}

func (l *Loader) Load(patterns ...string) error {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax,
		Fset: l.fset,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return fmt.Errorf("goast: load %v: %w", patterns, err)
	}
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return fmt.Errorf("goast: load %s: %w", pkg.PkgPath, pkg.Errors[0])
		}
		for _, f := range pkg.Syntax {
			l.AddFile(pkg.PkgPath, f)
		}
		l.logger.WithField("package", pkg.PkgPath).
			WithField("files", len(pkg.Syntax)).
			Debug("package loaded")
	}
	return nil
}

// ParseFiles parses Go files belonging to the package imported as pkgPath.
func (l *Loader) ParseFiles(pkgPath string, filenames ...string) error {
	for _, name := range filenames {
		if err := l.ParseSource(pkgPath, name, nil); err != nil {
			return err
		}
	}
	return nil
}

// ParseSource parses one file; src follows go/parser.ParseFile and may be
// nil to read filename.
func (l *Loader) ParseSource(pkgPath, filename string, src any) error {
	f, err := parser.ParseFile(l.fset, filename, src, parser.ParseComments)
	if err != nil {
		return fmt.Errorf("goast: %w", err)
	}
	l.AddFile(pkgPath, f)
	return nil
}

// AddFile collects the declarations of a parsed file.
func (l *Loader) AddFile(pkgPath string, f *ast.File) {
	pkg := f.Name.Name
	imports := importSpecs(f.Imports)
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				doc := ts.Doc
				if doc == nil && len(d.Specs) == 1 {
					doc = d.Doc
				}
				l.typeSpec(pkg, pkgPath, ts, doc, imports)
			}
		case *ast.FuncDecl:
			if d.Recv == nil || len(d.Recv.List) == 0 {
				l.funcs[pkg+"."+d.Name.Name] = true
				continue
			}
			l.funcDecl(pkg, d, imports)
		}
	}
}

func (l *Loader) typeDecl(pkg, name string) *typeDecl {
	class := pkg + "." + name
	t, ok := l.types[class]
	if !ok {
		t = &typeDecl{class: &reflection.Class{Name: class, Package: pkg}}
		l.types[class] = t
		l.order = append(l.order, class)
	}
	return t
}

func (l *Loader) typeSpec(pkg, pkgPath string, ts *ast.TypeSpec, doc *ast.CommentGroup, imports []string) {
	if ts.TypeParams != nil && len(ts.TypeParams.List) > 0 {
		l.logger.WithField("type", pkg+"."+ts.Name.Name).Debug("generic type skipped")
		return
	}
	var (
		structT *ast.StructType
		ifaceT  *ast.InterfaceType
	)
	switch t := ts.Type.(type) {
	case *ast.StructType:
		structT = t
	case *ast.InterfaceType:
		ifaceT = t
	default:
		return
	}

	t := l.typeDecl(pkg, ts.Name.Name)
	t.declared = true
	c := t.class
	c.PackagePath = pkgPath
	c.Tags, _ = parseAnnotations(doc)
	c.Final = hasTag(c.Tags, AnnotationFinal)
	c.Abstract = hasTag(c.Tags, AnnotationAbstract)
	t.imports = append(t.imports, imports...)

	if ifaceT != nil {
		c.Interface = true
		for _, m := range ifaceT.Methods.List {
			fn, ok := m.Type.(*ast.FuncType)
			if !ok {
				continue
			}
			tags, _ := parseAnnotations(m.Doc)
			for _, name := range m.Names {
				c.Methods = append(c.Methods, &reflection.Method{
					Name:       name.Name,
					Tags:       tags,
					Visibility: visibility(name.Name),
					Signature:  signature(fn),
				})
			}
		}
		return
	}
	for _, field := range structT.Fields.List {
		tags, text := parseAnnotations(field.Doc, field.Comment)
		for _, name := range field.Names {
			c.Properties = append(c.Properties, &reflection.Property{
				Name:       name.Name,
				Type:       types.ExprString(field.Type),
				Doc:        text,
				Tags:       tags,
				Visibility: visibility(name.Name),
			})
		}
	}
}

func (l *Loader) funcDecl(pkg string, d *ast.FuncDecl, imports []string) {
	recv := receiverName(d.Recv.List[0].Type)
	if recv == "" {
		return
	}
	t := l.typeDecl(pkg, recv)
	t.imports = append(t.imports, imports...)
	tags, _ := parseAnnotations(d.Doc)
	t.class.Methods = append(t.class.Methods, &reflection.Method{
		Name:       d.Name.Name,
		Tags:       tags,
		Final:      hasTag(tags, AnnotationFinal),
		Visibility: visibility(d.Name.Name),
		Signature:  signature(d.Type),
	})
}

// Registry assembles every struct and interface collected so far.
// Structs implement an interface when they declare all of its methods.
func (l *Loader) Registry() *reflection.Registry {
	var classes, ifaces []*reflection.Class
	for _, name := range l.order {
		t := l.types[name]
		if !t.declared {
			// methods of a type that is neither a struct nor an interface
			continue
		}
		c := t.class
		c.Imports = collections.Uniq(t.imports)
		if ctor := "New" + reflection.ShortName(c.Name); l.funcs[c.Package+"."+ctor] {
			c.Constructor = ctor
		}
		if c.Interface {
			ifaces = append(ifaces, c)
		}
		classes = append(classes, c)
	}
	for _, c := range classes {
		if c.Interface {
			continue
		}
		c.Interfaces = nil
		methods := methodNames(c)
		for _, iface := range ifaces {
			if len(iface.Methods) > 0 && collections.ContainsAll(methods, methodNames(iface)...) {
				c.Interfaces = append(c.Interfaces, iface.Name)
			}
		}
		if collections.Contains(methods, "AOPTargetClassName") {
			c.Interfaces = append(c.Interfaces, aop.ProxyInterfaceName)
		}
	}
	return reflection.NewRegistry(classes...)
}
