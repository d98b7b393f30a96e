package versioned

import (
	"errors"
	"strings"
	"testing"

	"github.com/dave/dst"
	"github.com/google/go-cmp/cmp"

	"github.com/albertocavalcante/go-versioned/tag"
	"github.com/albertocavalcante/go-versioned/version"
)

const schemaSrc = `// Package schema describes storage volumes.
//versioned("1.3", "1.4", "1.5")
package schema

import (
	"fmt"
	"strings"
)

type Volume struct {
	UID string
	//versioned("1.4")
	Remote bool
	Mode   string //versioned("1.5")
}

func Describe(v Volume) []any {
	out := []any{v.UID}
	//versioned("1.4")
	out = append(out, v.Remote)
	return append(out,
		/*versioned("1.5")*/ v.Mode)
}

//versioned("1.3")
func Legacy(v Volume) string {
	return strings.ToUpper(v.UID)
}

func Name(v Volume) string {
	return fmt.Sprint(v.UID)
}
`

func mustParse(t *testing.T, filename, src string) *Module {
	t.Helper()
	mod, err := ParseSource(filename, []byte(src))
	if err != nil {
		t.Fatalf("ParseSource() error: %v", err)
	}
	return mod
}

func renderAll(t *testing.T, pkgs []*Package, opts ...Option) map[string]string {
	t.Helper()
	out := make(map[string]string, len(pkgs))
	for _, pkg := range pkgs {
		data, err := Render(pkg, opts...)
		if err != nil {
			t.Fatalf("Render(%s) error: %v", pkg.Name, err)
		}
		out[pkg.Name] = string(data)
	}
	return out
}

func TestGenerate_DirectiveVersions(t *testing.T) {
	pkgs, err := Generate(mustParse(t, "schema/schema.go", schemaSrc), nil)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	var names []string
	for _, pkg := range pkgs {
		names = append(names, pkg.Name)
		if pkg.Filename != "schema.go" {
			t.Errorf("%s.Filename = %q, want schema.go", pkg.Name, pkg.Filename)
		}
		if pkg.File.Name.Name != pkg.Name {
			t.Errorf("package clause = %q, want %q", pkg.File.Name.Name, pkg.Name)
		}
	}
	if diff := cmp.Diff([]string{"v1_3", "v1_4", "v1_5"}, names); diff != "" {
		t.Errorf("package names mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_PerVersionContent(t *testing.T) {
	pkgs, err := Generate(mustParse(t, "schema/schema.go", schemaSrc), nil)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	out := renderAll(t, pkgs)

	tests := []struct {
		pkg      string
		contains []string
		excludes []string
	}{
		{
			pkg:      "v1_3",
			contains: []string{"package v1_3", "func Legacy(", `"strings"`, "struct{}{}"},
			excludes: []string{"Remote bool", "Mode", "v.Remote"},
		},
		{
			pkg:      "v1_4",
			contains: []string{"package v1_4", "Remote bool", "out = append(out, v.Remote)", "var ()", "struct{}{}"},
			excludes: []string{"Mode", "Legacy", `"strings"`},
		},
		{
			pkg:      "v1_5",
			contains: []string{"package v1_5", "Mode string", "v.Mode"},
			excludes: []string{"Remote", "Legacy", "struct{}{}"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.pkg, func(t *testing.T) {
			src := out[tt.pkg]
			for _, want := range tt.contains {
				if !strings.Contains(src, want) {
					t.Errorf("output missing %q:\n%s", want, src)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(src, unwanted) {
					t.Errorf("output contains %q:\n%s", unwanted, src)
				}
			}
		})
	}
}

func TestGenerate_TagsConsumed(t *testing.T) {
	pkgs, err := Generate(mustParse(t, "schema.go", schemaSrc), nil)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	for name, src := range renderAll(t, pkgs) {
		if strings.Contains(src, tag.Marker+"(") {
			t.Errorf("%s still contains a directive:\n%s", name, src)
		}
	}
}

func TestGenerate_InlineTags(t *testing.T) {
	src := `//versioned("1.3", "1.4")
package schema

func Describe(kind int, uid, remote string) []any {
	out := []any{uid, /*versioned("1.4")*/ remote}
	switch kind {
	case 1: //versioned("1.4")
		out = append(out, "remote kind")
	default:
		out = append(out, "default kind")
	}
	return /*versioned("1.4")*/ out
}
`
	pkgs, err := Generate(mustParse(t, "schema.go", src), nil)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	out := renderAll(t, pkgs)

	tests := []struct {
		pkg      string
		contains []string
		excludes []string
	}{
		{
			pkg:      "v1_3",
			contains: []string{"[]any{uid}", `"default kind"`, "return struct{}{}"},
			excludes: []string{"remote}", "case 1:", `"remote kind"`, "return out"},
		},
		{
			pkg:      "v1_4",
			contains: []string{"[]any{uid, remote}", "case 1:", `"remote kind"`, "return out"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.pkg, func(t *testing.T) {
			src := out[tt.pkg]
			if strings.Contains(src, tag.Marker+"(") {
				t.Errorf("output still contains a tag:\n%s", src)
			}
			for _, want := range tt.contains {
				if !strings.Contains(src, want) {
					t.Errorf("output missing %q:\n%s", want, src)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(src, unwanted) {
					t.Errorf("output contains %q:\n%s", unwanted, src)
				}
			}
		})
	}
}

func TestGenerate_Header(t *testing.T) {
	mod := mustParse(t, "schema.go", schemaSrc)

	pkgs, err := Generate(mod, []string{"1.4"})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	src := renderAll(t, pkgs)["v1_4"]
	wantPrefix := "// Code generated by versioned from schema.go; DO NOT EDIT.\n\n// Package schema describes storage volumes.\npackage v1_4\n"
	if !strings.HasPrefix(src, wantPrefix) {
		t.Errorf("output prefix mismatch:\n%s", src)
	}

	pkgs, err = Generate(mod, []string{"1.4"}, WithGeneratedHeader(false))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	src = renderAll(t, pkgs)["v1_4"]
	if !strings.HasPrefix(src, "// Package schema describes storage volumes.\npackage v1_4\n") {
		t.Errorf("output without header mismatch:\n%s", src)
	}
}

func TestGenerate_ExplicitTargetsOverrideDirective(t *testing.T) {
	pkgs, err := Generate(mustParse(t, "schema.go", schemaSrc), []string{"2.0", "1.5"})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(pkgs) != 2 || pkgs[0].Name != "v2_0" || pkgs[1].Name != "v1_5" {
		t.Fatalf("packages = %v, want v2_0 and v1_5 in target order", pkgs)
	}

	// No tag names 2.0, so every tagged node is removed.
	src := renderAll(t, pkgs)["v2_0"]
	for _, unwanted := range []string{"Remote", "Mode", "Legacy"} {
		if strings.Contains(src, unwanted) {
			t.Errorf("v2_0 contains %q:\n%s", unwanted, src)
		}
	}
}

func TestGenerate_EmptyVersionList(t *testing.T) {
	pkgs, err := Generate(mustParse(t, "schema.go", schemaSrc), []string{})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(pkgs) != 0 {
		t.Errorf("Generate() = %d packages, want 0", len(pkgs))
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	mod := mustParse(t, "schema.go", schemaSrc)

	first, err := Generate(mod, nil)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	second, err := Generate(mod, nil)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if diff := cmp.Diff(renderAll(t, first), renderAll(t, second)); diff != "" {
		t.Errorf("second generation differs (-first +second):\n%s", diff)
	}
}

func TestGenerate_UntaggedModuleUnchanged(t *testing.T) {
	const src = `package schema

import "fmt"

// Volume is a storage volume.
type Volume struct {
	UID  string
	Name string
}

func (v Volume) String() string {
	switch v.Name {
	case "":
		return v.UID
	default:
		return fmt.Sprintf("%s (%s)", v.Name, v.UID)
	}
}
`
	pkgs, err := Generate(mustParse(t, "schema.go", src), []string{"1.0"}, WithGeneratedHeader(false))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	got := renderAll(t, pkgs)["v1_0"]
	want := strings.Replace(src, "package schema", "package v1_0", 1)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("untagged output changed (-want +got):\n%s", diff)
	}
}

func TestEmit_VersionsShareNoNodes(t *testing.T) {
	mod := mustParse(t, "schema.go", schemaSrc)
	pkgs, err := Emit(mod, []version.Version{version.MustParse("1.4"), version.MustParse("1.4")})
	if err != nil {
		t.Fatalf("Emit() error: %v", err)
	}

	seen := make(map[dst.Node]bool)
	dst.Inspect(pkgs[0].File, func(n dst.Node) bool {
		if n != nil {
			seen[n] = true
		}
		return true
	})
	dst.Inspect(pkgs[1].File, func(n dst.Node) bool {
		if n != nil && seen[n] {
			t.Errorf("node %T shared between emitted packages", n)
			return false
		}
		return true
	})

	before := renderAll(t, pkgs[1:])["v1_4"]
	typ := findVolume(t, pkgs[0].File)
	typ.Fields.List = nil
	pkgs[0].File.Decls = pkgs[0].File.Decls[:2]
	after := renderAll(t, pkgs[1:])["v1_4"]
	if before != after {
		t.Errorf("mutating one package changed another:\n%s", after)
	}
}

func findVolume(t *testing.T, f *dst.File) *dst.StructType {
	t.Helper()
	for _, d := range f.Decls {
		g, ok := d.(*dst.GenDecl)
		if !ok {
			continue
		}
		for _, s := range g.Specs {
			if ts, ok := s.(*dst.TypeSpec); ok && ts.Name.Name == "Volume" {
				return ts.Type.(*dst.StructType)
			}
		}
	}
	t.Fatal("Volume not found")
	return nil
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		targets  []string
		wantErr  []error
		wantLine int
	}{
		{
			name:     "invalid target",
			src:      schemaSrc,
			targets:  []string{"1.4", "1.x"},
			wantErr:  []error{version.ErrInvalidVersion},
			wantLine: 3,
		},
		{
			name:     "missing separator in directive",
			src:      "//versioned(\"14\")\npackage schema\n\nvar X int\n",
			wantErr:  []error{version.ErrInvalidVersion},
			wantLine: 1,
		},
		{
			name:     "missing directive",
			src:      "package schema\n\nvar X int\n",
			wantErr:  []error{ErrMissingDirective},
			wantLine: 1,
		},
		{
			name:     "malformed directive",
			src:      "//versioned(1.3)\npackage schema\n\nvar X int\n",
			wantErr:  []error{tag.ErrMalformedDirective},
			wantLine: 1,
		},
		{
			name: "malformed inline tag",
			src: `package schema

func Describe() any {
	return /*versioned("1.x")*/ "remote"
}
`,
			targets:  []string{"1.4"},
			wantErr:  []error{tag.ErrInvalidRequirement},
			wantLine: 4,
		},
		{
			name: "tag on a parameter",
			src: `package schema

func Describe(
	//versioned("1.4")
	remote bool,
) {
}
`,
			targets:  []string{"1.3"},
			wantErr:  []error{tag.ErrUnsupportedPosition},
			wantLine: 4,
		},
		{
			name:     "empty module",
			src:      "//versioned(\"1.3\")\npackage schema\n",
			wantErr:  []error{ErrEmptyModule},
			wantLine: 2,
		},
		{
			name: "invalid requirement",
			src: `package schema

type Volume struct {
	UID string
	//versioned("1.x")
	Remote bool
}
`,
			targets:  []string{"1.4"},
			wantErr:  []error{tag.ErrInvalidRequirement, version.ErrInvalidVersion},
			wantLine: 5,
		},
		{
			name: "duplicate requirement",
			src: `package schema

type Volume struct {
	UID string
	//versioned("1.4")
	Remote bool //versioned("1.5")
}
`,
			targets:  []string{"1.4"},
			wantErr:  []error{tag.ErrDuplicateRequirement},
			wantLine: 6,
		},
		{
			name: "error in later version",
			src: `package schema

func Describe() []any {
	//versioned("1.4")
	return []any{
		//versioned("nope")
		1,
	}
}
`,
			targets:  []string{"1.3", "1.4"},
			wantErr:  []error{tag.ErrInvalidRequirement},
			wantLine: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkgs, err := Generate(mustParse(t, "schema.go", tt.src), tt.targets)
			if err == nil {
				t.Fatal("Generate() expected error")
			}
			if pkgs != nil {
				t.Errorf("Generate() returned %d packages on failure", len(pkgs))
			}
			for _, want := range tt.wantErr {
				if !errors.Is(err, want) {
					t.Errorf("error = %v, want %v", err, want)
				}
			}
			var genErr *Error
			if !errors.As(err, &genErr) {
				t.Fatalf("error %T is not *Error", err)
			}
			if genErr.Pos.Line != tt.wantLine {
				t.Errorf("error line = %d, want %d (%v)", genErr.Pos.Line, tt.wantLine, err)
			}
			if !strings.HasSuffix(err.Error(), "while using the //versioned directive") {
				t.Errorf("error text = %q", err.Error())
			}
		})
	}
}

func TestErrorText(t *testing.T) {
	mod := mustParse(t, "schema.go", schemaSrc)
	_, err := Generate(mod, []string{"14"})
	want := "schema.go:3:1: invalid version \"14\": missing `.` while using the //versioned directive"
	if err == nil || err.Error() != want {
		t.Errorf("error = %v, want %q", err, want)
	}
}
