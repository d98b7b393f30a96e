package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/albertocavalcante/go-versioned/lockfile"
	"github.com/albertocavalcante/go-versioned/manifest"
)

const schemaSrc = `//versioned("1.3","1.4")
package schema

type Volume struct {
	UID    string
	Remote string //versioned("1.4")
}
`

const clientSrc = `package client

type Client struct {
	Addr    string
	Retries int /*versioned("2.1")*/
}
`

const manifestSrc = `versioned_package(
    name = "schema",
    src = "schema/schema.go",
)

versioned_package(
    name = "client",
    src = "client/client.go",
    versions = ["2.0", "2.1"],
    out = "gen/client",
)
`

var sortStrings = cmpopts.SortSlices(func(a, b string) bool { return a < b })

func workspace(t *testing.T) (string, *manifest.Manifest) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"VERSIONED":        manifestSrc,
		"schema/schema.go": schemaSrc,
		"client/client.go": clientSrc,
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	res, err := manifest.ParseFile(filepath.Join(root, "VERSIONED"))
	if err != nil {
		t.Fatalf("ParseFile() error: %v", err)
	}
	if res.HasErrors() {
		t.Fatalf("manifest errors: %v", res.Err())
	}
	return root, res.Manifest
}

func TestGenerate(t *testing.T) {
	root, m := workspace(t)
	r := New(Options{Concurrency: 2})

	lf, results, err := r.Generate(context.Background(), m)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if diff := cmp.Diff([]string{"client", "schema"}, lf.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}

	schema, _ := lf.Get("schema")
	if schema.Src != "schema/schema.go" {
		t.Errorf("Src = %q", schema.Src)
	}
	if diff := cmp.Diff([]string{"1.3", "1.4"}, schema.Versions); diff != "" {
		t.Errorf("Versions mismatch (-want +got):\n%s", diff)
	}
	for _, rel := range []string{"schema/v1_3/schema.go", "schema/v1_4/schema.go"} {
		if _, ok := schema.Outputs[rel]; !ok {
			t.Errorf("Outputs missing %s: %v", rel, schema.Outputs)
		}
	}

	client, _ := lf.Get("client")
	want := []string{"gen/client/v2_0/client.go", "gen/client/v2_1/client.go"}
	var got []string
	for rel := range client.Outputs {
		got = append(got, rel)
	}
	if diff := cmp.Diff(want, got, sortStrings); diff != "" {
		t.Errorf("client outputs mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(filepath.Join(root, "schema", "v1_3", "schema.go"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "Remote") {
		t.Errorf("v1_3 kept a 1.4 field:\n%s", data)
	}
	if !strings.Contains(string(data), "package v1_3") {
		t.Errorf("v1_3 package clause:\n%s", data)
	}
}

func TestGenerate_SelectedTargets(t *testing.T) {
	root, m := workspace(t)
	r := New(Options{})

	lf, _, err := r.Generate(context.Background(), m, "client")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if diff := cmp.Diff([]string{"client"}, lf.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(root, "schema", "v1_3")); !os.IsNotExist(err) {
		t.Errorf("unselected target was generated: %v", err)
	}

	if _, _, err := r.Generate(context.Background(), m, "nope"); err == nil {
		t.Error("Generate(unknown) expected error")
	}
}

func TestGenerate_ErrorNamesTarget(t *testing.T) {
	root, m := workspace(t)
	bad := `//versioned("14")
package schema
`
	if err := os.WriteFile(filepath.Join(root, "schema", "schema.go"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := New(Options{}).Generate(context.Background(), m)
	if err == nil {
		t.Fatal("Generate() expected error")
	}
	if !strings.HasPrefix(err.Error(), "schema: ") || !strings.Contains(err.Error(), `invalid version "14"`) {
		t.Errorf("error = %q", err)
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	_, m := workspace(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := New(Options{}).Generate(ctx, m); err == nil {
		t.Error("Generate() with cancelled context expected error")
	}
}

func TestCheck(t *testing.T) {
	root, m := workspace(t)
	r := New(Options{})
	ctx := context.Background()

	lf, _, err := r.Generate(ctx, m)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	drift, err := r.Check(ctx, m, lf)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if len(drift) != 0 {
		t.Fatalf("Check() on fresh workspace = %v", drift)
	}

	edited := strings.Replace(schemaSrc, "UID    string", "UID    string\n\tSize   int", 1)
	if err := os.WriteFile(filepath.Join(root, "schema", "schema.go"), []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(root, "gen", "client", "v2_0", "client.go")); err != nil {
		t.Fatal(err)
	}
	lf.Remove("client")

	drift, err = r.Check(ctx, m, lf)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	want := []lockfile.Drift{
		{Target: "client", Path: "client/client.go", Kind: lockfile.DriftUnlocked},
		{Target: "client", Path: "gen/client/v2_0/client.go", Kind: lockfile.DriftMissing},
		{Target: "schema", Path: "schema/schema.go", Kind: lockfile.DriftSource},
		{Target: "schema", Path: "schema/v1_3/schema.go", Kind: lockfile.DriftOutput},
		{Target: "schema", Path: "schema/v1_4/schema.go", Kind: lockfile.DriftOutput},
	}
	if diff := cmp.Diff(want, drift); diff != "" {
		t.Errorf("Check() mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateLockfile(t *testing.T) {
	root, m := workspace(t)
	r := New(Options{})
	path := filepath.Join(root, lockfile.DefaultFilename)

	stale := lockfile.New()
	stale.Set("removed", lockfile.Entry{Src: "removed.go"})
	if err := stale.WriteFile(path); err != nil {
		t.Fatal(err)
	}

	lf, _, err := r.Generate(context.Background(), m, "schema")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if err := r.UpdateLockfile(path, m, lf); err != nil {
		t.Fatalf("UpdateLockfile() error: %v", err)
	}

	got, err := lockfile.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if diff := cmp.Diff([]string{"schema"}, got.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestInputs(t *testing.T) {
	root, m := workspace(t)
	want := []string{
		filepath.Join(root, "VERSIONED"),
		filepath.Join(root, "schema", "schema.go"),
		filepath.Join(root, "client", "client.go"),
	}
	if diff := cmp.Diff(want, Inputs(m)); diff != "" {
		t.Errorf("Inputs() mismatch (-want +got):\n%s", diff)
	}
}
