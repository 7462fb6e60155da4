package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yml")}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRenderUsage(t *testing.T) {
	out, err := run(t, "render")
	if err != nil {
		t.Fatalf("render without args should succeed: %v", err)
	}
	if out != renderUsage {
		t.Errorf("out = %q", out)
	}
}

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "README.md")
	if err := os.WriteFile(md, []byte("# foo\n\nSee [docs](docs/a.md).\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "render", md, `{"name":"foo","repository":"alice/foo"}`)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "<h1") {
		t.Errorf("package title should be dropped:\n%s", out)
	}
	if !strings.Contains(out, `href="https://github.com/alice/foo/blob/master/docs/a.md"`) {
		t.Errorf("link not resolved:\n%s", out)
	}
}

func TestRenderMissingFile(t *testing.T) {
	if _, err := run(t, "render", filepath.Join(t.TempDir(), "nope.md")); err == nil {
		t.Error("expected read error")
	}
}

func TestReadPackage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.json")
	if err := os.WriteFile(path, []byte(`{"name":"bar","description":"Bar"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	pkg, err := readPackage(path)
	if err != nil {
		t.Fatalf("readPackage: %v", err)
	}
	if pkg.Name != "bar" || pkg.Description != "Bar" {
		t.Errorf("pkg = %+v", pkg)
	}
	if pkg, err := readPackage(""); pkg != nil || err != nil {
		t.Errorf("empty arg = %v, %v", pkg, err)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "pagekit dev\n" {
		t.Errorf("out = %q", out)
	}
}

func TestNotifyNames(t *testing.T) {
	out, err := run(t, "notify", "names")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"email_missing", "credit_card_expires"} {
		if !strings.Contains(out, name) {
			t.Errorf("names output missing %s:\n%s", name, out)
		}
	}
}

func TestDescriptorText(t *testing.T) {
	got := descriptorText([]byte(`["span","Your card ",["a",{"href":"/x"},"expires"]]`))
	if got != "Your card expires" {
		t.Errorf("descriptorText = %q", got)
	}
}
