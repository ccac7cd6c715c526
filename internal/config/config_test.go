package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/HugoDaniel/shadec/internal/compiler"
	"github.com/HugoDaniel/shadec/internal/test"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "shadec.yaml", `
glslVersion: 300 es
fragmentOutput: outColor
attributes:
  - name: position
    type: vec2
  - name: uv
    type: vec2
entryPoints:
  fragment: fs
treeShaking: false
logLevel: debug
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	test.AssertEqual(t, cfg.GLSLVersion, "300 es")
	test.AssertEqual(t, cfg.FragmentOutput, "outColor")
	test.AssertEqual(t, len(cfg.Attributes), 2)
	test.AssertEqual(t, cfg.Attributes[1], Attribute{Name: "uv", Type: "vec2"})
	test.AssertEqual(t, cfg.EntryPoints.Fragment, "fs")
	test.AssertEqual(t, cfg.EntryPoints.Vertex, "")
	if cfg.TreeShaking == nil || *cfg.TreeShaking {
		t.Errorf("TreeShaking: got %v, want false", cfg.TreeShaking)
	}
	test.AssertEqual(t, cfg.Level(), "DEBUG")
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(writeConfig(t, dir, "unknown.yaml", "minifyIdentifiers: true\n"))
	if err == nil {
		t.Error("expected an error for an unknown field")
	}

	_, err = LoadFile(writeConfig(t, dir, "attr.yaml", "attributes:\n  - name: position\n"))
	if err == nil {
		t.Error("expected an error for an attribute without a type")
	} else {
		test.AssertContains(t, err.Error(), "attribute 0 needs both a name and a type")
	}

	_, err = LoadFile(writeConfig(t, dir, "level.yaml", "logLevel: loud\n"))
	if err == nil {
		t.Error("expected an error for an unknown log level")
	}

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	if err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoad(t *testing.T) {
	// Config in a parent directory of the shaders
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "project", "shaders")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatalf("failed to create dirs: %v", err)
	}
	configPath := writeConfig(t, filepath.Join(tmpDir, "project"), ".shadecrc", "treeShaking: false\n")

	cfg, foundPath, err := Load(subDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected config, got nil")
	}
	test.AssertEqual(t, foundPath, configPath)
	if cfg.TreeShaking == nil || *cfg.TreeShaking {
		t.Errorf("TreeShaking: got %v, want false", cfg.TreeShaking)
	}
}

func TestLoadPrefersFirstName(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".shadecrc", "glslVersion: \"100\"\n")
	want := writeConfig(t, dir, "shadec.yaml", "glslVersion: \"450\"\n")

	cfg, path, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	test.AssertEqual(t, path, want)
	test.AssertEqual(t, cfg.GLSLVersion, "450")
}

func TestLoadNoConfig(t *testing.T) {
	cfg, path, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil config, got %v", cfg)
	}
	test.AssertEqual(t, path, "")
}

func TestToOptions(t *testing.T) {
	falseVal := false
	cfg := &Config{
		GLSLVersion: "450",
		Attributes:  []Attribute{{Name: "position", Type: "vec4"}},
		EntryPoints: &EntryPoints{Vertex: "vs"},
		TreeShaking: &falseVal,
	}

	opts := cfg.ToOptions()
	defaults := compiler.DefaultOptions()

	test.AssertEqual(t, opts.GLSLVersion, "450")
	test.AssertEqual(t, opts.FragmentOutput, defaults.FragmentOutput)
	test.AssertDeepEqual(t, opts.Attributes, []compiler.Attribute{{Name: "position", Type: "vec4"}})
	test.AssertEqual(t, opts.EntryPoints, compiler.EntryPoints{Vertex: "vs", Fragment: "fragment"})
	test.AssertEqual(t, opts.TreeShaking, false)
	test.AssertEqual(t, opts.MinifyWhitespace, false)
}

func TestToOptionsNil(t *testing.T) {
	var cfg *Config
	opts := cfg.ToOptions()
	test.AssertEqual(t, opts.GLSLVersion, "330 core")
	test.AssertEqual(t, opts.TreeShaking, true)
	test.AssertEqual(t, cfg.Level(), "WARNING")
}

func TestMerge(t *testing.T) {
	trueVal := true
	cfg := &Config{GLSLVersion: "450", LogLevel: "info"}

	opts := cfg.Merge(MergeOptions{
		MinifyWhitespace:  &trueVal,
		NoTreeShaking:     true,
		GenerateSourceMap: true,
		SourceName:        "water.shadec",
	})
	test.AssertEqual(t, opts.GLSLVersion, "450")
	test.AssertEqual(t, opts.MinifyWhitespace, true)
	test.AssertEqual(t, opts.TreeShaking, false)
	test.AssertEqual(t, opts.GenerateSourceMap, true)
	test.AssertEqual(t, opts.SourceName, "water.shadec")

	opts = cfg.Merge(MergeOptions{GLSLVersion: "300 es"})
	test.AssertEqual(t, opts.GLSLVersion, "300 es")
	test.AssertEqual(t, opts.TreeShaking, true)

	test.AssertEqual(t, cfg.MergeLevel(MergeOptions{}), "INFO")
	test.AssertEqual(t, cfg.MergeLevel(MergeOptions{LogLevel: "debug"}), "DEBUG")
}

func TestDefaultRoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	if err != nil {
		t.Fatal(err)
	}
	test.AssertContains(t, string(data), "glslVersion: 330 core\n")
	test.AssertContains(t, string(data), "- name: position\n  type: vec3\n")

	path := writeConfig(t, t.TempDir(), "shadec.yaml", string(data))
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	test.AssertDeepEqual(t, cfg.ToOptions(), compiler.DefaultOptions())
}
