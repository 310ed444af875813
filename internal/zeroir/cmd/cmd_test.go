package cmd

import (
	"bytes"
	"debug/elf"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"zeroir/internal/disasm"
	"zeroir/internal/elfx/elftest"
	"zeroir/internal/ir"
	"zeroir/internal/logging"
	"zeroir/internal/symbols"
)

func writeBinary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog")
	err := elftest.Write(path, elftest.Image{
		Entry: 0x401000,
		Sections: []elftest.Section{
			{Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Addr: 0x401000,
				Data: []byte{0x55, 0x48, 0xc7, 0xc0, 0x01, 0x00, 0x00, 0x00, 0xc3}},
		},
		Symbols: []elftest.Symbol{
			{Name: "_ZN3foo3barEv", Value: 0x401000, Bind: elf.STB_GLOBAL, Type: elf.STT_FUNC, Section: ".text"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func newFlagCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	c.Flags().String("config", "", "")
	c.Flags().String("data-dir", "", "")
	c.Flags().Bool("debug", false, "")
	c.Flags().Int("mode", 0, "")
	c.Flags().Int("workers", 0, "")
	c.Flags().Bool("no-color", false, "")
	if err := c.Flags().Parse(args); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	data := `{"debug": true, "workers": 4, "factsDir": "out", "mode": 32}`
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		want    Config
		wantErr bool
	}{
		{
			name: "data dir file",
			args: []string{"--data-dir", dir},
			want: Config{Debug: true, DataDir: dir, Mode: 32, Workers: 4, FactsDir: "out"},
		},
		{
			name: "flags override",
			args: []string{"--data-dir", dir, "--workers", "1", "--debug=false", "--mode", "64"},
			want: Config{DataDir: dir, Mode: 64, Workers: 1, FactsDir: "out"},
		},
		{
			name: "explicit config",
			args: []string{"--config", filepath.Join(dir, configFileName), "--no-color"},
			want: Config{Debug: true, DataDir: defaultDataDir(), Mode: 32, Workers: 4, FactsDir: "out", NoColor: true},
		},
		{
			name:    "missing explicit config",
			args:    []string{"--config", filepath.Join(dir, "nope.json")},
			wantErr: true,
		},
		{
			name:    "bad mode",
			args:    []string{"--data-dir", dir, "--mode", "16"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loadConfig(newFlagCmd(t, tt.args...))
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("loadConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSetupColor(t *testing.T) {
	t.Setenv("ZEROIR_NO_COLOR", "")
	c := newFlagCmd(t, "--data-dir", t.TempDir())
	c.SetOut(&bytes.Buffer{})

	e, err := setup(c)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if e.color {
		t.Error("color enabled for non-terminal output")
	}
	if v := os.Getenv("ZEROIR_NO_COLOR"); v != "" {
		t.Errorf("ZEROIR_NO_COLOR = %q, setup changed the environment", v)
	}
}

func TestConfigSchema(t *testing.T) {
	bts, err := configSchema()
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"dataDir", "workers", "factsDir"} {
		if !bytes.Contains(bts, []byte(field)) {
			t.Errorf("schema missing %q", field)
		}
	}
}

func testModel(t *testing.T) *ir.Model {
	t.Helper()
	e := &env{logger: logging.NewLoggerWithWriter(io.Discard)}
	m, err := e.build(writeBinary(t))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestSummary(t *testing.T) {
	s := summarize(testModel(t), symbols.NewCache())
	if s.Name != "prog" || s.Format != "ELF" || s.ISA != "X64" || s.Entry != "0x401000" {
		t.Errorf("summary = %+v", s)
	}
	if len(s.Sections) != 1 || s.Sections[0].Name != ".text" {
		t.Fatalf("sections = %+v", s.Sections)
	}

	md := s.Markdown()
	for _, want := range []string{"# prog", "| .text | `0x401000` | 9 |", "foo::bar()"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}

	var plain bytes.Buffer
	if err := s.WritePlain(&plain); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(plain.String(), "foo::bar()") {
		t.Errorf("plain summary:\n%s", plain.String())
	}

	var decoded Summary
	bts, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(bts, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Symbols[0].Demangled != "foo::bar()" {
		t.Errorf("json symbols = %+v", decoded.Symbols)
	}
}

func TestWriteListing(t *testing.T) {
	stream, err := disasm.SweepModel(t.Context(), testModel(t), 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := writeListing(&buf, stream, true, false, false); err != nil {
		t.Fatal(err)
	}
	want := "401000  push\trbp\n401001  mov\trax\t0x1\n401008  ret\n"
	if buf.String() != want {
		t.Errorf("listing =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestPlainOutput(t *testing.T) {
	if !plainOutput([]string{"--json", "a.out"}) {
		t.Error("--json should bypass styled output")
	}
}
