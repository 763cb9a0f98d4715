package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/daviddao/lanchat/internal/config"
)

func TestRootCmdHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"server", "client"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered (err=%v)", name, err)
		}
	}
}

func TestRootCmdRejectsExtraArgs(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"server", "8888", "extra"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Error("expected an error for two positional args")
	}
}

func TestVersionFlag(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := out.String(); got != "lanchat dev\n" {
		t.Errorf("version output = %q", got)
	}
}

func TestApplyFlagsOverridesOnlyChanged(t *testing.T) {
	server, _, err := newRootCmd().Find([]string{"server"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if err := server.ParseFlags([]string{"--height", "12", "--bind", "10.0.0.2"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	// applyFlags reads values from opts and only consults the command for
	// which flags were set.
	opts := &options{height: 12, bind: "10.0.0.2", width: 999}

	cfg := config.Default()
	cfg.Name = "from-file"
	applyFlags(server, opts, &cfg)

	if cfg.Height != 12 || cfg.Bind != "10.0.0.2" {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Name != "from-file" || cfg.Width != config.Default().Width {
		t.Errorf("unchanged flags overrode config: %+v", cfg)
	}
}

func TestReadName(t *testing.T) {
	var out bytes.Buffer
	name, err := readName(strings.NewReader("  bob \n"), &out)
	if err != nil {
		t.Fatalf("readName: %v", err)
	}
	if name != "bob" {
		t.Errorf("name = %q, want bob", name)
	}
	if !strings.Contains(out.String(), "Enter your name") {
		t.Errorf("prompt not written: %q", out.String())
	}

	if _, err := readName(strings.NewReader("   \n"), &out); err == nil {
		t.Error("expected error for a blank name")
	}
	if name, err := readName(strings.NewReader("eve"), &out); err != nil || name != "eve" {
		t.Errorf("readName without newline = %q, %v", name, err)
	}
}
