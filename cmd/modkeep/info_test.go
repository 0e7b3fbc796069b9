package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jamesainslie/modkeep/pkg/modkeep/mod"
)

func TestPrintModInfo(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "DISABLED_RedHat")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range map[string]string{
		"merged.ini":  "[TextureOverrideHat]\nhash = 1234\n",
		"preview.png": "png",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	m, err := mod.Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s := m.Settings()
	s.CustomName = "Red Hat"
	s.Author = "someone"
	if err := m.SaveSettings(s); err != nil {
		t.Fatal(err)
	}
	if err := m.SetLastChecked(time.Now()); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := printModInfo(&buf, m, false); err != nil {
		t.Fatalf("printModInfo() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Red Hat",
		"disabled",
		"someone",
		filepath.Join(dir, "merged.ini"),
		filepath.Join(dir, "preview.png"),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "URL:":
			if fields[len(fields)-1] != "-" {
				t.Errorf("expected dash for missing URL, got %q", line)
			}
		case "Checked:":
			if fields[1] == "-" {
				t.Errorf("expected check time, got %q", line)
			}
		}
	}
}

func TestTimeOrDash(t *testing.T) {
	if timeOrDash(nil) != "-" {
		t.Error("expected dash for nil time")
	}
	zero := time.Time{}
	if timeOrDash(&zero) != "-" {
		t.Error("expected dash for zero time")
	}
	now := time.Now()
	if got := timeOrDash(&now); !strings.Contains(got, now.Local().Format("2006-01-02")) {
		t.Errorf("timeOrDash() = %q", got)
	}
}
