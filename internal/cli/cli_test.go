package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGuildRegisterUsesConfiguredDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("quiz:\n  cooldown_seconds: 600\n  question_count: 10\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"guild", "register", "--config", cfgPath, "--guild", "g42", "--name", "Quiz Club"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "guild g42: cooldown 600s, 10 questions") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestExportWithoutResultsPrintsNoData(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"export", "--config", filepath.Join(t.TempDir(), "absent.yaml"), "--guild", "demo"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out.String()) != "no data" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestImportCountsValidRows(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "questions.csv")
	data := "問題,選択肢A,選択肢B,選択肢C,選択肢D,解答\n1+1?,1,2,3,4,B\n,1,2,3,4,A\n"
	if err := os.WriteFile(csvPath, []byte(data), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"import", "--config", filepath.Join(dir, "absent.yaml"), "--guild", "demo", "--file", csvPath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "imported 1 questions into demo") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
