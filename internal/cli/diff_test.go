package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"ingestion-portal/internal/changeset"
)

func TestRenderDiff(t *testing.T) {
	color.NoColor = true

	table, err := changeset.Read(strings.NewReader("id,name,_change_type\n" +
		"1,Alpha,insert\n" +
		"2,Beta,update_preimage\n" +
		"2,Bravo,update_postimage\n" +
		"3,Gamma,delete\n"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	diff, err := changeset.Reduce(table)
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}

	var out bytes.Buffer
	renderDiff(&out, diff, 2)
	got := out.String()

	for _, want := range []string{"id | name", "insert", "1 | Alpha", "2 | Beta Bravo", "1 more row(s)"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Gamma") {
		t.Errorf("output past the limit:\n%s", got)
	}
}

func TestDiffCmd(t *testing.T) {
	color.NoColor = true

	path := filepath.Join(t.TempDir(), "KEN_school_coverage.csv")
	data := "id,x,_change_type,_commit_version\n1,a,update_preimage,4\n1,b,update_postimage,4\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := DiffCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "1 row(s): 0 added, 1 updated, 0 deleted") {
		t.Errorf("output = %q", out.String())
	}
}

func TestDiffCmd_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.csv")
	if err := os.WriteFile(path, []byte("id,_change_type\n1,update_preimage\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := DiffCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "row 1") {
		t.Errorf("Execute() error = %v, want malformed row 1", err)
	}
}
