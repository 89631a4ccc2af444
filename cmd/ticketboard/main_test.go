package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"gopkg.in/yaml.v3"

	"github.com/nhle/ticketboard/internal/credential"
	"github.com/nhle/ticketboard/internal/model"
	"github.com/nhle/ticketboard/internal/ticketstore"
	"github.com/nhle/ticketboard/internal/ticketstore/mockapi"
	"github.com/nhle/ticketboard/tests/testutil"
)

func execCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeConfig points the API at baseURL and disables the snapshot cache.
func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "api:\n  base_url: " + baseURL + "\n  max_retries: 0\ncache:\n  backend: none\nlog:\n  file: \"\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newMockServer(t *testing.T) (*ticketstore.MemoryStore, *httptest.Server) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	mem := ticketstore.NewMemoryStore()
	mem.Seed(testutil.SampleBoard(), ticketstore.NewStatusMap(testutil.SampleColumns()))
	srv := httptest.NewServer(mockapi.New(mem, mockapi.Options{Prefix: "/api", Token: "secret", Logger: logger}))
	t.Cleanup(srv.Close)
	t.Setenv(credential.TokenEnv, "secret")
	return mem, srv
}

func TestVersionCmd(t *testing.T) {
	out, err := execCmd(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "ticketboard dev") {
		t.Errorf("expected output to contain 'ticketboard dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	out, err := execCmd(t, "--help")
	if err != nil {
		t.Fatalf("--help failed: %v", err)
	}
	for _, sub := range []string{"run", "mock-api", "comments", "snapshot", "config", "token", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q, got: %s", sub, out)
		}
	}
}

func TestParseTicketID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "42", want: 42},
		{in: "task-7", want: 7},
		{in: "column-1", wantErr: true},
		{in: "0", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTicketID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("id = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCommentsAddAndList(t *testing.T) {
	mem, srv := newMockServer(t)
	cfg := writeConfig(t, srv.URL+"/api")

	out, err := execCmd(t, "comments", "add", "--config", cfg, "task-1", "looking", "into", "it")
	if err != nil {
		t.Fatalf("comments add: %v\n%s", err, out)
	}
	if !strings.Contains(out, "to ticket 1") {
		t.Errorf("unexpected output: %s", out)
	}

	out, err = execCmd(t, "comments", "list", "--config", cfg, "1")
	if err != nil {
		t.Fatalf("comments list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "looking into it") {
		t.Errorf("list output missing comment: %s", out)
	}

	comments, _ := mem.ListComments(t.Context(), 1)
	if len(comments) != 1 {
		t.Errorf("store has %d comments, want 1", len(comments))
	}
}

func TestCommentsListEmpty(t *testing.T) {
	_, srv := newMockServer(t)
	cfg := writeConfig(t, srv.URL+"/api")

	out, err := execCmd(t, "comments", "list", "--config", cfg, "2")
	if err != nil {
		t.Fatalf("comments list: %v", err)
	}
	if !strings.Contains(out, "No comments on ticket 2") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestCommentsBadToken(t *testing.T) {
	_, srv := newMockServer(t)
	t.Setenv(credential.TokenEnv, "wrong")
	cfg := writeConfig(t, srv.URL+"/api")

	if _, err := execCmd(t, "comments", "list", "--config", cfg, "1"); err == nil {
		t.Fatal("expected an auth error")
	}
}

func TestSnapshotShowWithoutCache(t *testing.T) {
	cfg := writeConfig(t, "http://127.0.0.1:1/api")

	out, err := execCmd(t, "snapshot", "show", "--config", cfg)
	if err != nil {
		t.Fatalf("snapshot show: %v", err)
	}
	if !strings.Contains(out, "No snapshot saved yet") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestNewSnapshotDoc(t *testing.T) {
	doc := newSnapshotDoc("sqlite", testutil.SampleBoard())

	if len(doc.Columns) != 2 {
		t.Fatalf("columns = %d, want 2", len(doc.Columns))
	}
	first := doc.Columns[0]
	if len(first.Tasks) != 2 || first.Tasks[0].ID != "task-1" {
		t.Fatalf("first column tasks = %+v", first.Tasks)
	}
	if first.Tasks[0].Due != "2024-03-15" || first.Tasks[0].Priority != "High" {
		t.Errorf("task-1 = %+v", first.Tasks[0])
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "external_id: 1") {
		t.Errorf("yaml missing external id:\n%s", out)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if out, err := execCmd(t, "config", "init", "--config", path); err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	if _, err := execCmd(t, "config", "init", "--config", path); err == nil {
		t.Error("second init without --force should fail")
	}

	out, err := execCmd(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	var cfg model.AppConfig
	if err := yaml.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("show output is not YAML: %v", err)
	}
	if len(cfg.Board.Columns) != 4 || cfg.Board.Columns[1].Status != "in_progress" {
		t.Errorf("columns = %+v", cfg.Board.Columns)
	}
}

func TestReadTokenFromPipe(t *testing.T) {
	cmd := newTokenCmd()
	cmd.SetIn(strings.NewReader("  abc123 \n"))

	got, err := readToken(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if got != "abc123" {
		t.Errorf("token = %q, want abc123", got)
	}

	cmd.SetIn(strings.NewReader("\n"))
	if _, err := readToken(cmd); err == nil {
		t.Error("expected error for empty token")
	}
}
