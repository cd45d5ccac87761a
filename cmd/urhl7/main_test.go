package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/URMC/urHL7/internal/config"
	"github.com/URMC/urHL7/internal/platform/hl7v2"
	"github.com/URMC/urHL7/internal/platform/rules"
	"github.com/URMC/urHL7/internal/platform/spool"
)

const (
	msg1 = "MSH|^~\\&|LAB|HOSP|EHR|HOSP|20240101120000||ADT^A01|CTRL1|P|2.5\rPID|1||123^^^H~456||DOE^JOHN\r"
	msg2 = "MSH|^~\\&|LAB|HOSP|EHR|HOSP|20240101120500||ADT^A08|CTRL2|P|2.5\rPID|1||789||ROE^JANE||19700101\r"
)

func writeSpool(t *testing.T, msgs ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.hl7")
	if err := os.WriteFile(path, []byte(strings.Join(msgs, "\r\n")+"\r\n"), 0o644); err != nil {
		t.Fatalf("write spool: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MESSAGE_TERMINATOR", `\r\n`)
	t.Setenv("RULES_FILE", "")
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseCommand(t *testing.T) {
	out, err := run(t, "parse", writeSpool(t, msg1, msg2))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var views []map[string]interface{}
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("expected a JSON array, got %q: %v", out, err)
	}
	if len(views) != 2 {
		t.Errorf("expected 2 messages, got %d", len(views))
	}
}

func TestGetCommand(t *testing.T) {
	file := writeSpool(t, msg1, msg2)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"first match", []string{"get", file, "PID-5.2"}, "JOHN\nJANE\n"},
		{"all repetitions", []string{"get", file, "PID-3", "--all"}, "123^^^H\n456\n789\n"},
		{"only where present", []string{"get", file, "PID-8"}, "19700101\n"},
		{"segment", []string{"get", file, "PID"}, "PID|1||123^^^H~456||DOE^JOHN\nPID|1||789||ROE^JANE||19700101\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if out != tt.want {
				t.Errorf("got %q, want %q", out, tt.want)
			}
		})
	}
}

func TestGetCommand_BadPath(t *testing.T) {
	if _, err := run(t, "get", writeSpool(t, msg1), "PID-x"); err == nil {
		t.Error("expected error for malformed path")
	}
}

func TestRewriteCommand(t *testing.T) {
	out, err := run(t, "rewrite", writeSpool(t, "MSH|^~\\&|A\rPID|1||X^Y\r"), "--delimiters", "|*~\\`")
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if want := "MSH|*~\\`|A\rPID|1||X*Y\r\r\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestRewriteCommand_InvalidDelimiters(t *testing.T) {
	if _, err := run(t, "rewrite", writeSpool(t, msg1), "--delimiters", "||||"); err == nil {
		t.Error("expected error for invalid delimiters")
	}
}

func TestCompressCommand_ToFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.hl7")
	if _, err := run(t, "compress", writeSpool(t, "MSH|^~\\&|A||\rPID|1||\r"), "--out", dst); err != nil {
		t.Fatalf("compress: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if want := "MSH|^~\\&|A\rPID|1\r\r\n"; string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCheckCommand(t *testing.T) {
	rulesFile := filepath.Join(t.TempDir(), "rules.yaml")
	doc := "rules:\n  - path: PID-3\n    rule: exist\n  - path: PID-8\n    rule: exist_non_empty\n"
	if err := os.WriteFile(rulesFile, []byte(doc), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	out, err := run(t, "check", writeSpool(t, msg1, msg2), "--rules", rulesFile)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 messages failed") {
		t.Fatalf("expected one failure, got %v", err)
	}
	if !strings.Contains(out, "message 1 (CTRL1): FAIL") || !strings.Contains(out, "PID-8 exist_non_empty") {
		t.Errorf("unexpected report %q", out)
	}
	if !strings.Contains(out, "message 2 (CTRL2): PASS") {
		t.Errorf("expected second message to pass, got %q", out)
	}
}

func TestCheckCommand_NoRules(t *testing.T) {
	if _, err := run(t, "check", writeSpool(t, msg1)); err == nil {
		t.Error("expected error without a rule set")
	}
}

func TestSplitCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "split")
	if _, err := run(t, "split", writeSpool(t, msg1, "MSH|^~\\&|A\r"), "--out", dir); err != nil {
		t.Fatalf("split: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "0001_CTRL1.hl7"))
	if err != nil {
		t.Fatalf("read first file: %v", err)
	}
	if string(got) != msg1+"\r\n" {
		t.Errorf("got %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "0002.hl7")); err != nil {
		t.Errorf("expected ordinal-only name for a message without control ID: %v", err)
	}
}

func TestSplitName(t *testing.T) {
	m, err := hl7v2.ParseString("MSH|^~\\&|||||||ADT^A01|a/b c\r")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := splitName(7, m); got != "0007_a_b_c.hl7" {
		t.Errorf("splitName = %q", got)
	}
}

func TestPipeline_Process(t *testing.T) {
	src := writeSpool(t, msg1, msg2)
	outDir := t.TempDir()

	rule, err := rules.New("PID-8", rules.ExistNonEmpty)
	if err != nil {
		t.Fatalf("rules.New: %v", err)
	}
	p := &pipeline{
		reader: spool.Reader{Terminator: "\r\n"},
		rules:  rules.Set{rule},
		outDir: outDir,
		remove: true,
		log:    zerolog.Nop(),
	}

	if err := p.processFile(context.Background(), src); err != nil {
		t.Fatalf("processFile: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(outDir, "in.hl7"))
	if err != nil {
		t.Fatalf("read forwarded file: %v", err)
	}
	if string(got) != msg2+"\r\n" {
		t.Errorf("expected only the passing message forwarded, got %q", got)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("expected source file to be removed")
	}
}

func TestPipeline_ProcessReportsParseErrors(t *testing.T) {
	p := &pipeline{reader: spool.Reader{Terminator: "\r\n"}, log: zerolog.Nop()}

	stats, err := p.process(context.Background(), writeSpool(t, msg1, "NOT A MESSAGE"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if stats.Messages != 1 {
		t.Errorf("expected 1 message before the failure, got %d", stats.Messages)
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Env:               "development",
		BodyLimit:         "1M",
		RateLimitRPS:      100,
		RateLimitBurst:    200,
		MessageTerminator: `\r\n`,
		DefaultDelimiters: `|^~\&`,
	}
}

func TestNewServer_Routes(t *testing.T) {
	e := newServer(testConfig(), zerolog.Nop(), nil, nil, nil)

	found := make(map[string]bool)
	for _, r := range e.Routes() {
		found[r.Method+" "+r.Path] = true
	}
	for _, key := range []string{
		"GET /health",
		"GET /metrics",
		"POST /api/v1/hl7v2/parse",
		"POST /api/v1/hl7v2/query",
		"POST /api/v1/hl7v2/ack",
	} {
		if !found[key] {
			t.Errorf("missing route %s", key)
		}
	}
	if found["GET /health/db"] || found["GET /api/v1/archive/messages"] || found["POST /api/v1/hl7v2/validate"] {
		t.Error("archive and validation routes should only exist when configured")
	}
}

func TestNewServer_Query(t *testing.T) {
	e := newServer(testConfig(), zerolog.Nop(), nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hl7v2/query?path=PID-5.2", strings.NewReader(msg1))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "JOHN") {
		t.Errorf("expected JOHN in %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request ID header")
	}
}

func TestNewServer_Validate(t *testing.T) {
	rule, err := rules.New("PID-3", rules.Exist)
	if err != nil {
		t.Fatalf("rules.New: %v", err)
	}
	e := newServer(testConfig(), zerolog.Nop(), nil, nil, rules.Set{rule})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hl7v2/validate", strings.NewReader(msg1))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNewServer_RequiresTokenOutsideDev(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"
	cfg.JWTSigningKey = strings.Repeat("k", 32)
	e := newServer(cfg, zerolog.Nop(), nil, nil, nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/hl7v2/parse", strings.NewReader(msg1)))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected public /health, got %d", rec.Code)
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", strings.Repeat("k", 32))
	out, err := run(t, "token", "--subject", "lab-feed", "--role", "hl7_writer")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if strings.Count(strings.TrimSpace(out), ".") != 2 {
		t.Errorf("expected a JWT, got %q", out)
	}
}
