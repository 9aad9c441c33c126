// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/toeirei/keymaster-blacklist/internal/fingerprint"
	"github.com/toeirei/keymaster-blacklist/internal/i18n"
	"github.com/toeirei/keymaster-blacklist/internal/model"
	"github.com/toeirei/keymaster-blacklist/internal/testutil"
)

// testEnv is an isolated working directory with a config pointing at a
// sqlite file inside it.
type testEnv struct {
	t       *testing.T
	dir     string
	cfgPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Chdir(dir)

	cfg := "database:\n  type: sqlite\n  dsn: " + filepath.ToSlash(filepath.Join(dir, "bl.db")) + "\nlanguage: en\n"
	cfgPath := filepath.Join(dir, "keyblacklist.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Cleanup(func() { i18n.Init("en") })
	return &testEnv{t: t, dir: dir, cfgPath: cfgPath}
}

// run executes one CLI invocation with stdin set to in.
func (e *testEnv) run(in string, args ...string) (string, error) {
	e.t.Helper()
	a := &app{}
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(in))
	root.SetArgs(append(args, "--config", e.cfgPath))
	err := root.Execute()
	if cerr := a.close(); cerr != nil {
		e.t.Fatalf("closing store: %v", cerr)
	}
	return out.String(), err
}

// writeKeys writes n fresh ed25519 keys as authorized_keys lines and returns
// the file path and the keys' fingerprints.
func (e *testEnv) writeKeys(name string, n int) (string, []string) {
	e.t.Helper()
	var (
		lines []string
		fps   []string
	)
	for i := 0; i < n; i++ {
		pub := testutil.Ed25519(e.t)
		lines = append(lines, testutil.AuthorizedKey(e.t, pub, "key"+string(rune('a'+i))))
		fp, err := fingerprint.Compute(pub)
		if err != nil {
			e.t.Fatalf("Compute: %v", err)
		}
		fps = append(fps, fp)
	}
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		e.t.Fatalf("write keys: %v", err)
	}
	return path, fps
}

func TestFingerprintCmd_PrintsFingerprints(t *testing.T) {
	env := newTestEnv(t)
	path, fps := env.writeKeys("keys.pub", 2)

	out, err := env.run("", "fingerprint", path)
	if err != nil {
		t.Fatalf("fingerprint failed: %v\n%s", err, out)
	}
	for _, fp := range fps {
		if !strings.Contains(out, fp+"  Ed25519") {
			t.Fatalf("expected %s in output:\n%s", fp, out)
		}
	}
	if _, err := os.Stat(filepath.Join(env.dir, "bl.db")); err == nil {
		t.Fatalf("fingerprint must not open the database")
	}
}

func TestFingerprintCmd_ReadsStdin(t *testing.T) {
	env := newTestEnv(t)
	path, fps := env.writeKeys("keys.pub", 1)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read keys: %v", err)
	}

	out, err := env.run(string(data), "fingerprint", "-")
	if err != nil {
		t.Fatalf("fingerprint failed: %v", err)
	}
	if !strings.Contains(out, fps[0]) {
		t.Fatalf("expected fingerprint in output:\n%s", out)
	}
}

func TestAddAndCheck(t *testing.T) {
	env := newTestEnv(t)
	bad, badFPs := env.writeKeys("bad.pub", 1)
	good, _ := env.writeKeys("good.pub", 1)

	out, err := env.run("", "add", bad)
	if err != nil {
		t.Fatalf("add failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Added blacklist entry 1: PUBLICKEY "+badFPs[0]+" (Ed25519)") {
		t.Fatalf("unexpected add output:\n%s", out)
	}

	out, err = env.run("", "add", bad)
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if !strings.Contains(out, "Already blacklisted as entry 1") {
		t.Fatalf("expected duplicate notice, got:\n%s", out)
	}

	out, err = env.run("", "check", bad)
	if !errors.Is(err, ErrBlacklisted) {
		t.Fatalf("expected ErrBlacklisted, got %v\n%s", err, out)
	}
	if !strings.Contains(out, "BLACKLISTED") || !strings.Contains(out, "1 of 1 keys are blacklisted") {
		t.Fatalf("unexpected check output:\n%s", out)
	}

	out, err = env.run("", "check", good)
	if err != nil {
		t.Fatalf("check of clean key failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "0 of 1 keys are blacklisted") {
		t.Fatalf("unexpected check output:\n%s", out)
	}
}

func TestCheck_CorruptedLineFails(t *testing.T) {
	env := newTestEnv(t)
	bad, _ := env.writeKeys("bad.pub", 1)
	if _, err := env.run("", "add", bad); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	badLine, err := os.ReadFile(bad)
	if err != nil {
		t.Fatalf("read keys: %v", err)
	}
	good := testutil.AuthorizedKey(t, testutil.Ed25519(t), "good")

	// The blacklisted key with its base64 blob cut short, followed by a clean key.
	truncated := strings.TrimSpace(string(badLine))
	truncated = truncated[:len(truncated)/2]
	mixed := filepath.Join(env.dir, "mixed.pub")
	if err := os.WriteFile(mixed, []byte(truncated+"\n"+good+"\n"), 0o600); err != nil {
		t.Fatalf("write keys: %v", err)
	}

	out, err := env.run("", "check", mixed)
	if !errors.Is(err, ErrUnchecked) {
		t.Fatalf("expected ErrUnchecked, got %v\n%s", err, out)
	}
	if !strings.Contains(out, "0 of 1 keys are blacklisted") {
		t.Fatalf("unexpected check output:\n%s", out)
	}
	if !strings.Contains(out, "1 keys could not be read or fingerprinted") {
		t.Fatalf("expected skipped count in output:\n%s", out)
	}
}

func TestAddFingerprint_AndList(t *testing.T) {
	env := newTestEnv(t)
	fp := strings.Repeat("ab", 32)

	if _, err := env.run("", "add-fingerprint", "zz"); !errors.Is(err, fingerprint.ErrInvalidFingerprint) {
		t.Fatalf("expected ErrInvalidFingerprint, got %v", err)
	}

	out, err := env.run("", "add-fingerprint", strings.ToUpper(fp), "--keyspec", "RSA2048")
	if err != nil {
		t.Fatalf("add-fingerprint failed: %v\n%s", err, out)
	}

	out, err = env.run("", "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, fp) || !strings.Contains(out, "RSA2048") {
		t.Fatalf("expected entry in list:\n%s", out)
	}

	out, err = env.run("", "list", "secp")
	if err != nil {
		t.Fatalf("filtered list failed: %v", err)
	}
	if !strings.Contains(out, "No blacklist entries.") {
		t.Fatalf("expected empty filtered list:\n%s", out)
	}

	if _, err := env.run("", "list", "--type", "domain"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestRemove_Confirmation(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run("", "add-fingerprint", strings.Repeat("cd", 32)); err != nil {
		t.Fatalf("add-fingerprint failed: %v", err)
	}

	old := stdinIsTerminal
	defer func() { stdinIsTerminal = old }()

	stdinIsTerminal = func() bool { return false }
	if _, err := env.run("", "remove", "1"); err == nil {
		t.Fatalf("expected refusal without --yes on non-terminal stdin")
	}

	stdinIsTerminal = func() bool { return true }
	out, err := env.run("n\n", "remove", "1")
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if !strings.Contains(out, "Aborted.") {
		t.Fatalf("expected abort, got:\n%s", out)
	}

	out, err = env.run("y\n", "remove", "1")
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if !strings.Contains(out, "Removed blacklist entry 1.") {
		t.Fatalf("expected removal, got:\n%s", out)
	}

	if _, err := env.run("", "remove", "1", "--yes"); err == nil {
		t.Fatalf("expected error removing a missing entry")
	}
	if _, err := env.run("", "remove", "abc", "--yes"); err == nil {
		t.Fatalf("expected error for non-numeric id")
	}
}

func TestImport(t *testing.T) {
	env := newTestEnv(t)
	fpA := strings.Repeat("a1", 32)
	fpB := strings.Repeat("b2", 32)

	bad := filepath.Join(env.dir, "bad.txt")
	if err := os.WriteFile(bad, []byte(fpA+"\nnot-a-fingerprint\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := env.run("", "import", bad); err == nil {
		t.Fatalf("expected error for malformed import")
	}
	out, err := env.run("", "list")
	if err != nil || !strings.Contains(out, "No blacklist entries.") {
		t.Fatalf("malformed import must not store anything: %v\n%s", err, out)
	}

	good := "# feed\n" + fpA + " RSA 1024\n\n" + strings.ToUpper(fpB) + "\n" + fpA + "\n"
	out, err = env.run(good, "import", "-")
	if err != nil {
		t.Fatalf("import failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Imported 2 entries, skipped 1 already present.") {
		t.Fatalf("unexpected import summary:\n%s", out)
	}
}

func TestExportRestore(t *testing.T) {
	env := newTestEnv(t)
	fpA := strings.Repeat("a1", 32)
	fpB := strings.Repeat("b2", 32)
	for _, fp := range []string{fpA, fpB} {
		if _, err := env.run("", "add-fingerprint", fp); err != nil {
			t.Fatalf("add-fingerprint failed: %v", err)
		}
	}

	out, err := env.run("", "export", "snap.json")
	if err != nil {
		t.Fatalf("export failed: %v\n%s", err, out)
	}
	snap := filepath.Join(env.dir, "snap.json.zst")
	if _, err := os.Stat(snap); err != nil {
		t.Fatalf("expected snapshot at %s: %v", snap, err)
	}

	if _, err := env.run("", "remove", "2", "--yes"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := env.run("", "restore", snap); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	out, err = env.run("", "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, fpA) || !strings.Contains(out, fpB) {
		t.Fatalf("expected both entries after restore:\n%s", out)
	}

	// A full restore brings back the snapshot ids.
	if _, err := env.run("", "restore", "--full", snap); err != nil {
		t.Fatalf("full restore failed: %v", err)
	}
	if _, err := env.run("", "remove", "2", "--yes"); err != nil {
		t.Fatalf("expected id 2 after full restore: %v", err)
	}
}

func TestRestore_RejectsMalformedSnapshot(t *testing.T) {
	env := newTestEnv(t)
	snap := filepath.Join(env.dir, "broken.json.zst")
	f, err := os.Create(snap)
	if err != nil {
		t.Fatalf("create snapshot: %v", err)
	}
	data := &model.BackupData{
		SchemaVersion: backupSchemaVersion,
		Entries:       []model.BlacklistEntry{{ID: 1, Type: model.KindPublicKey, Value: "zz", Data: "RSA2048"}},
	}
	if err := writeCompressedBackup(f, data); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close snapshot: %v", err)
	}

	for _, args := range [][]string{{"restore", snap}, {"restore", "--full", snap}} {
		if _, err := env.run("", args...); !errors.Is(err, fingerprint.ErrInvalidFingerprint) {
			t.Fatalf("%v: expected ErrInvalidFingerprint, got %v", args, err)
		}
	}
	out, err := env.run("", "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if strings.Contains(out, "zz") {
		t.Fatalf("malformed entry was stored:\n%s", out)
	}
}

func TestMaintenanceAndAuditLog(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run("", "add-fingerprint", strings.Repeat("ef", 32)); err != nil {
		t.Fatalf("add-fingerprint failed: %v", err)
	}

	out, err := env.run("", "maintenance", "--timeout", "30")
	if err != nil {
		t.Fatalf("maintenance failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Database maintenance completed.") {
		t.Fatalf("unexpected maintenance output:\n%s", out)
	}

	out, err = env.run("", "audit-log")
	if err != nil {
		t.Fatalf("audit-log failed: %v", err)
	}
	if !strings.Contains(out, "ADD_BLACKLIST_ENTRY") {
		t.Fatalf("expected add action in audit log:\n%s", out)
	}
}

func TestLanguageFlag(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run("", "list", "--language", "de")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "Keine Sperrlisteneinträge.") {
		t.Fatalf("expected German output, got:\n%s", out)
	}
}

func TestSetup_BadDatabaseType(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run("", "list", "--database.type", "oracle"); err == nil {
		t.Fatalf("expected error for unsupported database type")
	}
	// Commands that do not need the store still work.
	if _, err := env.run("", "version", "--database.type", "oracle"); err != nil {
		t.Fatalf("version failed: %v", err)
	}
}

func TestInitConfig_WritesUserConfig(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run("", "init-config")
	if err != nil {
		t.Fatalf("init-config failed: %v", err)
	}
	want := filepath.Join(env.dir, "keyblacklist", "keyblacklist.yaml")
	if !strings.Contains(out, want) {
		t.Skipf("user config dir differs on this platform: %s", out)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read written config: %v", err)
	}
	if !strings.Contains(string(data), "bl.db") {
		t.Fatalf("expected effective dsn in written config:\n%s", data)
	}
}

func TestCompositeVersion(t *testing.T) {
	if got := compositeVersion("v1", "abc", "2026-01-01"); got != "v1 (abc) built: 2026-01-01" {
		t.Fatalf("unexpected composite version: %q", got)
	}
	if got := compositeVersion("dev", "dev", ""); got != "dev" {
		t.Fatalf("unexpected composite version: %q", got)
	}
}

func TestConfirmed(t *testing.T) {
	for in, want := range map[string]bool{"y\n": true, "Yes\n": true, "ja\n": true, "n\n": false, "": false} {
		if got := confirmed(strings.NewReader(in)); got != want {
			t.Fatalf("confirmed(%q) = %v, want %v", in, got, want)
		}
	}
}
