package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filippo.io/age"

	"github.com/teamsfx/tfx/internal/drivers"
	"github.com/teamsfx/tfx/internal/secrets"
)

const projectYAML = `version: v1.5
provision:
  - uses: test/register
    name: register key
    with:
      name: ${{APP_NAME}}-key
      appId: ${{TEAMS_APP_ID}}
      nested:
        - ${{ TEAMS_APP_ID }}
    writeToEnvironmentFile:
      registrationId: API_KEY_ID
      secret: SECRET_API_KEY
  - uses: test/echo
    with:
      previous: ${{API_KEY_ID}}
deploy:
  - uses: test/missing
`

// recordingDriver returns its args' "name" as registrationId.
type recordingDriver struct {
	args []map[string]any
	env  []map[string]string
}

func (d *recordingDriver) Description() string { return "recording" }

func (d *recordingDriver) Execute(_ context.Context, args map[string]any, dc *drivers.Context, out map[string]string) drivers.ExecutionResult {
	d.args = append(d.args, args)
	d.env = append(d.env, dc.Env)
	outputs := map[string]string{}
	if name, ok := out["registrationId"]; ok {
		outputs[name] = "reg-" + args["name"].(string)
	}
	if name, ok := out["secret"]; ok {
		outputs[name] = "top-secret"
	}
	return drivers.OK(outputs, "done")
}

type failingDriver struct{}

func (failingDriver) Description() string { return "failing" }

func (failingDriver) Execute(context.Context, map[string]any, *drivers.Context, map[string]string) drivers.ExecutionResult {
	return drivers.Fail(errors.New("boom"))
}

func writeProject(t *testing.T, yml string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ProjectFile), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "env"), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	p, err := Load(writeProject(t, projectYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(p.Provision) != 2 || len(p.Deploy) != 1 {
		t.Fatalf("unexpected stages %+v", p)
	}
	if p.Provision[0].Label() != "register key" || p.Provision[1].Label() != "test/echo" {
		t.Errorf("unexpected labels %q %q", p.Provision[0].Label(), p.Provision[1].Label())
	}
	if _, err := p.Stage("destroy"); err == nil {
		t.Error("expected error for unknown stage")
	}
}

func TestLoad_StepWithoutUses(t *testing.T) {
	if _, err := Load(writeProject(t, "provision:\n  - name: nothing\n")); err == nil {
		t.Error("expected error for step without uses")
	}
}

func TestExpand(t *testing.T) {
	in := map[string]any{"a": "${{X}}/${{Y}}", "b": []any{"${{X}}", 3}}
	out, missing := Expand(in, map[string]string{"X": "x"})
	m := out.(map[string]any)
	if m["a"] != "x/${{Y}}" {
		t.Errorf("unexpected a %v", m["a"])
	}
	if m["b"].([]any)[0] != "x" || m["b"].([]any)[1] != 3 {
		t.Errorf("unexpected b %v", m["b"])
	}
	if len(missing) != 1 || missing[0] != "Y" {
		t.Errorf("expected Y missing, got %v", missing)
	}
}

func TestRun_Provision(t *testing.T) {
	dir := writeProject(t, projectYAML)
	envPath, userPath := EnvFile(dir, "dev")
	if err := secrets.SetEntries(envPath, map[string]string{"APP_NAME": "contoso", "TEAMS_APP_ID": "app-1"}); err != nil {
		t.Fatal(err)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}
	enc, err := secrets.Encrypt("hunter2", identity.Recipient())
	if err != nil {
		t.Fatal(err)
	}
	if err := secrets.SetEntries(userPath, map[string]string{"SECRET_DB": enc}); err != nil {
		t.Fatal(err)
	}

	reg := drivers.NewRegistry(nil)
	rec := &recordingDriver{}
	echo := &recordingDriver{}
	if err := reg.Register("test/register", rec); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register("test/echo", echo); err != nil {
		t.Fatal(err)
	}

	r := &Runner{Drivers: reg, Identity: identity}
	results, err := r.Run(context.Background(), dir, StageProvision, "dev")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if got := strings.Join(results[0].Outputs, ","); got != "API_KEY_ID,SECRET_API_KEY" {
		t.Errorf("unexpected outputs %q", got)
	}

	if rec.args[0]["name"] != "contoso-key" || rec.args[0]["appId"] != "app-1" {
		t.Errorf("unexpected expanded args %v", rec.args[0])
	}
	if nested := rec.args[0]["nested"].([]any); nested[0] != "app-1" {
		t.Errorf("expected nested expansion, got %v", nested)
	}
	if rec.env[0]["SECRET_DB"] != "hunter2" {
		t.Errorf("expected decrypted secret, got %q", rec.env[0]["SECRET_DB"])
	}
	if rec.env[0]["TEAMSFX_ENV"] != "dev" {
		t.Errorf("expected TEAMSFX_ENV=dev, got %q", rec.env[0]["TEAMSFX_ENV"])
	}
	if echo.args[0]["previous"] != "reg-contoso-key" {
		t.Errorf("expected output of previous step, got %v", echo.args[0]["previous"])
	}

	entries, err := secrets.ReadEntries(envPath)
	if err != nil {
		t.Fatal(err)
	}
	if entries["API_KEY_ID"] != "reg-contoso-key" {
		t.Errorf("expected API_KEY_ID persisted, got %q", entries["API_KEY_ID"])
	}
	if _, ok := entries["SECRET_API_KEY"]; ok {
		t.Error("secret written to the plain env file")
	}
	user, err := secrets.ReadEntries(userPath)
	if err != nil {
		t.Fatal(err)
	}
	if !secrets.IsEncrypted(user["SECRET_API_KEY"]) {
		t.Errorf("expected encrypted secret, got %q", user["SECRET_API_KEY"])
	}
	plain, err := secrets.Decrypt(user["SECRET_API_KEY"], identity)
	if err != nil || plain != "top-secret" {
		t.Errorf("expected top-secret, got %q %v", plain, err)
	}
}

func TestRun_UnknownDriver(t *testing.T) {
	dir := writeProject(t, projectYAML)
	r := &Runner{Drivers: drivers.NewRegistry(nil)}

	_, err := r.Run(context.Background(), dir, StageDeploy, "dev")
	if !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("expected ErrUnknownDriver, got %v", err)
	}
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	dir := writeProject(t, projectYAML)
	reg := drivers.NewRegistry(nil)
	echo := &recordingDriver{}
	if err := reg.Register("test/register", failingDriver{}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register("test/echo", echo); err != nil {
		t.Fatal(err)
	}

	results, err := (&Runner{Drivers: reg}).Run(context.Background(), dir, StageProvision, "dev")
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
	if len(echo.args) != 0 {
		t.Error("expected second step not to run")
	}
}

func TestRun_EncryptedWithoutKey(t *testing.T) {
	dir := writeProject(t, projectYAML)
	_, userPath := EnvFile(dir, "dev")
	if err := secrets.SetEntries(userPath, map[string]string{"SECRET_X": "ENC[age:abc]"}); err != nil {
		t.Fatal(err)
	}

	_, err := (&Runner{Drivers: drivers.NewRegistry(nil)}).Run(context.Background(), dir, StageProvision, "dev")
	if err == nil || !strings.Contains(err.Error(), "no key") {
		t.Errorf("expected missing key error, got %v", err)
	}
}
