package sessions

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/teamsfx/tfx/internal/storage/dirstore"
)

func TestCreateGetRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir())

	s, err := store.Create("officeaddin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if !strings.HasPrefix(s.ID, "sess_") {
		t.Errorf("ID = %q, want sess_ prefix", s.ID)
	}

	got, err := store.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("Get ID = %q, want %q", got.ID, s.ID)
	}
	if got.Participant != "officeaddin" {
		t.Errorf("Participant = %q, want officeaddin", got.Participant)
	}
}

func TestGetNotFound(t *testing.T) {
	store := NewFileStore(t.TempDir())

	_, err := store.Get("sess_nonexistent")
	if err == nil {
		t.Fatal("expected error for missing session")
	}
	if !errors.Is(err, dirstore.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestAppendAndLoadMessages(t *testing.T) {
	store := NewFileStore(t.TempDir())

	s, err := store.Create("teams")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	msgs := []Message{
		{Role: "user", Content: "create a tab app that shows a chart", Ts: time.Now()},
		{Role: "assistant", Content: "Which host: Excel or Word?", Ts: time.Now()},
		{Role: "user", Content: "Excel", Ts: time.Now()},
		{Role: "assistant", Content: "```javascript\nawait Excel.run(...)\n```", Ts: time.Now()},
		{Role: "user", Content: "/fix", Command: "fix", Ts: time.Now()},
	}

	for _, m := range msgs {
		if err := store.AppendMessage(s.ID, m); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	loaded, err := store.LoadMessages(s.ID)
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}

	if len(loaded) != len(msgs) {
		t.Fatalf("loaded %d messages, want %d", len(loaded), len(msgs))
	}

	for i, m := range loaded {
		if m.Role != msgs[i].Role {
			t.Errorf("msg[%d].Role = %q, want %q", i, m.Role, msgs[i].Role)
		}
		if m.Content != msgs[i].Content {
			t.Errorf("msg[%d].Content = %q, want %q", i, m.Content, msgs[i].Content)
		}
	}
	if loaded[4].Command != "fix" {
		t.Errorf("msg[4].Command = %q, want fix", loaded[4].Command)
	}

	got, err := store.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.MessageCount != 5 {
		t.Errorf("MessageCount = %d, want 5", got.MessageCount)
	}
	if got.Title != "create a tab app that shows a chart" {
		t.Errorf("Title = %q", got.Title)
	}
}

func TestAppendMessage_UnknownSession(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.AppendMessage("sess_missing", Message{Role: "user", Content: "hi"}); err == nil {
		t.Fatal("expected error appending to missing session")
	}
}

func TestSaveLoadCode(t *testing.T) {
	store := NewFileStore(t.TempDir())
	s, err := store.Create("officeaddin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	code, err := store.LoadCode(s.ID)
	if err != nil {
		t.Fatalf("LoadCode: %v", err)
	}
	if code != "" {
		t.Errorf("expected no code yet, got %q", code)
	}

	want := "async function run() {\n  await Excel.run(async (context) => {});\n}"
	if err := store.SaveCode(s.ID, want); err != nil {
		t.Fatalf("SaveCode: %v", err)
	}
	if code, _ = store.LoadCode(s.ID); code != want {
		t.Errorf("LoadCode = %q, want %q", code, want)
	}
}

func TestDelete(t *testing.T) {
	store := NewFileStore(t.TempDir())

	s, err := store.Create("teams")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Delete(s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(s.ID); err == nil {
		t.Fatal("expected error after Delete")
	}
}

func TestListOrdering(t *testing.T) {
	store := NewFileStore(t.TempDir())

	s1, err := store.Create("teams")
	if err != nil {
		t.Fatalf("Create s1: %v", err)
	}
	if _, err := store.Create("teams"); err != nil {
		t.Fatalf("Create s2: %v", err)
	}
	if _, err := store.Create("officeaddin"); err != nil {
		t.Fatalf("Create s3: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	s1.LastRequest = "add a chart"
	if err := store.UpdateMeta(s1); err != nil {
		t.Fatalf("UpdateMeta: %v", err)
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List returned %d sessions, want 3", len(list))
	}
	if list[0].ID != s1.ID {
		t.Errorf("list[0].ID = %q, want %q (most recent)", list[0].ID, s1.ID)
	}
	if list[0].LastRequest != "add a chart" {
		t.Errorf("LastRequest = %q", list[0].LastRequest)
	}
}

func TestLoadMessagesEmpty(t *testing.T) {
	store := NewFileStore(t.TempDir())

	s, err := store.Create("teams")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	msgs, err := store.LoadMessages(s.ID)
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected 0 messages, got %d", len(msgs))
	}
}

func TestFileStore_RejectsPathLikeIDs(t *testing.T) {
	store := NewFileStore(t.TempDir())

	if _, err := store.Get("../../etc"); !errors.Is(err, dirstore.ErrInvalidID) {
		t.Errorf("Get error = %v, want ErrInvalidID", err)
	}
	if err := store.SaveCode("../escape", "let x = 1;"); !errors.Is(err, dirstore.ErrInvalidID) {
		t.Errorf("SaveCode error = %v, want ErrInvalidID", err)
	}
}
