package sessions

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teamsfx/tfx/internal/storage/dirstore"
)

const (
	messagesFile = "messages.jsonl"
	codeFile     = "code.js"
)

// FileStore persists sessions as directories with meta.json, messages.jsonl
// and the last generated code.
type FileStore struct {
	ds *dirstore.DirStore
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore rooted at baseDir.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{ds: dirstore.NewDirStore(baseDir, "session")}
}

func generateSessionID() string {
	u := uuid.New().String()
	return "sess_" + strings.ReplaceAll(u[:8], "-", "")
}

// Create initialises a new session directory with meta.json.
func (fs *FileStore) Create(participant string) (*Session, error) {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	now := time.Now()
	s := &Session{
		ID:          generateSessionID(),
		Participant: participant,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := fs.ds.EnsureDir(s.ID); err != nil {
		return nil, err
	}
	if err := fs.ds.WriteMeta(s.ID, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get reads session metadata by ID.
func (fs *FileStore) Get(id string) (*Session, error) {
	fs.ds.RLock()
	defer fs.ds.RUnlock()

	return fs.readMeta(id)
}

// List returns all sessions sorted by UpdatedAt descending.
func (fs *FileStore) List() ([]*Session, error) {
	fs.ds.RLock()
	defer fs.ds.RUnlock()

	ids, err := fs.ds.ListDirs()
	if err != nil {
		return nil, err
	}

	var sessions []*Session
	for _, id := range ids {
		s, err := fs.readMeta(id)
		if err != nil {
			continue // skip corrupted sessions
		}
		sessions = append(sessions, s)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// UpdateMeta atomically rewrites a session's meta.json.
func (fs *FileStore) UpdateMeta(s *Session) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	s.UpdatedAt = time.Now()
	return fs.ds.WriteMeta(s.ID, s)
}

// Delete removes a session and its history.
func (fs *FileStore) Delete(id string) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	return fs.ds.RemoveDir(id)
}

// AppendMessage appends a message to the session's JSONL file and updates meta.
func (fs *FileStore) AppendMessage(sessionID string, msg Message) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	s, err := fs.readMeta(sessionID)
	if err != nil {
		return err
	}
	if msg.Ts.IsZero() {
		msg.Ts = time.Now()
	}
	if err := fs.ds.AppendJSONL(sessionID, messagesFile, msg); err != nil {
		return err
	}

	s.MessageCount++
	s.UpdatedAt = time.Now()
	if s.Title == "" && msg.Role == "user" {
		s.Title = truncate(msg.Content, 60)
	}
	return fs.ds.WriteMeta(sessionID, s)
}

// AddTokenUsage adds to a session's token counters.
func (fs *FileStore) AddTokenUsage(sessionID string, input, output int) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	s, err := fs.readMeta(sessionID)
	if err != nil {
		return err
	}
	s.TokenUsage.Input += input
	s.TokenUsage.Output += output
	return fs.ds.WriteMeta(sessionID, s)
}

// LoadMessages reads all messages from a session's JSONL file.
func (fs *FileStore) LoadMessages(sessionID string) ([]Message, error) {
	fs.ds.RLock()
	defer fs.ds.RUnlock()

	return dirstore.LoadJSONL[Message](fs.ds, sessionID, messagesFile)
}

// SaveCode replaces the session's code snapshot.
func (fs *FileStore) SaveCode(sessionID, code string) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	if err := fs.ds.EnsureDir(sessionID); err != nil {
		return err
	}
	return fs.ds.WriteFileAtomic(sessionID, codeFile, []byte(code))
}

// LoadCode returns the session's code snapshot, or "" when none was saved.
func (fs *FileStore) LoadCode(sessionID string) (string, error) {
	fs.ds.RLock()
	defer fs.ds.RUnlock()

	data, err := fs.ds.ReadFileContent(sessionID, codeFile)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (fs *FileStore) readMeta(id string) (*Session, error) {
	var s Session
	if err := fs.ds.ReadMeta(id, &s); err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return &s, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "…"
	}
	return s
}
