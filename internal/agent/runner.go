package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/teamsfx/tfx/internal/chat"
	"github.com/teamsfx/tfx/internal/events"
	"github.com/teamsfx/tfx/internal/sessions"
)

// ErrUnknownParticipant is returned for requests addressed to nobody we know.
var ErrUnknownParticipant = errors.New("unknown participant")

// Reply is the outcome of one conversation turn.
type Reply struct {
	SessionID string
	Result    chat.Result
	Followups []chat.Followup
	Parts     []chat.Part
}

// Text returns the markdown written during the turn.
func (r Reply) Text() string {
	var sb strings.Builder
	for _, p := range r.Parts {
		if p.Kind == chat.PartMarkdown {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// Runner routes requests to participants and keeps the conversation
// history in the session store.
type Runner struct {
	participants map[string]*Participant
	fallback     string
	store        sessions.Store
	bus          chat.Publisher
}

// NewRunner creates a Runner. The first participant answers requests that
// name none. store may be nil, in which case every turn stands alone.
func NewRunner(store sessions.Store, bus chat.Publisher, participants ...*Participant) *Runner {
	r := &Runner{
		participants: make(map[string]*Participant, len(participants)),
		store:        store,
		bus:          bus,
	}
	for i, p := range participants {
		if i == 0 {
			r.fallback = p.ID
		}
		r.participants[p.ID] = p
	}
	return r
}

// Participant returns the participant registered under id.
func (r *Runner) Participant(id string) (*Participant, bool) {
	if id == "" {
		id = r.fallback
	}
	p, ok := r.participants[id]
	return p, ok
}

// Run answers one turn. A missing SessionID opens a new session when a
// store is configured; the turn is appended to it afterwards.
func (r *Runner) Run(ctx context.Context, req *chat.Request) (Reply, error) {
	p, ok := r.Participant(req.Participant)
	if !ok {
		return Reply{}, fmt.Errorf("%w: %s", ErrUnknownParticipant, req.Participant)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if r.store != nil {
		if err := r.prepareSession(ctx, p.ID, req); err != nil {
			return Reply{}, err
		}
		ctx = events.ContextWithSessionID(ctx, req.SessionID)
	}

	rec := chat.NewRecorder()
	if req.Stream == nil {
		req.Stream = rec
	} else {
		req.Stream = chat.Tee(rec, req.Stream)
	}

	prompt := req.Prompt
	res, err := p.Handle(ctx, req)
	if err != nil {
		return Reply{SessionID: req.SessionID}, err
	}

	reply := Reply{
		SessionID: req.SessionID,
		Result:    res.Result,
		Followups: p.FollowUps(res),
		Parts:     rec.Parts(),
	}
	r.record(req, prompt, rec.Text())
	return reply, nil
}

func (r *Runner) prepareSession(ctx context.Context, participant string, req *chat.Request) error {
	if req.SessionID == "" {
		s, err := r.store.Create(participant)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		req.SessionID = s.ID
		if r.bus != nil {
			r.bus.Publish(events.NewTypedEventWithSession(events.SourceAgent,
				events.SessionCreatedPayload{Participant: participant}, s.ID))
		}
		slog.Debug("session created", "session", s.ID, "participant", participant)
	}
	if req.History != nil {
		return nil
	}

	msgs, err := r.store.LoadMessages(req.SessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", req.SessionID, err)
	}
	history := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, m.ToSchemaMessage())
	}
	req.History = history
	return ctx.Err()
}

// record appends the turn to the session. Failures only log: the user
// already has the answer.
func (r *Runner) record(req *chat.Request, prompt, answer string) {
	if r.store == nil || req.SessionID == "" {
		return
	}
	user := sessions.Message{Role: string(schema.User), Content: prompt, Command: req.SlashCommand}
	if err := r.store.AppendMessage(req.SessionID, user); err != nil {
		slog.Warn("append user message", "session", req.SessionID, "error", err)
		return
	}
	if answer == "" {
		return
	}
	assistant := sessions.Message{Role: string(schema.Assistant), Content: answer, Command: req.SlashCommand}
	if err := r.store.AppendMessage(req.SessionID, assistant); err != nil {
		slog.Warn("append assistant message", "session", req.SessionID, "error", err)
		return
	}
	s, err := r.store.Get(req.SessionID)
	if err != nil {
		return
	}
	s.LastResponse = answer
	if err := r.store.UpdateMeta(s); err != nil {
		slog.Warn("update session", "session", req.SessionID, "error", err)
	}
}
