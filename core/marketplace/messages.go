package marketplace

import (
	"context"
	"sort"
	"strings"

	"github.com/kilianp07/freightmarket/core/apperr"
	"github.com/kilianp07/freightmarket/core/audit"
	"github.com/kilianp07/freightmarket/core/ids"
	"github.com/kilianp07/freightmarket/core/model"
)

// NewMessage is a message posted to a booking thread.
type NewMessage struct {
	ThreadID   string `json:"threadId"`
	Text       string `json:"text"`
	SenderRole string `json:"senderRole"`
}

// ListMessages returns the messages of a booking thread, oldest first.
func (s *Service) ListMessages(ctx context.Context, threadID string) ([]model.Message, error) {
	if threadID == "" {
		return nil, apperr.Validation("threadId required")
	}
	if _, err := s.repo.Thread(ctx, threadID); err != nil {
		return nil, lookup(err, "thread not found")
	}
	msgs, err := s.repo.Messages(ctx, threadID)
	if err != nil {
		return nil, storeErr("list messages", err)
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].TS.Before(msgs[j].TS) })
	return msgs, nil
}

// PostMessage appends a message to a booking thread. The sender role defaults
// to the actor role, then to shipper.
func (s *Service) PostMessage(ctx context.Context, actor model.Actor, in NewMessage) (model.Message, error) {
	text := strings.TrimSpace(in.Text)
	if in.ThreadID == "" || text == "" {
		return model.Message{}, apperr.Validation("threadId and text required")
	}
	if _, err := s.repo.Thread(ctx, in.ThreadID); err != nil {
		return model.Message{}, lookup(err, "thread not found")
	}
	role := strings.TrimSpace(in.SenderRole)
	if role == "" {
		role = string(actor.Role)
	}
	if role == "" {
		role = string(model.RoleShipper)
	}
	m := model.Message{
		ID:         s.ids.Next(ids.Message),
		ThreadID:   in.ThreadID,
		SenderRole: role,
		SenderID:   actor.UserID,
		Text:       text,
		TS:         s.clock(),
	}
	if err := s.repo.AppendMessage(ctx, m); err != nil {
		return model.Message{}, storeErr("append message", err)
	}
	s.audit.Record(ctx, actor.Label(role), audit.TypeMessage, in.ThreadID, "+ "+truncate(text, 60))
	return m, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
