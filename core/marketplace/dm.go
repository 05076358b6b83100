package marketplace

import (
	"context"
	"strings"

	"github.com/kilianp07/freightmarket/core/apperr"
	"github.com/kilianp07/freightmarket/core/events"
	"github.com/kilianp07/freightmarket/core/ids"
	"github.com/kilianp07/freightmarket/core/model"
)

// SendDM is a direct message addressed by thread or by peer.
type SendDM struct {
	ThreadID string `json:"threadId"`
	PeerID   string `json:"peerId"`
	Text     string `json:"text"`
}

func requireUser(actor model.Actor) error {
	if actor.UserID == "" {
		return apperr.Unauthorized("login required")
	}
	return nil
}

// OpenDMThread returns the thread between the actor and peerID, creating it
// on first contact.
func (s *Service) OpenDMThread(ctx context.Context, actor model.Actor, peerID string) (model.DMThread, error) {
	if err := requireUser(actor); err != nil {
		return model.DMThread{}, err
	}
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return model.DMThread{}, apperr.Validation("peerId required")
	}
	if peerID == actor.UserID {
		return model.DMThread{}, apperr.Validation("cannot message yourself")
	}
	if _, err := s.repo.User(ctx, peerID); err != nil {
		return model.DMThread{}, lookup(err, "user not found")
	}
	key, members := model.PairKey(actor.UserID, peerID)
	th, created, err := s.repo.GetOrCreateDMThread(ctx, key, func() model.DMThread {
		now := s.clock()
		return model.DMThread{ID: s.ids.Next(ids.DM), Members: members, CreatedAt: now, UpdatedAt: now}
	})
	if err != nil {
		return model.DMThread{}, storeErr("open dm thread", err)
	}
	if created {
		s.log.Debugf("dm thread %s opened between %s and %s", th.ID, members[0], members[1])
	}
	return th, nil
}

// ListDMThreads returns the threads of the actor, most recently active first.
func (s *Service) ListDMThreads(ctx context.Context, actor model.Actor) ([]model.DMThread, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	threads, err := s.repo.DMThreadsForUser(ctx, actor.UserID)
	if err != nil {
		return nil, storeErr("list dm threads", err)
	}
	if threads == nil {
		threads = []model.DMThread{}
	}
	return threads, nil
}

// ListDMMessages returns the messages of a thread the actor belongs to.
func (s *Service) ListDMMessages(ctx context.Context, actor model.Actor, threadID string) ([]model.DMMessage, error) {
	th, err := s.memberThread(ctx, actor, threadID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.repo.DMMessages(ctx, th.ID)
	if err != nil {
		return nil, storeErr("list dm messages", err)
	}
	return msgs, nil
}

// SendDirectMessage appends a message and pushes dm:message to both members.
func (s *Service) SendDirectMessage(ctx context.Context, actor model.Actor, in SendDM) (model.DMMessage, error) {
	if err := requireUser(actor); err != nil {
		return model.DMMessage{}, err
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return model.DMMessage{}, apperr.Validation("text required")
	}
	var (
		th  model.DMThread
		err error
	)
	switch {
	case in.ThreadID != "":
		th, err = s.memberThread(ctx, actor, in.ThreadID)
	case in.PeerID != "":
		th, err = s.OpenDMThread(ctx, actor, in.PeerID)
	default:
		err = apperr.Validation("threadId or peerId required")
	}
	if err != nil {
		return model.DMMessage{}, err
	}
	m := model.DMMessage{
		ID:       s.ids.Next(ids.Message),
		ThreadID: th.ID,
		SenderID: actor.UserID,
		Text:     text,
		TS:       s.clock(),
	}
	if err := s.repo.AppendDMMessage(ctx, m); err != nil {
		return model.DMMessage{}, storeErr("append dm message", err)
	}
	s.pub.EmitToUsers(th.Members[:], events.DMMessage, m)
	return m, nil
}

func (s *Service) memberThread(ctx context.Context, actor model.Actor, threadID string) (model.DMThread, error) {
	if err := requireUser(actor); err != nil {
		return model.DMThread{}, err
	}
	if threadID == "" {
		return model.DMThread{}, apperr.Validation("threadId required")
	}
	th, err := s.repo.DMThread(ctx, threadID)
	if err != nil {
		return model.DMThread{}, lookup(err, "thread not found")
	}
	if !th.HasMember(actor.UserID) {
		return model.DMThread{}, apperr.Forbidden("not a member of this thread")
	}
	return th, nil
}
