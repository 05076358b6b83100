package marketplace

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightmarket/core/apperr"
	"github.com/kilianp07/freightmarket/core/events"
	"github.com/kilianp07/freightmarket/core/model"
)

func TestBookingMessages(t *testing.T) {
	env := newEnv(t)
	_, acc := bookedShipment(t, env)

	_, err := env.svc.PostMessage(env.ctx, model.Actor{}, NewMessage{ThreadID: acc.ThreadID})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = env.svc.PostMessage(env.ctx, model.Actor{}, NewMessage{Text: "hi"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = env.svc.PostMessage(env.ctx, model.Actor{}, NewMessage{ThreadID: "thread-0404", Text: "hi"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.EqualError(t, err, "thread not found")

	m, err := env.svc.PostMessage(env.ctx, model.Actor{}, NewMessage{ThreadID: acc.ThreadID, Text: "pickup at 8?"})
	require.NoError(t, err)
	assert.Equal(t, "shipper", m.SenderRole)

	m, err = env.svc.PostMessage(env.ctx, model.Actor{UserID: "user-0003", Role: model.RoleTransporter}, NewMessage{ThreadID: acc.ThreadID, Text: "yes"})
	require.NoError(t, err)
	assert.Equal(t, "transporter", m.SenderRole)
	assert.Equal(t, "user-0003", m.SenderID)

	m, err = env.svc.PostMessage(env.ctx, model.Actor{Role: model.RoleTransporter}, NewMessage{ThreadID: acc.ThreadID, Text: "ok", SenderRole: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "admin", m.SenderRole)

	msgs, err := env.svc.ListMessages(env.ctx, acc.ThreadID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].TS.Before(msgs[i-1].TS))
	}
	assert.Equal(t, "ok", msgs[3].Text)

	_, err = env.svc.ListMessages(env.ctx, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = env.svc.ListMessages(env.ctx, "thread-0404")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 60))
	long := strings.Repeat("é", 70)
	assert.Equal(t, strings.Repeat("é", 60), truncate(long, 60))
}

func seedUsers(t *testing.T, env *fixtureEnv, n int) []model.User {
	t.Helper()
	var out []model.User
	for i := 0; i < n; i++ {
		u := model.User{ID: env.svc.ids.Next("user"), Name: "U", Role: model.RoleShipper}
		require.NoError(t, env.repo.CreateUser(env.ctx, u))
		out = append(out, u)
	}
	return out
}

func TestDMThreadDedup(t *testing.T) {
	env := newEnv(t)
	users := seedUsers(t, env, 3)
	a := model.Actor{UserID: users[0].ID}
	b := model.Actor{UserID: users[1].ID}

	t1, err := env.svc.OpenDMThread(env.ctx, a, users[1].ID)
	require.NoError(t, err)
	t2, err := env.svc.OpenDMThread(env.ctx, b, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, t1.ID, t2.ID)
	assert.Equal(t, [2]string{users[0].ID, users[1].ID}, t1.Members)

	t3, err := env.svc.OpenDMThread(env.ctx, a, users[2].ID)
	require.NoError(t, err)
	assert.NotEqual(t, t1.ID, t3.ID)
}

func TestDMThreadConcurrentDedup(t *testing.T) {
	env := newEnv(t)
	users := seedUsers(t, env, 2)
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got = map[string]bool{}
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			self, peer := users[i%2].ID, users[(i+1)%2].ID
			th, err := env.svc.OpenDMThread(env.ctx, model.Actor{UserID: self}, peer)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			got[th.ID] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	assert.Len(t, got, 1)
}

func TestDMAccessRules(t *testing.T) {
	env := newEnv(t)
	users := seedUsers(t, env, 3)
	a := model.Actor{UserID: users[0].ID}
	outsider := model.Actor{UserID: users[2].ID}

	_, err := env.svc.OpenDMThread(env.ctx, model.Actor{}, users[1].ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = env.svc.ListDMThreads(env.ctx, model.Actor{Role: model.RoleShipper})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = env.svc.OpenDMThread(env.ctx, a, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = env.svc.OpenDMThread(env.ctx, a, a.UserID)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = env.svc.OpenDMThread(env.ctx, a, "user-0404")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	th, err := env.svc.OpenDMThread(env.ctx, a, users[1].ID)
	require.NoError(t, err)
	_, err = env.svc.ListDMMessages(env.ctx, outsider, th.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = env.svc.SendDirectMessage(env.ctx, outsider, SendDM{ThreadID: th.ID, Text: "hey"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = env.svc.ListDMMessages(env.ctx, a, "dm-0404")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = env.svc.SendDirectMessage(env.ctx, a, SendDM{Text: "hey"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = env.svc.SendDirectMessage(env.ctx, a, SendDM{ThreadID: th.ID})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSendDirectMessage(t *testing.T) {
	env := newEnv(t)
	users := seedUsers(t, env, 3)
	a := model.Actor{UserID: users[0].ID}
	b := model.Actor{UserID: users[1].ID}

	m1, err := env.svc.SendDirectMessage(env.ctx, a, SendDM{PeerID: b.UserID, Text: "hello"})
	require.NoError(t, err)
	m2, err := env.svc.SendDirectMessage(env.ctx, b, SendDM{ThreadID: m1.ThreadID, Text: "hi back"})
	require.NoError(t, err)
	assert.Equal(t, m1.ThreadID, m2.ThreadID)

	msgs, err := env.svc.ListDMMessages(env.ctx, a, m1.ThreadID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi back", msgs[1].Text)

	env.pub.mu.Lock()
	private := append([]emitted(nil), env.pub.private...)
	env.pub.mu.Unlock()
	require.Len(t, private, 2)
	assert.Equal(t, events.DMMessage, private[0].Name)
	assert.ElementsMatch(t, []string{a.UserID, b.UserID}, private[0].Users)
	assert.Empty(t, env.pub.publicNames())

	_, err = env.svc.SendDirectMessage(env.ctx, a, SendDM{PeerID: users[2].ID, Text: "other"})
	require.NoError(t, err)
	threads, err := env.svc.ListDMThreads(env.ctx, a)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.True(t, threads[0].HasMember(users[2].ID))

	threads, err = env.svc.ListDMThreads(env.ctx, b)
	require.NoError(t, err)
	assert.Len(t, threads, 1)
}
