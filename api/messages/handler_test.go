package messages

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightmarket/api/apitest"
	"github.com/kilianp07/freightmarket/core/model"
)

func newHandler(t *testing.T) (http.Handler, *apitest.Env) {
	t.Helper()
	env := apitest.New(t, nil)
	mux := http.NewServeMux()
	Register(mux, env.Svc)
	return env.Sessions.Middleware(mux), env
}

func TestThreadMessages(t *testing.T) {
	h, env := newHandler(t)

	res := apitest.Do(t, h, http.MethodGet, "/api/messages", nil, "")
	assert.Equal(t, http.StatusBadRequest, res.Code)
	res = apitest.Do(t, h, http.MethodGet, "/api/messages?threadId=thread-0404", nil, "")
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = apitest.Do(t, h, http.MethodGet, "/api/messages?threadId=thread-0001", nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, res.DataList(), 2)

	res = apitest.Do(t, h, http.MethodPost, "/api/messages", map[string]any{"threadId": "thread-0001", "text": "  "}, "")
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "threadId and text required", res.Body["error"])

	tok := env.Token(t, apitest.TransporterID, model.RoleTransporter)
	res = apitest.Do(t, h, http.MethodPost, "/api/messages", map[string]any{"threadId": "thread-0001", "text": " On our way "}, tok)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "On our way", res.DataMap()["text"])
	assert.Equal(t, "transporter", res.DataMap()["senderRole"])
	assert.Equal(t, apitest.TransporterID, res.DataMap()["senderId"])

	res = apitest.Do(t, h, http.MethodPost, "/api/messages", map[string]any{"threadId": "thread-0001", "text": "hi"}, "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "shipper", res.DataMap()["senderRole"])
	assert.Nil(t, res.DataMap()["senderId"])

	res = apitest.Do(t, h, http.MethodGet, "/api/messages?threadId=thread-0001", nil, "")
	list := res.DataList()
	require.Len(t, list, 4)
	assert.Equal(t, "hi", list[3].(map[string]any)["text"])
}

func TestPostMessageAudited(t *testing.T) {
	h, env := newHandler(t)
	long := strings.Repeat("x", 80)
	res := apitest.Do(t, h, http.MethodPost, "/api/messages", map[string]any{"threadId": "thread-0001", "text": long, "senderRole": "shipper"}, "")
	require.Equal(t, http.StatusOK, res.Code)

	logs := env.Svc.Logs(1)
	require.Len(t, logs, 1)
	assert.Equal(t, "+ "+strings.Repeat("x", 60), logs[0].Detail)
}
