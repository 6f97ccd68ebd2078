package controller

import (
	"net"
	"testing"
	"time"

	"kernel-workspace-be/internal/dto"

	fastws "github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskSocketStreamsFrames(t *testing.T) {
	app := newTestApp(&fakeKernel{llm: tokenLLM{tokens: []string{"O(", "log n)"}}}, fakeUpload{}, &fakeCommands{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	conn, _, err := fastws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/ask", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"question": "complexity of binary search?"}))

	var frames []dto.AskFrame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var f dto.AskFrame
		require.NoError(t, conn.ReadJSON(&f))
		frames = append(frames, f)
		if f.Type == "done" || f.Type == "error" {
			break
		}
	}

	assert.Equal(t, []dto.AskFrame{
		{Type: "status", Data: "Browsing the web..."},
		{Type: "route", Data: "web_search"},
		{Type: "token", Data: "O("},
		{Type: "token", Data: "log n)"},
		{Type: "done"},
	}, frames)
}

func TestAskSocketRejectsPlainHTTP(t *testing.T) {
	app := newTestApp(&fakeKernel{}, fakeUpload{}, &fakeCommands{})

	resp, _ := doJSON(t, app, "GET", "/ws/ask", "")

	assert.Equal(t, 426, resp.StatusCode)
}
