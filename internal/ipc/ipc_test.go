package ipc

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"friday/internal/shell"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "friday.sock")

	var got []ControlMessage
	srv, err := StartServer(path, func(msg ControlMessage) Reply {
		got = append(got, msg)
		if msg.Cmd == CmdListen {
			return Reply{Error: "listening session already active"}
		}
		return Reply{State: &shell.State{Transcript: msg.Text, Supported: true}}
	})
	require.NoError(t, err)
	defer srv.Close()

	r, err := SendCommand(path, ControlMessage{Cmd: CmdAsk, Text: "open youtube"})
	require.NoError(t, err)
	require.NotNil(t, r.State)
	assert.Equal(t, "open youtube", r.State.Transcript)
	assert.Empty(t, r.Error)

	r, err = SendCommand(path, ControlMessage{Cmd: CmdListen})
	require.NoError(t, err)
	assert.Equal(t, "listening session already active", r.Error)
	assert.Nil(t, r.State)

	assert.Equal(t, []ControlMessage{{Cmd: CmdAsk, Text: "open youtube"}, {Cmd: CmdListen}}, got)
}

func TestBadRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "friday.sock")

	srv, err := StartServer(path, func(ControlMessage) Reply {
		t.Error("handler must not run")
		return Reply{}
	})
	require.NoError(t, err)
	defer srv.Close()

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not json\n"))
	require.NoError(t, err)

	buf := make([]byte, 256)
	n, _ := conn.Read(buf)
	assert.Contains(t, string(buf[:n]), "bad request")
}

func TestSendWithoutServer(t *testing.T) {
	_, err := SendCommand(filepath.Join(t.TempDir(), "none.sock"), ControlMessage{Cmd: CmdState})
	assert.Error(t, err)
}
