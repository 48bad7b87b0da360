package input

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBootstrapAndDispatchOverLoopback(t *testing.T) {
	recv, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer recv.Close()

	sender, err := Dial("127.0.0.1:0", recv.conn.LocalAddr().String())
	require.NoError(t, err)
	defer sender.Close()

	require.NoError(t, sender.Bootstrap())

	e := &recordingEmulator{}
	quit := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- recv.Run(e, quit) }()

	require.NoError(t, sender.Send(MouseClickEvent{Button: MouseButtonLeft, State: KeyPressed}))

	require.Eventually(t, func() bool {
		return e.clicks == 1
	}, time.Second, 5*time.Millisecond)

	close(quit)
	recv.conn.Close()
	<-done
}
