//go:build linux || darwin

package mioco

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// TestFDSourceEchoRoundTrip is scenario S1: a coroutine blocked on an
// FDSource wakes on read-readiness, echoes what it read back out, and a
// plain (non-coroutine) peer on the other end of the pair observes its own
// bytes reflected back.
func TestFDSourceEchoRoundTrip(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	serverFD, clientFD := fds[0], fds[1]
	defer unix.Close(clientFD)

	require.NoError(t, unix.SetNonblock(serverFD, true))

	done := make(chan struct{})

	go StartThreads(1, func() error {
		co := mustCurrent()
		src := NewFDSource(serverFD)
		srcID, err := co.Attach(src, DirRead)
		if err != nil {
			return err
		}
		defer co.Detach(srcID)
		defer unix.Close(serverFD)

		for i := 0; i < 2; i++ {
			if _, err := co.Select(srcID); err != nil {
				return err
			}
			buf := make([]byte, 64)
			n, err := unix.Read(serverFD, buf)
			if err != nil {
				return err
			}
			if n == 0 {
				break
			}
			if _, err := unix.Write(serverFD, buf[:n]); err != nil {
				return err
			}
		}
		close(done)
		return nil
	})

	_, err = unix.Write(clientFD, []byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := unix.Read(clientFD, buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))

	_, err = unix.Write(clientFD, []byte("second"))
	require.NoError(t, err)
	n, err = unix.Read(clientFD, buf)
	require.NoError(t, err)
	require.Equal(t, "second", string(buf[:n]))

	<-done
}
