package metrix_test

import (
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bincyber/beesly/pkg/metrix"
	"github.com/stretchr/testify/require"
)

func TestEmitter(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()

	port := conn.LocalAddr().(*net.UDPAddr).Port

	emitter, err := metrix.New("127.0.0.1", port, "beesly")
	require.NoError(t, err)
	defer emitter.Close()

	read := func() string {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		buf := make([]byte, 1024)
		n, _, err := conn.ReadFromUDP(buf)
		require.NoError(t, err)
		return string(buf[:n])
	}

	t.Run("counter carries prefix", func(t *testing.T) {
		emitter.Incr("auth_success")

		packet := read()
		require.True(t, strings.HasPrefix(packet, "beesly.auth_success:"), packet)
		require.Contains(t, packet, "|c")
	})

	t.Run("timer records milliseconds", func(t *testing.T) {
		emitter.Timing("pam_auth", 250*time.Millisecond)

		packet := read()
		require.True(t, strings.HasPrefix(packet, "beesly.pam_auth:"), packet)
		require.Contains(t, packet, "|ms")

		value := packet[strings.Index(packet, ":")+1 : strings.Index(packet, "|")]
		ms, err := strconv.ParseFloat(value, 64)
		require.NoError(t, err)
		require.InDelta(t, 250, ms, 1)
	})
}

func TestNoopEmitter(t *testing.T) {
	emitter := metrix.NewNoop()

	emitter.Incr("auth_success")
	emitter.Timing("pam_auth", time.Second)
	require.NoError(t, emitter.Close())
}
