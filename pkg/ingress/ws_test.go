package ingress

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytebullet/bytebullet/pkg/config"
	"github.com/bytebullet/bytebullet/pkg/protocol"

	"github.com/repeale/fp-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

const iPhone = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"

func setup(t *testing.T, modify func(*config.Config)) (*WSIngress, string) {
	t.Helper()
	config, err := config.Process(nil)
	require.NoError(t, err)
	if modify != nil {
		modify(config)
	}

	ingress := NewWSIngress(context.Background(), *config)
	server := httptest.NewServer(ingress)
	t.Cleanup(server.Close)
	return ingress, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, ctx context.Context, url string, header http.Header) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close(websocket.StatusNormalClosure, "")
	})
	return c
}

func send(t *testing.T, ctx context.Context, c *websocket.Conn, message any) {
	t.Helper()
	bytes, err := protocol.Encode(message)
	require.NoError(t, err)
	require.NoError(t, c.Write(ctx, websocket.MessageBinary, bytes))
}

func receive(t *testing.T, ctx context.Context, c *websocket.Conn) any {
	t.Helper()
	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	message, err := protocol.Decode(data)
	require.NoError(t, err)
	return message
}

func hello() protocol.HelloMessage {
	return protocol.HelloMessage{
		Op:     protocol.HelloOp,
		Width:  800,
		Height: 600,
	}
}

func TestSession(t *testing.T) {
	ingress, url := setup(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := dial(t, ctx, url, nil)
	send(t, ctx, c, hello())

	welcome, ok := receive(t, ctx, c).(*protocol.WelcomeMessage)
	require.True(t, ok)
	assert.Equal(t, uint32(1), welcome.Session)
	assert.False(t, welcome.Touch)
	assert.Equal(t, "first-person", welcome.Camera)

	frame, ok := receive(t, ctx, c).(*protocol.FrameMessage)
	require.True(t, ok)
	assert.Len(t, frame.Loaded, 25)

	assert.Equal(t, 1, ingress.NumClients())
	client := ingress.Client(1)
	require.True(t, opt.IsSome(client))
	assert.Equal(t, "desktop", client.Value.Device)
	assert.True(t, opt.IsNone(ingress.Client(2)))

	send(t, ctx, c, protocol.PointerMessage{Op: protocol.PointerOp, Device: "mouse", Button: 0})
	for {
		frame, ok = receive(t, ctx, c).(*protocol.FrameMessage)
		require.True(t, ok)
		if len(frame.Projectiles) > 0 {
			break
		}
	}

	status := ingress.Status()
	assert.Equal(t, 1, status.Sessions)
	assert.Equal(t, uint64(1), status.Accepted)

	c.Close(websocket.StatusNormalClosure, "bye")
	require.Eventually(t, func() bool {
		return ingress.NumClients() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestNoDisplaySurface(t *testing.T) {
	ingress, url := setup(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := dial(t, ctx, url, nil)
	send(t, ctx, c, protocol.HelloMessage{Op: protocol.HelloOp})

	message, ok := receive(t, ctx, c).(*protocol.ErrorMessage)
	require.True(t, ok)
	assert.Contains(t, message.Message, "no display surface")

	_, _, err := c.Read(ctx)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
	assert.Equal(t, uint64(1), ingress.Status().Rejected)
	assert.Equal(t, 0, ingress.NumClients())
}

func TestExpectHello(t *testing.T) {
	_, url := setup(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := dial(t, ctx, url, nil)
	send(t, ctx, c, protocol.KeyMessage{Op: protocol.KeyOp, Code: "Space"})

	message, ok := receive(t, ctx, c).(*protocol.ErrorMessage)
	require.True(t, ok)
	assert.Contains(t, message.Message, "expected hello")
}

func TestMobileTouchControls(t *testing.T) {
	_, url := setup(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := dial(t, ctx, url, http.Header{"User-Agent": []string{iPhone}})
	send(t, ctx, c, hello())

	welcome, ok := receive(t, ctx, c).(*protocol.WelcomeMessage)
	require.True(t, ok)
	assert.True(t, welcome.Touch)

	_, url = setup(t, func(config *config.Config) {
		config.Client.TouchControls = "never"
	})
	c = dial(t, ctx, url, http.Header{"User-Agent": []string{iPhone}})
	touch := hello()
	touch.Touch = true
	send(t, ctx, c, touch)

	welcome, ok = receive(t, ctx, c).(*protocol.WelcomeMessage)
	require.True(t, ok)
	assert.False(t, welcome.Touch)
}

func TestServerFull(t *testing.T) {
	ingress, url := setup(t, func(config *config.Config) {
		config.Server.MaxSessions = 1
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first := dial(t, ctx, url, nil)
	send(t, ctx, first, hello())
	_, ok := receive(t, ctx, first).(*protocol.WelcomeMessage)
	require.True(t, ok)

	second := dial(t, ctx, url, nil)
	send(t, ctx, second, hello())
	message, ok := receive(t, ctx, second).(*protocol.ErrorMessage)
	require.True(t, ok)
	assert.Equal(t, ErrServerFull.Error(), message.Message)
	assert.Equal(t, 1, ingress.NumClients())
}

func TestReservationsCountTowardsLimit(t *testing.T) {
	ingress, url := setup(t, func(config *config.Config) {
		config.Server.MaxSessions = 1
	})

	// A session still being created holds its slot.
	id, err := ingress.reserve()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id)
	_, err = ingress.reserve()
	assert.ErrorIs(t, err, ErrServerFull)

	ingress.release()
	_, err = ingress.reserve()
	require.NoError(t, err)
	ingress.release()

	// A failed session gives its slot back.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bad := dial(t, ctx, url, nil)
	send(t, ctx, bad, protocol.HelloMessage{Op: protocol.HelloOp})
	_, ok := receive(t, ctx, bad).(*protocol.ErrorMessage)
	require.True(t, ok)

	good := dial(t, ctx, url, nil)
	send(t, ctx, good, hello())
	_, ok = receive(t, ctx, good).(*protocol.WelcomeMessage)
	require.True(t, ok)
	assert.Equal(t, 1, ingress.NumClients())
}
