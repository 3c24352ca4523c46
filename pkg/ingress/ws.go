package ingress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bytebullet/bytebullet/pkg/config"
	"github.com/bytebullet/bytebullet/pkg/game"
	"github.com/bytebullet/bytebullet/pkg/protocol"

	"github.com/mileusna/useragent"
	"github.com/repeale/fp-go/option"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

const (
	HELLO_TIMEOUT = 10 * time.Second
	WRITE_TIMEOUT = 5 * time.Second
	READ_LIMIT    = 64 * 1024
)

var (
	ErrServerFull    = errors.New("server is full")
	ErrExpectedHello = errors.New("expected hello")
)

// Client is one websocket connection and the session it drives.
type Client struct {
	ID      uint32
	Host    string
	Device  string
	Session *game.Session
}

// WSIngress accepts browser connections and gives each one its own game
// session.
type WSIngress struct {
	config config.Config

	mutex   deadlock.RWMutex
	clients map[uint32]*Client
	// Ids handed out by reserve that are not registered yet.
	reserved  int
	nextID    uint32
	started   time.Time
	accepted  uint64
	rejected  uint64
	parentCtx context.Context
}

func NewWSIngress(ctx context.Context, config config.Config) *WSIngress {
	return &WSIngress{
		config:    config,
		clients:   make(map[uint32]*Client),
		started:   time.Now(),
		parentCtx: ctx,
	}
}

func WriteTimeout(ctx context.Context, timeout time.Duration, c *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageBinary, msg)
}

func writeMessage(ctx context.Context, c *websocket.Conn, message any) error {
	bytes, err := protocol.Encode(message)
	if err != nil {
		return err
	}
	return WriteTimeout(ctx, WRITE_TIMEOUT, c, bytes)
}

// reject tells the client why it cannot play and closes the connection.
func reject(ctx context.Context, c *websocket.Conn, err error) error {
	writeMessage(ctx, c, protocol.ErrorMessage{
		Op:      protocol.ErrorOp,
		Message: err.Error(),
	})
	c.Close(websocket.StatusPolicyViolation, err.Error())
	return err
}

func (server *WSIngress) register(host string, device string, session *game.Session) *Client {
	client := &Client{
		ID:      session.ID(),
		Host:    host,
		Device:  device,
		Session: session,
	}

	server.mutex.Lock()
	server.clients[client.ID] = client
	server.reserved--
	server.accepted++
	server.mutex.Unlock()
	return client
}

func (server *WSIngress) remove(client *Client) {
	server.mutex.Lock()
	delete(server.clients, client.ID)
	server.mutex.Unlock()
}

// reserve hands out the next session id unless the server is full.
func (server *WSIngress) reserve() (uint32, error) {
	server.mutex.Lock()
	defer server.mutex.Unlock()

	limit := server.config.Server.MaxSessions
	if limit > 0 && len(server.clients)+server.reserved >= limit {
		server.rejected++
		return 0, ErrServerFull
	}
	server.reserved++
	server.nextID++
	return server.nextID, nil
}

// release gives back a reservation whose session could not be created.
func (server *WSIngress) release() {
	server.mutex.Lock()
	server.reserved--
	server.rejected++
	server.mutex.Unlock()
}

func (server *WSIngress) countRejected() {
	server.mutex.Lock()
	server.rejected++
	server.mutex.Unlock()
}

func (server *WSIngress) Client(id uint32) opt.Option[*Client] {
	server.mutex.RLock()
	defer server.mutex.RUnlock()
	client, ok := server.clients[id]
	if !ok {
		return opt.None[*Client]()
	}
	return opt.Some(client)
}

func (server *WSIngress) NumClients() int {
	server.mutex.RLock()
	defer server.mutex.RUnlock()
	return len(server.clients)
}

type Status struct {
	Sessions int     `json:"sessions"`
	Accepted uint64  `json:"accepted"`
	Rejected uint64  `json:"rejected"`
	Uptime   float64 `json:"uptime"`
}

func (server *WSIngress) Status() Status {
	server.mutex.RLock()
	defer server.mutex.RUnlock()
	return Status{
		Sessions: len(server.clients),
		Accepted: server.accepted,
		Rejected: server.rejected,
		Uptime:   time.Since(server.started).Seconds(),
	}
}

func (server *WSIngress) touchControls(hello protocol.HelloMessage, agent useragent.UserAgent) bool {
	switch server.config.Client.TouchControls {
	case config.TouchControlsAlways:
		return true
	case config.TouchControlsNever:
		return false
	}
	return hello.Touch || agent.Mobile || agent.Tablet
}

func readHello(ctx context.Context, c *websocket.Conn) (protocol.HelloMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, HELLO_TIMEOUT)
	defer cancel()

	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			return protocol.HelloMessage{}, err
		}
		if typ != websocket.MessageBinary {
			continue
		}

		message, err := protocol.Decode(data)
		if err != nil {
			return protocol.HelloMessage{}, err
		}
		hello, ok := message.(*protocol.HelloMessage)
		if !ok {
			return protocol.HelloMessage{}, fmt.Errorf("%w, got %T", ErrExpectedHello, message)
		}
		return *hello, nil
	}
}

func (server *WSIngress) HandleClient(ctx context.Context, c *websocket.Conn, host string, agent useragent.UserAgent) error {
	logger := log.With().Str("host", host).Logger()

	hello, err := readHello(ctx, c)
	if err != nil {
		if websocket.CloseStatus(err) != -1 {
			return err
		}
		server.countRejected()
		logger.Warn().Err(err).Msg("client did not say hello")
		return reject(ctx, c, err)
	}
	hello.Touch = server.touchControls(hello, agent)

	id, err := server.reserve()
	if err != nil {
		logger.Warn().Err(err).Msg("rejecting client")
		return reject(ctx, c, err)
	}

	// Sessions also end when the server shuts down.
	session, err := game.NewSession(server.parentCtx, id, server.config.Game, hello)
	if err != nil {
		server.release()
		logger.Warn().Err(err).Msg("could not create session")
		return reject(ctx, c, err)
	}
	defer session.Cancel()

	device := "desktop"
	if agent.Mobile {
		device = "mobile"
	} else if agent.Tablet {
		device = "tablet"
	}

	client := server.register(host, device, session)
	defer server.remove(client)

	logger = logger.With().Uint32("session", id).Str("device", device).Logger()
	logger.Info().Msg("client joined")

	if err := writeMessage(ctx, c, session.Welcome()); err != nil {
		return err
	}

	go session.Poll(ctx)

	errc := make(chan error, 1)
	go func() {
		errc <- server.receive(ctx, c, session, logger)
	}()

	for {
		select {
		case frame := <-session.Frames():
			if err := writeMessage(ctx, c, frame); err != nil {
				logger.Error().Err(err).Msg("client missed write timeout; disconnecting")
				return err
			}
		case err := <-errc:
			logger.Info().Msg("client left")
			return err
		case <-session.Done():
			logger.Info().Msg("session ended")
			c.Close(websocket.StatusGoingAway, "session ended")
			return nil
		case <-ctx.Done():
			logger.Info().Msg("client left")
			return ctx.Err()
		}
	}
}

func (server *WSIngress) receive(ctx context.Context, c *websocket.Conn, session *game.Session, logger zerolog.Logger) error {
	web := server.config.Server.Ingress.Web
	limit := rate.Inf
	if web.MessageRate > 0 {
		limit = rate.Limit(web.MessageRate)
	}
	burst := web.MessageBurst
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(limit, burst)

	dropped := 0
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageBinary {
			continue
		}

		if !limiter.Allow() {
			dropped++
			if dropped%100 == 1 {
				logger.Warn().Int("dropped", dropped).Msg("client is sending too fast")
			}
			continue
		}

		message, err := protocol.Decode(data)
		if err != nil {
			logger.Warn().Err(err).Msg("could not decode message")
			continue
		}

		if err := session.Deliver(ctx, message); err != nil {
			return err
		}
	}
}

func (server *WSIngress) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})

	if err != nil {
		log.Error().Err(err).Msg("error accepting client connection")
		return
	}
	c.SetReadLimit(READ_LIMIT)

	defer c.Close(websocket.StatusInternalError, "operational fault during session")

	// Behind a proxy the peer address is the proxy's
	hostname := r.RemoteAddr

	original, ok := r.Header["X-Forwarded-For"]
	if ok {
		hostname = original[0]
	}

	agent := useragent.Parse(r.UserAgent())

	err = server.HandleClient(r.Context(), c, hostname, agent)
	if errors.Is(err, context.Canceled) {
		return
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
		websocket.CloseStatus(err) == websocket.StatusGoingAway {
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("client connection failed")
		return
	}
}
