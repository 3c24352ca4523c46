package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/bytebullet/bytebullet/pkg/protocol"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
)

var CLI struct {
	Debug bool `help:"Whether to enable debug logging."`

	URL      string        `arg:"" optional:"" default:"ws://localhost:1337/ws/" help:"Websocket endpoint of the server."`
	Duration time.Duration `default:"10s" help:"How long to play for."`
	Camera   string        `default:"" help:"Camera mode to request (first-person or orbit)."`
	Width    float64       `default:"1280" help:"Reported viewport width."`
	Height   float64       `default:"720" help:"Reported viewport height."`
	Touch    bool          `help:"Fire with touches instead of mouse clicks."`
	Fire     time.Duration `default:"500ms" help:"Interval between shots."`
	Jump     time.Duration `default:"2s" help:"Interval between jumps."`
}

type stats struct {
	frames    int
	grounded  int
	loaded    int
	unloaded  int
	destroyed int
	maxLive   int
	lastTick  uint64
}

func send(ctx context.Context, c *websocket.Conn, message any) error {
	bytes, err := protocol.Encode(message)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.Write(ctx, websocket.MessageBinary, bytes)
}

func receive(ctx context.Context, c *websocket.Conn, messages chan<- any) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageBinary {
			continue
		}
		message, err := protocol.Decode(data)
		if err != nil {
			log.Warn().Err(err).Msg("could not decode message")
			continue
		}
		select {
		case messages <- message:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *stats) frame(frame *protocol.FrameMessage) error {
	s.frames++
	s.lastTick = frame.Tick
	if frame.Grounded {
		s.grounded++
	}
	s.unloaded += len(frame.Unloaded)
	s.destroyed += len(frame.Destroyed)
	if len(frame.Projectiles) > s.maxLive {
		s.maxLive = len(frame.Projectiles)
	}

	for _, chunk := range frame.Loaded {
		heights, err := protocol.DecodeHeights(chunk.Heights)
		if err != nil {
			return fmt.Errorf("chunk %d,%d: %w", chunk.X, chunk.Z, err)
		}
		stride := chunk.Subdivisions + 1
		if len(heights) != stride*stride {
			return fmt.Errorf(
				"chunk %d,%d has %d heights, expected %d",
				chunk.X, chunk.Z, len(heights), stride*stride,
			)
		}
		s.loaded++
	}
	return nil
}

func play(ctx context.Context) error {
	c, _, err := websocket.Dial(ctx, CLI.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", CLI.URL, err)
	}
	defer c.Close(websocket.StatusNormalClosure, "bot finished")

	err = send(ctx, c, protocol.HelloMessage{
		Op:     protocol.HelloOp,
		Width:  CLI.Width,
		Height: CLI.Height,
		Touch:  CLI.Touch,
		Camera: CLI.Camera,
	})
	if err != nil {
		return err
	}

	messages := make(chan any, 16)
	errc := make(chan error, 1)
	go func() {
		errc <- receive(ctx, c, messages)
	}()

	var welcome *protocol.WelcomeMessage
	select {
	case message := <-messages:
		switch message := message.(type) {
		case *protocol.WelcomeMessage:
			welcome = message
		case *protocol.ErrorMessage:
			return fmt.Errorf("server refused session: %s", message.Message)
		default:
			return fmt.Errorf("expected welcome, got %T", message)
		}
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	logger := log.With().Uint32("session", welcome.Session).Logger()
	logger.Info().
		Int("tickRate", welcome.TickRate).
		Str("camera", welcome.Camera).
		Bool("touch", welcome.Touch).
		Msg("joined")

	err = send(ctx, c, protocol.MoveMessage{Op: protocol.MoveOp, Forward: 1})
	if err != nil {
		return err
	}

	fire := time.NewTicker(CLI.Fire)
	defer fire.Stop()
	jump := time.NewTicker(CLI.Jump)
	defer jump.Stop()
	look := time.NewTicker(100 * time.Millisecond)
	defer look.Stop()
	deadline := time.After(CLI.Duration)

	pointer := protocol.PointerMessage{Op: protocol.PointerOp, Device: "mouse"}
	if CLI.Touch {
		pointer.Device = "touch"
		pointer.X = CLI.Width * 0.75
		pointer.Y = CLI.Height / 2
	}

	var s stats
	yaw := 0.0
	for {
		select {
		case message := <-messages:
			switch message := message.(type) {
			case *protocol.FrameMessage:
				if err := s.frame(message); err != nil {
					return err
				}
			case *protocol.ErrorMessage:
				return fmt.Errorf("server error: %s", message.Message)
			}
		case <-fire.C:
			err = send(ctx, c, pointer)
		case <-jump.C:
			err = send(ctx, c, protocol.KeyMessage{Op: protocol.KeyOp, Code: welcome.JumpKey})
		case <-look.C:
			yaw = math.Mod(yaw+0.02, 2*math.Pi)
			err = send(ctx, c, protocol.LookMessage{Op: protocol.LookOp, Yaw: yaw})
		case err := <-errc:
			return err
		case <-deadline:
			logger.Info().
				Int("frames", s.frames).
				Uint64("tick", s.lastTick).
				Int("grounded", s.grounded).
				Int("chunksLoaded", s.loaded).
				Int("chunksUnloaded", s.unloaded).
				Int("projectilesDestroyed", s.destroyed).
				Int("maxLiveProjectiles", s.maxLive).
				Msg("done")
			if s.frames == 0 {
				return fmt.Errorf("received no frames")
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}

		if err != nil {
			return err
		}
	}
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	kong.Parse(&CLI,
		kong.Name("bot"),
		kong.Description("a headless ByteBullet player"),
		kong.UsageOnError(),
	)

	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := play(ctx); err != nil {
		log.Fatal().Err(err).Msg("bot failed")
	}
}
