package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytebullet/bytebullet/pkg/config"
	"github.com/bytebullet/bytebullet/pkg/ingress"
	"github.com/bytebullet/bytebullet/pkg/static"

	"github.com/rs/zerolog/log"
)

const SHUTDOWN_TIMEOUT = 5 * time.Second

type ServeCmd struct {
	Configs []string `arg:"" optional:"" name:"configs" help:"Configuration files, applied in order over the defaults." type:"existingfile"`
	Port    int      `help:"Port for the web ingress, overriding the configuration." env:"BYTEBULLET_PORT"`
	Assets  string   `help:"Directory served under /assets/, overriding the configuration." type:"existingdir" env:"BYTEBULLET_ASSETS"`
}

// load reads the configuration and applies the command line overrides.
func (cmd *ServeCmd) load() (*config.Config, error) {
	settings, err := config.Process(cmd.Configs)
	if err != nil {
		return nil, err
	}

	if cmd.Port != 0 {
		settings.Server.Ingress.Web.Port = cmd.Port
	}
	if cmd.Assets != "" {
		settings.Server.AssetDirectory = cmd.Assets
	}
	return settings, nil
}

func (cmd *ServeCmd) routes(settings *config.Config, ws *ingress.WSIngress) (*http.ServeMux, error) {
	clientConfig, err := json.Marshal(settings.Client)
	if err != nil {
		return nil, err
	}

	// Fails when the page has nothing to render into.
	site, err := static.Site(string(clientConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to load site data: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", NoStore(site))
	mux.Handle("/ws/", ws)
	mux.Handle("/api/status", StatusHandler(ws, settings.Server.Description))

	assets := settings.Server.AssetDirectory
	if assets != "" {
		if _, err := os.Stat(assets); err != nil {
			return nil, fmt.Errorf("asset directory %s: %w", assets, err)
		}
		mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(assets))))
	}
	return mux, nil
}

func (cmd *ServeCmd) Run(globals *Globals) error {
	settings, err := cmd.load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws := ingress.NewWSIngress(ctx, *settings)
	mux, err := cmd.routes(settings, ws)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", settings.Server.Ingress.Web.Port),
		Handler: mux,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().
			Bool("debug", globals.Debug).
			Int("maxSessions", settings.Server.MaxSessions).
			Msgf("listening on http://%s", httpServer.Addr)
		errc <- httpServer.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
	case sig := <-sigs:
		log.Info().Msgf("terminating: %v", sig)
	}

	// Ends every session, which closes their sockets.
	cancel()

	shutdown, done := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
	defer done()
	return httpServer.Shutdown(shutdown)
}

type ConfigCmd struct {
	Configs []string `arg:"" optional:"" name:"configs" help:"Configuration files to merge over the defaults." type:"existingfile"`
}

func (cmd *ConfigCmd) Run() error {
	if len(cmd.Configs) == 0 {
		_, err := os.Stdout.Write(config.DEFAULT)
		return err
	}

	settings, err := config.Process(cmd.Configs)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(settings)
}
