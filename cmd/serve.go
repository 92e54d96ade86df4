package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"drivendev/httpapi"
	"drivendev/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	servePort   string
	serveSeed   bool
	serveSpeech bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the per-week HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (defaults to PORT)")
	serveCmd.Flags().BoolVar(&serveSeed, "seed", true, "seed bundled week content when the store is empty")
	serveCmd.Flags().BoolVar(&serveSpeech, "speech", true, "mount the text-to-speech and speech-to-text routes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := bootstrap(ctx)
	defer a.close()
	log := a.logger.Logger(ctx)

	if err := a.openStores(ctx); err != nil {
		log.Error("[Server] Could not open stores", zap.Error(err))
		return err
	}
	if serveSeed {
		if err := a.ensureSeeded(ctx); err != nil {
			log.Error("[Server] Could not seed content", zap.Error(err))
			return err
		}
	}
	if err := a.connectEngine(ctx); err != nil {
		log.Error("[Server] Could not start dialogue engine", zap.Error(err))
		return err
	}

	props := httpapi.ServerConnectProps{
		Logger:   a.logger,
		Dialogue: a.engine,
		Progress: a.tracker,
		Sessions: session.Connect(ctx, session.ManagerConnectProps{
			Logger: a.logger,
			Secret: a.cfg.SessionSecret,
			TTL:    30 * 24 * time.Hour,
			Secure: a.cfg.Production,
		}),
	}
	if serveSpeech {
		speech, err := a.synthesizer(ctx)
		if err != nil {
			log.Error("[Server] Could not start speech provider", zap.Error(err))
			return err
		}
		props.Speech = speech
		props.Transcriber = a.transcriber(ctx)
	}

	port := servePort
	if port == "" {
		port = a.cfg.Port
	}
	return httpapi.Connect(ctx, props).ListenAndServe(ctx, port)
}
