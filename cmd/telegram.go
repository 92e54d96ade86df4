package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"drivendev/telegram"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var telegramVoiceReplies bool

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Run the dialogue as a Telegram bot",
	RunE:  runTelegram,
}

func init() {
	telegramCmd.Flags().BoolVar(&telegramVoiceReplies, "voice-replies", false, "also send every reply as a voice note")
	rootCmd.AddCommand(telegramCmd)
}

func runTelegram(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := bootstrap(ctx)
	defer a.close()
	log := a.logger.Logger(ctx)

	if err := a.openStores(ctx); err != nil {
		log.Error("[Telegram] Could not open stores", zap.Error(err))
		return err
	}
	if err := a.ensureSeeded(ctx); err != nil {
		log.Error("[Telegram] Could not seed content", zap.Error(err))
		return err
	}
	if err := a.connectEngine(ctx); err != nil {
		log.Error("[Telegram] Could not start dialogue engine", zap.Error(err))
		return err
	}

	props := telegram.TelegramConnectProps{
		Logger:      a.logger,
		Engine:      a.engine,
		Progress:    a.tracker,
		Transcriber: a.transcriber(ctx),
	}
	if telegramVoiceReplies {
		speech, err := a.synthesizer(ctx)
		if err != nil {
			return err
		}
		props.Speech = speech
	}

	bot := telegram.Connect(ctx, props)
	api, ok := bot.Bot()
	if !ok {
		return fmt.Errorf("telegram bot has no Bot API client")
	}
	bot.Listen(ctx, api)
	return nil
}
