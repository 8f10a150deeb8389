package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/linzo/meet/internal/adapters/console"
	"github.com/linzo/meet/internal/adapters/relayws"
	"github.com/linzo/meet/internal/adapters/rtc"
	"github.com/linzo/meet/internal/adapters/speech"
	"github.com/linzo/meet/internal/adapters/translateapi"
	"github.com/linzo/meet/internal/app"
	"github.com/linzo/meet/internal/config"
	"github.com/linzo/meet/internal/core"
	"github.com/linzo/meet/internal/domain"
	"github.com/linzo/meet/internal/recognize"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	api := translateapi.New(cfg.Client.TranslateBase)

	deps := app.Deps{
		Relay: relayws.New(cfg.Client.RelayURL),
		NewDialer: func(local domain.ParticipantID) core.MediaDialer {
			return rtc.NewDialer(string(local))
		},
		Recognizer:  console.NewRecognizer(os.Stdin),
		Translator:  api,
		Languages:   api,
		Suggest:     api,
		Speech:      speech.NewRemote(cfg.Client.TranslateBase, console.Player()),
		SpeechAlt:   speech.NewLocal(console.Synthesizer(os.Stdout)),
		Room:        domain.RoomID(cfg.Client.Room),
		Lang:        domain.Lang(cfg.Client.Lang),
		DeviceClass: recognize.DeviceClass(cfg.Client.DeviceClass),
	}

	client := app.NewClient(ctx, deps)
	log.Info().Str("room", cfg.Client.Room).Str("lang", cfg.Client.Lang).Msg("client starting")
	client.Run(ctx)
	log.Info().Msg("client exited")
}
