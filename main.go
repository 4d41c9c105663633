package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jonathanhudak/knowledge-collector/blobsync"
	"github.com/jonathanhudak/knowledge-collector/cache"
	"github.com/jonathanhudak/knowledge-collector/config"
	"github.com/jonathanhudak/knowledge-collector/handlers"
	"github.com/jonathanhudak/knowledge-collector/jobs"
	"github.com/jonathanhudak/knowledge-collector/logger"
	"github.com/jonathanhudak/knowledge-collector/middleware"
	"github.com/jonathanhudak/knowledge-collector/services/speech"
	"github.com/jonathanhudak/knowledge-collector/services/transcripts"
	"github.com/jonathanhudak/knowledge-collector/services/translate"
	"github.com/jonathanhudak/knowledge-collector/youtube"
)

func main() {
	cfg := config.LoadConfig()
	if err := config.ValidateConfig(cfg); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	if err := logger.Init(cfg.LogDir); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize logger")
	}

	store := cache.NewStore(cfg.StorageRoot)
	yt := youtube.NewClient(cfg.YouTubeAPIKey)

	transcriptService := transcripts.NewService(store, yt, yt)
	translator := translate.NewService(translate.NewOpenAIModel(cfg.OpenAIAPIKey, cfg.TranslationModel))
	audioService := speech.NewService(store, speech.NewOpenAISynthesizer(cfg.OpenAIAPIKey), cfg.SpeechVoice, cfg.SpeechModel)
	jobManager := jobs.NewManager(transcriptService)

	var syncer handlers.Syncer
	if cfg.S3Bucket != "" {
		client, err := blobsync.New(blobsync.Config{
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			Region:    cfg.AWSRegion,
			Endpoint:  cfg.AWSEndpoint,
			Bucket:    cfg.S3Bucket,
		}, store)
		if err != nil {
			logrus.WithError(err).Warn("Blob sync disabled")
		} else {
			syncer = client
		}
	}

	limiter := rate.NewLimiter(rate.Every(cfg.RateLimitInterval), cfg.RateLimit)

	handler := handlers.New(
		yt,
		jobManager,
		transcriptService,
		translator,
		audioService,
		store,
		syncer,
		cfg.TargetLanguage,
		limiter,
	)

	mux := http.NewServeMux()
	handler.Register(mux)

	handlerChain := middleware.Chain(mux,
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
	)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handlerChain,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logrus.WithField("port", cfg.ServerPort).Info("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logrus.Info("Shutting down the server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Fatal("Server shutdown failed")
	}
}
