package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"vetski/vetski/config"
	"vetski/vetski/controllers"
	"vetski/vetski/middlewares"
	"vetski/vetski/routes"
	"vetski/vetski/services/events"
	"vetski/vetski/services/llm"
	"vetski/vetski/services/realtime"
	"vetski/vetski/services/synthesis"
	"vetski/vetski/services/transcript"
	"vetski/vetski/services/transcription"
	"vetski/vetski/sources/cache"
	"vetski/vetski/sources/psql"
	"vetski/vetski/sources/psql/dao"
	"vetski/vetski/sources/storage"
	"vetski/vetski/utils/logging"
	"vetski/vetski/utils/queue"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	logging.InitLogger()
	defer logging.Sync()

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logging.ErrorLogger.Fatal("invalid configuration", zap.Error(err))
	}
	prompts, err := config.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		logging.ErrorLogger.Fatal("prompts error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := psql.NewDatabase(ctx, cfg)
	if err != nil {
		logging.ErrorLogger.Fatal("database connection error", zap.Error(err))
	}
	defer db.Close()

	minioClient, err := storage.NewMinIOClient(ctx, cfg)
	if err != nil {
		logging.ErrorLogger.Fatal("storage connection error", zap.Error(err))
	}
	messageCache := cache.NewMessageCache(ctx, cfg)
	defer messageCache.Close()

	bus := events.NewBus(cfg.NatsURL)
	defer bus.Close()

	profileDAO := dao.NewProfileDAO(db.DB)
	animalDAO := dao.NewAnimalDAO(db.DB)
	conversationDAO := dao.NewConversationDAO(db.DB)
	consultationDAO := dao.NewConsultationDAO(db.DB)
	jobDAO := dao.NewTranscriptionJobDAO(db.DB)

	gpt := llm.NewGPTClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	provider := transcription.NewReplicateClient(cfg)

	background := queue.New(64)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	go background.Start(workerCtx)
	synth := synthesis.NewSynthesizer(animalDAO, conversationDAO, gpt, cfg.ChatModel, prompts.SynthesisSystem, background)

	hub := realtime.NewHub()
	injector := transcript.NewInjector(consultationDAO, jobDAO, conversationDAO, messageCache, prompts.TranscriptPrefix)
	injector.OnSynced = func(id uuid.UUID, res transcript.SyncResult) {
		hub.Broadcast(realtime.Message{
			Type:           realtime.TypeTranscriptSynced,
			ConsultationID: id.String(),
			JobID:          res.Watermark.JobID,
			Text:           res.Text,
		})
	}
	hub.OnTranscription = func(ctx context.Context, evt events.TranscriptionCompleted) {
		id, err := uuid.Parse(evt.ConsultationID)
		if err != nil {
			return
		}
		if _, err := injector.Sync(ctx, id); err != nil {
			logging.ErrorLogger.Error("transcript sync after webhook failed",
				zap.String("consultation_id", evt.ConsultationID), zap.Error(err))
		}
	}
	stopListening, err := hub.Listen(bus)
	if err != nil {
		logging.ErrorLogger.Fatal("event subscription error", zap.Error(err))
	}
	defer stopListening()

	handlers := routes.Handlers{
		Health: controllers.NewHealthController(map[string]controllers.Check{
			"database": db.Ping,
			"storage":  minioClient.Ping,
			"cache":    messageCache.Ping,
		}),
		Profiles:       controllers.NewProfileController(profileDAO),
		Animals:        controllers.NewAnimalController(animalDAO, synth),
		Conversations:  controllers.NewConversationController(conversationDAO, animalDAO, messageCache),
		Consultations:  controllers.NewConsultationController(consultationDAO, jobDAO, animalDAO, profileDAO, injector),
		Transcriptions: controllers.NewTranscriptionController(consultationDAO, jobDAO, minioClient, provider, bus, cfg.TranscriptionWebhookSecret),
		Chat: controllers.NewChatController(controllers.ChatDeps{
			Conversations: conversationDAO,
			Consultations: consultationDAO,
			Animals:       animalDAO,
			Cache:         messageCache,
			LLM:           gpt,
			Store:         minioClient,
			Injector:      injector,
			Synth:         synth,
			Prompts:       prompts,
			ChatModel:     cfg.ChatModel,
			VisionModel:   cfg.VisionModel,
		}),
		Storage: controllers.NewStorageController(minioClient),
		Hub:     hub,
	}
	auth := func(next http.Handler) http.Handler {
		return middlewares.AuthMiddleware(cfg)(middlewares.EnsureProfile(profileDAO)(next))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.NewRouter(cfg, handlers, auth),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logging.AppLogger.Info("server listening", zap.String("addr", srv.Addr), zap.String("webhook", cfg.WebhookURL()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorLogger.Fatal("server listen error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
	}
	background.Close()
	stopWorker()
	logging.AppLogger.Info("server shutdown complete")
}
