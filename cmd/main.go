package main

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"textbridge/internal/config"
	"textbridge/internal/core/correlate"
	"textbridge/internal/core/discover"
	"textbridge/internal/core/export"
	"textbridge/internal/core/job"
	"textbridge/internal/core/notify"
	"textbridge/internal/core/pipeline"
	"textbridge/internal/core/rebuild"
	"textbridge/internal/core/write"
	"textbridge/internal/logger"
	"textbridge/internal/platform/libapi"
	rds "textbridge/internal/platform/redis"
	"textbridge/internal/platform/secrets"
	"textbridge/internal/platform/storage"
	tasks "textbridge/internal/platform/tasks"
	"textbridge/internal/platform/translate"
	"textbridge/internal/server"
	"textbridge/internal/worker"
)

func main() {
	cfg := config.Load()
	log.Printf("[textbridge] starting at %s (env=%s)\n", cfg.HTTPAddr, cfg.AppEnv)

	logr := logger.New("main")

	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer redisSvc.Close()

	taskClient := tasks.New(redisSvc)
	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{"default": 1},
	})

	creds, err := secrets.Load(cfg.CredentialsFile)
	if err != nil {
		log.Fatalf("load credentials: %v", err)
	}
	store, err := storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}

	platformClient := libapi.New(cfg.PlatformURLPattern, creds, cfg.BotUser)
	translateClient := translate.New(cfg.TranslateURL)

	jobSvc := job.NewService(redisSvc)
	discoverSvc := discover.New(platformClient, cfg.CoverTag, cfg.Fanout, cfg.Pause())
	exportSvc := export.New(store, cfg.ContentBucket)
	correlateSvc := correlate.New(translateClient, store, cfg.ContentBucket, cfg.OutputBucket)
	rebuildSvc := rebuild.New(store, cfg.OutputBucket)
	writeSvc := write.New(platformClient, platformClient, store, cfg.ContentBucket, cfg.Fanout, cfg.Pause())
	notifySvc := notify.New(cfg.MailerURL, cfg.MailerSecret)

	pipelineSvc := pipeline.New(jobSvc, taskClient, discoverSvc, exportSvc, translateClient,
		correlateSvc, rebuildSvc, writeSvc, notifySvc, cfg)

	mux := worker.NewMux()
	mux.HandleFunc(tasks.TaskTypeSubmit, pipelineSvc.HandleSubmitTask)
	mux.HandleFunc(tasks.TaskTypeComplete, pipelineSvc.HandleCompleteTask)

	go func() {
		if err := asynqServer.Start(mux.Mux()); err != nil {
			log.Printf("[worker] stopped: %v\n", err)
		}
	}()

	app := fiber.New(fiber.Config{
		AppName: "Textbridge Engine",
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})

	deps := server.Dependencies{
		Job:      jobSvc,
		Pipeline: pipelineSvc,
		Redis:    redisSvc,
	}
	healthHandler := server.RegisterRoutes(app, deps)

	go func() {
		time.Sleep(2 * time.Second)
		healthHandler.SetReady()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		asynqServer.Shutdown()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
