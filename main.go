package main

import (
	"context"
	"expvar"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"hookboard/internal"
	"hookboard/pkg/api"
	"hookboard/pkg/storage"
	"hookboard/pkg/storage/githubevents"
	"hookboard/pkg/storage/webhookevents"
	"hookboard/webhook"
)

func main() {
	logger := internal.NewLogger("server")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	config, err := internal.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if config.Webhook.Secret == "" {
		logger.Printf("webhook secret is not configured; signature verification is disabled")
	}

	githubStore, err := githubevents.Open(storage.Config{
		Driver: config.Database.Driver,
		DSN:    config.Database.DSN,
		Table:  config.Database.GitHubTable,
	})
	if err != nil {
		logger.Fatalf("open github event store: %v", err)
	}
	defer githubStore.Close()

	webhookStore, err := webhookevents.Open(storage.Config{
		Driver: config.Database.Driver,
		DSN:    config.Database.DSN,
		Table:  config.Database.WebhookTable,
	})
	if err != nil {
		logger.Fatalf("open webhook event store: %v", err)
	}
	defer webhookStore.Close()

	ruleEngine, err := internal.NewRuleEngine(internal.RulesConfig{
		Rules:  config.Rules,
		Logger: internal.NewLogger("dispatch"),
	})
	if err != nil {
		logger.Fatalf("compile dispatch rules: %v", err)
	}

	publisher, err := internal.NewPublisher(config.Dispatch)
	if err != nil {
		logger.Fatalf("dispatch publisher: %v", err)
	}
	defer publisher.Close()

	dispatcher := internal.NewDispatcher(ruleEngine, publisher, internal.NewLogger("dispatch"))

	githubHandler := webhook.NewGitHubHandler(config.Webhook.Secret, githubStore, dispatcher, internal.NewLogger("github"))
	githubHandler.MaxBodyBytes = config.Server.MaxBodyBytes
	genericHandler := webhook.NewGenericHandler(config.Webhook.Secret, webhookStore, dispatcher, internal.NewLogger("generic"))
	genericHandler.MaxBodyBytes = config.Server.MaxBodyBytes
	testHandler := webhook.NewTestHandler(webhookStore, internal.NewLogger("test"))
	testHandler.MaxBodyBytes = config.Server.MaxBodyBytes

	rateLimit := func(next http.Handler) http.Handler {
		return internal.NewRateLimitHandler(next, config.Server.RateLimitRPS, config.Server.RateLimitBurst, time.Minute)
	}

	mux := http.NewServeMux()
	mux.Handle(config.Webhook.GitHubPath, rateLimit(githubHandler))
	mux.Handle(config.Webhook.GenericPath, rateLimit(genericHandler))
	mux.Handle(config.Webhook.TestPath, rateLimit(testHandler))
	mux.Handle("/api/github/events", &api.GitHubEventsHandler{Store: githubStore, Logger: internal.NewLogger("api")})
	mux.Handle("/api/webhooks/events", &api.WebhookEventsHandler{Store: webhookStore, Logger: internal.NewLogger("api")})
	mux.Handle("/api/health", &api.HealthHandler{
		Store:            githubStore,
		DSNConfigured:    config.Database.DSN != "",
		SecretConfigured: config.Webhook.Secret != "",
		Logger:           internal.NewLogger("health"),
	})
	mux.Handle("/api/init", &api.InitHandler{
		GitHubStore:  githubStore,
		WebhookStore: webhookStore,
		Logger:       internal.NewLogger("init"),
	})
	if config.Server.MetricsEnabled {
		mux.Handle(config.Server.MetricsPath, expvar.Handler())
	}

	addr := ":" + strconv.Itoa(config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       time.Duration(config.Server.ReadTimeoutMS) * time.Millisecond,
		WriteTimeout:      time.Duration(config.Server.WriteTimeoutMS) * time.Millisecond,
		IdleTimeout:       time.Duration(config.Server.IdleTimeoutMS) * time.Millisecond,
		ReadHeaderTimeout: time.Duration(config.Server.ReadHeaderMS) * time.Millisecond,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Printf("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %v", err)
		}
	}()

	<-shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
}
