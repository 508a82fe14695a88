package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/AltioraPro/altiora-bot/internal/api"
	"github.com/AltioraPro/altiora-bot/internal/biz/usecase"
	"github.com/AltioraPro/altiora-bot/internal/conf"
	"github.com/AltioraPro/altiora-bot/internal/data"
	"github.com/AltioraPro/altiora-bot/internal/infra/discord"
	"github.com/AltioraPro/altiora-bot/internal/metrics"
	"github.com/AltioraPro/altiora-bot/internal/server"
	"github.com/AltioraPro/altiora-bot/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := conf.LoadFromEnv()
	if err := config.Validate(); err != nil {
		log.Printf("[Config] %v", err)
		log.Println("[Config] Discord subsystem disabled; HTTP server and console logging stay up")
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	client := discord.NewClient(config.Discord.BotToken, config.Discord.GuildID)
	gateway := discord.NewGateway(config.Discord.BotToken)

	repos, err := data.NewRepositories(client, config.Relay.BaseURL, config.DB.Path)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer repos.Close()

	logQueue := service.NewLogQueue(
		service.NewChannelSink(repos.Messages, config.Discord.LogChannelID), collector)
	defer logQueue.Drain()
	router := service.NewRouter(repos.Messages, repos.Members,
		service.NewLogger("Router", logQueue), collector)

	bot := server.NewBot(server.BotDeps{
		Gateway:      gateway,
		GuildInfo:    client,
		Messages:     repos.Messages,
		Members:      repos.Members,
		Schedules:    repos.Schedules,
		Router:       router,
		Purger:       usecase.NewPurger(repos.Messages),
		RoleSync:     usecase.NewRoleSync(repos.Members, repos.Relay, config.Discord.RankRoles),
		LogQueue:     logQueue,
		Collector:    collector,
		LogChannelID: config.Discord.LogChannelID,
	})

	reminders := service.NewReminderScheduler(repos.Schedules, repos.Messages,
		service.NewLogger("Reminders", logQueue), collector)
	httpServer := api.NewServer(bot, bot, registry, config.App.BaseURL, config.HTTP.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	g, ctx := errgroup.WithContext(ctx)
	if config.Discord.Enabled() {
		reminders.Start()
		defer reminders.Stop()
		g.Go(func() error {
			return bot.Run(ctx)
		})
	}
	g.Go(func() error {
		return httpServer.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		return httpServer.Stop()
	})

	fmt.Println("Starting Altiora bot...")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Bot error: %v", err)
	}
}
