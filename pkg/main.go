package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	pkg "github.com/civiclab/pollguard/pkg/internal"
	"github.com/civiclab/pollguard/pkg/internal/cache"
	"github.com/civiclab/pollguard/pkg/internal/database"
	"github.com/civiclab/pollguard/pkg/internal/http"
	"github.com/civiclab/pollguard/pkg/internal/services"
	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Booting screen
	fmt.Println(color.YellowString(" ____       _ _  ____                     _\n|  _ \\ ___ | | |/ ___|_   _  __ _ _ __ __| |\n| |_) / _ \\| | | |  _| | | |/ _` | '__/ _` |\n|  __/ (_) | | | |_| | |_| | (_| | | | (_| |\n|_|   \\___/|_|_|\\____|\\__,_|\\__,_|_|  \\__,_|"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiYellow).Add(color.Bold).Sprintf("Pollguard"), pkg.AppVersion)
	fmt.Printf("The vote validation service of the civic platform\n")
	color.HiBlack("=====================================================\n")

	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Prepare in-memory cache
	if err := cache.NewStore(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when initializing cache.")
	}

	// Connect to database
	if err := database.NewGorm(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Connect to redis for the atomic rate limiter (optional)
	if addr := viper.GetString("limiter.redis_addr"); len(addr) > 0 {
		if err := services.SetupRedis(addr); err != nil {
			log.Warn().Err(err).Msg("An error occurred when connecting to redis, falling back to vote log counting...")
		} else {
			log.Info().Str("addr", addr).Msg("Atomic rate limiter backed by redis.")
		}
	}

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 60m", services.DoAutoDatabaseCleanup)
	quartz.Start()

	// Server
	go http.NewServer().Listen()

	// Messages
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	quartz.Stop()
}
