package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/roulette-backend/internal/game"
	"github.com/kollektive-hackathon/roulette-backend/internal/keymgmt"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/blockchain"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/middleware"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/pubsub"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/store"
	pkgws "github.com/kollektive-hackathon/roulette-backend/internal/pkg/ws"
	"github.com/kollektive-hackathon/roulette-backend/internal/wallet"
	"github.com/kollektive-hackathon/roulette-backend/internal/ws"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
)

func main() {
	setupViper()
	setupZerolog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gameStore := setupDb()
	defer gameStore.Close()

	networks, err := blockchain.LoadNetworks(viper.GetViper())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load network configuration")
	}

	transfers := blockchain.NewFlowTransferClient(networks, keymgmt.NewSignerSource())
	defer transfers.Close()
	if viper.GetBool("TREASURY_VERIFY") {
		verifyTreasuries(ctx, transfers, networks)
	}

	pubsubClient := setupPubSub(ctx)
	if pubsubClient != nil {
		defer pubsubClient.Close()
	}

	hub := pkgws.NewNotificationHub()
	wallets := wallet.NewService(gameStore.DB())

	var publisher game.EventPublisher
	if pubsubClient != nil {
		publisher = pubsubClient
	}

	gameService, err := game.NewGameService(
		gameStore,
		transfers,
		networks,
		wallets,
		game.NewOutcomeDrawer(),
		game.NewEventBridge(publisher, hub),
		game.Options{
			FeeRate:         houseFeeRate(),
			TransferTimeout: viper.GetDuration("TRANSFER_TIMEOUT"),
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize game service")
	}

	if pubsubClient != nil {
		game.RegisterSubscriptions(ctx, pubsubClient, gameService)
		wallet.RegisterSubscriptions(ctx, pubsubClient, wallets)
	}

	apiRouter := setupApiRouter(gameService, hub)

	port := viper.GetString("PORT")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	server := &http.Server{
		Addr:    port,
		Handler: apiRouter,
		// settlement runs one ledger transfer per leg inside the request
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 4*viper.GetDuration("TRANSFER_TIMEOUT") + 10*time.Second,
	}

	go func() {
		log.Info().Str("addr", port).Msg("Roulette backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("TRANSFER_TIMEOUT"))
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Error while shutting down HTTP server")
	}
}

func setupDb() *store.GameStore {
	dbUrl := viper.GetString("DB_URL")
	if dbUrl == "" {
		log.Fatal().Msg("DB_URL is required")
	}

	gameStore, err := store.Open(postgres.Open(dbUrl))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	if viper.GetBool("DB_AUTO_MIGRATE") {
		if err := gameStore.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	return gameStore
}

func setupPubSub(ctx context.Context) *pubsub.Client {
	projectId := viper.GetString("GOOGLE_PROJECT_ID")
	if projectId == "" {
		log.Warn().Msg("GOOGLE_PROJECT_ID not set, game events stay local to this process")
		return nil
	}

	client, err := pubsub.NewClient(ctx, projectId)
	if err != nil {
		log.Error().Err(err).Msg("Continuing without pub sub")
		return nil
	}
	return client
}

func setupApiRouter(gameService *game.GameService, hub *pkgws.WebSocketNotificationHub) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	apiRouter := gin.New()
	routerGroup := apiRouter.Group("/roulette-api")

	middleware.RegisterGlobalMiddleware(apiRouter, corsOrigins())

	ws.RegisterRoutes(routerGroup, hub)
	game.RegisterRoutes(routerGroup, gameService, viper.GetString("OPERATOR_API_KEY"))

	return apiRouter
}

// verifyTreasuries logs misconfigured treasuries; games on other networks keep working.
func verifyTreasuries(ctx context.Context, transfers *blockchain.FlowTransferClient, networks *blockchain.Networks) {
	for _, network := range networks.Configured() {
		verifyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := transfers.VerifyTreasury(verifyCtx, network)
		cancel()

		if err != nil {
			log.Error().Err(err).Str("network", string(network)).Msg("Treasury verification failed")
			continue
		}
		log.Info().Str("network", string(network)).Msg("Treasury verified")
	}
}

// corsOrigins reads a comma separated list from the environment or a YAML list from the config file.
func corsOrigins() []string {
	var origins []string
	for _, value := range viper.GetStringSlice("CORS_ALLOWED_ORIGINS") {
		for _, origin := range strings.Split(value, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	return origins
}

func houseFeeRate() decimal.Decimal {
	rate, err := decimal.NewFromString(viper.GetString("HOUSE_FEE_RATE"))
	if err != nil {
		log.Fatal().Err(err).Msg("HOUSE_FEE_RATE is not a decimal")
	}
	return rate
}

func setupViper() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DB_AUTO_MIGRATE", false)
	viper.SetDefault("HOUSE_FEE_RATE", "0.05")
	viper.SetDefault("TRANSFER_TIMEOUT", "90s")
	viper.SetDefault("TREASURY_VERIFY", false)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CONFIG_FILE", "./config.yaml")

	// NETWORKS_TESTNET_TREASURY_KMSRESOURCEID overrides networks.testnet.treasury.kmsResourceId
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigFile(viper.GetString("CONFIG_FILE"))
	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("No config file read, networks must come from the environment")
	}
}

func setupZerolog() {
	zerolog.LevelFieldName = "severity"
	zerolog.TimestampFieldName = "time"
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level, err := zerolog.ParseLevel(viper.GetString("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
