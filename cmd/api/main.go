package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/doyalikess/stakehouse/internal/config"
	"github.com/doyalikess/stakehouse/internal/fair"
	"github.com/doyalikess/stakehouse/internal/games"
	"github.com/doyalikess/stakehouse/internal/handlers"
	"github.com/doyalikess/stakehouse/internal/middleware"
	"github.com/doyalikess/stakehouse/internal/services"
	"github.com/doyalikess/stakehouse/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var (
		accounts store.AccountStore
		ledger   store.Ledger
		sessions store.SessionStore
		limiter  store.RateLimiter
	)

	if cfg.RedisAddr != "" {
		client, err := store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer client.Close()

		accounts = store.NewRedisAccountStore(client)
		ledger = store.NewRedisLedger(client)
		sessions = store.NewRedisSessionStore(client)
		limiter = store.NewRedisRateLimiter(client)
	} else {
		log.Println("REDIS_ADDR not set, using in-memory stores")
		accounts = store.NewMemoryAccountStore()
		ledger = store.NewMemoryLedger()
		sessions = store.NewMemorySessionStore()
		limiter = store.NewMemoryRateLimiter()
	}

	if cfg.DatabaseURL != "" {
		pgLedger, err := store.NewPostgresLedger(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		ledger = pgLedger
	}

	engine := fair.NewEngine(cfg.ServerSeed)
	log.Printf("Fairness commitment: %s", engine.ServerSeedHash())

	jwtService := services.NewJWTService(cfg)

	wsHandler := handlers.NewWebSocketHandler(accounts)
	core := games.NewCore(accounts, ledger, sessions, engine, wsHandler.Hub())
	jackpot := games.NewJackpot(core, games.DefaultLockDelay)

	sweeper := games.NewSweeper(core, games.DefaultSweepInterval, games.DefaultMaxIdle)
	sweeper.Start()
	defer sweeper.Stop()

	authHandler := handlers.NewAuthHandler(accounts, jwtService)
	userHandler := handlers.NewUserHandler(accounts)
	gameHandler := handlers.NewGameHandler(core, jackpot)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/auth/guest", authHandler.Guest)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(limiter))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.POST("/auth/refresh", authHandler.Refresh)
		protected.POST("/deposit", userHandler.Deposit)
		protected.POST("/withdraw", userHandler.Withdraw)
		protected.POST("/client-seed", userHandler.SetClientSeed)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		gamesGroup := protected.Group("/games")
		{
			gamesGroup.POST("/coinflip", gameHandler.PlayCoinflip)
			gamesGroup.POST("/roulette", gameHandler.PlayRoulette)
			gamesGroup.POST("/limbo", gameHandler.PlayLimbo)
			gamesGroup.POST("/upgrader", gameHandler.PlayUpgrader)
			gamesGroup.POST("/crash", gameHandler.PlayCrash)

			gamesGroup.GET("/history", gameHandler.GetHistory)
			gamesGroup.GET("/wagers/:id", gameHandler.GetWager)

			gamesGroup.GET("/verification", gameHandler.GetVerificationData)
			gamesGroup.POST("/verify", gameHandler.VerifyGame)

			mines := gamesGroup.Group("/mines")
			{
				mines.POST("/start", gameHandler.StartMines)
				mines.POST("/reveal", gameHandler.RevealMines)
				mines.POST("/cashout", gameHandler.CashoutMines)
			}

			jackpotGroup := gamesGroup.Group("/jackpot")
			{
				jackpotGroup.GET("/round", gameHandler.GetJackpotRound)
				jackpotGroup.POST("/join", gameHandler.JoinJackpot)
				jackpotGroup.POST("/leave", gameHandler.LeaveJackpot)
			}
		}
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
