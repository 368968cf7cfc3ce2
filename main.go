package main

import (
	"context"
	"os/signal"
	"syscall"

	"cart-gateway/cartstore"
	"cart-gateway/clients"
	"cart-gateway/config"
	"cart-gateway/counter"
	"cart-gateway/events"
	"cart-gateway/handlers"
	"cart-gateway/merge"
	"cart-gateway/rabbitmq"
	"cart-gateway/session"
	"cart-gateway/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	instanceID := uuid.NewString()
	logrus.Infof("Starting cart gateway %s on port %s", instanceID, cfg.Port)

	// Set Gin mode
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv := newStore(cfg)
	store := cartstore.New(kv)
	sessions := session.NewManager(kv)
	bus := events.NewBus()

	// The file backend doubles as the cross-process signal: sibling
	// processes sharing the data dir are noticed through the watcher.
	if fileStore, ok := kv.(*storage.FileStore); ok {
		watcher, err := events.NewWatcher(fileStore.Dir(), bus)
		if err != nil {
			logrus.Warnf("Storage watcher disabled: %v", err)
		} else {
			go watcher.Run(ctx)
		}
	}

	// Cross-instance bridge, only when a broker is configured.
	var notifier handlers.Notifier
	if cfg.RabbitMQURL != "" {
		pool, err := rabbitmq.NewChannelPool(cfg.RabbitMQURL, cfg.RabbitMQExchange, cfg.ChannelPoolSize)
		if err != nil {
			logrus.Fatalf("Failed to create RabbitMQ channel pool: %v", err)
		}
		defer pool.Close()

		notifier = rabbitmq.NewPublisher(pool, cfg.RabbitMQExchange, instanceID)

		consumer, err := rabbitmq.NewConsumer(pool.Connection(), cfg.RabbitMQExchange, instanceID, bus)
		if err != nil {
			logrus.Fatalf("Failed to create cart notice consumer: %v", err)
		}
		go consumer.Run(ctx)
	}

	cartClient := clients.NewCartClient(cfg.CartAPIURL)
	merger := merge.New(store, cartClient, cfg.CartEligibleRole)

	aggregator := counter.New(store, sessions, cartClient, bus, cfg.PollInterval)
	go aggregator.Run(ctx)

	cartHandler := handlers.NewCartHandler(store, sessions, cartClient, bus, notifier, aggregator)
	sessionHandler := handlers.NewSessionHandler(sessions, merger, bus)

	// Setup router
	router := gin.Default()

	// Routes
	router.GET("/cart", cartHandler.GetCart)
	router.GET("/cart/count", cartHandler.GetCount)
	router.POST("/cart/items", cartHandler.AddItem)
	router.PUT("/cart/items/:productId", cartHandler.UpdateItem)
	router.DELETE("/cart/items/:productId", cartHandler.RemoveItem)
	router.DELETE("/cart", cartHandler.ClearCart)
	router.POST("/session", sessionHandler.Establish)
	router.DELETE("/session", sessionHandler.Teardown)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	logrus.Fatal(router.Run(":" + cfg.Port))
}

// newStore selects the storage backend for the guest cart and session
// token. Falls back to memory when the configured backend is unusable.
func newStore(cfg *config.Config) storage.Store {
	switch cfg.StoreBackend {
	case "redis":
		kv, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logrus.Fatalf("Failed to connect storage backend: %v", err)
		}
		logrus.Infof("Using redis storage at %s", cfg.RedisAddr)
		return kv
	case "memory":
		logrus.Warn("Using in-memory storage, the guest cart will not survive restarts")
		return storage.NewMemoryStore()
	default:
		kv, err := storage.NewFileStore(cfg.DataDir)
		if err != nil {
			logrus.Warnf("Failed to open data dir, falling back to memory: %v", err)
			return storage.NewMemoryStore()
		}
		logrus.Infof("Using file storage in %s", cfg.DataDir)
		return kv
	}
}
