package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/compustore/compustore/internal/adapter/handler"
	"github.com/compustore/compustore/internal/adapter/storage"
	"github.com/compustore/compustore/internal/core/service"
	"github.com/compustore/compustore/internal/port"
)

var rootCmd = &cobra.Command{
	Use:   "compustore",
	Short: "Component-store purchase engine",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg := viper.GetString("config"); cfg != "" {
			viper.SetConfigFile(cfg)
			if err := viper.ReadInConfig(); err != nil {
				return err
			}
		}

		lvl := slog.LevelInfo
		switch strings.ToLower(viper.GetString("log-level")) {
		case "debug":
			lvl = slog.LevelDebug
		case "warn", "warning":
			lvl = slog.LevelWarn
		case "error":
			lvl = slog.LevelError
		}
		slog.SetDefault(slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}),
		))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("mysql-dsn", "root:root@tcp(localhost:3306)/compustore?parseTime=true", "MySQL DSN")
	rootCmd.PersistentFlags().String("redis-addr", "localhost:6379", "Redis address (empty disables the stock cache)")
	rootCmd.PersistentFlags().String("http-addr", ":8080", "HTTP listen address")
	rootCmd.PersistentFlags().Int("low-stock-threshold", 5, "default threshold for the low-stock report")
	rootCmd.PersistentFlags().String("config", "", "config file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level")

	viper.BindPFlag("mysql-dsn", rootCmd.PersistentFlags().Lookup("mysql-dsn"))
	viper.BindPFlag("redis-addr", rootCmd.PersistentFlags().Lookup("redis-addr"))
	viper.BindPFlag("http-addr", rootCmd.PersistentFlags().Lookup("http-addr"))
	viper.BindPFlag("low-stock-threshold", rootCmd.PersistentFlags().Lookup("low-stock-threshold"))
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(serveCmd, seedCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

// engine bundles the wired services and their connections.
type engine struct {
	db       *sql.DB
	rdb      *redis.Client
	mysql    *storage.MySQLAdapter
	ledger   *service.StockLedger
	combos   *service.ComboService
	purchase *service.PurchaseCoordinator
}

func buildEngine(ctx context.Context) (*engine, error) {
	db, err := sql.Open("mysql", viper.GetString("mysql-dsn"))
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	slog.Info("connected to mysql")

	var rdb *redis.Client
	var cache port.StockCache
	if addr := viper.GetString("redis-addr"); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, PoolSize: 100})
		if err := rdb.Ping(ctx).Err(); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		cache = storage.NewRedisCache(rdb)
		slog.Info("connected to redis")
	}

	mysqlAdapter := storage.NewMySQLAdapter(db)
	ledger := service.NewStockLedger(mysqlAdapter, cache, slog.Default())
	combos := service.NewComboService(mysqlAdapter, mysqlAdapter)
	purchase := service.NewPurchaseCoordinator(
		mysqlAdapter, mysqlAdapter, ledger, mysqlAdapter,
		service.NewInvoiceIDGenerator(), slog.Default(),
	)

	return &engine{
		db:       db,
		rdb:      rdb,
		mysql:    mysqlAdapter,
		ledger:   ledger,
		combos:   combos,
		purchase: purchase,
	}, nil
}

func (e *engine) close() {
	if e.rdb != nil {
		e.rdb.Close()
	}
	e.db.Close()
}

func serve(ctx context.Context) error {
	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.close()

	if err := eng.ledger.SyncCache(ctx); err != nil {
		slog.Warn("stock cache sync failed", "error", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	h := handler.NewHTTPHandler(
		eng.purchase, eng.combos, eng.ledger, eng.mysql,
		viper.GetInt("low-stock-threshold"),
	)
	h.Register(router)

	httpAddr := viper.GetString("http-addr")
	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", httpAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
	slog.Info("HTTP server stopped")

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
