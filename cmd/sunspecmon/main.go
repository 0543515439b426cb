package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adactor "github.com/berfenger/sunspecmon/internal/adapter/actor"
	"github.com/berfenger/sunspecmon/internal/config"
	"github.com/berfenger/sunspecmon/internal/core/actor"
	"github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/internal/metrics"
	"github.com/berfenger/sunspecmon/internal/server"
	"github.com/berfenger/sunspecmon/internal/util/actorutil"
	"github.com/berfenger/sunspecmon/pkg/gateway"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// waitForShutdown stops the HTTP server on SIGINT/SIGTERM, then the actor tree.
func waitForShutdown(apiServer *http.Server, as *pactor.ActorSystem, master *pactor.PID, logger *zap.Logger, done chan<- struct{}) {
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	logger.Info("shutting down, press Ctrl+C again to force")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Warn("http server forced to shutdown", zap.Error(err))
	}

	// children cancel their timers and the stream subscription on Stopping
	if err := as.Root.StopFuture(master).Wait(); err != nil {
		logger.Warn("master did not stop cleanly", zap.Error(err))
	}
	as.Shutdown()
	close(done)
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	logger.Info("starting sunspecmon", zap.String("version", versioninfo.Short()), zap.String("gateway", cfg.Gateway.BaseURL))

	// metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		panic(err)
	}

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	gatewayProv, err := gatewayActorProvider(cfg, m, logger)
	if err != nil {
		panic(err)
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, gatewayProv, streamActorProvider(cfg, logger), mqttActorProvider(cfg, logger), m, logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		logger.Fatal("could not spawn master actor", zap.Error(err))
	}

	apiServer := server.NewServer(*cfg, ctx, pid, reg)
	done := make(chan struct{})
	go waitForShutdown(apiServer, as, pid, logger, done)

	logger.Info("http server listening", zap.String("addr", apiServer.Addr))
	if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server error", zap.Error(err))
	}
	<-done
	logger.Info("shutdown complete")
}

func initConfig() (*config.Config, error) {

	// alias PORT => SUNSPECMON_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("SUNSPECMON_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("sunspecmon")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// "trace" is accepted for compatibility and maps to debug
	level := strings.ToLower(viper.GetString("log_level"))
	if level == "trace" {
		level = "debug"
	}
	if cfg.LogLevel, err = zapcore.ParseLevel(level); err != nil {
		cfg.LogLevel = zap.InfoLevel
	}

	baseURL, err := config.CheckGatewayURL(cfg.Gateway.BaseURL)
	if err != nil {
		return nil, err
	}
	cfg.Gateway.BaseURL = baseURL

	if _, err := domain.ParsePeriod(cfg.Dashboard.DefaultPeriod); err != nil {
		return nil, fmt.Errorf("config param dashboard.default_period: %w", err)
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func gatewayActorProvider(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (actor.GatewayActorProvider, error) {

	client, err := gateway.CreateHTTPGatewayClient(cfg.Gateway.BaseURL, cfg.Gateway.RequestTimeout(), logger)
	if err != nil {
		return nil, err
	}

	return func() *adactor.GatewayActor {
		return adactor.NewGatewayActor(client, cfg.Gateway.RequestTimeout(), cfg.Gateway.TimezoneOffsetMinutes, m, logger)
	}, nil
}

func streamActorProvider(cfg *config.Config, logger *zap.Logger) actor.StreamActorProvider {
	stream := gateway.CreateSSEDashboardStream(cfg.Gateway.BaseURL, logger)
	return func() *adactor.StreamActor {
		return adactor.NewStreamActor(stream, cfg.Gateway.StreamRetry(), nil, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("port", 8080)
	viper.SetDefault("http_log", false)
	viper.SetDefault("gateway.base_url", "http://127.0.0.1:3000")
	viper.SetDefault("gateway.request_timeout_millis", 10000)
	viper.SetDefault("gateway.timezone_offset_minutes", 0)
	viper.SetDefault("gateway.stream_retry_millis", 3000)
	viper.SetDefault("dashboard.default_period", "today")
	viper.SetDefault("controls.poll_interval_millis", 10000)
	viper.SetDefault("controls.notification_millis", 5000)
	viper.SetDefault("status.poll_interval_millis", 5000)
	viper.SetDefault("mqtt.enable", false)
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.base_topic", "sunspecmon")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
