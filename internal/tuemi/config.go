package tuemi

import (
	"context"
	"fmt"
	"os"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/tuemi/assistant"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/internal/tuemi/core/service"
	"github.com/tuemi-io/tuemi/internal/tuemi/notifier"
	"github.com/tuemi-io/tuemi/internal/tuemi/server"
	"github.com/tuemi-io/tuemi/internal/tuemi/server/http"
	"github.com/tuemi-io/tuemi/internal/tuemi/server/mqtt"
	"github.com/tuemi-io/tuemi/internal/tuemi/storage"
	"github.com/tuemi-io/tuemi/internal/tuemi/store/sqlite"
	"github.com/tuemi-io/tuemi/pkg/log"
	pkgmqtt "github.com/tuemi-io/tuemi/pkg/mqtt"
	"github.com/tuemi-io/tuemi/pkg/mqtt/topic"
	"github.com/tuemi-io/tuemi/pkg/options"
)

type Config struct {
	HttpOptions      *options.HttpOptions
	SessionOptions   *options.SessionOptions
	MqttOptions      *options.MqttOptions
	S3Options        *options.S3Options
	SQLiteOptions    *options.SQLiteOptions
	AssistantOptions *options.AssistantOptions

	// Thresholds is shared with the config watcher so that edits to the
	// incident section apply without a restart.
	Thresholds *incident.LiveThresholds
}

func (cfg *Config) NewTuemiServer(ctx context.Context) (*TuemiServer, error) {
	// 1. Infrastructure: Store (Secondary Adapter)
	store, err := sqlite.Open(ctx, cfg.SQLiteOptions)
	if err != nil {
		return nil, err
	}

	srv, err := cfg.assemble(ctx, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return srv, nil
}

func (cfg *Config) assemble(ctx context.Context, store *sqlite.Store) (*TuemiServer, error) {
	// 2. Infrastructure: Storage, Assistant and Notifier (Secondary Adapters)
	reports, err := storage.New(cfg.S3Options)
	if err != nil {
		return nil, fmt.Errorf("failed to init object storage: %w", err)
	}
	if err := reports.CheckBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to check report bucket: %w", err)
	}

	llm, err := assistant.New(ctx, cfg.AssistantOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to init assistant: %w", err)
	}

	var (
		mqttClient     pkgmqtt.Client
		topicBuilder   *topic.Builder
		incidentNotify core.IncidentNotifier = notifier.Nop{}
	)
	if cfg.MqttOptions.Enabled {
		mqttClient, err = newMQTTClient(cfg.MqttOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt client: %w", err)
		}
		topicBuilder = topic.NewBuilder(cfg.MqttOptions.TopicRoot)
		incidentNotify = notifier.NewMQTTNotifier(mqttClient, topicBuilder)
	}

	if cfg.Thresholds == nil {
		cfg.Thresholds = incident.NewLiveThresholds(incident.DefaultThresholds())
	}

	// 3. Core Domain Service (The Business Logic)
	svc := service.New(store, incidentNotify, reports, llm, service.Config{
		Thresholds:      cfg.Thresholds,
		SessionTTL:      cfg.SessionOptions.TTL,
		EnrichTimeout:   cfg.AssistantOptions.Timeout,
		ReportURLExpiry: cfg.S3Options.URLExpiry,
		Logger:          log.WithName("service"),
	})

	if cfg.SQLiteOptions.SeedFile != "" {
		if err := LoadSeedFile(ctx, svc, cfg.SQLiteOptions.SeedFile); err != nil {
			return nil, err
		}
	}

	// 4. Ingress Servers (Primary Adapters)
	var mqttServer server.Server
	if mqttClient != nil {
		mqttServer = mqtt.NewServer(mqttClient, topicBuilder, svc)
	}
	httpServer := http.NewServer(cfg.HttpOptions, cfg.SessionOptions, svc, store.Ping)
	janitor := server.NewJanitor(svc, cfg.SessionOptions.PurgeInterval, nil)

	return &TuemiServer{
		serverManager: server.NewManager(httpServer, mqttServer, janitor),
		svc:           svc,
		store:         store,
	}, nil
}

func newMQTTClient(opts *options.MqttOptions) (pkgmqtt.Client, error) {
	cfg := opts.ToClientConfig()
	if cfg.ClientID == "" {
		hostname, _ := os.Hostname()
		cfg.ClientID = fmt.Sprintf("tuemi-server-%s", hostname)
	}
	return pkgmqtt.NewClient(cfg)
}
