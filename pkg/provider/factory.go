package provider

import (
	"fmt"
	"strings"

	"queuepanel/pkg/config"
	"queuepanel/pkg/interfaces"
	asynqqueue "queuepanel/pkg/queue/asynq"
	"queuepanel/pkg/remote/rest"
	"queuepanel/pkg/remote/ws"
	mysqlstore "queuepanel/pkg/store/mysql"
	redisstore "queuepanel/pkg/store/redis"
)

// Infrastructure shared clients the providers are built on. Any of them may be nil
// when the configuration does not select a provider that needs it.
type Infrastructure struct {
	Redis     *redisstore.RedisClient
	Datastore *mysqlstore.Datastore
	Queue     *asynqqueue.Manager
}

// ProviderFactory provider factory
type ProviderFactory struct {
	cfg   *config.Config
	infra Infrastructure
}

// NewProviderFactory creates provider factory
func NewProviderFactory(cfg *config.Config, infra Infrastructure) *ProviderFactory {
	return &ProviderFactory{cfg: cfg, infra: infra}
}

// PanelProviders the collaborators of one panel session. Events and Preferences
// are nil when disabled.
type PanelProviders struct {
	History     interfaces.HistorySource
	Snapshots   interfaces.SnapshotSource
	Events      interfaces.EventSource
	Intents     interfaces.IntentSink
	Preferences interfaces.PreferenceStore

	// Remote is always built; the asynq forwarder delivers intents through it
	Remote *rest.Client
}

// CreatePanelProviders creates every provider selected by the configuration
func (f *ProviderFactory) CreatePanelProviders() (*PanelProviders, error) {
	selected := config.DefaultProvidersConfig()
	if f.cfg.Providers != nil {
		selected = *f.cfg.Providers
	}

	remote := rest.NewClient(f.cfg.Remote)
	p := &PanelProviders{Remote: remote}

	queue, err := f.createQueueProvider(selected.History, remote)
	if err != nil {
		return nil, fmt.Errorf("failed to create history provider: %w", err)
	}
	p.History, p.Snapshots = queue, queue

	if p.Events, err = f.createEventSource(selected.Events); err != nil {
		return nil, fmt.Errorf("failed to create event provider: %w", err)
	}
	if p.Intents, err = f.createIntentSink(selected.Intents, remote); err != nil {
		return nil, fmt.Errorf("failed to create intent provider: %w", err)
	}
	if p.Preferences, err = f.createPreferenceStore(selected.Preferences); err != nil {
		return nil, fmt.Errorf("failed to create preference provider: %w", err)
	}
	return p, nil
}

func (f *ProviderFactory) createQueueProvider(providerType string, remote *rest.Client) (interfaces.QueueProvider, error) {
	switch strings.ToLower(providerType) {
	case "remote", "":
		return remote, nil
	case "mysql":
		if f.infra.Datastore == nil {
			return nil, fmt.Errorf("mysql history provider requires a datastore")
		}
		return mysqlstore.NewHistoryRepository(f.infra.Datastore), nil
	default:
		return nil, fmt.Errorf("unsupported history provider type: %s", providerType)
	}
}

func (f *ProviderFactory) createEventSource(providerType string) (interfaces.EventSource, error) {
	switch strings.ToLower(providerType) {
	case "websocket", "ws", "":
		return ws.NewClient(f.cfg.Remote), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported event provider type: %s", providerType)
	}
}

func (f *ProviderFactory) createIntentSink(providerType string, remote *rest.Client) (interfaces.IntentSink, error) {
	switch strings.ToLower(providerType) {
	case "remote", "":
		return remote, nil
	case "asynq":
		if f.infra.Queue == nil {
			return nil, fmt.Errorf("asynq intent provider requires a queue manager")
		}
		return f.infra.Queue, nil
	default:
		return nil, fmt.Errorf("unsupported intent provider type: %s", providerType)
	}
}

func (f *ProviderFactory) createPreferenceStore(providerType string) (interfaces.PreferenceStore, error) {
	switch strings.ToLower(providerType) {
	case "redis", "":
		if f.infra.Redis == nil {
			return nil, fmt.Errorf("redis preference provider requires a redis client")
		}
		return redisstore.NewPreferenceRepository(f.infra.Redis), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported preference provider type: %s", providerType)
	}
}
