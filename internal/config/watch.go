package config

import (
	"log"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watcher re-reads the config file on change and passes the new, validated
// config to subscribers. Only values that are safe to swap at runtime should
// be consumed by subscribers (log level, rate limits).
type Watcher struct {
	v           *viper.Viper
	mu          sync.Mutex
	subscribers []func(*Config)
}

// LoadConfigWithWatcher loads configuration like LoadConfig and returns a watcher bound to the same viper instance
func LoadConfigWithWatcher() (*Config, *Watcher, error) {
	cfg, v, err := loadWithViper(viper.New())
	if err != nil {
		return nil, nil, err
	}
	return cfg, &Watcher{v: v}, nil
}

// OnReload registers fn to run after each successful reload
func (w *Watcher) OnReload(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subscribers = append(w.subscribers, fn)
}

// Start begins watching the config file. It is a no-op without a config file.
func (w *Watcher) Start() {
	if w.v.ConfigFileUsed() == "" {
		log.Println("[CONFIG] No config file in use, hot reload disabled")
		return
	}
	w.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		w.reload(e.Name)
	})
	w.v.WatchConfig()
	log.Printf("[CONFIG] Watching %s for changes", w.v.ConfigFileUsed())
}

func (w *Watcher) reload(name string) {
	var next Config
	if err := w.v.Unmarshal(&next); err != nil {
		log.Printf("[CONFIG] Reload of %s ignored: %v", name, err)
		return
	}
	next.applyFallbacks()
	if err := next.Validate(); err != nil {
		log.Printf("[CONFIG] Reload of %s ignored: %v", name, err)
		return
	}

	w.mu.Lock()
	subscribers := append([]func(*Config){}, w.subscribers...)
	w.mu.Unlock()

	for _, fn := range subscribers {
		fn(&next)
	}
	log.Printf("[CONFIG] Reloaded %s", name)
}
