package server

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"niena/internal/config"
	"niena/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// buildTLSConfig creates the TLS configuration for the configured mode.
// It returns nil when TLS is disabled.
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		return nil, nil
	case "server", "mutual":
	default:
		return nil, fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	tlsConfig := &tls.Config{MinVersion: minTLSVersion(s.TLSConfig.MinVersion)}

	if s.certs != nil {
		tlsConfig.GetCertificate = s.certs.GetCertificate
	} else {
		cert, err := loadServerCertificate(s.TLSConfig)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if s.TLSConfig.Mode != "mutual" {
		tlsConfig.ClientAuth = tls.NoClientCert
		return tlsConfig, nil
	}

	pool, err := loadCACertificatePool(s.TLSConfig.CAFile)
	if err != nil {
		return nil, err
	}
	tlsConfig.ClientCAs = pool
	tlsConfig.ClientAuth = clientAuthPolicy(s.TLSConfig.ClientAuthPolicy)

	return tlsConfig, nil
}

// loadServerCertificate loads the server key pair from files
func loadServerCertificate(cfg config.TLSConfig) (tls.Certificate, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return tls.Certificate{}, fmt.Errorf("TLS certificate and key files are required")
	}
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from files: %w", err)
	}
	return cert, nil
}

// loadCACertificatePool loads the CA pool used to verify client certificates
func loadCACertificatePool(caFile string) (*x509.CertPool, error) {
	if caFile == "" {
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode")
	}
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(caCert); !ok {
		return nil, fmt.Errorf("failed to append CA cert")
	}
	return pool, nil
}

func minTLSVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

// clientAuthPolicy returns the client authentication policy for mutual TLS
func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}

// CertReloader serves the current server certificate and reloads it when the
// certificate or key file changes on disk. A failed reload keeps the previous pair.
type CertReloader struct {
	cfg     config.TLSConfig
	logger  *errors.Logger
	watcher *fsnotify.Watcher

	mu         sync.RWMutex
	cert       *tls.Certificate
	reloads    int
	failures   int
	lastReload time.Time
	lastError  string

	done chan struct{}
	wg   sync.WaitGroup
}

// NewCertReloader loads the key pair and starts watching the directories holding it
func NewCertReloader(cfg config.TLSConfig, logger *errors.Logger) (*CertReloader, error) {
	cert, err := loadServerCertificate(cfg)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate watcher: %w", err)
	}

	// Watch directories so atomic replacements (rename over the file) are seen
	dirs := map[string]bool{filepath.Dir(cfg.CertFile): true, filepath.Dir(cfg.KeyFile): true}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	cr := &CertReloader{
		cfg:        cfg,
		logger:     logger,
		watcher:    watcher,
		cert:       &cert,
		lastReload: time.Now(),
		done:       make(chan struct{}),
	}

	cr.wg.Add(1)
	go cr.watch()
	return cr, nil
}

// GetCertificate implements tls.Config.GetCertificate
func (cr *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.cert, nil
}

// Reload reads the key pair from disk again
func (cr *CertReloader) Reload() error {
	cert, err := loadServerCertificate(cr.cfg)

	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.lastReload = time.Now()
	if err != nil {
		cr.failures++
		cr.lastError = err.Error()
		return err
	}
	cr.cert = &cert
	cr.reloads++
	cr.lastError = ""
	return nil
}

// Stats reports reload counters for /stats
func (cr *CertReloader) Stats() map[string]any {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	stats := map[string]any{
		"reload_count":     cr.reloads,
		"failure_count":    cr.failures,
		"last_reload_time": cr.lastReload,
	}
	if cr.lastError != "" {
		stats["last_error"] = cr.lastError
	}
	if cr.cert != nil && cr.cert.Leaf != nil {
		stats["expires_at"] = cr.cert.Leaf.NotAfter
	}
	return stats
}

func (cr *CertReloader) watch() {
	defer cr.wg.Done()

	certPath := filepath.Clean(cr.cfg.CertFile)
	keyPath := filepath.Clean(cr.cfg.KeyFile)

	for {
		select {
		case event, ok := <-cr.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Clean(event.Name)
			if name != certPath && name != keyPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := cr.Reload(); err != nil {
				// The pair may be mid-rotation; the next event retries
				cr.logger.LogError(err, "Failed to reload TLS certificate", "file", name)
				continue
			}
			cr.logger.Info("TLS certificate reloaded", "file", name)
		case err, ok := <-cr.watcher.Errors:
			if !ok {
				return
			}
			cr.logger.LogError(err, "Certificate watcher error")
		case <-cr.done:
			return
		}
	}
}

// Close stops watching
func (cr *CertReloader) Close() error {
	close(cr.done)
	err := cr.watcher.Close()
	cr.wg.Wait()
	return err
}
