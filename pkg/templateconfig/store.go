package templateconfig

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/yourusername/report-slides-app/pkg/logger"
)

// Store loads the template document once and serves it until Clear is called.
type Store struct {
	source Source
	log    *logger.Logger

	mu     sync.RWMutex
	cached *Config
	reads  int
	gen    uint64 // bumped by Clear

	group singleflight.Group
}

// NewStore creates an empty store; nothing is read until the first access.
func NewStore(source Source, log *logger.Logger) *Store {
	return &Store{
		source: source,
		log:    logger.OrNop(log).Component("templateconfig"),
	}
}

// Load returns the cached configuration, reading and validating the source
// on first use. Concurrent first calls share a single read.
func (s *Store) Load() (*Config, error) {
	s.mu.RLock()
	cfg := s.cached
	s.mu.RUnlock()
	if cfg != nil {
		return cfg, nil
	}

	v, err, _ := s.group.Do("load", func() (interface{}, error) {
		s.mu.RLock()
		cfg, gen := s.cached, s.gen
		s.mu.RUnlock()
		if cfg != nil {
			return cfg, nil
		}

		cfg, err := s.read()
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		// a Clear during the read invalidates it; the caller still gets
		// the document, but it is not cached
		if s.gen == gen {
			s.cached = cfg
		}
		s.mu.Unlock()
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Config), nil
}

func (s *Store) read() (*Config, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()

	name := s.source.Name()
	data, err := s.source.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Source: name, Err: errors.New("configuration source is missing")}
		}
		return nil, &LoadError{Source: name, Err: errors.Wrap(err, "read configuration")}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &LoadError{Source: name, Err: errors.Wrap(err, "parse configuration")}
	}

	if cfg.Colors == nil {
		return nil, &LoadError{Source: name, Err: errors.New("missing required section \"colors\"")}
	}
	if cfg.Fonts == nil {
		return nil, &LoadError{Source: name, Err: errors.New("missing required section \"fonts\"")}
	}
	if cfg.SlideTypes == nil {
		return nil, &LoadError{Source: name, Err: errors.New("missing required section \"slideTypes\"")}
	}

	for _, key := range RequiredLayoutKeys {
		if cfg.SlideTypes[key] == nil {
			cfg.MissingLayouts = append(cfg.MissingLayouts, key)
			s.log.Warn("template config is missing a slide layout", "source", name, "layout", key)
		}
	}

	s.log.Info("template config loaded",
		"source", name,
		"colors", len(cfg.Colors),
		"fonts", len(cfg.Fonts),
		"layouts", len(cfg.SlideTypes),
	)
	return &cfg, nil
}

// SlideLayout returns the layout for key, or nil if it is undefined or the
// configuration cannot be loaded.
func (s *Store) SlideLayout(key string) *Layout {
	cfg, err := s.Load()
	if err != nil {
		s.log.Warn("slide layout unavailable", "layout", key, "error", err)
		return nil
	}
	return cfg.SlideTypes[key]
}

// FontConfig returns the font for role, falling back to the body font.
func (s *Store) FontConfig(role string) (Font, error) {
	cfg, err := s.Load()
	if err != nil {
		return Font{}, err
	}
	if f, ok := cfg.Fonts[role]; ok {
		return f, nil
	}
	return cfg.Fonts["body"], nil
}

// Color returns the named palette entry, falling back to the text color.
func (s *Store) Color(name string) (string, error) {
	cfg, err := s.Load()
	if err != nil {
		return "", err
	}
	if c, ok := cfg.Colors[name]; ok {
		return c, nil
	}
	return cfg.Colors["text"], nil
}

// Clear drops the cached configuration; the next access reloads the source.
// A load already in flight when Clear runs does not repopulate the cache.
func (s *Store) Clear() {
	s.mu.Lock()
	s.cached = nil
	s.gen++
	s.mu.Unlock()
	s.group.Forget("load")
	s.log.Debug("template config cache cleared")
}

// Loaded reports whether a configuration is currently cached.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached != nil
}

// Reads returns how many times the source has been read.
func (s *Store) Reads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reads
}
