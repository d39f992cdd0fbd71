package whisper

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/whisperplaud/transcription-worker/internal/observability/metrics"
)

// Devices recognized by the cache.
const (
	DeviceAuto = "auto"
	DeviceCUDA = "cuda"
	DeviceCPU  = "cpu"
)

// LoadFunc loads an engine for one model kind on a specific device.
type LoadFunc func(ctx context.Context, kind, language, device string) (Engine, error)

type cacheKey struct {
	kind     string
	language string
}

// Cache lazily loads engines and keeps them for the lifetime of the worker
// process, keyed by (model kind, language). A failed load leaves the slot
// empty so a later job can retry; a partially loaded engine is never stored.
//
// Engines are read-only once loaded and the worker runs one job at a time,
// so reuse across sequential jobs needs no further synchronization.
type Cache struct {
	mu      sync.Mutex
	device  string
	load    LoadFunc
	engines map[cacheKey]Engine
	metrics *metrics.Metrics
}

// NewCache creates an empty cache. device is the preferred device
// (auto, cuda or cpu); auto behaves like cuda with a CPU fallback.
func NewCache(device string, load LoadFunc) *Cache {
	if device == "" {
		device = DeviceAuto
	}
	return &Cache{
		device:  device,
		load:    load,
		engines: make(map[cacheKey]Engine),
	}
}

// Instrument makes the cache count load attempts per device.
func (c *Cache) Instrument(m *metrics.Metrics) {
	c.metrics = m
}

// Get returns the engine for (kind, language), loading it on first use.
// The high-performance device is attempted first; on failure the cache
// falls back once to CPU. The engine's reported model identity carries the
// device actually used.
func (c *Cache) Get(ctx context.Context, kind, language string) (Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{kind: kind, language: language}
	if eng, ok := c.engines[key]; ok {
		return eng, nil
	}

	eng, err := c.loadWithFallback(ctx, kind, language)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelInit, kind, err)
	}

	c.engines[key] = eng
	log.Info().
		Str("model", kind).
		Str("language", language).
		Str("device", eng.Info().Device).
		Msg("Engine loaded")
	return eng, nil
}

func (c *Cache) loadWithFallback(ctx context.Context, kind, language string) (Engine, error) {
	first := c.device
	if first == DeviceAuto {
		first = DeviceCUDA
	}

	eng, err := c.load(ctx, kind, language, first)
	c.record(first, err)
	if err == nil {
		return eng, nil
	}
	if first == DeviceCPU {
		return nil, err
	}

	log.Warn().
		Err(err).
		Str("model", kind).
		Str("device", first).
		Msg("Engine load failed, falling back to CPU")

	eng, cpuErr := c.load(ctx, kind, language, DeviceCPU)
	c.record(DeviceCPU, cpuErr)
	if cpuErr != nil {
		return nil, fmt.Errorf("%s load failed (%v); cpu fallback failed: %w", first, err, cpuErr)
	}
	return eng, nil
}

func (c *Cache) record(device string, err error) {
	if c.metrics != nil {
		c.metrics.RecordModelLoad(device, err)
	}
}

// Loaded reports whether an engine for (kind, language) is already cached.
func (c *Cache) Loaded(kind, language string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.engines[cacheKey{kind: kind, language: language}]
	return ok
}
