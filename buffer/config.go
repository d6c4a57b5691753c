package buffer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds buffer pool configuration. Pool size and replacer K are
// fixed for the pool's lifetime.
type Config struct {
	// Buffer pool
	PoolSize  uint32 `json:"pool_size"`  // Number of frames in the pool
	Replacer  string `json:"replacer"`   // Replacement policy (lruk, lru)
	ReplacerK uint32 `json:"replacer_k"` // LRU-K access history depth

	// Disk backend
	DataDirectory string `json:"data_directory"` // Directory for the data file
	DataFile      string `json:"data_file"`      // Data file name
	Backend       string `json:"backend"`        // Backend type (file, mmap)
	Compression   string `json:"compression"`    // Page compression (none, lz4, snappy)

	// Performance
	EnablePrefetch bool `json:"enable_prefetch"` // Sequential prefetching
	EnableMetrics  bool `json:"enable_metrics"`  // Collect performance metrics
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		PoolSize:       100,
		Replacer:       "lruk",
		ReplacerK:      2,
		DataDirectory:  "./data",
		DataFile:       "pool.db",
		Backend:        "file",
		Compression:    "none",
		EnablePrefetch: false,
		EnableMetrics:  true,
	}
}

// LoadConfigFromFile loads configuration from a JSON file
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigFromEnv loads configuration from environment variables,
// falling back to defaults for anything unset
func LoadConfigFromEnv() *Config {
	config := DefaultConfig()

	if val := os.Getenv("HEXPOOL_POOL_SIZE"); val != "" {
		if size, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.PoolSize = uint32(size)
		}
	}

	if val := os.Getenv("HEXPOOL_REPLACER"); val != "" {
		config.Replacer = val
	}

	if val := os.Getenv("HEXPOOL_REPLACER_K"); val != "" {
		if k, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.ReplacerK = uint32(k)
		}
	}

	if val := os.Getenv("HEXPOOL_DATA_DIRECTORY"); val != "" {
		config.DataDirectory = val
	}

	if val := os.Getenv("HEXPOOL_DATA_FILE"); val != "" {
		config.DataFile = val
	}

	if val := os.Getenv("HEXPOOL_BACKEND"); val != "" {
		config.Backend = val
	}

	if val := os.Getenv("HEXPOOL_COMPRESSION"); val != "" {
		config.Compression = val
	}

	if val := os.Getenv("HEXPOOL_ENABLE_PREFETCH"); val != "" {
		config.EnablePrefetch = val == "true" || val == "1"
	}

	if val := os.Getenv("HEXPOOL_ENABLE_METRICS"); val != "" {
		config.EnableMetrics = val == "true" || val == "1"
	}

	return config
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.PoolSize == 0 {
		return fmt.Errorf("pool size must be greater than 0")
	}

	switch c.Replacer {
	case "lruk", "lru":
	default:
		return fmt.Errorf("invalid replacer: %s (must be lruk or lru)", c.Replacer)
	}

	if c.Replacer == "lruk" && c.ReplacerK == 0 {
		return fmt.Errorf("replacer K must be greater than 0")
	}

	if c.DataDirectory == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.DataFile == "" {
		return fmt.Errorf("data file cannot be empty")
	}

	switch c.Backend {
	case "file", "mmap":
	default:
		return fmt.Errorf("invalid backend: %s (must be file or mmap)", c.Backend)
	}

	switch c.Compression {
	case "none", "lz4", "snappy":
	default:
		return fmt.Errorf("invalid compression: %s (must be none, lz4, or snappy)", c.Compression)
	}

	return nil
}

// NewBufferPoolManagerFromConfig builds the disk backend and buffer pool
// described by the configuration. The returned pool owns the backend;
// flush all pages and close the returned DiskManager on shutdown.
func NewBufferPoolManagerFromConfig(config *Config) (*BufferPoolManager, DiskManager, error) {
	if err := config.Validate(); err != nil {
		return nil, nil, ErrInvalidConfig("NewBufferPoolManagerFromConfig", err.Error())
	}

	if err := os.MkdirAll(config.DataDirectory, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	path := filepath.Join(config.DataDirectory, config.DataFile)

	var disk DiskManager
	var err error
	switch config.Backend {
	case "mmap":
		disk, err = NewMmapDiskManager(path)
	default:
		disk, err = NewFileDiskManager(path)
	}
	if err != nil {
		return nil, nil, err
	}

	switch config.Compression {
	case "lz4":
		disk, err = NewCompressedDiskManager(disk, CompressionLZ4)
	case "snappy":
		disk, err = NewCompressedDiskManager(disk, CompressionSnappy)
	}
	if err != nil {
		return nil, nil, err
	}

	replacer := NewReplacer(config.Replacer, config.PoolSize, config.ReplacerK)
	bpm, err := NewBufferPoolManagerWithReplacer(config.PoolSize, disk, replacer)
	if err != nil {
		disk.Close()
		return nil, nil, err
	}

	if config.EnablePrefetch {
		bpm.EnablePrefetch()
	}

	return bpm, disk, nil
}
