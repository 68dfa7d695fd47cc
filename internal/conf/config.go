// config.go: settings struct for corrbuf and functions to load and save it.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/corrlab/corrbuf/internal/corrpool"
	"github.com/corrlab/corrbuf/internal/errors"
	"github.com/corrlab/corrbuf/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Matcher names accepted in pool.matcher.
const (
	MatcherAll    = "all"
	MatcherQuorum = "quorum"
)

// Receiver modes accepted in receivers.mode.
const (
	ReceiverModeUDP      = "udp"
	ReceiverModeSimulate = "simulate"
)

// Datastore types accepted in datastore.type.
const (
	DatastoreSQLite = "sqlite"
	DatastoreMySQL  = "mysql"
)

// RemapSettings maps hardware identifiers to logical indices. Position i of
// each list holds the hardware id that becomes logical index i. An empty
// list leaves that dimension unchanged.
type RemapSettings struct {
	Enabled  bool
	Antennas []uint16
	Channels []uint16
	Beams    []uint16
}

// PoolSettings sizes the buffer pool.
type PoolSettings struct {
	Antennas               int     // number of antennas correlated together
	Channels               int     // capture cards / frequency channels
	Beams                  int     // beams per channel
	Multiplier             int     // buffers per (channel, beam) pair
	SampleCount            int     // complex samples per buffer
	DuplicateSecondAntenna bool    // mirror antenna 1 into antenna 2
	Matcher                string  // "all" or "quorum"
	Quorum                 int     // antennas required when matcher is quorum
	MaxMemoryPercent       float64 // share of host memory the pool may occupy
	Remap                  RemapSettings
}

// UDPSettings configures network receivers.
type UDPSettings struct {
	Listen         []string // one receiver per address
	MulticastGroup string   // optional group to join on every socket
	Interface      string   // interface for the multicast join
	ReadBuffer     int      // socket receive buffer in bytes, 0 keeps the OS default
}

// SimulateSettings configures the synthetic receivers.
type SimulateSettings struct {
	Rate  float64 // buffers per second per stream
	Tone  float64 // tone frequency in cycles per sample
	Noise float64 // additive noise amplitude
}

// ReceiverSettings selects and configures the sample sources.
type ReceiverSettings struct {
	Mode            string // "udp" or "simulate"
	DropLogInterval time.Duration
	UDP             UDPSettings
	Simulate        SimulateSettings
}

// CorrelatorSettings configures the correlation consumer.
type CorrelatorSettings struct {
	Enabled  bool
	LogEvery int // log one result in every LogEvery sets, 0 disables
}

// CaptureSettings configures the single-buffer capture consumer.
type CaptureSettings struct {
	Path       string  // output directory for WAV files
	RingSize   int     // staging ring buffer in bytes
	MaxRecords int     // stop after this many records, 0 runs until cancelled
	MinFreeMB  int     // refuse to open files below this much free space
	Scale      float64 // full-scale amplitude mapped to int16 max
	SampleRate int     // sample rate written to the WAV header
}

// WebServerSettings configures the status API.
type WebServerSettings struct {
	Enabled bool
	Listen  string
}

// MQTTSettings configures result publication.
type MQTTSettings struct {
	Enabled  bool
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	Retain   bool
}

// SQLiteSettings configures the SQLite archive.
type SQLiteSettings struct {
	Path string
}

// MySQLSettings configures the MySQL archive.
type MySQLSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// DatastoreSettings configures the correlation result archive.
type DatastoreSettings struct {
	Enabled   bool
	Type      string        // "sqlite" or "mysql"
	Retention time.Duration // delete results older than this, 0 keeps all
	SQLite    SQLiteSettings
	MySQL     MySQLSettings
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

// Settings is the complete corrbuf configuration.
type Settings struct {
	Debug bool

	Pool       PoolSettings
	Receivers  ReceiverSettings
	Correlator CorrelatorSettings
	Capture    CaptureSettings
	WebServer  WebServerSettings
	MQTT       MQTTSettings
	Datastore  DatastoreSettings
	Sentry     SentrySettings
	Logging    logger.LoggingConfig
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the configuration file and environment variables
// into a validated Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_config").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper registers defaults and environment bindings and reads the
// configuration file, creating it from the embedded template when missing.
func initViper() error {
	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		GetLogger().Warn("environment variable configuration issues", logger.Error(err))
	}

	// An explicit file set with SetConfigFile takes precedence over the
	// search paths.
	if viper.ConfigFileUsed() == "" {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		for _, path := range configPaths {
			viper.AddConfigPath(path)
		}
	}

	err := viper.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return createDefaultConfig()
	}
	return errors.New(err).
		Category(errors.CategoryConfiguration).
		Context("operation", "read_config").
		Context("config_file", viper.ConfigFileUsed()).
		Build()
}

// SetConfigFile makes Load read path instead of searching the default
// locations.
func SetConfigFile(path string) {
	viper.SetConfigFile(path)
}

// createDefaultConfig writes the embedded template to the first default
// config path and reads it.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "create_config_dir").
			Context("path", filepath.Dir(configPath)).
			Build()
	}

	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "write_default_config").
			Context("path", configPath).
			Build()
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig returns the embedded config.yaml.
func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "read_embedded_config").
			Build()
	}
	return data, nil
}

// GetSettings returns the settings produced by the last successful Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath through a temporary file so
// a crash never leaves a truncated config behind. Comments in the existing
// file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "replace_config").
			Context("path", configPath).
			Build()
	}
	return nil
}

// Capacity is the number of buffers the pool will allocate.
func (p *PoolSettings) Capacity() int {
	return p.Multiplier * p.Channels * p.Beams
}

// BufferSize is the size in bytes of one pool buffer.
func (p *PoolSettings) BufferSize() int {
	return corrpool.HeaderSize + p.SampleCount*corrpool.SampleSize
}

// MemoryFootprint is the total size in bytes of the pool backing store.
func (p *PoolSettings) MemoryFootprint() uint64 {
	return uint64(p.Capacity()) * uint64(p.BufferSize())
}

// PoolConfig translates the settings into a corrpool.Config. Logger and
// Recorder are left for the caller to inject.
func (p *PoolSettings) PoolConfig() corrpool.Config {
	cfg := corrpool.Config{
		Antennas:               p.Antennas,
		Channels:               p.Channels,
		Beams:                  p.Beams,
		Multiplier:             p.Multiplier,
		SampleCount:            p.SampleCount,
		DuplicateSecondAntenna: p.DuplicateSecondAntenna,
	}
	if p.Matcher == MatcherQuorum {
		cfg.Matcher = corrpool.Quorum{Min: p.Quorum}
	}
	if p.Remap.Enabled {
		cfg.Preprocessor = corrpool.RemapPreprocessor{
			Antennas: remapTable(p.Remap.Antennas),
			Channels: remapTable(p.Remap.Channels),
			Beams:    remapTable(p.Remap.Beams),
		}
	}
	return cfg
}

func remapTable(hardware []uint16) map[uint16]uint16 {
	if len(hardware) == 0 {
		return nil
	}
	table := make(map[uint16]uint16, len(hardware))
	for logical, hw := range hardware {
		table[hw] = uint16(logical)
	}
	return table
}
