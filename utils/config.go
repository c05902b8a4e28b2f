package utils

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nci/eodatasets/images"
	"github.com/nci/eodatasets/names"
	"gopkg.in/yaml.v2"
)

var EtcDir = "."

// MetricsConfig selects where assembly records go. An empty LogDir logs
// them to stdout.
type MetricsConfig struct {
	LogDir         string `json:"log_dir" yaml:"log_dir"`
	MaxLogFileSize int64  `json:"max_log_file_size" yaml:"max_log_file_size"`
	MaxLogFiles    int    `json:"max_log_files" yaml:"max_log_files"`
	Verbose        bool   `json:"verbose" yaml:"verbose"`
	Disabled       bool   `json:"disabled" yaml:"disabled"`
}

// MASConfig holds the dataset index database and the lookup API settings.
type MASConfig struct {
	DSN          string `json:"dsn" yaml:"dsn"`
	Table        string `json:"table" yaml:"table"`
	ListenAddr   string `json:"listen_addr" yaml:"listen_addr"`
	MemcacheAddr string `json:"memcache_addr" yaml:"memcache_addr"`
	CacheSeconds int32  `json:"cache_seconds" yaml:"cache_seconds"`
}

// Config is the configuration of the packaging tools: which naming
// conventions to use, where datasets go, and the metrics and index
// settings.
type Config struct {
	Conventions           string            `json:"conventions" yaml:"conventions"`
	Collection            string            `json:"collection" yaml:"collection"`
	BaseProductURI        string            `json:"base_product_uri" yaml:"base_product_uri"`
	ValidDataMethod       string            `json:"valid_data_method" yaml:"valid_data_method"`
	AllowAbsolutePaths    bool              `json:"allow_absolute_paths" yaml:"allow_absolute_paths"`
	SkipExisting          bool              `json:"skip_existing" yaml:"skip_existing"`
	PlatformAbbreviations map[string]string `json:"platform_abbreviations" yaml:"platform_abbreviations"`
	ProducerAbbreviations map[string]string `json:"producer_abbreviations" yaml:"producer_abbreviations"`
	Metrics               MetricsConfig     `json:"metrics" yaml:"metrics"`
	MAS                   MASConfig         `json:"mas" yaml:"mas"`
}

const (
	DefaultMASTable     = "eo3_datasets"
	DefaultListenAddr   = ":8888"
	DefaultCacheSeconds = 300
)

func DefaultConfig() *Config {
	return &Config{
		Conventions:     "default",
		ValidDataMethod: "thorough",
		MAS: MASConfig{
			Table:        DefaultMASTable,
			ListenAddr:   DefaultListenAddr,
			CacheSeconds: DefaultCacheSeconds,
		},
	}
}

// LoadConfigFile reads a YAML or JSON (".json") config file over the
// current values.
func (config *Config) LoadConfigFile(configFile string) error {
	cfg, err := ioutil.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("Error while reading config file: %s. Error: %v", configFile, err)
	}

	if strings.ToLower(filepath.Ext(configFile)) == ".json" {
		err = json.Unmarshal(cfg, config)
	} else {
		err = yaml.UnmarshalStrict(cfg, config)
	}
	if err != nil {
		return fmt.Errorf("Error parsing config document: %s. Error: %v", configFile, err)
	}
	return config.Check()
}

// Environment variables that override config file values.
const (
	EnvConventions     = "EO3_CONVENTIONS"
	EnvCollection      = "EO3_COLLECTION"
	EnvBaseProductURI  = "EO3_BASE_PRODUCT_URI"
	EnvValidDataMethod = "EO3_VALID_DATA_METHOD"
	EnvMetricsLogDir   = "EO3_METRICS_LOG_DIR"
	EnvMASDSN          = "EO3_MAS_DSN"
	EnvMemcacheAddr    = "EO3_MEMCACHE_ADDR"
	EnvCacheSeconds    = "EO3_CACHE_SECONDS"
)

// ApplyEnv overrides values with the variables that lookup finds.
func (config *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		EnvConventions:     &config.Conventions,
		EnvCollection:      &config.Collection,
		EnvBaseProductURI:  &config.BaseProductURI,
		EnvValidDataMethod: &config.ValidDataMethod,
		EnvMetricsLogDir:   &config.Metrics.LogDir,
		EnvMASDSN:          &config.MAS.DSN,
		EnvMemcacheAddr:    &config.MAS.MemcacheAddr,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	if v, ok := lookup(EnvCacheSeconds); ok {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %v", EnvCacheSeconds, err)
		}
		config.MAS.CacheSeconds = int32(secs)
	}
	return config.Check()
}

// Check rejects unknown conventions and valid-data methods.
func (config *Config) Check() error {
	if _, err := names.Lookup(config.Conventions); err != nil {
		return err
	}
	if _, err := images.ParseValidDataMethod(config.ValidDataMethod); err != nil {
		return err
	}
	return nil
}

// LoadConfig builds the configuration from the defaults, then the config
// file (if any), then ".env" style files, then the process environment.
// Missing env files are ignored.
func LoadConfig(configFile string, envFiles ...string) (*Config, error) {
	config := DefaultConfig()
	if configFile != "" {
		if err := config.LoadConfigFile(configFile); err != nil {
			return nil, err
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	fileEnv := map[string]string{}
	for _, f := range envFiles {
		vals, err := godotenv.Read(f)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("Error reading env file %s: %v", f, err)
		}
		log.Printf("Loaded environment from %s", f)
		for k, v := range vals {
			fileEnv[k] = v
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}
	if err := config.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	return config, nil
}

// NamingConventions returns the configured conventions with the extra
// abbreviations and product URI applied.
func (config *Config) NamingConventions() (*names.Conventions, error) {
	c, err := names.Lookup(config.Conventions)
	if err != nil {
		return nil, err
	}
	c.AddAbbreviations(config.PlatformAbbreviations, config.ProducerAbbreviations)
	if config.BaseProductURI != "" {
		c.BaseProductURI = config.BaseProductURI
	}
	return c, nil
}

func (config *Config) ValidData() images.ValidDataMethod {
	m, _ := images.ParseValidDataMethod(config.ValidDataMethod)
	return m
}

// LoadAllConfigFiles finds every "eo3.yaml" or "config.json" below
// rootDir, keyed by its directory relative to rootDir, so collections can
// carry their own conventions.
func LoadAllConfigFiles(rootDir string) (map[string]*Config, error) {
	configMap := make(map[string]*Config)
	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && (info.Name() == "eo3.yaml" || info.Name() == "config.json") {
			relPath, _ := filepath.Rel(rootDir, filepath.Dir(path))
			log.Printf("Loading config file: %s under namespace: %s\n", path, relPath)

			config := DefaultConfig()
			if e := config.LoadConfigFile(path); e != nil {
				return e
			}
			configMap[relPath] = config
		}
		return nil
	})

	if err == nil && len(configMap) == 0 {
		err = fmt.Errorf("No config file found")
	}

	return configMap, err
}
