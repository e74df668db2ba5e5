package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type TransportConfig struct {
	Type string     `mapstructure:"type"` // "stdio" or "sse"
	Host string     `mapstructure:"host"`
	Port int        `mapstructure:"port"`
	CORS CORSConfig `mapstructure:"cors"`
}

// CORSConfig applies to the SSE transport only.
type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

type ToolsConfig struct {
	ConfigFile   string        `mapstructure:"config_file"`
	SearchRoots  []string      `mapstructure:"search_roots"` // empty means platform defaults
	MaxDepth     int           `mapstructure:"max_depth"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

type DockingConfig struct {
	Padding        float64 `mapstructure:"padding"`
	Exhaustiveness int     `mapstructure:"exhaustiveness"`
	NumModes       int     `mapstructure:"num_modes"`
	EnergyRange    int     `mapstructure:"energy_range"`
}

// StepsConfig holds the argv of the external collaborators run by steps 4-6.
type StepsConfig struct {
	LigandConvert []string `mapstructure:"ligand_convert"`
	FormatConvert []string `mapstructure:"format_convert"`
	Docking       []string `mapstructure:"docking"`
}

type ServerConfig struct {
	Transport     TransportConfig `mapstructure:"transport"`
	LogLevel      string          `mapstructure:"log_level"`
	LogFormat     string          `mapstructure:"log_format"`
	LogBufferSize int             `mapstructure:"log_buffer_size"`
	WorkDir       string          `mapstructure:"work_dir"`
	Tools         ToolsConfig     `mapstructure:"tools"`
	Docking       DockingConfig   `mapstructure:"docking"`
	Steps         StepsConfig     `mapstructure:"steps"`
}

func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Transport: TransportConfig{
			Type: "stdio",
			Host: "localhost",
			Port: 8080,
			CORS: CORSConfig{
				Enabled:        false,
				AllowedOrigins: []string{},
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization"},
				MaxAge:         300,
			},
		},
		LogLevel:      "info",
		LogFormat:     "json",
		LogBufferSize: 1000,
		WorkDir:       ".",
		Tools: ToolsConfig{
			ConfigFile:   "tool_config.json",
			SearchRoots:  []string{},
			MaxDepth:     5,
			ProbeTimeout: 5 * time.Second,
		},
		Docking: DockingConfig{
			Padding:        10.0,
			Exhaustiveness: 8,
			NumModes:       9,
			EnergyRange:    3,
		},
		Steps: defaultSteps(),
	}
}

func defaultSteps() StepsConfig {
	if runtime.GOOS == "windows" {
		return StepsConfig{
			LigandConvert: []string{"python", "smile_to_sdf.py"},
			FormatConvert: []string{"cmd", "/C", "sdf_to_pdbqt.bat"},
			Docking:       []string{"cmd", "/C", "run_vina.bat"},
		}
	}
	return StepsConfig{
		LigandConvert: []string{"python3", "smile_to_sdf.py"},
		FormatConvert: []string{"sh", "sdf_to_pdbqt.sh"},
		Docking:       []string{"sh", "run_vina.sh"},
	}
}

// LoadConfig reads config.yaml from the standard search locations,
// environment overrides and defaults.
func LoadConfig() (*ServerConfig, error) {
	return load("")
}

// LoadConfigFile is LoadConfig with an explicit configuration file.
func LoadConfigFile(path string) (*ServerConfig, error) {
	return load(path)
}

func load(path string) (*ServerConfig, error) {
	config := DefaultConfig()

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/docking-mcp/")
		viper.AddConfigPath("$HOME/.docking-mcp/")
	}

	viper.SetEnvPrefix("DOCKING_MCP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("transport.type", config.Transport.Type)
	viper.SetDefault("transport.host", config.Transport.Host)
	viper.SetDefault("transport.port", config.Transport.Port)
	viper.SetDefault("transport.cors.enabled", config.Transport.CORS.Enabled)
	viper.SetDefault("transport.cors.allowed_origins", config.Transport.CORS.AllowedOrigins)
	viper.SetDefault("transport.cors.allowed_methods", config.Transport.CORS.AllowedMethods)
	viper.SetDefault("transport.cors.allowed_headers", config.Transport.CORS.AllowedHeaders)
	viper.SetDefault("transport.cors.max_age", config.Transport.CORS.MaxAge)
	viper.SetDefault("log_level", config.LogLevel)
	viper.SetDefault("log_format", config.LogFormat)
	viper.SetDefault("log_buffer_size", config.LogBufferSize)
	viper.SetDefault("work_dir", config.WorkDir)

	// Tool resolution defaults
	viper.SetDefault("tools.config_file", config.Tools.ConfigFile)
	viper.SetDefault("tools.search_roots", config.Tools.SearchRoots)
	viper.SetDefault("tools.max_depth", config.Tools.MaxDepth)
	viper.SetDefault("tools.probe_timeout", config.Tools.ProbeTimeout)

	// Docking engine defaults
	viper.SetDefault("docking.padding", config.Docking.Padding)
	viper.SetDefault("docking.exhaustiveness", config.Docking.Exhaustiveness)
	viper.SetDefault("docking.num_modes", config.Docking.NumModes)
	viper.SetDefault("docking.energy_range", config.Docking.EnergyRange)

	// External step collaborators
	viper.SetDefault("steps.ligand_convert", config.Steps.LigandConvert)
	viper.SetDefault("steps.format_convert", config.Steps.FormatConvert)
	viper.SetDefault("steps.docking", config.Steps.Docking)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func validateConfig(config *ServerConfig) error {
	if config.Transport.Port <= 0 || config.Transport.Port > 65535 {
		return fmt.Errorf("the port must be between 1 and 65535")
	}

	validTransports := map[string]bool{"stdio": true, "sse": true}
	if !validTransports[config.Transport.Type] {
		return fmt.Errorf("invalid transport type: %s", config.Transport.Type)
	}

	if config.Transport.CORS.MaxAge < 0 {
		return fmt.Errorf("the CORS max age cannot be negative")
	}

	if config.WorkDir == "" {
		return fmt.Errorf("the work directory cannot be empty")
	}

	if config.Tools.ConfigFile == "" {
		return fmt.Errorf("the tool configuration file cannot be empty")
	}

	if config.Tools.MaxDepth < 0 {
		return fmt.Errorf("the search depth cannot be negative")
	}

	if config.Tools.ProbeTimeout <= 0 {
		return fmt.Errorf("the probe timeout must be positive")
	}

	if config.Docking.Padding < 0 {
		return fmt.Errorf("the box padding cannot be negative")
	}

	if config.Docking.Exhaustiveness <= 0 || config.Docking.NumModes <= 0 || config.Docking.EnergyRange <= 0 {
		return fmt.Errorf("docking search parameters must be positive")
	}

	if len(config.Steps.LigandConvert) == 0 || len(config.Steps.FormatConvert) == 0 || len(config.Steps.Docking) == 0 {
		return fmt.Errorf("every external step needs a command")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	validLogFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validLogFormats[config.LogFormat] {
		return fmt.Errorf("invalid log format: %s", config.LogFormat)
	}

	return nil
}
