package app

import (
	"errors"
	"fmt"
	"strings"

	"sheets_obs_sync/internal/cells"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "SHEETS_OBS"

	DefaultRange          = "A1:Z1000"
	DefaultUpdateInterval = 1500
	MinUpdateInterval     = 1000
	DefaultOBSHost        = "localhost"
	DefaultOBSPort        = 4455
	DefaultFilesDirectory = "./files"
)

type OBSConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Password    string `mapstructure:"password"`
	AuthEnabled bool   `mapstructure:"auth_enabled"`
}

type FilesConfig struct {
	Enabled   bool              `mapstructure:"enabled"`
	Directory string            `mapstructure:"directory"`
	Cells     map[string]string `mapstructure:"cells"`
}

// Config is the settings snapshot a run is started with.
type Config struct {
	APIKey         string      `mapstructure:"api_key"`
	SpreadsheetID  string      `mapstructure:"spreadsheet_id"`
	TabName        string      `mapstructure:"tab_name"`
	Range          string      `mapstructure:"range"`
	UpdateInterval int         `mapstructure:"update_interval"`
	Dimension      string      `mapstructure:"dimension"`
	OBS            OBSConfig   `mapstructure:"obs"`
	FS             FilesConfig `mapstructure:"fs"`
}

// NewViper returns a viper instance reading SHEETS_OBS_* environment
// variables, e.g. SHEETS_OBS_OBS_PASSWORD for obs.password.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// every key needs a default so environment values reach Unmarshal
	v.SetDefault("api_key", "")
	v.SetDefault("spreadsheet_id", "")
	v.SetDefault("tab_name", "")
	v.SetDefault("range", "")
	v.SetDefault("update_interval", 0)
	v.SetDefault("dimension", "")
	v.SetDefault("obs.enabled", true)
	v.SetDefault("obs.host", "")
	v.SetDefault("obs.port", 0)
	v.SetDefault("obs.password", "")
	v.SetDefault("fs.enabled", false)
	v.SetDefault("fs.directory", "")
	return v
}

// LoadConfig reads the TOML file at path (if any) into v and unmarshals the
// merged flags, environment, file and defaults. The result is not validated.
func LoadConfig(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		log.Debug().Str("path", path).Msg("Loaded configuration file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	// auth follows the password unless stated explicitly
	if v.IsSet("obs.auth_enabled") {
		cfg.OBS.AuthEnabled = v.GetBool("obs.auth_enabled")
	} else {
		cfg.OBS.AuthEnabled = cfg.OBS.Password != ""
	}

	return &cfg, nil
}

// Validate checks required fields and fills defaults in place.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("API key is required")
	}
	if c.SpreadsheetID == "" {
		return errors.New("spreadsheet ID is required")
	}
	if c.TabName == "" {
		return errors.New("tab name is required")
	}

	if c.Range == "" {
		log.Info().Str("range", DefaultRange).Msg("Range not specified, using default")
		c.Range = DefaultRange
	}

	switch {
	case c.UpdateInterval == 0:
		log.Info().Int("interval_ms", DefaultUpdateInterval).Msg("Update interval not specified, using default")
		c.UpdateInterval = DefaultUpdateInterval
	case c.UpdateInterval < MinUpdateInterval:
		return fmt.Errorf("update interval must be at least %dms, got %dms", MinUpdateInterval, c.UpdateInterval)
	}

	if c.Dimension == "" {
		c.Dimension = string(cells.Rows)
	}
	dim, err := cells.ParseDimension(c.Dimension)
	if err != nil {
		return err
	}
	c.Dimension = string(dim)

	if err := c.OBS.validate(); err != nil {
		return err
	}
	if err := c.FS.validate(); err != nil {
		return err
	}

	if !c.OBS.Enabled && !c.FS.Enabled {
		return errors.New("both OBS and file integrations are disabled, nothing to do")
	}
	return nil
}

func (o *OBSConfig) validate() error {
	if o.Host == "" {
		log.Info().Str("host", DefaultOBSHost).Msg("OBS host not specified, using default")
		o.Host = DefaultOBSHost
	}
	if o.Port == 0 {
		log.Info().Int("port", DefaultOBSPort).Msg("OBS port not specified, using default")
		o.Port = DefaultOBSPort
	}
	if o.Port < 1 || o.Port > 65535 {
		return fmt.Errorf("OBS port must be between 1 and 65535, got %d", o.Port)
	}

	if !o.AuthEnabled {
		o.Password = ""
	} else if o.Password == "" {
		return errors.New("OBS password is required if authentication is enabled")
	}
	return nil
}

func (f *FilesConfig) validate() error {
	if !f.Enabled {
		return nil
	}
	if f.Directory == "" {
		f.Directory = DefaultFilesDirectory
	}
	for key, ref := range f.Cells {
		if _, _, err := cells.ParseCell(ref); err != nil {
			return fmt.Errorf("invalid cell for file %s: %w", key, err)
		}
	}
	return nil
}

// DimensionValue returns the validated major dimension.
func (c *Config) DimensionValue() cells.Dimension {
	return cells.Dimension(c.Dimension)
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	c.APIKey = mask(c.APIKey)
	c.OBS.Password = mask(c.OBS.Password)
	return c
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
