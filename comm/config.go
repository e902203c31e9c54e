package comm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFile = "btserial.yaml"

// Config holds the settings of one run. Zero-valued fields are filled from
// the default tags before a file is applied on top.
type Config struct {
	ServiceUUID    string        `json:"service_uuid" yaml:"service_uuid" default:"00001101-0000-1000-8000-00805f9b34fb"`
	Directory      string        `json:"directory" yaml:"directory" default:"bluez"`     // bluez, static
	Adapter        string        `json:"adapter" yaml:"adapter"`                         // bluez adapter, empty picks the first
	Transport      string        `json:"transport" yaml:"transport" default:"profile"`   // profile, socket, tty
	Picker         string        `json:"picker" yaml:"picker" default:"terminal"`        // terminal, window, address
	Address        string        `json:"address" yaml:"address"`                         // address picker and static directory
	Channel        int           `json:"channel" yaml:"channel" default:"0"`             // socket transport, 0 probes
	ProbeChannels  int           `json:"probe_channels" yaml:"probe_channels" default:"5"`
	TTY            string        `json:"tty" yaml:"tty" default:"/dev/rfcomm0"`
	Baud           int           `json:"baud" yaml:"baud" default:"9600"`
	CacheMode      string        `json:"cache_mode" yaml:"cache_mode" default:"cached"`
	RefreshTime    time.Duration `json:"refresh_time" yaml:"refresh_time" default:"5s"`
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout" default:"30s"`
	TickInterval   time.Duration `json:"tick_interval" yaml:"tick_interval" default:"100ms"`
	ReadTimeout    time.Duration `json:"read_timeout" yaml:"read_timeout" default:"20ms"`
	LogLevel       string        `json:"log_level" yaml:"log_level" default:"info"`
}

func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// LoadConfig reads path over the defaults. A missing file is not an error.
// The format follows the extension: .json, otherwise YAML. JSON expresses
// durations in nanoseconds. The result is not validated, so callers can
// apply overrides first and call Validate once.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if isJSON(path) {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// Validate checks the enumerated fields and the service id.
func (c *Config) Validate() error {
	if _, err := c.ServiceID(); err != nil {
		return err
	}
	if _, err := ParseCacheMode(c.CacheMode); err != nil {
		return err
	}
	if err := oneOf("directory", c.Directory, "bluez", "static"); err != nil {
		return err
	}
	if err := oneOf("transport", c.Transport, "profile", "socket", "tty"); err != nil {
		return err
	}
	if err := oneOf("picker", c.Picker, "terminal", "window", "address"); err != nil {
		return err
	}
	if c.Picker == "address" && c.Address == "" {
		return fmt.Errorf("picker %q needs an address", c.Picker)
	}
	if c.Channel < 0 || c.Channel > 30 {
		return fmt.Errorf("invalid rfcomm channel %d (must be 0..30)", c.Channel)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	return nil
}

func (c *Config) ServiceID() (ServiceID, error) {
	return ParseServiceID(c.ServiceUUID)
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q (must be %s)", field, value, strings.Join(allowed, ", "))
}
