package comm

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "00001101-0000-1000-8000-00805f9b34fb", cfg.ServiceUUID)
	assert.Equal(t, "bluez", cfg.Directory)
	assert.Equal(t, "profile", cfg.Transport)
	assert.Equal(t, "terminal", cfg.Picker)
	assert.Equal(t, 0, cfg.Channel)
	assert.Equal(t, 5, cfg.ProbeChannels)
	assert.Equal(t, 9600, cfg.Baud)
	assert.Equal(t, "cached", cfg.CacheMode)
	assert.Equal(t, 5*time.Second, cfg.RefreshTime)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 20*time.Millisecond, cfg.ReadTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())

	id, err := cfg.ServiceID()
	require.NoError(t, err)
	assert.Equal(t, SerialPortServiceID, id)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "btserial.yaml")
	data := `
transport: socket
channel: 3
picker: address
address: "98:D3:31:F5:1A:2B"
tick_interval: 250ms
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "socket", cfg.Transport)
	assert.Equal(t, 3, cfg.Channel)
	assert.Equal(t, "address", cfg.Picker)
	assert.Equal(t, "98:D3:31:F5:1A:2B", cfg.Address)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	// untouched fields keep their defaults
	assert.Equal(t, "bluez", cfg.Directory)
	assert.Equal(t, 20*time.Millisecond, cfg.ReadTimeout)
}

func TestLoadConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"transport":"tty","tty":"COM4","baud":115200}`), 0644))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "tty", cfg.Transport)
	assert.Equal(t, "COM4", cfg.TTY)
	assert.Equal(t, 115200, cfg.Baud)
}

func TestLoadConfig_NotParsed(t *testing.T) {
	for _, name := range []string{"btserial.yaml", "_config.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, os.WriteFile(path, []byte("transport: [\n"), 0644))

			_, err := LoadConfig(path)
			assert.ErrorContains(t, err, "parse config")
		})
	}
}

func TestLoadConfig_DoesNotValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "btserial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("picker: address\ntransport: carrier-pigeon\n"), 0644))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "address", cfg.Picker)
	assert.Error(t, cfg.Validate())

	cfg.Address = "98:D3:31:F5:1A:2B"
	cfg.Transport = "socket"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_ValidateInvalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{name: "bad transport", modify: func(c *Config) { c.Transport = "carrier-pigeon" }},
		{name: "bad directory", modify: func(c *Config) { c.Directory = "ldap" }},
		{name: "bad picker", modify: func(c *Config) { c.Picker = "voice" }},
		{name: "address picker without address", modify: func(c *Config) { c.Picker = "address" }},
		{name: "bad service", modify: func(c *Config) { c.ServiceUUID = "serial" }},
		{name: "bad cache mode", modify: func(c *Config) { c.CacheMode = "sometimes" }},
		{name: "bad channel", modify: func(c *Config) { c.Channel = 31 }},
		{name: "zero tick", modify: func(c *Config) { c.TickInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	for _, name := range []string{"btserial.yaml", "_config.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := DefaultConfig()
			cfg.Transport = "socket"
			cfg.Channel = 2

			require.NoError(t, SaveConfig(path, cfg))
			loaded, err := LoadConfig(path)

			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}
