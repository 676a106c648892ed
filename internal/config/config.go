// Package config loads the optional TOML configuration shared by the CLI and
// the HTTP server.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/rezonia/zatca-qr/internal/render"
	"github.com/rezonia/zatca-qr/internal/stamp"
)

// EnvConfigPath names the environment variable read when --config is not set
const EnvConfigPath = "ZATCA_QR_CONFIG"

type Config struct {
	Server ServerConfig `toml:"server"`
	Render RenderConfig `toml:"render"`
	Stamp  StampConfig  `toml:"stamp"`
	Log    LogConfig    `toml:"log"`
}

type ServerConfig struct {
	Address        string   `toml:"address"`
	ReadTimeout    string   `toml:"read_timeout"`
	WriteTimeout   string   `toml:"write_timeout"`
	RequestTimeout string   `toml:"request_timeout"`
	MaxBodyBytes   int64    `toml:"max_body_bytes"`
	Debug          bool     `toml:"debug"`
	TrustedProxies []string `toml:"trusted_proxies"`
}

type RenderConfig struct {
	Level         string `toml:"level"`
	Size          int    `toml:"size"`
	Format        string `toml:"format"`
	DisableBorder bool   `toml:"disable_border"`
}

type StampConfig struct {
	Pages    []string `toml:"pages"`
	Position string   `toml:"position"`
	Scale    float64  `toml:"scale"`
	Relative bool     `toml:"relative"`
	OffsetX  float64  `toml:"offset_x"`
	OffsetY  float64  `toml:"offset_y"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration
func Default() Config {
	st := stamp.DefaultOptions()
	return Config{
		Server: ServerConfig{
			Address:        ":8080",
			ReadTimeout:    "30s",
			WriteTimeout:   "30s",
			RequestTimeout: "30s",
			MaxBodyBytes:   1 << 20,
		},
		Render: RenderConfig{
			Level:  render.LevelMedium.String(),
			Size:   render.DefaultSize,
			Format: string(render.FormatDataURI),
		},
		Stamp: StampConfig{
			Pages:    st.Pages,
			Position: st.Position,
			Scale:    st.Scale,
			OffsetX:  st.OffsetX,
			OffsetY:  st.OffsetY,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Address) == "" {
		return fmt.Errorf("server.address is required")
	}
	for name, value := range map[string]string{
		"server.read_timeout":    c.Server.ReadTimeout,
		"server.write_timeout":   c.Server.WriteTimeout,
		"server.request_timeout": c.Server.RequestTimeout,
	} {
		if _, err := parseDuration(value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes must not be negative")
	}

	if _, err := c.Render.Options(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := c.Stamp.Options().Validate(); err != nil {
		return fmt.Errorf("stamp: %w", err)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// Timeouts returns the parsed server durations
func (s ServerConfig) Timeouts() (read, write, request time.Duration) {
	read, _ = parseDuration(s.ReadTimeout)
	write, _ = parseDuration(s.WriteTimeout)
	request, _ = parseDuration(s.RequestTimeout)
	return read, write, request
}

// Options converts the section into renderer options
func (r RenderConfig) Options() (render.Options, error) {
	level, err := render.ParseLevel(r.Level)
	if err != nil {
		return render.Options{}, err
	}
	format, err := render.ParseFormat(r.Format)
	if err != nil {
		return render.Options{}, err
	}
	if r.Size < 0 || r.Size > render.MaxSize {
		return render.Options{}, fmt.Errorf("%w: %d", render.ErrInvalidSize, r.Size)
	}
	opts := render.Options{
		Level:         level,
		Size:          r.Size,
		Format:        format,
		DisableBorder: r.DisableBorder,
	}
	return opts.WithDefaults(), nil
}

// Options converts the section into stamp options
func (s StampConfig) Options() stamp.Options {
	return stamp.Options{
		Pages:    s.Pages,
		Position: s.Position,
		Scale:    s.Scale,
		Relative: s.Relative,
		OffsetX:  s.OffsetX,
		OffsetY:  s.OffsetY,
		OnTop:    true,
	}
}

func parseDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative")
	}
	return d, nil
}
