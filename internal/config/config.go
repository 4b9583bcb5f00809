package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"label-web/internal/fonts"
	"label-web/internal/label"
)

const (
	// FileName is the user configuration looked up in the working directory.
	FileName = "config.json"
	// ExampleFileName is the bundled fallback.
	ExampleFileName = "config.example.json"
	envPrefix       = "LABELWEB"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Label   LabelConfig
	Printer PrinterConfig
	MQTT    MQTTConfig

	// File is the configuration file that was read, empty when none was found.
	File string
}

// ServerConfig holds HTTP server and process settings
type ServerConfig struct {
	Host       string
	Port       int
	LogLevel   string // debug, info, warn(ing), error
	LogFormat  string // console, json
	FontFolder string // additional .ttf/.otf fonts
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Debug reports whether the service runs with debug logging.
func (s ServerConfig) Debug() bool {
	return strings.EqualFold(s.LogLevel, "debug")
}

// LabelConfig holds label defaults
type LabelConfig struct {
	DefaultSize        string
	DefaultOrientation string
	DefaultFontSize    int
	DefaultFonts       []fonts.Spec // first one available wins
}

// PrinterConfig selects and configures the printer backend
type PrinterConfig struct {
	Backend string // cups, network, serial
	Media   string // brother, thermal, nelko; empty picks the backend default

	// cups
	Queue        string
	CUPSHost     string
	CUPSPort     int
	CUPSUser     string
	CUPSPassword string
	CUPSTLS      bool

	// network
	Address string // host:port

	// serial
	Device   string
	BaudRate int

	Density int // TSPL darkness 0-15
	Copies  int
	Timeout time.Duration
}

// MQTTConfig holds the optional print notification broker
type MQTTConfig struct {
	Host     string
	Port     int
	ClientID string
	Topic    string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8013)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "console")
	v.SetDefault("server.font_folder", "")

	v.SetDefault("label.default_size", "2.25x1.25")
	v.SetDefault("label.default_orientation", "standard")
	v.SetDefault("label.default_font_size", 40)

	v.SetDefault("printer.backend", "cups")
	v.SetDefault("printer.cups_host", "localhost")
	v.SetDefault("printer.cups_port", 631)
	v.SetDefault("printer.baud_rate", 115200)
	v.SetDefault("printer.density", 10)
	v.SetDefault("printer.copies", 1)
	v.SetDefault("printer.timeout", "30s")

	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id", "label-web")
	v.SetDefault("mqtt.topic", "label-web/printed")
}

// Flags registers the command line overrides.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "configuration file (default: ./config.json, then ./config.example.json)")
	fs.Int("port", 0, "HTTP port")
	fs.String("loglevel", "", "log level: debug, info, warning, error")
	fs.String("font-folder", "", "folder for additional .ttf/.otf fonts")
	fs.String("default-label-size", "", "label size inserted in your printer")
	fs.String("default-orientation", "", `label orientation, "standard" or "rotated"`)
	fs.String("backend", "", "printer backend: cups, network, serial")
}

var flagKeys = map[string]string{
	"port":                "server.port",
	"loglevel":            "server.log_level",
	"font-folder":         "server.font_folder",
	"default-label-size":  "label.default_size",
	"default-orientation": "label.default_orientation",
	"backend":             "printer.backend",
}

// Find returns the configuration file to read from dir: config.json when it
// exists, otherwise the bundled example, otherwise "".
func Find(dir string) string {
	for _, name := range []string{FileName, ExampleFileName} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads configuration. Priority (highest to lowest):
// 1. Command line flags that were set
// 2. Environment variables with LABELWEB_ prefix (e.g., LABELWEB_SERVER_PORT)
// 3. The JSON file at path, or the one Find(".") returns when path is empty
// 4. Built-in defaults
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = Find(".")
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var defaultFonts []fonts.Spec
	if err := v.UnmarshalKey("label.default_fonts", &defaultFonts); err != nil {
		return nil, fmt.Errorf("error reading label.default_fonts: %w", err)
	}

	cfg := &Config{
		File: path,
		Server: ServerConfig{
			Host:       v.GetString("server.host"),
			Port:       v.GetInt("server.port"),
			LogLevel:   v.GetString("server.log_level"),
			LogFormat:  v.GetString("server.log_format"),
			FontFolder: v.GetString("server.font_folder"),
		},
		Label: LabelConfig{
			DefaultSize:        v.GetString("label.default_size"),
			DefaultOrientation: v.GetString("label.default_orientation"),
			DefaultFontSize:    v.GetInt("label.default_font_size"),
			DefaultFonts:       defaultFonts,
		},
		Printer: PrinterConfig{
			Backend:      v.GetString("printer.backend"),
			Media:        v.GetString("printer.media"),
			Queue:        v.GetString("printer.queue"),
			CUPSHost:     v.GetString("printer.cups_host"),
			CUPSPort:     v.GetInt("printer.cups_port"),
			CUPSUser:     v.GetString("printer.cups_user"),
			CUPSPassword: v.GetString("printer.cups_password"),
			CUPSTLS:      v.GetBool("printer.cups_tls"),
			Address:      v.GetString("printer.address"),
			Device:       v.GetString("printer.device"),
			BaudRate:     v.GetInt("printer.baud_rate"),
			Density:      v.GetInt("printer.density"),
			Copies:       v.GetInt("printer.copies"),
			Timeout:      v.GetDuration("printer.timeout"),
		},
		MQTT: MQTTConfig{
			Host:     v.GetString("mqtt.host"),
			Port:     v.GetInt("mqtt.port"),
			ClientID: v.GetString("mqtt.client_id"),
			Topic:    v.GetString("mqtt.topic"),
		},
	}

	if flags != nil && flags.NArg() > 0 {
		ApplyPrinterDescriptor(&cfg.Printer, flags.Arg(0))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyPrinterDescriptor configures the backend from a single descriptor:
// tcp://host:port selects the network backend, a device path (or
// file:// / serial:// URL) the serial backend, anything else a CUPS queue.
func ApplyPrinterDescriptor(p *PrinterConfig, desc string) {
	switch {
	case strings.HasPrefix(desc, "tcp://"):
		p.Backend = "network"
		p.Address = strings.TrimPrefix(desc, "tcp://")
	case strings.HasPrefix(desc, "file://"):
		p.Backend = "serial"
		p.Device = strings.TrimPrefix(desc, "file://")
	case strings.HasPrefix(desc, "serial://"):
		p.Backend = "serial"
		p.Device = strings.TrimPrefix(desc, "serial://")
	case strings.HasPrefix(desc, "/dev/"):
		p.Backend = "serial"
		p.Device = desc
	default:
		p.Backend = "cups"
		p.Queue = desc
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if _, err := label.ParseOrientation(c.Label.DefaultOrientation); err != nil {
		errs = append(errs, fmt.Errorf("label.default_orientation: %w", err))
	}
	if c.Label.DefaultFontSize < 2 {
		errs = append(errs, fmt.Errorf("label.default_font_size %d below 2", c.Label.DefaultFontSize))
	}
	if c.Printer.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("printer.timeout must be positive"))
	}
	return errors.Join(errs...)
}
