// Package config provides YAML-based server configuration loading for the
// sync service.
package config

// Config is the root server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds the listener and per-connection settings.
type ServerConfig struct {
	// Addr is the host:port the websocket endpoint listens on.
	Addr string `yaml:"addr"`
	// Path is the websocket endpoint path.
	Path string `yaml:"path"`
	// SendBuffer is the per-connection outbound frame queue length;
	// frames beyond it are dropped rather than blocking a broadcast.
	SendBuffer int `yaml:"send_buffer"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// DBPath is the SQLite database path; empty disables persistence.
	DBPath string `yaml:"db_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:       ":8844",
			Path:       "/ws",
			SendBuffer: 256,
		},
		Storage: StorageConfig{
			DBPath: "~/.duelsync/matches.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
