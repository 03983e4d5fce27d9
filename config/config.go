package config

// Config is the root configuration for the memgate gateway. Capabilities
// that the host environment would otherwise inject implicitly (store
// credentials, quota caps) are enumerated here explicitly.
type Config struct {
	Gateway GatewayConfig `mapstructure:"gateway" json:"gateway"`
	Session SessionConfig `mapstructure:"session" json:"session"`
	Memory  MemoryConfig  `mapstructure:"memory" json:"memory"`
	Log     LogConfig     `mapstructure:"log" json:"log"`
}

// GatewayConfig configures the HTTP entry router.
type GatewayConfig struct {
	Host         string `mapstructure:"host" json:"host"`
	Port         int    `mapstructure:"port" json:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout" json:"read_timeout"`   // seconds; 0 disables (required for SSE)
	WriteTimeout int    `mapstructure:"write_timeout" json:"write_timeout"` // seconds; 0 disables (required for SSE)
	AllowOrigin  string `mapstructure:"allow_origin" json:"allow_origin"`
}

// SessionConfig configures durable session context storage.
type SessionConfig struct {
	Backend string `mapstructure:"backend" json:"backend"` // "sqlite" or "json"
	DataDir string `mapstructure:"data_dir" json:"data_dir"`
}

// MemoryConfig configures the memory store capability.
type MemoryConfig struct {
	Backend     string `mapstructure:"backend" json:"backend"` // "sqlite" or "remote"
	Path        string `mapstructure:"path" json:"path"`       // sqlite database path
	RemoteURL   string `mapstructure:"remote_url" json:"remote_url"`
	APIKey      string `mapstructure:"api_key" json:"api_key"`
	QuotaMax    int    `mapstructure:"quota_max" json:"quota_max"`
	SearchLimit int    `mapstructure:"search_limit" json:"search_limit"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
}

// Addr returns the gateway listen address.
func (g GatewayConfig) Addr() string {
	host := g.Host
	if host == "" {
		host = "localhost"
	}
	port := g.Port
	if port == 0 {
		port = 28090
	}
	return hostPort(host, port)
}
