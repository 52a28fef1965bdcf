package config

import "time"

// Settings is the top-level configuration structure for icebergtest.
// It holds everything that is not a secret; secrets live in Secrets.
type Settings struct {
	// DatabaseDir holds the capability definitions and results.yml.
	DatabaseDir string         `yaml:"databaseDir"`
	Docker      DockerSettings `yaml:"docker"`
	Health      HealthSettings `yaml:"health"`
	Trino       TrinoSettings  `yaml:"trino"`
	Tunnel      TunnelSettings `yaml:"tunnel"`
	// TeardownTimeout bounds each component's release, independent of the
	// (possibly cancelled) run context.
	TeardownTimeout time.Duration `yaml:"teardownTimeout"`
}

// DockerSettings configures how containers and networks are managed.
type DockerSettings struct {
	Host          string `yaml:"host,omitempty"`          // Docker daemon address (default: environment)
	ComposeBinary string `yaml:"composeBinary,omitempty"` // Compose executable (default: docker-compose)
	ProjectName   string `yaml:"projectName,omitempty"`   // Compose project prefix (default: iceberg_test)
	NetworkPrefix string `yaml:"networkPrefix,omitempty"` // Per-run network prefix (default: iceberg-test)
}

// HealthSettings bounds readiness polling for every component.
type HealthSettings struct {
	Interval time.Duration `yaml:"interval"`
	Attempts int           `yaml:"attempts"`
}

// TrinoSettings configures the Trino query engine container.
type TrinoSettings struct {
	Image    string `yaml:"image,omitempty"`
	HostPort int    `yaml:"hostPort,omitempty"`
	User     string `yaml:"user,omitempty"`
}

// TunnelSettings configures the ngrok sidecars that expose local services
// to cloud query engines. Tunnels are only started when an ngrok token is
// available in the secrets.
type TunnelSettings struct {
	Image        string `yaml:"image,omitempty"`
	DomainSuffix string `yaml:"domainSuffix,omitempty"`
}

// GetDefaultSettings returns the built-in defaults.
func GetDefaultSettings() Settings {
	return Settings{
		DatabaseDir: "database",
		Docker: DockerSettings{
			ComposeBinary: "docker-compose",
			ProjectName:   "iceberg_test",
			NetworkPrefix: "iceberg-test",
		},
		Health: HealthSettings{
			Interval: 2 * time.Second,
			Attempts: 60,
		},
		Trino: TrinoSettings{
			Image:    "trinodb/trino:469",
			HostPort: 8081,
			User:     "admin",
		},
		Tunnel: TunnelSettings{
			Image:        "ngrok/ngrok:3.19.0-alpine",
			DomainSuffix: "ngrok.io",
		},
		TeardownTimeout: 5 * time.Minute,
	}
}
