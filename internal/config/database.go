// internal/config/database.go
package config

import (
	"fmt"
	"net"
)

// Enabled reports whether the audit database is configured.
func (d *DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// Enabled reports whether the market data cache is configured.
func (r *RedisConfig) Enabled() bool {
	return r.Host != ""
}

func (r *RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, r.Port)
}
