package config

import (
	"os"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker reports whether /.dockerenv exists. Cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// resolveHost maps loopback hosts to host.docker.internal when inDocker is set,
// so a containerised engine can reach Postgres and Redis on the host machine.
func resolveHost(host string, inDocker bool) string {
	if !inDocker {
		return host
	}
	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}
	return host
}

func (c *Config) resolveDockerHosts(inDocker bool) {
	c.Database.Host = resolveHost(c.Database.Host, inDocker)
	c.Redis.Host = resolveHost(c.Redis.Host, inDocker)
}
