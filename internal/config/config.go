package config

import (
	"os"
	"strconv"
	"time"
)

// ServerConfig holds settings for one chat server instance.
type ServerConfig struct {
	ListenAddr   string
	Database     DatabaseConfig
	Redis        RedisConfig
	Auth         AuthConfig
	DefaultRoom  string
	WriteTimeout time.Duration
	MaxLineBytes int
}

// ClientConfig holds settings for the terminal client.
type ClientConfig struct {
	ServerAddr string
}

// DatabaseConfig captures credential store configuration.
type DatabaseConfig struct {
	Path string
}

// RedisConfig locates the shared directory and the event bus channel.
type RedisConfig struct {
	Addr    string
	DB      int
	Channel string
}

// AuthConfig defines session token signing parameters.
type AuthConfig struct {
	Secret string
	Issuer string
}

// LoadServerConfig builds the server configuration from environment variables with sensible defaults.
func LoadServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr: envOrDefault("CHATMESH_LISTEN_ADDR", ":8000"),
		Database:   DatabaseConfig{Path: envOrDefault("CHATMESH_DB_PATH", "chatmesh.db")},
		Redis: RedisConfig{
			Addr:    envOrDefault("CHATMESH_REDIS_ADDR", "localhost:6379"),
			DB:      envInt("CHATMESH_REDIS_DB", 0),
			Channel: envOrDefault("CHATMESH_BUS_CHANNEL", "global_chat_events"),
		},
		Auth: AuthConfig{
			Secret: envOrDefault("CHATMESH_AUTH_SECRET", "replace-me"),
			Issuer: envOrDefault("CHATMESH_AUTH_ISSUER", "chatmesh"),
		},
		DefaultRoom:  envOrDefault("CHATMESH_DEFAULT_ROOM", "lobby"),
		WriteTimeout: envDuration("CHATMESH_WRITE_TIMEOUT", 15*time.Second),
		MaxLineBytes: envInt("CHATMESH_MAX_LINE_BYTES", 64<<10),
	}
}

// LoadClientConfig builds the client configuration from environment variables.
func LoadClientConfig() ClientConfig {
	return ClientConfig{
		ServerAddr: envOrDefault("CHATMESH_SERVER_ADDR", "localhost:8000"),
	}
}

func envOrDefault(key, value string) string {
	if env, ok := os.LookupEnv(key); ok {
		return env
	}
	return value
}

func envDuration(key string, def time.Duration) time.Duration {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(env); err == nil {
			return parsed
		}
	}
	return def
}

func envInt(key string, def int) int {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(env); err == nil {
			return parsed
		}
	}
	return def
}
