package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AltioraPro/altiora-bot/internal/biz/domain"
)

// Config represents application configuration
type Config struct {
	// Discord configuration
	Discord DiscordConfig

	// Webhook relay configuration (optional)
	Relay RelayConfig

	// Main application configuration
	App AppConfig

	// HTTP API configuration
	HTTP HTTPConfig

	// Storage configuration
	DB DBConfig

	// Debug mode
	Debug bool
}

// DiscordConfig contains Discord configuration
type DiscordConfig struct {
	BotToken     string
	GuildID      string
	LogChannelID string
	RankRoles    domain.RankRoleMapping
}

// RelayConfig contains webhook relay configuration
type RelayConfig struct {
	BaseURL string
}

// AppConfig contains main application configuration
type AppConfig struct {
	BaseURL string
}

// HTTPConfig contains HTTP API configuration
type HTTPConfig struct {
	Port int
}

// DBConfig contains storage configuration
type DBConfig struct {
	Path string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Database path
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".altiora-bot", "altiora.db")
	}

	// HTTP port
	port := 3001
	if val := os.Getenv("HTTP_PORT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			port = parsed
		}
	}

	appBaseURL := strings.TrimRight(os.Getenv("APP_BASE_URL"), "/")
	relayBaseURL := strings.TrimRight(os.Getenv("RELAY_BASE_URL"), "/")

	return &Config{
		Discord: DiscordConfig{
			BotToken:     os.Getenv("DISCORD_BOT_TOKEN"),
			GuildID:      os.Getenv("DISCORD_GUILD_ID"),
			LogChannelID: os.Getenv("DISCORD_LOG_CHANNEL_ID"),
			RankRoles:    ParseRankRoles(os.Getenv("RANK_ROLE_MAP")),
		},
		Relay: RelayConfig{
			BaseURL: relayBaseURL,
		},
		App: AppConfig{
			BaseURL: appBaseURL,
		},
		HTTP: HTTPConfig{
			Port: port,
		},
		DB: DBConfig{
			Path: dbPath,
		},
		Debug: os.Getenv("DEBUG") == "true",
	}
}

// ParseRankRoles parses a "RANK:roleId,RANK:roleId" mapping string.
// Malformed pairs are skipped.
func ParseRankRoles(raw string) domain.RankRoleMapping {
	mapping := domain.RankRoleMapping{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		rank, roleID, ok := strings.Cut(pair, ":")
		rank = strings.TrimSpace(rank)
		roleID = strings.TrimSpace(roleID)
		if !ok || rank == "" || roleID == "" {
			continue
		}
		mapping[strings.ToUpper(rank)] = roleID
	}
	return mapping
}

// Validate reports whether the Discord subsystem has the credentials
// it needs. A failure disables that subsystem but is not fatal to the
// process: the HTTP server and console logging keep running.
func (c *Config) Validate() error {
	if c.Discord.BotToken == "" {
		return &ConfigError{Field: "DISCORD_BOT_TOKEN", Message: "required"}
	}
	if c.Discord.GuildID == "" {
		return &ConfigError{Field: "DISCORD_GUILD_ID", Message: "required"}
	}
	return nil
}

// Enabled reports whether the Discord subsystem is configured
func (d *DiscordConfig) Enabled() bool {
	return d.BotToken != "" && d.GuildID != ""
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
