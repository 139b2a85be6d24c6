package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/badger"`
	BadgerInMemory bool   `env:"BADGER_IN_MEMORY,default=false"`
	DebugPort      int    `env:"DEBUG_PORT,default=8081"`

	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	GuestTTL          time.Duration `env:"GUEST_TTL,default=24h"`
	HandshakeTimeout  time.Duration `env:"HANDSHAKE_TIMEOUT,default=10s"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	BufferSize           int           `env:"BUFFER_SIZE,default=1024"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=100ms"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=2000"`

	ModerationEnabled         bool   `env:"MODERATION_ENABLED,default=false"`
	ModerationCharReplacement string `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`

	GCInterval      time.Duration `env:"GC_INTERVAL,default=5m"`
	HealthInterval  time.Duration `env:"HEALTH_INTERVAL,default=10s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`

	// Comma separated, empty allows every origin
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Origins splits ALLOWED_ORIGINS, dropping blanks.
func (c Config) Origins() []string {
	origins := lo.Map(strings.Split(c.AllowedOrigins, ","), func(o string, _ int) string {
		return strings.TrimSpace(o)
	})
	return lo.Compact(origins)
}

// OriginPatterns is the origin list in the host form the websocket accept check expects.
// Like the CORS policy, an empty list allows any origin.
func (c Config) OriginPatterns() []string {
	origins := c.Origins()
	if len(origins) == 0 {
		return []string{"*"}
	}
	return lo.Map(origins, func(o string, _ int) string {
		_, host, found := strings.Cut(o, "://")
		if !found {
			return o
		}
		return host
	})
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
