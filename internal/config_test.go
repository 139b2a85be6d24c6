package internal

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	var config Config
	err := env.Unmarshal(env.EnvSet{}, &config)
	req.NoError(err)

	req.Equal("0.0.0.0:8080", config.Address())
	req.Equal(24*time.Hour, config.GuestTTL)
	req.Equal(10*time.Second, config.HandshakeTimeout)
	req.Equal(2000, config.MaxContentLength)
	req.False(config.ModerationEnabled)
	req.Empty(config.Origins())
	req.Equal([]string{"*"}, config.OriginPatterns())
}

func TestConfig_From_Environment(t *testing.T) {
	req := require.New(t)
	var config Config
	err := env.Unmarshal(env.EnvSet{
		"PORT":                "9000",
		"GUEST_TTL":           "30m",
		"MODERATION_ENABLED":  "true",
		"ALLOWED_ORIGINS":     " https://chat.example.com, ,http://localhost:3000",
		"MAX_CONTENT_LENGTH":  "10",
		"BADGER_IN_MEMORY":    "true",
		"HANDSHAKE_TIMEOUT":   "2s",
		"AUTH_TOKEN_DURATION": "1h",
	}, &config)
	req.NoError(err)

	req.Equal(9000, config.Port)
	req.Equal(30*time.Minute, config.GuestTTL)
	req.True(config.ModerationEnabled)
	req.True(config.BadgerInMemory)
	req.Equal([]string{"https://chat.example.com", "http://localhost:3000"}, config.Origins())
	req.Equal([]string{"chat.example.com", "localhost:3000"}, config.OriginPatterns())
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	_, err = CharacterRune("**")
	req.Error(err)
	_, err = CharacterRune("")
	req.Error(err)
}
