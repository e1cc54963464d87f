package internal

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("JWT_SECRET", "secret")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.Equal("0.0.0.0:3001", config.Addr())
	req.Equal(64, config.ConnectionBufferSize)
	req.Equal(2*time.Second, config.ReceiptDelay)
	req.Equal(3*time.Second, config.TypingTimeout)
	req.Equal(168*time.Hour, config.AuthTokenDuration)
	req.False(config.ArchiveEnabled)
	req.Nil(config.LimitMessages)
	req.Empty(config.Words())
}

func TestConfig_Overrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "8080")
	t.Setenv("RECEIPT_DELAY", "500ms")
	t.Setenv("LIMIT_MESSAGES", "10")
	t.Setenv("CENSORED_WORDS", " spam, ,scam ")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.Equal(8080, config.Port)
	req.Equal(500*time.Millisecond, config.ReceiptDelay)
	req.Equal(10, *config.LimitMessages)
	req.Equal([]string{"spam", "scam"}, config.Words())
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	r, err = CharacterRune("€")
	req.NoError(err)
	req.Equal('€', r)

	_, err = CharacterRune("ab")
	req.Error(err)
	_, err = CharacterRune("")
	req.Error(err)
}
