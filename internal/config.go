package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Host    string `env:"HOST,default=0.0.0.0"`
	Port    int    `env:"PORT,default=3001"`
	GinMode string `env:"GIN_MODE,default=release"`

	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=100ms"`
	ReceiptDelay         time.Duration `env:"RECEIPT_DELAY,default=2s"`
	TypingTimeout        time.Duration `env:"TYPING_TIMEOUT,default=3s"`

	JwtSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=168h"`

	ReadLimit    int64         `env:"READ_LIMIT,default=1048576"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PingPeriod   time.Duration `env:"PING_PERIOD,default=25s"`

	ArchiveEnabled    bool   `env:"ARCHIVE_ENABLED,default=false"`
	BadgerFilepath    string `env:"BADGER_FILEPATH,default=./data/badger"`
	BlugeFilepath     string `env:"BLUGE_FILEPATH,default=./data/bluge"`
	LimitMessages     *int   `env:"LIMIT_MESSAGES"`
	ArchiveBufferSize int    `env:"ARCHIVE_BUFFER_SIZE,default=256"`

	CensoredWords    string `env:"CENSORED_WORDS"`
	CensoredWordsDir string `env:"CENSORED_WORDS_DIR"`
	CharReplacement  string `env:"CHARACTER_REPLACEMENT,default=*"`

	DebugPort int `env:"DEBUG_PORT,default=8081"`

	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s"`
	StatsInterval   time.Duration `env:"STATS_INTERVAL,default=1m"`
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Words splits the comma separated CENSORED_WORDS value, ignoring blanks.
func (c Config) Words() []string {
	var words []string
	for _, w := range strings.Split(c.CensoredWords, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
