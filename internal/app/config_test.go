package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	require := require.New(t)

	cfg := Default()
	require.Equal("http://localhost:8000", cfg.Server.APIURL)
	require.Empty(cfg.Server.WebSocketURL)
	require.Equal(30*time.Second, cfg.Server.Timeout())
	require.Equal(uint(256), cfg.Protocol.KeyLength)
	require.False(cfg.Protocol.EnableEve)
	require.Equal(1.0, cfg.Protocol.EveInterceptProb)
	require.Equal(0.11, cfg.Protocol.QBERThreshold)
	require.Equal("info", cfg.Logging.Level)
	require.Empty(cfg.Metrics.Address)
}

func TestLoadOverrides(t *testing.T) {
	require := require.New(t)

	cfg, err := Load([]byte(`
[Server]
APIURL = "https://qkd.example.org"
RequestTimeout = "5s"

[Protocol]
KeyLength = 512
EnableEve = true
EveInterceptProb = 0.5
QBERThreshold = 0.2

[Logging]
Level = "debug"

[Metrics]
Address = "127.0.0.1:9464"
`))
	require.NoError(err)
	require.Equal("https://qkd.example.org", cfg.Server.APIURL)
	require.Equal(5*time.Second, cfg.Server.Timeout())

	pc := cfg.Protocol.ProtocolConfig()
	require.Equal(uint(512), pc.KeyLength)
	require.True(pc.EnableEve)
	require.Equal(0.5, pc.EveInterceptProb)
	require.Equal(0.2, pc.QBERThreshold)

	require.Equal("debug", cfg.Logging.Level)
	require.Equal("127.0.0.1:9464", cfg.Metrics.Address)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":      "[Server]\nBogus = 1\n",
		"bad api url":      "[Server]\nAPIURL = \"ftp://x\"\n",
		"bad ws url":       "[Server]\nWebSocketURL = \"http://x\"\n",
		"bad timeout":      "[Server]\nRequestTimeout = \"soon\"\n",
		"bad level":        "[Logging]\nLevel = \"loud\"\n",
		"bad intercept":    "[Protocol]\nEveInterceptProb = 1.5\n",
		"bad threshold":    "[Protocol]\nQBERThreshold = 0.3\n",
		"not toml at all":  "this is = = not toml",
		"negative timeout": "[Server]\nRequestTimeout = \"-1s\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(body))
			require.Error(t, err)
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	require := require.New(t)

	cfg := Default()
	cfg.Server.WebSocketURL = "wss://qkd.example.org"
	cfg.Metrics.Address = ":9464"

	b, err := cfg.Encode()
	require.NoError(err)

	back, err := Load(b)
	require.NoError(err)
	require.Equal(cfg, back)
}

func TestLoadFileOrDefault(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	cfg, err := LoadFileOrDefault(filepath.Join(dir, ConfigFileName))
	require.NoError(err)
	require.Equal(Default(), cfg)

	path := filepath.Join(dir, ConfigFileName)
	require.NoError(os.WriteFile(path, []byte("[Logging]\nLevel = \"warn\"\n"), 0o600))
	cfg, err = LoadFileOrDefault(path)
	require.NoError(err)
	require.Equal("warn", cfg.Logging.Level)
}

func TestNewLogger(t *testing.T) {
	require := require.New(t)

	log, closer, err := NewLogger(&Logging{Level: "debug"})
	require.NoError(err)
	require.Equal(logrus.DebugLevel, log.GetLevel())
	require.NoError(closer.Close())

	path := filepath.Join(t.TempDir(), "qchat.log")
	log, closer, err = NewLogger(&Logging{Level: "info", File: path})
	require.NoError(err)
	log.Info("hello file")
	require.NoError(closer.Close())
	b, err := os.ReadFile(path)
	require.NoError(err)
	require.Contains(string(b), "hello file")

	_, _, err = NewLogger(&Logging{Level: "nope"})
	require.Error(err)
}
