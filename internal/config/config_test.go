package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:token")
	t.Setenv("GATEWAY_URL", "https://gw.example/")
	t.Setenv("GATEWAY_PUBLIC_KEY", "pub-key")
	t.Setenv("GATEWAY_CALLBACK_URL", "https://bot.example/callback")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "123:token", cfg.BotToken)
	require.Equal(t, "https://gw.example", cfg.GatewayURL) // trailing slash trimmed
	require.Equal(t, "8080", cfg.HTTPPort)
	require.True(t, cfg.AutoPayout)
	require.Equal(t, []string{"USDT-TRC20"}, cfg.Currencies)
	require.Empty(t, cfg.SpecialCurrencies)
	require.Equal(t, 30*time.Second, cfg.GatewayTimeout)
	require.Equal(t, 24*time.Hour, cfg.CallbackDedupe)
	require.Equal(t, time.Minute, cfg.SettingsTTL)
}

func TestLoadLists(t *testing.T) {
	setRequired(t)
	t.Setenv("CURRENCIES", "USDT-TRC20, BTC ,ETH")
	t.Setenv("SPECIAL_CURRENCIES", "RUB-SPEC")
	t.Setenv("ALLOWED_CALLBACK_IPS", "203.0.113.7,10.0.0.0/8")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"USDT-TRC20", "BTC", "ETH"}, cfg.Currencies)
	require.Equal(t, []string{"RUB-SPEC"}, cfg.SpecialCurrencies)
	require.Equal(t, []string{"203.0.113.7", "10.0.0.0/8"}, cfg.AllowedCallbackIPs)
}

func TestLoadMissingBotToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("GATEWAY_URL", "https://gw.example")
	t.Setenv("GATEWAY_PUBLIC_KEY", "k")
	t.Setenv("GATEWAY_CALLBACK_URL", "cb")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "BOT_TOKEN")
}

func TestLoadBadDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("GATEWAY_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "GATEWAY_TIMEOUT")
}
