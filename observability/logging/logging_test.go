package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWritesJSONFormat(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger, err := SetupWithOptions("vaultd", "test", Options{Level: "debug", Output: &buf})
	require.NoError(t, err)
	logger.Debug("redeemed", slog.Uint64("event", 1))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "redeemed", line["message"])
	require.Equal(t, "DEBUG", line["severity"])
	require.Equal(t, "vaultd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Contains(t, line, "timestamp")
}

func TestSetupFiltersBelowLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger, err := SetupWithOptions("vaultd", "", Options{Level: "warn", Output: &buf})
	require.NoError(t, err)
	logger.Info("ignored")
	require.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, lvl)
	_, err = ParseLevel("verbose")
	require.Error(t, err)
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("recipient", "0xabc").Value.String())
	require.Equal(t, "7", MaskField("startTime", "7").Value.String())
	require.Equal(t, "", MaskField("recipient", "").Value.String())
	require.True(t, IsAllowlisted(" Event "))
	require.False(t, IsAllowlisted("recipient"))
}

func TestMaskIdentity(t *testing.T) {
	var id [20]byte
	require.Equal(t, "", MaskIdentity("creator", id).Value.String())
	id[19] = 0x01
	require.Equal(t, RedactedValue, MaskIdentity("creator", id).Value.String())
}

func TestSetupMasksIdentityKeys(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger, err := SetupWithOptions("vaultd", "", Options{Output: &buf})
	require.NoError(t, err)
	logger.Info("admin changed",
		slog.String("Owner", "0x1111111111111111111111111111111111111111"),
		slog.String("submitter", ""),
		slog.Uint64("event", 4),
		slog.Group("detail", slog.String("owner", "kept")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, RedactedValue, line["Owner"])
	require.Equal(t, "", line["submitter"])
	require.Equal(t, float64(4), line["event"])
	require.Equal(t, map[string]any{"owner": "kept"}, line["detail"])
}
