package slog_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Hubmakerlabs/aionostr/pkg/slog"
	"github.com/stretchr/testify/assert"
)

func TestGetLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	log, chk := slog.New(buf)
	defer slog.SetLogLevel(slog.GetLogLevel())
	slog.SetLogLevel(slog.Trace)
	log.T.Ln("testing log level", slog.LevelSpecs[slog.Trace].Name)
	log.D.Ln("testing log level", slog.LevelSpecs[slog.Debug].Name)
	log.I.Ln("testing log level", slog.LevelSpecs[slog.Info].Name)
	log.W.Ln("testing log level", slog.LevelSpecs[slog.Warn].Name)
	log.E.F("testing log level %s", slog.LevelSpecs[slog.Error].Name)
	log.F.Ln("testing log level", slog.LevelSpecs[slog.Fatal].Name)
	assert.True(t, chk.E(errors.New("dummy error as error")))
	assert.False(t, chk.D(nil))
	assert.Error(t, log.I.Err("format string %d '%s'", 5, "testing"))
	log.I.S("`backtick wrapped string`", t)
	assert.Contains(t, buf.String(), "dummy error as error")
	assert.Contains(t, buf.String(), "format string 5 'testing'")
}

func TestLevelFiltering(t *testing.T) {
	buf := new(bytes.Buffer)
	log, chk := slog.New(buf)
	defer slog.SetLogLevel(slog.GetLogLevel())
	slog.SetLogLevel(slog.Warn)
	log.D.Ln("hidden")
	log.I.F("hidden %d", 1)
	// checks still report the error even when not printed
	assert.True(t, chk.D(errors.New("hidden error")))
	assert.Empty(t, buf.String())
	log.W.Ln("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLevelFromName(t *testing.T) {
	assert.Equal(t, slog.Info, slog.LevelFromName(""))
	assert.Equal(t, slog.Trace, slog.LevelFromName("trace"))
	assert.Equal(t, slog.Debug, slog.LevelFromName("d"))
	assert.Equal(t, slog.Off, slog.LevelFromName("OFF"))
	assert.Equal(t, slog.Fatal, slog.LevelFromName("fatal"))
	assert.Equal(t, slog.Info, slog.LevelFromName("nonsense"))
}
