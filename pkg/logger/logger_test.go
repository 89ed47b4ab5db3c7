package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for input, want := range cases {
		got, err := parseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := parseLevel("loud")
	assert.True(t, errors.Is(err, ErrInvalidLogLevel))
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(&Config{Level: "info", Format: "xml"}, DefaultServiceName)
	assert.True(t, errors.Is(err, ErrInvalidLogFormat))
}

func TestNewBuildsConsoleLogger(t *testing.T) {
	l, err := New(&Config{Level: "debug", Format: "console", Output: "stderr"}, DefaultServiceName)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestOutputPaths(t *testing.T) {
	out, errOut := outputPaths("")
	assert.Equal(t, []string{"stdout"}, out)
	assert.Equal(t, []string{"stderr"}, errOut)

	out, errOut = outputPaths("/tmp/tutorado.log")
	assert.Equal(t, []string{"/tmp/tutorado.log"}, out)
	assert.Equal(t, []string{"/tmp/tutorado.log"}, errOut)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
