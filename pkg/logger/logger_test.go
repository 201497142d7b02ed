package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rma-api/pkg/logger"
)

func TestNew_JSONConComponente(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "INFO", Service: "rma-api", Output: &buf})

	c := l.Component("reminder")
	c.Info().Str("rma_id", "r1").Msg("recordatorio enviado")
	c.Debug().Msg("no se escribe")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "reminder", entry["component"])
	assert.Equal(t, "rma-api", entry["service"])
	assert.Equal(t, "r1", entry["rma_id"])
	assert.Equal(t, "info", entry["level"])
	assert.Same(t, &buf, l.Writer())
}

func TestNew_NivelDesconocidoEsInfo(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "verbose", Output: &buf})
	l.Debug().Msg("oculto")
	l.Warn().Msg("visible")
	assert.NotContains(t, buf.String(), "oculto")
	assert.Contains(t, buf.String(), "visible")
}

func TestNew_ConsolaEnDevelopment(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "development", Level: "debug", Output: &buf})
	l.Info().Msg("arrancando")
	assert.Contains(t, buf.String(), "arrancando")
	assert.NotContains(t, buf.String(), `"message"`)
}
