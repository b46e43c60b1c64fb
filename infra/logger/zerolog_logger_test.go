package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var _ Logger = NopLogger{}

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	assert.NotNil(t, l)
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestNew_JSONEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	l := New("solver")
	assert.NotNil(t, l)
	l.Infof("info")
}
