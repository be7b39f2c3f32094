package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLevels(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New(Config{Level: "debug"}).GetLevel())
	assert.Equal(t, logrus.InfoLevel, New(Config{Level: "loud"}).GetLevel())
	assert.Equal(t, logrus.InfoLevel, New(Config{}).GetLevel())
}

func TestComponentFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", JSON: true})
	log.SetOutput(&buf)

	Component(log, "poller", "service").Info("hello")

	assert.Contains(t, buf.String(), `"module":"poller"`)
	assert.Contains(t, buf.String(), `"scope":"service"`)
}

func TestComponentNilLogger(t *testing.T) {
	entry := Component(nil, "x", "y")
	assert.NotPanics(t, func() { entry.Info("dropped") })
}
