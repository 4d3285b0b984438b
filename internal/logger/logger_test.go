package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	l, err := New(Config{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, l.WithComponent("web").WithFields("task_id", 3))

	_, err = New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNopIsSilent(t *testing.T) {
	l := Nop()
	l.Printf("slow query %d", 1)
	l.Infow("hello", "k", "v")
	assert.NoError(t, l.Close())
}
