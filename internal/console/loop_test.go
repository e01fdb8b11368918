package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsExit(t *testing.T) {
	for _, q := range []string{"exit", "quit", "EXIT", "Quit", "qUiT"} {
		assert.True(t, isExit(q), q)
	}
	for _, q := range []string{"", "exit now", "quitting", "help", "q"} {
		assert.False(t, isExit(q), q)
	}
}
