package mysql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWatchCancelRejectsWhileResultsetOpen(t *testing.T) {
	mc := &Conn{closech: make(chan struct{})}
	rows := &Rows{mc: mc}
	mc.openRows = rows

	err := mc.watchCancel(context.Background())
	assert.ErrorIs(t, err, ErrSyncViolation)
}

func TestWatchCancelAllowsAfterRowsDrained(t *testing.T) {
	mc := &Conn{closech: make(chan struct{})}
	rows := &Rows{mc: mc}
	mc.openRows = rows
	rows.markDone()

	assert.Nil(t, mc.openRows)
	assert.NoError(t, mc.watchCancel(context.Background()))
}
