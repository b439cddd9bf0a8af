package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLErrorFormatting(t *testing.T) {
	e := &MySQLError{Number: 1045, SQLState: "28000", Message: "Access denied"}
	assert.Equal(t, "Error 1045 (28000): Access denied", e.Error())

	e2 := &MySQLError{Number: 1064, Message: "syntax error"}
	assert.Equal(t, "Error 1064: syntax error", e2.Error())
}

func TestSetLoggerRejectsNil(t *testing.T) {
	assert.Error(t, SetLogger(nil))
}

type recordingLogger struct{ lines []string }

func (r *recordingLogger) Print(v ...interface{}) {
	for range v {
		r.lines = append(r.lines, "logged")
	}
}

func TestSetLoggerAccepted(t *testing.T) {
	original := errLog
	defer func() { errLog = original }()

	rl := &recordingLogger{}
	require.NoError(t, SetLogger(rl))
	errLog.Print("boom")
	assert.NotEmpty(t, rl.lines)
}
