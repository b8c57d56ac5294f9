package logger

import (
	"context"
	"os"
	"testing"

	"github.com/jobscout/jobscout/internal/config"
	"github.com/stretchr/testify/assert"
)

func Test_Setup_KeepsLogFileHandleForCleanup(t *testing.T) {

	defer os.RemoveAll("./logs")

	Setup(context.Background(), config.LoggerConfig{
		LogLevel:   config.LevelInfo,
		OutputFile: "errors_test.log",
	})

	assert.NotNil(t, logFile)
	assert.NoError(t, logFile.Close())
	logFile = nil
}
