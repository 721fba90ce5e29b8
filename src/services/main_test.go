package services

import (
	"os"
	"testing"

	"github.com/username/coinledger/backend/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}
