package translation

import (
	"os"
	"testing"

	"linguachat-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitDefault()
	os.Exit(m.Run())
}
