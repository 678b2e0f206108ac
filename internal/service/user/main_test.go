package user

import (
	"io"
	"os"
	"testing"

	"github.com/labstack/gommon/log"
)

var testLogger *log.Logger

func TestMain(m *testing.M) {
	testLogger = log.New("test")
	testLogger.SetOutput(io.Discard)

	os.Exit(m.Run())
}
