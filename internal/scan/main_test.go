package scan

import (
	"os"
	"testing"

	"github.com/sgg-bj/lawharvest/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}
