package warn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.viam.com/rdk/logging"
)

func TestWarnfThrottlesWithinPeriod(t *testing.T) {
	logger, observer := logging.NewObservedTestLogger(t)
	sink := New(logger, time.Hour)

	sink.Warnf("topic", "first")
	sink.Warnf("topic", "second")

	assert.Len(t, observer.All(), 1)
}

func TestWarnfTopicsAreIndependent(t *testing.T) {
	logger, observer := logging.NewObservedTestLogger(t)
	sink := New(logger, time.Hour)

	sink.Warnf("a", "from a")
	sink.Warnf("b", "from b")

	assert.Len(t, observer.All(), 2)
}
