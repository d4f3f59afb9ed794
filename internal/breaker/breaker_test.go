package breaker

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

var errBoom = errors.New("boom")

func failing() error { return errBoom }
func passing() error { return nil }

func TestOpensAfterMaxFailures(t *testing.T) {
	b := New("test", 3, time.Minute, quietLogger())

	for i := 0; i < 3; i++ {
		if err := b.Execute(failing); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: err = %v, want underlying failure", i, err)
		}
	}

	if err := b.Execute(passing); !errors.Is(err, ErrOpen) {
		t.Errorf("err = %v, want ErrOpen once the threshold is hit", err)
	}
}

func TestStaysClosedUnderThreshold(t *testing.T) {
	b := New("test", 3, time.Minute, quietLogger())

	b.Execute(failing)
	b.Execute(failing)
	if err := b.Execute(passing); err != nil {
		t.Errorf("err = %v, want nil below the threshold", err)
	}

	// The success reset the count; two more failures must not open it.
	b.Execute(failing)
	b.Execute(failing)
	if err := b.Execute(passing); err != nil {
		t.Errorf("err = %v, want nil after the reset", err)
	}
}

func TestProbeClosesAfterCooldown(t *testing.T) {
	b := New("test", 1, 10*time.Millisecond, quietLogger())

	b.Execute(failing)
	if err := b.Execute(passing); !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen before cooldown", err)
	}

	time.Sleep(20 * time.Millisecond)

	if err := b.Execute(passing); err != nil {
		t.Fatalf("probe err = %v, want nil", err)
	}
	if err := b.Execute(passing); err != nil {
		t.Errorf("err = %v, want closed after successful probe", err)
	}
}

func TestFailedProbeReopens(t *testing.T) {
	b := New("test", 1, 10*time.Millisecond, quietLogger())

	b.Execute(failing)
	time.Sleep(20 * time.Millisecond)

	if err := b.Execute(failing); !errors.Is(err, errBoom) {
		t.Fatalf("probe err = %v, want underlying failure", err)
	}
	if err := b.Execute(passing); !errors.Is(err, ErrOpen) {
		t.Errorf("err = %v, want ErrOpen after a failed probe", err)
	}
}
