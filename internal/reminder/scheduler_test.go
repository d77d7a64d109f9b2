package reminder

import (
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestArmFiresEvent(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	defer s.Stop()

	if err := s.Arm("r1", "Professor X", 20*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case event := <-s.Fired():
		if event.RecordID != "r1" {
			t.Fatalf("expected r1, got %q", event.RecordID)
		}
		if event.ContactLabel != "Professor X" {
			t.Fatalf("unexpected label: %q", event.ContactLabel)
		}
		if id, ok := ResolveWakeUp(event.Payload); !ok || id != "r1" {
			t.Fatalf("event payload must resolve back to the record id, got %q", event.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("reminder did not fire")
	}

	if _, ok := s.Pending("r1"); ok {
		t.Fatalf("fired reminder must not stay pending")
	}
}

func TestArmRequiresRecordID(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	defer s.Stop()

	if err := s.Arm("", "x", time.Second); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestArmClampsNonPositiveDelay(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	defer s.Stop()

	before := time.Now()
	if err := s.Arm("r1", "x", -time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	handle, ok := s.Pending("r1")
	if !ok {
		t.Fatalf("expected a pending reminder")
	}

	// A clamped reminder still fires asynchronously, never immediately.
	if handle.FireAt.Before(before.Add(minDelay / 2)) {
		t.Fatalf("expected fire time at least the minimum delay away, got %v", handle.FireAt.Sub(before))
	}

	select {
	case <-s.Fired():
		t.Fatalf("clamped reminder fired immediately")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRearmReplacesPendingReminder(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	defer s.Stop()

	if err := s.Arm("r1", "x", 30*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Arm("r1", "x", 60*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fired := 0
	deadline := time.After(2 * time.Second)

	for {
		select {
		case <-s.Fired():
			fired++
		case <-deadline:
			if fired != 1 {
				t.Fatalf("expected exactly one fire after re-arming, got %d", fired)
			}
			return
		}

		if fired > 1 {
			t.Fatalf("re-arming must replace the prior reminder, got %d fires", fired)
		}
	}
}

func TestCancelPreventsFire(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	defer s.Stop()

	if err := s.Arm("r1", "x", 20*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Cancel("r1")

	if _, ok := s.Pending("r1"); ok {
		t.Fatalf("canceled reminder must not stay pending")
	}

	select {
	case <-s.Fired():
		t.Fatalf("canceled reminder fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStopDuringPendingFires(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	for i := 0; i < 32; i++ {
		if err := s.Arm(fmt.Sprintf("r%d", i), "x", time.Millisecond); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Stop while timers are firing; a fire racing Stop must never send on
	// the closed channel.
	time.Sleep(5 * time.Millisecond)
	s.Stop()

	for range s.Fired() {
	}

	if err := s.Arm("late", "x", time.Second); err == nil {
		t.Fatalf("arming after Stop must fail")
	}
}

func TestCancelUnknownRecordIsNoOp(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	defer s.Stop()

	s.Cancel("never-armed")
}
