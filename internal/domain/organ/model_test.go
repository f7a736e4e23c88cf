package organ

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusAvailable, StatusMatched},
		{StatusAvailable, StatusWasted},
		{StatusAvailable, StatusExpired},
		{StatusAvailable, StatusRejected},
		{StatusMatched, StatusTransplanted},
		{StatusMatched, StatusWasted},
		{StatusMatched, StatusExpired},
		{StatusMatched, StatusRejected},
	}
	for _, c := range allowed {
		if !CanTransition(c.from, c.to) {
			t.Errorf("%s -> %s should be allowed", c.from, c.to)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusAvailable, StatusTransplanted},
		{StatusMatched, StatusAvailable},
		{StatusTransplanted, StatusWasted},
		{StatusWasted, StatusAvailable},
		{StatusExpired, StatusMatched},
		{StatusRejected, StatusTransplanted},
	}
	for _, c := range denied {
		if CanTransition(c.from, c.to) {
			t.Errorf("%s -> %s should be denied", c.from, c.to)
		}
	}
}

func TestTerminalStatesAbsorb(t *testing.T) {
	for _, terminal := range []Status{StatusTransplanted, StatusWasted, StatusExpired, StatusRejected} {
		if !terminal.IsTerminal() {
			t.Errorf("%s should be terminal", terminal)
		}
		for _, to := range Statuses() {
			if CanTransition(terminal, to) {
				t.Errorf("terminal %s should not transition to %s", terminal, to)
			}
		}
	}
	if StatusAvailable.IsTerminal() || StatusMatched.IsTerminal() {
		t.Error("available and matched are not terminal")
	}
}

func TestValidWasteKind(t *testing.T) {
	for _, k := range []WasteKind{StatusWasted, StatusExpired, StatusRejected} {
		if !ValidWasteKind(k) {
			t.Errorf("%s should be a valid waste kind", k)
		}
	}
	for _, k := range []WasteKind{StatusAvailable, StatusMatched, StatusTransplanted, "gone"} {
		if ValidWasteKind(k) {
			t.Errorf("%s should not be a valid waste kind", k)
		}
	}
}

func TestHoursRemaining(t *testing.T) {
	now := time.Now()
	rec := &Record{ExpiresAt: now.Add(90 * time.Minute)}
	if h := rec.HoursRemaining(now); h < 1.49 || h > 1.51 {
		t.Errorf("expected ~1.5h remaining, got %v", h)
	}

	rec.ExpiresAt = now.Add(-time.Hour)
	if h := rec.HoursRemaining(now); h != 0 {
		t.Errorf("expected 0 for past expiry, got %v", h)
	}
}
