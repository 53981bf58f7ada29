package session

import (
	"sync"
	"testing"
)

func TestUnknownUserIsIdle(t *testing.T) {
	m := NewManager()

	s := m.Get(42)
	if s.State != Idle {
		t.Fatalf("expected idle state, got %s", s.State)
	}
	if s.VacancyID != 0 {
		t.Fatalf("expected empty vacancy context, got %d", s.VacancyID)
	}
}

func TestUsersDoNotShareState(t *testing.T) {
	m := NewManager()

	m.SetAwaitingResume(1, 3)
	m.SetAwaitingResume(2, 4)

	first := m.Get(1)
	second := m.Get(2)

	if first.State != AwaitingResume || first.VacancyID != 3 {
		t.Fatalf("unexpected session for first user: %+v", first)
	}
	if second.State != AwaitingResume || second.VacancyID != 4 {
		t.Fatalf("unexpected session for second user: %+v", second)
	}

	// Completing the first user's flow must not touch the second one.
	m.Clear(1)

	if got := m.Get(1).State; got != Idle {
		t.Fatalf("expected first user idle, got %s", got)
	}
	if got := m.Get(2); got.State != AwaitingResume || got.VacancyID != 4 {
		t.Fatalf("second user's session changed: %+v", got)
	}
}

func TestVoiceReplacementState(t *testing.T) {
	m := NewManager()

	m.SetAwaitingVoice(7, 2)

	s := m.Get(7)
	if s.State != AwaitingVoiceReplacement || s.VacancyID != 2 {
		t.Fatalf("unexpected session: %+v", s)
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := NewManager()

	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			m.SetAwaitingResume(user, user+100)
			m.Get(user)
			m.Clear(user)
		}(i)
	}
	wg.Wait()

	for i := int64(0); i < 50; i++ {
		if got := m.Get(i).State; got != Idle {
			t.Fatalf("user %d not idle after clear: %s", i, got)
		}
	}
}
