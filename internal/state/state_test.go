package state

import (
	"testing"
)

func intPtr(v int) *int { return &v }

// testTranslation returns a fixed single-command translation for writes.
func testTranslation(value int) *Translation {
	return &Translation{
		Commands: []CommandPayload{{
			Command:    "set_level",
			Opcode:     "0x33",
			PayloadHex: "04",
		}},
		Expectations: []Expectation{
			{State: map[string]any{"level": value}},
			{OpCommand: []int{0xAA, 0x04, value}},
		},
	}
}

func newLevelState() *DeviceState[*int] {
	var s *DeviceState[*int]
	s = New(Config[*int]{
		Name:       "level",
		Strategy:   ParseOpCode,
		OpType:     0xAA,
		Identifier: []int{0x04},
		OnState: func(report Report) {
			if value, ok := lookupStateValue(report.State, "level"); ok {
				if level, ok := asInt(value); ok {
					s.Update(&level)
				}
			}
		},
		OnOpCommand: func(command []int) {
			if len(command) >= 3 {
				level := command[2]
				s.Update(&level)
			}
		},
		Translate: func(next *int) *Translation {
			if next == nil || *next < 0 || *next > 100 {
				return nil
			}
			return testTranslation(*next)
		},
	})
	return s
}

func TestSetState_QueuesStampedCommands(t *testing.T) {
	s := newLevelState()

	ids := s.SetState(intPtr(75))
	if len(ids) != 1 {
		t.Fatalf("SetState() returned %d ids, want 1", len(ids))
	}
	if ids[0] == "" {
		t.Fatal("SetState() returned empty command id")
	}

	commands := s.DrainCommands()
	if len(commands) != 1 {
		t.Fatalf("DrainCommands() returned %d commands, want 1", len(commands))
	}
	if commands[0].CommandID != ids[0] {
		t.Errorf("command stamped with %q, want %q", commands[0].CommandID, ids[0])
	}
	if commands[0].Name != "level" {
		t.Errorf("command Name = %q, want the capability name level", commands[0].Name)
	}
	if commands[0].Command != "set_level" {
		t.Errorf("command Command = %q, want set_level", commands[0].Command)
	}
	if s.PendingCount() != 1 {
		t.Errorf("PendingCount() = %d, want 1", s.PendingCount())
	}

	if again := s.DrainCommands(); len(again) != 0 {
		t.Errorf("second DrainCommands() returned %d commands, want 0", len(again))
	}
}

func TestSetState_RejectedValueIsSilentNoOp(t *testing.T) {
	s := newLevelState()

	if ids := s.SetState(intPtr(150)); len(ids) != 0 {
		t.Errorf("SetState(150) returned %v, want empty", ids)
	}
	if ids := s.SetState(nil); len(ids) != 0 {
		t.Errorf("SetState(nil) returned %v, want empty", ids)
	}
	if got := len(s.DrainCommands()); got != 0 {
		t.Errorf("queue holds %d commands after rejected writes, want 0", got)
	}
	if s.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d, want 0", s.PendingCount())
	}
}

func TestSetState_NotCommandable(t *testing.T) {
	s := New(Config[*int]{Name: "readonly", Strategy: ParseStateOnly})
	if ids := s.SetState(intPtr(1)); len(ids) != 0 {
		t.Errorf("SetState() on read-only state returned %v, want empty", ids)
	}
}

func TestParse_OpCommandClearsPendingExactlyOnce(t *testing.T) {
	s := newLevelState()

	var events []ClearEvent
	s.OnClear(func(e ClearEvent) { events = append(events, e) })

	ids := s.SetState(intPtr(75))
	if len(ids) != 1 {
		t.Fatalf("SetState() returned %d ids, want 1", len(ids))
	}

	report := Report{
		Cmd: "status",
		Op:  [][]int{{0xAA, 0x04, 75}},
	}
	s.Parse(report)

	if s.Value() == nil || *s.Value() != 75 {
		t.Errorf("Value() = %v, want 75", s.Value())
	}
	if len(events) != 1 {
		t.Fatalf("got %d clear events, want 1", len(events))
	}
	if events[0].CommandID != ids[0] {
		t.Errorf("clear event id = %q, want %q", events[0].CommandID, ids[0])
	}
	if events[0].State != "level" {
		t.Errorf("clear event state = %q, want %q", events[0].State, "level")
	}
	if s.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d, want 0", s.PendingCount())
	}

	// A duplicate report finds no pending command and emits nothing.
	s.Parse(report)
	if len(events) != 1 {
		t.Errorf("duplicate report produced %d events, want 1", len(events))
	}
}

func TestClearCommands_EmitsEventPerHeldCommand(t *testing.T) {
	s := newLevelState()

	var events []ClearEvent
	s.OnClear(func(e ClearEvent) { events = append(events, e) })

	ids := s.SetState(intPtr(75))
	if len(ids) != 1 {
		t.Fatalf("SetState() returned %d ids, want 1", len(ids))
	}

	s.ClearCommands("not-held", ids[0])
	if len(events) != 1 {
		t.Fatalf("got %d clear events, want 1", len(events))
	}
	if events[0].CommandID != ids[0] {
		t.Errorf("clear event id = %q, want %q", events[0].CommandID, ids[0])
	}
	if s.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d, want 0", s.PendingCount())
	}

	// Repeating the ids emits nothing further.
	s.ClearCommands(ids[0])
	if len(events) != 1 {
		t.Errorf("repeat ClearCommands produced %d events, want 1", len(events))
	}
}

func TestParse_StructuredReportClearsPending(t *testing.T) {
	s := newLevelState()

	var events []ClearEvent
	s.OnClear(func(e ClearEvent) { events = append(events, e) })

	s.SetState(intPtr(40))
	s.Parse(Report{
		Cmd:   "status",
		State: map[string]any{"level": float64(40)},
	})

	if s.Value() == nil || *s.Value() != 40 {
		t.Errorf("Value() = %v, want 40", s.Value())
	}
	if len(events) != 1 {
		t.Errorf("got %d clear events, want 1", len(events))
	}
}

func TestParse_NonStatusCmdIgnoredByStructuredPath(t *testing.T) {
	s := newLevelState()
	s.SetState(intPtr(40))

	s.Parse(Report{
		Cmd:   "ptReal",
		State: map[string]any{"level": float64(40)},
	})

	if s.Value() != nil {
		t.Errorf("Value() = %v, want nil", s.Value())
	}
	if s.PendingCount() != 1 {
		t.Errorf("PendingCount() = %d, want 1", s.PendingCount())
	}
}

func TestParse_UnmatchedReportLeavesPending(t *testing.T) {
	s := newLevelState()
	s.SetState(intPtr(75))

	s.Parse(Report{
		Cmd: "status",
		Op:  [][]int{{0xAA, 0x04, 30}},
	})

	// The report updates the value but acknowledges nothing.
	if s.Value() == nil || *s.Value() != 30 {
		t.Errorf("Value() = %v, want 30", s.Value())
	}
	if s.PendingCount() != 1 {
		t.Errorf("PendingCount() = %d, want 1", s.PendingCount())
	}
}

func TestParse_MalformedPayloadIsIgnored(t *testing.T) {
	s := newLevelState()

	s.Parse(Report{})
	s.Parse(Report{Cmd: "status"})
	s.Parse(Report{Cmd: "status", Op: [][]int{{}}})

	if s.Value() != nil {
		t.Errorf("Value() = %v, want nil", s.Value())
	}
}

func TestParse_NoneStrategyIgnoresEverything(t *testing.T) {
	var touched bool
	s := New(Config[*int]{
		Name:     "inert",
		Strategy: ParseNone,
		OnState:  func(Report) { touched = true },
	})

	s.Parse(Report{Cmd: "status", State: map[string]any{"level": 1}})
	if touched {
		t.Error("ParseNone state invoked its hook")
	}
}

func TestParse_MultiOpAggregatesCommands(t *testing.T) {
	var got [][]int
	s := New(Config[*int]{
		Name:       "sensor",
		Strategy:   ParseMultiOp,
		OpType:     0xAA,
		Identifier: []int{0x10},
		OnMultiOp:  func(commands [][]int) { got = commands },
	})

	s.Parse(Report{
		Cmd: "status",
		Op: [][]int{
			{0xAA, 0x10, 0x2D, 0x00},
			{0xAA, 0x10, 0x01, 0x63},
			{0x33, 0x10, 0xFF},
		},
	})

	if len(got) != 2 {
		t.Fatalf("multi-op hook received %d commands, want 2", len(got))
	}
	// Augmented commands carry the routing prefix back.
	if got[0][0] != 0xAA || got[0][1] != 0x10 || got[0][2] != 0x2D {
		t.Errorf("first augmented command = %v", got[0])
	}
}

func TestUpdate_PushesHistory(t *testing.T) {
	s := newLevelState()

	s.Update(intPtr(10))
	s.Update(intPtr(20))
	s.Update(intPtr(30))

	if *s.Value() != 30 {
		t.Fatalf("Value() = %d, want 30", *s.Value())
	}

	s.PreviousState(1)
	if s.Value() == nil || *s.Value() != 20 {
		t.Errorf("after rollback Value() = %v, want 20", s.Value())
	}
}

func TestPreviousState_IsLocalRollback(t *testing.T) {
	s := newLevelState()

	s.Update(intPtr(10))
	s.Update(intPtr(20))

	ids := s.PreviousState(1)
	if len(ids) != 0 {
		t.Errorf("PreviousState() returned ids %v, want none", ids)
	}
	if got := len(s.DrainCommands()); got != 0 {
		t.Errorf("rollback queued %d commands, want 0", got)
	}
	if s.Value() == nil || *s.Value() != 10 {
		t.Errorf("Value() = %v, want 10", s.Value())
	}
}

func TestPreviousState_PastOldestConverges(t *testing.T) {
	s := New(Config[int]{Name: "counter", HistoryDepth: 3})
	for i := 1; i <= 5; i++ {
		s.Update(i)
	}

	s.PreviousState(10)
	// Depth 3 retains only the most recent previous values; rewinding
	// further converges on the oldest retained entry.
	if got := s.Value(); got != 2 {
		t.Errorf("Value() after deep rollback = %d, want 2", got)
	}

	if ids := s.PreviousState(1); len(ids) != 0 {
		t.Errorf("rollback on empty history returned %v", ids)
	}
}

func TestSubscribe_NotifiesImmediatelyAndOnUpdate(t *testing.T) {
	s := New(Config[int]{Name: "counter"})

	var seen []int
	unsubscribe := s.Subscribe(func(v int) { seen = append(seen, v) })

	s.Update(1)
	unsubscribe()
	s.Update(2)

	if len(seen) != 2 || seen[0] != 0 || seen[1] != 1 {
		t.Errorf("listener saw %v, want [0 1]", seen)
	}
}

func TestSetStateValue_Coercion(t *testing.T) {
	s := New(Config[*int]{
		Name: "level",
		Translate: func(next *int) *Translation {
			if next == nil {
				return nil
			}
			return testTranslation(*next)
		},
		Coerce: func(value any) (*int, bool) {
			n, ok := asInt(value)
			if !ok {
				return nil, false
			}
			return &n, true
		},
	})

	if ids := s.SetStateValue(float64(42)); len(ids) != 1 {
		t.Errorf("SetStateValue(42.0) returned %v, want one id", ids)
	}
	if ids := s.SetStateValue("nonsense"); len(ids) != 0 {
		t.Errorf("SetStateValue(nonsense) returned %v, want empty", ids)
	}
}
