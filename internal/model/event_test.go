package model

import (
	"errors"
	"strings"
	"testing"

	"pastlog/internal/value"
)

func TestSeverityString(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(0), "unknown"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.severity.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %q, want %q", tt.severity, got, tt.want)
		}
	}
}

func TestSeverityOrdering(t *testing.T) {
	if SeverityDebug != 1 {
		t.Errorf("SeverityDebug = %d, want 1", SeverityDebug)
	}
	if SeverityCritical != 5 {
		t.Errorf("SeverityCritical = %d, want 5", SeverityCritical)
	}
	if !(SeverityDebug < SeverityInfo && SeverityInfo < SeverityWarning &&
		SeverityWarning < SeverityError && SeverityError < SeverityCritical) {
		t.Error("severity levels are not strictly ordered")
	}
}

func TestParseSeverity(t *testing.T) {
	for _, s := range Severities() {
		got, err := ParseSeverity(s.String())
		if err != nil {
			t.Fatalf("ParseSeverity(%q): %v", s.String(), err)
		}
		if got != s {
			t.Errorf("ParseSeverity(%q) = %v, want %v", s.String(), got, s)
		}
	}

	if _, err := ParseSeverity("bogus"); err == nil {
		t.Error("ParseSeverity(bogus) did not fail")
	}
}

func TestShortenString(t *testing.T) {
	long := strings.Repeat("a", 300)
	got := ShortenString(long, MaxFieldLength)

	runes := []rune(got)
	if len(runes) != MaxFieldLength {
		t.Errorf("len = %d runes, want %d", len(runes), MaxFieldLength)
	}
	if runes[len(runes)-1] != '…' {
		t.Errorf("last rune = %q, want ellipsis", runes[len(runes)-1])
	}

	short := "fits"
	if got := ShortenString(short, MaxFieldLength); got != short {
		t.Errorf("ShortenString(%q) = %q, want unchanged", short, got)
	}

	exact := strings.Repeat("b", MaxFieldLength)
	if got := ShortenString(exact, MaxFieldLength); got != exact {
		t.Error("string at the limit must not be shortened")
	}
}

func TestNewEventTruncatesMessage(t *testing.T) {
	ev := NewEvent("auth", "login_failed", strings.Repeat("x", 400))
	if got := len([]rune(ev.Message)); got != MaxFieldLength {
		t.Errorf("message length = %d, want %d", got, MaxFieldLength)
	}
	if ev.Timestamp == 0 {
		t.Error("expected timestamp to be set")
	}
}

func TestSettersTruncate(t *testing.T) {
	long := strings.Repeat("y", 400)
	ev := NewEvent("auth", "login_failed", "msg").
		SetLocation(long).
		SetReferer(long).
		SetSessionID(long)

	for name, got := range map[string]string{
		"location":   ev.Location,
		"referer":    ev.Referer,
		"session_id": ev.SessionID,
	} {
		if len([]rune(got)) != MaxFieldLength {
			t.Errorf("%s length = %d, want %d", name, len([]rune(got)), MaxFieldLength)
		}
	}
}

func TestAddArgumentOverwritesDuplicateKey(t *testing.T) {
	ev := NewEvent("auth", "login_failed", "msg")
	ev.AddArgument("user", "first", value.Options{})
	ev.AddArgument("other", 1, value.Options{})
	ev.AddArgument("user", "second", value.Options{})

	args, err := ev.GetArguments()
	if err != nil {
		t.Fatalf("GetArguments: %v", err)
	}
	if len(args) != 2 {
		t.Fatalf("len(args) = %d, want 2", len(args))
	}

	// Insertion order is preserved; the overwrite keeps the original slot
	if args[0].GetKey() != "user" || args[1].GetKey() != "other" {
		t.Errorf("order = %q, %q; want user, other", args[0].GetKey(), args[1].GetKey())
	}

	arg, err := ev.GetArgument("user")
	if err != nil {
		t.Fatalf("GetArgument: %v", err)
	}
	data, err := arg.GetData()
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if data != "second" {
		t.Errorf("user data = %v, want %q", data, "second")
	}
}

func TestAddArgumentArray(t *testing.T) {
	ev := NewEvent("commerce", "order_placed", "msg")
	ev.AddArgumentArray("item", map[string]any{
		"sku":   "A-1",
		"count": 2,
	}, value.Options{})

	args, err := ev.GetArguments()
	if err != nil {
		t.Fatalf("GetArguments: %v", err)
	}
	if len(args) != 2 {
		t.Fatalf("len(args) = %d, want 2", len(args))
	}
	// Keys are prefixed and sorted
	if args[0].GetKey() != "item:count" || args[1].GetKey() != "item:sku" {
		t.Errorf("keys = %q, %q; want item:count, item:sku", args[0].GetKey(), args[1].GetKey())
	}
}

func TestAddException(t *testing.T) {
	ev := NewEvent("runtime", "panic_recovered", "msg")
	ev.AddException(errors.New("boom"), value.Options{})

	arg, err := ev.GetArgument("exception")
	if err != nil {
		t.Fatalf("GetArgument: %v", err)
	}
	if arg == nil {
		t.Fatal("expected exception argument")
	}

	arg.EnsureType()
	if arg.GetType() != "array" {
		t.Errorf("exception type = %q, want %q", arg.GetType(), "array")
	}
}

func TestLazyArgumentLoading(t *testing.T) {
	ev := NewEvent("auth", "login_failed", "msg")
	ev.ID = 7

	calls := 0
	ev.SetArgumentLoader(func() ([]*Argument, error) {
		calls++
		return []*Argument{
			LoadedArgument(1, 7, "username", "string", "", []value.Row{
				{Name: "", Type: "string", Value: "alice"},
			}),
		}, nil
	})

	// Loader must not fire until first access
	if calls != 0 {
		t.Fatalf("loader fired %d times before access", calls)
	}

	arg, err := ev.GetArgument("username")
	if err != nil {
		t.Fatalf("GetArgument: %v", err)
	}
	if arg == nil {
		t.Fatal("expected loaded argument")
	}
	if calls != 1 {
		t.Errorf("loader calls = %d, want 1", calls)
	}

	// Second access must reuse the loaded set
	if _, err := ev.GetArguments(); err != nil {
		t.Fatalf("GetArguments: %v", err)
	}
	if calls != 1 {
		t.Errorf("loader calls after second access = %d, want 1", calls)
	}

	data, err := arg.GetData()
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if data != "alice" {
		t.Errorf("data = %v, want %q", data, "alice")
	}
}

func TestLazyLoaderError(t *testing.T) {
	ev := NewEvent("auth", "login_failed", "msg")
	ev.SetArgumentLoader(func() ([]*Argument, error) {
		return nil, errors.New("db gone")
	})

	if _, err := ev.GetArguments(); err == nil {
		t.Error("expected loader error to propagate")
	}
}

func TestAddArgumentAfterLoaderMarksLoaded(t *testing.T) {
	ev := NewEvent("auth", "login_failed", "msg")
	ev.SetArgumentLoader(func() ([]*Argument, error) {
		t.Fatal("loader must not fire after AddArgument created a live collection")
		return nil, nil
	})

	ev.AddArgument("fresh", 1, value.Options{})

	args, err := ev.GetArguments()
	if err != nil {
		t.Fatalf("GetArguments: %v", err)
	}
	if len(args) != 1 {
		t.Errorf("len(args) = %d, want 1", len(args))
	}
}

func TestChildEvents(t *testing.T) {
	ev := NewEvent("batch", "import_finished", "msg")
	ev.AddChildEvent(3).AddChildEvent(4)

	got := ev.ChildEvents()
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("ChildEvents() = %v, want [3 4]", got)
	}
}

func TestArgumentEnsureTypeKeepsExplicit(t *testing.T) {
	arg := NewArgument("account", value.Capture("alice", value.Options{}))
	arg.Type = "entity:user"
	arg.EnsureType()

	if arg.GetType() != "entity:user" {
		t.Errorf("type = %q, want explicit entity:user kept", arg.GetType())
	}
}
