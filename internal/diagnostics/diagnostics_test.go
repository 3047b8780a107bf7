package diagnostics

import "testing"

func TestWarnDoesNotCountAsFatalOutsideStrict(t *testing.T) {
	s := NewSink(false)
	s.Warn(StageResolve, "pkg", "pkg.py", 1, 1, "unused import %s", "os")
	if s.HasFatal() {
		t.Fatalf("a warning alone should not be fatal outside strict mode")
	}
	if s.Err() != nil {
		t.Fatalf("expected nil error, got %v", s.Err())
	}
}

func TestWarnIsFatalInStrictMode(t *testing.T) {
	s := NewSink(true)
	s.Warn(StageResolve, "pkg", "pkg.py", 1, 1, "unused import")
	if !s.HasFatal() {
		t.Fatalf("expected strict mode to promote warnings to fatal")
	}
	if s.Err() == nil {
		t.Fatalf("expected a non-nil error in strict mode")
	}
}

func TestFatalIsAlwaysFatal(t *testing.T) {
	s := NewSink(false)
	s.Fatal(StageParse, "pkg", "pkg.py", 1, 1, "syntax error")
	if !s.HasFatal() {
		t.Fatalf("expected Fatal to mark the sink fatal")
	}
}

func TestItemsPreservesRecordedOrder(t *testing.T) {
	s := NewSink(false)
	s.Warn(StageResolve, "a", "a.py", 1, 1, "first")
	s.Warn(StageParse, "b", "b.py", 2, 1, "second")

	items := s.Items()
	if len(items) != 2 || items[0].Message != "first" || items[1].Message != "second" {
		t.Fatalf("unexpected item order: %+v", items)
	}
}
