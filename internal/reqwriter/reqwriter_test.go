package reqwriter

import "testing"

func TestRenderSortsAndDeduplicates(t *testing.T) {
	got := Render(map[string]bool{"requests": true, "numpy": true, "requests ": false})
	want := "numpy\nrequests\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderEmpty(t *testing.T) {
	if got := Render(nil); got != "" {
		t.Fatalf("expected empty string for no third-party deps, got %q", got)
	}
}
