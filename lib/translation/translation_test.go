package translation

import (
	"fmt"
	"testing"
)

func TestTranslateLeavesVerbsForCaller(t *testing.T) {
	Configure(t.TempDir(), "en")

	msgID := "*%s* alerts on a 15%% rise every %s"
	got := Translate(msgID)
	if got != msgID {
		t.Fatalf("Translate(%q) = %q, want the id unchanged", msgID, got)
	}
	if s := fmt.Sprintf(got, "PEPE", "2h"); s != "*PEPE* alerts on a 15% rise every 2h" {
		t.Fatalf("formatted = %q", s)
	}
}
