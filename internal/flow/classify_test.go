package flow

import "testing"

func TestClassify(t *testing.T) {
	c := NewClassifier([]string{"AK", "bk "}, []string{"YP", "PD"})

	if got := c.Classify("AK"); got != ClassInstitutional {
		t.Fatalf("expected institutional, got %s", got)
	}
	if got := c.Classify("bk"); got != ClassInstitutional {
		t.Fatalf("expected case-insensitive match, got %s", got)
	}
	if got := c.Classify("yp"); got != ClassRetail {
		t.Fatalf("expected retail, got %s", got)
	}
	if got := c.Classify("ZZ"); got != ClassUnknown {
		t.Fatalf("expected unknown for unlisted id, got %s", got)
	}
	if got := c.Classify(""); got != ClassUnknown {
		t.Fatalf("expected unknown for empty id, got %s", got)
	}
}
