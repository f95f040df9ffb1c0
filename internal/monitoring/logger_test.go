package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("snapshot %d persisted", 1)
	if got != "snapshot %d persisted" {
		t.Errorf("custom logger not invoked, got %q", got)
	}

	// nil installs a no-op that never calls through
	got = ""
	SetLogger(nil)
	Logf("dropped")
	if got != "" {
		t.Error("no-op logger called the previous sink")
	}
}

func TestLogfDefaultNotNil(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf must have a default sink")
	}
}
