package job

import "testing"

func TestLifecycle_CompletedRun(t *testing.T) {
	j := New("job-1", 3)

	if j.State() != StatePending {
		t.Fatalf("state = %s, want pending", j.State())
	}
	if err := j.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	j.RecordSuccess("v1")
	j.RecordSkip(1, "b.jpg", "duplicate")
	j.RecordError(2, "c.jpg", "unreadable")

	if err := j.Complete(); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	snap := j.Snapshot()
	if snap.State != StateCompleted || snap.Processed != 3 || snap.Succeeded != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(snap.Results) != 1 || snap.Results[0] != "v1" {
		t.Errorf("results = %v", snap.Results)
	}
	if len(snap.Skipped) != 1 || len(snap.Errors) != 1 {
		t.Errorf("skipped = %v, errors = %v", snap.Skipped, snap.Errors)
	}
	if snap.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}
}

func TestStart_OnlyFromPending(t *testing.T) {
	j := New("job-1", 1)
	if err := j.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := j.Start(); err == nil {
		t.Error("second Start() succeeded")
	}
}

func TestCancel_Pending(t *testing.T) {
	j := New("job-1", 1)

	if err := j.Cancel(); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if j.State() != StateCancelled {
		t.Errorf("state = %s, want cancelled", j.State())
	}
}

func TestCancel_Running(t *testing.T) {
	j := New("job-1", 1)
	_ = j.Start()

	if err := j.Cancel(); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if err := j.Cancel(); err == nil {
		t.Error("Cancel() on finished job succeeded")
	}
}

func TestFail_KeepsMessage(t *testing.T) {
	j := New("job-1", 1)
	_ = j.Start()

	if err := j.Fail("csv truncated"); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}
	if j.State() != StateFailed || j.Failure() != "csv truncated" {
		t.Errorf("state = %s, failure = %q", j.State(), j.Failure())
	}
}

func TestComplete_RequiresRunning(t *testing.T) {
	j := New("job-1", 1)
	if err := j.Complete(); err == nil {
		t.Error("Complete() from pending succeeded")
	}
}

func TestStateFinished(t *testing.T) {
	for state, want := range map[State]bool{
		StatePending:   false,
		StateRunning:   false,
		StateCompleted: true,
		StateCancelled: true,
		StateFailed:    true,
	} {
		if got := state.Finished(); got != want {
			t.Errorf("%s.Finished() = %v, want %v", state, got, want)
		}
	}
}

func TestSnapshot_CopiesSlices(t *testing.T) {
	j := New("job-1", 2)
	_ = j.Start()
	j.RecordSuccess("v1")

	snap := j.Snapshot()
	snap.Results[0] = "mutated"

	if j.Results()[0] != "v1" {
		t.Error("Snapshot() shared internal slice")
	}
}
