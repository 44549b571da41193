package capture

import "testing"

const modelURL = "https://models.readyplayer.me/abc123.glb"
const otherURL = "https://models.readyplayer.me/def456.glb"

func TestReduceExportCaptures(t *testing.T) {
	state, changed := Reduce(NewState(), Exported{URL: modelURL, Source: SourceEmbed})
	if !changed {
		t.Fatal("expected state change")
	}
	if state.Phase != PhaseCaptured || state.URL != modelURL || state.Source != SourceEmbed {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestReduceDuplicateExportSuppressed(t *testing.T) {
	state, _ := Reduce(NewState(), Exported{URL: modelURL, Source: SourceEmbed})

	next, changed := Reduce(state, Exported{URL: modelURL, Source: SourcePoller})
	if changed {
		t.Fatal("expected duplicate export suppressed")
	}
	if next.Source != SourceEmbed {
		t.Fatalf("expected original source kept, got %s", next.Source)
	}
}

func TestReduceNewURLReplacesCapture(t *testing.T) {
	state, _ := Reduce(NewState(), Exported{URL: modelURL, Source: SourceEmbed})

	next, changed := Reduce(state, Exported{URL: otherURL, Source: SourceManual})
	if !changed {
		t.Fatal("expected state change")
	}
	if next.URL != otherURL || next.Source != SourceManual {
		t.Fatalf("unexpected state: %+v", next)
	}
}

func TestReduceConfirmRequiresCapture(t *testing.T) {
	_, changed := Reduce(NewState(), Confirm{})
	if changed {
		t.Fatal("expected confirm without capture suppressed")
	}

	state, _ := Reduce(NewState(), Exported{URL: modelURL, Source: SourceEmbed})
	confirmed, changed := Reduce(state, Confirm{})
	if !changed {
		t.Fatal("expected state change")
	}
	if confirmed.Phase != PhaseConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Phase)
	}

	_, changed = Reduce(confirmed, Confirm{})
	if changed {
		t.Fatal("expected repeat confirm suppressed")
	}
}

func TestReduceLateDuplicateAfterConfirmSuppressed(t *testing.T) {
	state, _ := Reduce(NewState(), Exported{URL: modelURL, Source: SourceEmbed})
	state, _ = Reduce(state, Confirm{})

	_, changed := Reduce(state, Exported{URL: modelURL, Source: SourcePoller})
	if changed {
		t.Fatal("expected late duplicate suppressed after confirm")
	}
}

func TestReduceResetReturnsToWaiting(t *testing.T) {
	state, _ := Reduce(NewState(), Exported{URL: modelURL, Source: SourceEmbed})

	reset, changed := Reduce(state, Reset{})
	if !changed {
		t.Fatal("expected state change")
	}
	if reset.Phase != PhaseWaiting || reset.URL != "" {
		t.Fatalf("unexpected state: %+v", reset)
	}

	_, changed = Reduce(reset, Reset{})
	if changed {
		t.Fatal("expected redundant reset suppressed")
	}
}

func TestReduceEmptyURLIgnored(t *testing.T) {
	_, changed := Reduce(NewState(), Exported{URL: "   "})
	if changed {
		t.Fatal("expected empty export ignored")
	}
}
