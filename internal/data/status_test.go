package data

import "testing"

func TestDownloadedOrDownloading(t *testing.T) {
	tests := []struct {
		state LifecycleState
		want  bool
	}{
		{StateActive, true},
		{StateWaiting, true},
		{StatePaused, true},
		{StateComplete, true},
		{StateError, false},
		{StateRemoved, false},
		{StateUnknown, false},
	}
	for _, tt := range tests {
		if got := tt.state.DownloadedOrDownloading(); got != tt.want {
			t.Fatalf("%s: got %v want %v", tt.state, got, tt.want)
		}
	}
}

func TestCanTake(t *testing.T) {
	tests := []struct {
		state LifecycleState
		allow []Action
	}{
		{StateActive, []Action{ActionPause, ActionCancel, ActionRemove}},
		{StateWaiting, []Action{ActionCancel, ActionRemove}},
		{StatePaused, []Action{ActionResume, ActionCancel, ActionRemove}},
		{StateError, []Action{ActionRetry, ActionRemove}},
		{StateComplete, []Action{ActionRemove}},
		{StateRemoved, nil},
		{StateUnknown, nil},
	}
	all := []Action{ActionPause, ActionResume, ActionCancel, ActionRemove, ActionRetry}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			allowed := map[Action]bool{}
			for _, a := range tt.allow {
				allowed[a] = true
			}
			for _, a := range all {
				if got := tt.state.CanTake(a); got != allowed[a] {
					t.Fatalf("%s -> %s: got %v want %v", tt.state, a, got, allowed[a])
				}
			}
		})
	}
}

func TestParseLifecycleState(t *testing.T) {
	if got := ParseLifecycleState(" Active "); got != StateActive {
		t.Fatalf("got %q", got)
	}
	if got := ParseLifecycleState("bogus"); got != StateUnknown {
		t.Fatalf("got %q", got)
	}
}

func TestRefFilterMatches(t *testing.T) {
	ref := &DownloadRef{MediaKind: KindSeries, MediaID: 7, DownloadableID: 701, Episode: IntPtr(3)}

	if !(RefFilter{MediaKind: KindSeries, MediaID: 7, DownloadableID: 701}).Matches(ref) {
		t.Fatalf("nil episode filter should match")
	}
	if !(RefFilter{MediaKind: KindSeries, MediaID: 7, DownloadableID: 701, Episode: IntPtr(3)}).Matches(ref) {
		t.Fatalf("exact filter should match")
	}
	if (RefFilter{MediaKind: KindSeries, MediaID: 7, DownloadableID: 701, Episode: IntPtr(4)}).Matches(ref) {
		t.Fatalf("different episode should not match")
	}
	if (RefFilter{MediaKind: KindMovie, MediaID: 7, DownloadableID: 701}).Matches(ref) {
		t.Fatalf("different kind should not match")
	}
}

func TestStatusViewProgress(t *testing.T) {
	if p := (StatusView{TotalBytes: 200, Completed: 50}).Progress(); p != 0.25 {
		t.Fatalf("progress = %v", p)
	}
	if p := (StatusView{}).Progress(); p != 0 {
		t.Fatalf("progress with unknown size = %v", p)
	}
}
