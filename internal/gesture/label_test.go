package gesture

import (
	"encoding/json"
	"testing"
)

func TestParseLabel(t *testing.T) {
	cases := map[string]Label{
		"Thumb_Up":    ThumbUp,
		"Thumb_Down":  ThumbDown,
		"Closed_Fist": ClosedFist,
		"Victory":     Victory,
		"Pointing_Up": PointingUp,
		"ILoveYou":    ILoveYou,
		"None":        None,
		"ThumbUp":     ThumbUp,
		"closedfist":  ClosedFist,
		" victory ":   Victory,
		"Open_Palm":   None,
		"":            None,
		"wave":        None,
	}
	for in, want := range cases {
		if got := ParseLabel(in); got != want {
			t.Errorf("ParseLabel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLabel_Class(t *testing.T) {
	cases := map[Label]Class{
		ThumbUp:    Continuous,
		ThumbDown:  Continuous,
		ClosedFist: Discrete,
		Victory:    Discrete,
		PointingUp: Discrete,
		ILoveYou:   Discrete,
		None:       Unclassified,
		Label(99):  Unclassified,
	}
	for l, want := range cases {
		if got := l.Class(); got != want {
			t.Errorf("%v.Class() = %v, want %v", l, got, want)
		}
	}
}

func TestLabel_StringRoundTrip(t *testing.T) {
	for _, l := range Labels {
		if got := ParseLabel(l.String()); got != l {
			t.Errorf("ParseLabel(%q) = %v, want %v", l.String(), got, l)
		}
	}
	if s := Label(42).String(); s != "Label(42)" {
		t.Errorf("unexpected string for unknown label: %q", s)
	}
}

func TestResult_JSON(t *testing.T) {
	b, err := json.Marshal(Result{Action: VolumeChanged, Label: ThumbUp, Confidence: 0.9, Level: 0.6})
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	want := `{"action":"volume_changed","label":"ThumbUp","confidence":0.9,"level":0.6}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}

	var ev Event
	if err := json.Unmarshal([]byte(`{"label":"Closed_Fist","confidence":0.8}`), &ev); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if ev.Label != ClosedFist {
		t.Errorf("expected ClosedFist, got %v", ev.Label)
	}
}
