package track

import "testing"

func TestSame(t *testing.T) {
	tests := []struct {
		name string
		a, b Info
		want bool
	}{
		{
			name: "exact match",
			a:    Info{Title: "Hello", Artist: "Adele"},
			b:    Info{Title: "Hello", Artist: "Adele"},
			want: true,
		},
		{
			name: "case and whitespace normalized",
			a:    Info{Title: "  Hello  World ", Artist: "ADELE"},
			b:    Info{Title: "hello world", Artist: "adele"},
			want: true,
		},
		{
			name: "different artist",
			a:    Info{Title: "Hello", Artist: "Adele"},
			b:    Info{Title: "Hello", Artist: "Lionel Richie"},
			want: false,
		},
		{
			name: "duration tie-break distinguishes versions",
			a:    Info{Title: "Hurt", Artist: "Nine Inch Nails", DurationMs: 373_000},
			b:    Info{Title: "Hurt", Artist: "Nine Inch Nails", DurationMs: 218_000},
			want: false,
		},
		{
			name: "missing duration on one side does not split",
			a:    Info{Title: "Hurt", Artist: "Nine Inch Nails", DurationMs: 373_000},
			b:    Info{Title: "Hurt", Artist: "Nine Inch Nails"},
			want: true,
		},
		{
			name: "sub-second duration jitter ignored",
			a:    Info{Title: "Hurt", Artist: "Nine Inch Nails", DurationMs: 373_100},
			b:    Info{Title: "Hurt", Artist: "Nine Inch Nails", DurationMs: 373_900},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Same(&tt.b); got != tt.want {
				t.Errorf("Same() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKey(t *testing.T) {
	a := Info{Title: "Hello  World", Artist: "ADELE"}
	b := Info{Title: "hello world", Artist: "adele"}
	if a.Key() != b.Key() {
		t.Errorf("normalized keys differ: %q vs %q", a.Key(), b.Key())
	}

	c := Info{Title: "Hurt", Artist: "NIN", DurationMs: 373_000}
	d := Info{Title: "Hurt", Artist: "NIN", DurationMs: 218_000}
	if c.Key() == d.Key() {
		t.Error("expected distinct keys for different durations")
	}
}

func TestIsValid(t *testing.T) {
	var nilInfo *Info
	if nilInfo.IsValid() {
		t.Error("nil info should not be valid")
	}
	if (&Info{Title: "x"}).IsValid() {
		t.Error("missing artist should not be valid")
	}
	if (&Info{Title: " ", Artist: "y"}).IsValid() {
		t.Error("blank title should not be valid")
	}
	if !(&Info{Title: "x", Artist: "y"}).IsValid() {
		t.Error("title+artist should be valid")
	}
}
