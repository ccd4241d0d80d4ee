package tags

import "testing"

func TestTag_Year(t *testing.T) {
	tests := []struct {
		name string
		date string
		want int
	}{
		{"empty", "", 0},
		{"year only", "2023", 2023},
		{"full date", "2023-06-15", 2023},
		{"partial date", "2023-06", 2023},
		{"invalid", "invalid", 0},
		{"short", "23", 23},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag := &Tag{Date: tt.date}
			if got := tag.Year(); got != tt.want {
				t.Errorf("Year() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsMusicFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"song.mp3", true},
		{"song.MP3", true},
		{"song.flac", true},
		{"song.FLAC", true},
		{"song.opus", true},
		{"song.ogg", true},
		{"song.oga", true},
		{"song.m4a", true},
		{"song.wav", false},
		{"song.txt", false},
		{"song", false},
		{"/path/to/music.flac", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsMusicFile(tt.path); got != tt.want {
				t.Errorf("IsMusicFile(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestTaglibTags_Get(t *testing.T) {
	tags := taglibTags{
		"TITLE":  {"Nightcall"},
		"ARTIST": {"Kavinsky", "Lovefoxxx"},
	}

	if got := tags.get("TITLE"); got != "Nightcall" {
		t.Errorf("get(TITLE) = %q, want %q", got, "Nightcall")
	}
	if got := tags.get("ARTIST"); got != "Kavinsky" {
		t.Errorf("get(ARTIST) = %q, want first value %q", got, "Kavinsky")
	}
	if got := tags.get("MISSING", "TITLE"); got != "Nightcall" {
		t.Errorf("get with fallback key = %q, want %q", got, "Nightcall")
	}
	if got := tags.get("MISSING"); got != "" {
		t.Errorf("get(MISSING) = %q, want empty", got)
	}
}

func TestTaglibTags_GetInt(t *testing.T) {
	tags := taglibTags{
		"TRACKNUMBER": {"7"},
		"DISCNUMBER":  {"not a number"},
	}

	if got := tags.getInt("TRACKNUMBER"); got != 7 {
		t.Errorf("getInt(TRACKNUMBER) = %d, want 7", got)
	}
	if got := tags.getInt("DISCNUMBER"); got != 0 {
		t.Errorf("getInt(DISCNUMBER) = %d, want 0 for invalid value", got)
	}
	if got := tags.getInt("MISSING"); got != 0 {
		t.Errorf("getInt(MISSING) = %d, want 0", got)
	}
}

func TestTaglibTags_ParseNumberPair(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantNum   int
		wantTotal int
	}{
		{"empty", "", 0, 0},
		{"number only", "5", 5, 0},
		{"with total", "5/12", 5, 12},
		{"invalid", "abc", 0, 0},
		{"partial pair", "3/", 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags := taglibTags{"KEY": {tt.value}}
			num, total := tags.parseNumberPair("KEY")
			if num != tt.wantNum || total != tt.wantTotal {
				t.Errorf("parseNumberPair(%q) = (%d, %d), want (%d, %d)",
					tt.value, num, total, tt.wantNum, tt.wantTotal)
			}
		})
	}
}

func TestParseTrackNumber(t *testing.T) {
	tests := []struct {
		value     string
		wantNum   int
		wantTotal int
	}{
		{"", 0, 0},
		{"9", 9, 0},
		{"9/14", 9, 14},
		{"x/y", 0, 0},
	}

	for _, tt := range tests {
		num, total := parseTrackNumber(tt.value)
		if num != tt.wantNum || total != tt.wantTotal {
			t.Errorf("parseTrackNumber(%q) = (%d, %d), want (%d, %d)",
				tt.value, num, total, tt.wantNum, tt.wantTotal)
		}
	}
}
