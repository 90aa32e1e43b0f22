package gallery

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		wantLabel string
		wantOK    bool
	}{
		{name: "label and timestamp", file: "alice_1700000000000.png", wantLabel: "alice", wantOK: true},
		{name: "token with extra delimiters", file: "bob_17_0001.jpg", wantLabel: "bob", wantOK: true},
		{name: "no delimiter uses stem", file: "carol.png", wantLabel: "carol", wantOK: true},
		{name: "full path", file: "/tmp/faces/dave_1.png", wantLabel: "dave", wantOK: true},
		{name: "empty label", file: "_123.png", wantOK: false},
		{name: "blank label", file: "  _123.png", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, ok := ParseLabel(tt.file)
			if ok != tt.wantOK {
				t.Fatalf("ParseLabel(%q) ok = %v, want %v", tt.file, ok, tt.wantOK)
			}
			if label != tt.wantLabel {
				t.Errorf("ParseLabel(%q) = %q, want %q", tt.file, label, tt.wantLabel)
			}
		})
	}
}

func TestFileName_RoundTrip(t *testing.T) {
	token := NewToken(time.UnixMilli(1700000000000))
	name := FileName("alice", token, "")

	if !strings.HasSuffix(name, DefaultExt) {
		t.Errorf("FileName() = %q, want %s extension", name, DefaultExt)
	}
	if !strings.HasPrefix(token, "1700000000000-") {
		t.Errorf("NewToken() = %q, want millisecond prefix", token)
	}

	label, ok := ParseLabel(name)
	if !ok || label != "alice" {
		t.Errorf("ParseLabel(FileName()) = %q, %v, want alice, true", label, ok)
	}
}

func TestNewToken_Unique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok := NewToken(now)
		if seen[tok] {
			t.Fatalf("NewToken() returned duplicate %q", tok)
		}
		seen[tok] = true
	}
}

func TestValidateLabel(t *testing.T) {
	valid := []string{"alice", "Bob Smith", "李"}
	for _, label := range valid {
		if err := ValidateLabel(label); err != nil {
			t.Errorf("ValidateLabel(%q) error = %v", label, err)
		}
	}

	invalid := []string{"", "   ", "a_b", "a/b", `a\b`, "..", " alice"}
	for _, label := range invalid {
		err := ValidateLabel(label)
		if !errors.Is(err, ErrInvalidLabel) {
			t.Errorf("ValidateLabel(%q) error = %v, want ErrInvalidLabel", label, err)
		}
	}
}

func TestIsImageFile(t *testing.T) {
	tests := map[string]bool{
		"a_1.png":   true,
		"a_1.PNG":   true,
		"a_1.jpg":   true,
		"a_1.jpeg":  true,
		"a_1.bmp":   true,
		"notes.txt": false,
		"a_1":       false,
	}
	for name, want := range tests {
		if got := IsImageFile(name); got != want {
			t.Errorf("IsImageFile(%q) = %v, want %v", name, got, want)
		}
	}
}
