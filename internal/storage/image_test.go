package storage

import (
	"strings"
	"testing"
)

func TestAllowedImage(t *testing.T) {
	cases := map[string]bool{
		"me.png":       true,
		"me.JPG":       true,
		"me.jpeg":      true,
		"me.gif":       false,
		"noext":        false,
		"archive.png.": false,
	}
	for name, want := range cases {
		if got := AllowedImage(name); got != want {
			t.Errorf("AllowedImage(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd.png":     "passwd.png",
		`C:\Users\me\my photo.jpg`: "my_photo.jpg",
		"...":                      "image",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestImageKey(t *testing.T) {
	key, err := ImageKey(3, "Me.PNG")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(key, "profile_pics/3/") || !strings.HasSuffix(key, "_Me.PNG") {
		t.Errorf("unexpected key %q", key)
	}
	if _, err = ImageKey(3, "me.exe"); err != ErrImageNotAllowed {
		t.Errorf("expected ErrImageNotAllowed, got %v", err)
	}
	if ContentType(key) != "image/png" {
		t.Errorf("unexpected content type %q", ContentType(key))
	}
}
