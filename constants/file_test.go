package constants

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	t.Run("strips path-unsafe characters", func(t *testing.T) {
		got := SanitizeFilename(`Gazetka: "Super" <Promocje>/|?*\`)
		for _, c := range `\/*?:"<>|` {
			if strings.ContainsRune(got, c) {
				t.Fatalf("sanitized name %q still contains %q", got, c)
			}
		}
	})

	t.Run("replaces spaces", func(t *testing.T) {
		got := SanitizeFilename("Gazetka od czwartku")
		if strings.Contains(got, " ") {
			t.Fatalf("sanitized name %q contains a space", got)
		}
		if got != "Gazetka_od_czwartku" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("caps length", func(t *testing.T) {
		got := SanitizeFilename(strings.Repeat("a", 500))
		if len(got) != MaxFilenameLength {
			t.Fatalf("got length %d, want %d", len(got), MaxFilenameLength)
		}
	})
}

func TestNormalizeExt(t *testing.T) {
	if got := NormalizeExt(".JPG"); got != "jpg" {
		t.Fatalf("got %q", got)
	}
	if !AllowedImageExt(".png") {
		t.Fatal("png should be allowed")
	}
	if AllowedImageExt(".pdf") {
		t.Fatal("pdf should not be allowed")
	}
}
