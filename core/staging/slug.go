package staging

import (
	"regexp"
	"strings"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lower-cases and trims s, then replaces every run of characters
// outside [a-z0-9] with a single underscore. An empty result becomes "untitled".
func Slug(s string) string {
	slug := nonSlug.ReplaceAllString(strings.TrimSpace(strings.ToLower(s)), "_")
	if slug == "" {
		return "untitled"
	}
	return slug
}

// ArtworkFilename composes the storage name of a release's cover.
func ArtworkFilename(releaseTitle, contentType string) string {
	ext, ok := artworkTypes[contentType]
	if !ok {
		ext = "img"
	}
	return Slug(releaseTitle) + "_cover." + ext
}

// TrackFilename composes the storage name of a track's audio.
func TrackFilename(trackTitle string) string {
	return Slug(trackTitle) + ".wav"
}
