package media

import (
	"path/filepath"
	"strings"
)

// DefaultExtension is used when the enclosure MIME type is absent or unknown
const DefaultExtension = "bin"

// audioExtensions maps the audio/* MIME subtype to a file extension
var audioExtensions = map[string]string{
	"aac":   "aac",
	"midi":  "midi",
	"mpeg":  "mp3",
	"mp4":   "m4a",
	"ogg":   "oga",
	"opus":  "opus",
	"wav":   "wav",
	"webm":  "weba",
	"3gpp":  "3gp",
	"3gpp2": "3g2",
	"x-m4a": "m4a",
}

// AudioExtension resolves a MIME hint like "audio/mpeg" to a file extension
func AudioExtension(mime string) string {
	kind, subtype, ok := strings.Cut(strings.TrimSpace(mime), "/")
	if !ok || kind != "audio" {
		return DefaultExtension
	}

	// Strip any parameters, e.g. "audio/ogg; codecs=opus"
	subtype, _, _ = strings.Cut(subtype, ";")

	if ext, ok := audioExtensions[strings.TrimSpace(subtype)]; ok {
		return ext
	}

	return DefaultExtension
}

// IsAudioFile reports whether the path looks like an audio file we may have
// downloaded, judged by extension alone
func IsAudioFile(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == DefaultExtension {
		return true
	}

	for _, known := range audioExtensions {
		if ext == known {
			return true
		}
	}

	return false
}
