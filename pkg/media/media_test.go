package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAudioExtension(t *testing.T) {
	assert.Equal(t, "mp3", AudioExtension("audio/mpeg"))
	assert.Equal(t, "m4a", AudioExtension("audio/mp4"))
	assert.Equal(t, "oga", AudioExtension("audio/ogg"))
	assert.Equal(t, "oga", AudioExtension("audio/ogg; codecs=opus"))
	assert.Equal(t, "opus", AudioExtension("audio/opus"))

	assert.Equal(t, DefaultExtension, AudioExtension(""))
	assert.Equal(t, DefaultExtension, AudioExtension("video/mp4"))
	assert.Equal(t, DefaultExtension, AudioExtension("audio/strange"))
	assert.Equal(t, DefaultExtension, AudioExtension("mpeg"))
}

func TestIsAudioFile(t *testing.T) {
	assert.True(t, IsAudioFile("/x/EpisodeOne.mp3"))
	assert.True(t, IsAudioFile("EpisodeOne.M4A"))
	assert.True(t, IsAudioFile("blob.bin"))
	assert.False(t, IsAudioFile("feed.json"))
	assert.False(t, IsAudioFile("cover.jpg"))
}

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "EpisodeOne", SafeFileName("Episode One"))
	assert.Equal(t, "WhatsNew12", SafeFileName("What's New? #1/2"))
	assert.Equal(t, "plain", SafeFileName("plain"))
	assert.Equal(t, "", SafeFileName(" &/\\#,+()$~%.'\":*?<>{}|"))
}
