package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOPML = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="1.0">
  <head><title>Subscriptions</title></head>
  <body>
    <outline text="Group">
      <outline text="Test Cast" type="rss" xmlUrl="https://example.com/feed.xml"/>
    </outline>
    <outline text="Other Cast" type="rss" xmlUrl="https://example.com/other.xml"/>
    <outline text="No URL here"/>
  </body>
</opml>`

func TestParseOPML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.opml")
	require.NoError(t, os.WriteFile(path, []byte(sampleOPML), 0600))

	sources, err := ParseOPML(path)
	require.NoError(t, err)

	require.Len(t, sources, 2)
	assert.Equal(t, Source{Name: "Test Cast", URL: "https://example.com/feed.xml"}, sources[0])
	assert.Equal(t, Source{Name: "Other Cast", URL: "https://example.com/other.xml"}, sources[1])
}

func TestParseOPML_Missing(t *testing.T) {
	_, err := ParseOPML(filepath.Join(t.TempDir(), "nope.opml"))
	assert.Error(t, err)
}

func TestParseOPML_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.opml")
	require.NoError(t, os.WriteFile(path, []byte("<opml"), 0600))

	_, err := ParseOPML(path)
	assert.Error(t, err)
}
