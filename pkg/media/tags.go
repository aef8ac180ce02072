package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const execTimeout = 5 * time.Minute

// Tags carries the embedded metadata fields we care about
type Tags struct {
	Title  string
	Artist string
	Album  string
}

type ffprobeOutput struct {
	Format struct {
		Tags map[string]string `json:"tags"`
	} `json:"format"`
}

// ReadTags extracts embedded metadata from an audio file using ffprobe
func ReadTags(ctx context.Context, path string) (*Tags, error) {
	ctx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path)

	output, err := cmd.Output()
	if err != nil {
		return nil, errors.Wrapf(err, "ffprobe failed for %q", path)
	}

	probe := ffprobeOutput{}
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, errors.Wrapf(err, "failed to parse ffprobe output for %q", path)
	}

	tags := &Tags{}
	for key, value := range probe.Format.Tags {
		switch strings.ToLower(key) {
		case "title":
			tags.Title = value
		case "artist":
			tags.Artist = value
		case "album":
			tags.Album = value
		}
	}

	return tags, nil
}

// WriteTags re-muxes the file in place with updated metadata, leaving the
// streams untouched. The original file is only replaced once ffmpeg succeeds.
func WriteTags(ctx context.Context, path string, tags Tags) error {
	ctx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	tmp := fmt.Sprintf("%s.tagged%s", strings.TrimSuffix(path, filepath.Ext(path)), filepath.Ext(path))

	args := []string{"-y", "-i", path, "-codec", "copy"}
	for key, value := range map[string]string{
		"title":  tags.Title,
		"artist": tags.Artist,
		"album":  tags.Album,
	} {
		if value != "" {
			args = append(args, "-metadata", fmt.Sprintf("%s=%s", key, value))
		}
	}
	args = append(args, tmp)

	log.Debugf("running ffmpeg %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "ffmpeg failed for %q: %s", path, output)
	}

	return errors.Wrapf(os.Rename(tmp, path), "failed to replace %q", path)
}
