package history

import (
	"database/sql"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// playbackQuery pulls every episode with a recorded playback out of a
// Podcast Addict backup database
const playbackQuery = `
SELECT episodes.name, episodes.url, podcasts.name, episodes.playbackDate, episodes.podcast_id
FROM episodes
INNER JOIN podcasts ON episodes.podcast_id = podcasts._id
WHERE episodes.playbackDate > 0`

// ImportPodcastAddict extracts listening history from a Podcast Addict
// SQLite backup
func ImportPodcastAddict(path string) (*History, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "backup database %q is not readable", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open backup database %q", path)
	}
	defer db.Close()

	rows, err := db.Query(playbackQuery)
	if err != nil {
		return nil, errors.Wrap(err, "history query failed")
	}
	defer rows.Close()

	history := New(nil)
	for rows.Next() {
		var (
			episodeName  string
			episodeURL   sql.NullString
			podcastName  string
			playbackDate int64
			podcastID    int64
		)

		if err := rows.Scan(&episodeName, &episodeURL, &podcastName, &playbackDate, &podcastID); err != nil {
			return nil, errors.Wrap(err, "failed to scan history row")
		}

		history.Add(Item{
			EpisodeName: episodeName,
			EpisodeURL:  episodeURL.String,
			PodcastName: podcastName,
			ListenDate:  time.UnixMilli(playbackDate).UTC(),
			PodcastID:   podcastID,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "history query failed")
	}

	log.Infof("extracted %d history item(s) from %q", history.Len(), path)
	return history, nil
}
