package main

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"podmix/pkg/feed"
	"podmix/pkg/history"
	"podmix/pkg/model"
	"podmix/pkg/playlist"
)

type ingestCommand struct {
	app  *App
	Path string `long:"path" short:"p" default:"ingest.json" description:"file with opml/rss source lists"`
}

func (cmd *ingestCommand) Execute([]string) error {
	cfg, err := feed.LoadIngestConfig(cmd.Path)
	if err != nil {
		return err
	}

	c, err := cmd.app.openCache()
	if err != nil {
		return err
	}

	feeds := cfg.Resolve(cmd.app.ctx, feed.NewRSSImporter(cmd.app.client))
	for _, f := range feeds {
		if err := c.RegisterFeed(f); err != nil {
			return err
		}

		log.Infof("registered %q (%d episode(s))", f.Name, len(f.Items))
	}

	return c.Save()
}

type listCommand struct {
	app *App
}

func (cmd *listCommand) Execute([]string) error {
	c, err := cmd.app.openCache()
	if err != nil {
		return err
	}

	feeds, err := c.LoadFeeds()
	if err != nil {
		return err
	}

	sort.Slice(feeds, func(i, j int) bool { return feeds[i].Name < feeds[j].Name })

	for _, f := range feeds {
		cached, skipped := 0, 0
		for _, item := range f.Items {
			if c.Cached(item) {
				cached++
			}
			if c.Skipped(item) {
				skipped++
			}
		}

		fmt.Printf("%s\t%d episode(s), %d cached, %d skipped\n", f.Name, len(f.Items), cached, skipped)
	}

	return nil
}

type refreshCommand struct {
	app  *App
	Args struct {
		Feeds []string `positional-arg-name:"feed"`
	} `positional-args:"yes"`
}

func (cmd *refreshCommand) Execute([]string) error {
	c, err := cmd.app.openCache()
	if err != nil {
		return err
	}

	return c.Refresh(cmd.app.ctx, cmd.Args.Feeds)
}

type updateCommand struct {
	app    *App
	Latest bool   `long:"latest" description:"only the most recent unlistened episode of each feed"`
	Force  bool   `long:"force" description:"download episodes already marked cached or skipped"`
	Filter string `long:"filter" description:"only episodes whose title matches this regular expression"`
	Args   struct {
		Feeds []string `positional-arg-name:"feed"`
	} `positional-args:"yes"`
}

func (cmd *updateCommand) Execute([]string) error {
	var filter *regexp.Regexp
	if cmd.Filter != "" {
		var err error
		if filter, err = regexp.Compile(cmd.Filter); err != nil {
			return errors.Wrapf(err, "invalid filter %q", cmd.Filter)
		}
	}

	c, err := cmd.app.openCache()
	if err != nil {
		return err
	}

	feeds, err := selectFeeds(c, cmd.Args.Feeds)
	if err != nil {
		return err
	}

	var result *multierror.Error
	for _, f := range feeds {
		if err := c.CacheFeed(cmd.app.ctx, f, cmd.Latest, cmd.Force, filter); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

type skipCommand struct {
	app  *App
	All  bool `long:"all" description:"skip every episode of every feed"`
	Args struct {
		Feeds []string `positional-arg-name:"feed"`
	} `positional-args:"yes"`
}

func (cmd *skipCommand) Execute([]string) error {
	c, err := cmd.app.openCache()
	if err != nil {
		return err
	}

	if cmd.All {
		if err := c.SkipAll(); err != nil {
			return err
		}

		return c.Save()
	}

	if len(cmd.Args.Feeds) == 0 {
		return errors.New("nothing to skip, pass feed names or --all")
	}

	for _, name := range cmd.Args.Feeds {
		f, err := c.Feed(name)
		if err != nil {
			return err
		}

		c.SkipFeed(f)
	}

	return c.Save()
}

type cleanCommand struct {
	app *App
}

func (cmd *cleanCommand) Execute([]string) error {
	c, err := cmd.app.openCache()
	if err != nil {
		return err
	}

	removed, err := c.Clean()
	if err != nil {
		return err
	}

	log.Infof("removed %d stale catalog entries", removed)
	return nil
}

type importCommand struct {
	app          *App
	Dir          string `long:"dir" short:"d" required:"true" description:"directory with audio files to import"`
	Recursive    bool   `long:"recursive" short:"r" description:"descend into subdirectories"`
	IgnoreArtist bool   `long:"ignore-artist" description:"match files on title only"`
}

func (cmd *importCommand) Execute([]string) error {
	c, err := cmd.app.openCache()
	if err != nil {
		return err
	}

	imported, err := c.Import(cmd.app.ctx, cmd.Dir, cmd.Recursive, cmd.IgnoreArtist)
	if err != nil {
		return err
	}

	log.Infof("registered %d file(s) as cached", imported)
	return nil
}

type importHistoryCommand struct {
	app *App
	DB  string `long:"db" required:"true" description:"Podcast Addict backup database"`
}

func (cmd *importHistoryCommand) Execute([]string) error {
	imported, err := history.ImportPodcastAddict(cmd.DB)
	if err != nil {
		return err
	}

	hist, err := cmd.app.loadHistory()
	if err != nil {
		return err
	}

	added := hist.Merge(imported)
	if added == 0 {
		log.Info("no new history items")
		return nil
	}

	if err := hist.Save(cmd.app.cfg.HistoryFile); err != nil {
		return err
	}

	log.Infof("merged %d new history item(s), %d total", added, hist.Len())
	return nil
}

type playlistCommand struct {
	app          *App
	Playlist     string `long:"playlist" short:"p" default:"playlist.json" description:"playlist definition file"`
	Title        string `long:"title" short:"t" required:"true" description:"playlist title"`
	Local        bool   `long:"local" description:"download episodes and reference local copies"`
	MarkListened bool   `long:"mark-listened" description:"record the selected episodes in the listening history"`
}

func (cmd *playlistCommand) Execute([]string) error {
	cfg, err := playlist.LoadConfiguration(cmd.Playlist)
	if err != nil {
		return err
	}

	c, err := cmd.app.openCache()
	if err != nil {
		return err
	}

	feeds, err := c.LoadFeeds()
	if err != nil {
		return err
	}

	hist, err := cmd.app.loadHistory()
	if err != nil {
		return err
	}

	p, err := cfg.Generate(cmd.Title, feeds, hist, cmd.app.cfg.PlaylistDir)
	if err != nil {
		return err
	}

	var path string
	if cmd.Local {
		path, err = p.WriteLocal(cmd.app.ctx, c)
	} else {
		path, err = p.WriteStreaming()
	}
	if err != nil {
		return err
	}

	if cmd.MarkListened {
		now := time.Now().UTC()
		for _, item := range p.Items {
			hist.Add(history.Item{
				EpisodeName: item.Title,
				EpisodeURL:  item.URL,
				PodcastName: item.Author,
				ListenDate:  now,
			})
		}

		if err := hist.Save(cmd.app.cfg.HistoryFile); err != nil {
			return err
		}

		log.Infof("recorded %d episode(s) in the listening history", len(p.Items))
	}

	fmt.Println(path)
	return nil
}

// selectFeeds resolves feed names to catalogued feeds, or returns all of
// them when no names are given
func selectFeeds(c feedSource, names []string) ([]*model.Feed, error) {
	if len(names) == 0 {
		return c.LoadFeeds()
	}

	feeds := make([]*model.Feed, 0, len(names))
	for _, name := range names {
		f, err := c.Feed(name)
		if err != nil {
			return nil, err
		}

		feeds = append(feeds, f)
	}

	return feeds, nil
}

type feedSource interface {
	LoadFeeds() ([]*model.Feed, error)
	Feed(name string) (*model.Feed, error)
}
