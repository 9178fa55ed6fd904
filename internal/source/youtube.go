package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/vocabmine/internal/model"
)

const (
	defaultOEmbedEndpoint  = "https://www.youtube.com/oembed"
	defaultYouTubeDataAPI  = "https://www.googleapis.com/youtube/v3"
	youtubeWatchURLPattern = "https://www.youtube.com/watch?v=%s"
)

// YouTubeAdapter mines video titles and descriptions. oEmbed supplies title
// and channel; the Data API adds the description when a key is configured.
type YouTubeAdapter struct {
	http    *HTTPFetcher
	apiKey  string
	oembed  string
	dataAPI string
}

// NewYouTubeAdapter creates the adapter; apiKey may be empty
func NewYouTubeAdapter(fetcher *HTTPFetcher, apiKey string) *YouTubeAdapter {
	return &YouTubeAdapter{
		http:    fetcher,
		apiKey:  apiKey,
		oembed:  defaultOEmbedEndpoint,
		dataAPI: defaultYouTubeDataAPI,
	}
}

// WithEndpoints overrides the oEmbed and Data API base URLs
func (a *YouTubeAdapter) WithEndpoints(oembed, dataAPI string) *YouTubeAdapter {
	a.oembed = oembed
	a.dataAPI = dataAPI
	return a
}

type oembedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
	Type       string `json:"type"`
}

type youtubeSnippet struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ChannelTitle string `json:"channelTitle"`
	PublishedAt  string `json:"publishedAt"`
}

type youtubeVideosResponse struct {
	Items []struct {
		ID      string         `json:"id"`
		Snippet youtubeSnippet `json:"snippet"`
	} `json:"items"`
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet youtubeSnippet `json:"snippet"`
	} `json:"items"`
}

func (a *YouTubeAdapter) Name() string {
	return "youtube"
}

func (a *YouTubeAdapter) CanHandle(locator string) bool {
	host := strings.TrimPrefix(hostOf(locator), "www.")
	return host == "youtube.com" || host == "m.youtube.com" || host == "youtu.be"
}

func (a *YouTubeAdapter) Fetch(ctx context.Context, locator string) model.Document {
	videoID := VideoID(locator)
	if videoID == "" {
		return ErrorDocument(locator, fmt.Errorf("no video id in locator"))
	}
	watchURL := fmt.Sprintf(youtubeWatchURLPattern, videoID)

	var embed oembedResponse
	oembedURL := a.oembed + "?" + url.Values{"url": {watchURL}, "format": {"json"}}.Encode()
	if err := a.http.GetJSON(ctx, a.Name(), oembedURL, &embed); err != nil {
		return ErrorDocument(locator, err)
	}
	if embed.Title == "" {
		return ErrorDocument(locator, fmt.Errorf("oembed response has no title"))
	}

	title := embed.Title
	author := embed.AuthorName
	text := title + "."
	var published *time.Time

	if a.apiKey != "" {
		snippet, err := a.snippet(ctx, videoID)
		if err != nil {
			return ErrorDocument(locator, err)
		}
		if snippet.Description != "" {
			text = title + ".\n\n" + snippet.Description
		}
		if author == "" {
			author = snippet.ChannelTitle
		}
		if t, err := time.Parse(time.RFC3339, snippet.PublishedAt); err == nil {
			published = &t
		}
	}

	doc := newDocument(model.SourceYouTube, watchURL, title, text)
	doc.Author = author
	doc.PublishedAt = published
	return doc
}

// Discover searches videos; it needs a Data API key
func (a *YouTubeAdapter) Discover(ctx context.Context, topic string, max int) ([]model.SourceMetadata, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("youtube discovery requires an API key")
	}
	max = clampMax(max, 50)

	params := url.Values{
		"part":       {"snippet"},
		"type":       {"video"},
		"q":          {topic},
		"maxResults": {strconv.Itoa(max)},
		"key":        {a.apiKey},
	}
	var resp youtubeSearchResponse
	if err := a.http.GetJSON(ctx, a.Name(), a.dataAPI+"/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	results := make([]model.SourceMetadata, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		meta := model.SourceMetadata{
			URL:        fmt.Sprintf(youtubeWatchURLPattern, item.ID.VideoID),
			Title:      item.Snippet.Title,
			SourceType: model.SourceYouTube,
			Snippet:    truncateRunes(item.Snippet.Description, 200),
		}
		if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			meta.PublishedAt = &t
		}
		results = append(results, meta)
	}
	return results, nil
}

func (a *YouTubeAdapter) snippet(ctx context.Context, videoID string) (*youtubeSnippet, error) {
	params := url.Values{
		"part": {"snippet"},
		"id":   {videoID},
		"key":  {a.apiKey},
	}
	var resp youtubeVideosResponse
	if err := a.http.GetJSON(ctx, a.Name(), a.dataAPI+"/videos?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("video %s not found", videoID)
	}
	return &resp.Items[0].Snippet, nil
}

// VideoID extracts the id from watch, short, embed and youtu.be URLs.
// A bare 11-character id is returned as is.
func VideoID(locator string) string {
	if !isHTTP(locator) {
		id := strings.TrimSpace(locator)
		if len(id) == 11 && !strings.ContainsAny(id, "/?&= ") {
			return id
		}
		return ""
	}

	parsed, err := url.Parse(locator)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	path := strings.Trim(parsed.Path, "/")

	switch {
	case host == "youtu.be":
		return firstSegment(path)
	case path == "watch":
		return parsed.Query().Get("v")
	case strings.HasPrefix(path, "shorts/"), strings.HasPrefix(path, "embed/"), strings.HasPrefix(path, "live/"):
		return firstSegment(path[strings.Index(path, "/")+1:])
	}
	return ""
}

func firstSegment(path string) string {
	if idx := strings.Index(path, "/"); idx >= 0 {
		return path[:idx]
	}
	return path
}
