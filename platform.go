package jaydl

import (
	"net/url"
	"strings"
)

// Platform identifies which content platform a URL belongs to.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformSpotify   Platform = "spotify"
	PlatformGeneric   Platform = "generic"
)

func (p Platform) String() string {
	return string(p)
}

// ClassifyURL maps a URL to a Platform by hostname substring. It is total:
// anything unrecognised is PlatformGeneric, and it never performs network
// lookups, so the same string always classifies the same way.
func ClassifyURL(rawURL string) Platform {
	s := strings.ToLower(rawURL)
	switch {
	case strings.Contains(s, "youtube.com") || strings.Contains(s, "youtu.be"):
		return PlatformYouTube
	case strings.Contains(s, "tiktok.com"):
		return PlatformTikTok
	case strings.Contains(s, "instagram.com"):
		return PlatformInstagram
	case strings.Contains(s, "twitter.com") || strings.Contains(s, "x.com"):
		return PlatformTwitter
	case strings.Contains(s, "spotify.com"):
		return PlatformSpotify
	default:
		return PlatformGeneric
	}
}

// ExtractVideoID pulls the native YouTube video ID out of a URL.
//
// Recognised URL shapes, tried in order:
//
//	http(s?)://(www|m).youtube.com/watch?v={VIDEO_ID}
//	http(s?)://youtu.be/{VIDEO_ID}
//	http(s?)://(www|m).youtube.com/shorts/{VIDEO_ID}
//
// A URL matching none of these shapes (including one that fails to parse at
// all) gives ok == false; extraction never errors.
func ExtractVideoID(rawURL string) (id string, ok bool) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(parsedURL.Hostname())
	switch host {
	case "youtube.com", "www.youtube.com", "m.youtube.com":
		if parsedURL.Query().Has("v") {
			id = parsedURL.Query().Get("v")
		} else if strings.HasPrefix(parsedURL.Path, "/shorts/") {
			id = strings.Trim(strings.TrimPrefix(parsedURL.Path, "/shorts/"), "/")
			// Discard anything after the ID segment.
			if i := strings.IndexByte(id, '/'); i >= 0 {
				id = id[:i]
			}
		}
	case "youtu.be":
		id = strings.Trim(parsedURL.Path, "/")
		if i := strings.IndexByte(id, '/'); i >= 0 {
			id = id[:i]
		}
	}
	if id == "" {
		return "", false
	}
	return id, true
}
