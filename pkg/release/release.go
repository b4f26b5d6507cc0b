// Package release extracts technical descriptors from media file names and
// normalises titles for comparison.
package release

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Resolution labels.
const (
	Resolution2160p = "2160p"
	Resolution1080p = "1080p"
	Resolution720p  = "720p"
	Resolution480p  = "480p"
)

// Info holds what a file name says about its release.
type Info struct {
	Resolution string // "2160p", "1080p", "720p", "480p" or ""
	Codec      string // "hevc", "h264", "av1", "xvid" or ""
	Source     string // "bluray", "webdl", "webrip", "hdtv", "dvd" or ""
	Group      string // release group, "" when absent
}

var (
	resolutionRe = regexp.MustCompile(`(?i)\b(2160p|4k|uhd|1080[pi]|720p|576p|480p)\b`)
	groupRe      = regexp.MustCompile(`-([A-Za-z0-9][A-Za-z0-9_.@]*?)(?:\[[^\]]*\])?$`)
	separatorRe  = regexp.MustCompile(`[\s._]+`)
)

// videoExtensions are stripped before the group is read.
var videoExtensions = map[string]bool{
	".mkv": true, ".mp4": true, ".avi": true, ".ts": true, ".m2ts": true,
	".iso": true, ".wmv": true, ".mov": true, ".strm": true,
}

// Parse reads the release descriptors from a file name or path.
func Parse(name string) Info {
	base := filepath.Base(name)
	if ext := strings.ToLower(filepath.Ext(base)); videoExtensions[ext] {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	spaced := separatorRe.ReplaceAllString(base, " ")
	lower := strings.ToLower(spaced)

	info := Info{
		Resolution: parseResolution(spaced),
		Codec:      parseCodec(lower),
		Source:     parseSource(lower),
	}
	if m := groupRe.FindStringSubmatch(base); m != nil {
		info.Group = strings.Trim(m[1], ".")
	}
	return info
}

func parseResolution(name string) string {
	m := resolutionRe.FindString(name)
	switch strings.ToLower(m) {
	case "2160p", "4k", "uhd":
		return Resolution2160p
	case "1080p", "1080i":
		return Resolution1080p
	case "720p":
		return Resolution720p
	case "576p", "480p":
		return Resolution480p
	default:
		return ""
	}
}

func parseCodec(lower string) string {
	switch {
	case containsAny(lower, "x265", "h265", "h 265", "hevc"):
		return "hevc"
	case containsAny(lower, "x264", "h264", "h 264", "avc"):
		return "h264"
	case containsAny(lower, "av1"):
		return "av1"
	case containsAny(lower, "xvid", "divx"):
		return "xvid"
	default:
		return ""
	}
}

func parseSource(lower string) string {
	switch {
	case containsAny(lower, "bluray", "blu ray", "bdrip", "brrip", "remux"):
		return "bluray"
	case containsAny(lower, "web-dl", "web dl", "webdl"):
		return "webdl"
	case containsAny(lower, "webrip"):
		return "webrip"
	case containsAny(lower, "hdtv"):
		return "hdtv"
	case containsAny(lower, "dvdrip", "dvd"):
		return "dvd"
	default:
		return ""
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ResolutionFromSize maps a video stream's frame size to a resolution label.
// Width is consulted so letterboxed encodes keep their nominal label.
func ResolutionFromSize(width, height int) string {
	switch {
	case width >= 3200 || height >= 1800:
		return Resolution2160p
	case width >= 1700 || height >= 1000:
		return Resolution1080p
	case width >= 1100 || height >= 700:
		return Resolution720p
	case width > 0 || height > 0:
		return Resolution480p
	default:
		return ""
	}
}

// NormalizeCodec maps a media server codec name onto the labels Parse uses.
func NormalizeCodec(codec string) string {
	switch c := strings.ToLower(strings.TrimSpace(codec)); c {
	case "hevc", "h265", "x265":
		return "hevc"
	case "h264", "avc", "x264":
		return "h264"
	default:
		return c
	}
}
