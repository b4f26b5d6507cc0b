package release

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		want Info
	}{
		{
			"/tv/Show/Season 01/Show.S01E01.2160p.WEB-DL.H.265.DDP5.1-FLUX.mkv",
			Info{Resolution: "2160p", Codec: "hevc", Source: "webdl", Group: "FLUX"},
		},
		{
			"Alien.1979.1080p.BluRay.x264-GROUP.mkv",
			Info{Resolution: "1080p", Codec: "h264", Source: "bluray", Group: "GROUP"},
		},
		{
			"Show - S02E03 - 720p HDTV.mp4",
			Info{Resolution: "720p", Source: "hdtv"},
		},
		{
			"movie.mkv",
			Info{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.name))
		})
	}
}

func TestResolutionFromSize(t *testing.T) {
	assert.Equal(t, "2160p", ResolutionFromSize(3840, 1600))
	assert.Equal(t, "1080p", ResolutionFromSize(1920, 800))
	assert.Equal(t, "720p", ResolutionFromSize(1280, 720))
	assert.Equal(t, "480p", ResolutionFromSize(720, 480))
	assert.Equal(t, "", ResolutionFromSize(0, 0))
}

func TestNormalizeCodec(t *testing.T) {
	assert.Equal(t, "hevc", NormalizeCodec("HEVC"))
	assert.Equal(t, "h264", NormalizeCodec("avc"))
	assert.Equal(t, "av1", NormalizeCodec("av1"))
}
