package engine

import "testing"

func TestMapVideoMetadata(t *testing.T) {
	dto := videoMetadataDTO{
		Title:    "talk.mp4",
		Duration: 182.5,
		URL:      "https://video.example/watch?v=1",
		Formats: []videoFormatDTO{
			{FormatID: "137", Extension: "mp4", Resolution: "1920x1080", VideoCodec: "avc1", AudioCodec: "none"},
		},
	}

	got := mapVideoMetadata(dto)

	if got.Duration != 182.5 {
		t.Errorf("Duration = %v, want the fractional seconds preserved", got.Duration)
	}
	if len(got.Formats) != 1 || got.Formats[0].FormatID != "137" {
		t.Errorf("Formats = %#v", got.Formats)
	}
}
