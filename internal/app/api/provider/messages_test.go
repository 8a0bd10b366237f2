package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "clipscout/internal/app/errors"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestDataURLRoundTrip(t *testing.T) {
	url := EncodeImageDataURL([]byte("jpeg-bytes"), "image/jpeg")
	assert.Equal(t, "data:image/jpeg;base64,anBlZy1ieXRlcw==", url)

	mime, data, err := DecodeImageDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, []byte("jpeg-bytes"), data)
}

func TestDecodeImageDataURLErrors(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"remote url", "https://example.com/cat.png"},
		{"no payload", "data:image/png;base64"},
		{"not base64", "data:image/png,rawdata"},
		{"bad payload", "data:image/png;base64,%%%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeImageDataURL(tt.url)
			assert.Error(t, err)
		})
	}
}

func TestDetectImageMime(t *testing.T) {
	assert.Equal(t, "image/png", DetectImageMime(pngHeader))
	assert.Equal(t, "image/jpeg", DetectImageMime([]byte("plain text")))
}

func TestSplitSystem(t *testing.T) {
	messages := []Message{
		TextMessage(RoleSystem, "be brief"),
		TextMessage(RoleUser, "hello"),
		TextMessage(RoleSystem, "answer in english"),
		TextMessage(RoleAssistant, "hi"),
	}

	system, rest := SplitSystem(messages)
	assert.Equal(t, []string{"be brief", "answer in english"}, system)
	require.Len(t, rest, 2)
	assert.Equal(t, RoleUser, rest[0].Role)
	assert.Equal(t, RoleAssistant, rest[1].Role)
}

func TestResolveImage(t *testing.T) {
	inline := ContentPart{Type: ContentImage, ImageData: pngHeader}
	mime, data, err := inline.ResolveImage()
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, pngHeader, data)

	fromURL := ContentPart{Type: ContentImage, ImageURL: EncodeImageDataURL([]byte("x"), "image/webp")}
	mime, data, err = fromURL.ResolveImage()
	require.NoError(t, err)
	assert.Equal(t, "image/webp", mime)
	assert.Equal(t, []byte("x"), data)

	_, _, err = ContentPart{Type: ContentImage, ImageURL: "https://example.com/a.png"}.ResolveImage()
	assert.True(t, errors.Is(err, apperrors.ErrUnsupportedInput))

	_, _, err = ContentPart{Type: ContentText, Text: "x"}.ResolveImage()
	assert.True(t, errors.Is(err, apperrors.ErrUnsupportedInput))
}

func TestMessageHelpers(t *testing.T) {
	msg := ImageMessage([]byte("img"), "image/jpeg", "what is this")
	assert.True(t, msg.HasImages())
	assert.Equal(t, "what is this", msg.Text())
	assert.Equal(t, "data:image/jpeg;base64,aW1n", msg.Content[0].URL())

	assert.False(t, TextMessage(RoleUser, "hi").HasImages())
}

func TestChatOptionsWithDefaults(t *testing.T) {
	opts := ChatOptions{Temperature: 0.2}.WithDefaults("model-a", 4096, 0.7, 0.9)
	assert.Equal(t, "model-a", opts.Model)
	assert.Equal(t, 4096, opts.MaxTokens)
	assert.Equal(t, 0.2, opts.Temperature)
	assert.Equal(t, 0.9, opts.TopP)
}
