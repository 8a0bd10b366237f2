package provider

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	apperrors "clipscout/internal/app/errors"
)

// Role is the author of a message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentType discriminates message parts
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
)

// ContentPart is one piece of a message. Image parts carry either raw bytes
// or an ImageURL, which may be a base64 data URL.
type ContentPart struct {
	Type      ContentType
	Text      string
	ImageData []byte
	MimeType  string
	ImageURL  string
}

// Message is the provider-neutral conversation turn
type Message struct {
	Role       Role
	Content    []ContentPart
	ToolCallID string
}

// TextMessage builds a single-part text message
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Content: []ContentPart{{Type: ContentText, Text: text}}}
}

// ImageMessage builds a user turn holding an image followed by a text prompt
func ImageMessage(image []byte, mimeType, prompt string) Message {
	parts := []ContentPart{{Type: ContentImage, ImageData: image, MimeType: mimeType}}
	if prompt != "" {
		parts = append(parts, ContentPart{Type: ContentText, Text: prompt})
	}
	return Message{Role: RoleUser, Content: parts}
}

// Text joins the text parts of the message
func (m Message) Text() string {
	var texts []string
	for _, part := range m.Content {
		if part.Type == ContentText && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// HasImages reports whether any part is an image
func (m Message) HasImages() bool {
	for _, part := range m.Content {
		if part.Type == ContentImage {
			return true
		}
	}
	return false
}

// SplitSystem separates system turns from the conversation.
// Backends with a dedicated system field take the joined prompts from here.
func SplitSystem(messages []Message) ([]string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			if text := msg.Text(); text != "" {
				system = append(system, text)
			}
			continue
		}
		rest = append(rest, msg)
	}
	return system, rest
}

// ResolveImage returns the mime type and raw bytes of an image part
func (p ContentPart) ResolveImage() (string, []byte, error) {
	if p.Type != ContentImage {
		return "", nil, apperrors.Wrapf(apperrors.ErrUnsupportedInput, "content part of type %q is not an image", p.Type)
	}
	if len(p.ImageData) > 0 {
		mime := p.MimeType
		if mime == "" {
			mime = DetectImageMime(p.ImageData)
		}
		return mime, p.ImageData, nil
	}
	if strings.HasPrefix(p.ImageURL, "data:") {
		return DecodeImageDataURL(p.ImageURL)
	}
	return "", nil, apperrors.Wrapf(apperrors.ErrUnsupportedInput, "image part has no inline data")
}

// URL returns the image as a URL, encoding inline bytes as a data URL
func (p ContentPart) URL() string {
	if p.ImageURL != "" {
		return p.ImageURL
	}
	mime := p.MimeType
	if mime == "" {
		mime = DetectImageMime(p.ImageData)
	}
	return EncodeImageDataURL(p.ImageData, mime)
}

// EncodeImageDataURL renders bytes as data:<mime>;base64,<payload>
func EncodeImageDataURL(data []byte, mimeType string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// DecodeImageDataURL parses a base64 data URL into its media type and bytes
func DecodeImageDataURL(url string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return "", nil, apperrors.Wrapf(apperrors.ErrUnsupportedInput, "not a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, apperrors.Wrapf(apperrors.ErrUnsupportedInput, "data URL has no payload")
	}
	mime, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, apperrors.Wrapf(apperrors.ErrUnsupportedInput, "data URL is not base64 encoded")
	}
	if mime == "" {
		mime = "image/jpeg"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, apperrors.Wrap(err, "failed to decode data URL payload")
	}
	return mime, data, nil
}

// DetectImageMime sniffs the image type, defaulting to JPEG
func DetectImageMime(data []byte) string {
	mime := http.DetectContentType(data)
	if strings.HasPrefix(mime, "image/") {
		return mime
	}
	return "image/jpeg"
}
