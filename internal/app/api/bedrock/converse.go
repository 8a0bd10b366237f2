package bedrock

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"clipscout/internal/app/api/provider"
	apperrors "clipscout/internal/app/errors"
)

// imageFormat maps a mime type to a Converse image format, defaulting to JPEG
func imageFormat(mime string) types.ImageFormat {
	switch strings.ToLower(mime) {
	case "image/png":
		return types.ImageFormatPng
	case "image/gif":
		return types.ImageFormatGif
	case "image/webp":
		return types.ImageFormatWebp
	default:
		return types.ImageFormatJpeg
	}
}

func imageBlock(mime string, data []byte) types.ContentBlock {
	return &types.ContentBlockMemberImage{Value: types.ImageBlock{
		Format: imageFormat(mime),
		Source: &types.ImageSourceMemberBytes{Value: data},
	}}
}

// buildConversation hoists system turns into the dedicated system field and
// decodes inline or data-URL images to raw bytes
func buildConversation(messages []provider.Message) ([]types.SystemContentBlock, []types.Message, error) {
	systemPrompts, rest := provider.SplitSystem(messages)

	var system []types.SystemContentBlock
	for _, prompt := range systemPrompts {
		system = append(system, &types.SystemContentBlockMemberText{Value: prompt})
	}

	out := make([]types.Message, 0, len(rest))
	for _, msg := range rest {
		var blocks []types.ContentBlock
		for _, part := range msg.Content {
			switch part.Type {
			case provider.ContentText:
				if part.Text != "" {
					blocks = append(blocks, &types.ContentBlockMemberText{Value: part.Text})
				}
			case provider.ContentImage:
				mime, data, err := part.ResolveImage()
				if err != nil {
					return nil, nil, err
				}
				blocks = append(blocks, imageBlock(mime, data))
			}
		}
		if len(blocks) == 0 {
			continue
		}

		role := types.ConversationRoleUser
		if msg.Role == provider.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		out = append(out, types.Message{Role: role, Content: blocks})
	}

	if len(out) == 0 {
		return nil, nil, apperrors.Wrap(apperrors.ErrUnsupportedInput, "conversation has no user or assistant content")
	}
	return system, out, nil
}

// outputText concatenates the text blocks of a Converse response
func outputText(out *bedrockruntime.ConverseOutput) string {
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	return sb.String()
}

func convertUsage(u *types.TokenUsage) *provider.Usage {
	if u == nil {
		return nil
	}
	return &provider.Usage{
		InputTokens:  int(aws.ToInt32(u.InputTokens)),
		OutputTokens: int(aws.ToInt32(u.OutputTokens)),
		TotalTokens:  int(aws.ToInt32(u.TotalTokens)),
	}
}
