package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/quillforge/quill/internal/config"
	"github.com/quillforge/quill/internal/models"
	"github.com/quillforge/quill/pkg/util"
)

// GenerateRequest carries everything one blog generation needs.
type GenerateRequest struct {
	Template      *models.BlogTemplate
	Keywords      []string
	Portal        string
	ScheduleID    string
	GenerateImage bool
	ImageStyle    string
}

// ContentGenerator produces a blog post from a template and seed keywords.
type ContentGenerator interface {
	GenerateBlog(ctx context.Context, req GenerateRequest) (*models.GeneratedBlog, error)
	GenerateSocialCopy(ctx context.Context, blog *models.GeneratedBlog, network string) (string, error)
}

// OpenAIGenerator implements ContentGenerator against OpenAI or any
// OpenAI-compatible API.
type OpenAIGenerator struct {
	client     *openai.Client
	model      string
	imageModel string
	logger     *zap.Logger
}

func NewOpenAIGenerator(cfg *config.GeneratorConfig, logger *zap.Logger) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIGenerator{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
		logger:     logger,
	}
}

func (g *OpenAIGenerator) GenerateBlog(ctx context.Context, req GenerateRequest) (*models.GeneratedBlog, error) {
	prompt := buildBlogPrompt(req)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a content writer for a brand portal. Write complete, publication-ready blog posts in markdown.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}

	content := resp.Choices[0].Message.Content

	blog := &models.GeneratedBlog{
		ID:          uuid.New().String(),
		ScheduleID:  req.ScheduleID,
		Portal:      req.Portal,
		Title:       req.Template.Title,
		Slug:        util.GenerateSlug(req.Template.Title),
		Content:     content,
		Status:      models.BlogStatusPublished,
		WordCount:   len(strings.Fields(content)),
		SEOKeywords: models.StringArray(req.Keywords),
	}

	if req.GenerateImage {
		url, imgErr := g.generateImage(ctx, req)
		if imgErr != nil {
			// Image generation is best-effort; the post ships without one.
			g.logger.Warn("Image generation failed",
				zap.String("portal", req.Portal), zap.Error(imgErr))
		} else {
			blog.ImageURL = url
		}
	}

	return blog, nil
}

func (g *OpenAIGenerator) generateImage(ctx context.Context, req GenerateRequest) (string, error) {
	style := req.ImageStyle
	if style == "" {
		style = models.ImageStyles[0]
	}

	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Model:  g.imageModel,
		Prompt: fmt.Sprintf("Header image for a blog post titled %q, %s style", req.Template.Title, style),
		N:      1,
		Size:   openai.CreateImageSize1024x1024,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("empty image response")
	}
	return resp.Data[0].URL, nil
}

func (g *OpenAIGenerator) GenerateSocialCopy(ctx context.Context, blog *models.GeneratedBlog, network string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("Write a short %s post announcing a new article. Match the platform's tone and length conventions.", network),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Article title: %s\n\nExcerpt:\n%s", blog.Title, excerpt(blog.Content, 600)),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("social copy generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("social copy generation failed: empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildBlogPrompt(req GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a blog post titled %q.\n", req.Template.Title)
	if req.Template.Outline != "" {
		fmt.Fprintf(&b, "Follow this outline:\n%s\n", req.Template.Outline)
	}
	if req.Template.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s.\n", req.Template.Tone)
	}
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, "Target SEO keywords: %s.\n", strings.Join(req.Keywords, ", "))
	}
	return b.String()
}

// excerpt truncates to at most max bytes without splitting a rune.
func excerpt(content string, max int) string {
	if len(content) <= max {
		return content
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
