package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"gopkg.in/gomail.v2"

	"github.com/newspilot/newspilot/internal/config"
	"github.com/newspilot/newspilot/internal/models"
)

// Service delivers digests and alerts via the configured channels
type Service struct {
	config *config.Config
	client *resty.Client

	// postWebhook is swappable so tests can point Slack delivery at a
	// local server.
	postWebhook func(url string, msg *slack.WebhookMessage) error
}

// Ensure Service implements Notifier
var _ Notifier = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message card
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	ActivityText  string      `json:"activityText,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config:      cfg,
		client:      resty.New().SetTimeout(30 * time.Second),
		postWebhook: slack.PostWebhook,
	}
}

// SendDigest sends a run digest to every configured channel. Channels fail
// independently; one broken webhook does not stop the others.
func (s *Service) SendDigest(digest *models.Digest) error {
	var errors []string

	if s.config.SlackWebhookURL != "" {
		if err := s.sendToSlack(digest); err != nil {
			logrus.Errorf("Failed to send Slack digest: %v", err)
			errors = append(errors, fmt.Sprintf("Slack: %v", err))
		} else {
			logrus.Info("Successfully sent digest to Slack")
		}
	}

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(digest); err != nil {
			logrus.Errorf("Failed to send Teams digest: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent digest to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(digest); err != nil {
			logrus.Errorf("Failed to send email digest: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent digest via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// SendAlert pushes a short operator alert to the chat channels.
func (s *Service) SendAlert(subject, message string) error {
	var errors []string

	if s.config.SlackWebhookURL != "" {
		msg := &slack.WebhookMessage{
			Text: fmt.Sprintf("*%s*\n%s", subject, message),
		}
		if err := s.postWebhook(s.config.SlackWebhookURL, msg); err != nil {
			errors = append(errors, fmt.Sprintf("Slack: %v", err))
		}
	}

	if s.config.TeamsWebhookURL != "" {
		card := &TeamsMessage{
			Type:    "MessageCard",
			Context: "https://schema.org/extensions",
			Title:   subject,
			Text:    message,
		}
		if err := s.postTeamsCard(card); err != nil {
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		}
	}

	if s.config.SlackWebhookURL == "" && s.config.TeamsWebhookURL == "" {
		logrus.Infof("Alert (no chat channel configured): %s - %s", subject, message)
		return nil
	}

	if len(errors) > 0 {
		return fmt.Errorf("alert errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToSlack(digest *models.Digest) error {
	fields := []slack.AttachmentField{
		{Title: "Curated", Value: fmt.Sprintf("%d", digest.ArticlesCurated), Short: true},
		{Title: "Scored", Value: fmt.Sprintf("%d", digest.ArticlesScored), Short: true},
		{Title: "Posted", Value: fmt.Sprintf("%d", digest.ArticlesPosted), Short: true},
		{Title: "Average Score", Value: fmt.Sprintf("%.2f", digest.AverageScore), Short: true},
	}

	for platform, count := range digest.PostedByPlatform {
		fields = append(fields, slack.AttachmentField{
			Title: fmt.Sprintf("Posted to %s", platform),
			Value: fmt.Sprintf("%d", count),
			Short: true,
		})
	}

	color := "good"
	if len(digest.Failures) > 0 {
		color = "danger"
	}

	attachment := slack.Attachment{
		Color:  color,
		Title:  fmt.Sprintf("News digest - %s", digest.Period),
		Text:   s.topArticlesText(digest),
		Fields: fields,
		Footer: fmt.Sprintf("Generated %s", digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")),
	}

	msg := &slack.WebhookMessage{
		Text:        fmt.Sprintf("News digest for the %s: %d curated, %d posted", digest.Period, digest.ArticlesCurated, digest.ArticlesPosted),
		Attachments: []slack.Attachment{attachment},
	}

	if err := s.postWebhook(s.config.SlackWebhookURL, msg); err != nil {
		return fmt.Errorf("failed to send Slack message: %w", err)
	}

	return nil
}

func (s *Service) sendToTeams(digest *models.Digest) error {
	return s.postTeamsCard(s.buildTeamsMessage(digest))
}

func (s *Service) postTeamsCard(message *TeamsMessage) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildTeamsMessage(digest *models.Digest) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("News digest - %s", digest.Period),
		Text:    fmt.Sprintf("Curated %d articles, posted %d", digest.ArticlesCurated, digest.ArticlesPosted),
	}

	facts := []TeamsFact{
		{Name: "Curated", Value: fmt.Sprintf("%d", digest.ArticlesCurated)},
		{Name: "Scored", Value: fmt.Sprintf("%d", digest.ArticlesScored)},
		{Name: "Posted", Value: fmt.Sprintf("%d", digest.ArticlesPosted)},
		{Name: "Average Score", Value: fmt.Sprintf("%.2f", digest.AverageScore)},
		{Name: "Generated", Value: digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	}

	for platform, count := range digest.PostedByPlatform {
		facts = append(facts, TeamsFact{
			Name:  fmt.Sprintf("Posted to %s", platform),
			Value: fmt.Sprintf("%d", count),
		})
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if len(digest.TopArticles) > 0 {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Top Articles",
			ActivityText:  s.topArticlesText(digest),
			Markdown:      true,
		})
	}

	if len(digest.Failures) > 0 {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Failures",
			ActivityText:  strings.Join(digest.Failures, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) topArticlesText(digest *models.Digest) string {
	var lines []string
	limit := 5
	if len(digest.TopArticles) < limit {
		limit = len(digest.TopArticles)
	}

	for i := 0; i < limit; i++ {
		article := digest.TopArticles[i]
		lines = append(lines, fmt.Sprintf("**[%s](%s)** - %s (%s)",
			article.Title, article.URL, article.Source, formatScore(article.Score)))
	}

	return strings.Join(lines, "\n\n")
}

func formatScore(score *float64) string {
	if score == nil {
		return "unscored"
	}
	return fmt.Sprintf("%.2f", *score)
}

func (s *Service) sendEmail(digest *models.Digest) error {
	subject := fmt.Sprintf("News digest - %s (%d posted)", digest.Period, digest.ArticlesPosted)

	htmlBody, err := s.buildEmailHTML(digest)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	textBody := s.buildEmailText(digest)

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (s *Service) buildEmailHTML(digest *models.Digest) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>News Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0078d4; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .article { border-left: 4px solid #0078d4; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .article-title { font-weight: bold; margin-bottom: 5px; }
        .article-meta { color: #666; font-size: 0.9em; }
        .failure { color: #d13438; }
    </style>
</head>
<body>
    <div class="header">
        <h1>News Digest</h1>
        <p>{{.Period}} finished on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Articles Curated:</strong> {{.ArticlesCurated}}</p>
        <p><strong>Articles Scored:</strong> {{.ArticlesScored}}</p>
        <p><strong>Articles Posted:</strong> {{.ArticlesPosted}}</p>
        <p><strong>Average Score:</strong> {{printf "%.2f" .AverageScore}}</p>
    </div>

    {{if .TopArticles}}
    <h2>Top Articles</h2>
    {{range $index, $article := .TopArticles}}
        {{if lt $index 10}}
        <div class="article">
            <div class="article-title">
                <a href="{{$article.URL}}" target="_blank">{{$article.Title}}</a>
            </div>
            <div class="article-meta">
                {{$article.Source}} | Score: {{$article.Score | score}}
            </div>
            {{if $article.Summary}}
            <p>{{$article.Summary | truncate 200}}</p>
            {{end}}
        </div>
        {{end}}
    {{end}}
    {{end}}

    {{if .Failures}}
    <h2 class="failure">Failures</h2>
    <ul>
        {{range .Failures}}<li class="failure">{{.}}</li>{{end}}
    </ul>
    {{end}}

    <hr>
    <p><small>This digest was generated automatically by NewsPilot.</small></p>
</body>
</html>
`

	t := template.New("email").Funcs(template.FuncMap{
		"score": formatScore,
		"truncate": func(length int, s string) string {
			if len(s) <= length {
				return s
			}
			return s[:length] + "..."
		},
	})

	t, err := t.Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, digest); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildEmailText(digest *models.Digest) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("News digest - %s\n", digest.Period))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Articles Curated: %d\n", digest.ArticlesCurated))
	text.WriteString(fmt.Sprintf("Articles Scored: %d\n", digest.ArticlesScored))
	text.WriteString(fmt.Sprintf("Articles Posted: %d\n", digest.ArticlesPosted))
	text.WriteString(fmt.Sprintf("Average Score: %.2f\n", digest.AverageScore))

	for platform, count := range digest.PostedByPlatform {
		text.WriteString(fmt.Sprintf("Posted to %s: %d\n", platform, count))
	}

	if len(digest.TopArticles) > 0 {
		text.WriteString("\nTOP ARTICLES\n")
		text.WriteString("============\n")

		limit := 10
		if len(digest.TopArticles) < limit {
			limit = len(digest.TopArticles)
		}

		for i := 0; i < limit; i++ {
			article := digest.TopArticles[i]
			text.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, article.Title))
			text.WriteString(fmt.Sprintf("   Source: %s | Score: %s\n", article.Source, formatScore(article.Score)))
			text.WriteString(fmt.Sprintf("   URL: %s\n", article.URL))
		}
	}

	if len(digest.Failures) > 0 {
		text.WriteString("\nFAILURES\n")
		text.WriteString("========\n")
		for _, failure := range digest.Failures {
			text.WriteString(fmt.Sprintf("- %s\n", failure))
		}
	}

	text.WriteString("\n---\nThis digest was generated automatically by NewsPilot.\n")

	return text.String()
}
