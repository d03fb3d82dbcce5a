package usecase

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	decisiondomain "decisionlog-backend/internal/decision/domain"
	"decisionlog-backend/internal/engagement/domain"
	"decisionlog-backend/pkg/mailer"
)

var htmlLayout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html><body style="font-family: -apple-system, Helvetica, Arial, sans-serif; color: #1f2937;">
<p>Hi {{.Name}},</p>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}<p><a href="{{.Link}}" style="color: #2563eb;">{{.Action}}</a></p>
<p style="color: #6b7280; font-size: 12px;">You can change which emails you receive in your settings: {{.SettingsLink}}</p>
</body></html>`))

type emailView struct {
	Name         string
	Paragraphs   []string
	Action       string
	Link         string
	SettingsLink string
}

// Renderer turns a candidate into a concrete email.
type Renderer struct {
	baseURL string
}

// NewRenderer creates a renderer linking back to baseURL
func NewRenderer(baseURL string) *Renderer {
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/")}
}

// Render builds the message for the candidate. The profile supplies the
// recipient address and greeting.
func (r *Renderer) Render(category domain.Category, c domain.Candidate, profile *decisiondomain.Profile) (*mailer.Message, error) {
	name := strings.TrimSpace(profile.DisplayName)
	if name == "" {
		name = "there"
	}

	view := emailView{
		Name:         name,
		Link:         r.baseURL + "/dashboard",
		SettingsLink: r.baseURL + "/settings",
	}
	var subject string

	switch category {
	case domain.CategoryWelcome:
		subject = "Welcome to your decision journal"
		view.Paragraphs = []string{
			"Thanks for signing up. Log the decisions you are facing, score your options, and come back to record how things turned out.",
			"Over time you will see how well calibrated your confidence is.",
		}
		view.Action = "Log your first decision"
	case domain.CategoryOutcomeDue:
		subject = fmt.Sprintf("How did \"%s\" turn out?", c.DecisionTitle)
		view.Paragraphs = []string{
			fmt.Sprintf("You recently decided on \"%s\". When you know how it went, record the outcome so your health score stays accurate.", c.DecisionTitle),
		}
		view.Action = "Record the outcome"
		view.Link = r.decisionLink(c)
	case domain.CategoryOutcomeOverdue:
		subject = fmt.Sprintf("Still waiting on the outcome of \"%s\"", c.DecisionTitle)
		view.Paragraphs = []string{
			fmt.Sprintf("It has been over a week since you decided on \"%s\" and there is no outcome yet.", c.DecisionTitle),
			"Closing the loop is how you learn from your decisions.",
		}
		view.Action = "Record the outcome"
		view.Link = r.decisionLink(c)
	case domain.CategoryStreakSave:
		subject = fmt.Sprintf("Keep your %d-day streak alive", c.StreakLength)
		view.Paragraphs = []string{
			fmt.Sprintf("You have been active %d days in a row. Check in today to keep the streak going.", c.StreakLength),
		}
		view.Action = "Check in now"
	case domain.CategoryWeeklyReview:
		subject = "Your weekly decision review"
		view.Paragraphs = []string{
			fmt.Sprintf("You logged %d %s this week. Take a few minutes to review them and note anything you have learned.",
				c.WeekDecisions, plural(c.WeekDecisions, "decision", "decisions")),
		}
		view.Action = "Start your review"
		view.Link = r.baseURL + "/review"
	default:
		return nil, domain.ErrUnknownCategory
	}

	var html bytes.Buffer
	if err := htmlLayout.Execute(&html, view); err != nil {
		return nil, fmt.Errorf("render %s: %w", category, err)
	}

	text := fmt.Sprintf("Hi %s,\n\n%s\n\n%s: %s\n", name, strings.Join(view.Paragraphs, "\n\n"), view.Action, view.Link)

	return &mailer.Message{
		To:       profile.Email,
		ToName:   profile.DisplayName,
		Subject:  subject,
		HTMLBody: html.String(),
		TextBody: text,
		Category: string(category),
	}, nil
}

func (r *Renderer) decisionLink(c domain.Candidate) string {
	if c.DecisionID == nil {
		return r.baseURL + "/decisions"
	}
	return r.baseURL + "/decisions/" + *c.DecisionID
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
