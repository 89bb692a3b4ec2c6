package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"studygroups/internal/domain"
)

// displayZone is the campus timezone used for human-readable session times.
var displayZone = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}()

type sessionEmailData struct {
	Heading         string
	Intro           template.HTML
	Subject         string
	ProfessorName   string
	Date            string
	Time            string
	Location        string
	Status          string
	Outro           string
}

func sessionData(g domain.StudyGroup) sessionEmailData {
	start := g.StartTime.In(displayZone)
	end := g.EndTime.In(displayZone)
	return sessionEmailData{
		Subject:       g.Subject,
		ProfessorName: g.ProfessorName,
		Date:          start.Format("Monday, January 2, 2006"),
		Time:          start.Format("3:04 PM") + " – " + end.Format("3:04 PM"),
		Location:      g.Location,
	}
}

// capacityStatus renders "3 students joined (2 spots remaining)".
func capacityStatus(g domain.StudyGroup, count int64) string {
	plural := "s"
	if count == 1 {
		plural = ""
	}
	status := fmt.Sprintf("%d student%s joined", count, plural)
	if g.StudentLimit != nil {
		status += fmt.Sprintf(" (%d spots remaining)", int64(*g.StudentLimit)-count)
	}
	return status
}

func greetName(name string) string {
	if name == "" {
		return "Hi,"
	}
	return "Hi " + name + ","
}

func joinConfirmationHTML(g domain.StudyGroup, p domain.Participant, count int64) string {
	data := sessionData(g)
	data.Heading = "You're In!"
	data.Intro = template.HTML(template.HTMLEscapeString(greetName(p.Name)) +
		"</p><p>You've joined the <strong>" + template.HTMLEscapeString(g.Subject) + "</strong> study group.")
	data.Status = capacityStatus(g, count)
	data.Outro = "See you there!"
	return renderSessionEmail(data)
}

func organizerJoinedHTML(g domain.StudyGroup, p domain.Participant, count int64) string {
	data := sessionData(g)
	data.Heading = "New Student Joined!"
	data.Intro = template.HTML(template.HTMLEscapeString(greetName(g.OrganizerName)) +
		"</p><p><strong>" + template.HTMLEscapeString(p.Name) + "</strong> just joined your study group!")
	data.Status = capacityStatus(g, count)
	data.Outro = "You can manage your study groups from the dashboard."
	return renderSessionEmail(data)
}

func leaveConfirmationHTML(g domain.StudyGroup, p domain.Participant) string {
	data := sessionData(g)
	data.Heading = "You've Left the Group"
	data.Intro = template.HTML(template.HTMLEscapeString(greetName(p.Name)) +
		"</p><p>You've left the <strong>" + template.HTMLEscapeString(g.Subject) + "</strong> study group.")
	data.Outro = "Changed your mind? You can rejoin any time there's space."
	return renderSessionEmail(data)
}

func organizerLeftHTML(g domain.StudyGroup, p domain.Participant) string {
	data := sessionData(g)
	data.Heading = "A Student Left"
	data.Intro = template.HTML(template.HTMLEscapeString(greetName(g.OrganizerName)) +
		"</p><p><strong>" + template.HTMLEscapeString(p.Name) + "</strong> left your study group.")
	data.Outro = "You can manage your study groups from the dashboard."
	return renderSessionEmail(data)
}

func renderSessionEmail(data sessionEmailData) string {
	var buf bytes.Buffer
	_ = sessionEmailTemplate.Execute(&buf, data)
	return buf.String()
}

var sessionEmailTemplate = template.Must(template.New("session").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: #003366; color: white; padding: 20px; text-align: center;">
    <h1 style="margin: 0;">{{.Heading}}</h1>
  </div>
  <div style="padding: 20px; background: #f9f9f9;">
    <p>{{.Intro}}</p>
    <div style="background: white; border-radius: 8px; padding: 20px; margin: 20px 0; border-left: 4px solid #003366;">
      <h2 style="margin-top: 0; color: #003366;">{{.Subject}}</h2>
      {{if .ProfessorName}}<p><strong>Professor:</strong> {{.ProfessorName}}</p>{{end}}
      <p><strong>Date:</strong> {{.Date}}</p>
      <p><strong>Time:</strong> {{.Time}}</p>
      <p><strong>Location:</strong> {{.Location}}</p>
      {{if .Status}}<p><strong>Status:</strong> {{.Status}}</p>{{end}}
    </div>
    <p>{{.Outro}}</p>
    <p>Best,<br>CU Study Groups</p>
  </div>
  <div style="background: #eee; padding: 10px; text-align: center; font-size: 12px; color: #666;">
    Columbia University Study Groups
  </div>
</div>`))
