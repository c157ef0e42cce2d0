package report

import (
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	model "github.com/zhouzirui/medvoice/backend/internal/model/consultation"
)

// Prompt variables rendered by the Go template engine.
const (
	varSpecialist  = "specialist"
	varAgentPrompt = "agentPrompt"
	varNotes       = "notes"
	varTranscript  = "transcript"
)

const systemPrompt = `You are an AI Medical Voice Agent that just finished a voice consultation with a user.
You acted as: {{.specialist}}.
Your persona instructions were: {{.agentPrompt}}

Based on the consultation details and the conversation transcript, generate a structured report with the following fields:
1. chiefComplaint: one-sentence summary of the main health concern
2. summary: a 2-3 sentence summary of the conversation, symptoms and recommendations
3. symptoms: list of symptoms mentioned by the user
4. duration: how long the user has experienced the symptoms
5. severity: exactly one of "Mild", "Moderate" or "Severe"
6. medicationsMentioned: list of any medicines mentioned
7. recommendations: list of AI suggestions (rest, see a doctor, etc.)

Return the result in this JSON format and nothing else:
{
  "chiefComplaint": "string",
  "summary": "string",
  "symptoms": ["symptom1", "symptom2"],
  "duration": "string",
  "severity": "Mild | Moderate | Severe",
  "medicationsMentioned": ["med1"],
  "recommendations": ["rec1", "rec2"]
}
Use empty lists when nothing applies. Do not add any other fields.`

const userPrompt = `Consultation notes from the user: {{.notes}}

Conversation transcript:
{{.transcript}}`

func newReportTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	)
}

func buildPromptInput(req Request) map[string]any {
	agentPrompt := strings.TrimSpace(req.Session.SelectedDoctor.AgentPrompt)
	if agentPrompt == "" {
		agentPrompt = "Be a helpful and concise medical assistant."
	}
	notes := strings.TrimSpace(req.Session.Notes)
	if notes == "" {
		notes = "(none)"
	}

	return map[string]any{
		varSpecialist:  req.Session.SelectedDoctor.Specialist,
		varAgentPrompt: agentPrompt,
		varNotes:       notes,
		varTranscript:  req.Transcript.String(),
	}
}

// hasSpeech reports whether any turn carries text.
func hasSpeech(t model.Transcript) bool {
	for _, turn := range t {
		if strings.TrimSpace(turn.Text) != "" {
			return true
		}
	}
	return false
}
