package doctor

import "strings"

// Gender values used to pick the voice assistant.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Doctor describes an AI specialist persona. It is embedded verbatim into a
// consultation when the user starts one.
type Doctor struct {
	ID                   int    `json:"id" validate:"required"`
	Specialist           string `json:"specialist" validate:"required"`
	Description          string `json:"description"`
	Image                string `json:"image"`
	AgentPrompt          string `json:"agentPrompt"`
	VoiceID              string `json:"voiceId,omitempty"`
	SubscriptionRequired bool   `json:"subscriptionRequired"`
	Gender               string `json:"gender" validate:"required,oneof=male female"`
}

// IsMale reports whether the persona speaks with a male voice.
func (d Doctor) IsMale() bool {
	return strings.EqualFold(strings.TrimSpace(d.Gender), GenderMale)
}

// Seed provides the built-in specialist catalog.
func Seed() []Doctor {
	return []Doctor{
		{
			ID:                   1,
			Specialist:           "General Physician",
			Description:          "Helps with everyday health concerns and common symptoms.",
			Image:                "/doctor1.png",
			AgentPrompt:          "You are a friendly General Physician AI. Greet the user and quickly ask what symptoms they're experiencing. Keep responses short and helpful.",
			VoiceID:              "will",
			SubscriptionRequired: false,
			Gender:               GenderFemale,
		},
		{
			ID:                   2,
			Specialist:           "Pediatrician",
			Description:          "Expert in children's health, from babies to teens.",
			Image:                "/doctor2.png",
			AgentPrompt:          "You are a kind Pediatrician AI. Ask brief questions about the child's health and share quick, safe suggestions.",
			VoiceID:              "chris",
			SubscriptionRequired: true,
			Gender:               GenderMale,
		},
		{
			ID:                   3,
			Specialist:           "Dermatologist",
			Description:          "Handles skin issues like rashes, acne, or infections.",
			Image:                "/doctor3.png",
			AgentPrompt:          "You are a knowledgeable Dermatologist AI. Ask short questions about the skin issue and give simple, clear advice.",
			VoiceID:              "sarge",
			SubscriptionRequired: true,
			Gender:               GenderFemale,
		},
		{
			ID:                   4,
			Specialist:           "Psychologist",
			Description:          "Supports mental health and emotional well-being.",
			Image:                "/doctor4.png",
			AgentPrompt:          "You are a caring Psychologist AI. Ask how the user is feeling emotionally and give short, supportive tips.",
			VoiceID:              "susan",
			SubscriptionRequired: true,
			Gender:               GenderMale,
		},
		{
			ID:                   5,
			Specialist:           "Nutritionist",
			Description:          "Provides advice on healthy eating and weight management.",
			Image:                "/doctor5.png",
			AgentPrompt:          "You are a motivating Nutritionist AI. Ask about current diet or goals and suggest quick, healthy tips.",
			VoiceID:              "eileen",
			SubscriptionRequired: true,
			Gender:               GenderFemale,
		},
		{
			ID:                   6,
			Specialist:           "Cardiologist",
			Description:          "Focuses on heart health and blood pressure issues.",
			Image:                "/doctor6.png",
			AgentPrompt:          "You are a calm Cardiologist AI. Ask about heart symptoms and offer brief, helpful advice.",
			VoiceID:              "charlotte",
			SubscriptionRequired: true,
			Gender:               GenderMale,
		},
		{
			ID:                   7,
			Specialist:           "ENT Specialist",
			Description:          "Treats ear, nose, and throat-related problems.",
			Image:                "/doctor7.png",
			AgentPrompt:          "You are a friendly ENT AI. Ask quickly about ENT symptoms and give simple, clear answers.",
			VoiceID:              "ayla",
			SubscriptionRequired: true,
			Gender:               GenderFemale,
		},
		{
			ID:                   8,
			Specialist:           "Orthopedic",
			Description:          "Helps with bone, joint, and muscle pain.",
			Image:                "/doctor8.png",
			AgentPrompt:          "You are an understanding Orthopedic AI. Ask where the pain is and give short, supportive advice.",
			VoiceID:              "aaliyah",
			SubscriptionRequired: true,
			Gender:               GenderMale,
		},
		{
			ID:                   9,
			Specialist:           "Gynecologist",
			Description:          "Cares for women's reproductive and hormonal health.",
			Image:                "/doctor9.png",
			AgentPrompt:          "You are a respectful Gynecologist AI. Ask brief, gentle questions and keep answers short and reassuring.",
			VoiceID:              "hudson",
			SubscriptionRequired: true,
			Gender:               GenderFemale,
		},
		{
			ID:                   10,
			Specialist:           "Dentist",
			Description:          "Handles oral hygiene and dental problems.",
			Image:                "/doctor10.png",
			AgentPrompt:          "You are a cheerful Dentist AI. Ask about the dental issue and give quick, calming suggestions.",
			VoiceID:              "atlas",
			SubscriptionRequired: true,
			Gender:               GenderMale,
		},
	}
}
