package consultation

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Speaker roles emitted by the voice agent.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one finalized utterance of a voice call.
type Turn struct {
	Role string `json:"role" validate:"required"`
	Text string `json:"text"`
}

// Transcript is the ordered list of finalized turns of a call.
type Transcript []Turn

// String renders the transcript one "role: text" line per turn.
func (t Transcript) String() string {
	var builder strings.Builder
	for i, turn := range t {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(turn.Role)
		builder.WriteString(": ")
		builder.WriteString(strings.TrimSpace(turn.Text))
	}
	return builder.String()
}

// Fingerprint identifies the transcript content, used to collapse
// duplicate report requests.
func (t Transcript) Fingerprint() string {
	sum := sha256.New()
	for _, turn := range t {
		sum.Write([]byte(turn.Role))
		sum.Write([]byte{0})
		sum.Write([]byte(turn.Text))
		sum.Write([]byte{0})
	}
	return hex.EncodeToString(sum.Sum(nil))
}
