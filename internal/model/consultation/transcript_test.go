package consultation

import "testing"

func TestTranscriptString(t *testing.T) {
	tr := Transcript{
		{Role: RoleAssistant, Text: "Hello, what brings you in?"},
		{Role: RoleUser, Text: " I have a headache "},
	}
	want := "assistant: Hello, what brings you in?\nuser: I have a headache"
	if got := tr.String(); got != want {
		t.Fatalf("unexpected rendering:\n%s", got)
	}
}

func TestTranscriptFingerprint(t *testing.T) {
	a := Transcript{{Role: RoleUser, Text: "ab"}, {Role: RoleUser, Text: "c"}}
	b := Transcript{{Role: RoleUser, Text: "a"}, {Role: RoleUser, Text: "bc"}}
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("turn boundaries must change the fingerprint")
	}
	if a.Fingerprint() != append(Transcript(nil), a...).Fingerprint() {
		t.Fatal("equal transcripts must share a fingerprint")
	}
}
