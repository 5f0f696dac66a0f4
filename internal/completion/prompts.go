package completion

import (
	"fmt"
	"strings"
)

// Prompt is one chat request: a system message followed by user turns.
type Prompt struct {
	System string
	Users  []string
}

// FeedbackPrompt asks for a written comment on the pupil's text, with the
// retrieved lecture documents as context.
func FeedbackPrompt(documents []string, lecture, pupilText string) Prompt {
	return Prompt{
		System: fmt.Sprintf("You are a teacher assistant. You have access to the following documents to help evaluate the pupil's text: %s. Ensure the pupil's text matches the teacher's lecture.",
			strings.Join(documents, "\n")),
		Users: []string{
			fmt.Sprintf("I am a teacher and here is information about the lecture and subject: %s.", lecture),
			fmt.Sprintf("Here is the pupil's text: %s.", pupilText),
		},
	}
}

// ScorePrompt asks for a bare numeric mark out of 10.
func ScorePrompt(lecture, pupilText string) Prompt {
	return Prompt{
		System: "You are getting text from video where people sit in lesson. You are teacher assistant and you need to return number mark. Its important that pupils text must match to the teachers lecture. Return only mark number where 10 is max.",
		Users: []string{
			fmt.Sprintf("I am a teacher and here is information about lecture and subject: %s.", lecture),
			fmt.Sprintf("Here is pupils text: %s.", pupilText),
		},
	}
}
