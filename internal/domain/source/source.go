// Package source defines the closed set of data-source kinds a stored
// chunk can originate from.
package source

import "fmt"

// Kind identifies where an ingested chunk came from.
type Kind string

const (
	// UserTyped is a note the user typed directly.
	UserTyped Kind = "user_typed"
	// MeetTranscript is a meeting transcript.
	MeetTranscript Kind = "meet_transcript"
	// Slack is an ingested Slack message.
	Slack Kind = "slack"
	// YTTranscript is a YouTube video transcript.
	YTTranscript Kind = "yt_transcript"
	// WebPage is scraped web page content.
	WebPage Kind = "web_page"
	// PDF is extracted PDF text.
	PDF Kind = "pdf"
	// Chat is a message from the assistant conversation history.
	Chat Kind = "chat"
)

// All returns every known kind. The dispatch registry is validated
// against this set at startup.
func All() []Kind {
	return []Kind{UserTyped, MeetTranscript, Slack, YTTranscript, WebPage, PDF, Chat}
}

// Parse validates a raw string against the known kinds.
func Parse(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("unknown data source %q", s)
	}
	return k, nil
}

// IsValid reports whether k is one of the known kinds.
func (k Kind) IsValid() bool {
	switch k {
	case UserTyped, MeetTranscript, Slack, YTTranscript, WebPage, PDF, Chat:
		return true
	}
	return false
}

// String returns the wire representation of the kind.
func (k Kind) String() string { return string(k) }
