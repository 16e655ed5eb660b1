package model

import "time"

// Message is the metadata for one email as returned by a mail provider
// listing. Only Unread is ever changed locally.
type Message struct {
	ID            string    `json:"id"`
	ThreadID      string    `json:"thread_id"`
	From          string    `json:"from"`
	Subject       string    `json:"subject"`
	Date          time.Time `json:"date"`
	Snippet       string    `json:"snippet"`
	Unread        bool      `json:"unread"`
	HasAttachment bool      `json:"has_attachment"`
	Labels        []string  `json:"labels,omitempty"`
}

// Summary projects the message down to the fields the classifier sees.
func (m Message) Summary() MessageSummary {
	return MessageSummary{
		ID:      m.ID,
		From:    m.From,
		Subject: m.Subject,
		Snippet: m.Snippet,
		Date:    m.Date,
	}
}

// MessageSummary is the minimal projection of a Message sent to AI services.
type MessageSummary struct {
	ID      string    `json:"id"`
	From    string    `json:"from"`
	Subject string    `json:"subject"`
	Snippet string    `json:"snippet"`
	Date    time.Time `json:"date"`
}

// FullMessage is a message with its body, fetched when detail is opened.
type FullMessage struct {
	ID      string
	From    string
	To      string
	Subject string
	Date    time.Time
	Body    string
	IsHTML  bool
}
