package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/mailboard/internal/ai"
	"github.com/nhle/mailboard/internal/inbox"
	"github.com/nhle/mailboard/internal/metrics"
	"github.com/nhle/mailboard/internal/model"
	"github.com/nhle/mailboard/internal/ui/assistant"
)

const assistantTimeout = 2 * time.Minute

var errNoAssistant = errors.New("assistant is not configured")

// viewingContext is what the assistant reasons over: the selection, else
// the filtered list, else the most recent messages.
func (m *Model) viewingContext() ([]model.MessageSummary, inbox.ContextScope) {
	msgs, scope := m.session.Snapshot().ViewingContext(inbox.DefaultContextSize)
	out := make([]model.MessageSummary, len(msgs))
	for i, msg := range msgs {
		out[i] = msg.Summary()
	}
	return out, scope
}

func (m *Model) ask(msg assistant.AskMsg) tea.Cmd {
	svc := m.assistant
	if svc == nil {
		return func() tea.Msg { return assistant.ReplyMsg{Err: errNoAssistant} }
	}
	summaries, scope := m.viewingContext()
	logger := m.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), assistantTimeout)
		defer cancel()

		reply, err := svc.Chat(ctx, msg.Text, summaries, msg.History)
		metrics.RecordAssistantCall("chat", err)
		if err != nil {
			logger.Warn("assistant chat failed",
				zap.String("operation", "chat"),
				zap.String("scope", string(scope)),
				zap.Error(err),
			)
		}
		return assistant.ReplyMsg{Text: reply, Err: err}
	}
}

// startQuick runs a quick action requested outside the panel, opening the
// panel so the result is visible.
func (m *Model) startQuick(kind ai.Kind) tea.Cmd {
	var show tea.Cmd
	if !m.showAssistant {
		m.showAssistant = true
		m.resize()
		show = m.savePreferences()
	}
	return tea.Batch(show, m.chat.Start(kind), m.runQuick(kind))
}

func (m *Model) runQuick(kind ai.Kind) tea.Cmd {
	svc := m.assistant
	if svc == nil {
		return func() tea.Msg { return assistant.ResultMsg{Kind: kind, Err: errNoAssistant} }
	}
	summaries, scope := m.viewingContext()
	subjects := make(map[string]string, len(summaries))
	for _, s := range summaries {
		subjects[s.ID] = s.Subject
	}
	logger := m.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), assistantTimeout)
		defer cancel()

		res, err := svc.Run(ctx, kind, summaries)
		metrics.RecordAssistantCall(string(kind), err)
		if err != nil {
			logger.Warn("assistant action failed",
				zap.String("operation", string(kind)),
				zap.Int("batch_size", len(summaries)),
				zap.Error(err),
			)
		}
		return assistant.ResultMsg{
			Kind:     kind,
			Result:   res,
			Count:    len(summaries),
			Scope:    string(scope),
			Subjects: subjects,
			Err:      err,
		}
	}
}
