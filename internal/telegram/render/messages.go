package render

import (
	"fmt"
	"strings"

	"github.com/futig/design-agent/internal/entity"
	"github.com/futig/design-agent/internal/pkg/validator"
)

const (
	MsgHelp = `🤖 Bot commands:

/start - Start a new design session
/help - Show this help
/cancel - End the current session

How it works:
1. Choose a webpage redesign or a new webpage
2. Answer a few questions about your business and design
3. Wait while the assistant audits your page and generates a new one
4. Rate the result and leave your email so an engineer can follow up`

	MsgNoSession       = "There is no active session. Use /start to begin."
	MsgCancelConfirm   = "⚠️ Are you sure? The current session will be closed and your answers discarded."
	MsgCancelled       = "Session closed. Use /start whenever you want to begin again."
	MsgContinue        = "👍 Let's continue."
	MsgStaleButton     = "This question has already been answered."
	MsgBusy            = "⏳ I'm still working on your design. Please wait a moment."
	MsgSessionClosed   = "This session is closed. Press \"New chat\" or use /start to begin again."
	MsgNoSummary       = "There is nothing to export yet."
	MsgNoHTML          = "The webpage has not been generated yet."
	MsgProcessing      = "⏳ Processing..."
	MsgRatingHint      = "Please choose a score from 1 to 5 with the buttons below."
	MsgReferencesEmpty = "Send at least one reference first, or press \"I don't have any\"."
	MsgReferencesHint  = "Send each reference on its own line as: url - what you like about it"

	MsgUseText         = "I can only read text messages. Please type your answer."
	MsgUnknownCommand  = "❌ Unknown command. Use /start or /help."
	MsgUseButtons      = "Please use the buttons below to answer this question."

	ErrGeneric      = "❌ Something went wrong. Please try again or use /start."
	ErrTimeout      = "⌛ That took too long. Please try again."
	ErrNetworkIssue = "📡 Connection problem. Please try again in a moment."
)

// MsgReferencesAdded confirms collected reference lines.
func MsgReferencesAdded(count, max int) string {
	if count >= max {
		return fmt.Sprintf("✅ %d of %d references collected. Press \"Submit references\" to continue.", count, max)
	}
	return fmt.Sprintf("✅ %d of %d references collected. Send more or press \"Submit references\".", count, max)
}

// MsgReferencesRejected lists lines that could not be read as references.
func MsgReferencesRejected(lines []string) string {
	return fmt.Sprintf("I couldn't read these lines:\n%s\n\n%s", strings.Join(lines, "\n"), MsgReferencesHint)
}

// Message renders one transcript message for the chat.
func Message(m entity.Message) string {
	text := m.Text
	if len(m.AuditIssues) > 0 {
		var b strings.Builder
		b.WriteString(text)
		b.WriteString("\n")
		for _, issue := range m.AuditIssues {
			b.WriteString("\n• ")
			b.WriteString(issue)
		}
		text = b.String()
	}
	if m.HTMLContent != "" {
		text += "\n\n📎 The page is attached as page.html. Open it in a browser to preview."
	}
	return validator.Truncate(text, maxMessageLength)
}

// Progress renders the status line shown while a generation runs.
func Progress(p entity.Progress) string {
	lines := make([]string, 0, 2)
	if p.Message != "" {
		lines = append(lines, "⏳ "+p.Message)
	}
	if p.CapturingScreenshot && p.ScreenshotMessage != "" {
		lines = append(lines, "📸 "+p.ScreenshotMessage)
	}
	if len(lines) == 0 {
		return "⏳ Working on it..."
	}
	return strings.Join(lines, "\n")
}

// ParseReferences reads "url - description" lines. Lines that do not split are returned as rejected.
func ParseReferences(text string) ([]entity.ReferenceEntry, []string) {
	var (
		entries  []entity.ReferenceEntry
		rejected []string
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		url, desc, ok := splitReference(line)
		if !ok {
			rejected = append(rejected, line)
			continue
		}
		entries = append(entries, entity.ReferenceEntry{URL: url, Description: desc})
	}
	return entries, rejected
}

func splitReference(line string) (string, string, bool) {
	for _, sep := range []string{" - ", " — ", " – ", ": "} {
		if url, desc, found := strings.Cut(line, sep); found {
			url, desc = strings.TrimSpace(url), strings.TrimSpace(desc)
			if url != "" && desc != "" && validator.HasURLs(url) {
				return url, desc, true
			}
		}
	}
	return "", "", false
}

// Telegram rejects messages above 4096 characters.
const maxMessageLength = 4000
