package oto_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/breeew/otterly-api/pkg/ai/agents/oto"
)

func Test_FormatReplyPrompt(t *testing.T) {
	entry := "Today I finally went for a swim in the river."
	history := []string{"h1 newest", "h2", "h3", "h4 oldest"}

	prompt := oto.FormatReplyPrompt(entry, []string{"swim more", "read daily"}, history)

	assert.Contains(t, prompt, `"`+entry+`"`)
	assert.Contains(t, prompt, "swim more, read daily")
	assert.Contains(t, prompt, "- h1 newest\n- h2\n- h3")
	assert.NotContains(t, prompt, "h4 oldest")
	assert.Contains(t, prompt, "NEVER give medical or financial advice")
	assert.NotContains(t, prompt, `"title"`)
}

func Test_FormatTitledReplyPrompt(t *testing.T) {
	prompt := oto.FormatTitledReplyPrompt("short day", nil, nil)

	assert.Contains(t, prompt, `"short day"`)
	assert.Contains(t, prompt, `"title": a short title for the entry, 3-5 words`)
	assert.True(t, strings.HasPrefix(prompt, oto.FormatReplyPrompt("short day", nil, nil)))
}

func Test_PlaceholdersInsideEntryAreKept(t *testing.T) {
	prompt := oto.FormatReplyPrompt("my {history} and {aspirations}", []string{"a"}, []string{"b"})
	assert.Contains(t, prompt, `"my {history} and {aspirations}"`)
}

func Test_ParseTitledReply(t *testing.T) {
	reply, err := oto.ParseTitledReply(`{"title":"T","reply":"R"}`)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "T", reply.Title)
	assert.Equal(t, "R", reply.Reply)

	_, err = oto.ParseTitledReply("Hello there, I am Oto!")
	assert.Error(t, err)

	_, err = oto.ParseTitledReply(`{"title":"only title"}`)
	assert.Error(t, err)
}
