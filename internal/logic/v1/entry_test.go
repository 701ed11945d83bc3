package v1_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	v1 "github.com/breeew/otterly-api/internal/logic/v1"
	"github.com/breeew/otterly-api/pkg/i18n"
	"github.com/breeew/otterly-api/pkg/security"
)

const titledReply = `{"title": "A Calm Morning", "reply": "That sounds lovely. Keep noticing these moments."}`

func Test_SubmitEntry(t *testing.T) {
	f := newFixture(t, &fakeDriver{text: titledReply})
	ctx := f.userCtx(t)
	f.onboard(t, ctx, "sleep better", "read more")

	res, err := v1.NewEntryLogic(ctx, f.core).SubmitEntry("I woke up early and watched the sunrise.")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "A Calm Morning", res.Title)
	assert.Equal(t, "That sounds lovely. Keep noticing these moments.", res.Reply)
	assert.Len(t, res.Entries, 1)
	assert.Equal(t, res.EntryID, res.Entries[0].ID)
	assert.Equal(t, "A Calm Morning", res.Entries[0].Title)
	assert.Equal(t, res.Reply, res.Entries[0].OtoReply)

	assert.EqualValues(t, 1, f.driver.generateCalls)
	assert.EqualValues(t, 1, f.entries.creates)
	assert.EqualValues(t, 0, f.entries.updates)

	prompt := f.driver.lastPrompt()
	assert.Contains(t, prompt, "sleep better, read more")
	assert.Contains(t, prompt, "I woke up early and watched the sunrise.")
	assert.Contains(t, prompt, `"title"`)
}

func Test_SubmitEntryRejected(t *testing.T) {
	f := newFixture(t, &fakeDriver{text: titledReply, stream: helloStream})
	ctx := f.userCtx(t)

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := v1.NewEntryLogic(ctx, f.core).SubmitEntry(content)
		assertError(t, err, http.StatusBadRequest, i18n.ERROR_ENTRY_EMPTY)

		_, err = v1.NewEntryLogic(ctx, f.core).SubmitEntryStream(content, func(string) error { return nil })
		assertError(t, err, http.StatusBadRequest, i18n.ERROR_ENTRY_EMPTY)
	}

	anonymous := v1.WithTokenClaim(context.Background(), security.TokenClaims{})
	_, err := v1.NewEntryLogic(anonymous, f.core).SubmitEntry("hello")
	assertError(t, err, http.StatusUnauthorized, i18n.ERROR_UNAUTHORIZED)
	_, err = v1.NewEntryLogic(context.Background(), f.core).SubmitEntryStream("hello", func(string) error { return nil })
	assertError(t, err, http.StatusUnauthorized, i18n.ERROR_UNAUTHORIZED)

	assert.EqualValues(t, 0, f.driver.calls())
	assert.EqualValues(t, 0, f.entries.creates)
}

func Test_SubmitEntryReplyFailure(t *testing.T) {
	for name, driver := range map[string]*fakeDriver{
		"upstream":  {err: fmt.Errorf("upstream returned 500")},
		"malformed": {text: "Sure! Here is your reply: hello"},
		"empty":     {text: `{"title": "x", "reply": ""}`},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, driver)
			ctx := f.userCtx(t)

			_, err := v1.NewEntryLogic(ctx, f.core).SubmitEntry("a hard day")
			assertError(t, err, http.StatusInternalServerError, i18n.ERROR_OTO_TIRED)

			assert.EqualValues(t, 1, driver.generateCalls)
			assert.EqualValues(t, 0, f.entries.creates)

			list, err := v1.NewEntryLogic(ctx, f.core).List(0, 0)
			assert.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func Test_HistoryIsNewestThree(t *testing.T) {
	f := newFixture(t, &fakeDriver{text: titledReply})
	ctx := f.userCtx(t)

	logic := v1.NewEntryLogic(ctx, f.core)
	for i := 1; i <= 4; i++ {
		if _, err := logic.SubmitEntry(fmt.Sprintf("entry number %d", i)); err != nil {
			t.Fatal(err)
		}
	}
	res, err := logic.SubmitEntry("entry number 5")
	if err != nil {
		t.Fatal(err)
	}
	assert.Len(t, res.Entries, 5)
	assert.Equal(t, "entry number 5", res.Entries[0].Content)

	prompt := f.driver.lastPrompt()
	assert.Contains(t, prompt, "entry number 4\n- entry number 3\n- entry number 2")
	assert.NotContains(t, prompt, "entry number 1")
}

func Test_SubmitEntryStream(t *testing.T) {
	driver := &fakeDriver{stream: helloStream}
	f := newFixture(t, driver)
	ctx := f.userCtx(t)

	// the entry must exist, without a reply, before the model is asked
	driver.onStream = func() {
		assert.EqualValues(t, 1, atomic.LoadInt32(&f.entries.creates))
		list, _ := v1.NewEntryLogic(ctx, f.core).List(0, 0)
		if assert.Len(t, list, 1) {
			assert.Empty(t, list[0].OtoReply)
		}
	}

	var chunks []string
	res, err := v1.NewEntryLogic(ctx, f.core).SubmitEntryStream("I finished my first 5k run!", func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, []string{"Hello", " world"}, chunks)
	assert.Equal(t, "Hello world", res.Reply)
	assert.EqualValues(t, 1, driver.streamCalls)
	assert.EqualValues(t, 1, f.entries.creates)
	assert.EqualValues(t, 1, f.entries.updates)

	if assert.Len(t, res.Entries, 1) {
		assert.Equal(t, res.EntryID, res.Entries[0].ID)
		assert.Equal(t, "Hello world", res.Entries[0].OtoReply)
		assert.Equal(t, "Untitled Entry", res.Entries[0].DisplayTitle())
	}
	assert.NotContains(t, driver.lastPrompt(), `"title"`)
}

func Test_SubmitEntryStreamSkipsBadFrames(t *testing.T) {
	driver := &fakeDriver{stream: "data: {\"response\":\"Hi\"}\n\ndata: {not json}\n\ndata: {\"response\":\" there\"}\n\ndata: [DONE]\n\n"}
	f := newFixture(t, driver)
	ctx := f.userCtx(t)

	res, err := v1.NewEntryLogic(ctx, f.core).SubmitEntryStream("hello", func(string) error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "Hi there", res.Reply)
}

func Test_SubmitEntryStreamEmptyReply(t *testing.T) {
	driver := &fakeDriver{stream: "data: [DONE]\n\n"}
	f := newFixture(t, driver)
	ctx := f.userCtx(t)

	res, err := v1.NewEntryLogic(ctx, f.core).SubmitEntryStream("quiet day", func(string) error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	assert.Empty(t, res.Reply)
	assert.EqualValues(t, 1, f.entries.creates)
	assert.EqualValues(t, 0, f.entries.updates)
	if assert.Len(t, res.Entries, 1) {
		assert.Empty(t, res.Entries[0].OtoReply)
	}
}

func Test_SubmitEntryStreamFailureKeepsEntry(t *testing.T) {
	f := newFixture(t, &fakeDriver{err: fmt.Errorf("connection refused")})
	ctx := f.userCtx(t)

	_, err := v1.NewEntryLogic(ctx, f.core).SubmitEntryStream("stormy", func(string) error { return nil })
	assertError(t, err, http.StatusInternalServerError, i18n.ERROR_OTO_TIRED)

	assert.EqualValues(t, 1, f.entries.creates)
	assert.EqualValues(t, 0, f.entries.updates)
	list, err := v1.NewEntryLogic(ctx, f.core).List(0, 0)
	assert.NoError(t, err)
	if assert.Len(t, list, 1) {
		assert.Equal(t, "stormy", list[0].Content)
		assert.Empty(t, list[0].OtoReply)
	}
}

func Test_SubmitEntryStreamCallerGone(t *testing.T) {
	f := newFixture(t, &fakeDriver{stream: helloStream})
	ctx := f.userCtx(t)

	_, err := v1.NewEntryLogic(ctx, f.core).SubmitEntryStream("hello", func(string) error {
		return fmt.Errorf("client closed")
	})
	assertError(t, err, http.StatusInternalServerError, i18n.ERROR_OTO_TIRED)
	assert.EqualValues(t, 0, f.entries.updates)
}

func Test_OneSubmissionAtATime(t *testing.T) {
	driver := &fakeDriver{
		text:    titledReply,
		started: make(chan struct{}),
		unblock: make(chan struct{}),
	}
	f := newFixture(t, driver)
	ctx := f.userCtx(t)

	done := make(chan error)
	go func() {
		_, err := v1.NewEntryLogic(ctx, f.core).SubmitEntry("first")
		done <- err
	}()
	<-driver.started

	_, err := v1.NewEntryLogic(ctx, f.core).SubmitEntry("second")
	assertError(t, err, http.StatusForbidden, i18n.ERROR_SUBMITTING)
	_, err = v1.NewEntryLogic(ctx, f.core).SubmitEntryStream("second", func(string) error { return nil })
	assertError(t, err, http.StatusForbidden, i18n.ERROR_SUBMITTING)

	close(driver.unblock)
	assert.NoError(t, <-done)
	assert.EqualValues(t, 1, driver.generateCalls)

	// idle again
	driver.started = nil
	_, err = v1.NewEntryLogic(ctx, f.core).SubmitEntry("third")
	assert.NoError(t, err)
}

func Test_GetEntry(t *testing.T) {
	f := newFixture(t, &fakeDriver{text: titledReply})
	ctx := f.userCtx(t)

	res, err := v1.NewEntryLogic(ctx, f.core).SubmitEntry("mine")
	if err != nil {
		t.Fatal(err)
	}

	entry, err := v1.NewEntryLogic(ctx, f.core).Get(res.EntryID)
	assert.NoError(t, err)
	assert.Equal(t, "mine", entry.Content)

	other := v1.WithTokenClaim(context.Background(), security.TokenClaims{Appid: f.core.DefaultAppid(), User: "someone-else"})
	_, err = v1.NewEntryLogic(other, f.core).Get(res.EntryID)
	assertError(t, err, http.StatusNotFound, i18n.ERROR_NOTFOUND)

	assert.True(t, strings.HasPrefix(entry.DisplayTitle(), "A Calm"))
}
