package v1

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/breeew/otterly-api/internal/core"
	"github.com/breeew/otterly-api/pkg/ai/sse"
	"github.com/breeew/otterly-api/pkg/errors"
	"github.com/breeew/otterly-api/pkg/i18n"
	"github.com/breeew/otterly-api/pkg/types"
	"github.com/breeew/otterly-api/pkg/utils"
)

const (
	FLOW_BUFFERED = "buffered"
	FLOW_STREAM   = "stream"
)

type EntryLogic struct {
	UserInfo
	ctx  context.Context
	core *core.Core
}

func NewEntryLogic(ctx context.Context, core *core.Core) *EntryLogic {
	l := &EntryLogic{
		ctx:      ctx,
		core:     core,
		UserInfo: setupUserInfo(ctx, core),
	}

	return l
}

type SubmitResult struct {
	EntryID string               `json:"entry_id"`
	Title   string               `json:"title,omitempty"`
	Reply   string               `json:"reply"`
	Entries []types.JournalEntry `json:"entries"`
}

func submitLockKey(userID string) string {
	return "submit:" + userID
}

// begin validates the submission and takes the per user submitting lock.
// The returned release frees the lock before it returns.
func (l *EntryLogic) begin(trace, content string) (context.Context, func(), error) {
	if err := l.RequireUser(trace); err != nil {
		return nil, nil, err
	}
	if utils.IsBlank(content) {
		return nil, nil, errors.New(trace+".IsBlank", i18n.ERROR_ENTRY_EMPTY, nil).Code(http.StatusBadRequest)
	}

	ctx, cancel := context.WithCancel(l.ctx)
	unlock, ok, err := l.core.TryLock(ctx, submitLockKey(l.GetUserInfo().User))
	if err != nil {
		cancel()
		return nil, nil, errors.New(trace+".TryLock", i18n.ERROR_INTERNAL, err)
	}
	if !ok {
		cancel()
		return nil, nil, errors.New(trace+".TryLock.locked", i18n.ERROR_SUBMITTING, nil).Code(http.StatusForbidden)
	}
	return ctx, func() {
		unlock()
		cancel()
	}, nil
}

// scope is the active journal id, or empty for entries written outside any journal.
func (l *EntryLogic) scope(ctx context.Context) (string, error) {
	active, err := activeJournal(ctx, l.core, l.GetUserInfo().User)
	if err != nil {
		return "", err
	}
	if active == nil {
		return "", nil
	}
	return active.ID, nil
}

func (l *EntryLogic) list(ctx context.Context, journalID string, page, pageSize uint64) ([]types.JournalEntry, error) {
	list, err := l.core.Store().JournalEntryStore().ListByJournal(ctx, l.GetUserInfo().User, journalID, page, pageSize)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("EntryLogic.list.JournalEntryStore.ListByJournal", i18n.ERROR_INTERNAL, err)
	}
	if list == nil {
		list = []types.JournalEntry{}
	}
	return list, nil
}

// replyRequest gathers the prompt context: aspirations and the newest entries of the scope.
func (l *EntryLogic) replyRequest(ctx context.Context, journalID, content string) (types.ReplyRequest, error) {
	aspirations, err := l.core.Store().AspirationStore().ListUserAspirations(ctx, l.GetUserInfo().User)
	if err != nil && err != sql.ErrNoRows {
		return types.ReplyRequest{}, errors.New("EntryLogic.replyRequest.AspirationStore.ListUserAspirations", i18n.ERROR_INTERNAL, err)
	}
	history, err := l.list(ctx, journalID, 1, types.HISTORY_SIZE)
	if err != nil {
		return types.ReplyRequest{}, errors.Trace("EntryLogic.replyRequest", err)
	}

	return types.ReplyRequest{
		CurrentEntry: content,
		Aspirations: lo.Map(aspirations, func(item types.Aspiration, _ int) string {
			return item.Text
		}),
		History: lo.Map(history, func(item types.JournalEntry, _ int) string {
			return item.Content
		}),
	}, nil
}

func (l *EntryLogic) tired(trace string, err error) error {
	if ce, ok := errors.As(err); ok && ce.Message() == i18n.ERROR_OTO_TIRED {
		return errors.Trace(trace, err)
	}
	return errors.New(trace, i18n.ERROR_OTO_TIRED, err)
}

// SubmitEntry waits for the full titled reply and only then writes the entry.
// Nothing is written when the reply fails.
func (l *EntryLogic) SubmitEntry(content string) (result *SubmitResult, err error) {
	ctx, release, err := l.begin("EntryLogic.SubmitEntry", content)
	if err != nil {
		return nil, err
	}
	defer release()
	defer func() {
		l.core.Metrics().Submissions.WithLabelValues(FLOW_BUFFERED, lo.Ternary(err == nil, "ok", "error")).Inc()
	}()

	journalID, err := l.scope(ctx)
	if err != nil {
		return nil, l.tired("EntryLogic.SubmitEntry.scope", err)
	}
	req, err := l.replyRequest(ctx, journalID, content)
	if err != nil {
		return nil, l.tired("EntryLogic.SubmitEntry.replyRequest", err)
	}

	reply, err := NewReplyLogic(ctx, l.core).Buffered(req)
	if err != nil {
		return nil, l.tired("EntryLogic.SubmitEntry.Reply", err)
	}

	now := time.Now().Unix()
	entry := types.JournalEntry{
		ID:        utils.GenSpecIDStr(),
		UserID:    l.GetUserInfo().User,
		JournalID: journalID,
		Content:   content,
		Title:     reply.Title,
		OtoReply:  reply.Reply,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = l.core.Store().JournalEntryStore().Create(ctx, entry); err != nil {
		return nil, l.tired("EntryLogic.SubmitEntry.JournalEntryStore.Create", err)
	}

	entries, err := l.list(ctx, journalID, 0, 0)
	if err != nil {
		return nil, l.tired("EntryLogic.SubmitEntry.list", err)
	}

	return &SubmitResult{
		EntryID: entry.ID,
		Title:   reply.Title,
		Reply:   reply.Reply,
		Entries: entries,
	}, nil
}

// SubmitEntryStream writes the entry first, then streams the reply through onChunk
// and patches the entry once with the accumulated text. A failure after the write
// leaves the entry without a reply.
func (l *EntryLogic) SubmitEntryStream(content string, onChunk func(chunk string) error) (result *SubmitResult, err error) {
	ctx, release, err := l.begin("EntryLogic.SubmitEntryStream", content)
	if err != nil {
		return nil, err
	}
	defer release()

	var written bool
	defer func() {
		l.core.Metrics().Submissions.WithLabelValues(FLOW_STREAM, lo.Ternary(err == nil, "ok", "error")).Inc()
		if written && (err != nil || result.Reply == "") {
			l.core.Metrics().ReplyMissing.Inc()
		}
	}()

	journalID, err := l.scope(ctx)
	if err != nil {
		return nil, l.tired("EntryLogic.SubmitEntryStream.scope", err)
	}
	req, err := l.replyRequest(ctx, journalID, content)
	if err != nil {
		return nil, l.tired("EntryLogic.SubmitEntryStream.replyRequest", err)
	}

	now := time.Now().Unix()
	entry := types.JournalEntry{
		ID:        utils.GenSpecIDStr(),
		UserID:    l.GetUserInfo().User,
		JournalID: journalID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = l.core.Store().JournalEntryStore().Create(ctx, entry); err != nil {
		return nil, l.tired("EntryLogic.SubmitEntryStream.JournalEntryStore.Create", err)
	}
	written = true

	body, err := NewReplyLogic(ctx, l.core).Stream(req)
	if err != nil {
		return nil, l.tired("EntryLogic.SubmitEntryStream.Reply", err)
	}
	defer body.Close()

	reply, err := sse.Consume(ctx, body, onChunk)
	if err != nil {
		return nil, l.tired("EntryLogic.SubmitEntryStream.sse.Consume", err)
	}

	if strings.TrimSpace(reply) != "" {
		if err = l.core.Store().JournalEntryStore().UpdateReply(ctx, entry.UserID, entry.ID, "", reply); err != nil {
			return nil, l.tired("EntryLogic.SubmitEntryStream.JournalEntryStore.UpdateReply", err)
		}
	} else {
		reply = ""
	}

	entries, err := l.list(ctx, journalID, 0, 0)
	if err != nil {
		return nil, l.tired("EntryLogic.SubmitEntryStream.list", err)
	}

	return &SubmitResult{
		EntryID: entry.ID,
		Reply:   reply,
		Entries: entries,
	}, nil
}

// List returns the entries of the active journal, or loose entries when no journal is active.
func (l *EntryLogic) List(page, pageSize uint64) ([]types.JournalEntry, error) {
	if err := l.RequireUser("EntryLogic.List"); err != nil {
		return nil, err
	}
	journalID, err := l.scope(l.ctx)
	if err != nil {
		return nil, errors.Trace("EntryLogic.List", err)
	}
	return l.list(l.ctx, journalID, page, pageSize)
}

// ListByJournal reads the entries of any journal the caller owns.
func (l *EntryLogic) ListByJournal(journalID string, page, pageSize uint64) ([]types.JournalEntry, error) {
	if err := l.RequireUser("EntryLogic.ListByJournal"); err != nil {
		return nil, err
	}
	journal, err := l.core.Store().JournalStore().Get(l.ctx, l.GetUserInfo().User, journalID)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("EntryLogic.ListByJournal.JournalStore.Get", i18n.ERROR_INTERNAL, err)
	}
	if journal == nil {
		return nil, errors.New("EntryLogic.ListByJournal.JournalStore.Get.nil", i18n.ERROR_NOTFOUND, nil).Code(http.StatusNotFound)
	}
	return l.list(l.ctx, journal.ID, page, pageSize)
}

func (l *EntryLogic) Get(id string) (*types.JournalEntry, error) {
	if err := l.RequireUser("EntryLogic.Get"); err != nil {
		return nil, err
	}
	data, err := l.core.Store().JournalEntryStore().Get(l.ctx, l.GetUserInfo().User, id)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("EntryLogic.Get.JournalEntryStore.Get", i18n.ERROR_INTERNAL, err)
	}
	if data == nil {
		return nil, errors.New("EntryLogic.Get.JournalEntryStore.Get.nil", i18n.ERROR_NOTFOUND, nil).Code(http.StatusNotFound)
	}
	return data, nil
}
