package v1

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/breeew/otterly-api/internal/core"
	"github.com/breeew/otterly-api/pkg/errors"
	"github.com/breeew/otterly-api/pkg/i18n"
	"github.com/breeew/otterly-api/pkg/mark"
	"github.com/breeew/otterly-api/pkg/types"
	"github.com/breeew/otterly-api/pkg/utils"
)

type JournalLogic struct {
	UserInfo
	ctx  context.Context
	core *core.Core
}

func NewJournalLogic(ctx context.Context, core *core.Core) *JournalLogic {
	l := &JournalLogic{
		ctx:      ctx,
		core:     core,
		UserInfo: setupUserInfo(ctx, core),
	}

	return l
}

// Active returns the caller's active journal, nil when there is none.
func (l *JournalLogic) Active() (*types.Journal, error) {
	if err := l.RequireUser("JournalLogic.Active"); err != nil {
		return nil, err
	}
	return activeJournal(l.ctx, l.core, l.GetUserInfo().User)
}

func activeJournal(ctx context.Context, core *core.Core, userID string) (*types.Journal, error) {
	data, err := core.Store().JournalStore().GetActive(ctx, userID)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("activeJournal.JournalStore.GetActive", i18n.ERROR_INTERNAL, err)
	}
	return data, nil
}

func (l *JournalLogic) List(page, pageSize uint64) ([]types.Journal, error) {
	if err := l.RequireUser("JournalLogic.List"); err != nil {
		return nil, err
	}
	list, err := l.core.Store().JournalStore().List(l.ctx, l.GetUserInfo().User, page, pageSize)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("JournalLogic.List.JournalStore.List", i18n.ERROR_INTERNAL, err)
	}
	if list == nil {
		list = []types.Journal{}
	}
	return list, nil
}

func journalLockKey(userID string) string {
	return "journal:" + userID
}

// Start opens a new volume. Only one journal per user may be active.
func (l *JournalLogic) Start(title string) (*types.Journal, error) {
	if err := l.RequireUser("JournalLogic.Start"); err != nil {
		return nil, err
	}
	user := l.GetUserInfo().User

	ctx, cancel := context.WithCancel(l.ctx)
	defer cancel()
	unlock, ok, err := l.core.TryLock(ctx, journalLockKey(user))
	if err != nil {
		return nil, errors.New("JournalLogic.Start.TryLock", i18n.ERROR_INTERNAL, err)
	}
	if !ok {
		return nil, errors.New("JournalLogic.Start.TryLock.locked", i18n.ERROR_TOO_MANY_REQUESTS, nil).Code(http.StatusTooManyRequests)
	}
	defer unlock()

	active, err := activeJournal(ctx, l.core, user)
	if err != nil {
		return nil, errors.Trace("JournalLogic.Start", err)
	}
	if active != nil {
		return nil, errors.New("JournalLogic.Start.active", i18n.ERROR_JOURNAL_ACTIVE_EXIST, nil).Code(http.StatusForbidden)
	}

	now := time.Now()
	title = strings.TrimSpace(title)
	if title == "" {
		title = now.Format(mark.DATE_LAYOUT)
	}
	data := types.Journal{
		ID:        utils.GenSpecIDStr(),
		UserID:    user,
		Title:     title,
		Status:    types.JOURNAL_STATUS_ACTIVE,
		CreatedAt: now.Unix(),
	}
	if err = l.core.Store().JournalStore().Create(ctx, data); err != nil {
		// lost a race against another replica, the store refuses a second active journal
		if active, _ := activeJournal(ctx, l.core, user); active != nil {
			return nil, errors.New("JournalLogic.Start.JournalStore.Create.active", i18n.ERROR_JOURNAL_ACTIVE_EXIST, err).Code(http.StatusForbidden)
		}
		return nil, errors.New("JournalLogic.Start.JournalStore.Create", i18n.ERROR_INTERNAL, err)
	}
	return &data, nil
}

type ConcludeResult struct {
	Journal    types.Journal `json:"journal"`
	ExportPath string        `json:"export_path,omitempty"`
}

// Conclude archives the active journal and exports it as Markdown.
// A failed export is logged and leaves ExportPath empty.
func (l *JournalLogic) Conclude(id string) (*ConcludeResult, error) {
	if err := l.RequireUser("JournalLogic.Conclude"); err != nil {
		return nil, err
	}
	user := l.GetUserInfo().User

	journal, err := l.core.Store().JournalStore().Get(l.ctx, user, id)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("JournalLogic.Conclude.JournalStore.Get", i18n.ERROR_INTERNAL, err)
	}
	if journal == nil {
		return nil, errors.New("JournalLogic.Conclude.JournalStore.Get.nil", i18n.ERROR_NOTFOUND, nil).Code(http.StatusNotFound)
	}

	endedAt := time.Now().Unix()
	changed, err := l.core.Store().JournalStore().Archive(l.ctx, user, id, endedAt)
	if err != nil {
		return nil, errors.New("JournalLogic.Conclude.JournalStore.Archive", i18n.ERROR_INTERNAL, err)
	}
	if !changed {
		return nil, errors.New("JournalLogic.Conclude.JournalStore.Archive.unchanged", i18n.ERROR_JOURNAL_NOT_ACTIVE, nil).Code(http.StatusForbidden)
	}
	journal.Status = types.JOURNAL_STATUS_ARCHIVED
	journal.EndedAt = endedAt

	result := &ConcludeResult{Journal: *journal}
	path, err := l.export(*journal)
	if err != nil {
		slog.Error("failed to export journal", slog.String("journal_id", id), slog.String("user_id", user),
			slog.String("error", err.Error()))
		return result, nil
	}
	result.ExportPath = path
	return result, nil
}

func (l *JournalLogic) export(journal types.Journal) (string, error) {
	entries, err := l.core.Store().JournalEntryStore().ListByJournal(l.ctx, journal.UserID, journal.ID, 0, 0)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("list entries: %w", err)
	}

	dir := "journals/" + journal.UserID
	name := journal.ID + ".md"
	if err = l.core.FileUploader().SaveFile(dir, name, []byte(mark.Journal(journal, entries))); err != nil {
		return "", err
	}
	return dir + "/" + name, nil
}

// ExportURL returns a download link for a concluded journal's Markdown export.
func (l *JournalLogic) ExportURL(id string) (string, error) {
	if err := l.RequireUser("JournalLogic.ExportURL"); err != nil {
		return "", err
	}
	user := l.GetUserInfo().User
	journal, err := l.core.Store().JournalStore().Get(l.ctx, user, id)
	if err != nil && err != sql.ErrNoRows {
		return "", errors.New("JournalLogic.ExportURL.JournalStore.Get", i18n.ERROR_INTERNAL, err)
	}
	if journal == nil || journal.Status != types.JOURNAL_STATUS_ARCHIVED {
		return "", errors.New("JournalLogic.ExportURL.JournalStore.Get.nil", i18n.ERROR_NOTFOUND, nil).Code(http.StatusNotFound)
	}

	url, err := l.core.FileUploader().GenGetObjectPreSignURL("journals/" + user + "/" + id + ".md")
	if err != nil {
		return "", errors.New("JournalLogic.ExportURL.GenGetObjectPreSignURL", i18n.ERROR_UNSUPPORTED_FEATURE, err).Code(http.StatusNotImplemented)
	}
	return url, nil
}
