package reconcile

import (
	"context"
	"regexp"
	"strings"
	"time"

	"annot/internal/anchor"
	annerrors "annot/internal/errors"
	"annot/internal/store"
)

// notesKey guards plain notes, which belong to no file.
const notesKey = "\x00notes"

// todoPattern finds the text of a TODO or FIX comment.
var todoPattern = regexp.MustCompile(`//\s*(TODO|FIX):\s*(.*)`)

// todoText returns the text of the first TODO comment in snippet: the
// built-in TODO/FIX form first, then each custom pattern's second group.
func todoText(snippet string, custom []*regexp.Regexp) string {
	if m := todoPattern.FindStringSubmatch(snippet); m != nil {
		return strings.TrimSpace(m[2])
	}
	for _, re := range custom {
		if m := re.FindStringSubmatch(snippet); len(m) > 2 && m[2] != "" {
			return strings.TrimSpace(m[2])
		}
	}
	return ""
}

// AddNote stores a note on r of file. The snippet is captured from the file
// text and the node type comes from the classifier, when one is configured.
// An empty text is taken from a TODO comment inside the range. Notes are
// local and never sent to the oracle on their own.
func (e *Engine) AddNote(ctx context.Context, file FileContext, r anchor.Range, text string) (store.Term, error) {
	release, err := e.guards.acquire(ctx, file.Path)
	if err != nil {
		return store.Term{}, err
	}
	defer release()

	start := time.Now()
	t, err := e.addNote(ctx, file, r, text)
	e.record(ctx, "note", file.Path, start, boolCount(err == nil), err)
	return t, err
}

func (e *Engine) addNote(ctx context.Context, file FileContext, r anchor.Range, text string) (store.Term, error) {
	snippet, err := anchor.Extract(file.Text, r)
	if err != nil {
		return store.Term{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = todoText(snippet, e.todoPatterns)
	}
	if text == "" {
		return store.Term{}, annerrors.Newf(annerrors.InvalidArgument,
			"note text is empty and the range holds no TODO comment")
	}
	nodeType := store.UnknownNodeType
	if e.classifier != nil {
		nodeType = e.classifier.NodeTypeAt(ctx, file.Path, []byte(file.Text), r)
	}
	return e.store.InsertTerm(ctx, store.Term{
		FileName:    file.Path,
		Range:       r,
		CodeSnippet: snippet,
		Text:        text,
		Status:      store.StatusPending,
		NodeType:    nodeType,
		Error:       store.NotChecked,
	})
}

// AddPlainNote stores a note that is tied to no file or range.
func (e *Engine) AddPlainNote(ctx context.Context, text string) (store.Term, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return store.Term{}, annerrors.Newf(annerrors.InvalidArgument, "note text is empty")
	}
	release, err := e.guards.acquire(ctx, notesKey)
	if err != nil {
		return store.Term{}, err
	}
	defer release()

	start := time.Now()
	t, err := e.store.InsertTerm(ctx, store.Term{
		Text:     text,
		Status:   store.StatusPending,
		NodeType: store.UnknownNodeType,
		Error:    store.NotChecked,
	})
	e.record(ctx, "note", "", start, boolCount(err == nil), err)
	return t, err
}

// EditNote replaces the text of term id. Interpretation, range and status
// are kept.
func (e *Engine) EditNote(ctx context.Context, id int, text string) (store.Term, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return store.Term{}, annerrors.Newf(annerrors.InvalidArgument, "note text is empty")
	}
	start := time.Now()
	t, err := e.store.FindTermByID(ctx, id)
	if err == nil {
		t.Text = text
		err = e.store.UpdateTerm(ctx, t)
	}
	if err == nil {
		t, err = e.store.FindTermByID(ctx, id)
	}
	e.record(ctx, "note:edit", t.FileName, start, boolCount(err == nil), err)
	return t, err
}
