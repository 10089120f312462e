package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"annot/internal/anchor"
	annerrors "annot/internal/errors"
	"annot/internal/interp"
	"annot/internal/journal"
	"annot/internal/oracle"
	"annot/internal/space"
	"annot/internal/store"
)

const fileA = "/work/src/fileA.cpp"
const fileB = "/work/src/fileB.cpp"

const sourceA = `#include <chrono>
int main() {
    double dt = 3.5;
    double x = dt * 2;
}
`

// fakeOracle is an in-memory Peirce service.
type fakeOracle struct {
	t *testing.T

	mu            sync.Mutex
	populateBody  string
	populateCode  int
	checkFn       func(req oracle.CheckRequest) interface{}
	checkCode     int
	success       map[string]bool
	status        map[string]int
	hangup        map[string]bool
	calls         map[string]int
	lastTerm      oracle.Term
	lastCons      oracle.Constructor
	spaces        []oracle.Space
	lastCheck     oracle.CheckRequest
	inFlight      int32
	maxInFlight   int32
	populateDelay time.Duration
}

func newFakeOracle(t *testing.T) *fakeOracle {
	return &fakeOracle{
		t:            t,
		populateCode: http.StatusOK,
		populateBody: `{"data": [], "cdata": []}`,
		checkCode:    http.StatusOK,
		success: map[string]bool{
			"createSpace":                     true,
			"createTermInterpretation":        true,
			"createConstructorInterpretation": true,
		},
		status: make(map[string]int),
		hangup: make(map[string]bool),
		calls:  make(map[string]int),
	}
}

// echoCheck returns every sent term with its id, a fresh text and no error.
func echoCheck(req oracle.CheckRequest) interface{} {
	out := make([]oracle.Term, len(req.Terms))
	for i, term := range req.Terms {
		out[i] = term
		out[i].Text = "checked " + term.Text
		out[i].Error = nil
	}
	return out
}

func (f *fakeOracle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	endpoint := strings.TrimPrefix(r.URL.Path, "/api/")
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.calls[endpoint]++
	code, hangup := f.status[endpoint], f.hangup[endpoint]
	f.mu.Unlock()

	if hangup {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			f.t.Errorf("hijack: %v", err)
			return
		}
		_ = conn.Close()
		return
	}
	if code != 0 {
		w.WriteHeader(code)
		_, _ = io.WriteString(w, `{"error": {"code": "internal", "message": "boom"}}`)
		return
	}

	switch endpoint {
	case "getState":
		n := atomic.AddInt32(&f.inFlight, 1)
		for {
			m := atomic.LoadInt32(&f.maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&f.maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(f.populateDelay)
		atomic.AddInt32(&f.inFlight, -1)
		w.WriteHeader(f.populateCode)
		_, _ = io.WriteString(w, f.populateBody)
	case "check2":
		var req oracle.CheckRequest
		if err := json.Unmarshal(body, &req); err != nil {
			f.t.Errorf("bad check body: %v", err)
		}
		f.mu.Lock()
		f.lastCheck = req
		fn := f.checkFn
		f.mu.Unlock()
		if fn == nil {
			fn = echoCheck
		}
		w.WriteHeader(f.checkCode)
		_ = json.NewEncoder(w).Encode(fn(req))
	case "createSpace":
		var req struct {
			Space oracle.Space `json:"space"`
		}
		_ = json.Unmarshal(body, &req)
		f.mu.Lock()
		ok := f.success[endpoint] && req.Space.Label != "bad"
		if ok {
			f.spaces = append(f.spaces, req.Space)
		}
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": ok})
	case "createTermInterpretation":
		var req struct {
			Term oracle.Term `json:"term"`
		}
		_ = json.Unmarshal(body, &req)
		f.mu.Lock()
		f.lastTerm = req.Term
		ok := f.success[endpoint]
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": ok})
	case "createConstructorInterpretation":
		var req struct {
			Constructor oracle.Constructor `json:"constructor"`
		}
		_ = json.Unmarshal(body, &req)
		f.mu.Lock()
		f.lastCons = req.Constructor
		ok := f.success[endpoint]
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": ok})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeOracle) count(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

type fixture struct {
	engine  *Engine
	store   *store.Store
	oracle  *fakeOracle
	journal *journal.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := newFakeOracle(t)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := oracle.NewClient(oracle.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("oracle.NewClient: %v", err)
	}
	st := store.New(store.Options{Dir: t.TempDir()})
	if _, err := st.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	jdb, err := journal.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() { _ = jdb.Close() })

	eng := New(Options{Store: st, Oracle: client, Journal: jdb, Classifier: stubClassifier{}})
	return &fixture{engine: eng, store: st, oracle: fake, journal: jdb}
}

type stubClassifier struct{}

func (stubClassifier) NodeTypeAt(context.Context, string, []byte, anchor.Range) string {
	return "identifier"
}

func rng(sl, sc, el, ec int) anchor.Range {
	return anchor.Range{Start: anchor.Position{Line: sl, Character: sc}, End: anchor.Position{Line: el, Character: ec}}
}

func (fx *fixture) insertTerm(t *testing.T, file, text, nodeType string, r anchor.Range) store.Term {
	t.Helper()
	term, err := fx.store.InsertTerm(context.Background(), store.Term{
		FileName: file, Range: r, Text: text, NodeType: nodeType, Error: store.NotChecked,
	})
	if err != nil {
		t.Fatalf("InsertTerm: %v", err)
	}
	return term
}

func (fx *fixture) addSpace(t *testing.T, kind space.Kind, label string) space.Space {
	t.Helper()
	sp, err := space.NewStandard(kind, label)
	if err != nil {
		t.Fatal(err)
	}
	if err := fx.store.AppendSpace(context.Background(), sp); err != nil {
		t.Fatalf("AppendSpace: %v", err)
	}
	return sp
}

func (fx *fixture) raw(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(fx.store.Path())
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func (fx *fixture) load(t *testing.T) *store.Document {
	t.Helper()
	doc, err := fx.store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return doc
}

const populateBody = `{
	"data": [
		{"coords": {"begin": {"line": 2, "character": 11}, "end": {"line": 2, "character": 13}},
		 "interp": "No interpretation provided", "node_type": "IDENT", "error": null},
		{"coords": {"begin": {"line": 3, "character": 15}, "end": {"line": 3, "character": 21}},
		 "interp": "No interpretation provided", "type": "MUL_EXPR", "error": "unchecked"}
	],
	"cdata": [{"interp": "No interpretation provided", "type": "CTOR", "name": "std::chrono::duration"}]
}`

func TestPopulateReplacesFileAnnotations(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	stale := fx.insertTerm(t, fileA, "old note", "", rng(0, 0, 0, 8))
	other := fx.insertTerm(t, fileB, "keep me", "", rng(1, 0, 1, 4))
	fx.oracle.populateBody = populateBody

	res, err := fx.engine.Populate(ctx, FileContext{Path: fileA, Text: sourceA})
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if res.Purged != 1 || res.Terms != 2 || res.Constructors != 1 {
		t.Errorf("result = %+v", res)
	}
	if res.Check.Updated != 2 {
		t.Errorf("check updated %d terms, want 2", res.Check.Updated)
	}

	doc := fx.load(t)
	terms := doc.TermsForFile(fileA)
	if len(terms) != 2 {
		t.Fatalf("fileA has %d terms, want 2", len(terms))
	}
	for _, term := range terms {
		if term.ID == stale.ID {
			t.Errorf("stale term %d survived populate", stale.ID)
		}
		if term.Status != store.StatusPending {
			t.Errorf("term %d status = %s", term.ID, term.Status)
		}
	}
	if terms[0].CodeSnippet != "dt" || terms[0].NodeType != "IDENT" {
		t.Errorf("first term = %+v", terms[0])
	}
	if terms[1].CodeSnippet != "dt * 2" || terms[1].NodeType != "MUL_EXPR" {
		t.Errorf("second term = %+v", terms[1])
	}
	if terms[0].Text != "checked No interpretation provided" {
		t.Errorf("check did not run after populate: text = %q", terms[0].Text)
	}

	b := doc.TermsForFile(fileB)
	if len(b) != 1 || b[0].ID != other.ID || b[0].Text != "keep me" {
		t.Errorf("fileB terms changed: %+v", b)
	}
	if len(doc.Constructors) != 1 || doc.Constructors[0].Name != "std::chrono::duration" || doc.Constructors[0].NodeType != "CTOR" {
		t.Errorf("constructors = %+v", doc.Constructors)
	}
	if doc.NextID != 6 {
		t.Errorf("nextId = %d, want 6", doc.NextID)
	}

	entries, err := fx.journal.Recent(ctx, 10, fileA)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Op != "check:populate" || entries[1].Op != "populate" {
		t.Errorf("journal = %+v", entries)
	}
}

func TestPopulateFailureLeavesDocument(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
	}{
		{"server error", http.StatusInternalServerError, `{"error": "boom"}`},
		{"malformed json", http.StatusOK, `{"data": [`},
		{"inverted coords", http.StatusOK, `{"data": [{"coords": {"begin": {"line": 3, "character": 0}, "end": {"line": 1, "character": 0}}}], "cdata": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			fx.insertTerm(t, fileA, "existing", "", rng(1, 0, 1, 3))
			fx.oracle.populateCode = tt.code
			fx.oracle.populateBody = tt.body
			before := fx.raw(t)

			_, err := fx.engine.Populate(context.Background(), FileContext{Path: fileA, Text: sourceA})
			if !annerrors.Is(err, annerrors.OracleTransportFailure) {
				t.Fatalf("err = %v, want ORACLE_TRANSPORT_FAILURE", err)
			}
			if !bytes.Equal(before, fx.raw(t)) {
				t.Error("document changed after failed populate")
			}
			if fx.oracle.count("check2") != 0 {
				t.Error("check ran after failed populate")
			}
		})
	}
}

func TestPopulateSerialisesPerFile(t *testing.T) {
	fx := newFixture(t)
	fx.oracle.populateBody = populateBody
	fx.oracle.populateDelay = 30 * time.Millisecond

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.engine.Populate(context.Background(), FileContext{Path: fileA, Text: sourceA})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Populate: %v", err)
		}
	}
	if m := atomic.LoadInt32(&fx.oracle.maxInFlight); m != 1 {
		t.Errorf("max concurrent getState calls = %d, want 1", m)
	}
	if n := len(fx.load(t).TermsForFile(fileA)); n != 2 {
		t.Errorf("fileA has %d terms after repeated populate, want 2", n)
	}
}

func TestCheckOverwritesActiveFileOnly(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	t0 := fx.addSpace(t, space.Time, "t0")
	a1 := fx.insertTerm(t, fileA, "a1", "IDENT", rng(1, 0, 1, 3))
	a2 := fx.insertTerm(t, fileA, "a2", "EXPR", rng(2, 4, 2, 10))
	a3 := fx.insertTerm(t, fileA, "a3", "EXPR", rng(3, 4, 3, 10))
	b1 := fx.insertTerm(t, fileB, "b1", "EXPR", rng(0, 0, 0, 1))

	dur, err := interp.FromParams(interp.Duration, "dt", false, "EXPR", interp.Params{Space: t0.ID, Values: []float64{3.5}}, fx.load(t).Spaces())
	if err != nil {
		t.Fatal(err)
	}
	if err := fx.store.SetTermInterpretation(ctx, a2.ID, dur); err != nil {
		t.Fatal(err)
	}

	fx.oracle.checkFn = func(req oracle.CheckRequest) interface{} {
		out := echoCheck(req).([]oracle.Term)
		for i := range out {
			if *out[i].ID == a3.ID {
				msg := "type mismatch"
				out[i].Error = &msg
			}
		}
		return out
	}

	res, err := fx.engine.Check(ctx, FileContext{Path: fileA, Text: sourceA})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Updated != 3 || res.Returned != 4 || res.Alignment != AlignByID {
		t.Errorf("result = %+v", res)
	}

	req := fx.oracle.lastCheck
	if req.FileName != fileA || req.File != sourceA || len(req.Terms) != 4 || len(req.Spaces) != 1 {
		t.Errorf("request = %+v", req)
	}

	doc := fx.load(t)
	byID := map[int]store.Term{}
	for _, term := range doc.Terms {
		byID[term.ID] = term
	}
	for _, orig := range []store.Term{a1, a2, a3} {
		got := byID[orig.ID]
		if got.Text != "checked "+orig.Text {
			t.Errorf("term %d text = %q", orig.ID, got.Text)
		}
		if got.Range != orig.Range {
			t.Errorf("term %d range moved", orig.ID)
		}
	}
	if byID[a3.ID].Error != "type mismatch" || byID[a1.ID].Error != "" {
		t.Errorf("errors = %q, %q", byID[a1.ID].Error, byID[a3.ID].Error)
	}
	if byID[a2.ID].Interpretation == nil || byID[a2.ID].Interpretation.Header().Label != "dt Duration(t0,3.5)" {
		t.Errorf("interpretation touched: %+v", byID[a2.ID].Interpretation)
	}
	if byID[b1.ID].Text != "b1" || byID[b1.ID].Error != store.NotChecked {
		t.Errorf("other file updated: %+v", byID[b1.ID])
	}
}

func TestCheckAlignment(t *testing.T) {
	tests := []struct {
		name     string
		respond  func(req oracle.CheckRequest) interface{}
		wantErr  bool
		wantText string
	}{
		{
			name: "positional without ids",
			respond: func(req oracle.CheckRequest) interface{} {
				out := echoCheck(req).([]oracle.Term)
				for i := range out {
					out[i].ID = nil
				}
				return out
			},
			wantText: "checked first",
		},
		{
			name: "positional length mismatch",
			respond: func(req oracle.CheckRequest) interface{} {
				return []oracle.Term{{FileName: fileA, Text: "lonely"}}
			},
			wantErr: true,
		},
		{
			name: "unknown id",
			respond: func(req oracle.CheckRequest) interface{} {
				out := echoCheck(req).([]oracle.Term)
				ghost := 999
				out[0].ID = &ghost
				return out
			},
			wantErr: true,
		},
		{
			name: "mixed ids",
			respond: func(req oracle.CheckRequest) interface{} {
				out := echoCheck(req).([]oracle.Term)
				out[1].ID = nil
				return out
			},
			wantErr: true,
		},
		{
			name: "not a list",
			respond: func(req oracle.CheckRequest) interface{} {
				return map[string]string{"status": "ok"}
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			first := fx.insertTerm(t, fileA, "first", "EXPR", rng(1, 0, 1, 3))
			fx.insertTerm(t, fileA, "second", "EXPR", rng(2, 0, 2, 3))
			fx.oracle.checkFn = tt.respond
			before := fx.raw(t)

			_, err := fx.engine.Check(context.Background(), FileContext{Path: fileA, Text: sourceA})
			if tt.wantErr {
				if !annerrors.Is(err, annerrors.OracleTransportFailure) {
					t.Fatalf("err = %v, want ORACLE_TRANSPORT_FAILURE", err)
				}
				if !bytes.Equal(before, fx.raw(t)) {
					t.Error("document changed after rejected check response")
				}
				return
			}
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			got, _ := fx.store.FindTermByID(context.Background(), first.ID)
			if got.Text != tt.wantText {
				t.Errorf("text = %q, want %q", got.Text, tt.wantText)
			}
		})
	}
}

func TestEditSelectedItemCommitsOnSuccess(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	t0 := fx.addSpace(t, space.Time, "t0")
	term := fx.insertTerm(t, fileA, "dt", "BINARY_EXPR", rng(2, 4, 2, 20))

	p := interp.NewScriptPrompter("Duration", "dt", "t0", "3.5")
	res, err := fx.engine.EditSelectedItem(ctx, FileContext{Path: fileA, Text: sourceA}, term.ID, p)
	if err != nil {
		t.Fatalf("EditSelectedItem: %v", err)
	}
	if !res.Committed || res.Kind != ItemTerm || res.Label != "dt Duration(t0,3.5)" {
		t.Errorf("result = %+v", res)
	}
	if p.Remaining() != 0 {
		t.Errorf("%d answers unused", p.Remaining())
	}

	got, err := fx.store.FindTermByID(ctx, term.ID)
	if err != nil {
		t.Fatal(err)
	}
	q, ok := got.Interpretation.(*interp.Quantity)
	if !ok {
		t.Fatalf("interpretation = %#v, want *interp.Quantity", got.Interpretation)
	}
	if q.Variant != interp.Duration || q.Space != t0.ID || len(q.Value) != 1 || q.Value[0] != 3.5 {
		t.Errorf("quantity = %+v", q)
	}

	sent := fx.oracle.lastTerm
	if sent.Interpretation == nil || sent.Interpretation.Space == nil || sent.Interpretation.Space.Label != "t0" {
		t.Errorf("oracle saw %+v", sent.Interpretation)
	}
	if sent.Interpretation.Space.Space != "Classical Time Coordinate Space" {
		t.Errorf("space name = %q", sent.Interpretation.Space.Space)
	}
	if fx.oracle.count("check2") != 1 {
		t.Errorf("check ran %d times, want 1", fx.oracle.count("check2"))
	}
}

func TestEditSelectedItemRejected(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.addSpace(t, space.Time, "t0")
	term := fx.insertTerm(t, fileA, "dt", "BINARY_EXPR", rng(2, 4, 2, 20))
	fx.oracle.success["createTermInterpretation"] = false

	res, err := fx.engine.EditSelectedItem(ctx, FileContext{Path: fileA, Text: sourceA}, term.ID,
		interp.NewScriptPrompter("Duration", "dt", "t0", "3.5"))
	if !annerrors.Is(err, annerrors.OracleRejected) {
		t.Fatalf("err = %v, want ORACLE_REJECTED", err)
	}
	if res.Committed {
		t.Error("rejected interpretation reported as committed")
	}
	got, _ := fx.store.FindTermByID(ctx, term.ID)
	if got.Interpretation != nil {
		t.Errorf("interpretation stored despite rejection: %+v", got.Interpretation)
	}
	if fx.oracle.count("check2") != 1 {
		t.Error("check did not run after a rejected edit")
	}
}

func TestEditSelectedItemCancelled(t *testing.T) {
	fx := newFixture(t)
	fx.addSpace(t, space.Time, "t0")
	term := fx.insertTerm(t, fileA, "dt", "BINARY_EXPR", rng(2, 4, 2, 20))

	_, err := fx.engine.EditSelectedItem(context.Background(), FileContext{Path: fileA, Text: sourceA}, term.ID,
		interp.NewScriptPrompter("Duration", ""))
	if !annerrors.IsCancelled(err) {
		t.Fatalf("err = %v, want CANCELLED", err)
	}
	if fx.oracle.count("createTermInterpretation") != 0 {
		t.Error("oracle asked to create a cancelled interpretation")
	}
	if fx.oracle.count("check2") != 1 {
		t.Error("check did not run after a cancelled edit")
	}
}

func TestEditSelectedItemNotFound(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.engine.EditSelectedItem(context.Background(), FileContext{Path: fileA, Text: sourceA}, 42,
		interp.NewScriptPrompter("Scalar", "k", "1"))
	if !annerrors.Is(err, annerrors.NotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestEditConstructorIsIdentifier(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.oracle.populateBody = populateBody
	if _, err := fx.engine.Populate(ctx, FileContext{Path: fileA, Text: sourceA}); err != nil {
		t.Fatal(err)
	}
	cons := fx.load(t).Constructors[0]

	res, err := fx.engine.EditSelectedItem(ctx, FileContext{Path: fileA, Text: sourceA}, cons.ID,
		interp.NewScriptPrompter("Scalar", "2"))
	if err != nil {
		t.Fatalf("EditSelectedItem: %v", err)
	}
	if res.Kind != ItemConstructor || res.Label != "Scalar(2)" {
		t.Errorf("result = %+v", res)
	}
	if fx.oracle.lastCons.Name != "std::chrono::duration" || fx.oracle.lastCons.Interpretation == nil {
		t.Errorf("oracle saw %+v", fx.oracle.lastCons)
	}
	got, _ := fx.store.FindConstructorByID(ctx, cons.ID)
	if got.Interpretation == nil || got.Interpretation.Header().Name != interp.IdentifierName {
		t.Errorf("constructor interpretation = %+v", got.Interpretation)
	}
}

func TestAssignInterpretation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.addSpace(t, space.Time, "t0")
	fx.addSpace(t, space.Time, "t1")
	term := fx.insertTerm(t, fileA, "f", "IDENT", rng(1, 4, 1, 8))

	res, err := fx.engine.AssignInterpretation(ctx, FileContext{Path: fileA, Text: sourceA}, term.ID, Assignment{
		Variant: interp.TimeTransform,
		Params:  interp.Params{Domain: "t0", Codomain: "t1"},
	})
	if err != nil {
		t.Fatalf("AssignInterpretation: %v", err)
	}
	if res.Label != "Time Transform(t0,t1)" {
		t.Errorf("label = %q", res.Label)
	}

	_, err = fx.engine.AssignInterpretation(ctx, FileContext{Path: fileA, Text: sourceA}, term.ID, Assignment{
		Variant: interp.Duration,
		Params:  interp.Params{Space: "nowhere", Values: []float64{1}},
	})
	if !annerrors.Is(err, annerrors.InvalidInterpretation) {
		t.Fatalf("err = %v, want INVALID_INTERPRETATION", err)
	}
	got, _ := fx.store.FindTermByID(ctx, term.ID)
	if got.Interpretation.Header().Variant != interp.TimeTransform {
		t.Errorf("invalid assignment replaced the interpretation")
	}
}

func TestCreateSpace(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	t0, err := fx.engine.CreateSpace(ctx, SpaceSpec{Kind: space.Time, Label: "t0"})
	if err != nil {
		t.Fatalf("CreateSpace(t0): %v", err)
	}
	t1, err := fx.engine.CreateSpace(ctx, SpaceSpec{Kind: space.Time, Label: "t1", Parent: "t0", Origin: []float64{5}, Basis: []float64{2}})
	if err != nil {
		t.Fatalf("CreateSpace(t1): %v", err)
	}
	if t1.Parent != t0.ID {
		t.Errorf("t1 parent = %q, want %q", t1.Parent, t0.ID)
	}

	reg := fx.load(t).Spaces()
	parent, ok := reg.ResolveParent(t1)
	if !ok || parent.Label != "t0" {
		t.Errorf("ResolveParent = %+v, %v", parent, ok)
	}
	sent := fx.oracle.spaces[1]
	if sent.Parent == nil || sent.Parent.Label != "t0" || sent.Origin[0] != 5 || sent.Basis[0] != 2 {
		t.Errorf("oracle saw %+v", sent)
	}
}

func TestCreateSpaceNotCommittedWithoutOracle(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.addSpace(t, space.Geom3D, "world")

	tests := []struct {
		name     string
		spec     SpaceSpec
		reject   bool
		wantCode annerrors.ErrorCode
		wantCall bool
	}{
		{
			name:     "short origin",
			spec:     SpaceSpec{Kind: space.Geom3D, Label: "g1", Parent: "world", Origin: []float64{1, 2}, Basis: make([]float64, 9)},
			wantCode: annerrors.InvalidSpaceDefinition,
		},
		{
			name:     "unknown parent",
			spec:     SpaceSpec{Kind: space.Geom3D, Label: "g1", Parent: "mars", Origin: []float64{1, 2, 3}, Basis: make([]float64, 9)},
			wantCode: annerrors.InvalidSpaceDefinition,
		},
		{
			name:     "rejected",
			spec:     SpaceSpec{Kind: space.Geom3D, Label: "g1"},
			reject:   true,
			wantCode: annerrors.OracleRejected,
			wantCall: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx.oracle.success["createSpace"] = !tt.reject
			calls := fx.oracle.count("createSpace")
			before := fx.raw(t)

			_, err := fx.engine.CreateSpace(ctx, tt.spec)
			if !annerrors.Is(err, tt.wantCode) {
				t.Fatalf("err = %v, want %s", err, tt.wantCode)
			}
			if !bytes.Equal(before, fx.raw(t)) {
				t.Error("document changed")
			}
			if called := fx.oracle.count("createSpace") > calls; called != tt.wantCall {
				t.Errorf("oracle called = %v, want %v", called, tt.wantCall)
			}
		})
	}
}

func TestAddSpaceInteractive(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	x0, err := fx.engine.AddSpace(ctx, interp.NewScriptPrompter(
		"Geom1D Coordinate Space", "x0", "Standard Geom1D Coordinate Space"))
	if err != nil {
		t.Fatalf("AddSpace(standard): %v", err)
	}
	if !x0.IsStandard() || x0.Kind != space.Geom1D {
		t.Errorf("x0 = %+v", x0)
	}

	x1, err := fx.engine.AddSpace(ctx, interp.NewScriptPrompter(
		"Geom1D Coordinate Space", "x1", "Derived Geom1D Coordinate Space", "x0", "2", "5"))
	if err != nil {
		t.Fatalf("AddSpace(derived): %v", err)
	}
	if x1.Parent != x0.ID || x1.Basis[0] != 2 || x1.Origin[0] != 5 {
		t.Errorf("x1 = %+v", x1)
	}

	g0, err := fx.engine.AddSpace(ctx, interp.NewScriptPrompter("Geom3D Coordinate Space", "g0", "Standard Geom3D Coordinate Space"))
	if err != nil {
		t.Fatal(err)
	}
	answers := []string{"Geom3D Coordinate Space", "g1", "Derived Geom3D Coordinate Space", "g0",
		"1", "0", "0", "0", "1", "0", "0", "0", "1", "10", "20", "30"}
	g1, err := fx.engine.AddSpace(ctx, interp.NewScriptPrompter(answers...))
	if err != nil {
		t.Fatalf("AddSpace(derived 3D): %v", err)
	}
	if g1.Parent != g0.ID || len(g1.Basis) != 9 || g1.Origin[2] != 30 {
		t.Errorf("g1 = %+v", g1)
	}

	if got := len(fx.load(t).Spaces().All()); got != 4 {
		t.Errorf("registry holds %d spaces, want 4", got)
	}
}

func TestAddSpaceCancelled(t *testing.T) {
	fx := newFixture(t)
	before := fx.raw(t)
	_, err := fx.engine.AddSpace(context.Background(), interp.NewScriptPrompter("Time Coordinate Space", "t9", "Derived Time Coordinate Space"))
	// No Time spaces exist to derive from.
	if !annerrors.Is(err, annerrors.InvalidSpaceDefinition) {
		t.Fatalf("err = %v, want INVALID_SPACE_DEFINITION", err)
	}
	_, err = fx.engine.AddSpace(context.Background(), interp.NewScriptPrompter("Time Coordinate Space"))
	if !annerrors.IsCancelled(err) {
		t.Fatalf("err = %v, want CANCELLED", err)
	}
	if !bytes.Equal(before, fx.raw(t)) {
		t.Error("document changed")
	}
	if fx.oracle.count("createSpace") != 0 {
		t.Error("oracle called for an abandoned space")
	}
}

func TestImportSpacesStopsAtRejection(t *testing.T) {
	fx := newFixture(t)
	defs := []space.Definition{
		{Label: "t0", Kind: "time"},
		{Label: "t1", Kind: "time", Parent: "t0", Origin: []float64{1}, Basis: []float64{60}},
		{Label: "bad", Kind: "time"},
		{Label: "t2", Kind: "time"},
	}
	res, err := fx.engine.ImportSpaces(context.Background(), defs)
	if !annerrors.Is(err, annerrors.OracleRejected) {
		t.Fatalf("err = %v, want ORACLE_REJECTED", err)
	}
	if len(res.Created) != 2 {
		t.Errorf("created %d spaces, want 2", len(res.Created))
	}
	labels := []string{}
	for _, s := range fx.load(t).Spaces().List(space.Time) {
		labels = append(labels, s.Label)
	}
	if strings.Join(labels, ",") != "t0,t1" {
		t.Errorf("stored spaces = %v", labels)
	}
}

func TestAddNote(t *testing.T) {
	fx := newFixture(t)
	term, err := fx.engine.AddNote(context.Background(), FileContext{Path: fileA, Text: sourceA}, rng(2, 11, 2, 13), " fix this ")
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if term.ID != 1 || term.Text != "fix this" || term.CodeSnippet != "dt" || term.NodeType != "identifier" {
		t.Errorf("term = %+v", term)
	}
	if term.Error != store.NotChecked || term.Status != store.StatusPending {
		t.Errorf("defaults = %q, %q", term.Error, term.Status)
	}

	if _, err := fx.engine.AddNote(context.Background(), FileContext{Path: fileA, Text: sourceA}, rng(40, 0, 40, 1), "x"); !annerrors.Is(err, annerrors.InvalidArgument) {
		t.Errorf("out of range note err = %v", err)
	}
	if _, err := fx.engine.AddNote(context.Background(), FileContext{Path: fileA, Text: sourceA}, rng(0, 0, 0, 1), "  "); !annerrors.Is(err, annerrors.InvalidArgument) {
		t.Errorf("empty note err = %v", err)
	}
}

func TestGuardHonoursContext(t *testing.T) {
	g := newGuards(nil)
	release, err := g.acquire(context.Background(), fileA)
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.acquire(ctx, fileA); !annerrors.IsCancelled(err) {
		t.Fatalf("err = %v, want CANCELLED", err)
	}
	other, err := g.acquire(context.Background(), fileB)
	if err != nil {
		t.Fatalf("other file blocked: %v", err)
	}
	other()
}
