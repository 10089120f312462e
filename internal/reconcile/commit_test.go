package reconcile

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	annerrors "annot/internal/errors"
	"annot/internal/interp"
	"annot/internal/oracle"
	"annot/internal/space"
)

// TestFailedCommitLeavesDocument covers every endpoint that confirms a change
// against every way the oracle can refuse it. None may touch the document.
func TestFailedCommitLeavesDocument(t *testing.T) {
	file := FileContext{Path: fileA, Text: sourceA}

	failures := []struct {
		name string
		set  func(f *fakeOracle, endpoint string)
		want annerrors.ErrorCode
	}{
		{
			name: "server error",
			set:  func(f *fakeOracle, endpoint string) { f.status[endpoint] = http.StatusBadGateway },
			want: annerrors.OracleTransportFailure,
		},
		{
			name: "connection closed",
			set:  func(f *fakeOracle, endpoint string) { f.hangup[endpoint] = true },
			want: annerrors.OracleTransportFailure,
		},
		{
			name: "rejected",
			set:  func(f *fakeOracle, endpoint string) { f.success[endpoint] = false },
			want: annerrors.OracleRejected,
		},
	}

	commits := []struct {
		endpoint string
		run      func(t *testing.T, ctx context.Context, fx *fixture) error
	}{
		{
			endpoint: "createTermInterpretation",
			run: func(t *testing.T, ctx context.Context, fx *fixture) error {
				term := fx.load(t).Terms[0]
				_, err := fx.engine.AssignInterpretation(ctx, file, term.ID, Assignment{
					Variant: interp.Duration,
					Name:    "dt",
					Params:  interp.Params{Space: "t0", Values: []float64{3.5}},
				})
				return err
			},
		},
		{
			endpoint: "createConstructorInterpretation",
			run: func(t *testing.T, ctx context.Context, fx *fixture) error {
				cons := fx.load(t).Constructors[0]
				_, err := fx.engine.AssignInterpretation(ctx, file, cons.ID, Assignment{
					Variant: interp.Scalar,
					Params:  interp.Params{Values: []float64{2}},
				})
				return err
			},
		},
		{
			endpoint: "createSpace",
			run: func(t *testing.T, ctx context.Context, fx *fixture) error {
				_, err := fx.engine.CreateSpace(ctx, SpaceSpec{
					Kind: space.Time, Label: "t1", Parent: "t0", Origin: []float64{1}, Basis: []float64{60},
				})
				return err
			},
		},
	}

	for _, c := range commits {
		for _, f := range failures {
			t.Run(c.endpoint+"/"+f.name, func(t *testing.T) {
				fx := newFixture(t)
				ctx := context.Background()
				fx.addSpace(t, space.Time, "t0")
				fx.oracle.populateBody = populateBody
				if _, err := fx.engine.Populate(ctx, file); err != nil {
					t.Fatalf("Populate: %v", err)
				}
				// An empty check reply leaves every term as it is.
				fx.oracle.checkFn = func(oracle.CheckRequest) interface{} { return []oracle.Term{} }

				before := fx.raw(t)
				f.set(fx.oracle, c.endpoint)

				err := c.run(t, ctx, fx)
				if !annerrors.Is(err, f.want) {
					t.Fatalf("err = %v, want %s", err, f.want)
				}
				if fx.oracle.count(c.endpoint) == 0 {
					t.Errorf("%s was never called", c.endpoint)
				}
				if !bytes.Equal(before, fx.raw(t)) {
					t.Errorf("document changed after a failed %s:\n%s", c.endpoint, fx.raw(t))
				}

				doc := fx.load(t)
				for _, term := range doc.Terms {
					if term.Interpretation != nil {
						t.Errorf("term %d holds %q", term.ID, term.Interpretation.Header().Label)
					}
				}
				for _, cons := range doc.Constructors {
					if cons.Interpretation != nil {
						t.Errorf("constructor %d holds %q", cons.ID, cons.Interpretation.Header().Label)
					}
				}
				if n := len(doc.Spaces().All()); n != 1 {
					t.Errorf("registry holds %d spaces, want 1", n)
				}
			})
		}
	}
}
