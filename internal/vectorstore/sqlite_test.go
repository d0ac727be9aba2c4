package vectorstore

import (
	"context"
	"errors"
	"math"
	"testing"
)

// fakeSource serves vectors in a fixed order.
type fakeSource struct {
	ids  []string
	vecs [][]float32
	err  error
}

func (f *fakeSource) EachGoalVector(ctx context.Context, fn func(string, []float32) error) error {
	if f.err != nil {
		return f.err
	}
	for i := range f.ids {
		if err := fn(f.ids[i], f.vecs[i]); err != nil {
			return err
		}
	}
	return nil
}

func TestSQLiteStore_Search(t *testing.T) {
	source := &fakeSource{
		ids: []string{"x", "xy", "y", "neg", "zero", "wide"},
		vecs: [][]float32{
			{1, 0},
			{1, 1},
			{0, 1},
			{-1, 0},
			{0, 0},
			{1, 0, 0},
		},
	}
	store := NewSQLiteStore(source)

	tests := []struct {
		name    string
		query   []float32
		k       int
		wantIDs []string
	}{
		{
			name:    "ranked by cosine similarity",
			query:   []float32{1, 0},
			k:       10,
			wantIDs: []string{"x", "xy", "y", "neg"},
		},
		{
			name:    "truncated to k",
			query:   []float32{0, 2},
			k:       2,
			wantIDs: []string{"y", "xy"},
		},
		{
			name:    "zero query",
			query:   []float32{0, 0},
			k:       5,
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Search(context.Background(), tt.query, tt.k)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(results) != len(tt.wantIDs) {
				t.Fatalf("Search() returned %d results, want %d: %+v", len(results), len(tt.wantIDs), results)
			}
			for i, id := range tt.wantIDs {
				if results[i].PointID != id {
					t.Errorf("result %d = %s, want %s", i, results[i].PointID, id)
				}
			}
		})
	}
}

func TestSQLiteStore_SearchScores(t *testing.T) {
	store := NewSQLiteStore(&fakeSource{
		ids:  []string{"xy"},
		vecs: [][]float32{{1, 1}},
	})

	results, err := store.Search(context.Background(), []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	want := float32(1 / math.Sqrt2)
	if math.Abs(float64(results[0].Score-want)) > 1e-6 {
		t.Errorf("Score = %v, want %v", results[0].Score, want)
	}
}

func TestSQLiteStore_Errors(t *testing.T) {
	ctx := context.Background()

	store := NewSQLiteStore(&fakeSource{err: errors.New("db closed")})
	if _, err := store.Search(ctx, []float32{1}, 1); err == nil {
		t.Error("Search() should return source error")
	}
	if _, err := store.Search(ctx, []float32{1}, 0); err == nil {
		t.Error("Search() with k=0 should return error")
	}
}

func TestSQLiteStore_NoOps(t *testing.T) {
	store := NewSQLiteStore(&fakeSource{})
	ctx := context.Background()

	if err := store.Upsert(ctx, []Point{{ID: "a", Vec: []float32{1}}}); err != nil {
		t.Errorf("Upsert() error = %v", err)
	}
	if err := store.Delete(ctx, []string{"a"}); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if err := store.Check(ctx); err != nil {
		t.Errorf("Check() error = %v", err)
	}
}
