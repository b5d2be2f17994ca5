package referent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/voxprint/internal/profile/profilestore"
	"github.com/MrWong99/voxprint/internal/referent"
	embmock "github.com/MrWong99/voxprint/pkg/provider/embeddings/mock"
	"github.com/MrWong99/voxprint/pkg/voice"
)

// ─── validation ──────────────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ri      voice.ReferentInfluences
		wantErr bool
	}{
		{"fresh default", referent.Default(), false},
		{"two influences summing to 100", voice.ReferentInfluences{
			UserWeight: 60,
			Influences: []voice.ReferentInfluence{{Name: "Hemingway", Weight: 25}, {Name: "Attenborough", Weight: 15}},
		}, false},
		{"user at floor", voice.ReferentInfluences{
			UserWeight: 50,
			Influences: []voice.ReferentInfluence{{Name: "A", Weight: 50}},
		}, false},
		{"user below floor", voice.ReferentInfluences{
			UserWeight: 40,
			Influences: []voice.ReferentInfluence{{Name: "A", Weight: 60}},
		}, true},
		{"sum not 100", voice.ReferentInfluences{
			UserWeight: 80,
			Influences: []voice.ReferentInfluence{{Name: "A", Weight: 10}},
		}, true},
		{"four influences", voice.ReferentInfluences{
			UserWeight: 52,
			Influences: []voice.ReferentInfluence{
				{Name: "A", Weight: 12}, {Name: "B", Weight: 12},
				{Name: "C", Weight: 12}, {Name: "D", Weight: 12},
			},
		}, true},
		{"duplicate name case-insensitive", voice.ReferentInfluences{
			UserWeight: 60,
			Influences: []voice.ReferentInfluence{{Name: "Poe", Weight: 20}, {Name: "poe", Weight: 20}},
		}, true},
		{"zero-weight influence", voice.ReferentInfluences{
			UserWeight: 100,
			Influences: []voice.ReferentInfluence{{Name: "A", Weight: 0}},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := referent.Validate(tt.ri)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%+v): err=%v, wantErr=%v", tt.ri, err, tt.wantErr)
			}
		})
	}
}

// ─── edits ───────────────────────────────────────────────────────────────────

func TestAddRemoveRoundTrip(t *testing.T) {
	t.Parallel()

	ri, err := referent.Add(referent.Default(), "Hemingway", 30)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if ri.UserWeight != 70 || len(ri.Influences) != 1 {
		t.Fatalf("unexpected state after add: %+v", ri)
	}
	if err := referent.Validate(ri); err != nil {
		t.Errorf("add produced invalid state: %v", err)
	}

	ri = referent.Remove(ri, "HEMINGWAY")
	if ri.UserWeight != 100 || len(ri.Influences) != 0 {
		t.Errorf("remove did not return weight: %+v", ri)
	}
}

func TestAddEnforcesFloor(t *testing.T) {
	t.Parallel()

	_, err := referent.Add(referent.Default(), "Everything", 51)
	if !errors.Is(err, referent.ErrUserWeightFloor) {
		t.Errorf("expected ErrUserWeightFloor, got: %v", err)
	}

	ri, _ := referent.Add(referent.Default(), "A", 30)
	if _, err := referent.Add(ri, "B", 25); !errors.Is(err, referent.ErrUserWeightFloor) {
		t.Errorf("expected floor violation on second add, got: %v", err)
	}
}

func TestAddRejectsFourthInfluence(t *testing.T) {
	t.Parallel()

	ri := referent.Default()
	var err error
	for _, name := range []string{"A", "B", "C"} {
		if ri, err = referent.Add(ri, name, 10); err != nil {
			t.Fatalf("Add %s: %v", name, err)
		}
	}
	if _, err := referent.Add(ri, "D", 10); err == nil {
		t.Error("fourth influence accepted")
	}
}

func TestSetWeight(t *testing.T) {
	t.Parallel()

	ri, _ := referent.Add(referent.Default(), "A", 20)

	// Raise within bounds.
	ri, err := referent.SetWeight(ri, "A", 40)
	if err != nil {
		t.Fatalf("SetWeight: %v", err)
	}
	if ri.UserWeight != 60 || ri.Influences[0].Weight != 40 {
		t.Errorf("unexpected state: %+v", ri)
	}

	// Zero removes.
	ri, err = referent.SetWeight(ri, "a", 0)
	if err != nil {
		t.Fatalf("SetWeight to 0: %v", err)
	}
	if ri.UserWeight != 100 || len(ri.Influences) != 0 {
		t.Errorf("zero weight did not remove: %+v", ri)
	}

	// Unknown name behaves like Add.
	ri, err = referent.SetWeight(ri, "B", 25)
	if err != nil {
		t.Fatalf("SetWeight unknown: %v", err)
	}
	if ri.UserWeight != 75 {
		t.Errorf("unexpected state: %+v", ri)
	}
}

func TestEditsDoNotMutateInput(t *testing.T) {
	t.Parallel()

	original, _ := referent.Add(referent.Default(), "A", 20)
	snapshot := original.Influences[0]

	if _, err := referent.SetWeight(original, "A", 45); err != nil {
		t.Fatal(err)
	}
	referent.Remove(original, "A")

	if original.UserWeight != 80 || original.Influences[0] != snapshot {
		t.Errorf("input was mutated: %+v", original)
	}
}

// ─── suggestion ──────────────────────────────────────────────────────────────

func TestSuggest_RanksBySimilarity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := profilestore.NewMemStore()
	add := func(id string, embedding []float32) {
		t.Helper()
		err := store.AddSample(ctx, &voice.WritingSample{ID: id, UserID: "u1", Text: id, Embedding: embedding})
		if err != nil {
			t.Fatal(err)
		}
	}
	add("s1", []float32{1, 0})
	add("s2", []float32{0.9, 0.1})

	emb := &embmock.Provider{
		EmbedBatchResult: [][]float32{
			{0, 1}, // "Distant" style, orthogonal to the samples
			{1, 0}, // "Close" style, aligned with the samples
		},
		DimensionsValue: 2,
	}

	s := referent.NewSuggester(emb, store)
	got, err := s.Suggest(ctx, "u1", []referent.Candidate{
		{Name: "Distant", Description: "terse legal prose"},
		{Name: "Close", Description: "warm conversational prose"},
	})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0].Name != "Close" || got[1].Name != "Distant" {
		t.Errorf("wrong ranking: %+v", got)
	}
	if got[0].Score <= got[1].Score {
		t.Errorf("scores not descending: %+v", got)
	}
}

func TestSuggest_NoEmbeddedSamples(t *testing.T) {
	t.Parallel()

	emb := &embmock.Provider{EmbedBatchResult: [][]float32{{1, 0}}}
	s := referent.NewSuggester(emb, profilestore.NewMemStore())

	got, err := s.Suggest(context.Background(), "nobody", []referent.Candidate{{Name: "A", Description: "d"}})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty ranking, got %+v", got)
	}
}
