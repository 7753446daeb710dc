package embed_test

import (
	"context"
	"testing"

	"github.com/rootsignal/scout/internal/embed"
)

type fakeEmbedder struct {
	calls int
	vec   []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vec, nil
}
func (f *fakeEmbedder) Dim() int      { return 3 }
func (f *fakeEmbedder) Model() string { return "test-model" }

func TestEmbedCachesWithinRun(t *testing.T) {
	fe := &fakeEmbedder{vec: []float32{1, 2, 3}}
	c := embed.New(fe, nil)

	v1, err := c.Embed(context.Background(), "a vigil downtown tonight")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	v2, err := c.Embed(context.Background(), "a vigil downtown tonight")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if fe.calls != 1 {
		t.Fatalf("embedder called %d times, want 1 (second call should hit the in-run cache)", fe.calls)
	}
	if len(v1) != 3 || len(v2) != 3 {
		t.Fatalf("unexpected vector length")
	}
}

func TestContentHashIsStable(t *testing.T) {
	if embed.ContentHash("same text") != embed.ContentHash("same text") {
		t.Fatal("ContentHash should be deterministic for identical input")
	}
	if embed.ContentHash("a") == embed.ContentHash("b") {
		t.Fatal("ContentHash should differ for different input")
	}
}
