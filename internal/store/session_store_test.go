package store_test

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"argoya/internal/domain"
	"argoya/internal/store"
)

func TestSessionStore_DedupByID(t *testing.T) {
	s := store.NewSessionStore()

	if !s.Append(domain.Message{ID: "m1", Text: "a"}) {
		t.Fatal("first append of m1 should insert")
	}
	if s.Append(domain.Message{ID: "m1", Text: "changed"}) {
		t.Fatal("second append of m1 should be rejected")
	}
	if !s.Contains("m1") {
		t.Fatal("m1 should be stored")
	}
	if s.Contains("") {
		t.Fatal("empty id is never 'contained'")
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	for m := range s.All() {
		if m.Text != "a" {
			t.Fatalf("stored message mutated: %q", m.Text)
		}
	}
}

func TestSessionStore_EmptyIDAlwaysAppended(t *testing.T) {
	s := store.NewSessionStore()
	for i := 0; i < 3; i++ {
		if !s.Append(domain.Message{Text: "hello", Own: true}) {
			t.Fatalf("append %d without id rejected", i)
		}
	}
	if s.Len() != 3 {
		t.Fatalf("len = %d, want 3", s.Len())
	}
}

func TestSessionStore_AllIsOrderedAndRestartable(t *testing.T) {
	s := store.NewSessionStore()
	want := []domain.MessageID{"a", "b", "c", "d"}
	for _, id := range want {
		s.Append(domain.Message{ID: id})
	}

	seq := s.All()
	for pass := 0; pass < 2; pass++ {
		var got []domain.MessageID
		for m := range seq {
			got = append(got, m.ID)
		}
		if !slices.Equal(got, want) {
			t.Fatalf("pass %d: got %v, want %v", pass, got, want)
		}
	}

	// Early break stops the walk.
	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("early break visited %d", n)
	}
}

func TestSessionStore_IterationSurvivesClear(t *testing.T) {
	s := store.NewSessionStore()
	s.Append(domain.Message{ID: "a", Text: "first"})
	s.Append(domain.Message{ID: "b", Text: "second"})

	var got []string
	for m := range s.All() {
		s.Clear()
		got = append(got, m.Text)
	}
	if !slices.Equal(got, []string{"first", "second"}) {
		t.Fatalf("got %v", got)
	}
	if s.Len() != 0 || s.Contains("a") {
		t.Fatal("store should be empty after Clear")
	}
	if !s.Append(domain.Message{ID: "a"}) {
		t.Fatal("ids are forgotten after Clear")
	}
}

// Any delivery order or duplication of a batch grows the log by exactly the
// number of distinct ids.
func TestSessionStore_DistinctIDsUnderShuffledDuplicates(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 50; round++ {
		distinct := 1 + r.IntN(20)
		var batch []domain.Message
		for i := 0; i < distinct; i++ {
			copies := 1 + r.IntN(4)
			for c := 0; c < copies; c++ {
				batch = append(batch, domain.Message{ID: domain.MessageID(fmt.Sprintf("m%d", i))})
			}
		}
		r.Shuffle(len(batch), func(i, j int) { batch[i], batch[j] = batch[j], batch[i] })

		s := store.NewSessionStore()
		for _, m := range batch {
			s.Append(m)
		}
		if s.Len() != distinct {
			t.Fatalf("round %d: len = %d, want %d", round, s.Len(), distinct)
		}
	}
}

func TestSessionStore_ConcurrentAppend(t *testing.T) {
	s := store.NewSessionStore()

	const writers, ids = 8, 200
	var inserted sync.Map
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < ids; i++ {
				id := domain.MessageID(fmt.Sprintf("m%d", i))
				if s.Append(domain.Message{ID: id}) {
					if _, loaded := inserted.LoadOrStore(id, true); loaded {
						t.Errorf("%s inserted twice", id)
					}
				}
				for range s.All() {
				}
			}
		}()
	}
	wg.Wait()

	if s.Len() != ids {
		t.Fatalf("len = %d, want %d", s.Len(), ids)
	}
}
