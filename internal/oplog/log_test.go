package oplog

import (
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/warpdl/cookiestore/pkg/cookie"
)

func testCookie(name string, access int) *cookie.Canonical {
	return &cookie.Canonical{
		Name:       name,
		Value:      "v",
		Domain:     "example.com",
		Path:       "/",
		LastAccess: time.Unix(int64(access), 0),
	}
}

func kinds(ops []Operation) []Kind {
	out := make([]Kind, len(ops))
	for i, op := range ops {
		out[i] = op.Kind
	}
	return out
}

func TestEnqueueCoalescing(t *testing.T) {
	tests := []struct {
		name string
		in   []Kind
		want []Kind
	}{
		{"add", []Kind{Add}, []Kind{Add}},
		{"add then update", []Kind{Add, UpdateAccess}, []Kind{Add, UpdateAccess}},
		{"updates collapse", []Kind{Add, UpdateAccess, UpdateAccess, UpdateAccess}, []Kind{Add, UpdateAccess}},
		{"delete clears", []Kind{Add, UpdateAccess, Delete}, []Kind{Delete}},
		{"delete then add", []Kind{Delete, Add}, []Kind{Delete, Add}},
		{"add never coalesced", []Kind{Add, Add}, []Kind{Add, Add}},
		{"update after delete", []Kind{Delete, UpdateAccess, UpdateAccess}, []Kind{Delete, UpdateAccess}},
		{"recreate cycle", []Kind{Add, Delete, Add, UpdateAccess, Delete, Add}, []Kind{Delete, Add}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			for i, k := range tt.in {
				l.Enqueue(k, testCookie("a", i))
			}
			b := l.DrainAll()
			got := kinds(b.Ops[cookie.Key{Name: "a", Domain: "example.com", Path: "/"}])
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
			if b.Len() != len(tt.want) {
				t.Fatalf("expected Len %d, got %d", len(tt.want), b.Len())
			}
		})
	}
}

func TestEnqueueReturnsPendingCount(t *testing.T) {
	l := New()
	if n := l.Enqueue(Add, testCookie("a", 0)); n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}
	if n := l.Enqueue(Add, testCookie("b", 0)); n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}
	if n := l.Enqueue(Delete, testCookie("a", 0)); n != 2 {
		t.Fatalf("expected delete to replace the add, got %d", n)
	}
	if l.Size() != 2 {
		t.Fatalf("expected Size 2, got %d", l.Size())
	}
	l.DrainAll()
	if l.Size() != 0 {
		t.Fatalf("expected empty log after drain, got %d", l.Size())
	}
	if n := l.Enqueue(Add, testCookie("c", 0)); n != 1 {
		t.Fatalf("expected count to restart at 1, got %d", n)
	}
}

func TestEnqueueClonesRecord(t *testing.T) {
	l := New()
	c := testCookie("a", 1)
	l.Enqueue(Add, c)
	c.Value = "mutated"
	var got string
	l.DrainAll().Each(func(op Operation) { got = op.Cookie.Value })
	if got != "v" {
		t.Fatalf("expected queued copy to be unaffected, got %q", got)
	}
}

func TestBatchPreservesFirstSeenOrder(t *testing.T) {
	l := New()
	for _, n := range []string{"c", "a", "b", "a", "c"} {
		l.Enqueue(Add, testCookie(n, 0))
	}
	var names []string
	l.DrainAll().Each(func(op Operation) { names = append(names, op.Cookie.Name) })
	want := []string{"c", "c", "a", "a", "b"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}

// model is a store keyed by identity, used to compare coalesced and
// uncoalesced application.
type model map[cookie.Key]*cookie.Canonical

func (m model) apply(op Operation) {
	k := op.Cookie.Key()
	switch op.Kind {
	case Add:
		m[k] = op.Cookie.Clone()
	case UpdateAccess:
		if c, ok := m[k]; ok {
			c.LastAccess = op.Cookie.LastAccess
		}
	case Delete:
		delete(m, k)
	}
}

func TestCoalescingMatchesReferenceModel(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	names := []string{"a", "b", "c"}
	for iter := 0; iter < 2000; iter++ {
		initial := model{}
		for _, n := range names {
			if rng.IntN(2) == 0 {
				initial[testCookie(n, 0).Key()] = testCookie(n, 0)
			}
		}
		reference := model{}
		coalesced := model{}
		for k, v := range initial {
			reference[k] = v.Clone()
			coalesced[k] = v.Clone()
		}

		l := New()
		steps := 1 + rng.IntN(8)
		for i := 0; i < steps; i++ {
			op := Operation{Kind: Kind(rng.IntN(3)), Cookie: testCookie(names[rng.IntN(len(names))], i+1)}
			reference.apply(op)
			l.Enqueue(op.Kind, op.Cookie)
		}
		l.DrainAll().Each(coalesced.apply)

		if len(reference) != len(coalesced) {
			t.Fatalf("iteration %d: size mismatch %d vs %d", iter, len(reference), len(coalesced))
		}
		for k, want := range reference {
			got, ok := coalesced[k]
			if !ok || !got.Equal(want) {
				t.Fatalf("iteration %d: %v mismatch: want %+v got %+v", iter, k, want, got)
			}
		}
	}
}

func TestConcurrentEnqueueAndDrain(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	const writers, perWriter = 4, 500
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				c := testCookie(string(rune('a'+w)), i)
				c.Path = "/" + string(rune('a'+i%26))
				l.Enqueue(Add, c)
			}
		}(w)
	}
	total := 0
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	for {
		select {
		case <-done:
			total += l.DrainAll().Len()
			if total != writers*perWriter {
				t.Fatalf("expected %d operations, got %d", writers*perWriter, total)
			}
			return
		default:
			total += l.DrainAll().Len()
		}
	}
}

func TestKindString(t *testing.T) {
	if Add.String() != "add" || UpdateAccess.String() != "update_access" || Delete.String() != "delete" || Kind(9).String() != "unknown" {
		t.Fatal("unexpected Kind strings")
	}
}
