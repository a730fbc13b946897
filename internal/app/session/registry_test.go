package session

import (
	"reflect"
	"testing"
	"time"

	"syncboard/internal/app/protocol"
)

func TestRegistryLabelsSortedWithoutSelf(t *testing.T) {
	r := NewRegistry(0)
	now := time.Now()

	r.Touch("Zoe", protocol.Point{X: 1, Y: 1}, now)
	r.Touch("Me", protocol.Point{X: 2, Y: 2}, now)
	r.Touch("Ann", protocol.Point{X: 3, Y: 3}, now)
	r.Touch("Zoe", protocol.Point{X: 4, Y: 5}, now)

	want := []Label{{Name: "Ann", X: 3, Y: 3}, {Name: "Zoe", X: 4, Y: 5}}
	if got := r.Labels("Me"); !reflect.DeepEqual(got, want) {
		t.Fatalf("labels = %+v, want %+v", got, want)
	}
	if r.Len() != 3 {
		t.Fatalf("len = %d", r.Len())
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(0)
	r.Touch("Ann", protocol.Point{}, time.Now())

	if !r.Remove("Ann") {
		t.Fatal("Remove should report a present entry")
	}
	if r.Remove("Ann") {
		t.Fatal("second Remove should report false")
	}
}

func TestRegistryPrune(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	forever := NewRegistry(0)
	forever.Touch("Ann", protocol.Point{}, start)
	if removed := forever.Prune(start.Add(24 * time.Hour)); removed != nil {
		t.Fatalf("zero ttl pruned %v", removed)
	}

	r := NewRegistry(10 * time.Second)
	r.Touch("Bob", protocol.Point{}, start)
	r.Touch("Ann", protocol.Point{}, start)
	r.Touch("Cat", protocol.Point{}, start.Add(8*time.Second))

	removed := r.Prune(start.Add(11 * time.Second))
	if !reflect.DeepEqual(removed, []string{"Ann", "Bob"}) {
		t.Fatalf("removed = %v", removed)
	}
	if _, ok := r.Get("Cat"); !ok {
		t.Fatal("fresh entry was pruned")
	}
}
