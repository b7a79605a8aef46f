package store

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPostFilterBSON(t *testing.T) {
	if got := postFilterBSON(PostFilter{}); len(got) != 0 {
		t.Fatalf("empty filter should match everything, got %v", got)
	}

	q := "a.b"
	got := postFilterBSON(PostFilter{TitleContains: &q, AnyTag: []string{"x"}})
	or, ok := got["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("expected two $or branches, got %v", got)
	}
	re, ok := or[0].(bson.M)["title"].(primitive.Regex)
	if !ok {
		t.Fatalf("title branch is not a regex: %v", or[0])
	}
	if re.Pattern != `a\.b` || re.Options != "i" {
		t.Fatalf("unexpected regex %+v", re)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike("50%_off!"); got != "50!%!_off!!" {
		t.Fatalf("escapeLike = %q", got)
	}
}
