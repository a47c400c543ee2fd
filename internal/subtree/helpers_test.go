package subtree_test

import (
	"context"
	"errors"
	"fmt"

	podstromerrors "github.com/fmfi-svt/podstrom/internal/errors"
	"github.com/fmfi-svt/podstrom/internal/git"
)

// countingStore wraps a store, counting calls and optionally failing commit writes
type countingStore struct {
	git.ObjectStore
	writes       map[git.ObjectType]int
	reads        int
	failCommitAt int // fail the n-th commit write (1-based); 0 never fails
}

func (s *countingStore) ReadObject(ctx context.Context, id git.ObjectID) (git.ObjectType, []byte, error) {
	s.reads++
	return s.ObjectStore.ReadObject(ctx, id)
}

func (s *countingStore) WriteObject(ctx context.Context, objType git.ObjectType, payload []byte) (git.ObjectID, error) {
	if s.writes == nil {
		s.writes = make(map[git.ObjectType]int)
	}
	s.writes[objType]++
	if objType == git.CommitObject && s.failCommitAt > 0 && s.writes[objType] == s.failCommitAt {
		return "", podstromerrors.NewStoreWriteError(string(objType), errors.New("hash-object returned 128"))
	}
	return s.ObjectStore.WriteObject(ctx, objType, payload)
}

// cyclicStore serves hand-made commit bodies by id, which allows histories
// no content-addressed store could hold
type cyclicStore struct {
	git.ObjectStore
	bodies map[git.ObjectID]string
}

func (s *cyclicStore) ReadObject(ctx context.Context, id git.ObjectID) (git.ObjectType, []byte, error) {
	if body, ok := s.bodies[id]; ok {
		return git.CommitObject, []byte(body), nil
	}
	return s.ObjectStore.ReadObject(ctx, id)
}

func (s *cyclicStore) Inspect(ctx context.Context, query string) (git.ObjectInfo, error) {
	for id := range s.bodies {
		if query == id.String()+":sub" {
			return git.ObjectInfo{Missing: true}, nil
		}
	}
	return s.ObjectStore.Inspect(ctx, query)
}

func fakeCommitBody(tree git.ObjectID, parents ...git.ObjectID) string {
	body := fmt.Sprintf("tree %s\n", tree)
	for _, p := range parents {
		body += fmt.Sprintf("parent %s\n", p)
	}
	return body + "author A <a@example.com> 1577880000 +0000\ncommitter A <a@example.com> 1577880000 +0000\n\nloop\n"
}
