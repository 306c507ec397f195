package index

import "testing"

func TestPathLockIdentity(t *testing.T) {
	a := PathLock("./data/index/index.json")
	b := PathLock("data/index/index.json")
	if a != b {
		t.Fatal("equivalent paths must share one lock")
	}
	c := PathLock("/other/index.json")
	if a == c {
		t.Fatal("distinct paths must not share a lock")
	}
}
