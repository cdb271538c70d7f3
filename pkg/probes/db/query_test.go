package db

import (
	"testing"

	"github.com/gma1k/podtrace/pkg/trace"
	"github.com/stretchr/testify/assert"
)

func TestQueryTruncatesAtFirstSpace(t *testing.T) {
	tbl := NewQueryTable()
	ring := trace.NewRing(8)
	sb := trace.NewSideband(64)

	QueryEntry(tbl, 1, 1, 0, "SELECT * FROM widgets")
	QueryExit(tbl, ring, sb, 1, 1, 10, 1, nil)

	ev := <-ring.Events()
	assert.Equal(t, trace.EventDBQuery, ev.Type)
	assert.Equal(t, "SELECT", ev.Target)
}

func TestQueryTruncatesAtTabAndNewline(t *testing.T) {
	assert.Equal(t, "UPDATE", truncateVerb("UPDATE\tfoo SET x=1"))
	assert.Equal(t, "DELETE", truncateVerb("DELETE\nfoo"))
}

func TestQueryExitWithoutEntryIsDropped(t *testing.T) {
	tbl := NewQueryTable()
	ring := trace.NewRing(8)
	sb := trace.NewSideband(64)

	QueryExit(tbl, ring, sb, 1, 1, 10, 1, nil)

	select {
	case <-ring.Events():
		t.Fatal("expected no event for unmatched exit")
	default:
	}
}
