package store

import (
	"context"
	"testing"

	"github.com/erazemk/soseska/internal/db"
)

func TestConversation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	apt := newApartment(t, database, "Block A")
	ana := newResident(t, database, "ana", apt.ID, nil)
	bor := newResident(t, database, "bor", apt.ID, nil)
	cene := newResident(t, database, "cene", apt.ID, nil)

	CreateMessage(ctx, database, ana.ID, bor.ID, "hi bor")
	CreateMessage(ctx, database, bor.ID, ana.ID, "hi ana")
	CreateMessage(ctx, database, cene.ID, ana.ID, "hello from cene")
	last, _ := CreateMessage(ctx, database, bor.ID, ana.ID, "got a drill?")

	msgs, err := ListConversation(ctx, database, ana.ID, bor.ID)
	if err != nil {
		t.Fatalf("ListConversation: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages with bor, got %d", len(msgs))
	}
	if msgs[0].Body != "hi bor" || msgs[2].Body != "got a drill?" {
		t.Errorf("expected oldest first, got %q ... %q", msgs[0].Body, msgs[2].Body)
	}

	convs, err := ListConversations(ctx, database, ana.ID)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if convs[0].Peer.ID != bor.ID || convs[0].LastMessage.ID != last.ID {
		t.Errorf("expected latest conversation with bor, got %+v", convs[0])
	}
	if convs[0].Unread != 2 {
		t.Errorf("expected 2 unread from bor, got %d", convs[0].Unread)
	}
	if convs[1].Peer.ID != cene.ID || convs[1].Unread != 1 {
		t.Errorf("expected conversation with cene with 1 unread, got %+v", convs[1])
	}
}

func TestMarkMessageRead(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	apt := newApartment(t, database, "Block A")
	ana := newResident(t, database, "ana", apt.ID, nil)
	bor := newResident(t, database, "bor", apt.ID, nil)

	msg, _ := CreateMessage(ctx, database, ana.ID, bor.ID, "hi")

	// Only the recipient can mark a message read.
	ok, err := MarkMessageRead(ctx, database, msg.ID, ana.ID)
	if err != nil {
		t.Fatalf("MarkMessageRead: %v", err)
	}
	if ok {
		t.Error("expected sender not to mark message read")
	}

	ok, _ = MarkMessageRead(ctx, database, msg.ID, bor.ID)
	if !ok {
		t.Error("expected recipient to mark message read")
	}

	got, _ := GetMessage(ctx, database, msg.ID)
	if got.ReadAt == nil {
		t.Error("expected read_at to be set")
	}
}
