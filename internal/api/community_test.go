package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/erazemk/soseska/internal/model"
	"github.com/erazemk/soseska/internal/store"
)

func TestApartmentsAdminFlow(t *testing.T) {
	env := setupTestServer(t)
	_, superToken := env.user(t, "root", model.RoleSuperAdmin, nil)
	future, residentToken := env.user(t, "future", model.RoleResident, nil)

	body := map[string]any{
		"name": "Block A", "address": "Main street 1", "pincode": "1000",
		"location": map[string]float64{"lng": 14.5, "lat": 46.05}, "admin_user_id": future.ID,
	}
	if status := env.call(t, "POST", "/api/admin/apartments", residentToken, body, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for resident creating apartment, got %d", status)
	}

	var apt model.Apartment
	if status := env.call(t, "POST", "/api/admin/apartments", superToken, body, &apt); status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}

	var admin model.UserRef
	if status := env.call(t, "GET", fmt.Sprintf("/api/admin/apartments/%d/admin", apt.ID), residentToken, nil, &admin); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if admin.ID != future.ID {
		t.Errorf("expected admin %d, got %d", future.ID, admin.ID)
	}

	// The promotion applies to the existing token.
	var me model.User
	env.call(t, "GET", "/api/auth/me", residentToken, nil, &me)
	if me.Role != model.RoleApartmentAdmin || me.ApartmentID == nil || *me.ApartmentID != apt.ID {
		t.Errorf("expected promoted admin of %d, got %s / %v", apt.ID, me.Role, me.ApartmentID)
	}

	var apartments []model.Apartment
	env.call(t, "GET", "/api/admin/apartments", "", nil, &apartments)
	if len(apartments) != 1 || apartments[0].Name != "Block A" {
		t.Errorf("unexpected apartments: %v", apartments)
	}

	empty := env.apartment(t, "Block B")
	if status := env.call(t, "GET", fmt.Sprintf("/api/admin/apartments/%d/admin", empty), residentToken, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 for apartment without admin, got %d", status)
	}
}

func TestApprovalScopedToApartment(t *testing.T) {
	env := setupTestServer(t)
	aptX := env.apartment(t, "Block X")
	aptY := env.apartment(t, "Block Y")
	_, adminX := env.user(t, "adminx", model.RoleApartmentAdmin, &aptX)
	_, superToken := env.user(t, "root", model.RoleSuperAdmin, nil)
	_, residentToken := env.user(t, "resident", model.RoleResident, &aptX)
	pendingX, pendingToken := env.userWithStatus(t, "px", model.RoleResident, &aptX, model.UserStatusPending)
	pendingY, _ := env.userWithStatus(t, "py", model.RoleResident, &aptY, model.UserStatusPending)

	var pending []model.User
	if status := env.call(t, "GET", fmt.Sprintf("/api/admin/apartments/%d/pending-users", aptX), adminX, nil, &pending); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(pending) != 1 || pending[0].ID != pendingX.ID {
		t.Errorf("expected only %d pending, got %v", pendingX.ID, pending)
	}
	if status := env.call(t, "GET", fmt.Sprintf("/api/admin/apartments/%d/pending-users", aptY), adminX, nil, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 listing another apartment, got %d", status)
	}
	if status := env.call(t, "GET", fmt.Sprintf("/api/admin/apartments/%d/pending-users", aptX), residentToken, nil, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for resident, got %d", status)
	}

	if status := env.call(t, "POST", "/api/admin/approve-user", adminX, map[string]any{
		"user_id": pendingY.ID, "approve": true,
	}, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 approving another apartment's user, got %d", status)
	}
	if status := env.call(t, "POST", "/api/admin/approve-user", adminX, map[string]any{
		"user_id": pendingX.ID, "approve": true,
	}, nil); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if status := env.call(t, "POST", "/api/admin/approve-user", superToken, map[string]any{
		"user_id": pendingY.ID, "approve": false,
	}, nil); status != http.StatusOK {
		t.Fatalf("expected 200 for super admin, got %d", status)
	}

	var notes []model.Notification
	env.call(t, "GET", "/api/notifications", pendingToken, nil, &notes)
	if len(notes) != 1 || notes[0].Kind != model.NotificationAccountApproved {
		t.Errorf("expected approval notification, got %v", notes)
	}

	y, _ := store.GetUser(context.Background(), env.db, pendingY.ID)
	if y.Status != model.UserStatusRejected {
		t.Errorf("expected rejected, got %q", y.Status)
	}
}

func TestEventsFlow(t *testing.T) {
	env := setupTestServer(t)
	aptA := env.apartment(t, "Block A")
	aptB := env.apartment(t, "Block B")
	_, aliceToken := env.user(t, "alice", model.RoleResident, &aptA)
	bob, bobToken := env.user(t, "bob", model.RoleResident, &aptA)
	_, outsiderToken := env.user(t, "outsider", model.RoleResident, &aptB)

	if status := env.call(t, "POST", "/api/events", aliceToken, map[string]string{
		"title": "Party", "date": "tomorrow",
	}, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date, got %d", status)
	}

	later := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	sooner := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)

	var party model.Event
	if status := env.call(t, "POST", "/api/events", aliceToken, map[string]string{
		"title": "Party", "description": "Rooftop", "date": later,
	}, &party); status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	env.call(t, "POST", "/api/events", bobToken, map[string]string{"title": "Cleanup", "date": sooner}, nil)

	var events []model.Event
	if status := env.call(t, "GET", fmt.Sprintf("/api/events/%d", aptA), bobToken, nil, &events); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(events) != 2 || events[0].Title != "Cleanup" {
		t.Errorf("expected events ordered by date, got %v", events)
	}
	if status := env.call(t, "GET", fmt.Sprintf("/api/events/%d", aptA), outsiderToken, nil, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for outsider, got %d", status)
	}

	rsvp := fmt.Sprintf("/api/events/%d/rsvp", party.ID)
	var updated model.Event
	if status := env.call(t, "PATCH", rsvp, bobToken, nil, &updated); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(updated.Attendees) != 1 || updated.Attendees[0].ID != bob.ID {
		t.Errorf("expected bob attending, got %v", updated.Attendees)
	}

	var errResp map[string]string
	if status := env.call(t, "PATCH", rsvp, bobToken, nil, &errResp); status != http.StatusBadRequest {
		t.Errorf("expected 400 for second RSVP, got %d", status)
	}
	if errResp["error"] != "already RSVPed" {
		t.Errorf("unexpected error message %q", errResp["error"])
	}
	if status := env.call(t, "PATCH", rsvp, outsiderToken, nil, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for outsider RSVP, got %d", status)
	}
	if status := env.call(t, "PATCH", "/api/events/999/rsvp", bobToken, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 for missing event, got %d", status)
	}
}

func TestNearbyUsers(t *testing.T) {
	env := setupTestServer(t)
	apt := env.apartment(t, "Block A")
	ctx := context.Background()

	me, token := env.user(t, "me", model.RoleResident, &apt)
	near, _ := env.user(t, "near", model.RoleResident, &apt)
	far, _ := env.user(t, "far", model.RoleResident, &apt)
	store.UpdateUserProfile(ctx, env.db, me.ID, me.Name, "", "", &model.Point{Lng: 14.5058, Lat: 46.0569})
	store.UpdateUserProfile(ctx, env.db, near.ID, near.Name, "", "1A", &model.Point{Lng: 14.5080, Lat: 46.0569})
	store.UpdateUserProfile(ctx, env.db, far.ID, far.Name, "", "", &model.Point{Lng: 14.6, Lat: 46.0569})

	var resp nearbyResponse
	if status := env.call(t, "GET", "/api/users/nearby?lng=14.5058&lat=46.0569", token, nil, &resp); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(resp.Users) != 1 || resp.Users[0].ID != near.ID {
		t.Fatalf("expected only near user within 1 km, got %v", resp.Users)
	}
	if resp.Users[0].ApartmentName != "Block A" || resp.Users[0].Distance <= 0 || resp.Users[0].Distance > 1000 {
		t.Errorf("unexpected neighbor: %+v", resp.Users[0])
	}

	env.call(t, "GET", "/api/users/nearby?lng=14.5058&lat=46.0569&radius=20000", token, nil, &resp)
	if len(resp.Users) != 2 || resp.Users[0].ID != near.ID || resp.Users[1].ID != far.ID {
		t.Errorf("expected near then far, got %v", resp.Users)
	}

	for _, q := range []string{"?lat=46", "?lng=14&lat=95", "?lng=14&lat=46&radius=-1", "?lng=14&lat=46&radius=NaN", "?lng=NaN&lat=46", "?lng=x&lat=46"} {
		if status := env.call(t, "GET", "/api/users/nearby"+q, token, nil, nil); status != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, status)
		}
	}
}

func TestMessagesFlow(t *testing.T) {
	env := setupTestServer(t)
	apt := env.apartment(t, "Block A")
	alice, aliceToken := env.user(t, "alice", model.RoleResident, &apt)
	bob, bobToken := env.user(t, "bob", model.RoleResident, &apt)

	var msg model.Message
	if status := env.call(t, "POST", "/api/messages", aliceToken, map[string]any{
		"to_user_id": bob.ID, "body": "Can I borrow your ladder?",
	}, &msg); status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	env.call(t, "POST", "/api/messages", bobToken, map[string]any{"to_user_id": alice.ID, "body": "Sure"}, nil)
	env.call(t, "POST", "/api/messages", aliceToken, map[string]any{"to_user_id": bob.ID, "body": "Thanks!"}, nil)

	for name, body := range map[string]map[string]any{
		"empty":    {"to_user_id": bob.ID, "body": "  "},
		"self":     {"to_user_id": alice.ID, "body": "hi me"},
		"too long": {"to_user_id": bob.ID, "body": string(make([]byte, model.MaxMessageLength+1))},
	} {
		if status := env.call(t, "POST", "/api/messages", aliceToken, body, nil); status != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, status)
		}
	}
	if status := env.call(t, "POST", "/api/messages", aliceToken, map[string]any{"to_user_id": 999, "body": "?"}, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 for unknown recipient, got %d", status)
	}

	var conversation []model.Message
	env.call(t, "GET", fmt.Sprintf("/api/messages/with/%d", alice.ID), bobToken, nil, &conversation)
	if len(conversation) != 3 || conversation[0].Body != "Can I borrow your ladder?" {
		t.Errorf("expected 3 messages oldest first, got %v", conversation)
	}

	var conversations []model.Conversation
	env.call(t, "GET", "/api/messages", bobToken, nil, &conversations)
	if len(conversations) != 1 || conversations[0].Peer.ID != alice.ID || conversations[0].Unread != 2 {
		t.Errorf("unexpected conversations: %+v", conversations)
	}
	if conversations[0].LastMessage.Body != "Thanks!" {
		t.Errorf("expected latest message, got %q", conversations[0].LastMessage.Body)
	}

	read := fmt.Sprintf("/api/messages/%d/read", msg.ID)
	if status := env.call(t, "PUT", read, aliceToken, nil, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for sender marking read, got %d", status)
	}
	if status := env.call(t, "PUT", read, bobToken, nil, nil); status != http.StatusOK {
		t.Errorf("expected 200 for recipient, got %d", status)
	}

	var notes []model.Notification
	env.call(t, "GET", "/api/notifications", bobToken, nil, &notes)
	if len(notes) != 2 || notes[0].Kind != model.NotificationMessage {
		t.Fatalf("expected 2 message notifications, got %v", notes)
	}

	if status := env.call(t, "PUT", fmt.Sprintf("/api/notifications/%d/read", notes[0].ID), aliceToken, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 marking someone else's notification, got %d", status)
	}
	if status := env.call(t, "PUT", fmt.Sprintf("/api/notifications/%d/read", notes[0].ID), bobToken, nil, nil); status != http.StatusOK {
		t.Errorf("expected 200, got %d", status)
	}

	var all map[string]int64
	env.call(t, "PUT", "/api/notifications/read-all", bobToken, nil, &all)
	if all["updated"] != 1 {
		t.Errorf("expected 1 remaining unread notification, got %d", all["updated"])
	}
}
