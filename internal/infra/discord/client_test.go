package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient("test-token", "guild-1")
	client.SetBaseURL(srv.URL)
	return client, srv
}

func TestSendMessage(t *testing.T) {
	var gotAuth, gotPath string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if body["content"] != "hello" {
			t.Errorf("Expected content 'hello', got %q", body["content"])
		}
		json.NewEncoder(w).Encode(Message{ID: "msg-1", ChannelID: "chan-1"})
	})
	defer srv.Close()

	msg, err := client.SendMessage(context.Background(), "chan-1", "hello")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if msg.ID != "msg-1" {
		t.Errorf("Expected message ID 'msg-1', got %q", msg.ID)
	}
	if gotAuth != "Bot test-token" {
		t.Errorf("Expected bot authorization header, got %q", gotAuth)
	}
	if gotPath != "/channels/chan-1/messages" {
		t.Errorf("Unexpected path: %s", gotPath)
	}
}

func TestSendMessageTruncatesLongContent(t *testing.T) {
	long := make([]byte, 2500)
	for i := range long {
		long[i] = 'a'
	}
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if len(body["content"]) != 2000 {
			t.Errorf("Expected content truncated to 2000 chars, got %d", len(body["content"]))
		}
		json.NewEncoder(w).Encode(Message{ID: "msg-1"})
	})
	defer srv.Close()

	if _, err := client.SendMessage(context.Background(), "chan-1", string(long)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls int32
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{"code": CodeMissingPermissions, "message": "Missing Permissions"})
	})
	defer srv.Close()

	err := client.DeleteMessage(context.Background(), "chan-1", "msg-1")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !IsCode(err, CodeMissingPermissions) {
		t.Errorf("Expected code %d, got %v", CodeMissingPermissions, err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 attempt for 4xx, got %d", calls)
	}
}

func TestServerErrorRetried(t *testing.T) {
	var calls int32
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(Message{ID: "msg-1"})
	})
	defer srv.Close()

	msg, err := client.SendMessage(context.Background(), "chan-1", "hi")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if msg.ID != "msg-1" {
		t.Errorf("Expected message after retries, got %q", msg.ID)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestCreateReactionEscapesEmoji(t *testing.T) {
	var gotPath string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	})
	defer srv.Close()

	if err := client.CreateReaction(context.Background(), "chan-1", "msg-1", "✅"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if gotPath != "/channels/chan-1/messages/msg-1/reactions/%E2%9C%85/@me" {
		t.Errorf("Unexpected reaction path: %s", gotPath)
	}
}

func TestGetMessagesRejectsBadLimit(t *testing.T) {
	client := NewClient("t", "g")
	for _, limit := range []int{0, -1, 101} {
		if _, err := client.GetMessages(context.Background(), "chan-1", limit); err == nil {
			t.Errorf("Expected error for limit %d", limit)
		}
	}
}

func TestModifyMemberRoles(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("Expected PATCH, got %s", r.Method)
		}
		if r.URL.Path != "/guilds/guild-1/members/user-1" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		var body map[string][]string
		json.NewDecoder(r.Body).Decode(&body)
		if len(body["roles"]) != 2 {
			t.Errorf("Expected 2 roles, got %v", body["roles"])
		}
		w.WriteHeader(http.StatusNoContent)
	})
	defer srv.Close()

	err := client.ModifyMemberRoles(context.Background(), "user-1", []string{"role-a", "role-b"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestCreateDM(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["recipient_id"] != "user-1" {
			t.Errorf("Expected recipient user-1, got %q", body["recipient_id"])
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "dm-chan-1"})
	})
	defer srv.Close()

	chanID, err := client.CreateDM(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if chanID != "dm-chan-1" {
		t.Errorf("Expected dm-chan-1, got %q", chanID)
	}
}
