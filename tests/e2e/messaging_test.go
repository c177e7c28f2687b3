package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
)

// The suite runs against a live server. Point E2E_BASE_URL at it and
// provide two bearer tokens: E2E_OWNER_TOKEN for a campaign owner and
// E2E_JOINER_TOKEN for a second user.
var (
	baseURL     = envOr("E2E_BASE_URL", "http://localhost:8080/api/v1")
	ownerToken  = os.Getenv("E2E_OWNER_TOKEN")
	joinerToken = os.Getenv("E2E_JOINER_TOKEN")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type Thread struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	CampaignID string `json:"campaign_id"`
	OwnerID    string `json:"owner_id"`
	Status     string `json:"status"`
}

type Conversation struct {
	ID             string  `json:"id"`
	ThreadID       string  `json:"thread_id"`
	Name           string  `json:"name"`
	Participant1ID string  `json:"participant1_id"`
	Participant2ID *string `json:"participant2_id"`
	LastMessage    string  `json:"last_message"`
	UnreadCount    int     `json:"unread_count"`
}

type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	SenderName     string `json:"sender_name"`
	Body           string `json:"body"`
	Deleted        bool   `json:"deleted"`
}

type ListMessagesResponse struct {
	Conversation Conversation `json:"conversation"`
	Messages     []Message    `json:"messages"`
}

func doJSON(t *testing.T, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode response from %s %s: %v", method, path, err)
		}
	}

	return resp.StatusCode
}

func requireEnv(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	if ownerToken == "" || joinerToken == "" {
		t.Skip("E2E_OWNER_TOKEN and E2E_JOINER_TOKEN not set")
	}
}

// TestMessagingFlow walks the full lifecycle: thread, conversation,
// join, exchange, delete, catch up.
func TestMessagingFlow(t *testing.T) {
	requireEnv(t)

	// Thread for an ad-hoc campaign
	var thread Thread
	status := doJSON(t, http.MethodPost, "/messages/threads", ownerToken, map[string]string{
		"title":       "E2E Campaign",
		"campaign_id": fmt.Sprintf("e2e-%d", os.Getpid()),
	}, &thread)
	if status != http.StatusCreated {
		t.Fatalf("Expected 201 creating thread, got %d", status)
	}

	// Conversation, initially solo
	var conv Conversation
	status = doJSON(t, http.MethodPost,
		fmt.Sprintf("/messages/threads/%s/conversations", thread.ID), ownerToken,
		map[string]string{"name": "E2E chat"}, &conv)
	if status != http.StatusCreated {
		t.Fatalf("Expected 201 creating conversation, got %d", status)
	}
	if conv.Participant2ID != nil {
		t.Fatalf("Expected solo conversation, got second participant %v", *conv.Participant2ID)
	}

	joinPath := fmt.Sprintf("/messages/threads/%s/conversations/%s/join", thread.ID, conv.ID)

	// The initiator cannot join their own conversation
	if status = doJSON(t, http.MethodPost, joinPath, ownerToken, nil, nil); status != http.StatusBadRequest {
		t.Fatalf("Expected 400 on self-join, got %d", status)
	}

	// Second user joins; repeating conflicts
	var joined Conversation
	if status = doJSON(t, http.MethodPost, joinPath, joinerToken, nil, &joined); status != http.StatusOK {
		t.Fatalf("Expected 200 on join, got %d", status)
	}
	if joined.Participant2ID == nil {
		t.Fatal("Expected paired conversation after join")
	}
	if status = doJSON(t, http.MethodPost, joinPath, joinerToken, nil, nil); status != http.StatusConflict {
		t.Fatalf("Expected 409 on repeated join, got %d", status)
	}

	convPath := fmt.Sprintf("/messages/threads/%s/conversations/%s", thread.ID, conv.ID)

	// Exchange
	var hello Message
	status = doJSON(t, http.MethodPost, convPath, ownerToken, map[string]string{"body": "hello"}, &hello)
	if status != http.StatusCreated {
		t.Fatalf("Expected 201 sending message, got %d", status)
	}
	var oops Message
	status = doJSON(t, http.MethodPost, convPath, joinerToken, map[string]string{"body": "oops"}, &oops)
	if status != http.StatusCreated {
		t.Fatalf("Expected 201 sending reply, got %d", status)
	}

	// Only the sender may delete; deletion is idempotent
	msgPath := fmt.Sprintf("%s/messages/%s", convPath, oops.ID)
	if status = doJSON(t, http.MethodDelete, msgPath, ownerToken, nil, nil); status != http.StatusForbidden {
		t.Fatalf("Expected 403 deleting another sender's message, got %d", status)
	}
	if status = doJSON(t, http.MethodDelete, msgPath, joinerToken, nil, nil); status != http.StatusNoContent {
		t.Fatalf("Expected 204 deleting own message, got %d", status)
	}
	if status = doJSON(t, http.MethodDelete, msgPath, joinerToken, nil, nil); status != http.StatusNoContent {
		t.Fatalf("Expected 204 on repeated delete, got %d", status)
	}

	// Deleted message is listed but redacted
	var listed ListMessagesResponse
	if status = doJSON(t, http.MethodGet, convPath, ownerToken, nil, &listed); status != http.StatusOK {
		t.Fatalf("Expected 200 listing messages, got %d", status)
	}
	if len(listed.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(listed.Messages))
	}
	last := listed.Messages[len(listed.Messages)-1]
	if !last.Deleted || last.Body != "" {
		t.Fatalf("Expected last message redacted, got deleted=%v body=%q", last.Deleted, last.Body)
	}

	// Catch up
	if status = doJSON(t, http.MethodPut, convPath, ownerToken, nil, nil); status != http.StatusNoContent {
		t.Fatalf("Expected 204 marking read, got %d", status)
	}
}

// TestVisibilityBoundaries checks that non-participants stay out.
func TestVisibilityBoundaries(t *testing.T) {
	requireEnv(t)

	var thread Thread
	status := doJSON(t, http.MethodPost, "/messages/threads", ownerToken, map[string]string{
		"title":       "E2E Visibility",
		"campaign_id": fmt.Sprintf("e2e-vis-%d", os.Getpid()),
	}, &thread)
	if status != http.StatusCreated {
		t.Fatalf("Expected 201 creating thread, got %d", status)
	}

	var conv Conversation
	status = doJSON(t, http.MethodPost,
		fmt.Sprintf("/messages/threads/%s/conversations", thread.ID), ownerToken, nil, &conv)
	if status != http.StatusCreated {
		t.Fatalf("Expected 201 creating conversation, got %d", status)
	}

	// Joiner has not joined yet: no reading, no writing
	convPath := fmt.Sprintf("/messages/threads/%s/conversations/%s", thread.ID, conv.ID)
	if status = doJSON(t, http.MethodGet, convPath, joinerToken, nil, nil); status != http.StatusForbidden {
		t.Fatalf("Expected 403 reading as non-participant, got %d", status)
	}
	status = doJSON(t, http.MethodPost, convPath, joinerToken, map[string]string{"body": "hi"}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("Expected 403 writing as non-participant, got %d", status)
	}

	// Thread listing is owner-only
	status = doJSON(t, http.MethodGet,
		fmt.Sprintf("/messages/threads/%s", thread.ID), joinerToken, nil, nil)
	if status != http.StatusForbidden {
		t.Fatalf("Expected 403 reading another owner's thread, got %d", status)
	}
}
