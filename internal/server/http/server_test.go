package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finvera/backoffice/internal/approval"
	"github.com/finvera/backoffice/internal/auth/token"
	"github.com/finvera/backoffice/internal/lock"
)

var testOperators = map[string]*OperatorInfo{
	"alice": {Username: "alice", Name: "Alice A.", Roles: []string{"ops"}},
	"bob":   {Username: "bob", Name: "Bob B.", Roles: []string{"risk"}},
}

func newTestServer(t *testing.T) (*httptest.Server, *approval.MemStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := approval.NewMemStore()
	engine := approval.NewEngine(store, approval.NewRegistry(lock.NewLocal()), nil)
	tokens := token.NewManager("test-secret", time.Hour)
	verify := func(username, password string) (*OperatorInfo, error) {
		if op, ok := testOperators[username]; ok && password == "pw" {
			return op, nil
		}
		return nil, errors.New("invalid credentials")
	}
	srv := New(engine, store, verify, tokens, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, store
}

func doJSON(t *testing.T, method, url, bearer string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func login(t *testing.T, ts *httptest.Server, username string) string {
	t.Helper()
	resp, out := doJSON(t, http.MethodPost, ts.URL+"/api/login", "", map[string]string{"username": username, "password": "pw"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: %d %v", username, resp.StatusCode, out)
	}
	tok, _ := out["token"].(string)
	if tok == "" {
		t.Fatalf("no token in %v", out)
	}
	return tok
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/login", "", map[string]string{"username": "alice", "password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/requests", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestDecisionEndToEnd(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := login(t, ts, "alice")
	bob := login(t, ts, "bob")

	resp, out := doJSON(t, http.MethodPost, ts.URL+"/api/rules", alice, map[string]any{
		"activity_type":  "update-limits",
		"based_type":     "ROLE",
		"flow_kind":      "multi",
		"sequential":     false,
		"min_approvals":  2,
		"eligible_roles": []string{"ops", "risk"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create rule: %d %v", resp.StatusCode, out)
	}

	resp, out = doJSON(t, http.MethodPost, ts.URL+"/api/requests", alice, map[string]string{"activity_type": "update-limits"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create request: %d %v", resp.StatusCode, out)
	}
	reqID := int(out["request"].(map[string]any)["id"].(float64))

	// First approval: still pending. A "flow" field in the payload carries no
	// weight; the rule alone fixes the topology, so a lone approver cannot
	// force a one-shot close of a quorum rule.
	resp, out = doJSON(t, http.MethodPost, ts.URL+requestPath(reqID)+"/decision", alice,
		map[string]string{"flow": "single", "status": "APPROVED"})
	if resp.StatusCode != http.StatusOK || out["treated"] != false {
		t.Fatalf("first decision: %d %v", resp.StatusCode, out)
	}

	// Same voter again: 403.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+requestPath(reqID)+"/decision", alice,
		map[string]string{"status": "APPROVED"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("duplicate vote: %d, want 403", resp.StatusCode)
	}

	// Second distinct approver closes the request.
	resp, out = doJSON(t, http.MethodPost, ts.URL+requestPath(reqID)+"/decision", bob,
		map[string]string{"status": "APPROVED"})
	if resp.StatusCode != http.StatusOK || out["treated"] != true {
		t.Fatalf("quorum decision: %d %v", resp.StatusCode, out)
	}

	// A vote after terminal conflicts.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+requestPath(reqID)+"/decision", bob,
		map[string]string{"status": "APPROVED"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("post-terminal vote: %d, want 409", resp.StatusCode)
	}

	resp, out = doJSON(t, http.MethodGet, ts.URL+requestPath(reqID), alice, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get request: %d", resp.StatusCode)
	}
	if status := out["request"].(map[string]any)["status"]; status != "APPROVED" {
		t.Fatalf("status = %v, want APPROVED", status)
	}
	if flows := out["flows"].([]any); len(flows) != 2 {
		t.Fatalf("want 2 flows, got %d", len(flows))
	}
}

func TestDecisionErrorMapping(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := login(t, ts, "alice")

	resp, out := doJSON(t, http.MethodPost, ts.URL+"/api/rules", alice, map[string]any{
		"activity_type":  "close-account",
		"based_type":     "ROLE",
		"flow_kind":      "single",
		"min_approvals":  1,
		"eligible_roles": []string{"risk"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create rule: %d %v", resp.StatusCode, out)
	}
	resp, out = doJSON(t, http.MethodPost, ts.URL+"/api/requests", alice, map[string]string{"activity_type": "close-account"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create request: %d %v", resp.StatusCode, out)
	}
	reqID := int(out["request"].(map[string]any)["id"].(float64))

	// alice has role ops, not risk: 403.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+requestPath(reqID)+"/decision", alice,
		map[string]string{"status": "APPROVED"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("ineligible role: %d, want 403", resp.StatusCode)
	}

	// Decline without reason: 400.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+requestPath(reqID)+"/decision", alice,
		map[string]string{"status": "DECLINED"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("decline without reason: %d, want 400", resp.StatusCode)
	}

	// Rule with an unknown flow kind: 400.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/rules", alice, map[string]any{
		"activity_type":  "freeze-account",
		"based_type":     "ROLE",
		"flow_kind":      "batch",
		"min_approvals":  1,
		"eligible_roles": []string{"risk"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown flow kind: %d, want 400", resp.StatusCode)
	}

	// Rule pairing the one-decision topology with a quorum: 400.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/rules", alice, map[string]any{
		"activity_type":  "freeze-account",
		"based_type":     "ROLE",
		"flow_kind":      "single",
		"min_approvals":  2,
		"eligible_roles": []string{"risk", "ops"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("single flow with quorum: %d, want 400", resp.StatusCode)
	}

	// Unknown request: 404.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+requestPath(999)+"/decision", alice,
		map[string]string{"status": "APPROVED"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown request: %d, want 404", resp.StatusCode)
	}

	// Rule missing for activity: 400.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/requests", alice, map[string]string{"activity_type": "no-rule"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing rule: %d, want 400", resp.StatusCode)
	}
}

func requestPath(id int) string {
	return "/api/requests/" + strconv.Itoa(id)
}
