package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/signroom/internal/attachments"
	"github.com/MarcoPoloResearchLab/signroom/internal/auth"
	"github.com/MarcoPoloResearchLab/signroom/internal/contracts"
	"github.com/MarcoPoloResearchLab/signroom/internal/database"
	"github.com/MarcoPoloResearchLab/signroom/internal/drafting"
	"github.com/MarcoPoloResearchLab/signroom/internal/notify"
	"github.com/MarcoPoloResearchLab/signroom/internal/server"
	"github.com/MarcoPoloResearchLab/signroom/internal/users"
	"github.com/MarcoPoloResearchLab/signroom/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	sessionSigningSecret = "integration-secret"
	sessionCookieName    = "app_session"
	sessionUserID        = "demo:u1"
	sessionUserEmail     = "Carlos@Exemplo.com"
	sessionDisplayName   = "Carlos Mendes"
	jsonContentType      = "application/json"
)

func TestSubmitSignAndNotifyFlow(testContext *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(filepath.Join(testContext.TempDir(), "integration.db"), zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}

	sessionValidator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(sessionSigningSecret),
		CookieName:    sessionCookieName,
	})
	if err != nil {
		testContext.Fatalf("failed to construct session validator: %v", err)
	}
	participants, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		testContext.Fatalf("failed to build participant directory: %v", err)
	}
	outbox, err := notify.NewOutboxSender(notify.OutboxConfig{Database: db})
	if err != nil {
		testContext.Fatalf("failed to build outbox: %v", err)
	}
	hub := notify.NewHub()
	dispatcher, err := notify.NewAsyncDispatcher(notify.AsyncConfig{Sender: outbox, Hub: hub})
	if err != nil {
		testContext.Fatalf("failed to build dispatcher: %v", err)
	}
	workflowService, err := workflow.NewService(workflow.ServiceConfig{
		Store:      contracts.NewStore(),
		Dispatcher: dispatcher,
		Hub:        hub,
		Generator:  drafting.NewGeminiGenerator(drafting.GeminiConfig{}),
	})
	if err != nil {
		testContext.Fatalf("failed to build workflow: %v", err)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Sessions:     sessionValidator,
		Participants: participants,
		Workflow:     workflowService,
		Attachments:  attachments.NewService(attachments.Config{}),
		Hub:          hub,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}

	testServer := httptest.NewServer(handler)
	defer testServer.Close()

	sessionCookie := &http.Cookie{
		Name:  sessionCookieName,
		Value: mustMintSessionToken(testContext, time.Now()),
	}

	var generated struct {
		Text    string `json:"text"`
		Applied bool   `json:"applied"`
	}
	doJSON(testContext, testServer.URL+"/drafts/generate", sessionCookie, map[string]any{"topic": "confidentiality"}, http.StatusOK, &generated)
	if generated.Text != drafting.FallbackUnavailable || !generated.Applied {
		testContext.Fatalf("expected fallback text without an api key, got %#v", generated)
	}

	var created struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		CreatedBy string `json:"created_by"`
		Signers   []struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"signers"`
	}
	doJSON(testContext, testServer.URL+"/contracts", sessionCookie, map[string]any{
		"title":        "NDA",
		"content":      "Confidential terms.",
		"signer_email": "a@b.com",
	}, http.StatusCreated, &created)
	if created.Status != "pending" || created.CreatedBy != "u1" {
		testContext.Fatalf("unexpected created contract %#v", created)
	}
	if len(created.Signers) != 2 || created.Signers[0].Email != "carlos@exemplo.com" || created.Signers[1].Name != "a" {
		testContext.Fatalf("unexpected signers %#v", created.Signers)
	}

	var signed struct {
		After string `json:"after"`
	}
	doJSON(testContext, testServer.URL+"/contracts/"+created.ID+"/sign", sessionCookie, map[string]any{
		"surface": map[string]int{"width": 300, "height": 120},
		"strokes": [][]map[string]float64{{{"x": 20, "y": 60}, {"x": 140, "y": 30}, {"x": 260, "y": 90}}},
	}, http.StatusOK, &signed)
	if signed.After != "completed" {
		testContext.Fatalf("expected completed contract, got %q", signed.After)
	}

	dispatcher.Wait()
	entries, err := outbox.List(context.Background(), created.ID)
	if err != nil {
		testContext.Fatalf("failed to list outbox: %v", err)
	}
	if len(entries) != 2 {
		testContext.Fatalf("expected initial and completion notifications, got %d", len(entries))
	}
	kinds := map[string]string{}
	for _, entry := range entries {
		kinds[entry.Kind] = entry.Subject
	}
	if kinds["initial"] != "Signature requested: NDA" || kinds["completed"] != "All parties signed: NDA" {
		testContext.Fatalf("unexpected outbox subjects %#v", kinds)
	}

	var identities int64
	if err := db.Model(&users.Identity{}).Count(&identities).Error; err != nil {
		testContext.Fatalf("failed to count identities: %v", err)
	}
	if identities != 1 {
		testContext.Fatalf("expected one recorded identity, got %d", identities)
	}
}

func doJSON(testContext *testing.T, url string, cookie *http.Cookie, body any, expectedStatus int, target any) {
	testContext.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		testContext.Fatalf("failed to encode request: %v", err)
	}
	request, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		testContext.Fatalf("failed to build request: %v", err)
	}
	request.AddCookie(cookie)
	request.Header.Set("Content-Type", jsonContentType)

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		testContext.Fatalf("request to %s failed: %v", url, err)
	}
	defer response.Body.Close()
	if response.StatusCode != expectedStatus {
		testContext.Fatalf("unexpected status from %s: %d", url, response.StatusCode)
	}
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		testContext.Fatalf("failed to decode response from %s: %v", url, err)
	}
}

func mustMintSessionToken(testContext *testing.T, now time.Time) string {
	testContext.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.SessionClaims{
		UserID:          sessionUserID,
		UserEmail:       sessionUserEmail,
		UserDisplayName: sessionDisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    auth.DefaultIssuer,
			Subject:   sessionUserID,
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(sessionSigningSecret))
	if err != nil {
		testContext.Fatalf("failed to sign session token: %v", err)
	}
	return signed
}
