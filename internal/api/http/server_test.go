package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/tr4ction-console/internal/api/dto"
	"github.com/spec-kit/tr4ction-console/internal/config"
	"github.com/spec-kit/tr4ction-console/internal/domain"
)

func testStubConfig() config.StubConfig {
	return config.StubConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4,
		AdminEmail:            "admin@tr4ction.com",
		AdminPassword:         "admin123",
		FounderEmail:          "founder@startup.com",
		FounderPassword:       "founder123",
		ChatPerMinute:         3,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(context.Background(), testStubConfig(), Options{})
	require.NoError(t, err)
	return srv
}

type response struct {
	status int
	body   []byte
	header nethttp.Header
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, v), string(r.body))
}

func (r response) data(t *testing.T, v any) {
	t.Helper()
	var env struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	r.decode(t, &env)
	require.Equal(t, "success", env.Status)
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func (r response) detail(t *testing.T) string {
	t.Helper()
	var e dto.ErrorResponse
	r.decode(t, &e)
	require.Equal(t, "error", e.Status)
	return e.Detail
}

func do(t *testing.T, srv *Server, method, path, token string, body any) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return send(t, srv, req, token)
}

func send(t *testing.T, srv *Server, req *nethttp.Request, token string) response {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.App.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, body: data, header: resp.Header}
}

func login(t *testing.T, srv *Server, email, password string) dto.TokenResponse {
	t.Helper()
	resp := do(t, srv, nethttp.MethodPost, "/auth/login", "", domain.LoginRequest{Email: email, Password: password})
	require.Equal(t, nethttp.StatusOK, resp.status, string(resp.body))
	var out dto.TokenResponse
	resp.decode(t, &out)
	return out
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	tok := login(t, srv, "FOUNDER@startup.com", "founder123")
	require.Equal(t, "bearer", tok.TokenType)
	require.Equal(t, domain.RoleFounder, tok.User.Role)
	require.Equal(t, "Startup Demo", tok.User.CompanyName)

	claims, err := srv.Tokens.ParseToken(tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, string(tok.User.ID), claims.Subject)
	require.Equal(t, "founder@startup.com", claims.Email)
	require.Equal(t, domain.RoleFounder, claims.Role)
	require.WithinDuration(t, time.Now().Add(5*time.Minute), claims.ExpiresAt.Time, 5*time.Second)

	resp := do(t, srv, nethttp.MethodPost, "/auth/login", "", domain.LoginRequest{Email: "founder@startup.com", Password: "wrong"})
	require.Equal(t, nethttp.StatusUnauthorized, resp.status)
	require.Equal(t, "Email ou senha incorretos", resp.detail(t))

	resp = do(t, srv, nethttp.MethodPost, "/auth/login", "", domain.LoginRequest{Email: "nobody@x.com", Password: "x"})
	require.Equal(t, nethttp.StatusUnauthorized, resp.status)

	resp = do(t, srv, nethttp.MethodPost, "/auth/login", "", domain.LoginRequest{})
	require.Equal(t, nethttp.StatusBadRequest, resp.status)
}

func TestRegisterAndMe(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, nethttp.MethodPost, "/auth/register", "", dto.RegisterRequest{
		Email: "Nova@Startup.com", Password: "segredo1", Name: "Nova", CompanyName: "Nova Ltda", Role: domain.RoleAdmin,
	})
	require.Equal(t, nethttp.StatusOK, resp.status, string(resp.body))
	var user domain.User
	resp.decode(t, &user)
	require.Equal(t, domain.RoleFounder, user.Role, "public sign-up never grants admin")
	require.Equal(t, "nova@startup.com", user.Email)

	resp = do(t, srv, nethttp.MethodPost, "/auth/register", "", dto.RegisterRequest{Email: "nova@startup.com", Password: "segredo1", Name: "Dup"})
	require.Equal(t, nethttp.StatusBadRequest, resp.status)
	require.Equal(t, "Email já cadastrado", resp.detail(t))

	resp = do(t, srv, nethttp.MethodPost, "/auth/register", "", dto.RegisterRequest{Email: "bad", Password: "1"})
	require.Equal(t, nethttp.StatusBadRequest, resp.status)
	var e dto.ErrorResponse
	resp.decode(t, &e)
	require.Contains(t, e.Details, "email")
	require.Contains(t, e.Details, "password")
	require.Contains(t, e.Details, "name")

	tok := login(t, srv, "nova@startup.com", "segredo1")
	resp = do(t, srv, nethttp.MethodGet, "/auth/me", tok.AccessToken, nil)
	require.Equal(t, nethttp.StatusOK, resp.status)
	var me domain.User
	resp.decode(t, &me)
	require.Equal(t, user.ID, me.ID)
}

func TestAuthMiddleware(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, nethttp.MethodGet, "/auth/me", "", nil)
	require.Equal(t, nethttp.StatusUnauthorized, resp.status)
	require.Equal(t, "Not authenticated", resp.detail(t))

	resp = do(t, srv, nethttp.MethodGet, "/auth/me", "garbage", nil)
	require.Equal(t, nethttp.StatusUnauthorized, resp.status)

	founder := login(t, srv, "founder@startup.com", "founder123")
	expired, _, err := srv.Tokens.WithTTL(-time.Minute).GenerateToken(founder.User)
	require.NoError(t, err)
	resp = do(t, srv, nethttp.MethodGet, "/founder/trails", expired, nil)
	require.Equal(t, nethttp.StatusUnauthorized, resp.status)
	require.Equal(t, "Token inválido ou expirado", resp.detail(t))

	resp = do(t, srv, nethttp.MethodGet, "/admin/trails", founder.AccessToken, nil)
	require.Equal(t, nethttp.StatusForbidden, resp.status)
	require.Equal(t, "Acesso negado", resp.detail(t))
}

func TestFounderFlow(t *testing.T) {
	srv := newTestServer(t)
	tok := login(t, srv, "founder@startup.com", "founder123").AccessToken

	resp := do(t, srv, nethttp.MethodGet, "/founder/trails", tok, nil)
	require.Equal(t, nethttp.StatusOK, resp.status)
	var trails []domain.Trail
	resp.decode(t, &trails)
	require.Len(t, trails, 1)
	require.Equal(t, "Q1_Marketing", trails[0].ID)
	require.Len(t, trails[0].Steps, 3)
	require.False(t, trails[0].Steps[0].Locked)
	require.True(t, trails[0].Steps[1].Locked)

	resp = do(t, srv, nethttp.MethodGet, "/founder/trails/Q1_Marketing/steps/ICP/schema", tok, nil)
	require.Equal(t, nethttp.StatusOK, resp.status)
	var schema domain.StepSchema
	resp.decode(t, &schema)
	require.Equal(t, "ICP_campo1", schema.Fields[0].Name)

	resp = do(t, srv, nethttp.MethodGet, "/founder/trails/Q1_Marketing/steps/nope/schema", tok, nil)
	require.Equal(t, nethttp.StatusNotFound, resp.status)
	require.Equal(t, "Step nope not found in trail Q1_Marketing", resp.detail(t))

	resp = do(t, srv, nethttp.MethodGet, "/founder/trails/Q1_Marketing/steps/ICP/progress", tok, nil)
	var progress domain.StepProgress
	resp.decode(t, &progress)
	require.False(t, progress.IsLocked)
	require.Empty(t, progress.FormData)
	require.NotNil(t, progress.FormData)

	resp = do(t, srv, nethttp.MethodPost, "/founder/trails/Q1_Marketing/steps/ICP/progress", tok,
		domain.SaveProgressRequest{FormData: map[string]any{"ICP_campo1": "PMEs", "ICP_descricao": "varejo"}})
	require.Equal(t, nethttp.StatusOK, resp.status, string(resp.body))
	var saved domain.SaveProgressResult
	resp.data(t, &saved)
	require.True(t, saved.Saved)
	require.Equal(t, 50, saved.Progress)

	resp = do(t, srv, nethttp.MethodGet, "/founder/trails/Q1_Marketing/steps/ICP/progress", tok, nil)
	resp.decode(t, &progress)
	require.Equal(t, "PMEs", progress.FormData["ICP_campo1"])

	resp = do(t, srv, nethttp.MethodPost, "/founder/trails/Q1_Marketing/steps/ICP/progress", tok, map[string]any{})
	require.Equal(t, nethttp.StatusBadRequest, resp.status)

	resp = do(t, srv, nethttp.MethodGet, "/founder/trails/Q1_Marketing/export/xlsx", tok, nil)
	require.Equal(t, nethttp.StatusOK, resp.status)
	require.Contains(t, resp.header.Get("Content-Disposition"), "Q1_Marketing_preenchido")
	require.Contains(t, string(resp.body), "ICP_campo1,PMEs")

	resp = do(t, srv, nethttp.MethodGet, "/founder/trails/missing/export/xlsx", tok, nil)
	require.Equal(t, nethttp.StatusNotFound, resp.status)
	require.Equal(t, "Trilha não encontrada", resp.detail(t))
}

func TestAdminFlow(t *testing.T) {
	srv := newTestServer(t)
	founder := login(t, srv, "founder@startup.com", "founder123")
	admin := login(t, srv, "admin@tr4ction.com", "admin123").AccessToken
	founderID := string(founder.User.ID)

	resp := do(t, srv, nethttp.MethodGet, "/admin/trails", admin, nil)
	var trails []domain.Trail
	resp.decode(t, &trails)
	require.Len(t, trails, 1)
	require.Equal(t, 3, trails[0].StepsCount)
	require.Equal(t, "active", trails[0].Status)

	resp = do(t, srv, nethttp.MethodGet, "/admin/founders/progress", admin, nil)
	var rows []domain.FounderProgress
	resp.decode(t, &rows)
	require.Len(t, rows, 1)
	require.Equal(t, "Não iniciado", rows[0].CurrentStep)
	require.Equal(t, domain.RiskHigh, rows[0].Risk)

	resp = do(t, srv, nethttp.MethodPost, "/admin/founders/"+founderID+"/steps/Persona/unlock", admin, nil)
	require.Equal(t, nethttp.StatusNotFound, resp.status)
	require.Equal(t, "Trilha não encontrada para este usuário", resp.detail(t))

	resp = do(t, srv, nethttp.MethodPost, "/admin/founders/"+founderID+"/steps/Persona/unlock?trail_id=Q1_Marketing", admin, nil)
	require.Equal(t, nethttp.StatusOK, resp.status)
	var unlocked domain.UnlockResult
	resp.data(t, &unlocked)
	require.True(t, unlocked.Unlocked)

	resp = do(t, srv, nethttp.MethodGet, "/founder/trails", founder.AccessToken, nil)
	var founderTrails []domain.Trail
	resp.decode(t, &founderTrails)
	require.False(t, founderTrails[0].Steps[1].Locked)
	require.True(t, founderTrails[0].Steps[2].Locked)

	do(t, srv, nethttp.MethodPost, "/founder/trails/Q1_Marketing/steps/ICP/progress", founder.AccessToken,
		domain.SaveProgressRequest{FormData: map[string]any{"a": 1, "b": 2, "c": 3, "d": 4}})
	resp = do(t, srv, nethttp.MethodGet, "/admin/founders/progress", admin, nil)
	resp.decode(t, &rows)
	require.Equal(t, 50, rows[0].Progress)
	require.Equal(t, domain.RiskMedium, rows[0].Risk)
	require.Equal(t, "Perfil de Cliente Ideal ✓", rows[0].CurrentStep)
	require.Equal(t, "Q1_Marketing", rows[0].TrailID)

	resp = do(t, srv, nethttp.MethodPut, "/admin/trails/Q1_Marketing/steps/SWOT/schema", admin, dto.SchemaUpdateRequest{
		Fields: []domain.Field{{Name: "forcas", Type: "textarea", Label: "Forças", Required: true}},
	})
	require.Equal(t, nethttp.StatusOK, resp.status, string(resp.body))
	resp = do(t, srv, nethttp.MethodGet, "/founder/trails/Q1_Marketing/steps/SWOT/schema", founder.AccessToken, nil)
	var schema domain.StepSchema
	resp.decode(t, &schema)
	require.Equal(t, []domain.Field{{Name: "forcas", Type: "textarea", Label: "Forças", Required: true}}, schema.Fields)
}

func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *nethttp.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(nethttp.MethodPost, "/admin/knowledge/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestKnowledgeFlow(t *testing.T) {
	srv := newTestServer(t)
	admin := login(t, srv, "admin@tr4ction.com", "admin123").AccessToken

	resp := send(t, srv, uploadRequest(t, "icp.pdf", bytes.Repeat([]byte("x"), 1200), map[string]string{"trail_id": "Q1_Marketing"}), admin)
	require.Equal(t, nethttp.StatusOK, resp.status, string(resp.body))
	var uploaded domain.UploadResult
	resp.data(t, &uploaded)
	require.Equal(t, "icp.pdf", uploaded.Filename)
	require.Equal(t, "Q1_Marketing", uploaded.TrailID)
	require.Equal(t, "geral", uploaded.StepID)
	require.Equal(t, 3, uploaded.ChunksIndexed)
	require.Equal(t, "indexed", uploaded.Status)

	resp = send(t, srv, uploadRequest(t, "malware.exe", []byte("x"), nil), admin)
	require.Equal(t, nethttp.StatusBadRequest, resp.status)
	require.Contains(t, resp.detail(t), "Formato não suportado")

	resp = do(t, srv, nethttp.MethodGet, "/admin/knowledge/documents", admin, nil)
	var list domain.DocumentList
	resp.data(t, &list)
	require.Equal(t, 1, list.Total)
	require.Equal(t, "1.0", list.Documents[0].Version)

	resp = do(t, srv, nethttp.MethodPost, "/admin/knowledge/reindex/"+uploaded.DocumentID, admin, nil)
	var reindexed domain.ReindexResult
	resp.data(t, &reindexed)
	require.True(t, reindexed.Reindexed)

	resp = do(t, srv, nethttp.MethodPost, "/admin/knowledge/reindex-all", admin, nil)
	var all domain.ReindexAllResult
	resp.data(t, &all)
	require.Equal(t, 1, all.TotalDocuments)
	require.Equal(t, 1, all.SuccessCount)

	resp = do(t, srv, nethttp.MethodDelete, "/admin/knowledge/documents/"+uploaded.DocumentID, admin, nil)
	var deleted domain.DeleteResult
	resp.data(t, &deleted)
	require.True(t, deleted.Deleted)

	resp = do(t, srv, nethttp.MethodDelete, "/admin/knowledge/documents/"+uploaded.DocumentID, admin, nil)
	require.Equal(t, nethttp.StatusNotFound, resp.status)
	require.Equal(t, "Documento não encontrado", resp.detail(t))
}

func TestChat(t *testing.T) {
	srv := newTestServer(t)
	tok := login(t, srv, "founder@startup.com", "founder123").AccessToken

	resp := do(t, srv, nethttp.MethodPost, "/chat/", tok, domain.ChatRequest{Question: "?"})
	require.Equal(t, nethttp.StatusUnprocessableEntity, resp.status)

	resp = do(t, srv, nethttp.MethodPost, "/chat/", tok, domain.ChatRequest{Question: strings.Repeat("a", 2001)})
	require.Equal(t, nethttp.StatusUnprocessableEntity, resp.status)

	for i := 0; i < 3; i++ {
		resp = do(t, srv, nethttp.MethodPost, "/chat/", tok, domain.ChatRequest{Question: "Como defino meu ICP?", StepID: "ICP"})
		require.Equal(t, nethttp.StatusOK, resp.status, string(resp.body))
	}
	var answer dto.ChatAnswer
	resp.data(t, &answer)
	require.Contains(t, answer.Answer, "ICP")

	resp = do(t, srv, nethttp.MethodPost, "/chat/", tok, domain.ChatRequest{Question: "De novo?"})
	require.Equal(t, nethttp.StatusTooManyRequests, resp.status)
	require.Equal(t, "Limite de mensagens atingido. Aguarde um momento.", resp.detail(t))
}

func TestFaults(t *testing.T) {
	srv := newTestServer(t)
	tok := login(t, srv, "founder@startup.com", "founder123").AccessToken

	srv.Faults.Inject(nethttp.MethodGet, "/founder/trails",
		Fault{Status: nethttp.StatusServiceUnavailable, Detail: "manutenção"},
		Fault{Status: nethttp.StatusBadGateway, Bare: true},
		Fault{Delay: time.Millisecond},
	)

	resp := do(t, srv, nethttp.MethodGet, "/founder/trails", tok, nil)
	require.Equal(t, nethttp.StatusServiceUnavailable, resp.status)
	require.Equal(t, "manutenção", resp.detail(t))

	resp = do(t, srv, nethttp.MethodGet, "/founder/trails", tok, nil)
	require.Equal(t, nethttp.StatusBadGateway, resp.status)
	require.Empty(t, resp.body)

	resp = do(t, srv, nethttp.MethodGet, "/founder/trails", tok, nil)
	require.Equal(t, nethttp.StatusOK, resp.status)

	require.Equal(t, 3, srv.Faults.Hits(nethttp.MethodGet, "/founder/trails/"))
	srv.Faults.Reset()
	require.Zero(t, srv.Faults.Hits(nethttp.MethodGet, "/founder/trails"))
}

func TestHealthAndUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, nethttp.MethodGet, "/health", "", nil)
	require.Equal(t, nethttp.StatusOK, resp.status)
	require.NotEmpty(t, resp.header.Get("X-Request-ID"))

	resp = do(t, srv, nethttp.MethodGet, "/health/ready", "", nil)
	require.Equal(t, nethttp.StatusOK, resp.status)

	resp = do(t, srv, nethttp.MethodGet, "/nope", "", nil)
	require.Equal(t, nethttp.StatusNotFound, resp.status)
	require.NotEmpty(t, resp.detail(t))
}
