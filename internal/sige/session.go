package sige

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/casadaspecas/app-catalogo-api/internal/storage"

	"go.uber.org/zap"
)

// chave do KV onde a sessão sobrevive a reinícios do processo
const chaveSessao = "sige:sessao"

// tokens do SIGE valem 12 horas; renovamos um pouco antes
const (
	validadeToken   = 12 * time.Hour
	margemRenovacao = 5 * time.Minute
)

var ErrAutenticacao = errors.New("falha de autenticação no SIGE")

// Session é o par de tokens emitido pelo POST /auth
type Session struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Expirada considera a margem de renovação para trocar o token antes
// do vencimento real
func (s *Session) Expirada(agora time.Time) bool {
	return agora.After(s.ExpiresAt.Add(-margemRenovacao))
}

// SessionManager mantém a sessão compartilhada com o SIGE. Resoluções
// concorrentes podem disputar a renovação; a última escrita vence, o
// que é aceitável porque um login redundante é idempotente no ERP.
type SessionManager struct {
	httpClient *http.Client
	baseURL    string
	email      string
	senha      string
	kv         *storage.KV
	logger     *zap.Logger
	agora      func() time.Time

	atual atomic.Pointer[Session]
}

func NewSessionManager(httpClient *http.Client, baseURL, email, senha string, kv *storage.KV, logger *zap.Logger) *SessionManager {
	m := &SessionManager{
		httpClient: httpClient,
		baseURL:    baseURL,
		email:      email,
		senha:      senha,
		kv:         kv,
		logger:     logger,
		agora:      time.Now,
	}

	// sessão persistida de uma execução anterior ainda pode estar válida
	var salva Session
	if err := kv.GetJSON(chaveSessao, &salva); err == nil && salva.Token != "" {
		m.atual.Store(&salva)
	}
	return m
}

// Token devolve um bearer token utilizável. Se a sessão corrente já
// venceu, reautentica antes; se a reautenticação falhar mas existir um
// token antigo, degrada para ele em vez de falhar a requisição.
func (m *SessionManager) Token(ctx context.Context) (string, error) {
	sess := m.atual.Load()
	if sess != nil && !sess.Expirada(m.agora()) {
		return sess.Token, nil
	}

	nova, err := m.renovar(ctx, sess)
	if err != nil {
		if sess != nil {
			m.logger.Warn("sige: reautenticação falhou, usando token vencido",
				zap.Time("expiresAt", sess.ExpiresAt),
				zap.Error(err),
			)
			return sess.Token, nil
		}
		return "", err
	}
	return nova.Token, nil
}

// Invalidar descarta a sessão corrente. Chamada quando o ERP responde
// 401 apesar do token parecer válido.
func (m *SessionManager) Invalidar() {
	m.atual.Store(nil)
}

// renovar tenta o refresh token primeiro e cai no login completo
func (m *SessionManager) renovar(ctx context.Context, anterior *Session) (*Session, error) {
	if anterior != nil && anterior.RefreshToken != "" {
		sess, err := m.autenticar(ctx, "/auth/refresh", map[string]string{
			"refreshToken": anterior.RefreshToken,
		})
		if err == nil {
			return sess, nil
		}
		m.logger.Debug("sige: refresh recusado, tentando login completo", zap.Error(err))
	}
	return m.Autenticar(ctx)
}

// Autenticar faz o login completo com as credenciais configuradas
func (m *SessionManager) Autenticar(ctx context.Context) (*Session, error) {
	if m.email == "" || m.senha == "" {
		return nil, fmt.Errorf("%w: credenciais não configuradas", ErrAutenticacao)
	}
	return m.autenticar(ctx, "/auth", map[string]string{
		"email":    m.email,
		"password": m.senha,
	})
}

func (m *SessionManager) autenticar(ctx context.Context, path string, payload map[string]string) (*Session, error) {
	corpo, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(corpo))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAutenticacao, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrAutenticacao, resp.StatusCode, string(body))
	}

	var resposta struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(body, &resposta); err != nil {
		return nil, fmt.Errorf("%w: resposta ilegível: %v", ErrAutenticacao, err)
	}
	if resposta.Token == "" {
		return nil, fmt.Errorf("%w: resposta sem token", ErrAutenticacao)
	}

	agora := m.agora()
	sess := &Session{
		Token:        resposta.Token,
		RefreshToken: resposta.RefreshToken,
		CreatedAt:    agora,
		ExpiresAt:    agora.Add(validadeToken),
	}
	m.atual.Store(sess)

	if err := m.kv.SetJSON(chaveSessao, sess); err != nil {
		m.logger.Warn("sige: falha ao persistir sessão", zap.Error(err))
	}
	m.logger.Info("sige: sessão autenticada", zap.Time("expiresAt", sess.ExpiresAt))
	return sess, nil
}
