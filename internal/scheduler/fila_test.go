package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pincinato07/caremind-app-novo/internal/push"
	"github.com/Pincinato07/caremind-app-novo/pkg/models"
)

type desfecho struct {
	sucesso bool
	erro    string
	vezes   int
}

type fakeFilaStore struct {
	pendentes   []models.NotificacaoAgendada
	tokens      map[string][]string
	tokensErr   error
	marcadas    map[int64]*desfecho
	desativados []string
	limite      int
}

func newFakeFilaStore() *fakeFilaStore {
	return &fakeFilaStore{
		tokens:   map[string][]string{},
		marcadas: map[int64]*desfecho{},
	}
}

func (s *fakeFilaStore) GetNotificacoesPendentes(limite int) ([]models.NotificacaoAgendada, error) {
	s.limite = limite
	if len(s.pendentes) > limite {
		return s.pendentes[:limite], nil
	}
	return s.pendentes, nil
}

func (s *fakeFilaStore) GetTokensAtivos(perfilID string) ([]string, error) {
	if s.tokensErr != nil {
		return nil, s.tokensErr
	}
	return s.tokens[perfilID], nil
}

func (s *fakeFilaStore) MarcarProcessada(id int64, sucesso bool, erro string) error {
	d, ok := s.marcadas[id]
	if !ok {
		d = &desfecho{}
		s.marcadas[id] = d
	}
	d.sucesso = sucesso
	d.erro = erro
	d.vezes++
	return nil
}

func (s *fakeFilaStore) DesativarTokens(tokens []string) error {
	s.desativados = append(s.desativados, tokens...)
	return nil
}

// fakeSender decide o desfecho por token: "ok*" entrega, "unreg*" falha como
// não registrado, o resto falha genericamente.
type fakeSender struct {
	panico   bool
	chamadas int
}

func (f *fakeSender) SendToMany(_ context.Context, tokens []string, _, _ string, _ map[string]string) push.Summary {
	f.chamadas++
	if f.panico {
		panic("gateway indisponível")
	}

	summary := push.Summary{}
	for i, token := range tokens {
		var r push.Result
		switch {
		case len(token) >= 2 && token[:2] == "ok":
			r = push.Result{Success: true, MessageID: "m-" + token}
			summary.Sent++
		case len(token) >= 5 && token[:5] == "unreg":
			r = push.Result{Error: "Requested entity was not found.", Unregistered: true}
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("Token %d: %s", i, r.Error))
		default:
			r = push.Result{Error: "entrega recusada"}
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("Token %d: %s", i, r.Error))
		}
		summary.Results = append(summary.Results, push.TokenResult{Token: token, Result: r})
	}
	return summary
}

func notificacao(id int64, perfilID string) models.NotificacaoAgendada {
	return models.NotificacaoAgendada{
		ID:           id,
		PerfilID:     perfilID,
		Tipo:         "medicamento",
		ReferenciaID: "7",
		Titulo:       "Hora do medicamento",
		Corpo:        "Lembrete: Metformina às 08:00",
		DataAgendada: time.Date(2026, 6, 15, 7, 55, 0, 0, time.UTC),
	}
}

func TestProcessarMarcaTodasExatamenteUmaVez(t *testing.T) {
	store := newFakeFilaStore()
	store.pendentes = []models.NotificacaoAgendada{
		notificacao(1, "p-ok"),
		notificacao(2, "p-falha"),
		notificacao(3, "p-sem-token"),
	}
	store.tokens["p-ok"] = []string{"ok-1"}
	store.tokens["p-falha"] = []string{"recusado"}

	resultado, err := NewProcessador(store, &fakeSender{}, 0).Processar(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, resultado.Processed)
	assert.Equal(t, 1, resultado.Successful)
	assert.Equal(t, 2, resultado.Failed)

	require.Len(t, store.marcadas, 3)
	for id, d := range store.marcadas {
		assert.Equal(t, 1, d.vezes, "entrada %d marcada mais de uma vez", id)
	}
	assert.True(t, store.marcadas[1].sucesso)
	assert.False(t, store.marcadas[2].sucesso)
	assert.Equal(t, "Token 0: entrega recusada", store.marcadas[2].erro)
	assert.False(t, store.marcadas[3].sucesso)
	assert.Equal(t, "Nenhum token FCM ativo", store.marcadas[3].erro)
}

func TestProcessarSucessoParcialContaComoSucesso(t *testing.T) {
	store := newFakeFilaStore()
	store.pendentes = []models.NotificacaoAgendada{notificacao(1, "p1")}
	store.tokens["p1"] = []string{"ok-1", "recusado"}

	resultado, err := NewProcessador(store, &fakeSender{}, 0).Processar(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, resultado.Successful)
	assert.True(t, store.marcadas[1].sucesso)
	assert.Empty(t, store.marcadas[1].erro)
}

func TestProcessarDesativaApenasTokensNaoRegistrados(t *testing.T) {
	store := newFakeFilaStore()
	store.pendentes = []models.NotificacaoAgendada{notificacao(1, "p1")}
	store.tokens["p1"] = []string{"ok-1", "unreg-1", "recusado"}

	_, err := NewProcessador(store, &fakeSender{}, 0).Processar(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"unreg-1"}, store.desativados)
}

func TestProcessarPanicoNaoAbortaLote(t *testing.T) {
	store := newFakeFilaStore()
	store.pendentes = []models.NotificacaoAgendada{
		notificacao(1, "p1"),
		notificacao(2, "p2"),
	}
	store.tokens["p1"] = []string{"ok-1"}
	store.tokens["p2"] = []string{"ok-2"}

	resultado, err := NewProcessador(store, &fakeSender{panico: true}, 0).Processar(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, resultado.Processed)
	assert.Equal(t, 2, resultado.Failed)
	require.Len(t, store.marcadas, 2)
	assert.Contains(t, store.marcadas[1].erro, "panic: gateway indisponível")
	assert.Contains(t, store.marcadas[2].erro, "panic: gateway indisponível")
}

func TestProcessarErroDeTokensRegistraFalha(t *testing.T) {
	store := newFakeFilaStore()
	store.pendentes = []models.NotificacaoAgendada{notificacao(1, "p1")}
	store.tokensErr = errors.New("conexão recusada")

	resultado, err := NewProcessador(store, &fakeSender{}, 0).Processar(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, resultado.Failed)
	assert.Equal(t, "conexão recusada", store.marcadas[1].erro)
}

func TestProcessarRespeitaLimite(t *testing.T) {
	store := newFakeFilaStore()
	for i := int64(1); i <= 5; i++ {
		store.pendentes = append(store.pendentes, notificacao(i, "p1"))
	}
	store.tokens["p1"] = []string{"ok-1"}

	resultado, err := NewProcessador(store, &fakeSender{}, 2).Processar(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, store.limite)
	assert.Equal(t, 2, resultado.Processed)
}

func TestProcessarFilaVazia(t *testing.T) {
	store := newFakeFilaStore()
	sender := &fakeSender{}

	resultado, err := NewProcessador(store, sender, 0).Processar(context.Background())
	require.NoError(t, err)

	assert.Zero(t, resultado.Processed)
	assert.Zero(t, sender.chamadas)
	assert.Equal(t, LimitePadraoFila, store.limite)
}
