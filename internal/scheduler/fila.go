package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/Pincinato07/caremind-app-novo/internal/push"
	"github.com/Pincinato07/caremind-app-novo/pkg/models"
)

// LimitePadraoFila é o máximo de entradas drenadas por execução.
const LimitePadraoFila = 100

// FilaStore é o recorte do banco usado pelo processador da fila.
type FilaStore interface {
	GetNotificacoesPendentes(limite int) ([]models.NotificacaoAgendada, error)
	GetTokensAtivos(perfilID string) ([]string, error)
	MarcarProcessada(id int64, sucesso bool, erro string) error
	DesativarTokens(tokens []string) error
}

// Sender é o despachante de fan-out (implementado por push.Client).
type Sender interface {
	SendToMany(ctx context.Context, tokens []string, titulo, corpo string, data map[string]string) push.Summary
}

type ResultadoFila struct {
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Processador drena as entradas vencidas da fila e dispara o fan-out de cada
// uma. Não há retentativa: uma falha de entrega é terminal para a entrada, e
// toda entrada selecionada sai marcada como processada exatamente uma vez.
type Processador struct {
	store  FilaStore
	sender Sender
	limite int
}

func NewProcessador(store FilaStore, sender Sender, limite int) *Processador {
	if limite <= 0 {
		limite = LimitePadraoFila
	}
	return &Processador{store: store, sender: sender, limite: limite}
}

func (p *Processador) Processar(ctx context.Context) (*ResultadoFila, error) {
	pendentes, err := p.store.GetNotificacoesPendentes(p.limite)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar notificações pendentes: %w", err)
	}

	resultado := &ResultadoFila{}

	for _, notif := range pendentes {
		sucesso, erroMsg := p.entregar(ctx, notif)

		if err := p.store.MarcarProcessada(notif.ID, sucesso, erroMsg); err != nil {
			log.Printf("❌ Erro ao marcar notificação %d como processada: %v", notif.ID, err)
		}

		resultado.Processed++
		if sucesso {
			resultado.Successful++
		} else {
			resultado.Failed++
		}
	}

	if resultado.Processed > 0 {
		log.Printf("📬 Fila drenada: %d processada(s), %d com sucesso, %d com falha",
			resultado.Processed, resultado.Successful, resultado.Failed)
	}

	return resultado, nil
}

// entregar resolve os tokens do perfil e dispara o fan-out. Qualquer pânico
// durante a entrega é capturado como falha da entrada, sem abortar o lote.
func (p *Processador) entregar(ctx context.Context, notif models.NotificacaoAgendada) (sucesso bool, erroMsg string) {
	defer func() {
		if r := recover(); r != nil {
			sucesso = false
			erroMsg = fmt.Sprintf("panic: %v", r)
			log.Printf("❌ Pânico ao processar notificação %d: %v", notif.ID, r)
		}
	}()

	tokens, err := p.store.GetTokensAtivos(notif.PerfilID)
	if err != nil {
		return false, err.Error()
	}
	if len(tokens) == 0 {
		return false, "Nenhum token FCM ativo"
	}

	resumo := p.sender.SendToMany(ctx, tokens, notif.Titulo, notif.Corpo, map[string]string{
		"tipo":          notif.Tipo,
		"referencia_id": notif.ReferenciaID,
	})

	if invalidos := resumo.TokensNaoRegistrados(); len(invalidos) > 0 {
		if err := p.store.DesativarTokens(invalidos); err != nil {
			log.Printf("❌ Erro ao desativar tokens inválidos: %v", err)
		} else {
			log.Printf("🔕 %d token(s) desativado(s) após rejeição do gateway", len(invalidos))
		}
	}

	if resumo.Sent > 0 {
		return true, ""
	}
	return false, resumo.ErroConcatenado()
}
