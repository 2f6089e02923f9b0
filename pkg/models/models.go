package models

import "time"

type Perfil struct {
	ID                 string `json:"id"`
	Nome               string `json:"nome"`
	NotificacoesAtivas bool   `json:"notificacoes_ativas"`
}

type TokenFCM struct {
	ID       int64  `json:"id"`
	PerfilID string `json:"perfil_id"`
	Token    string `json:"token"`
	Ativo    bool   `json:"ativo"`
}

// HorariosPadrao é a grade usada quando o medicamento informa apenas
// quantas vezes por dia deve ser tomado.
var HorariosPadrao = []string{"08:00", "14:00", "20:00"}

// Frequencia é o campo JSONB de medicamentos. Aceita duas formas:
// horários explícitos ({"horarios": ["08:00", "20:00"]}) ou o atalho
// diário ({"tipo": "diario", "vezes_por_dia": 2}).
type Frequencia struct {
	Horarios    []string `json:"horarios,omitempty"`
	Tipo        string   `json:"tipo,omitempty"`
	VezesPorDia int      `json:"vezes_por_dia,omitempty"`
}

// ExtrairHorarios resolve a frequência para a lista concreta de horários
// HH:MM do dia. Retorna vazio quando a frequência não define nada utilizável.
func (f *Frequencia) ExtrairHorarios() []string {
	if f == nil {
		return nil
	}
	if len(f.Horarios) > 0 {
		return f.Horarios
	}
	if f.Tipo == "diario" && f.VezesPorDia > 0 {
		n := f.VezesPorDia
		if n > len(HorariosPadrao) {
			n = len(HorariosPadrao)
		}
		return HorariosPadrao[:n]
	}
	return nil
}

type Medicamento struct {
	ID         int64      `json:"id"`
	PerfilID   string     `json:"perfil_id"`
	Nome       string     `json:"nome"`
	Frequencia Frequencia `json:"frequencia"`
	Ativo      bool       `json:"ativo"`
	Concluido  bool       `json:"concluido"`
}

type Rotina struct {
	ID       int64  `json:"id"`
	PerfilID string `json:"perfil_id"`
	Nome     string `json:"nome"`
	Horario  string `json:"horario"`
	// DiasSemana usa 0=domingo ... 6=sábado. Vazio significa todos os dias.
	DiasSemana []int `json:"dias_semana,omitempty"`
	Concluida  bool  `json:"concluida"`
}

type Compromisso struct {
	ID       int64     `json:"id"`
	PerfilID string    `json:"perfil_id"`
	Titulo   string    `json:"titulo"`
	DataHora time.Time `json:"data_hora"`
}

// NotificacaoAgendada é uma entrada da fila de notificações. A chave de
// idempotência é (perfil_id, tipo, referencia_id, data_agendada); a entrada
// é processada exatamente uma vez e nunca reprocessada.
type NotificacaoAgendada struct {
	ID           int64      `json:"id"`
	PerfilID     string     `json:"perfil_id"`
	Tipo         string     `json:"tipo"`
	ReferenciaID string     `json:"referencia_id"`
	Titulo       string     `json:"titulo"`
	Corpo        string     `json:"corpo"`
	DataAgendada time.Time  `json:"data_agendada"`
	Processado   bool       `json:"processado"`
	Sucesso      *bool      `json:"sucesso,omitempty"`
	Erro         *string    `json:"erro,omitempty"`
	ProcessadoEm *time.Time `json:"processado_em,omitempty"`
}

// EventoHistorico é um alerta gerado pelos monitores de atraso. No máximo um
// por (perfil, tipo_evento, referência, dia civil).
type EventoHistorico struct {
	ID             int64     `json:"id"`
	PerfilID       string    `json:"perfil_id"`
	TipoEvento     string    `json:"tipo_evento"`
	DataHora       time.Time `json:"data_hora"`
	Descricao      string    `json:"descricao"`
	ReferenciaID   string    `json:"referencia_id"`
	TipoReferencia string    `json:"tipo_referencia"`
}

// HistoricoNotificacao registra o resultado agregado de um envio endereçado
// a um perfil.
type HistoricoNotificacao struct {
	ID             int64  `json:"id"`
	PerfilID       string `json:"perfil_id"`
	Titulo         string `json:"titulo"`
	Corpo          string `json:"corpo"`
	Tipo           string `json:"tipo"`
	Sucesso        bool   `json:"sucesso"`
	TokensEnviados int    `json:"tokens_enviados"`
	TokensSucesso  int    `json:"tokens_sucesso"`
}
