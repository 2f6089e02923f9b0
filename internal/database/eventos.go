package database

import (
	"fmt"

	"github.com/Pincinato07/caremind-app-novo/internal/civiltime"
	"github.com/Pincinato07/caremind-app-novo/pkg/models"
)

// RegistrarEventoUnico insere um alerta no histórico respeitando a unicidade
// por dia civil: no máximo um evento por (perfil, tipo_evento, referência,
// dia). A violação da constraint vale como "já emitido" e a função retorna
// false sem erro.
func (db *DB) RegistrarEventoUnico(ev models.EventoHistorico) (bool, error) {
	dia := civiltime.InicioDoDia(ev.DataHora)

	query := `
		INSERT INTO historico_eventos (perfil_id, tipo_evento, data_hora, dia, descricao, referencia_id, tipo_referencia)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT historico_eventos_um_por_dia DO NOTHING
	`

	result, err := db.conn.Exec(query,
		ev.PerfilID, ev.TipoEvento, ev.DataHora, dia.Format("2006-01-02"),
		ev.Descricao, ev.ReferenciaID, ev.TipoReferencia,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert evento: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// RegistrarHistoricoNotificacao grava o resultado agregado de um envio
// endereçado a um perfil.
func (db *DB) RegistrarHistoricoNotificacao(h models.HistoricoNotificacao) error {
	query := `
		INSERT INTO historico_notificacoes (perfil_id, titulo, corpo, tipo, sucesso, tokens_enviados, tokens_sucesso)
		VALUES ($1, $2, $3, COALESCE(NULLIF($4, ''), 'geral'), $5, $6, $7)
	`

	_, err := db.conn.Exec(query,
		h.PerfilID, h.Titulo, h.Corpo, h.Tipo,
		h.Sucesso, h.TokensEnviados, h.TokensSucesso,
	)
	if err != nil {
		return fmt.Errorf("failed to insert histórico: %w", err)
	}

	return nil
}
