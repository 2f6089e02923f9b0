package database

import (
	"fmt"

	"github.com/Pincinato07/caremind-app-novo/pkg/models"
)

// UpsertNotificacaoAgendada insere uma entrada na fila. A chave de conflito
// (perfil_id, tipo, referencia_id, data_agendada) torna a operação
// idempotente: reprocessar a mesma ocorrência é um no-op. Retorna true quando
// uma entrada nova foi de fato inserida.
func (db *DB) UpsertNotificacaoAgendada(n models.NotificacaoAgendada) (bool, error) {
	query := `
		INSERT INTO notificacoes_agendadas (perfil_id, tipo, referencia_id, titulo, corpo, data_agendada, processado)
		VALUES ($1, $2, $3, $4, $5, $6, false)
		ON CONFLICT ON CONSTRAINT notificacoes_agendadas_ocorrencia DO NOTHING
	`

	result, err := db.conn.Exec(query, n.PerfilID, n.Tipo, n.ReferenciaID, n.Titulo, n.Corpo, n.DataAgendada)
	if err != nil {
		return false, fmt.Errorf("failed to upsert notificação: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// GetNotificacoesPendentes retorna até `limite` entradas vencidas e ainda não
// processadas. Não há garantia de ordem além do filtro de vencimento.
func (db *DB) GetNotificacoesPendentes(limite int) ([]models.NotificacaoAgendada, error) {
	query := `
		SELECT id, perfil_id, tipo, referencia_id, titulo, corpo, data_agendada, processado
		FROM notificacoes_agendadas
		WHERE processado = false
		  AND data_agendada <= NOW()
		LIMIT $1
	`

	rows, err := db.conn.Query(query, limite)
	if err != nil {
		return nil, fmt.Errorf("failed to query notificações pendentes: %w", err)
	}
	defer rows.Close()

	var notificacoes []models.NotificacaoAgendada
	for rows.Next() {
		var n models.NotificacaoAgendada
		err := rows.Scan(&n.ID, &n.PerfilID, &n.Tipo, &n.ReferenciaID, &n.Titulo, &n.Corpo, &n.DataAgendada, &n.Processado)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notificação: %w", err)
		}
		notificacoes = append(notificacoes, n)
	}

	return notificacoes, rows.Err()
}

// MarcarProcessada registra o desfecho de uma entrada da fila. A transição
// processado=false -> true acontece exatamente uma vez; a entrada nunca volta
// para a fila, mesmo em caso de falha de entrega.
func (db *DB) MarcarProcessada(id int64, sucesso bool, erro string) error {
	query := `
		UPDATE notificacoes_agendadas
		SET processado = true,
		    sucesso = $2,
		    erro = NULLIF($3, ''),
		    processado_em = NOW()
		WHERE id = $1
	`

	result, err := db.conn.Exec(query, id, sucesso, erro)
	if err != nil {
		return fmt.Errorf("failed to update notificação: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("notificação %d não encontrada", id)
	}

	return nil
}
