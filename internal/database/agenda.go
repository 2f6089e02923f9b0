package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Pincinato07/caremind-app-novo/pkg/models"
)

// GetPerfisComNotificacoes retorna os perfis que aceitam receber lembretes.
func (db *DB) GetPerfisComNotificacoes() ([]models.Perfil, error) {
	query := `
		SELECT id, nome, notificacoes_ativas
		FROM perfis
		WHERE notificacoes_ativas = true
	`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query perfis: %w", err)
	}
	defer rows.Close()

	var perfis []models.Perfil
	for rows.Next() {
		var p models.Perfil
		if err := rows.Scan(&p.ID, &p.Nome, &p.NotificacoesAtivas); err != nil {
			return nil, fmt.Errorf("failed to scan perfil: %w", err)
		}
		perfis = append(perfis, p)
	}

	return perfis, rows.Err()
}

// GetMedicamentosAtivos retorna os medicamentos ativos de um perfil, com a
// frequência decodificada do JSONB.
func (db *DB) GetMedicamentosAtivos(perfilID string) ([]models.Medicamento, error) {
	query := `
		SELECT id, perfil_id, nome, COALESCE(frequencia, '{}'::jsonb), ativo, concluido
		FROM medicamentos
		WHERE perfil_id = $1
		  AND ativo = true
	`

	rows, err := db.conn.Query(query, perfilID)
	if err != nil {
		return nil, fmt.Errorf("failed to query medicamentos: %w", err)
	}
	defer rows.Close()

	return scanMedicamentos(rows)
}

// GetMedicamentosPendentes retorna todos os medicamentos ainda não concluídos,
// de todos os perfis. Usado pelo monitor de atrasos.
func (db *DB) GetMedicamentosPendentes() ([]models.Medicamento, error) {
	query := `
		SELECT id, perfil_id, nome, COALESCE(frequencia, '{}'::jsonb), ativo, concluido
		FROM medicamentos
		WHERE concluido = false
	`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query medicamentos: %w", err)
	}
	defer rows.Close()

	return scanMedicamentos(rows)
}

func scanMedicamentos(rows *sql.Rows) ([]models.Medicamento, error) {
	var medicamentos []models.Medicamento
	for rows.Next() {
		var m models.Medicamento
		var frequencia []byte
		if err := rows.Scan(&m.ID, &m.PerfilID, &m.Nome, &frequencia, &m.Ativo, &m.Concluido); err != nil {
			return nil, fmt.Errorf("failed to scan medicamento: %w", err)
		}
		if err := json.Unmarshal(frequencia, &m.Frequencia); err != nil {
			return nil, fmt.Errorf("frequência inválida do medicamento %d: %w", m.ID, err)
		}
		medicamentos = append(medicamentos, m)
	}

	return medicamentos, rows.Err()
}

// GetRotinasPendentes retorna todas as rotinas ainda não concluídas.
func (db *DB) GetRotinasPendentes() ([]models.Rotina, error) {
	query := `
		SELECT id, perfil_id, nome, horario, COALESCE(dias_semana, '{}'), concluida
		FROM rotinas
		WHERE concluida = false
	`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rotinas: %w", err)
	}
	defer rows.Close()

	var rotinas []models.Rotina
	for rows.Next() {
		var r models.Rotina
		var dias pq.Int64Array
		if err := rows.Scan(&r.ID, &r.PerfilID, &r.Nome, &r.Horario, &dias, &r.Concluida); err != nil {
			return nil, fmt.Errorf("failed to scan rotina: %w", err)
		}
		for _, d := range dias {
			r.DiasSemana = append(r.DiasSemana, int(d))
		}
		rotinas = append(rotinas, r)
	}

	return rotinas, rows.Err()
}

// GetCompromissosEntre retorna os compromissos de um perfil dentro de uma
// janela de tempo (limites inclusivos).
func (db *DB) GetCompromissosEntre(perfilID string, inicio, fim time.Time) ([]models.Compromisso, error) {
	query := `
		SELECT id, perfil_id, titulo, data_hora
		FROM compromissos
		WHERE perfil_id = $1
		  AND data_hora >= $2
		  AND data_hora <= $3
	`

	rows, err := db.conn.Query(query, perfilID, inicio, fim)
	if err != nil {
		return nil, fmt.Errorf("failed to query compromissos: %w", err)
	}
	defer rows.Close()

	var compromissos []models.Compromisso
	for rows.Next() {
		var c models.Compromisso
		if err := rows.Scan(&c.ID, &c.PerfilID, &c.Titulo, &c.DataHora); err != nil {
			return nil, fmt.Errorf("failed to scan compromisso: %w", err)
		}
		compromissos = append(compromissos, c)
	}

	return compromissos, rows.Err()
}
