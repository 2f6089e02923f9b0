package database

import (
	"fmt"

	"github.com/lib/pq"
)

// GetTokensAtivos retorna os tokens FCM ativos de um perfil. Todos são
// alvo do fan-out; múltiplos dispositivos por perfil são normais.
func (db *DB) GetTokensAtivos(perfilID string) ([]string, error) {
	query := `
		SELECT token
		FROM fcm_tokens
		WHERE perfil_id = $1
		  AND ativo = true
	`

	rows, err := db.conn.Query(query, perfilID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fcm_tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, token)
	}

	return tokens, rows.Err()
}

// GetTokensAtivosPerfis retorna os tokens FCM ativos de um conjunto de perfis.
func (db *DB) GetTokensAtivosPerfis(perfilIDs []string) ([]string, error) {
	query := `
		SELECT token
		FROM fcm_tokens
		WHERE perfil_id = ANY($1)
		  AND ativo = true
	`

	rows, err := db.conn.Query(query, pq.Array(perfilIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query fcm_tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, token)
	}

	return tokens, rows.Err()
}

// DesativarTokens marca como inativos os tokens que o gateway reportou como
// não registrados. Eles deixam de ser alvo de envios futuros.
func (db *DB) DesativarTokens(tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}

	query := `
		UPDATE fcm_tokens
		SET ativo = false, atualizado_em = NOW()
		WHERE token = ANY($1)
	`

	if _, err := db.conn.Exec(query, pq.Array(tokens)); err != nil {
		return fmt.Errorf("failed to deactivate tokens: %w", err)
	}

	return nil
}
