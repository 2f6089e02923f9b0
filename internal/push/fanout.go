package push

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// TokenResult associa o desfecho de uma tentativa ao token alvo, na mesma
// ordem da lista de entrada.
type TokenResult struct {
	Token  string
	Result Result
}

// Summary agrega o resultado de um fan-out: Sent + Failed == len(Results).
// Errors mantém o formato "Token <i>: <msg>" das respostas da API; para
// decidir quais tokens desativar, os chamadores usam Results, nunca o índice
// extraído da string.
type Summary struct {
	Sent    int
	Failed  int
	Errors  []string
	Results []TokenResult
}

// TokensNaoRegistrados retorna os tokens que o gateway reportou como
// inválidos neste fan-out.
func (s Summary) TokensNaoRegistrados() []string {
	var tokens []string
	for _, r := range s.Results {
		if r.Result.Unregistered {
			tokens = append(tokens, r.Token)
		}
	}
	return tokens
}

// ErroConcatenado junta as mensagens de falha em uma única string, para
// registro no desfecho de uma entrada da fila.
func (s Summary) ErroConcatenado() string {
	return strings.Join(s.Errors, "; ")
}

// SendToMany dispara uma tentativa de entrega por token, todas concorrentes
// e independentes: a falha de um token nunca aborta nem atrasa os demais.
func (c *Client) SendToMany(ctx context.Context, tokens []string, titulo, corpo string, data map[string]string) Summary {
	results := make([]TokenResult, len(tokens))

	var wg sync.WaitGroup
	for i, token := range tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			result := c.Send(ctx, Message{Token: token, Titulo: titulo, Corpo: corpo, Data: data})
			results[i] = TokenResult{Token: token, Result: result}
		}(i, token)
	}
	wg.Wait()

	summary := Summary{Results: results}
	for i, r := range results {
		if r.Result.Success {
			summary.Sent++
		} else {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("Token %d: %s", i, r.Result.Error))
		}
	}

	return summary
}
