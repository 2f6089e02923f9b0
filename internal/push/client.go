package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const fcmEndpoint = "https://fcm.googleapis.com"

// Message é uma notificação lógica endereçada a um único device token.
type Message struct {
	Token     string
	Titulo    string
	Corpo     string
	Data      map[string]string
	ImagemURL string
}

// Result é o desfecho de uma tentativa de entrega. Send nunca retorna erro
// ao chamador: toda falha (rede, credencial, gateway) vira um Result com
// Error preenchido.
type Result struct {
	Success   bool
	MessageID string
	Error     string
	// Unregistered indica que o gateway reportou o token como inválido e
	// ele deve ser desativado no registro.
	Unregistered bool
}

// Client envia notificações pelo endpoint HTTP v1 do FCM, autenticando com
// o bearer token do CredentialCache.
type Client struct {
	httpClient *http.Client
	creds      *CredentialCache
	projectID  string
	endpoint   string
}

func NewClient(account *ServiceAccount) *Client {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	return &Client{
		httpClient: httpClient,
		creds:      NewCredentialCache(account, httpClient),
		projectID:  account.ProjectID,
		endpoint:   fcmEndpoint,
	}
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image,omitempty"`
}

type fcmAndroidNotification struct {
	Sound       string `json:"sound"`
	ClickAction string `json:"click_action"`
	ChannelID   string `json:"channel_id"`
}

type fcmAndroid struct {
	Priority     string                 `json:"priority"`
	Notification fcmAndroidNotification `json:"notification"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      fcmAndroid        `json:"android"`
	APNS         map[string]any    `json:"apns"`
	Webpush      map[string]any    `json:"webpush"`
}

// buildPayload monta o payload v1 com as dicas fixas de entrega: prioridade
// alta, som padrão, canal caremind_notifications e incremento de badge.
// Essas dicas são política do backend, não configuráveis pelo chamador.
func buildPayload(msg Message) fcmMessage {
	return fcmMessage{
		Token: msg.Token,
		Notification: fcmNotification{
			Title: msg.Titulo,
			Body:  msg.Corpo,
			Image: msg.ImagemURL,
		},
		Data: msg.Data,
		Android: fcmAndroid{
			Priority: "high",
			Notification: fcmAndroidNotification{
				Sound:       "default",
				ClickAction: "FLUTTER_NOTIFICATION_CLICK",
				ChannelID:   "caremind_notifications",
			},
		},
		APNS: map[string]any{
			"payload": map[string]any{
				"aps": map[string]any{
					"sound":             "default",
					"badge":             1,
					"content-available": 1,
				},
			},
		},
		Webpush: map[string]any{
			"notification": map[string]any{
				"icon":  "/icons/icon-192x192.png",
				"badge": "/icons/badge-72x72.png",
			},
		},
	}
}

// Send entrega uma notificação a um token. Pode disparar a regeneração da
// credencial em cache quando ela estiver a menos de um minuto de expirar.
func (c *Client) Send(ctx context.Context, msg Message) Result {
	if msg.Token == "" {
		return Result{Error: "device token vazio"}
	}

	accessToken, err := c.creds.Get(ctx)
	if err != nil {
		return Result{Error: err.Error()}
	}

	payload, err := json.Marshal(map[string]any{"message": buildPayload(msg)})
	if err != nil {
		return Result{Error: fmt.Sprintf("falha ao serializar payload: %v", err)}
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.endpoint, c.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Result{Error: fmt.Sprintf("falha ao montar requisição: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{Error: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Error: fmt.Sprintf("falha ao ler resposta do FCM: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
				Status  string `json:"status"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &errResp)

		errMsg := errResp.Error.Message
		if errMsg == "" {
			errMsg = string(body)
		}
		log.Printf("❌ Erro FCM: %s", errMsg)

		return Result{
			Error: errMsg,
			Unregistered: errResp.Error.Status == "UNREGISTERED" ||
				errResp.Error.Status == "NOT_FOUND" ||
				resp.StatusCode == http.StatusNotFound,
		}
	}

	var okResp struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(body, &okResp)

	return Result{Success: true, MessageID: okResp.Name}
}
