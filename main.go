package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Pincinato07/caremind-app-novo/internal/config"
	"github.com/Pincinato07/caremind-app-novo/internal/database"
	"github.com/Pincinato07/caremind-app-novo/internal/monitor"
	"github.com/Pincinato07/caremind-app-novo/internal/push"
	"github.com/Pincinato07/caremind-app-novo/internal/scheduler"
	"github.com/Pincinato07/caremind-app-novo/pkg/models"

	"github.com/gorilla/mux"
)

// --- ESTRUTURAS CORE ---

type Server struct {
	cfg         *config.Config
	db          *database.DB
	pushClient  *push.Client
	agendador   *scheduler.Agendador
	processador *scheduler.Processador
	monitor     *monitor.Monitor
}

var (
	startTime  time.Time
	serverLogs []string
	logsMutex  sync.RWMutex
)

const maxLogs = 100

type logWriter struct{}

func (lw logWriter) Write(p []byte) (n int, err error) {
	logsMutex.Lock()
	defer logsMutex.Unlock()

	msg := string(p)
	if len(msg) > 0 && msg[len(msg)-1] == '\n' {
		msg = msg[:len(msg)-1]
	}

	timestamp := time.Now().Format("15:04:05")
	logEntry := fmt.Sprintf("[%s] %s", timestamp, msg)

	serverLogs = append(serverLogs, logEntry)
	if len(serverLogs) > maxLogs {
		serverLogs = serverLogs[1:]
	}

	// Imprimir no console também
	fmt.Println(logEntry)

	return len(p), nil
}

func addServerLog(msg string) {
	log.Println(msg)
}

// --- INICIALIZAÇÃO ---

func NewServer(cfg *config.Config, db *database.DB, pushClient *push.Client) *Server {
	return &Server{
		cfg:         cfg,
		db:          db,
		pushClient:  pushClient,
		agendador:   scheduler.NewAgendador(db),
		processador: scheduler.NewProcessador(db, pushClient, cfg.FilaLimite),
		monitor:     monitor.NewMonitor(db),
	}
}

func main() {
	log.SetFlags(0)
	log.SetOutput(logWriter{})

	startTime = time.Now()
	addServerLog("🚀 Iniciando Servidor CareMind Notificações...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Erro config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Erro config: %v", err)
	}

	db, err := database.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Erro DB: %v", err)
	}
	defer db.Close()

	account, err := push.LoadServiceAccount(cfg.FirebaseServiceAccount, cfg.FCMProjectID, cfg.FCMPrivateKey, cfg.FCMClientEmail)
	if err != nil {
		log.Fatalf("❌ Erro FCM: %v", err)
	}
	addServerLog(fmt.Sprintf("✅ Credenciais FCM carregadas (projeto %s)", account.ProjectID))

	server := NewServer(cfg, db, push.NewClient(account))

	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/notificacoes/enviar", server.enviarHandler).Methods("POST")
	api.HandleFunc("/notificacoes/agendar", server.agendarHandler).Methods("POST")
	api.HandleFunc("/notificacoes/processar-fila", server.processarFilaHandler).Methods("POST")
	api.HandleFunc("/notificacoes/tick", server.tickHandler).Methods("POST")
	api.HandleFunc("/monitorar/medicamentos", server.monitorarMedicamentosHandler).Methods("POST")
	api.HandleFunc("/monitorar/rotinas", server.monitorarRotinasHandler).Methods("POST")
	api.HandleFunc("/stats", server.statsHandler).Methods("GET")
	api.HandleFunc("/health", server.healthCheckHandler).Methods("GET")
	api.HandleFunc("/logs", logsHandler).Methods("GET")

	addServerLog(fmt.Sprintf("✅ Servidor pronto na porta %s", cfg.Port))
	log.Fatal(http.ListenAndServe(":"+cfg.Port, corsMiddleware(router)))
}

// --- API HANDLERS ---

type enviarRequest struct {
	Token     string            `json:"token"`
	Tokens    []string          `json:"tokens"`
	PerfilID  string            `json:"perfil_id"`
	PerfilIDs []string          `json:"perfil_ids"`
	Titulo    string            `json:"titulo"`
	Corpo     string            `json:"corpo"`
	Tipo      string            `json:"tipo"`
	Data      map[string]string `json:"data"`
}

// enviarHandler envia um push imediato. O destino pode ser um token direto,
// uma lista de tokens, um perfil ou uma lista de perfis; nos dois últimos os
// tokens ativos são resolvidos no banco e o resultado agregado vai para o
// histórico de notificações.
func (s *Server) enviarHandler(w http.ResponseWriter, r *http.Request) {
	var req enviarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "body inválido")
		return
	}

	if req.Titulo == "" || req.Corpo == "" {
		respondError(w, http.StatusBadRequest, "titulo e corpo são obrigatórios")
		return
	}

	tokens := append([]string{}, req.Tokens...)
	if req.Token != "" {
		tokens = append(tokens, req.Token)
	}

	perfilIDs := append([]string{}, req.PerfilIDs...)
	if req.PerfilID != "" {
		perfilIDs = append(perfilIDs, req.PerfilID)
	}
	if len(perfilIDs) > 0 {
		resolvidos, err := s.db.GetTokensAtivosPerfis(perfilIDs)
		if err != nil {
			addServerLog(fmt.Sprintf("❌ Erro ao buscar tokens: %v", err))
			respondError(w, http.StatusInternalServerError, "erro ao buscar tokens")
			return
		}
		tokens = append(tokens, resolvidos...)
	}

	if len(tokens) == 0 {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "Nenhum token FCM encontrado",
			"sent":    0,
			"failed":  0,
			"total":   0,
		})
		return
	}

	data := req.Data
	if req.Tipo != "" {
		if data == nil {
			data = map[string]string{}
		}
		data["tipo"] = req.Tipo
	}

	resumo := s.pushClient.SendToMany(r.Context(), tokens, req.Titulo, req.Corpo, data)

	if mortos := resumo.TokensNaoRegistrados(); len(mortos) > 0 {
		if err := s.db.DesativarTokens(mortos); err != nil {
			addServerLog(fmt.Sprintf("⚠️ Erro ao desativar tokens: %v", err))
		} else {
			addServerLog(fmt.Sprintf("🧹 %d token(s) não registrado(s) desativado(s)", len(mortos)))
		}
	}

	for _, perfilID := range perfilIDs {
		err := s.db.RegistrarHistoricoNotificacao(models.HistoricoNotificacao{
			PerfilID:       perfilID,
			Titulo:         req.Titulo,
			Corpo:          req.Corpo,
			Tipo:           req.Tipo,
			Sucesso:        resumo.Sent > 0,
			TokensEnviados: len(tokens),
			TokensSucesso:  resumo.Sent,
		})
		if err != nil {
			addServerLog(fmt.Sprintf("⚠️ Erro ao gravar histórico: %v", err))
		}
	}

	resposta := map[string]interface{}{
		"success": resumo.Sent > 0,
		"sent":    resumo.Sent,
		"failed":  resumo.Failed,
		"total":   len(tokens),
	}
	if len(resumo.Errors) > 0 {
		resposta["errors"] = resumo.Errors
	}

	addServerLog(fmt.Sprintf("📤 Envio concluído: %d ok, %d falha(s)", resumo.Sent, resumo.Failed))
	respondJSON(w, http.StatusOK, resposta)
}

func (s *Server) agendarHandler(w http.ResponseWriter, r *http.Request) {
	resultado, err := s.agendador.Agendar()
	if err != nil {
		addServerLog(fmt.Sprintf("❌ Erro no agendamento: %v", err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	addServerLog(fmt.Sprintf("📅 Agendamento: %d medicamento(s), %d compromisso(s)",
		resultado.MedicamentosAgendados, resultado.CompromissosAgendados))

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":                true,
		"perfis_processados":     resultado.PerfisProcessados,
		"medicamentos_agendados": resultado.MedicamentosAgendados,
		"compromissos_agendados": resultado.CompromissosAgendados,
	})
}

func (s *Server) processarFilaHandler(w http.ResponseWriter, r *http.Request) {
	resultado, err := s.processador.Processar(r.Context())
	if err != nil {
		addServerLog(fmt.Sprintf("❌ Erro na fila: %v", err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resposta := map[string]interface{}{
		"success":    true,
		"processed":  resultado.Processed,
		"successful": resultado.Successful,
		"failed":     resultado.Failed,
	}
	if resultado.Processed == 0 {
		resposta["message"] = "Nenhuma notificação pendente"
	}

	addServerLog(fmt.Sprintf("📨 Fila: %d processada(s), %d ok, %d falha(s)",
		resultado.Processed, resultado.Successful, resultado.Failed))
	respondJSON(w, http.StatusOK, resposta)
}

// tickHandler encadeia agendamento e processamento da fila numa chamada só,
// para uso por um cron externo.
func (s *Server) tickHandler(w http.ResponseWriter, r *http.Request) {
	agendamento, err := s.agendador.Agendar()
	if err != nil {
		addServerLog(fmt.Sprintf("❌ Erro no tick (agendar): %v", err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	fila, err := s.processador.Processar(r.Context())
	if err != nil {
		addServerLog(fmt.Sprintf("❌ Erro no tick (fila): %v", err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"scheduled": agendamento.MedicamentosAgendados + agendamento.CompromissosAgendados,
		"processed": fila.Processed,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) monitorarMedicamentosHandler(w http.ResponseWriter, r *http.Request) {
	resultado, err := s.monitor.MonitorarMedicamentos()
	if err != nil {
		addServerLog(fmt.Sprintf("❌ Erro no monitoramento: %v", err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if resultado.AlertasGerados > 0 {
		addServerLog(fmt.Sprintf("🚨 %d alerta(s) de medicamento atrasado", resultado.AlertasGerados))
	}
	respondJSON(w, http.StatusOK, resultado)
}

func (s *Server) monitorarRotinasHandler(w http.ResponseWriter, r *http.Request) {
	resultado, err := s.monitor.MonitorarRotinas()
	if err != nil {
		addServerLog(fmt.Sprintf("❌ Erro no monitoramento: %v", err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if resultado.AlertasGerados > 0 {
		addServerLog(fmt.Sprintf("🚨 %d alerta(s) de rotina não concluída", resultado.AlertasGerados))
	}
	respondJSON(w, http.StatusOK, resultado)
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	dbStatus := false
	if s.db != nil && s.db.GetConnection() != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.GetConnection().PingContext(ctx); err == nil {
			dbStatus = true
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"uptime":      formatDuration(time.Since(startTime)),
		"db_status":   dbStatus,
		"fcm_project": s.cfg.FCMProjectID,
		"fila_limite": s.cfg.FilaLimite,
		"timestamp":   time.Now().Unix(),
	})
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK

	if err := s.db.GetConnection().Ping(); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	respondJSON(w, httpStatus, map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}

func logsHandler(w http.ResponseWriter, r *http.Request) {
	logsMutex.RLock()
	defer logsMutex.RUnlock()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"logs": serverLogs,
	})
}

// --- HELPERS ---

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept")

		// Responde preflight imediatamente
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
