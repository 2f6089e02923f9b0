package scheduler

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/Pincinato07/caremind-app-novo/internal/civiltime"
	"github.com/Pincinato07/caremind-app-novo/pkg/models"
)

// Antecedência fixa dos lembretes em relação ao horário da obrigação.
const (
	AntecedenciaMedicamento = 5 * time.Minute
	AntecedenciaCompromisso = 30 * time.Minute
)

// AgendaStore é o recorte do banco usado pelo agendador diário.
type AgendaStore interface {
	GetPerfisComNotificacoes() ([]models.Perfil, error)
	GetMedicamentosAtivos(perfilID string) ([]models.Medicamento, error)
	GetCompromissosEntre(perfilID string, inicio, fim time.Time) ([]models.Compromisso, error)
	UpsertNotificacaoAgendada(n models.NotificacaoAgendada) (bool, error)
}

type ResultadoAgendamento struct {
	PerfisProcessados     int `json:"perfis_processados"`
	MedicamentosAgendados int `json:"medicamentos_agendados"`
	CompromissosAgendados int `json:"compromissos_agendados"`
}

// Agendador percorre os perfis com notificações ativas e enfileira os
// lembretes do dia seguinte: medicamentos 5 minutos antes de cada horário e
// compromissos 30 minutos antes. Rotinas não geram lembrete antecipado; elas
// são cobertas apenas pelo monitor de atrasos.
type Agendador struct {
	store AgendaStore
	now   func() time.Time
}

func NewAgendador(store AgendaStore) *Agendador {
	return &Agendador{store: store, now: civiltime.Now}
}

// Agendar computa a janela de amanhã no calendário civil de Brasília e faz o
// upsert das ocorrências futuras. Reexecutar com os mesmos dados é um no-op:
// a chave de conflito da fila absorve as duplicatas.
func (a *Agendador) Agendar() (*ResultadoAgendamento, error) {
	agora := a.now()
	amanha := civiltime.InicioDoDia(agora).AddDate(0, 0, 1)
	fimAmanha := civiltime.FimDoDia(amanha)

	perfis, err := a.store.GetPerfisComNotificacoes()
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar perfis: %w", err)
	}

	resultado := &ResultadoAgendamento{PerfisProcessados: len(perfis)}

	for _, perfil := range perfis {
		resultado.MedicamentosAgendados += a.agendarMedicamentos(perfil, agora, amanha)
		resultado.CompromissosAgendados += a.agendarCompromissos(perfil, agora, amanha, fimAmanha)
	}

	log.Printf("📅 Agendamento diário: %d perfil(is), %d medicamento(s), %d compromisso(s)",
		resultado.PerfisProcessados, resultado.MedicamentosAgendados, resultado.CompromissosAgendados)

	return resultado, nil
}

func (a *Agendador) agendarMedicamentos(perfil models.Perfil, agora, amanha time.Time) int {
	medicamentos, err := a.store.GetMedicamentosAtivos(perfil.ID)
	if err != nil {
		log.Printf("❌ Erro ao buscar medicamentos do perfil %s: %v", perfil.ID, err)
		return 0
	}

	agendados := 0
	for _, med := range medicamentos {
		for _, horario := range med.Frequencia.ExtrairHorarios() {
			hora, minuto, err := civiltime.ParseHorario(horario)
			if err != nil {
				log.Printf("⚠️  Medicamento %d com horário inválido %q", med.ID, horario)
				continue
			}

			dataNotif := civiltime.NoDia(amanha, hora, minuto).Add(-AntecedenciaMedicamento)
			if !dataNotif.After(agora) {
				continue
			}

			inserido, err := a.store.UpsertNotificacaoAgendada(models.NotificacaoAgendada{
				PerfilID:     perfil.ID,
				Tipo:         "medicamento",
				ReferenciaID: strconv.FormatInt(med.ID, 10),
				Titulo:       "Hora do medicamento",
				Corpo:        fmt.Sprintf("Lembrete: %s às %s", med.Nome, horario),
				DataAgendada: dataNotif,
			})
			if err != nil {
				log.Printf("❌ Erro ao agendar medicamento %d: %v", med.ID, err)
				continue
			}
			if inserido {
				agendados++
			}
		}
	}

	return agendados
}

func (a *Agendador) agendarCompromissos(perfil models.Perfil, agora, amanha, fimAmanha time.Time) int {
	compromissos, err := a.store.GetCompromissosEntre(perfil.ID, amanha, fimAmanha)
	if err != nil {
		log.Printf("❌ Erro ao buscar compromissos do perfil %s: %v", perfil.ID, err)
		return 0
	}

	agendados := 0
	for _, comp := range compromissos {
		dataNotif := comp.DataHora.Add(-AntecedenciaCompromisso)
		if !dataNotif.After(agora) {
			continue
		}

		inserido, err := a.store.UpsertNotificacaoAgendada(models.NotificacaoAgendada{
			PerfilID:     perfil.ID,
			Tipo:         "compromisso",
			ReferenciaID: strconv.FormatInt(comp.ID, 10),
			Titulo:       "Lembrete de compromisso",
			Corpo:        fmt.Sprintf("%s em 30 minutos", comp.Titulo),
			DataAgendada: dataNotif,
		})
		if err != nil {
			log.Printf("❌ Erro ao agendar compromisso %d: %v", comp.ID, err)
			continue
		}
		if inserido {
			agendados++
		}
	}

	return agendados
}
