package monitor

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/Pincinato07/caremind-app-novo/internal/civiltime"
	"github.com/Pincinato07/caremind-app-novo/pkg/models"
)

// Tolerância após o horário configurado antes de considerar a obrigação
// atrasada.
const (
	ToleranciaMedicamento = 15 * time.Minute
	ToleranciaRotina      = 30 * time.Minute
)

// Store é o recorte do banco usado pelos monitores de atraso.
type Store interface {
	GetMedicamentosPendentes() ([]models.Medicamento, error)
	GetRotinasPendentes() ([]models.Rotina, error)
	RegistrarEventoUnico(ev models.EventoHistorico) (bool, error)
}

// Alerta é um item do relatório de uma varredura.
type Alerta struct {
	ReferenciaID int64  `json:"referencia_id"`
	Nome         string `json:"nome"`
	Horario      string `json:"horario"`
	PerfilID     string `json:"perfil_id"`
}

type ResultadoMonitoramento struct {
	Mensagem       string   `json:"message"`
	AlertasGerados int      `json:"alertas_gerados"`
	Detalhes       []Alerta `json:"detalhes"`
}

// Monitor varre as obrigações pendentes e emite no máximo um alerta por
// ocorrência por dia civil. A emissão é idempotente: a chave única do
// histórico absorve execuções sobrepostas.
type Monitor struct {
	store Store
	now   func() time.Time
}

func NewMonitor(store Store) *Monitor {
	return &Monitor{store: store, now: civiltime.Now}
}

// atrasado compara o relógio civil com um horário HH:MM mais a tolerância.
// O instante devolvido é o horário da obrigação no dia civil corrente.
func atrasado(agora time.Time, horario string, tolerancia time.Duration) (time.Time, bool, error) {
	hora, minuto, err := civiltime.ParseHorario(horario)
	if err != nil {
		return time.Time{}, false, err
	}

	minutosAgora := civiltime.MinutosDoDia(agora)
	limite := hora*60 + minuto + int(tolerancia.Minutes())
	if minutosAgora <= limite {
		return time.Time{}, false, nil
	}

	return civiltime.NoDia(agora, hora, minuto), true, nil
}

// MonitorarMedicamentos detecta doses não tomadas além da tolerância de 15
// minutos. A falha em um medicamento é registrada e a varredura continua.
func (m *Monitor) MonitorarMedicamentos() (*ResultadoMonitoramento, error) {
	// Fuso e relógio resolvidos uma única vez por execução.
	agora := m.now()

	medicamentos, err := m.store.GetMedicamentosPendentes()
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar medicamentos: %w", err)
	}

	resultado := &ResultadoMonitoramento{Mensagem: "Monitoramento concluído", Detalhes: []Alerta{}}

	for _, med := range medicamentos {
		for _, horario := range med.Frequencia.ExtrairHorarios() {
			instante, vencido, err := atrasado(agora, horario, ToleranciaMedicamento)
			if err != nil {
				log.Printf("⚠️  Medicamento %d com horário inválido %q", med.ID, horario)
				continue
			}
			if !vencido {
				continue
			}

			inserido, err := m.store.RegistrarEventoUnico(models.EventoHistorico{
				PerfilID:       med.PerfilID,
				TipoEvento:     "medicamento_atrasado",
				DataHora:       instante,
				Descricao:      fmt.Sprintf("Medicamento \"%s\" não foi tomado no horário %s", med.Nome, horario),
				ReferenciaID:   strconv.FormatInt(med.ID, 10),
				TipoReferencia: "medicamento",
			})
			if err != nil {
				log.Printf("❌ Erro ao processar medicamento %d: %v", med.ID, err)
				continue
			}
			if inserido {
				resultado.AlertasGerados++
				resultado.Detalhes = append(resultado.Detalhes, Alerta{
					ReferenciaID: med.ID,
					Nome:         med.Nome,
					Horario:      horario,
					PerfilID:     med.PerfilID,
				})
			}
		}
	}

	return resultado, nil
}

// MonitorarRotinas detecta rotinas não concluídas além da tolerância de 30
// minutos, respeitando os dias da semana em que a rotina se aplica.
func (m *Monitor) MonitorarRotinas() (*ResultadoMonitoramento, error) {
	agora := m.now()
	diaSemana := civiltime.DiaSemana(agora)

	rotinas, err := m.store.GetRotinasPendentes()
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar rotinas: %w", err)
	}

	resultado := &ResultadoMonitoramento{Mensagem: "Monitoramento de rotinas concluído", Detalhes: []Alerta{}}

	for _, rotina := range rotinas {
		if !aplicaHoje(rotina.DiasSemana, diaSemana) {
			continue
		}
		if rotina.Horario == "" {
			continue
		}

		instante, vencido, err := atrasado(agora, rotina.Horario, ToleranciaRotina)
		if err != nil {
			log.Printf("⚠️  Rotina %d com horário inválido %q", rotina.ID, rotina.Horario)
			continue
		}
		if !vencido {
			continue
		}

		inserido, err := m.store.RegistrarEventoUnico(models.EventoHistorico{
			PerfilID:       rotina.PerfilID,
			TipoEvento:     "rotina_nao_concluida",
			DataHora:       instante,
			Descricao:      fmt.Sprintf("Rotina \"%s\" não foi concluída no horário %s", rotina.Nome, rotina.Horario),
			ReferenciaID:   strconv.FormatInt(rotina.ID, 10),
			TipoReferencia: "rotina",
		})
		if err != nil {
			log.Printf("❌ Erro ao processar rotina %d: %v", rotina.ID, err)
			continue
		}
		if inserido {
			resultado.AlertasGerados++
			resultado.Detalhes = append(resultado.Detalhes, Alerta{
				ReferenciaID: rotina.ID,
				Nome:         rotina.Nome,
				Horario:      rotina.Horario,
				PerfilID:     rotina.PerfilID,
			})
		}
	}

	return resultado, nil
}

// aplicaHoje verifica se a rotina vale para o dia da semana civil atual.
// Conjunto vazio significa todos os dias.
func aplicaHoje(diasSemana []int, diaSemana int) bool {
	if len(diasSemana) == 0 {
		return true
	}
	for _, d := range diasSemana {
		if d == diaSemana {
			return true
		}
	}
	return false
}
