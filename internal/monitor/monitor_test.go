package monitor

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pincinato07/caremind-app-novo/internal/civiltime"
	"github.com/Pincinato07/caremind-app-novo/pkg/models"
)

type fakeMonitorStore struct {
	medicamentos []models.Medicamento
	rotinas      []models.Rotina
	eventos      map[string]models.EventoHistorico
}

func newFakeMonitorStore() *fakeMonitorStore {
	return &fakeMonitorStore{eventos: map[string]models.EventoHistorico{}}
}

func (s *fakeMonitorStore) GetMedicamentosPendentes() ([]models.Medicamento, error) {
	return s.medicamentos, nil
}

func (s *fakeMonitorStore) GetRotinasPendentes() ([]models.Rotina, error) {
	return s.rotinas, nil
}

func (s *fakeMonitorStore) RegistrarEventoUnico(ev models.EventoHistorico) (bool, error) {
	dia := civiltime.InicioDoDia(ev.DataHora).Format("2006-01-02")
	key := fmt.Sprintf("%s|%s|%s|%s|%s", ev.PerfilID, ev.TipoEvento, ev.ReferenciaID, ev.TipoReferencia, dia)
	if _, existe := s.eventos[key]; existe {
		return false, nil
	}
	s.eventos[key] = ev
	return true, nil
}

func newTestMonitor(store Store, agora time.Time) *Monitor {
	m := NewMonitor(store)
	m.now = func() time.Time { return agora }
	return m
}

func metformina() models.Medicamento {
	return models.Medicamento{
		ID:         7,
		PerfilID:   "p1",
		Nome:       "Metformina",
		Frequencia: models.Frequencia{Horarios: []string{"08:00"}},
	}
}

func TestMedicamentoDentroDaTolerancia(t *testing.T) {
	store := newFakeMonitorStore()
	store.medicamentos = []models.Medicamento{metformina()}

	// 08:14, um minuto antes de estourar a tolerância de 15 minutos.
	agora := time.Date(2026, 6, 15, 8, 14, 0, 0, civiltime.Location())
	resultado, err := newTestMonitor(store, agora).MonitorarMedicamentos()
	require.NoError(t, err)

	assert.Zero(t, resultado.AlertasGerados)
	assert.Empty(t, store.eventos)
}

func TestMedicamentoNoLimiteDaTolerancia(t *testing.T) {
	store := newFakeMonitorStore()
	store.medicamentos = []models.Medicamento{metformina()}

	// 08:15 exato ainda não estoura a comparação estrita.
	agora := time.Date(2026, 6, 15, 8, 15, 0, 0, civiltime.Location())
	resultado, err := newTestMonitor(store, agora).MonitorarMedicamentos()
	require.NoError(t, err)

	assert.Zero(t, resultado.AlertasGerados)
}

func TestMedicamentoAtrasadoGeraUmAlerta(t *testing.T) {
	store := newFakeMonitorStore()
	store.medicamentos = []models.Medicamento{metformina()}

	agora := time.Date(2026, 6, 15, 8, 16, 0, 0, civiltime.Location())
	resultado, err := newTestMonitor(store, agora).MonitorarMedicamentos()
	require.NoError(t, err)

	assert.Equal(t, 1, resultado.AlertasGerados)
	require.Len(t, resultado.Detalhes, 1)
	assert.Equal(t, int64(7), resultado.Detalhes[0].ReferenciaID)
	assert.Equal(t, "Metformina", resultado.Detalhes[0].Nome)
	assert.Equal(t, "08:00", resultado.Detalhes[0].Horario)

	require.Len(t, store.eventos, 1)
	for _, ev := range store.eventos {
		assert.Equal(t, "medicamento_atrasado", ev.TipoEvento)
		assert.Equal(t, "7", ev.ReferenciaID)
		assert.Equal(t, "medicamento", ev.TipoReferencia)
		assert.Equal(t, time.Date(2026, 6, 15, 8, 0, 0, 0, civiltime.Location()), ev.DataHora)
		assert.Equal(t, `Medicamento "Metformina" não foi tomado no horário 08:00`, ev.Descricao)
	}
}

func TestMedicamentoSegundaVarreduraNaoDuplicaAlerta(t *testing.T) {
	store := newFakeMonitorStore()
	store.medicamentos = []models.Medicamento{metformina()}

	primeira, err := newTestMonitor(store, time.Date(2026, 6, 15, 8, 16, 0, 0, civiltime.Location())).MonitorarMedicamentos()
	require.NoError(t, err)
	assert.Equal(t, 1, primeira.AlertasGerados)

	segunda, err := newTestMonitor(store, time.Date(2026, 6, 15, 8, 30, 0, 0, civiltime.Location())).MonitorarMedicamentos()
	require.NoError(t, err)
	assert.Zero(t, segunda.AlertasGerados)
	assert.Len(t, store.eventos, 1)
}

func TestMedicamentoCenarioMetformina(t *testing.T) {
	store := newFakeMonitorStore()
	store.medicamentos = []models.Medicamento{metformina()}

	// 08:20, tolerância de 15 minutos vencida, sem alerta anterior.
	agora := time.Date(2026, 6, 15, 8, 20, 0, 0, civiltime.Location())
	resultado, err := newTestMonitor(store, agora).MonitorarMedicamentos()
	require.NoError(t, err)

	assert.Equal(t, 1, resultado.AlertasGerados)
	require.Len(t, store.eventos, 1)
}

func TestMedicamentoMultiplosHorarios(t *testing.T) {
	store := newFakeMonitorStore()
	store.medicamentos = []models.Medicamento{{
		ID:         9,
		PerfilID:   "p1",
		Nome:       "Losartana",
		Frequencia: models.Frequencia{Horarios: []string{"08:00", "14:00", "20:00"}},
	}}

	// 14:30: 08:00 e 14:00 vencidos, 20:00 ainda não. A chave inclui o dia
	// civil mas não o horário, então só um alerta por medicamento por dia.
	agora := time.Date(2026, 6, 15, 14, 30, 0, 0, civiltime.Location())
	resultado, err := newTestMonitor(store, agora).MonitorarMedicamentos()
	require.NoError(t, err)

	assert.Equal(t, 1, resultado.AlertasGerados)
}

func TestRotinaForaDoDiaDaSemana(t *testing.T) {
	store := newFakeMonitorStore()
	store.rotinas = []models.Rotina{{
		ID:         4,
		PerfilID:   "p1",
		Nome:       "Caminhada",
		Horario:    "07:00",
		DiasSemana: []int{1, 3, 5},
	}}

	// 14/06/2026 é domingo (dia 0): a rotina não se aplica.
	agora := time.Date(2026, 6, 14, 10, 0, 0, 0, civiltime.Location())
	resultado, err := newTestMonitor(store, agora).MonitorarRotinas()
	require.NoError(t, err)

	assert.Zero(t, resultado.AlertasGerados)
}

func TestRotinaAtrasadaNoDiaAplicavel(t *testing.T) {
	store := newFakeMonitorStore()
	store.rotinas = []models.Rotina{{
		ID:         4,
		PerfilID:   "p1",
		Nome:       "Caminhada",
		Horario:    "07:00",
		DiasSemana: []int{1, 3, 5},
	}}

	// 15/06/2026 é segunda (dia 1); 07:31 estoura a tolerância de 30 minutos.
	agora := time.Date(2026, 6, 15, 7, 31, 0, 0, civiltime.Location())
	resultado, err := newTestMonitor(store, agora).MonitorarRotinas()
	require.NoError(t, err)

	assert.Equal(t, 1, resultado.AlertasGerados)
	for _, ev := range store.eventos {
		assert.Equal(t, "rotina_nao_concluida", ev.TipoEvento)
		assert.Equal(t, "rotina", ev.TipoReferencia)
		assert.Equal(t, `Rotina "Caminhada" não foi concluída no horário 07:00`, ev.Descricao)
	}
}

func TestRotinaDentroDaTolerancia(t *testing.T) {
	store := newFakeMonitorStore()
	store.rotinas = []models.Rotina{{
		ID:       4,
		PerfilID: "p1",
		Nome:     "Caminhada",
		Horario:  "07:00",
	}}

	agora := time.Date(2026, 6, 15, 7, 30, 0, 0, civiltime.Location())
	resultado, err := newTestMonitor(store, agora).MonitorarRotinas()
	require.NoError(t, err)

	assert.Zero(t, resultado.AlertasGerados)
}

func TestRotinaSemDiasSemanaValeTodoDia(t *testing.T) {
	store := newFakeMonitorStore()
	store.rotinas = []models.Rotina{{
		ID:       4,
		PerfilID: "p1",
		Nome:     "Alongamento",
		Horario:  "06:00",
	}}

	// Domingo, rotina sem dias_semana: aplica-se mesmo assim.
	agora := time.Date(2026, 6, 14, 9, 0, 0, 0, civiltime.Location())
	resultado, err := newTestMonitor(store, agora).MonitorarRotinas()
	require.NoError(t, err)

	assert.Equal(t, 1, resultado.AlertasGerados)
}

func TestRotinaHorarioVazioIgnorada(t *testing.T) {
	store := newFakeMonitorStore()
	store.rotinas = []models.Rotina{{ID: 4, PerfilID: "p1", Nome: "Sem horário"}}

	agora := time.Date(2026, 6, 15, 12, 0, 0, 0, civiltime.Location())
	resultado, err := newTestMonitor(store, agora).MonitorarRotinas()
	require.NoError(t, err)

	assert.Zero(t, resultado.AlertasGerados)
}
