package civiltime

import (
	"fmt"
	"time"
)

// Zone é o fuso civil fixo do CareMind. Todos os horários de medicamentos,
// rotinas e compromissos são interpretados neste fuso, independente do fuso
// do servidor onde o backend roda.
const Zone = "America/Sao_Paulo"

var loc = mustLoadLocation()

func mustLoadLocation() *time.Location {
	l, err := time.LoadLocation(Zone)
	if err != nil {
		panic(fmt.Sprintf("civiltime: fuso %s indisponível: %v", Zone, err))
	}
	return l
}

// Location retorna o fuso de Brasília carregado da base tz do sistema.
func Location() *time.Location {
	return loc
}

// Now retorna o instante atual já convertido para o fuso de Brasília.
func Now() time.Time {
	return time.Now().In(loc)
}

// MinutosDoDia retorna quantos minutos se passaram desde a meia-noite civil.
func MinutosDoDia(t time.Time) int {
	t = t.In(loc)
	return t.Hour()*60 + t.Minute()
}

// DiaSemana retorna o dia da semana civil (0=domingo ... 6=sábado).
func DiaSemana(t time.Time) int {
	return int(t.In(loc).Weekday())
}

// InicioDoDia retorna 00:00:00 do dia civil de t.
func InicioDoDia(t time.Time) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// FimDoDia retorna 23:59:59 do dia civil de t.
func FimDoDia(t time.Time) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, loc)
}

// NoDia compõe o dia civil de t com um horário HH:MM, produzindo o instante
// absoluto correspondente no fuso de Brasília.
func NoDia(t time.Time, hora, minuto int) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), hora, minuto, 0, 0, loc)
}

// ParseHorario interpreta um horário "HH:MM".
func ParseHorario(horario string) (hora, minuto int, err error) {
	if _, err = fmt.Sscanf(horario, "%d:%d", &hora, &minuto); err != nil {
		return 0, 0, fmt.Errorf("horário inválido %q: %w", horario, err)
	}
	if hora < 0 || hora > 23 || minuto < 0 || minuto > 59 {
		return 0, 0, fmt.Errorf("horário inválido %q", horario)
	}
	return hora, minuto, nil
}
