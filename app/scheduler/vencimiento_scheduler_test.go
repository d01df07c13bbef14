package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/nemaec/obra-erp/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeContratoRepo struct {
	vencidos []*models.Contrato
}

func (r *fakeContratoRepo) ByID(ctx context.Context, id uint) (*models.Contrato, error) {
	return nil, nil
}

func (r *fakeContratoRepo) ByFilter(ctx context.Context, filter models.ContratoFilter, orderBy string, limit, offset int) ([]*models.Contrato, error) {
	return nil, nil
}

func (r *fakeContratoRepo) Save(ctx context.Context, entity *models.Contrato) error {
	return nil
}

func (r *fakeContratoRepo) SaveBatch(ctx context.Context, entities []*models.Contrato) error {
	return nil
}

func (r *fakeContratoRepo) Count(ctx context.Context, filter models.ContratoFilter) (int64, error) {
	return 0, nil
}

func (r *fakeContratoRepo) Exists(ctx context.Context, filter models.ContratoFilter) (bool, error) {
	return false, nil
}

func (r *fakeContratoRepo) ByNumero(ctx context.Context, numero string) (*models.Contrato, error) {
	return nil, nil
}

func (r *fakeContratoRepo) ListByComisaria(ctx context.Context, comisariaID uint) ([]*models.Contrato, error) {
	return nil, nil
}

func (r *fakeContratoRepo) ListVencidos(ctx context.Context) ([]*models.Contrato, error) {
	return r.vencidos, nil
}

func (r *fakeContratoRepo) Update(ctx context.Context, contrato models.Contrato) error {
	return nil
}

func (r *fakeContratoRepo) MontoTotalPorEstado(ctx context.Context) (map[models.EstadoContrato]float64, error) {
	return nil, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLog
	failing bool
}

func (r *fakeAuditRepo) ByID(ctx context.Context, id uint) (*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) ByFilter(ctx context.Context, filter models.AuditLogFilter, orderBy string, limit, offset int) ([]*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) Save(ctx context.Context, entity *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("db unavailable")
	}
	r.entries = append(r.entries, entity)
	return nil
}

func (r *fakeAuditRepo) SaveBatch(ctx context.Context, entities []*models.AuditLog) error {
	return nil
}

func (r *fakeAuditRepo) Count(ctx context.Context, filter models.AuditLogFilter) (int64, error) {
	return 0, nil
}

func (r *fakeAuditRepo) Exists(ctx context.Context, filter models.AuditLogFilter) (bool, error) {
	return false, nil
}

func (r *fakeAuditRepo) ListByUsuario(ctx context.Context, usuarioID uint, limit, offset int) ([]*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func contratoVencido(id uint, numero string) *models.Contrato {
	inicio := time.Now().UTC().AddDate(0, 0, -200)
	return &models.Contrato{
		ID:              id,
		Numero:          numero,
		PlazoDias:       120,
		FechaInicioReal: &inicio,
		Estado:          models.ContratoEnEjecucion,
	}
}

func newTestScheduler(contratoRepo *fakeContratoRepo, auditRepo *fakeAuditRepo) *VencimientoScheduler {
	logger := log.New(io.Discard, "", 0)
	return NewVencimientoScheduler(contratoRepo, auditRepo, logger, time.Hour)
}

func TestRevisar_RegistraVencidos(t *testing.T) {
	contratoRepo := &fakeContratoRepo{vencidos: []*models.Contrato{
		contratoVencido(1, "CONT-2025-001"),
		contratoVencido(2, "CONT-2025-002"),
	}}
	auditRepo := &fakeAuditRepo{}
	s := newTestScheduler(contratoRepo, auditRepo)

	s.revisar(context.Background())

	require.Equal(t, 2, auditRepo.count())
	entry := auditRepo.entries[0]
	assert.Equal(t, models.AuditActionContratoVencido, entry.Action)
	require.NotNil(t, entry.Description)
	assert.Contains(t, *entry.Description, "CONT-2025-001")
	assert.Contains(t, *entry.Description, "120 dias")
	require.NotNil(t, entry.Success)
	assert.True(t, *entry.Success)
}

func TestRevisar_NoDuplicaReportes(t *testing.T) {
	contratoRepo := &fakeContratoRepo{vencidos: []*models.Contrato{
		contratoVencido(1, "CONT-2025-001"),
	}}
	auditRepo := &fakeAuditRepo{}
	s := newTestScheduler(contratoRepo, auditRepo)

	s.revisar(context.Background())
	s.revisar(context.Background())
	s.revisar(context.Background())

	assert.Equal(t, 1, auditRepo.count())
}

func TestRevisar_OmiteContratoSinInicio(t *testing.T) {
	sinInicio := &models.Contrato{
		ID:        1,
		Numero:    "CONT-2025-003",
		PlazoDias: 120,
		Estado:    models.ContratoEnEjecucion,
	}
	contratoRepo := &fakeContratoRepo{vencidos: []*models.Contrato{sinInicio}}
	auditRepo := &fakeAuditRepo{}
	s := newTestScheduler(contratoRepo, auditRepo)

	s.revisar(context.Background())

	assert.Equal(t, 0, auditRepo.count())
}

func TestRevisar_ReintentaTrasFalloDeAuditoria(t *testing.T) {
	contratoRepo := &fakeContratoRepo{vencidos: []*models.Contrato{
		contratoVencido(1, "CONT-2025-001"),
	}}
	auditRepo := &fakeAuditRepo{failing: true}
	s := newTestScheduler(contratoRepo, auditRepo)

	s.revisar(context.Background())
	assert.Equal(t, 0, auditRepo.count())

	// Once storage recovers the contract is reported on the next pass
	auditRepo.mu.Lock()
	auditRepo.failing = false
	auditRepo.mu.Unlock()

	s.revisar(context.Background())
	assert.Equal(t, 1, auditRepo.count())
}

func TestStart_EjecutaAlArrancarYSeDetiene(t *testing.T) {
	contratoRepo := &fakeContratoRepo{vencidos: []*models.Contrato{
		contratoVencido(1, "CONT-2025-001"),
	}}
	auditRepo := &fakeAuditRepo{}
	s := newTestScheduler(contratoRepo, auditRepo)

	stop := s.Start(context.Background())
	defer stop()

	assert.Eventually(t, func() bool {
		return auditRepo.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
