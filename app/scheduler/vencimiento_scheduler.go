// Package scheduler
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/repository"
	"github.com/nemaec/obra-erp/utils"
)

// VencimientoScheduler periodically scans running contracts whose adjusted
// deadline has passed and records an audit entry for each newly overdue one.
type VencimientoScheduler struct {
	contratoRepo repository.ContratoRepository
	auditRepo    repository.AuditLogRepository
	logger       *log.Logger
	interval     time.Duration

	reportados map[uint]struct{}
}

func NewVencimientoScheduler(
	contratoRepo repository.ContratoRepository,
	auditRepo repository.AuditLogRepository,
	logger *log.Logger,
	interval time.Duration,
) *VencimientoScheduler {
	if interval <= 0 {
		interval = time.Hour
	}

	return &VencimientoScheduler{
		contratoRepo: contratoRepo,
		auditRepo:    auditRepo,
		logger:       logger,
		interval:     interval,
		reportados:   make(map[uint]struct{}),
	}
}

// Start launches the background loop. The returned function stops it.
func (s *VencimientoScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		// Run once at startup so restarts pick up contracts that went
		// overdue while the service was down.
		s.revisar(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.revisar(ctx)
			}
		}
	}()

	return cancel
}

func (s *VencimientoScheduler) revisar(ctx context.Context) {
	scanCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	vencidos, err := s.contratoRepo.ListVencidos(scanCtx)
	if err != nil {
		s.logger.Printf("overdue contract scan failed: %v", err)
		return
	}

	for _, contrato := range vencidos {
		if _, ok := s.reportados[contrato.ID]; ok {
			continue
		}

		fin := contrato.FechaFinProgramada()
		if fin == nil {
			continue
		}

		descripcion := fmt.Sprintf("Contrato %s vencido: plazo de %d dias cumplido el %s",
			contrato.Numero,
			contrato.PlazoTotalDias(),
			fin.Format("2006-01-02"))

		entry := &models.AuditLog{
			Action:      models.AuditActionContratoVencido,
			Description: &descripcion,
			Success:     utils.ToPtr(true),
			CreatedAt:   utils.UTCNow(),
		}
		if err := s.auditRepo.Save(scanCtx, entry); err != nil {
			s.logger.Printf("failed to record overdue contract %s: %v", contrato.Numero, err)
			continue
		}

		s.logger.Printf("contract %s is overdue", contrato.Numero)
		s.reportados[contrato.ID] = struct{}{}
	}
}
