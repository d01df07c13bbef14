// Package testing provides test utilities and database setup for testing the
// works tracking platform
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUsuario creates an active test account with the given role
func (tf *TestFixtures) CreateTestUsuario(rol models.RolUsuario) (*models.Usuario, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	randomDigits := fmt.Sprintf("%06d", rand.Intn(900000)+100000)

	usuario := &models.Usuario{
		Email:          fmt.Sprintf("monitor.%s.%s@nemaec.gob.pe", rol, randomDigits),
		NombreCompleto: "Usuario de Prueba",
		Rol:            rol,
		PasswordHash:   string(hashedPassword),
		IsActive:       true,
	}

	err = tf.DB.DB.Create(usuario).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test usuario: %w", err)
	}

	return usuario, nil
}

// CreateTestComisaria creates a pending test station with a unique code and
// budgets assigned
func (tf *TestFixtures) CreateTestComisaria() (*models.Comisaria, error) {
	inicio := time.Now().UTC().AddDate(0, 0, 7)

	comisaria := &models.Comisaria{
		Codigo:                   fmt.Sprintf("COM-%03d", rand.Intn(900)+100),
		Nombre:                   "Comisaria PNP de Prueba",
		Tipo:                     models.ComisariaBasica,
		Estado:                   models.ComisariaPendiente,
		Departamento:             "Lima",
		Provincia:                "Lima",
		Distrito:                 "San Juan de Lurigancho",
		Direccion:                "Av. Proceres de la Independencia 1234",
		Latitud:                  -12.002,
		Longitud:                 -77.008,
		FechaInicioProgramada:    &inicio,
		PersonalPNPAsignado:      45,
		AreaConstruccionM2:       850.50,
		PresupuestoEquipamiento:  250000,
		PresupuestoMantenimiento: 180000,
	}

	err := tf.DB.DB.Create(comisaria).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test comisaria: %w", err)
	}

	return comisaria, nil
}

// CreateTestPartidas creates a small work item hierarchy for a station: one
// grouping header and two priced items below it
func (tf *TestFixtures) CreateTestPartidas(comisariaID uint) ([]*models.Partida, error) {
	partidas := []*models.Partida{
		{
			ComisariaID: comisariaID,
			Codigo:      "01",
			Descripcion: "EQUIPAMIENTO",
		},
		{
			ComisariaID:    comisariaID,
			Codigo:         "01.01",
			Descripcion:    "Mobiliario de oficina",
			Unidad:         "und",
			Metrado:        20,
			PrecioUnitario: 450,
			PrecioTotal:    9000,
		},
		{
			ComisariaID:    comisariaID,
			Codigo:         "01.02",
			Descripcion:    "Equipos de computo",
			Unidad:         "und",
			Metrado:        12,
			PrecioUnitario: 2800,
			PrecioTotal:    33600,
		},
	}

	for _, partida := range partidas {
		if err := tf.DB.DB.Create(partida).Error; err != nil {
			return nil, fmt.Errorf("failed to create test partida %s: %w", partida.Codigo, err)
		}
	}

	return partidas, nil
}

// CreateTestAvance records a progress report on a work item
func (tf *TestFixtures) CreateTestAvance(partidaID uint, programado, fisico float64) (*models.AvancePartida, error) {
	avance := &models.AvancePartida{
		PartidaID:        partidaID,
		Fecha:            time.Now().UTC(),
		AvanceProgramado: programado,
		AvanceFisico:     fisico,
		ReportadoPor:     utils.ToPtr("Monitor de Prueba"),
	}

	err := tf.DB.DB.Create(avance).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test avance: %w", err)
	}

	return avance, nil
}

// CreateTestContrato creates a draft contract assigning its full amount to
// one station
func (tf *TestFixtures) CreateTestContrato(comisariaID uint) (*models.Contrato, error) {
	randomDigits := fmt.Sprintf("%04d", rand.Intn(9000)+1000)

	contrato := &models.Contrato{
		Numero:         fmt.Sprintf("CONT-%d-%s", time.Now().Year(), randomDigits),
		Fecha:          time.Now().UTC(),
		Tipo:           models.ContratoEquipamiento,
		Estado:         models.ContratoBorrador,
		Contratado:     "Proveedora Andina S.A.C.",
		RUCContratado:  "20512345678",
		ItemContratado: "Suministro e instalacion de equipamiento policial",
		PlazoDias:      120,
		MontoTotal:     42600,
		Moneda:         "PEN",
		Comisarias: []models.ContratoComisaria{
			{ComisariaID: comisariaID, Monto: 42600, Activa: true},
		},
	}

	err := tf.DB.DB.Create(contrato).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test contrato: %w", err)
	}

	return contrato, nil
}

// CreateTestVersion creates a confirmed schedule version for a station
func (tf *TestFixtures) CreateTestVersion(comisariaID uint, numero int) (*models.CronogramaVersion, error) {
	version := &models.CronogramaVersion{
		ComisariaID:        comisariaID,
		NumeroVersion:      numero,
		NombreVersion:      fmt.Sprintf("Cronograma v%d", numero),
		Estado:             models.VersionDetectada,
		TotalPartidas:      3,
		TotalPresupuesto:   42600,
		MonitorResponsable: utils.ToPtr("Monitor de Prueba"),
	}

	err := tf.DB.DB.Create(version).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test version: %w", err)
	}

	return version, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(usuarioID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		UsuarioID:   usuarioID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	err := tf.DB.DB.Create(audit).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}
