package businessflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nemaec/obra-erp/app/dto"
	"github.com/nemaec/obra-erp/app/services"
	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/repository"
	"github.com/nemaec/obra-erp/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// fakeComisariaRepo is an in-memory stand-in for the station repository
type fakeComisariaRepo struct {
	comisarias map[uint]*models.Comisaria
}

func newFakeComisariaRepo() *fakeComisariaRepo {
	return &fakeComisariaRepo{comisarias: make(map[uint]*models.Comisaria)}
}

func (r *fakeComisariaRepo) ByID(ctx context.Context, id uint) (*models.Comisaria, error) {
	return r.comisarias[id], nil
}

func (r *fakeComisariaRepo) ByFilter(ctx context.Context, filter models.ComisariaFilter, orderBy string, limit, offset int) ([]*models.Comisaria, error) {
	var out []*models.Comisaria
	for _, c := range r.comisarias {
		if filter.Estado != nil && c.Estado != *filter.Estado {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeComisariaRepo) Save(ctx context.Context, entity *models.Comisaria) error {
	if entity.ID == 0 {
		entity.ID = uint(len(r.comisarias) + 1)
	}
	r.comisarias[entity.ID] = entity
	return nil
}

func (r *fakeComisariaRepo) SaveBatch(ctx context.Context, entities []*models.Comisaria) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeComisariaRepo) Count(ctx context.Context, filter models.ComisariaFilter) (int64, error) {
	return int64(len(r.comisarias)), nil
}

func (r *fakeComisariaRepo) Exists(ctx context.Context, filter models.ComisariaFilter) (bool, error) {
	if filter.Codigo != nil {
		for _, c := range r.comisarias {
			if c.Codigo == *filter.Codigo {
				return true, nil
			}
		}
		return false, nil
	}
	return len(r.comisarias) > 0, nil
}

func (r *fakeComisariaRepo) ByCodigo(ctx context.Context, codigo string) (*models.Comisaria, error) {
	for _, c := range r.comisarias {
		if c.Codigo == codigo {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeComisariaRepo) ByIDWithPartidas(ctx context.Context, id uint) (*models.Comisaria, error) {
	return r.comisarias[id], nil
}

func (r *fakeComisariaRepo) Update(ctx context.Context, comisaria models.Comisaria) error {
	r.comisarias[comisaria.ID] = &comisaria
	return nil
}

func (r *fakeComisariaRepo) CountPorEstado(ctx context.Context) (map[models.EstadoComisaria]int64, error) {
	conteo := make(map[models.EstadoComisaria]int64)
	for _, c := range r.comisarias {
		conteo[c.Estado]++
	}
	return conteo, nil
}

// fakePartidaRepo keeps work items per station
type fakePartidaRepo struct {
	porComisaria  map[uint][]*models.Partida
	avances       map[uint][]*models.AvancePartida
	stats         map[uint]*repository.EstadisticasAvance
	ultimoReporte map[uint]*time.Time
	replacements  int
	nextID        uint
}

func newFakePartidaRepo() *fakePartidaRepo {
	return &fakePartidaRepo{
		porComisaria:  make(map[uint][]*models.Partida),
		avances:       make(map[uint][]*models.AvancePartida),
		stats:         make(map[uint]*repository.EstadisticasAvance),
		ultimoReporte: make(map[uint]*time.Time),
		nextID:        1,
	}
}

func (r *fakePartidaRepo) ByID(ctx context.Context, id uint) (*models.Partida, error) {
	for _, partidas := range r.porComisaria {
		for _, p := range partidas {
			if p.ID == id {
				return p, nil
			}
		}
	}
	return nil, nil
}

func (r *fakePartidaRepo) ByFilter(ctx context.Context, filter models.PartidaFilter, orderBy string, limit, offset int) ([]*models.Partida, error) {
	if filter.ComisariaID != nil {
		return r.porComisaria[*filter.ComisariaID], nil
	}
	return nil, nil
}

func (r *fakePartidaRepo) Save(ctx context.Context, entity *models.Partida) error {
	if entity.ID == 0 {
		entity.ID = r.nextID
		r.nextID++
	}
	for i, p := range r.porComisaria[entity.ComisariaID] {
		if p.ID == entity.ID {
			r.porComisaria[entity.ComisariaID][i] = entity
			return nil
		}
	}
	r.porComisaria[entity.ComisariaID] = append(r.porComisaria[entity.ComisariaID], entity)
	return nil
}

func (r *fakePartidaRepo) SaveBatch(ctx context.Context, entities []*models.Partida) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakePartidaRepo) Count(ctx context.Context, filter models.PartidaFilter) (int64, error) {
	if filter.ComisariaID != nil {
		return int64(len(r.porComisaria[*filter.ComisariaID])), nil
	}
	return 0, nil
}

func (r *fakePartidaRepo) Exists(ctx context.Context, filter models.PartidaFilter) (bool, error) {
	count, _ := r.Count(ctx, filter)
	return count > 0, nil
}

func (r *fakePartidaRepo) ByComisariaYCodigo(ctx context.Context, comisariaID uint, codigo string) (*models.Partida, error) {
	for _, p := range r.porComisaria[comisariaID] {
		if p.Codigo == codigo {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakePartidaRepo) ListByComisaria(ctx context.Context, comisariaID uint) ([]*models.Partida, error) {
	return r.porComisaria[comisariaID], nil
}

func (r *fakePartidaRepo) ReplaceForComisaria(ctx context.Context, comisariaID uint, partidas []*models.Partida) error {
	for _, p := range partidas {
		if p.ID == 0 {
			p.ID = r.nextID
			r.nextID++
		}
	}
	r.porComisaria[comisariaID] = partidas
	r.replacements++
	return nil
}

func (r *fakePartidaRepo) SaveAvance(ctx context.Context, avance *models.AvancePartida) error {
	r.avances[avance.PartidaID] = append(r.avances[avance.PartidaID], avance)
	return nil
}

func (r *fakePartidaRepo) ListAvances(ctx context.Context, partidaID uint) ([]*models.AvancePartida, error) {
	return r.avances[partidaID], nil
}

func (r *fakePartidaRepo) EstadisticasAvance(ctx context.Context, comisariaID uint) (*repository.EstadisticasAvance, error) {
	if stats, ok := r.stats[comisariaID]; ok {
		return stats, nil
	}
	return &repository.EstadisticasAvance{}, nil
}

func (r *fakePartidaRepo) UltimaFechaReporte(ctx context.Context, comisariaID uint) (*time.Time, error) {
	return r.ultimoReporte[comisariaID], nil
}

// fakeVersionRepo keeps schedule versions and modifications in memory
type fakeVersionRepo struct {
	versiones      map[uint]*models.CronogramaVersion
	modificaciones map[uint]*models.Modificacion
	pendientes     map[uint]int64
	nextVersionID  uint
	nextModID      uint
}

func newFakeVersionRepo() *fakeVersionRepo {
	return &fakeVersionRepo{
		versiones:      make(map[uint]*models.CronogramaVersion),
		modificaciones: make(map[uint]*models.Modificacion),
		nextVersionID:  1,
		nextModID:      1,
	}
}

func (r *fakeVersionRepo) ByID(ctx context.Context, id uint) (*models.CronogramaVersion, error) {
	return r.versiones[id], nil
}

func (r *fakeVersionRepo) ByFilter(ctx context.Context, filter models.CronogramaVersionFilter, orderBy string, limit, offset int) ([]*models.CronogramaVersion, error) {
	var out []*models.CronogramaVersion
	for _, v := range r.versiones {
		out = append(out, v)
	}
	return out, nil
}

func (r *fakeVersionRepo) Save(ctx context.Context, entity *models.CronogramaVersion) error {
	if entity.ID == 0 {
		entity.ID = r.nextVersionID
		r.nextVersionID++
	}
	if entity.UUID == uuid.Nil {
		entity.UUID = uuid.New()
	}
	r.versiones[entity.ID] = entity
	return nil
}

func (r *fakeVersionRepo) SaveBatch(ctx context.Context, entities []*models.CronogramaVersion) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeVersionRepo) Count(ctx context.Context, filter models.CronogramaVersionFilter) (int64, error) {
	return int64(len(r.versiones)), nil
}

func (r *fakeVersionRepo) Exists(ctx context.Context, filter models.CronogramaVersionFilter) (bool, error) {
	return len(r.versiones) > 0, nil
}

func (r *fakeVersionRepo) ByUUID(ctx context.Context, versionUUID string) (*models.CronogramaVersion, error) {
	for _, v := range r.versiones {
		if v.UUID.String() == versionUUID {
			return v, nil
		}
	}
	return nil, nil
}

func (r *fakeVersionRepo) ListByComisaria(ctx context.Context, comisariaID uint, limit, offset int) ([]*models.CronogramaVersion, error) {
	var out []*models.CronogramaVersion
	for _, v := range r.versiones {
		if v.ComisariaID == comisariaID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *fakeVersionRepo) VersionActual(ctx context.Context, comisariaID uint) (*models.CronogramaVersion, error) {
	for _, v := range r.versiones {
		if v.ComisariaID == comisariaID && v.EsVersionActual {
			return v, nil
		}
	}
	return nil, nil
}

func (r *fakeVersionRepo) NextNumeroVersion(ctx context.Context, comisariaID uint) (int, error) {
	max := 0
	for _, v := range r.versiones {
		if v.ComisariaID == comisariaID && v.NumeroVersion > max {
			max = v.NumeroVersion
		}
	}
	return max + 1, nil
}

func (r *fakeVersionRepo) SaveComoActual(ctx context.Context, version *models.CronogramaVersion) error {
	for _, v := range r.versiones {
		if v.ComisariaID == version.ComisariaID {
			v.EsVersionActual = false
		}
	}
	version.EsVersionActual = true
	if err := r.Save(ctx, version); err != nil {
		return err
	}
	for i := range version.Modificaciones {
		m := &version.Modificaciones[i]
		m.ID = r.nextModID
		r.nextModID++
		m.CronogramaVersionID = version.ID
		r.modificaciones[m.ID] = m
	}
	return nil
}

func (r *fakeVersionRepo) Update(ctx context.Context, version models.CronogramaVersion) error {
	stored, ok := r.versiones[version.ID]
	if !ok {
		return fmt.Errorf("version %d not found", version.ID)
	}
	*stored = version
	return nil
}

func (r *fakeVersionRepo) UpdateModificacion(ctx context.Context, modificacion models.Modificacion) error {
	stored, ok := r.modificaciones[modificacion.ID]
	if !ok {
		return fmt.Errorf("modificacion %d not found", modificacion.ID)
	}
	*stored = modificacion
	return nil
}

func (r *fakeVersionRepo) ModificacionByID(ctx context.Context, id uint) (*models.Modificacion, error) {
	m, ok := r.modificaciones[id]
	if !ok {
		return nil, nil
	}
	copia := *m
	return &copia, nil
}

func (r *fakeVersionRepo) CountModificacionesPendientes(ctx context.Context, comisariaID uint) (int64, error) {
	if r.pendientes != nil {
		return r.pendientes[comisariaID], nil
	}
	var count int64
	for _, m := range r.modificaciones {
		if m.RequiereJustificacion() {
			count++
		}
	}
	return count, nil
}

// fakeAuditRepo records audit entries for assertions
type fakeAuditRepo struct {
	entries []*models.AuditLog
}

func (r *fakeAuditRepo) ByID(ctx context.Context, id uint) (*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) ByFilter(ctx context.Context, filter models.AuditLogFilter, orderBy string, limit, offset int) ([]*models.AuditLog, error) {
	return r.entries, nil
}

func (r *fakeAuditRepo) Save(ctx context.Context, entity *models.AuditLog) error {
	r.entries = append(r.entries, entity)
	return nil
}

func (r *fakeAuditRepo) SaveBatch(ctx context.Context, entities []*models.AuditLog) error {
	r.entries = append(r.entries, entities...)
	return nil
}

func (r *fakeAuditRepo) Count(ctx context.Context, filter models.AuditLogFilter) (int64, error) {
	return int64(len(r.entries)), nil
}

func (r *fakeAuditRepo) Exists(ctx context.Context, filter models.AuditLogFilter) (bool, error) {
	return len(r.entries) > 0, nil
}

func (r *fakeAuditRepo) ListByUsuario(ctx context.Context, usuarioID uint, limit, offset int) ([]*models.AuditLog, error) {
	return r.entries, nil
}

func (r *fakeAuditRepo) ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error) {
	var out []*models.AuditLog
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	var out []*models.AuditLog
	for _, e := range r.entries {
		if e.IsFailed() {
			out = append(out, e)
		}
	}
	return out, nil
}

type cronogramaFixture struct {
	flow          CronogramaFlow
	comisariaRepo *fakeComisariaRepo
	partidaRepo   *fakePartidaRepo
	versionRepo   *fakeVersionRepo
	auditRepo     *fakeAuditRepo
	sesiones      services.SessionStore
}

func newCronogramaFixture(t *testing.T) *cronogramaFixture {
	t.Helper()

	comisariaRepo := newFakeComisariaRepo()
	partidaRepo := newFakePartidaRepo()
	versionRepo := newFakeVersionRepo()
	auditRepo := &fakeAuditRepo{}
	sesiones := services.NewMemorySessionStore(time.Hour)

	flow := NewCronogramaFlow(
		comisariaRepo,
		partidaRepo,
		versionRepo,
		auditRepo,
		services.NewComparacionService(),
		services.NewCronogramaParser(),
		sesiones,
		services.NewExportService(),
		nil,
	)

	return &cronogramaFixture{
		flow:          flow,
		comisariaRepo: comisariaRepo,
		partidaRepo:   partidaRepo,
		versionRepo:   versionRepo,
		auditRepo:     auditRepo,
		sesiones:      sesiones,
	}
}

func (f *cronogramaFixture) seedComisaria(t *testing.T) *models.Comisaria {
	t.Helper()

	comisaria := &models.Comisaria{
		ID:     1,
		Codigo: "COM-001",
		Nombre: "Comisaria PNP Zarate",
		Tipo:   models.ComisariaBasica,
		Estado: models.ComisariaEnProceso,
		Partidas: []models.Partida{
			{ComisariaID: 1, Codigo: "01.01", Descripcion: "Mobiliario de oficina", Unidad: "und", Metrado: 20, PrecioUnitario: 450, PrecioTotal: 9000},
			{ComisariaID: 1, Codigo: "01.02", Descripcion: "Equipos de computo", Unidad: "und", Metrado: 12, PrecioUnitario: 2800, PrecioTotal: 33600},
		},
	}
	f.comisariaRepo.comisarias[1] = comisaria

	partidas := make([]*models.Partida, 0, len(comisaria.Partidas))
	for i := range comisaria.Partidas {
		partidas = append(partidas, &comisaria.Partidas[i])
	}
	f.partidaRepo.porComisaria[1] = partidas

	return comisaria
}

// workbookConFilas builds a minimal schedule workbook in the template layout
func workbookConFilas(t *testing.T, filas [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	columnas := []string{"B", "D", "E", "F", "G", "H", "I"}
	for i, fila := range filas {
		for j, valor := range fila {
			cell := fmt.Sprintf("%s%d", columnas[j], i+2)
			require.NoError(t, f.SetCellValue(sheet, cell, valor))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDetectarCambios(t *testing.T) {
	f := newCronogramaFixture(t)
	f.seedComisaria(t)
	ctx := context.Background()

	// 01.01 unchanged, 01.02 reduced in place, 01.03 added
	archivo := workbookConFilas(t, [][]any{
		{"INT-001", "01.01", "Mobiliario de oficina", "und", 20, 450, 9000},
		{"INT-002", "01.02", "Equipos de computo", "und", 10, 2800, 28000},
		{"INT-003", "01.03", "Camaras de vigilancia", "und", 4, 1400, 5600},
	})

	resp, err := f.flow.DetectarCambios(ctx, 1, archivo,
		&dto.DetectarCambiosRequest{NombreVersion: "Cronograma v2"}, "Carlos Quispe", NewClientMetadata("127.0.0.1", "test"))
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, 0, resp.Resumen.PartidasEliminadas)
	assert.Equal(t, 1, resp.Resumen.PartidasNuevas)
	assert.Equal(t, 1, resp.Resumen.PartidasModificadas)
	assert.InDelta(t, 0.0, resp.Resumen.BalancePreliminar, utils.BalanceTolerance)
	require.Len(t, resp.Modificaciones, 2)
	assert.True(t, resp.Validacion.EstaEquilibrado)

	// The pending state lives in the session store, nothing is persisted
	sesion, err := f.sesiones.Get(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), sesion.ComisariaID)
	assert.Empty(t, f.versionRepo.versiones)

	entries, _ := f.auditRepo.ListByAction(ctx, models.AuditActionComparacionIniciada, 10, 0)
	assert.Len(t, entries, 1)
}

func TestDetectarCambios_Errores(t *testing.T) {
	f := newCronogramaFixture(t)
	f.seedComisaria(t)
	ctx := context.Background()
	metadata := NewClientMetadata("127.0.0.1", "test")
	request := &dto.DetectarCambiosRequest{NombreVersion: "Cronograma v2"}
	archivo := workbookConFilas(t, [][]any{
		{"INT-001", "01.01", "Mobiliario de oficina", "und", 20, 450, 9000},
	})

	t.Run("empty upload", func(t *testing.T) {
		_, err := f.flow.DetectarCambios(ctx, 1, nil, request, "Carlos Quispe", metadata)
		var businessErr *BusinessError
		require.True(t, AsBusinessError(err, &businessErr))
		assert.Equal(t, "ARCHIVO_INVALIDO", businessErr.Code)
	})

	t.Run("unknown station", func(t *testing.T) {
		_, err := f.flow.DetectarCambios(ctx, 99, archivo, request, "Carlos Quispe", metadata)
		assert.True(t, IsComisariaNotFound(err))
	})

	t.Run("station without partidas", func(t *testing.T) {
		f.comisariaRepo.comisarias[2] = &models.Comisaria{ID: 2, Codigo: "COM-002", Nombre: "Comisaria sin cronograma"}
		_, err := f.flow.DetectarCambios(ctx, 2, archivo, request, "Carlos Quispe", metadata)
		var businessErr *BusinessError
		require.True(t, AsBusinessError(err, &businessErr))
		assert.Equal(t, "SIN_PARTIDAS", businessErr.Code)
	})

	t.Run("workbook without valid rows", func(t *testing.T) {
		vacio := workbookConFilas(t, [][]any{{"", "", ""}})
		_, err := f.flow.DetectarCambios(ctx, 1, vacio, request, "Carlos Quispe", metadata)
		var businessErr *BusinessError
		require.True(t, AsBusinessError(err, &businessErr))
		assert.Equal(t, "ARCHIVO_INVALIDO", businessErr.Code)
	})
}

func detectar(t *testing.T, f *cronogramaFixture) string {
	t.Helper()

	archivo := workbookConFilas(t, [][]any{
		{"INT-001", "01.01", "Mobiliario de oficina", "und", 20, 450, 9000},
		{"INT-002", "01.02", "Equipos de computo", "und", 10, 2800, 28000},
		{"INT-003", "01.03", "Camaras de vigilancia", "und", 4, 1400, 5600},
	})
	resp, err := f.flow.DetectarCambios(context.Background(), 1, archivo,
		&dto.DetectarCambiosRequest{NombreVersion: "Cronograma v2"}, "Carlos Quispe", NewClientMetadata("127.0.0.1", "test"))
	require.NoError(t, err)
	return resp.Token
}

func TestConfirmarVersion(t *testing.T) {
	f := newCronogramaFixture(t)
	f.seedComisaria(t)
	ctx := context.Background()
	token := detectar(t, f)

	resp, err := f.flow.ConfirmarVersion(ctx, &dto.ConfirmarVersionRequest{Token: token}, NewClientMetadata("127.0.0.1", "test"))
	require.NoError(t, err)

	assert.Equal(t, 1, resp.NumeroVersion)
	assert.Equal(t, uint(1), resp.ComisariaID)
	assert.True(t, resp.EsVersionActual)
	assert.Equal(t, 3, resp.TotalPartidas)
	assert.InDelta(t, 42600.0, resp.TotalPresupuesto, 0.01)
	require.Len(t, resp.Modificaciones, 2)
	for _, m := range resp.Modificaciones {
		assert.Equal(t, models.ModificacionPendienteJustificacion.String(), m.Estado)
	}

	// The uploaded schedule replaces the station's partidas
	assert.Equal(t, 1, f.partidaRepo.replacements)
	partidas, _ := f.partidaRepo.ListByComisaria(ctx, 1)
	assert.Len(t, partidas, 3)

	// The session is consumed
	_, err = f.sesiones.Get(ctx, token)
	assert.ErrorIs(t, err, services.ErrSesionNoEncontrada)

	// A second confirmation with the same token fails
	_, err = f.flow.ConfirmarVersion(ctx, &dto.ConfirmarVersionRequest{Token: token}, nil)
	assert.True(t, IsSesionExpirada(err))
}

func TestConfirmarVersion_TokenExpirado(t *testing.T) {
	f := newCronogramaFixture(t)
	_, err := f.flow.ConfirmarVersion(context.Background(),
		&dto.ConfirmarVersionRequest{Token: services.NuevoTokenSesion()}, nil)
	assert.True(t, IsSesionExpirada(err))
}

func TestObtenerSugerencias(t *testing.T) {
	f := newCronogramaFixture(t)
	f.seedComisaria(t)
	token := detectar(t, f)

	resp, err := f.flow.ObtenerSugerencias(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, token, resp.Token)
	assert.NotEmpty(t, resp.Sugerencias)
}

func TestJustificarModificacion(t *testing.T) {
	f := newCronogramaFixture(t)
	f.seedComisaria(t)
	ctx := context.Background()
	token := detectar(t, f)

	version, err := f.flow.ConfirmarVersion(ctx, &dto.ConfirmarVersionRequest{Token: token}, nil)
	require.NoError(t, err)
	modID := version.Modificaciones[0].ID

	resp, err := f.flow.JustificarModificacion(ctx, modID,
		&dto.ConfirmarModificacionRequest{
			Justificacion:      "Reemplazo requerido por observacion de supervision",
			DocumentosSustento: []string{"https://docs.nemaec.gob.pe/informe-015.pdf"},
		}, "Carlos Quispe", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ModificacionJustificada.String(), resp.Estado)
	require.NotNil(t, resp.Justificacion)

	stored, _ := f.versionRepo.ModificacionByID(ctx, modID)
	assert.Equal(t, models.ModificacionJustificada, stored.Estado)
}

func TestJustificarModificacion_Errores(t *testing.T) {
	f := newCronogramaFixture(t)
	f.seedComisaria(t)
	ctx := context.Background()
	token := detectar(t, f)
	version, err := f.flow.ConfirmarVersion(ctx, &dto.ConfirmarVersionRequest{Token: token}, nil)
	require.NoError(t, err)

	t.Run("unknown modification", func(t *testing.T) {
		_, err := f.flow.JustificarModificacion(ctx, 999,
			&dto.ConfirmarModificacionRequest{Justificacion: "Justificacion valida"}, "Carlos Quispe", nil)
		assert.True(t, IsModificacionNotFound(err))
	})

	t.Run("empty justification", func(t *testing.T) {
		_, err := f.flow.JustificarModificacion(ctx, version.Modificaciones[0].ID,
			&dto.ConfirmarModificacionRequest{Justificacion: ""}, "Carlos Quispe", nil)
		var businessErr *BusinessError
		require.True(t, AsBusinessError(err, &businessErr))
		assert.Equal(t, "JUSTIFICACION_INVALIDA", businessErr.Code)
	})
}

// confirmarYJustificar runs the full monitor side of the pipeline and
// returns the version UUID ready for authority review
func confirmarYJustificar(t *testing.T, f *cronogramaFixture) string {
	t.Helper()
	ctx := context.Background()

	token := detectar(t, f)
	version, err := f.flow.ConfirmarVersion(ctx, &dto.ConfirmarVersionRequest{Token: token}, nil)
	require.NoError(t, err)

	for _, m := range version.Modificaciones {
		_, err := f.flow.JustificarModificacion(ctx, m.ID,
			&dto.ConfirmarModificacionRequest{Justificacion: "Cambio aprobado en reunion de obra del 12 de marzo"},
			"Carlos Quispe", nil)
		require.NoError(t, err)
	}
	return version.UUID
}

func TestAprobarVersion(t *testing.T) {
	f := newCronogramaFixture(t)
	f.seedComisaria(t)
	ctx := context.Background()
	versionUUID := confirmarYJustificar(t, f)

	resp, err := f.flow.AprobarVersion(ctx, versionUUID, "Autoridad MININTER", NewClientMetadata("127.0.0.1", "test"))
	require.NoError(t, err)

	assert.Equal(t, models.VersionAprobada.String(), resp.Estado)
	require.NotNil(t, resp.AprobadaPor)
	assert.Equal(t, "Autoridad MININTER", *resp.AprobadaPor)
	for _, m := range resp.Modificaciones {
		assert.Equal(t, models.ModificacionAprobada.String(), m.Estado)
	}

	// Approval is final
	_, err = f.flow.AprobarVersion(ctx, versionUUID, "Autoridad MININTER", nil)
	assert.True(t, IsVersionYaResuelta(err))
}

func TestAprobarVersion_Errores(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown version", func(t *testing.T) {
		f := newCronogramaFixture(t)
		_, err := f.flow.AprobarVersion(ctx, uuid.New().String(), "Autoridad MININTER", nil)
		assert.True(t, IsVersionNotFound(err))
	})

	t.Run("pending justifications", func(t *testing.T) {
		f := newCronogramaFixture(t)
		f.seedComisaria(t)
		token := detectar(t, f)
		version, err := f.flow.ConfirmarVersion(ctx, &dto.ConfirmarVersionRequest{Token: token}, nil)
		require.NoError(t, err)

		_, err = f.flow.AprobarVersion(ctx, version.UUID, "Autoridad MININTER", nil)
		assert.True(t, IsModificacionesPendientes(err))
	})

	t.Run("rejected modification", func(t *testing.T) {
		f := newCronogramaFixture(t)
		f.seedComisaria(t)
		versionUUID := confirmarYJustificar(t, f)

		version, err := f.versionRepo.ByUUID(ctx, versionUUID)
		require.NoError(t, err)
		version.Modificaciones[0].Estado = models.ModificacionRechazada

		_, err = f.flow.AprobarVersion(ctx, versionUUID, "Autoridad MININTER", nil)
		var businessErr *BusinessError
		require.True(t, AsBusinessError(err, &businessErr))
		assert.Equal(t, "VERSION_NO_APROBABLE", businessErr.Code)
		assert.Contains(t, businessErr.Error(), "rechazadas")
	})

	t.Run("unbalanced budget", func(t *testing.T) {
		f := newCronogramaFixture(t)
		f.seedComisaria(t)
		versionUUID := confirmarYJustificar(t, f)

		version, err := f.versionRepo.ByUUID(ctx, versionUUID)
		require.NoError(t, err)
		version.Modificaciones[0].MontoNuevo += 10000

		_, err = f.flow.AprobarVersion(ctx, versionUUID, "Autoridad MININTER", nil)
		var balanceErr *BalanceError
		require.True(t, AsBalanceError(err, &balanceErr))
		assert.False(t, balanceErr.Validacion.EstaEquilibrado)
	})
}

func TestRechazarVersion(t *testing.T) {
	f := newCronogramaFixture(t)
	f.seedComisaria(t)
	ctx := context.Background()
	versionUUID := confirmarYJustificar(t, f)

	resp, err := f.flow.RechazarVersion(ctx, versionUUID,
		&dto.RechazarVersionRequest{Observacion: "Las reducciones comprometen la seguridad del local"},
		"Autoridad MININTER", NewClientMetadata("127.0.0.1", "test"))
	require.NoError(t, err)

	assert.Equal(t, models.VersionRechazada.String(), resp.Estado)
	require.NotNil(t, resp.ObservacionRechazo)

	// A resolved version cannot be approved afterwards
	_, err = f.flow.AprobarVersion(ctx, versionUUID, "Autoridad MININTER", nil)
	assert.True(t, IsVersionYaResuelta(err))
}

func TestRechazarVersion_ObservacionRequerida(t *testing.T) {
	f := newCronogramaFixture(t)
	f.seedComisaria(t)
	versionUUID := confirmarYJustificar(t, f)

	_, err := f.flow.RechazarVersion(context.Background(), versionUUID,
		&dto.RechazarVersionRequest{Observacion: "   "}, "Autoridad MININTER", nil)
	var businessErr *BusinessError
	require.True(t, AsBusinessError(err, &businessErr))
	assert.Equal(t, "OBSERVACION_REQUERIDA", businessErr.Code)
}

func TestExportarVersion(t *testing.T) {
	f := newCronogramaFixture(t)
	f.seedComisaria(t)
	ctx := context.Background()
	versionUUID := confirmarYJustificar(t, f)

	t.Run("xlsx", func(t *testing.T) {
		contenido, nombre, err := f.flow.ExportarVersion(ctx, versionUUID, "xlsx")
		require.NoError(t, err)
		assert.NotEmpty(t, contenido)
		assert.Equal(t, "cronograma_v1_comisaria_1.xlsx", nombre)
	})

	t.Run("pdf", func(t *testing.T) {
		contenido, nombre, err := f.flow.ExportarVersion(ctx, versionUUID, "pdf")
		require.NoError(t, err)
		assert.NotEmpty(t, contenido)
		assert.Equal(t, "cronograma_v1_comisaria_1.pdf", nombre)
	})

	t.Run("default format is xlsx", func(t *testing.T) {
		_, nombre, err := f.flow.ExportarVersion(ctx, versionUUID, "")
		require.NoError(t, err)
		assert.Equal(t, "cronograma_v1_comisaria_1.xlsx", nombre)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, _, err := f.flow.ExportarVersion(ctx, versionUUID, "csv")
		var businessErr *BusinessError
		require.True(t, AsBusinessError(err, &businessErr))
		assert.Equal(t, "FORMATO_INVALIDO", businessErr.Code)
	})

	t.Run("unknown version", func(t *testing.T) {
		_, _, err := f.flow.ExportarVersion(ctx, uuid.New().String(), "xlsx")
		assert.True(t, IsVersionNotFound(err))
	})
}

func TestDescartarSesion(t *testing.T) {
	f := newCronogramaFixture(t)
	f.seedComisaria(t)
	ctx := context.Background()
	token := detectar(t, f)

	require.NoError(t, f.flow.DescartarSesion(ctx, token))

	_, err := f.sesiones.Get(ctx, token)
	assert.ErrorIs(t, err, services.ErrSesionNoEncontrada)
}

func TestListarVersiones(t *testing.T) {
	f := newCronogramaFixture(t)
	f.seedComisaria(t)
	ctx := context.Background()
	confirmarYJustificar(t, f)

	versiones, err := f.flow.ListarVersiones(ctx, 1, 20, 0)
	require.NoError(t, err)
	require.Len(t, versiones, 1)
	assert.Equal(t, 1, versiones[0].NumeroVersion)
	assert.True(t, versiones[0].EsVersionActual)
}
