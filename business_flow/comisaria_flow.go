package businessflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/nemaec/obra-erp/app/dto"
	"github.com/nemaec/obra-erp/app/services"
	"github.com/nemaec/obra-erp/models"
	"github.com/nemaec/obra-erp/repository"
	"github.com/nemaec/obra-erp/utils"
	"gorm.io/gorm"
)

// ComisariaFlow handles the police station registry
type ComisariaFlow interface {
	Crear(ctx context.Context, request *dto.CreateComisariaRequest, metadata *ClientMetadata) (*dto.ComisariaResponse, error)
	Actualizar(ctx context.Context, comisariaID uint, request *dto.UpdateComisariaRequest, metadata *ClientMetadata) (*dto.ComisariaResponse, error)
	Obtener(ctx context.Context, comisariaID uint) (*dto.ComisariaResponse, error)
	ObtenerPorCodigo(ctx context.Context, codigo string) (*dto.ComisariaResponse, error)
	Listar(ctx context.Context, request *dto.ListComisariasRequest) ([]dto.ComisariaResponse, int64, error)
	IniciarObra(ctx context.Context, comisariaID uint, metadata *ClientMetadata) (*dto.ComisariaResponse, error)
	CompletarObra(ctx context.Context, comisariaID uint, metadata *ClientMetadata) (*dto.ComisariaResponse, error)
	SuspenderObra(ctx context.Context, comisariaID uint, metadata *ClientMetadata) (*dto.ComisariaResponse, error)
	Geocodificar(ctx context.Context, request *dto.GeocodeRequest) (*services.GeocodeResult, error)
}

// ComisariaFlowImpl implements the station registry flow
type ComisariaFlowImpl struct {
	comisariaRepo repository.ComisariaRepository
	auditRepo     repository.AuditLogRepository
	maps          services.MapsClient
	db            *gorm.DB
}

// NewComisariaFlow creates a new station registry flow instance
func NewComisariaFlow(
	comisariaRepo repository.ComisariaRepository,
	auditRepo repository.AuditLogRepository,
	maps services.MapsClient,
	db *gorm.DB,
) ComisariaFlow {
	return &ComisariaFlowImpl{
		comisariaRepo: comisariaRepo,
		auditRepo:     auditRepo,
		maps:          maps,
		db:            db,
	}
}

// Crear registers a new station. When no coordinates are supplied and a maps
// client is configured the address is geocoded, but a geocoding failure does
// not block the registration.
func (cf *ComisariaFlowImpl) Crear(ctx context.Context, request *dto.CreateComisariaRequest, metadata *ClientMetadata) (*dto.ComisariaResponse, error) {
	if !utils.IsValidCodigoComisaria(request.Codigo) {
		return nil, NewBusinessError("CODIGO_INVALIDO", "Station code must match COM-XXX", ErrCodigoComisariaInvalido)
	}

	resp, err := runInTransaction(ctx, cf.db, func(ctx context.Context) (*dto.ComisariaResponse, error) {
		existente, err := cf.comisariaRepo.ByCodigo(ctx, request.Codigo)
		if err != nil {
			return nil, err
		}
		if existente != nil {
			return nil, NewBusinessError("CODIGO_EN_USO", "Station code already registered", ErrCodigoComisariaEnUso)
		}

		comisaria := &models.Comisaria{
			Codigo:                   request.Codigo,
			Nombre:                   request.Nombre,
			Tipo:                     models.TipoComisaria(request.Tipo),
			Estado:                   models.ComisariaPendiente,
			Departamento:             request.Departamento,
			Provincia:                request.Provincia,
			Distrito:                 request.Distrito,
			Direccion:                request.Direccion,
			FotoURL:                  request.FotoURL,
			FechaInicioProgramada:    request.FechaInicioProgramada,
			FechaFinProgramada:       request.FechaFinProgramada,
			PersonalPNPAsignado:      request.PersonalPNPAsignado,
			AreaConstruccionM2:       request.AreaConstruccionM2,
			PresupuestoEquipamiento:  request.PresupuestoEquipamiento,
			PresupuestoMantenimiento: request.PresupuestoMantenimiento,
		}
		if request.Latitud != nil && request.Longitud != nil {
			comisaria.Latitud = *request.Latitud
			comisaria.Longitud = *request.Longitud
		} else if cf.maps != nil {
			if geo, err := cf.maps.Geocode(ctx, comisaria.DireccionCompleta()); err == nil {
				comisaria.Latitud = geo.Latitud
				comisaria.Longitud = geo.Longitud
				comisaria.GooglePlaceID = &geo.PlaceID
			}
		}

		if err := cf.comisariaRepo.Save(ctx, comisaria); err != nil {
			return nil, err
		}

		r := ToComisariaResponse(*comisaria)
		return &r, nil
	})
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Comisaria %s (%s) registrada", resp.Codigo, resp.Nombre)
	_ = logAudit(ctx, cf.auditRepo, models.AuditActionComisariaCreada, desc, true, nil, metadata)

	return resp, nil
}

// Actualizar applies a partial update to a station
func (cf *ComisariaFlowImpl) Actualizar(ctx context.Context, comisariaID uint, request *dto.UpdateComisariaRequest, metadata *ClientMetadata) (*dto.ComisariaResponse, error) {
	resp, err := runInTransaction(ctx, cf.db, func(ctx context.Context) (*dto.ComisariaResponse, error) {
		comisaria, err := cf.buscar(ctx, comisariaID)
		if err != nil {
			return nil, err
		}

		if request.Nombre != nil {
			comisaria.Nombre = *request.Nombre
		}
		if request.Direccion != nil {
			comisaria.Direccion = *request.Direccion
		}
		if request.Latitud != nil {
			comisaria.Latitud = *request.Latitud
		}
		if request.Longitud != nil {
			comisaria.Longitud = *request.Longitud
		}
		if request.FotoURL != nil {
			comisaria.FotoURL = request.FotoURL
		}
		if request.FechaInicioProgramada != nil {
			comisaria.FechaInicioProgramada = request.FechaInicioProgramada
		}
		if request.FechaFinProgramada != nil {
			comisaria.FechaFinProgramada = request.FechaFinProgramada
		}
		if request.PersonalPNPAsignado != nil {
			comisaria.PersonalPNPAsignado = *request.PersonalPNPAsignado
		}
		if request.AreaConstruccionM2 != nil {
			comisaria.AreaConstruccionM2 = *request.AreaConstruccionM2
		}
		if request.PresupuestoEquipamiento != nil {
			comisaria.PresupuestoEquipamiento = *request.PresupuestoEquipamiento
		}
		if request.PresupuestoMantenimiento != nil {
			comisaria.PresupuestoMantenimiento = *request.PresupuestoMantenimiento
		}

		if err := cf.comisariaRepo.Update(ctx, *comisaria); err != nil {
			return nil, err
		}

		r := ToComisariaResponse(*comisaria)
		return &r, nil
	})
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Comisaria %s actualizada", resp.Codigo)
	_ = logAudit(ctx, cf.auditRepo, models.AuditActionComisariaActualizada, desc, true, nil, metadata)

	return resp, nil
}

// Obtener returns one station by id
func (cf *ComisariaFlowImpl) Obtener(ctx context.Context, comisariaID uint) (*dto.ComisariaResponse, error) {
	comisaria, err := cf.buscar(ctx, comisariaID)
	if err != nil {
		return nil, err
	}
	r := ToComisariaResponse(*comisaria)
	return &r, nil
}

// ObtenerPorCodigo returns one station by its COM-XXX code
func (cf *ComisariaFlowImpl) ObtenerPorCodigo(ctx context.Context, codigo string) (*dto.ComisariaResponse, error) {
	comisaria, err := cf.comisariaRepo.ByCodigo(ctx, codigo)
	if err != nil {
		return nil, err
	}
	if comisaria == nil {
		return nil, NewBusinessError("COMISARIA_NOT_FOUND", "Comisaria not found", ErrComisariaNotFound)
	}
	r := ToComisariaResponse(*comisaria)
	return &r, nil
}

// Listar returns a filtered page of stations plus the total match count
func (cf *ComisariaFlowImpl) Listar(ctx context.Context, request *dto.ListComisariasRequest) ([]dto.ComisariaResponse, int64, error) {
	filter := models.ComisariaFilter{
		Departamento: request.Departamento,
		Nombre:       request.Nombre,
	}
	if request.Estado != nil {
		estado := models.EstadoComisaria(*request.Estado)
		filter.Estado = &estado
	}
	if request.Tipo != nil {
		tipo := models.TipoComisaria(*request.Tipo)
		filter.Tipo = &tipo
	}

	page := request.Page
	if page < 1 {
		page = 1
	}
	pageSize := request.PageSize
	if pageSize < 1 {
		pageSize = utils.DefaultPageSize
	}

	total, err := cf.comisariaRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	comisarias, err := cf.comisariaRepo.ByFilter(ctx, filter, "codigo ASC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}

	out := make([]dto.ComisariaResponse, 0, len(comisarias))
	for _, c := range comisarias {
		out = append(out, ToComisariaResponse(*c))
	}
	return out, total, nil
}

// IniciarObra moves the station into execution
func (cf *ComisariaFlowImpl) IniciarObra(ctx context.Context, comisariaID uint, metadata *ClientMetadata) (*dto.ComisariaResponse, error) {
	return cf.transicionar(ctx, comisariaID, metadata, "obra iniciada", func(c *models.Comisaria) error {
		return c.IniciarObra(utils.UTCNow())
	})
}

// CompletarObra marks the station's works as finished
func (cf *ComisariaFlowImpl) CompletarObra(ctx context.Context, comisariaID uint, metadata *ClientMetadata) (*dto.ComisariaResponse, error) {
	return cf.transicionar(ctx, comisariaID, metadata, "obra completada", func(c *models.Comisaria) error {
		return c.CompletarObra(utils.UTCNow())
	})
}

// SuspenderObra suspends the station's works
func (cf *ComisariaFlowImpl) SuspenderObra(ctx context.Context, comisariaID uint, metadata *ClientMetadata) (*dto.ComisariaResponse, error) {
	return cf.transicionar(ctx, comisariaID, metadata, "obra suspendida", func(c *models.Comisaria) error {
		return c.SuspenderObra()
	})
}

// Geocodificar resolves an arbitrary address through the maps client
func (cf *ComisariaFlowImpl) Geocodificar(ctx context.Context, request *dto.GeocodeRequest) (*services.GeocodeResult, error) {
	if cf.maps == nil {
		return nil, NewBusinessError("GEOCODE_NO_CONFIGURADO", "Geocoding is not configured", services.ErrGeocodeNoConfigurado)
	}
	result, err := cf.maps.Geocode(ctx, request.Direccion)
	if err != nil {
		if errors.Is(err, services.ErrGeocodeSinResultados) {
			return nil, NewBusinessError("GEOCODE_SIN_RESULTADOS", "Address produced no results", err)
		}
		return nil, err
	}
	return result, nil
}

func (cf *ComisariaFlowImpl) transicionar(ctx context.Context, comisariaID uint, metadata *ClientMetadata, descripcion string, fn func(*models.Comisaria) error) (*dto.ComisariaResponse, error) {
	resp, err := runInTransaction(ctx, cf.db, func(ctx context.Context) (*dto.ComisariaResponse, error) {
		comisaria, err := cf.buscar(ctx, comisariaID)
		if err != nil {
			return nil, err
		}
		if err := fn(comisaria); err != nil {
			return nil, NewBusinessError("TRANSICION_INVALIDA", "State transition rejected", err)
		}
		if err := cf.comisariaRepo.Update(ctx, *comisaria); err != nil {
			return nil, err
		}
		r := ToComisariaResponse(*comisaria)
		return &r, nil
	})
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Comisaria %s: %s", resp.Codigo, descripcion)
	_ = logAudit(ctx, cf.auditRepo, models.AuditActionComisariaActualizada, desc, true, nil, metadata)

	return resp, nil
}

func (cf *ComisariaFlowImpl) buscar(ctx context.Context, comisariaID uint) (*models.Comisaria, error) {
	comisaria, err := cf.comisariaRepo.ByID(ctx, comisariaID)
	if err != nil {
		return nil, err
	}
	if comisaria == nil {
		return nil, NewBusinessError("COMISARIA_NOT_FOUND", "Comisaria not found", ErrComisariaNotFound)
	}
	return comisaria, nil
}

