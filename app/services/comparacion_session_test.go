package services

import (
	"context"
	"testing"
	"time"

	"github.com/nemaec/obra-erp/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(30 * time.Minute)

	sesion := &ComparacionSesion{
		Token:              NuevoTokenSesion(),
		ComisariaID:        7,
		NombreVersion:      "Cronograma v2",
		MonitorResponsable: "Monitor de Prueba",
		CreadaEn:           utils.UTCNow(),
	}

	require.NoError(t, store.Save(ctx, sesion))

	loaded, err := store.Get(ctx, sesion.Token)
	require.NoError(t, err)
	assert.Equal(t, sesion.ComisariaID, loaded.ComisariaID)
	assert.Equal(t, sesion.NombreVersion, loaded.NombreVersion)

	require.NoError(t, store.Delete(ctx, sesion.Token))

	_, err = store.Get(ctx, sesion.Token)
	assert.ErrorIs(t, err, ErrSesionNoEncontrada)
}

func TestMemorySessionStore_TokenDesconocido(t *testing.T) {
	store := NewMemorySessionStore(30 * time.Minute)

	_, err := store.Get(context.Background(), NuevoTokenSesion())
	assert.ErrorIs(t, err, ErrSesionNoEncontrada)
}

func TestMemorySessionStore_Expiracion(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(2 * time.Hour)

	current := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	sesion := &ComparacionSesion{Token: NuevoTokenSesion(), ComisariaID: 3}
	require.NoError(t, store.Save(ctx, sesion))

	// Still alive just before the TTL
	current = current.Add(2*time.Hour - time.Minute)
	_, err := store.Get(ctx, sesion.Token)
	require.NoError(t, err)

	// Gone once the TTL passes, and purged from the store
	current = current.Add(2 * time.Minute)
	_, err = store.Get(ctx, sesion.Token)
	assert.ErrorIs(t, err, ErrSesionNoEncontrada)
	assert.Empty(t, store.entries)
}

func TestMemorySessionStore_TTLPorDefecto(t *testing.T) {
	store := NewMemorySessionStore(0)
	assert.Equal(t, utils.ComparisonSessionTTL, store.ttl)
}
