package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordComparacion(t *testing.T) {
	antes := testutil.ToFloat64(comparacionesTotal)

	RecordComparacion()

	assert.Equal(t, antes+1, testutil.ToFloat64(comparacionesTotal))
}

func TestRecordVersionResuelta(t *testing.T) {
	aprobadas := testutil.ToFloat64(versionesResueltasTotal.WithLabelValues("aprobada"))
	rechazadas := testutil.ToFloat64(versionesResueltasTotal.WithLabelValues("rechazada"))

	RecordVersionResuelta("aprobada")
	RecordVersionResuelta("rechazada")
	RecordVersionResuelta("rechazada")

	assert.Equal(t, aprobadas+1, testutil.ToFloat64(versionesResueltasTotal.WithLabelValues("aprobada")))
	assert.Equal(t, rechazadas+2, testutil.ToFloat64(versionesResueltasTotal.WithLabelValues("rechazada")))
}

func TestRecordExportacion(t *testing.T) {
	xlsx := testutil.ToFloat64(exportacionesTotal.WithLabelValues("xlsx"))

	RecordExportacion("xlsx")

	assert.Equal(t, xlsx+1, testutil.ToFloat64(exportacionesTotal.WithLabelValues("xlsx")))
}

func TestMetricsMiddlewareLabelsByRouteTemplate(t *testing.T) {
	app := fiber.New()
	app.Use(Metrics())
	app.Get("/comisarias/:id", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	antes := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/comisarias/:id", "200"))

	resp, err := app.Test(httptest.NewRequest("GET", "/comisarias/42", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	despues := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/comisarias/:id", "200"))
	assert.Equal(t, antes+1, despues)
}
