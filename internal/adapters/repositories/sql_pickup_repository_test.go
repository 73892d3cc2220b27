package repositories

import (
	"agro-route-service/internal/domain"
	"agro-route-service/internal/platform/db"
	"agro-route-service/internal/ports"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, InitSchema(conn))
	return conn
}

func floatPtr(f float64) *float64 { return &f }

func samplePickups() []*domain.Pickup {
	created := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	return []*domain.Pickup{
		{
			ID: 2, Farmer: "Ana", Product: "Papa", QuantityKg: 120, City: "Duitama",
			Price: 96000, PredictedPrice: floatPtr(101000), Quality: "Alta",
			Status: domain.StatusPending, Coords: &domain.Coordinates{Lat: 5.8269, Lon: -73.0347},
			CreatedAt: created,
		},
		{
			ID: 1, Farmer: "Luis", Product: "Cebolla", QuantityKg: 80, City: "Sogamoso",
			Price: 64000, Status: domain.StatusPending, CreatedAt: created,
		},
	}
}

func TestSQLPickupRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLPickupRepository(newTestDB(t), DialectSQLite)

	require.NoError(t, repo.SavePickups(ctx, samplePickups()...))

	all, err := repo.ListPickups(ctx, ports.PickupFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].ID, "ordered by id")
	assert.Nil(t, all[0].Coords)
	assert.Nil(t, all[0].PredictedPrice)

	got, err := repo.GetPickup(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Farmer)
	require.NotNil(t, got.Coords)
	assert.Equal(t, domain.Coordinates{Lat: 5.8269, Lon: -73.0347}, *got.Coords)
	require.NotNil(t, got.PredictedPrice)
	assert.Equal(t, 101000.0, *got.PredictedPrice)
	assert.True(t, got.CreatedAt.Equal(time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)))
}

func TestSQLPickupRepository_UpsertAndFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLPickupRepository(newTestDB(t), DialectSQLite)
	require.NoError(t, repo.SavePickups(ctx, samplePickups()...))

	p, err := repo.GetPickup(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, p.Accept("Carlos", "Zona_1", 1, domain.Coordinates{Lat: 5.5353, Lon: -73.3678}))
	p.RemainingKm = floatPtr(12.5)
	picked := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	p.PickedUpAt = &picked
	require.NoError(t, repo.SavePickups(ctx, p))

	accepted, err := repo.ListPickups(ctx, ports.PickupFilter{
		Status:      domain.StatusAccepted,
		Transporter: "Carlos",
		RouteName:   "Zona_1",
	})
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, 1, accepted[0].StopOrder)
	require.NotNil(t, accepted[0].TransporterPos)
	assert.Equal(t, 5.5353, accepted[0].TransporterPos.Lat)
	require.NotNil(t, accepted[0].RemainingKm)
	assert.Equal(t, 12.5, *accepted[0].RemainingKm)
	require.NotNil(t, accepted[0].PickedUpAt)
	assert.True(t, accepted[0].PickedUpAt.Equal(picked))

	pending, err := repo.ListPickups(ctx, ports.PickupFilter{Status: domain.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(1), pending[0].ID)
}

func TestSQLPickupRepository_NotFoundAndInvalid(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLPickupRepository(newTestDB(t), DialectSQLite)

	_, err := repo.GetPickup(ctx, 99)
	assert.ErrorIs(t, err, ports.ErrPickupNotFound)

	err = repo.SavePickups(ctx, &domain.Pickup{ID: 0, Farmer: "x", Product: "y"})
	assert.Error(t, err)

	assert.Error(t, (&SQLPickupRepository{}).SavePickups(ctx, samplePickups()...))
}

func TestDialectRebind(t *testing.T) {
	q := "SELECT * FROM pickups WHERE status = ? AND transporter = ?"
	assert.Equal(t, q, DialectSQLite.Rebind(q))
	assert.Equal(t,
		"SELECT * FROM pickups WHERE status = $1 AND transporter = $2",
		DialectPostgres.Rebind(q),
	)

	d, err := DialectFor("pgx")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, d)
	_, err = DialectFor("mysql")
	assert.Error(t, err)
}

const legacyCSV = `id_notificacion,fecha_notificacion,campesino,producto,cantidad_kg,ciudad,direccion,precio,precio_predicho,calidad,estado,transportista_asignado,latitud,longitud,telefono_campesino
1,2025-03-01 09:30:00,Ana,Papa,120,Duitama,Vereda 1,96000,101000,Alta,Pendiente,,5.8269,-73.0347,3001234567
2,2025-03-01 10:00:00,Luis,Cebolla,80,Sogamoso,,64000,,Media,Aceptado,Carlos,,,
`

func TestParsePickupsCSV(t *testing.T) {
	pickups, err := ParsePickupsCSV(strings.NewReader(legacyCSV))
	require.NoError(t, err)
	require.Len(t, pickups, 2)

	ana := pickups[0]
	assert.Equal(t, int64(1), ana.ID)
	assert.Equal(t, domain.StatusPending, ana.Status)
	require.NotNil(t, ana.Coords)
	assert.Equal(t, -73.0347, ana.Coords.Lon)
	require.NotNil(t, ana.PredictedPrice)
	assert.Equal(t, 101000.0, *ana.PredictedPrice)
	assert.Equal(t, "3001234567", ana.FarmerPhone)
	assert.Equal(t, time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC), ana.CreatedAt)

	luis := pickups[1]
	assert.Nil(t, luis.Coords)
	assert.Nil(t, luis.PredictedPrice)
	assert.Equal(t, domain.StatusAccepted, luis.Status)
	assert.Equal(t, "Carlos", luis.Transporter)
}

func TestParsePickupsCSV_Errors(t *testing.T) {
	_, err := ParsePickupsCSV(strings.NewReader("id,farmer\n1,Ana\n"))
	assert.ErrorContains(t, err, "missing column")

	_, err = ParsePickupsCSV(strings.NewReader("id,farmer,product,city,status,lat\n1,Ana,Papa,Tunja,Pendiente,abc\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = ParsePickupsCSV(strings.NewReader("id,farmer,product,city,status\n1,Ana,Papa,Tunja,Despachado\n"))
	assert.Error(t, err)

	_, err = ParsePickupsCSV(strings.NewReader("id,farmer,product,city,status,fecha_recogida\n1,Ana,Papa,Tunja,Recogido,ayer\n"))
	assert.ErrorContains(t, err, "picked_up_at")

	pickups, err := ParsePickupsCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, pickups)
}

func TestSeedFromCSV(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pickups.csv")
	require.NoError(t, os.WriteFile(path, []byte(legacyCSV), 0o600))

	repo := NewSQLPickupRepository(newTestDB(t), DialectSQLite)
	n, err := SeedFromCSV(ctx, repo, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Seeding twice upserts instead of duplicating.
	_, err = SeedFromCSV(ctx, repo, path)
	require.NoError(t, err)
	all, err := repo.ListPickups(ctx, ports.PickupFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryPickupRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPickupRepository(samplePickups()...)

	all, err := repo.ListPickups(ctx, ports.PickupFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].ID)

	// Mutating a returned value does not touch stored state.
	all[1].Coords.Lat = 0
	again, err := repo.GetPickup(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 5.8269, again.Coords.Lat)

	_, err = repo.GetPickup(ctx, 42)
	assert.ErrorIs(t, err, ports.ErrPickupNotFound)
}

// Header and row shapes written by the marketplace itself.
const marketplaceCSV = `id_notificacion,fecha_notificacion,campesino,producto,cantidad_kg,ciudad,direccion,precio,precio_predicho,calidad,estado,fecha_recogida,transportista_asignado,imagen,latitud,longitud,transportista_lat,transportista_lon,distancia_restante_km,progreso_viaje,ruta_optimizada,orden_parada,tiempo_estimado_llegada,notificacion_enviada,telefono_campesino
CAMP-20250301071500,2025-03-01 07:15:00,Ana,Papa,120,Duitama,Vereda 1,96000,96000,Buena,Aceptado,,Carlos,,5.8269,-73.0347,5.7102,-73.1670,14.2,0.6,Zona_1,2.0,21.3,,3001234567
7,2025-03-01 08:00:00,Luis,Cebolla,80,Sogamoso,,64000,,Buena,Entregado,2025-03-02 10:00:00,Diana,,5.7147,-72.9342,,,,1.0,,1.0,,,
CAMP-20250301090000,2025-03-01 09:00:00,Rosa,Arveja,50,Paipa,,40000,,Buena,Completado,,,,,,,,,0.0,,,,,
CAMP-20250301071500,2025-03-01 07:15:00,Ana,Papa,120,Duitama,Vereda 1,96000,96000,Buena,Aceptado,,Carlos,,5.8269,-73.0347,,,,0.6,Zona_1,2.0,,,
`

func TestParsePickupsCSV_MarketplaceLayout(t *testing.T) {
	pickups, err := ParsePickupsCSV(strings.NewReader(marketplaceCSV))
	require.NoError(t, err)
	require.Len(t, pickups, 4)

	ana := pickups[0]
	assert.Equal(t, int64(8), ana.ID, "string ids follow the largest numeric id")
	assert.Equal(t, "CAMP-20250301071500", ana.ExternalID)
	assert.Equal(t, domain.StatusAccepted, ana.Status)
	assert.Equal(t, "Zona_1", ana.RouteName)
	assert.Equal(t, 2, ana.StopOrder)
	assert.Equal(t, 0.6, ana.Progress)
	require.NotNil(t, ana.TransporterPos)
	assert.Equal(t, domain.Coordinates{Lat: 5.7102, Lon: -73.1670}, *ana.TransporterPos)
	require.NotNil(t, ana.RemainingKm)
	assert.Equal(t, 14.2, *ana.RemainingKm)
	require.NotNil(t, ana.EtaMinutes)
	assert.Equal(t, 21.3, *ana.EtaMinutes)
	assert.Nil(t, ana.PickedUpAt)

	luis := pickups[1]
	assert.Equal(t, int64(7), luis.ID)
	assert.Empty(t, luis.ExternalID)
	assert.Equal(t, domain.StatusSold, luis.Status)
	require.NotNil(t, luis.PickedUpAt)
	assert.Equal(t, time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC), *luis.PickedUpAt)
	assert.Nil(t, luis.TransporterPos)

	rosa := pickups[2]
	assert.Equal(t, int64(9), rosa.ID)
	assert.Equal(t, domain.StatusSold, rosa.Status)
	assert.Nil(t, rosa.Coords)

	assert.Equal(t, ana.ID, pickups[3].ID, "repeated external ids share one id")
}

func TestSQLPickupRepository_StoresTripColumns(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLPickupRepository(newTestDB(t), DialectSQLite)

	pickups, err := ParsePickupsCSV(strings.NewReader(marketplaceCSV))
	require.NoError(t, err)
	require.NoError(t, repo.SavePickups(ctx, pickups[:3]...))

	got, err := repo.GetPickup(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, "CAMP-20250301071500", got.ExternalID)
	assert.Equal(t, "Zona_1", got.RouteName)
	assert.Equal(t, 2, got.StopOrder)
	assert.Equal(t, 0.6, got.Progress)
}

func TestSQLPickupRepository_UpdatePickupsIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLPickupRepository(newTestDB(t), DialectSQLite)
	require.NoError(t, repo.SavePickups(ctx, samplePickups()...))

	first, err := repo.GetPickup(ctx, 2)
	require.NoError(t, err)
	second, err := repo.GetPickup(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, first.Accept("Carlos", "", 1, domain.Coordinates{}))
	require.NoError(t, repo.UpdatePickups(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	require.NoError(t, second.Accept("Diana", "", 1, domain.Coordinates{}))
	err = repo.UpdatePickups(ctx, second)
	assert.ErrorIs(t, err, ports.ErrPickupConflict)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := repo.GetPickup(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Carlos", stored.Transporter)
	assert.Equal(t, int64(1), stored.Version)

	// A failing member rolls back the whole batch.
	other, err := repo.GetPickup(ctx, 1)
	require.NoError(t, err)
	other.City = "Paipa"
	err = repo.UpdatePickups(ctx, other, second)
	assert.ErrorIs(t, err, ports.ErrPickupConflict)
	unchanged, err := repo.GetPickup(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Sogamoso", unchanged.City)

	err = repo.UpdatePickups(ctx, &domain.Pickup{ID: 99, Farmer: "x", Product: "y"})
	assert.ErrorIs(t, err, ports.ErrPickupNotFound)
}

func TestSQLPickupRepository_SaveBumpsVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLPickupRepository(newTestDB(t), DialectSQLite)
	require.NoError(t, repo.SavePickups(ctx, samplePickups()...))

	stale, err := repo.GetPickup(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, repo.SavePickups(ctx, samplePickups()...))

	assert.ErrorIs(t, repo.UpdatePickups(ctx, stale), ports.ErrPickupConflict)
}

func TestSQLPickupRepository_CreatePickup(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLPickupRepository(newTestDB(t), DialectSQLite)

	p := &domain.Pickup{Farmer: "Ana", Product: "Papa", City: "Tunja", Status: domain.StatusPending}
	require.NoError(t, repo.CreatePickup(ctx, p))
	assert.Equal(t, int64(1), p.ID)

	require.NoError(t, repo.SavePickups(ctx, samplePickups()...))
	q := &domain.Pickup{Farmer: "Luis", Product: "Cebolla", City: "Tunja", Status: domain.StatusPending}
	require.NoError(t, repo.CreatePickup(ctx, q))
	assert.Equal(t, int64(3), q.ID)

	got, err := repo.GetPickup(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Luis", got.Farmer)
	assert.Zero(t, got.Version)
}

func TestSQLPurchaseRepository(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	pickups := NewSQLPickupRepository(conn, DialectSQLite)
	purchases := NewSQLPurchaseRepository(conn, DialectSQLite)
	require.NoError(t, pickups.SavePickups(ctx, samplePickups()...))

	p, err := pickups.GetPickup(ctx, 2)
	require.NoError(t, err)
	stale, err := pickups.GetPickup(ctx, 2)
	require.NoError(t, err)

	_, err = p.Sell(20)
	require.NoError(t, err)
	at := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	buy := &domain.Purchase{
		PickupID: 2, Buyer: "Mercado Central", Seller: "Ana", Origin: domain.OriginFarm,
		Product: "Papa", City: "Duitama", QuantityKg: 20, UnitPrice: 841.6667, TotalPrice: 16833.33,
		Rating: 5, Comment: "entrega temprano", CreatedAt: at,
	}
	require.NoError(t, purchases.RecordPurchase(ctx, p, buy))
	assert.Equal(t, int64(1), buy.ID)

	stored, err := pickups.GetPickup(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.QuantityKg)

	// A concurrent purchase based on the old quantity is rejected and leaves
	// no purchase row behind.
	_, err = stale.Sell(120)
	require.NoError(t, err)
	err = purchases.RecordPurchase(ctx, stale, &domain.Purchase{PickupID: 2, Buyer: "Otro", Seller: "Ana", Origin: domain.OriginFarm, Product: "Papa", CreatedAt: at})
	assert.ErrorIs(t, err, ports.ErrPickupConflict)

	all, err := purchases.ListPurchases(ctx, ports.PurchaseFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Mercado Central", all[0].Buyer)
	assert.Equal(t, domain.OriginFarm, all[0].Origin)
	assert.Equal(t, 5, all[0].Rating)
	assert.True(t, all[0].CreatedAt.Equal(at))

	none, err := purchases.ListPurchases(ctx, ports.PurchaseFilter{Seller: "Luis"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryPickupRepository_ConcurrentAccept(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPickupRepository(samplePickups()...)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []string
	)
	for _, name := range []string{"Carlos", "Diana", "Elena", "Felipe"} {
		p, err := repo.GetPickup(ctx, 2)
		require.NoError(t, err)
		wg.Add(1)
		go func(p *domain.Pickup, name string) {
			defer wg.Done()
			if err := p.Accept(name, "", 1, domain.Coordinates{}); err != nil {
				return
			}
			if repo.UpdatePickups(ctx, p) == nil {
				mu.Lock()
				wins = append(wins, name)
				mu.Unlock()
			}
		}(p, name)
	}
	wg.Wait()

	require.Len(t, wins, 1)
	stored, err := repo.GetPickup(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, wins[0], stored.Transporter)
}

func TestMemoryPickupRepository_CreateAndPurchases(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPickupRepository(samplePickups()...)

	p := &domain.Pickup{Farmer: "Rosa", Product: "Arveja", Status: domain.StatusPending, QuantityKg: 10}
	require.NoError(t, repo.CreatePickup(ctx, p))
	assert.Equal(t, int64(3), p.ID)

	_, err := p.Sell(10)
	require.NoError(t, err)
	buy := &domain.Purchase{PickupID: 3, Buyer: "Tienda", Seller: "Rosa"}
	require.NoError(t, repo.RecordPurchase(ctx, p, buy))
	assert.Equal(t, int64(1), buy.ID)

	stored, err := repo.GetPickup(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSold, stored.Status)

	byRosa, err := repo.ListPurchases(ctx, ports.PurchaseFilter{Seller: "Rosa"})
	require.NoError(t, err)
	assert.Len(t, byRosa, 1)

	stale := &domain.Pickup{ID: 3, Farmer: "Rosa", Product: "Arveja"}
	assert.ErrorIs(t, repo.RecordPurchase(ctx, stale, &domain.Purchase{}), ports.ErrPickupConflict)
}
