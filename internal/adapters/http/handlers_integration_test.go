//go:build integration

package http_test

import (
	"context"
	"testing"
	"time"

	handler "github.com/samirrijal/rihla/internal/adapters/http"
	"github.com/samirrijal/rihla/internal/adapters/postgres"
	"github.com/samirrijal/rihla/internal/core/usecases"
	"github.com/samirrijal/rihla/internal/pkg/config"
	"github.com/samirrijal/rihla/internal/pkg/vault"
)

// setupTestDB connects to the database from the rihla-test config. The
// kv_store migration must have been applied.
func setupTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	cfg, err := config.Load("rihla-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestCredentials_Integration_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	store := postgres.NewKVStore(db)
	owner := "itest-" + time.Now().Format("20060102150405")

	app := setupApp(makeDeps(&mockTransport{}, func(d *handler.Dependencies) {
		d.Credentials = usecases.NewCredentialService(vault.New(), store)
		d.Storage = db
		d.StorageName = "postgres"
	}))

	if resp := do(t, app, "GET", "/v1/ready", nil); resp.StatusCode != 200 {
		t.Fatalf("ready: %d", resp.StatusCode)
	}

	resp := do(t, app, "PUT", "/v1/credentials", map[string]string{"national_id": "29001011234567"}, client(owner), bearer("tok"))
	if resp.StatusCode != 204 {
		t.Fatalf("put: %d", resp.StatusCode)
	}

	resp = do(t, app, "GET", "/v1/credentials", nil, client(owner), bearer("tok"))
	if resp.StatusCode != 200 {
		t.Fatalf("get: %d", resp.StatusCode)
	}
	if got := decode[map[string]string](t, resp); got["national_id"] != "29001011234567" {
		t.Errorf("national_id = %q", got["national_id"])
	}

	if resp := do(t, app, "DELETE", "/v1/credentials", nil, client(owner)); resp.StatusCode != 204 {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	if resp := do(t, app, "GET", "/v1/credentials", nil, client(owner), bearer("tok")); resp.StatusCode != 404 {
		t.Errorf("get after delete: %d", resp.StatusCode)
	}
}
