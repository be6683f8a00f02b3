package repository

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/goteo/org.goteo.www-sub000/internal/domain"
)

// Container-backed tests; set INTEGRATION=1 to run them.
func setupLedger(t *testing.T) *PostgresLedger {
	t.Helper()
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run container-backed tests")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("ledger"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	_, thisFile, _, _ := runtime.Caller(0)
	cred := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "postgres",
		Password:          "postgres",
		DBName:            "ledger",
		MigrationsDirPath: filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "migrations"),
	}

	ledger, err := NewPostgresLedger(cred)
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	require.NoError(t, ledger.RunMigrations(cred))
	return ledger
}

func TestFind_NotFound(t *testing.T) {
	ledger := setupLedger(t)

	_, err := ledger.Find(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestRecordThenFind(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	sub := &domain.CheckoutSubmission{
		IdempotencyKey: "key-1",
		CheckoutID:     "3",
		OwnerID:        "u1",
		Gateway:        "stripe",
		TotalAmount:    6000,
	}
	require.NoError(t, ledger.Record(ctx, sub))

	got, err := ledger.Find(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "3", got.CheckoutID)
	assert.Equal(t, int64(6000), got.TotalAmount)
	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
}

func TestFindByCheckout(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	sub := &domain.CheckoutSubmission{
		IdempotencyKey: "key-1",
		CheckoutID:     "7",
		OwnerID:        "u9",
		Gateway:        "paypal",
		TotalAmount:    1500,
	}
	require.NoError(t, ledger.Record(ctx, sub))

	got, err := ledger.FindByCheckout(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "u9", got.OwnerID)

	_, err = ledger.FindByCheckout(ctx, "8")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestReserveCompleteRelease(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	// A reservation carries no checkout id yet.
	sub := &domain.CheckoutSubmission{IdempotencyKey: "key-1", OwnerID: "u1", Gateway: "stripe", TotalAmount: 6000}
	require.NoError(t, ledger.Record(ctx, sub))

	got, err := ledger.Find(ctx, "key-1")
	require.NoError(t, err)
	assert.Empty(t, got.CheckoutID)

	require.NoError(t, ledger.Complete(ctx, "key-1", "3"))
	got, err = ledger.Find(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "3", got.CheckoutID)

	assert.ErrorIs(t, ledger.Complete(ctx, "missing", "4"), ErrSubmissionNotFound)

	require.NoError(t, ledger.Release(ctx, "key-1"))
	_, err = ledger.Find(ctx, "key-1")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestRecord_DuplicateKey(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	sub := &domain.CheckoutSubmission{IdempotencyKey: "key-1", CheckoutID: "3", OwnerID: "u1", Gateway: "stripe"}
	require.NoError(t, ledger.Record(ctx, sub))

	dup := &domain.CheckoutSubmission{IdempotencyKey: "key-1", CheckoutID: "4", OwnerID: "u1", Gateway: "stripe"}
	assert.ErrorIs(t, ledger.Record(ctx, dup), ErrDuplicateKey)
}
