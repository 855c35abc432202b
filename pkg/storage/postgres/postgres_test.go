package postgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatgate/pkg/storage"
	"github.com/papercomputeco/chatgate/pkg/storage/postgres"
	"github.com/papercomputeco/chatgate/pkg/storage/storagetest"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("CHATGATE_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("CHATGATE_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	It("rejects malformed DSNs before connecting", func() {
		_, err := postgres.NewDriver(context.Background(), "postgres://chatgate@localhost:notaport/chatgate")
		Expect(err).To(MatchError(ContainSubstring("parsing postgres dsn")))
	})

	storagetest.DriverSpecs(func() storage.Driver {
		ctx := context.Background()
		driver, err := postgres.NewDriver(ctx, connStr())
		Expect(err).NotTo(HaveOccurred())

		_, err = driver.DB().ExecContext(ctx, "TRUNCATE turns")
		Expect(err).NotTo(HaveOccurred())
		return driver
	})
})
