package integration

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	db, err := SetupTestDatabase(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up test database: %v\n", err)
		os.Exit(1)
	}
	testDB = db

	code := m.Run()

	if err := testDB.Teardown(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to tear down test database: %v\n", err)
	}

	os.Exit(code)
}

// requireDB skips the test when the containerized database is unavailable
func requireDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() || testDB == nil {
		t.Skip("skipping integration test in short mode")
	}
	if err := testDB.CleanupTables(context.Background()); err != nil {
		t.Fatalf("failed to clean tables: %v", err)
	}
	return testDB
}
