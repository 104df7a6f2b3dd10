package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestScanPublish(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		switch n {
		case 1:
			w.Write([]byte(`{"content":{"L":[[0,7000000,{"AN":"Soft Kittens","CF":"3","N":"alice"}],[0,6500000,{"AN":"Other","CF":"3","N":"eve"}]]}}`))
		case 2:
			w.Write([]byte(`{"content":{"L":[[0,6000000,{"AN":"Soft Kittens","CF":"3","N":"bob"}],[0,10,{"AN":"Soft Kittens","CF":"3","N":"carol"}]]}}`))
		default:
			t.Errorf("request %d should not have been made", n)
			w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	reportPath := filepath.Join(dir, "static", "output.csv")

	rootCmd.SetArgs([]string{
		"scan", "--publish",
		"--base-url", srv.URL + "/hgh/",
		"--report", reportPath,
		"--dbpath", filepath.Join(dir, "runs.sqlite"),
		"--loglevel", "error",
	})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	got, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	want := "Loot ID,Name\n7000000,alice\n6000000,bob\n"
	if string(got) != want {
		t.Fatalf("report = %q, want %q", got, want)
	}

	db, err := openRunLog()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	runs, err := db.ListRecentRuns(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Rows != 2 || runs[0].Pages != 2 {
		t.Fatalf("unexpected runs %+v", runs)
	}
}
