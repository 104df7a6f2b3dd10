package loot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeSource struct {
	mu      sync.Mutex
	pages   map[int]string
	errs    map[int]error
	fetched []int
}

func (f *fakeSource) FetchPage(_ context.Context, index int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, index)
	if err, ok := f.errs[index]; ok {
		return "", err
	}
	if body, ok := f.pages[index]; ok {
		return body, nil
	}
	return "{}", nil
}

type entry struct {
	id       int64
	name     string
	alliance string
}

func page(entries ...entry) string {
	items := make([]string, 0, len(entries))
	for _, e := range entries {
		alliance := e.alliance
		if alliance == "" {
			alliance = DefaultAlliance
		}
		items = append(items, fmt.Sprintf(`[1, %d, {"AN":%q,"CF":"10","N":%q}]`, e.id, alliance, e.name))
	}
	return `{"content":{"L":[` + strings.Join(items, ",") + `]}}`
}

func TestScan_StopsAtFirstLowAfterMatch(t *testing.T) {
	src := &fakeSource{pages: map[int]string{
		0: page(entry{id: 6000000, name: "high"}, entry{id: 4000000, name: "low"}),
		1: page(entry{id: 7000000, name: "never"}),
	}}

	res := NewScanner(src, Options{}).Scan(context.Background(), 5000000)

	want := []Row{{ID: 6000000, Name: "high"}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Fatalf("rows = %+v, want %+v", res.Rows, want)
	}
	if !reflect.DeepEqual(src.fetched, []int{0}) {
		t.Fatalf("expected only page 0 to be fetched, got %v", src.fetched)
	}
	if res.StopReason != StopBelowThreshold {
		t.Fatalf("stop reason = %s", res.StopReason)
	}
}

func TestScan_LowBeforeFirstMatchIsSkipped(t *testing.T) {
	src := &fakeSource{pages: map[int]string{
		0: page(entry{id: 1000000, name: "early-low"}),
		1: page(entry{id: 9000000, name: "whale"}),
		2: page(entry{id: 1, name: "tail"}),
		3: page(entry{id: 8000000, name: "never"}),
	}}

	res := NewScanner(src, Options{}).Scan(context.Background(), 5000000)

	want := []Row{{ID: 9000000, Name: "whale"}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Fatalf("rows = %+v, want %+v", res.Rows, want)
	}
	if !reflect.DeepEqual(src.fetched, []int{0, 1, 2}) {
		t.Fatalf("fetched pages = %v", src.fetched)
	}
}

func TestScan_DescendingFeedPrefix(t *testing.T) {
	src := &fakeSource{pages: map[int]string{
		0: page(entry{id: 900, name: "a"}, entry{id: 800, name: "b"}),
		1: page(entry{id: 700, name: "c"}, entry{id: 600, name: "d"}, entry{id: 500, name: "e"}),
		2: page(entry{id: 400, name: "f"}),
	}}

	res := NewScanner(src, Options{}).Scan(context.Background(), 550)

	want := []Row{{900, "a"}, {800, "b"}, {700, "c"}, {600, "d"}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Fatalf("rows = %+v, want %+v", res.Rows, want)
	}
}

func TestScan_NoQualifyingRecords(t *testing.T) {
	src := &fakeSource{pages: map[int]string{
		0: page(entry{id: 10, name: "a"}),
		1: page(entry{id: 5, name: "b"}),
	}}

	res := NewScanner(src, Options{}).Scan(context.Background(), 5000000)
	if len(res.Rows) != 0 {
		t.Fatalf("expected no rows, got %+v", res.Rows)
	}
	if res.StopReason != StopNoData {
		t.Fatalf("stop reason = %s", res.StopReason)
	}
	if res.PagesFetched != 3 {
		t.Fatalf("pages fetched = %d, want 3", res.PagesFetched)
	}
}

func TestScan_OtherAlliancesIgnored(t *testing.T) {
	src := &fakeSource{pages: map[int]string{
		0: page(
			entry{id: 9000000, name: "rival", alliance: "Angry Dogs"},
			entry{id: 8000000, name: "mine"},
			entry{id: 1, name: "rival-low", alliance: "Angry Dogs"},
			entry{id: 7000000, name: "mine-too"},
		),
	}}

	res := NewScanner(src, Options{}).Scan(context.Background(), 5000000)

	want := []Row{{8000000, "mine"}, {7000000, "mine-too"}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Fatalf("rows = %+v, want %+v", res.Rows, want)
	}
}

func TestScan_EmptyPageDoesNotStop(t *testing.T) {
	src := &fakeSource{pages: map[int]string{
		0: page(entry{id: 6000000, name: "a"}),
		1: `{"content":{"L":[]}}`,
		2: page(entry{id: 5500000, name: "b"}, entry{id: 10, name: "c"}),
	}}

	res := NewScanner(src, Options{}).Scan(context.Background(), 5000000)

	want := []Row{{6000000, "a"}, {5500000, "b"}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Fatalf("rows = %+v, want %+v", res.Rows, want)
	}
}

func TestScan_DuplicatesKept(t *testing.T) {
	src := &fakeSource{pages: map[int]string{
		0: page(entry{id: 6000000, name: "a"}),
		1: page(entry{id: 6000000, name: "a"}),
	}}

	res := NewScanner(src, Options{}).Scan(context.Background(), 5000000)
	if len(res.Rows) != 2 {
		t.Fatalf("expected duplicate rows to be kept, got %+v", res.Rows)
	}
}

func TestScan_FetchFailure(t *testing.T) {
	src := &fakeSource{errs: map[int]error{0: errors.New("connection refused")}}

	res := NewScanner(src, Options{}).Scan(context.Background(), 5000000)
	if len(res.Rows) != 0 {
		t.Fatalf("expected empty result, got %+v", res.Rows)
	}
	if res.StopReason != StopFetchFailed {
		t.Fatalf("stop reason = %s", res.StopReason)
	}

	src = &fakeSource{
		pages: map[int]string{0: page(entry{id: 6000000, name: "a"})},
		errs:  map[int]error{1: errors.New("timeout")},
	}
	res = NewScanner(src, Options{}).Scan(context.Background(), 5000000)
	if len(res.Rows) != 1 {
		t.Fatalf("expected rows collected before the failure, got %+v", res.Rows)
	}
}

func TestScan_MalformedPageEndsScan(t *testing.T) {
	src := &fakeSource{pages: map[int]string{
		0: page(entry{id: 6000000, name: "a"}),
		1: "<html>oops</html>",
		2: page(entry{id: 6000000, name: "never"}),
	}}

	res := NewScanner(src, Options{}).Scan(context.Background(), 5000000)
	if len(res.Rows) != 1 || res.StopReason != StopFetchFailed {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestScan_MaxPages(t *testing.T) {
	src := &fakeSource{pages: map[int]string{
		0: page(entry{id: 1, name: "a"}),
		1: page(entry{id: 1, name: "b"}),
		2: page(entry{id: 1, name: "c"}),
	}}

	res := NewScanner(src, Options{MaxPages: 2}).Scan(context.Background(), 5000000)
	if res.StopReason != StopMaxPages || res.PagesFetched != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestScan_PageDelayHonoursCancel(t *testing.T) {
	src := &fakeSource{pages: map[int]string{
		0: page(entry{id: 6000000, name: "a"}),
		1: page(entry{id: 6000000, name: "b"}),
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := NewScanner(src, Options{PageDelay: time.Hour}).Scan(ctx, 5000000)
	if time.Since(start) > 5*time.Second {
		t.Fatal("scan did not return after context cancellation")
	}
	if res.StopReason != StopCanceled || len(res.Rows) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHTTPSource(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.EscapedPath())
		n := len(paths)
		mu.Unlock()

		switch n {
		case 1:
			w.Write([]byte(page(entry{id: 6000000, name: "a"})))
		case 2:
			w.Write([]byte(page(entry{id: 5900000, name: "b"})))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/hgh/", nil)
	res := NewScanner(src, Options{}).Scan(context.Background(), 5000000)

	want := []Row{{6000000, "a"}, {5900000, "b"}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Fatalf("rows = %+v, want %+v", res.Rows, want)
	}
	if res.StopReason != StopFetchFailed {
		t.Fatalf("stop reason = %s", res.StopReason)
	}

	wantPaths := []string{
		"/hgh/%22LT%22:2,%22LID%22:1,%22SV%22:%225%22",
		"/hgh/%22LT%22:2,%22LID%22:1,%22SV%22:%22215%22",
		"/hgh/%22LT%22:2,%22LID%22:1,%22SV%22:%22225%22",
	}
	if !reflect.DeepEqual(paths, wantPaths) {
		t.Fatalf("request paths = %v, want %v", paths, wantPaths)
	}
}
