//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/finsight/internal/api/handlers"
	"github.com/cloo-solutions/finsight/internal/chunker"
	"github.com/cloo-solutions/finsight/internal/config"
	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/hashvec"
	"github.com/cloo-solutions/finsight/internal/repository"
	"github.com/cloo-solutions/finsight/internal/risk"
	"github.com/cloo-solutions/finsight/internal/sentiment"
	"github.com/cloo-solutions/finsight/internal/server"
	"github.com/cloo-solutions/finsight/internal/service"
	"github.com/cloo-solutions/finsight/internal/storage"
	"github.com/cloo-solutions/finsight/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// e2eAPIKey is the static bearer key the test server requires on /v1 routes.
const e2eAPIKey = "fin-e2e-bearer-key"

// e2eEmbeddingDims keeps the hash embedder small and fast for tests.
const e2eEmbeddingDims = 256

// Feed URLs routed to the in-process feed source.
const (
	tslaNewsFeed = "stub://feeds/tsla/news"
	tslaIRFeed   = "stub://feeds/tsla/ir"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	S3Client     *storage.S3Client
	Archive      *storage.DocumentArchive
	Prices       *stubPriceSource
	Feeds        *stubFeedSource
	ServerURL    string
	ServerCloser func()
	AuthToken    string
	BinaryDir    string
	ConfigDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server.
// The embedder and sentiment annotator are the deterministic local drivers
// and market data comes from stub sources, so scenarios need no external
// services beyond the containers.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     s3C.AccessKey,
		SecretAccessKey: s3C.SecretKey,
		Bucket:          "e2e-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}

	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	prices := newStubPriceSource()
	feeds := newStubFeedSource()

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}
	serverURL, serverCloser := startServer(t, pool, s3Client, prices, feeds, port)

	env := &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		S3Client:     s3Client,
		Archive:      storage.NewDocumentArchive(s3Client),
		Prices:       prices,
		Feeds:        feeds,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		AuthToken:    e2eAPIKey,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}

	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	// Clean up binaries and the redirected config home
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
	if e.ConfigDir != "" {
		os.RemoveAll(e.ConfigDir)
	}
}

// BuildBinaries builds the finsight and finsightd binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "finsight-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	configDir, err := os.MkdirTemp("", "finsight-e2e-config-*")
	if err != nil {
		e.T.Fatalf("failed to create config dir: %v", err)
	}
	e.ConfigDir = configDir

	for _, name := range []string{"finsightd", "finsight"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("failed to build %s: %v\n%s", name, err, out)
		}
	}
}

// finsightCmd prepares a CLI invocation against the test server. The config
// home is redirected so stored credentials never touch the developer's real
// config directory.
func (e *E2ETestEnv) finsightCmd(workDir string, args ...string) *exec.Cmd {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "finsight"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		"FINSIGHT_API_KEY="+e.AuthToken,
		"FINSIGHT_API_URL="+e.ServerURL,
		"XDG_CONFIG_HOME="+e.ConfigDir,
	)
	return cmd
}

// RunFinsight runs the finsight CLI command against the test server
func (e *E2ETestEnv) RunFinsight(workDir string, args ...string) (string, error) {
	out, err := e.finsightCmd(workDir, args...).CombinedOutput()
	return string(out), err
}

// RunFinsightWithInput runs the finsight CLI command with stdin input
func (e *E2ETestEnv) RunFinsightWithInput(workDir string, input string, args ...string) (string, error) {
	cmd := e.finsightCmd(workDir, args...)
	cmd.Stdin = bytes.NewReader([]byte(input))
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		if apiResp.Code != "" {
			return nil, fmt.Errorf("HTTP %d %s: %s", resp.StatusCode, apiResp.Code, apiResp.Error)
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// startServer wires the full pipeline over the test containers and serves it
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, prices *stubPriceSource, feeds *stubFeedSource, port int) (string, func()) {
	chunkIndex := repository.NewChunkIndexRepository(pool)
	series := repository.NewSeriesRepository(pool)

	embedder := hashvec.New(e2eEmbeddingDims)
	annotator := sentiment.NewLexicon()
	synthesis := config.DefaultSynthesisConfig()

	engine := risk.NewEngine(risk.Config{
		LowVolatility:  synthesis.LowVolatility,
		HighVolatility: synthesis.HighVolatility,
	})

	archive := storage.NewDocumentArchive(s3Client)
	ingestSvc := service.NewIngestServiceWithArchive(
		chunker.New(chunker.Config{}), annotator, embedder, chunkIndex, series, archive,
		service.IngestConfig{})
	insightSvc := service.NewInsightService(embedder, chunkIndex, series, engine, synthesis,
		service.InsightConfig{BenchmarkSymbol: "SPY"})
	symbolSvc := service.NewSymbolService(series, engine, 0, "SPY")
	refreshSvc := service.NewRefreshService(prices, feeds, ingestSvc, service.RefreshConfig{
		Feeds: map[string][]string{"TSLA": {tslaNewsFeed, tslaIRFeed}},
	})

	router := server.NewRouter(server.RouterConfig{
		APIKey:          e2eAPIKey,
		DocumentHandler: handlers.NewDocumentHandler(ingestSvc),
		InsightHandler:  handlers.NewInsightHandler(insightSvc),
		SymbolHandler:   handlers.NewSymbolHandler(symbolSvc, refreshSvc),
	})

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// dailyBars builds a deterministic daily series: a linear drift plus an
// alternating wiggle, so returns, volatility and drawdowns are all nonzero.
func dailyBars(start time.Time, days int, base, drift float64) []domain.PricePoint {
	points := make([]domain.PricePoint, 0, days)
	for i := 0; i < days; i++ {
		wiggle := 1.5
		if i%2 == 0 {
			wiggle = -1.5
		}
		px := base + drift*float64(i) + wiggle
		open := px - drift/2
		points = append(points, domain.PricePoint{
			Day:    domain.DayUTC(start.AddDate(0, 0, i)),
			Open:   open,
			High:   math.Max(open, px) + 1,
			Low:    math.Min(open, px) - 1,
			Close:  px,
			Volume: 1_000_000 + int64(i)*500,
		})
	}
	return points
}

// pointsJSON converts bars into the wire shape of the ingest API
func pointsJSON(points []domain.PricePoint) []map[string]interface{} {
	out := make([]map[string]interface{}, len(points))
	for i, p := range points {
		out[i] = map[string]interface{}{
			"day":    p.Day.Format("2006-01-02"),
			"open":   p.Open,
			"high":   p.High,
			"low":    p.Low,
			"close":  p.Close,
			"volume": p.Volume,
		}
	}
	return out
}

// stubPriceSource serves canned daily bars in place of the Yahoo chart
// source, so refresh scenarios run without network access.
type stubPriceSource struct {
	mu   sync.Mutex
	bars map[string][]domain.PricePoint
}

func newStubPriceSource() *stubPriceSource {
	return &stubPriceSource{bars: make(map[string][]domain.PricePoint)}
}

// SetBars replaces the canned history for a symbol.
func (s *stubPriceSource) SetBars(symbol string, points []domain.PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars[domain.NormalizeSymbol(symbol)] = points
}

func (s *stubPriceSource) FetchDaily(ctx context.Context, symbol string, from, to time.Time) (*domain.PriceSeries, error) {
	s.mu.Lock()
	points, ok := s.bars[domain.NormalizeSymbol(symbol)]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown symbol %s", domain.ErrDataUnavailable, symbol)
	}

	series := domain.NewPriceSeries(symbol)
	for _, p := range points {
		if p.Day.Before(from) || p.Day.After(to) {
			continue
		}
		if err := series.Append(p); err != nil {
			return nil, err
		}
	}
	if series.Len() == 0 {
		return nil, fmt.Errorf("%w: no bars for %s", domain.ErrDataUnavailable, symbol)
	}
	return series, nil
}

// stubFeedSource serves canned documents keyed by feed URL. Unknown feeds
// are quiet rather than failing, so a scenario opts into errors explicitly.
type stubFeedSource struct {
	mu   sync.Mutex
	docs map[string][]domain.Document
	errs map[string]error
}

func newStubFeedSource() *stubFeedSource {
	return &stubFeedSource{
		docs: make(map[string][]domain.Document),
		errs: make(map[string]error),
	}
}

// SetDocuments replaces the canned documents served for a feed URL.
func (s *stubFeedSource) SetDocuments(feedURL string, docs []domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[feedURL] = docs
}

// SetError makes a feed URL fail until replaced.
func (s *stubFeedSource) SetError(feedURL string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[feedURL] = err
}

func (s *stubFeedSource) Fetch(ctx context.Context, symbol, feedURL string) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[feedURL]; err != nil {
		return nil, err
	}
	return s.docs[feedURL], nil
}
