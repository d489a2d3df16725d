package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/lsmsample/lsmsample/pkg/authn"
	"github.com/lsmsample/lsmsample/pkg/catalog"
	"github.com/lsmsample/lsmsample/pkg/config"
	"github.com/lsmsample/lsmsample/pkg/logging"
	"github.com/lsmsample/lsmsample/pkg/lsm"
	"github.com/lsmsample/lsmsample/pkg/metrics"
	"github.com/lsmsample/lsmsample/pkg/pagestore"
	"github.com/lsmsample/lsmsample/pkg/restapi"
	"github.com/lsmsample/lsmsample/pkg/server"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	configPath := flag.String("config", "", "path to a YAML engine config (optional)")
	jwtSecret := flag.String("jwt-secret", "", "HS256 signing secret, at least 32 bytes (env LSM_JWT_SECRET overrides)")
	catalogDSN := flag.String("catalog-dsn", "", "Postgres DSN for the compaction audit trail (optional, env LSM_CATALOG_DSN overrides)")
	pageStorePath := flag.String("page-store", "", "local file path to persist every merged SortedRun to (optional, env LSM_PAGE_STORE overrides)")
	pageStoreCompress := flag.Bool("page-store-compress", false, "snappy-compress pages written to -page-store")
	flag.Parse()

	logger := logging.NewDefaultLogger()

	secret := *jwtSecret
	if env := os.Getenv("LSM_JWT_SECRET"); env != "" {
		secret = env
	}
	if secret == "" {
		log.Fatal("a JWT signing secret is required: pass -jwt-secret or set LSM_JWT_SECRET")
	}

	opts := lsm.DefaultEngineOptions()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		opts = loaded
	}

	reg := metrics.NewRegistry()
	engine := lsm.NewEngine(opts, logger, reg)
	defer engine.Close()

	dsn := *catalogDSN
	if env := os.Getenv("LSM_CATALOG_DSN"); env != "" {
		dsn = env
	}
	if dsn != "" {
		store, err := catalog.NewStore(context.Background(), dsn)
		if err != nil {
			log.Fatalf("failed to connect to catalog database: %v", err)
		}
		defer store.Close()
		engine.SetCatalog(store)
	}

	pageStoreFile := *pageStorePath
	if env := os.Getenv("LSM_PAGE_STORE"); env != "" {
		pageStoreFile = env
	}
	if pageStoreFile != "" {
		ps, err := pagestore.OpenLocalStore(pageStoreFile, *pageStoreCompress)
		if err != nil {
			log.Fatalf("failed to open page store: %v", err)
		}
		defer ps.Close()
		engine.SetPageStore(ps)
	}

	authMgr, err := authn.NewManager(secret, time.Hour)
	if err != nil {
		log.Fatalf("failed to build auth manager: %v", err)
	}
	users := authn.NewUserStore(authMgr)

	restServer := restapi.NewServer(engine, authMgr, users, reg, logger)
	gs := server.NewGracefulServer(*addr, restServer.Handler())

	fmt.Printf("lsmsample engine listening on %s\n", *addr)
	if err := gs.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
