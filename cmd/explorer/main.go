package main

import (
	"flag"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/db"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/handlers/api"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/indexer/execution"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/metrics"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/rpc"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/services"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/types"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/utils"
)

func main() {
	configPath := flag.String("config", "", "Path to the config file, if empty string defaults will be used")
	flag.Parse()

	cfg := &types.Config{}
	err := utils.ReadConfig(cfg, *configPath)
	if err != nil {
		logrus.Fatalf("error reading config file: %v", err)
	}
	utils.Config = cfg
	logWriter, logger := utils.InitLogger()
	defer logWriter.Dispose()

	logger.WithFields(logrus.Fields{
		"config": *configPath,
		"chain":  cfg.Chain.DisplayName,
	}).Printf("starting")

	db.MustInitDB()
	err = db.ApplyEmbeddedDbSchema(-2)
	if err != nil {
		logger.Fatalf("error initializing db schema: %v", err)
	}

	client := rpc.NewExecutionClient("default", cfg.ExecutionApi.Endpoint, cfg.ExecutionApi.Headers)
	indexer := execution.NewIndexer(logger, cfg, client)
	services.InitChainService(logger, client, indexer)

	if cfg.Metrics.Enabled {
		err = metrics.StartMetricsServer(logger.WithField("module", "metrics"), cfg.Metrics.Host, cfg.Metrics.Port)
		if err != nil {
			logger.Fatalf("error starting metrics server: %v", err)
		}
	}

	if cfg.RateLimit.Enabled {
		err = services.StartCallRateLimiter(cfg.RateLimit.ProxyCount, cfg.RateLimit.Rate, cfg.RateLimit.Burst)
		if err != nil {
			logger.Fatalf("error starting call rate limiter: %v", err)
		}
	}

	if cfg.Api.Enabled {
		err = startApiServer(logger)
		if err != nil {
			logger.Fatalf("error starting api server: %v", err)
		}
	}

	err = services.GlobalChainService.StartService()
	if err != nil {
		logger.Fatalf("error starting chain service: %v", err)
	}

	utils.WaitForTermination()
	logger.Println("exiting...")
	services.GlobalChainService.StopService()
	db.MustCloseDB()
}

func startApiServer(logger logrus.FieldLogger) error {
	router := mux.NewRouter()

	router.HandleFunc("/api/v1/block/{blockOrHash}", api.ApiBlockV1).Methods("GET")
	router.HandleFunc("/api/v1/block/{blockOrHash}/transactions", api.ApiBlockTransactionsV1).Methods("GET")
	router.HandleFunc("/api/v1/blocks", api.ApiBlocksV1).Methods("GET")
	router.HandleFunc("/api/v1/transaction/{hash}", api.ApiTransactionV1).Methods("GET")
	router.HandleFunc("/api/v1/address/{address}", api.ApiAddressV1).Methods("GET")
	router.HandleFunc("/api/v1/address/{address}/transactions", api.ApiAddressTransactionsV1).Methods("GET")
	router.HandleFunc("/api/v1/address/{address}/transfers", api.ApiAddressTransfersV1).Methods("GET")
	router.HandleFunc("/api/v1/tokens", api.ApiTokensV1).Methods("GET")
	router.HandleFunc("/api/v1/token/{address}", api.ApiTokenV1).Methods("GET")
	router.HandleFunc("/api/v1/token/{address}/transfers", api.ApiTokenTransfersV1).Methods("GET")
	router.HandleFunc("/api/v1/token/{address}/holders", api.ApiTokenHoldersV1).Methods("GET")
	router.HandleFunc("/api/v1/stats/daily", api.ApiDailyStatsV1).Methods("GET")
	router.HandleFunc("/api/v1/stats/network", api.ApiNetworkStatsV1).Methods("GET")
	router.HandleFunc("/api/v1/status", api.ApiStatusV1).Methods("GET")

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.Use(negroni.HandlerFunc(corsMiddleware))
	n.UseHandler(router)

	if utils.Config.Api.HttpWriteTimeout == 0 {
		utils.Config.Api.HttpWriteTimeout = time.Second * 15
	}
	if utils.Config.Api.HttpReadTimeout == 0 {
		utils.Config.Api.HttpReadTimeout = time.Second * 15
	}
	if utils.Config.Api.HttpIdleTimeout == 0 {
		utils.Config.Api.HttpIdleTimeout = time.Second * 60
	}
	srv := &http.Server{
		Addr:         utils.Config.Api.Host + ":" + utils.Config.Api.Port,
		WriteTimeout: utils.Config.Api.HttpWriteTimeout,
		ReadTimeout:  utils.Config.Api.HttpReadTimeout,
		IdleTimeout:  utils.Config.Api.HttpIdleTimeout,
		Handler:      n,
	}

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}

	logger.Printf("api server listening on %v", srv.Addr)
	go func() {
		if err := srv.Serve(listener); err != nil {
			logger.WithError(err).Fatal("Error serving api")
		}
	}()

	return nil
}

func corsMiddleware(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	origin := r.Header.Get("Origin")
	if origin != "" {
		for _, allowed := range utils.Config.Api.CorsOrigins {
			if allowed == "*" || allowed == origin {
				w.Header().Set("Access-Control-Allow-Origin", allowed)
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				break
			}
		}
	}
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	next(w, r)
}
