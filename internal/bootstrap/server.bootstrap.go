package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/maxwellmelo/lighter-backend/internal/config"
	"github.com/maxwellmelo/lighter-backend/internal/constant"
	httpHandler "github.com/maxwellmelo/lighter-backend/internal/handler/trading/http"
	"github.com/maxwellmelo/lighter-backend/internal/infrastructure"
	"github.com/maxwellmelo/lighter-backend/internal/lighter"
	"github.com/maxwellmelo/lighter-backend/internal/service/market"
	"github.com/maxwellmelo/lighter-backend/internal/service/trading"
	"github.com/maxwellmelo/lighter-backend/internal/signer"
	"github.com/maxwellmelo/lighter-backend/internal/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartServer(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lighterCfg := config.Env.Lighter
	baseURL := constant.BaseURL(lighterCfg.Environment)

	restClient := lighter.NewClient(baseURL, lighterCfg.RequestTimeout)

	var signingClient signer.Client
	if strings.TrimSpace(lighterCfg.APIPrivateKey) != "" {
		lighterSigner, err := signer.NewLighterSigner(
			baseURL,
			lighterCfg.APIPrivateKey,
			lighterCfg.AccountIndex,
			lighterCfg.APIKeyIndex,
			constant.ChainID(lighterCfg.Environment),
		)
		util.ContinueOrFatal(err)
		signingClient = lighterSigner
	} else {
		logrus.Warn("no api private key configured, mutating endpoints will be rejected")
	}

	var decimalStore market.DecimalStore
	var redisStore *market.RedisDecimalStore
	if config.Env.Redis.CacheDSN != "" {
		store, err := market.NewRedisDecimalStore(config.Env.Redis.CacheDSN)
		util.ContinueOrFatal(err)
		redisStore = store
		decimalStore = store
		logrus.Info("redis decimal store enabled")
	}

	decimalCache := market.NewDecimalCache(restClient, decimalStore)

	var bookStream *market.BookStream
	var topProvider trading.TopProvider
	if config.Env.Stream.Enabled && len(config.Env.Stream.Markets) > 0 {
		bookStream = market.NewBookStream(
			constant.StreamURL(lighterCfg.Environment),
			config.Env.Stream.Markets,
			config.Env.Stream.Freshness,
		)
		topProvider = bookStream
		go bookStream.Run(ctx)
	}

	tradingService := trading.New(trading.Config{
		AccountIndex:    lighterCfg.AccountIndex,
		DefaultSlippage: lighterCfg.DefaultSlippage,
	}, restClient, signingClient, decimalCache, topProvider)

	tradingHTTPHandler := httpHandler.NewTradingHTTPHandler(tradingService, httpHandler.Config{
		APISecret:    config.Env.Server.APISecret,
		Environment:  lighterCfg.Environment,
		AccountIndex: lighterCfg.AccountIndex,
		APIKeyIndex:  lighterCfg.APIKeyIndex,
		BaseURL:      baseURL,
	})

	httpMux := http.NewServeMux()
	tradingHTTPHandler.Register(httpMux)

	httpServer := infrastructure.NewHTTPServerWithConfig(infrastructure.HTTPServerConfig{
		Addr:            fmt.Sprintf(":%s", config.Env.Server.Port),
		ShutdownTimeout: config.Env.GracefulShutdownTimeout,
	}, httpMux)

	go func() {
		err := httpServer.Start()
		if err != nil {
			logrus.Error(err)
		}
	}()
	logrus.Info(fmt.Sprintf("http server started on :%s", config.Env.Server.Port))

	ops := map[string]operation{
		"http": func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
		"order book stream": func(ctx context.Context) error {
			cancel()
			return nil
		},
	}
	if redisStore != nil {
		ops["redis"] = func(ctx context.Context) error {
			return redisStore.Close()
		}
	}

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, ops)

	<-wait
}
