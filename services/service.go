package services

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gin-gonic/gin"

	"celo-wallet-service/config"
	"celo-wallet-service/database"
	"celo-wallet-service/rpcclient"
	"celo-wallet-service/signer"
)

/*REST 服务，实现 cliapp 的生命周期接口*/
type WalletApiService struct {
	conf      *config.Config
	db        *database.DB
	rpcClient *rpcclient.CeloClient
	/*热钱包签名器，未配置助记词时为 nil，内部调拨接口不可用*/
	hotSigner *signer.HotWalletSigner

	srv     *http.Server
	stopped atomic.Bool
}

func NewWalletApiService(conf *config.Config, db *database.DB, rpcClient *rpcclient.CeloClient) (*WalletApiService, error) {
	var hotSigner *signer.HotWalletSigner
	if conf.HotWalletMnemonic != "" {
		s, err := signer.NewHotWalletSigner(conf.HotWalletMnemonic)
		if err != nil {
			return nil, err
		}
		hotSigner = s
	}
	return &WalletApiService{
		conf:      conf,
		db:        db,
		rpcClient: rpcClient,
		hotSigner: hotSigner,
	}, nil
}

func (w *WalletApiService) Start(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	w.registerRoutes(router)

	addr := fmt.Sprintf("%s:%d", w.conf.RestServer.Host, w.conf.RestServer.Port)
	w.srv = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	go func() {
		log.Info("starting rest server", "addr", addr)
		if err := w.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("rest server stopped", "err", err)
		}
	}()
	return nil
}

func (w *WalletApiService) Stop(ctx context.Context) error {
	if w.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := w.srv.Shutdown(shutdownCtx); err != nil {
			log.Error("rest server shutdown fail", "err", err)
		}
	}
	w.stopped.Store(true)
	return nil
}

func (w *WalletApiService) Stopped() bool {
	return w.stopped.Load()
}

func (w *WalletApiService) registerRoutes(router *gin.Engine) {
	router.POST("/business/register", w.BusinessRegister)
	router.POST("/address/export", w.ExportAddressByPublicKeys)
	router.POST("/fee-currency/set", w.SetFeeCurrencies)
	router.GET("/fee-currency/list", w.ListFeeCurrencies)
	router.GET("/balance", w.QueryBalance)
	router.GET("/deposits", w.QueryDeposits)
	router.GET("/withdraws", w.QueryWithdraws)
	router.POST("/withdraw/build-unsigned", w.BuildUnsignedWithdraw)
	router.POST("/withdraw/submit-signature", w.SubmitWithdrawSignature)
	router.POST("/internal/transfer", w.InternalTransfer)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "duration", time.Since(start))
	}
}
