package main

import (
	"context"

	"github.com/ethereum/go-ethereum/params"
	"github.com/urfave/cli/v2"

	"celo-wallet-service/common/cliapp"
	"celo-wallet-service/config"
	"celo-wallet-service/database"
	"celo-wallet-service/flags"
	"celo-wallet-service/rpcclient"
	"celo-wallet-service/services"
	"celo-wallet-service/worker"
)

/*rest api 服务*/
func runApi(ctx *cli.Context, shutdown context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	cfg := config.NewConfig(ctx)
	db, err := database.NewDB(ctx.Context, cfg.MasterDB)
	if err != nil {
		return nil, err
	}
	rpcClient, err := rpcclient.NewCeloClient(ctx.Context, cfg.ChainNode.RpcUrl)
	if err != nil {
		return nil, err
	}
	return services.NewWalletApiService(&cfg, db, rpcClient)
}

/*后台扫链与广播任务*/
func runWorker(ctx *cli.Context, shutdown context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	cfg := config.NewConfig(ctx)
	return worker.NewAllWorker(ctx.Context, &cfg, shutdown)
}

/*执行数据库迁移*/
func runMigrations(ctx *cli.Context) error {
	cfg := config.NewConfig(ctx)
	db, err := database.NewDB(ctx.Context, cfg.MasterDB)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return db.ExecuteSQLMigration(cfg.Migrations)
}

func NewCli(GitCommit string, GitData string) *cli.App {
	return &cli.App{
		Version:              params.VersionWithCommit(GitCommit, GitData),
		Description:          "A Celo wallet service with CIP-64 fee currency support, chain scanner and rest api server",
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:        "api",
				Flags:       flags.Flags,
				Description: "Run rest api server",
				Action:      cliapp.LifecycleCmd(runApi),
			},
			{
				Name:        "worker",
				Flags:       flags.Flags,
				Description: "Run chain synchronizer and broadcast workers",
				Action:      cliapp.LifecycleCmd(runWorker),
			},
			{
				Name:        "migrate",
				Flags:       flags.Flags,
				Description: "Run database migrations",
				Action:      runMigrations,
			},
			{
				Name:        "version",
				Description: "Show project version",
				Action: func(ctx *cli.Context) error {
					cli.ShowVersion(ctx)
					return nil
				},
			},
		},
	}
}
