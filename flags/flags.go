package flags

import (
	"time"

	"github.com/urfave/cli/v2"
)

const envVarPrefix = "CELO_WALLET"

func prefixEnvVars(name string) []string {
	return []string{envVarPrefix + "_" + name}
}

var (
	MigrationsFlag = &cli.StringFlag{
		Name:    "migrations-dir",
		Usage:   "path to migrations folder",
		EnvVars: prefixEnvVars("MIGRATIONS_DIR"),
		Value:   "./migrations",
	}
	ChainNodeRpcFlag = &cli.StringFlag{
		Name:     "chain-rpc",
		Usage:    "celo node json-rpc endpoint",
		EnvVars:  prefixEnvVars("CHAIN_RPC"),
		Required: true,
	}
	ChainIdFlag = &cli.Uint64Flag{
		Name:    "chain-id",
		Usage:   "celo chain id (42220 mainnet, 44787 alfajores)",
		EnvVars: prefixEnvVars("CHAIN_ID"),
		Value:   42220,
	}
	StartingHeightFlag = &cli.Uint64Flag{
		Name:    "starting-height",
		Usage:   "block height to start synchronizing from",
		EnvVars: prefixEnvVars("STARTING_HEIGHT"),
		Value:   0,
	}
	ConfirmationsFlag = &cli.Uint64Flag{
		Name:    "confirmations",
		Usage:   "blocks before a transaction is considered final",
		EnvVars: prefixEnvVars("CONFIRMATIONS"),
		Value:   16,
	}
	BlocksStepFlag = &cli.Uint64Flag{
		Name:    "blocks-step",
		Usage:   "max headers pulled per synchronizer round",
		EnvVars: prefixEnvVars("BLOCKS_STEP"),
		Value:   16,
	}
	SynchronizerIntervalFlag = &cli.DurationFlag{
		Name:    "synchronizer-interval",
		Usage:   "interval between synchronizer rounds",
		EnvVars: prefixEnvVars("SYNCHRONIZER_INTERVAL"),
		Value:   5 * time.Second,
	}
	WorkerIntervalFlag = &cli.DurationFlag{
		Name:    "worker-interval",
		Usage:   "interval between worker rounds",
		EnvVars: prefixEnvVars("WORKER_INTERVAL"),
		Value:   5 * time.Second,
	}
	RestHostFlag = &cli.StringFlag{
		Name:     "rest-host",
		Usage:    "rest api listen host",
		EnvVars:  prefixEnvVars("REST_HOST"),
		Required: true,
	}
	RestPortFlag = &cli.IntFlag{
		Name:     "rest-port",
		Usage:    "rest api listen port",
		EnvVars:  prefixEnvVars("REST_PORT"),
		Required: true,
		Value:    8089,
	}
	HotWalletMnemonicFlag = &cli.StringFlag{
		Name:    "hot-wallet-mnemonic",
		Usage:   "mnemonic of the hot wallet used for internal transfers",
		EnvVars: prefixEnvVars("HOT_WALLET_MNEMONIC"),
	}
	MasterDbHostFlag = &cli.StringFlag{
		Name:     "master-db-host",
		Usage:    "master database host",
		EnvVars:  prefixEnvVars("MASTER_DB_HOST"),
		Required: true,
	}
	MasterDbPortFlag = &cli.IntFlag{
		Name:     "master-db-port",
		Usage:    "master database port",
		EnvVars:  prefixEnvVars("MASTER_DB_PORT"),
		Required: true,
	}
	MasterDbNameFlag = &cli.StringFlag{
		Name:     "master-db-name",
		Usage:    "master database name",
		EnvVars:  prefixEnvVars("MASTER_DB_NAME"),
		Required: true,
	}
	MasterDbUserFlag = &cli.StringFlag{
		Name:    "master-db-user",
		Usage:   "master database user",
		EnvVars: prefixEnvVars("MASTER_DB_USER"),
	}
	MasterDbPasswordFlag = &cli.StringFlag{
		Name:    "master-db-password",
		Usage:   "master database password",
		EnvVars: prefixEnvVars("MASTER_DB_PASSWORD"),
	}
)

var requiredFlags = []cli.Flag{
	ChainNodeRpcFlag,
	RestHostFlag,
	RestPortFlag,
	MasterDbHostFlag,
	MasterDbPortFlag,
	MasterDbNameFlag,
}

var optionalFlags = []cli.Flag{
	MigrationsFlag,
	ChainIdFlag,
	StartingHeightFlag,
	ConfirmationsFlag,
	BlocksStepFlag,
	SynchronizerIntervalFlag,
	WorkerIntervalFlag,
	HotWalletMnemonicFlag,
	MasterDbUserFlag,
	MasterDbPasswordFlag,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}
