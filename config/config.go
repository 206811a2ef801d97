package config

import (
	"time"

	"github.com/urfave/cli/v2"

	"celo-wallet-service/flags"
)

type DBConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
}

type ServerConfig struct {
	Host string
	Port int
}

/*链节点相关配置*/
type ChainNodeConfig struct {
	ChainId              uint64
	RpcUrl               string
	StartingHeight       uint64
	Confirmations        uint64
	BlocksStep           uint64
	SynchronizerInterval time.Duration
	WorkerInterval       time.Duration
}

type Config struct {
	Migrations        string
	ChainNode         ChainNodeConfig
	MasterDB          DBConfig
	RestServer        ServerConfig
	HotWalletMnemonic string
}

/*从 cli flags 组装配置*/
func NewConfig(ctx *cli.Context) Config {
	return Config{
		Migrations: ctx.String(flags.MigrationsFlag.Name),
		ChainNode: ChainNodeConfig{
			ChainId:              ctx.Uint64(flags.ChainIdFlag.Name),
			RpcUrl:               ctx.String(flags.ChainNodeRpcFlag.Name),
			StartingHeight:       ctx.Uint64(flags.StartingHeightFlag.Name),
			Confirmations:        ctx.Uint64(flags.ConfirmationsFlag.Name),
			BlocksStep:           ctx.Uint64(flags.BlocksStepFlag.Name),
			SynchronizerInterval: ctx.Duration(flags.SynchronizerIntervalFlag.Name),
			WorkerInterval:       ctx.Duration(flags.WorkerIntervalFlag.Name),
		},
		MasterDB: DBConfig{
			Host:     ctx.String(flags.MasterDbHostFlag.Name),
			Port:     ctx.Int(flags.MasterDbPortFlag.Name),
			Name:     ctx.String(flags.MasterDbNameFlag.Name),
			User:     ctx.String(flags.MasterDbUserFlag.Name),
			Password: ctx.String(flags.MasterDbPasswordFlag.Name),
		},
		RestServer: ServerConfig{
			Host: ctx.String(flags.RestHostFlag.Name),
			Port: ctx.Int(flags.RestPortFlag.Name),
		},
		HotWalletMnemonic: ctx.String(flags.HotWalletMnemonicFlag.Name),
	}
}
