package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mnee-xyz/mnee-cli/pkg/mnee/wallet"
)

var (
	addressFlag = &cli.StringFlag{
		Name:  "address",
		Usage: "address to check the balance of",
	}
	wifFlag = &cli.StringFlag{
		Name:    "wif",
		Usage:   "WIF-encoded private key (supplied by the key manager)",
		EnvVars: []string{wifEnvVar},
	}
)

var configCommand = cli.Command{
	Name:   "config",
	Usage:  "Show the token's network-wide parameters",
	Action: configAction,
}

var balanceCommand = cli.Command{
	Name:   "balance",
	Usage:  "Show the token balance of an address",
	Action: balanceAction,
	Flags:  []cli.Flag{addressFlag, wifFlag},
}

func configAction(ctx *cli.Context) error {
	cfg, err := mneeClient.GetConfig(ctx.Context)
	if err != nil {
		return err
	}
	return printJSON(cfg)
}

func balanceAction(ctx *cli.Context) error {
	address := ctx.String("address")
	if address == "" {
		wif := ctx.String("wif")
		if wif == "" {
			return fmt.Errorf("missing address, use --address or --wif")
		}
		signer, err := wallet.NewWIFSigner(wif)
		if err != nil {
			return err
		}
		address = signer.Address()
	}

	balance, err := mneeClient.Balance(ctx.Context, address)
	if err != nil {
		return err
	}
	return printJSON(balance)
}
