package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	mneesdk "github.com/mnee-xyz/mnee-cli/pkg/mnee"
)

const (
	indexerURLEnvVar  = "MNEE_INDEXER_URL"
	cosignerURLEnvVar = "MNEE_COSIGNER_URL"
	apiTokenEnvVar    = "MNEE_API_TOKEN"
	wifEnvVar         = "MNEE_WIF"
)

var (
	Version string

	mneeClient mneesdk.MneeClient
)

func main() {
	app := cli.NewApp()
	app.Version = Version
	app.Name = "MNEE CLI"
	app.Usage = "mnee token wallet command line interface"
	app.Commands = append(
		app.Commands,
		&configCommand,
		&balanceCommand,
		&transferCommand,
		&statusCommand,
	)
	app.Flags = []cli.Flag{indexerURLFlag, cosignerURLFlag, apiTokenFlag}
	app.Before = func(ctx *cli.Context) error {
		client, err := mneesdk.New(mneesdk.Config{
			IndexerURL:  ctx.String("indexer-url"),
			CosignerURL: ctx.String("cosigner-url"),
			APIToken:    ctx.String("api-token"),
		})
		if err != nil {
			return fmt.Errorf("error initializing mnee sdk client: %v", err)
		}
		mneeClient = client

		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}

var (
	indexerURLFlag = &cli.StringFlag{
		Name:    "indexer-url",
		Usage:   "the url of the token indexing service",
		EnvVars: []string{indexerURLEnvVar},
		Value:   "https://proxy-api.mnee.net",
	}
	cosignerURLFlag = &cli.StringFlag{
		Name:    "cosigner-url",
		Usage:   "the url of the cosigning authority",
		EnvVars: []string{cosignerURLEnvVar},
		Value:   "https://proxy-api.mnee.net",
	}
	apiTokenFlag = &cli.StringFlag{
		Name:    "api-token",
		Usage:   "API token for the remote services",
		EnvVars: []string{apiTokenEnvVar},
	}
)

func printJSON(resp interface{}) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(jsonBytes))
	return nil
}
