package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mnee-xyz/mnee-cli/pkg/errors"
	mneesdk "github.com/mnee-xyz/mnee-cli/pkg/mnee"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/types"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/wallet"
)

var (
	receiversFlag = &cli.StringFlag{
		Name:  "receivers",
		Usage: "receivers of the transfer, JSON encoded: '[{\"address\": \"<...>\", \"amount\": <...>}, ...]'",
	}
	toFlag = &cli.StringFlag{
		Name:  "to",
		Usage: "address of the recipient",
	}
	amountFlag = &cli.Float64Flag{
		Name:  "amount",
		Usage: "decimal amount of tokens to send",
	}
	waitFlag = &cli.BoolFlag{
		Name:  "wait",
		Usage: "poll the settlement ticket until it reaches a terminal state",
	}
	ticketFlag = &cli.StringFlag{
		Name:  "ticket",
		Usage: "settlement ticket id",
	}
)

var transferCommand = cli.Command{
	Name:   "transfer",
	Usage:  "Send tokens to a list of addresses",
	Action: transferAction,
	Flags:  []cli.Flag{wifFlag, receiversFlag, toFlag, amountFlag, waitFlag},
}

var statusCommand = cli.Command{
	Name:   "status",
	Usage:  "Show or await the settlement state of a ticket",
	Action: statusAction,
	Flags:  []cli.Flag{ticketFlag, waitFlag},
}

func transferAction(ctx *cli.Context) error {
	if !ctx.IsSet("receivers") && !ctx.IsSet("to") && !ctx.IsSet("amount") {
		return fmt.Errorf(
			"missing destination, either use --to and --amount or --receivers to send to many",
		)
	}

	var receivers []types.Receiver
	if raw := ctx.String("receivers"); len(raw) > 0 {
		if err := json.Unmarshal([]byte(raw), &receivers); err != nil {
			return fmt.Errorf("invalid receivers: %s", err)
		}
	} else {
		receivers = []types.Receiver{
			{Address: ctx.String("to"), DecimalAmount: ctx.Float64("amount")},
		}
	}

	wif := ctx.String("wif")
	if wif == "" {
		return fmt.Errorf("missing signing key, use --wif or %s", wifEnvVar)
	}
	signer, err := wallet.NewWIFSigner(wif)
	if err != nil {
		return err
	}

	outcome, err := mneeClient.Transfer(ctx.Context, signer, receivers)
	if err != nil {
		return translateCosignError(err)
	}

	if outcome.TicketID != "" && ctx.Bool("wait") {
		status, err := mneeClient.WaitForSettlement(
			ctx.Context, outcome.TicketID, onStatusChange(),
		)
		if err != nil {
			return err
		}
		return printJSON(status)
	}

	return printJSON(outcome)
}

func statusAction(ctx *cli.Context) error {
	ticketID := ctx.String("ticket")
	if ticketID == "" {
		return fmt.Errorf("missing ticket id")
	}

	if ctx.Bool("wait") {
		status, err := mneeClient.WaitForSettlement(ctx.Context, ticketID, onStatusChange())
		if err != nil {
			return err
		}
		return printJSON(status)
	}

	status, err := mneeClient.TransferStatus(ctx.Context, ticketID)
	if err != nil {
		return err
	}
	return printJSON(status)
}

func onStatusChange() mneesdk.PollOption {
	return mneesdk.WithOnChange(func(status types.TransferStatus) {
		fmt.Printf("settlement status: %s\n", status.Status)
	})
}

// translateCosignError maps cosign rejection sub-reasons to distinct,
// actionable messages; they imply different remediation.
func translateCosignError(err error) error {
	reason, ok := errors.RejectReason(err)
	if !ok {
		return err
	}
	switch reason {
	case errors.CosignReasonFrozen:
		return fmt.Errorf(
			"the sending or receiving address is frozen; contact the token issuer (%v)", err,
		)
	case errors.CosignReasonDenylisted:
		return fmt.Errorf(
			"an address in this transfer is denylisted and cannot transact (%v)", err,
		)
	case errors.CosignReasonPaused:
		return fmt.Errorf(
			"the cosigning service is paused; retry once the issuer resumes operations (%v)", err,
		)
	default:
		return fmt.Errorf("the cosigning authority declined the transfer (%v)", err)
	}
}
